package grid

import (
	"encoding/json"

	"pixelgrid.io/internal/protocol"
)

func eventCellClaimed(tick uint64, caller string, id, x, y int) protocol.Event {
	return protocol.Event{
		"t":      tick,
		"type":   "CELL_CLAIMED",
		"caller": caller,
		"cell":   id,
		"x":      x,
		"y":      y,
	}
}

func eventColorUpdated(tick uint64, caller string, id int, c RGB) protocol.Event {
	return protocol.Event{
		"t":      tick,
		"type":   "COLOR_UPDATED",
		"caller": caller,
		"cell":   id,
		"r":      int(c.R),
		"g":      int(c.G),
		"b":      int(c.B),
	}
}

func eventTreasuryWithdrawn(tick uint64, caller, dest string, amount uint64) protocol.Event {
	return protocol.Event{
		"t":      tick,
		"type":   "TREASURY_WITHDRAWN",
		"caller": caller,
		"dest":   dest,
		"amount": amount,
	}
}

// emitEvent appends a domain event to the cursored journal and stages it for
// the end-of-step broadcast. Cursors are assigned here, on the loop
// goroutine, so journal order equals mutation order.
func (g *Grid) emitEvent(ev protocol.Event) {
	g.nextCursor++
	item := protocol.EventBatchItem{Cursor: g.nextCursor, Event: ev}
	g.journal = append(g.journal, item)
	if over := len(g.journal) - g.cfg.EventJournalCap; over > 0 {
		g.journal = g.journal[over:]
	}
	g.pendingBroadcast = append(g.pendingBroadcast, item)

	if g.eventLogger != nil {
		_ = g.eventLogger.WriteEvent(EventLogEntry{Cursor: item.Cursor, Tick: g.tick.Load(), Event: ev})
	}
}

func (g *Grid) audit(entry AuditEntry) {
	if g.auditLogger != nil {
		_ = g.auditLogger.WriteAudit(entry)
	}
}

// sendResult delivers an ACTION_RESULT to the acting client only. Results
// are not journaled; only successful mutations become domain events.
func (g *Grid) sendResult(painterID string, ev protocol.Event) {
	c := g.clients[painterID]
	if c == nil {
		return
	}
	b, err := json.Marshal(protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Event:           ev,
	})
	if err != nil {
		return
	}
	select {
	case c.Out <- b:
	default:
		// Slow consumer: drop rather than stall the loop.
	}
}

// flushBroadcast pushes this step's journal events to every connected client.
func (g *Grid) flushBroadcast() {
	if len(g.pendingBroadcast) == 0 {
		return
	}
	for _, item := range g.pendingBroadcast {
		b, err := json.Marshal(protocol.EventMsg{
			Type:            protocol.TypeEvent,
			ProtocolVersion: protocol.Version,
			Cursor:          item.Cursor,
			Event:           item.Event,
		})
		if err != nil {
			continue
		}
		for _, c := range g.clients {
			select {
			case c.Out <- b:
			default:
			}
		}
	}
	g.pendingBroadcast = g.pendingBroadcast[:0]
}

func (g *Grid) handleEventBatch(req EventBatchRequest) {
	limit := req.Limit
	if limit <= 0 || limit > 256 {
		limit = 256
	}
	resp := EventBatchResponse{NextCursor: req.SinceCursor}
	for _, item := range g.journal {
		if item.Cursor <= req.SinceCursor {
			continue
		}
		resp.Events = append(resp.Events, item)
		resp.NextCursor = item.Cursor
		if len(resp.Events) >= limit {
			break
		}
	}
	if req.Resp != nil {
		req.Resp <- resp
	}
}
