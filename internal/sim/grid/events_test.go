package grid

import (
	"encoding/json"
	"testing"

	"pixelgrid.io/internal/protocol"
)

func TestEventCursorsAreMonotonic(t *testing.T) {
	g := newTestGrid(t, Config{})
	pid, out := joinWithOut(t, g, "alice", false)

	for cell := 1; cell <= 5; cell++ {
		claimCell(t, g, pid, out, cell)
	}

	if len(g.journal) != 5 {
		t.Fatalf("journal len = %d, want 5", len(g.journal))
	}
	for i, item := range g.journal {
		if item.Cursor != uint64(i+1) {
			t.Fatalf("journal[%d].Cursor = %d, want %d", i, item.Cursor, i+1)
		}
	}
}

func TestEventBatchPagination(t *testing.T) {
	g := newTestGrid(t, Config{})
	pid, out := joinWithOut(t, g, "alice", false)
	for cell := 1; cell <= 10; cell++ {
		claimCell(t, g, pid, out, cell)
	}

	resp := make(chan EventBatchResponse, 1)
	g.handleEventBatch(EventBatchRequest{SinceCursor: 0, Limit: 4, Resp: resp})
	page := <-resp
	if len(page.Events) != 4 || page.NextCursor != 4 {
		t.Fatalf("page 1: %d events, next=%d", len(page.Events), page.NextCursor)
	}

	g.handleEventBatch(EventBatchRequest{SinceCursor: page.NextCursor, Limit: 4, Resp: resp})
	page = <-resp
	if len(page.Events) != 4 || page.Events[0].Cursor != 5 {
		t.Fatalf("page 2: %d events, first=%d", len(page.Events), page.Events[0].Cursor)
	}

	g.handleEventBatch(EventBatchRequest{SinceCursor: 10, Limit: 4, Resp: resp})
	page = <-resp
	if len(page.Events) != 0 || page.NextCursor != 10 {
		t.Fatalf("past-end page: %d events, next=%d", len(page.Events), page.NextCursor)
	}
}

func TestEventJournalCapTrimsOldest(t *testing.T) {
	g := newTestGrid(t, Config{EventJournalCap: 3})
	pid, out := joinWithOut(t, g, "alice", false)
	for cell := 1; cell <= 5; cell++ {
		claimCell(t, g, pid, out, cell)
	}

	if len(g.journal) != 3 {
		t.Fatalf("journal len = %d, want 3", len(g.journal))
	}
	if g.journal[0].Cursor != 3 || g.journal[2].Cursor != 5 {
		t.Fatalf("journal cursors = %d..%d, want 3..5", g.journal[0].Cursor, g.journal[2].Cursor)
	}
}

func TestEventsBroadcastToAllClients(t *testing.T) {
	g := newTestGrid(t, Config{})
	alice, aOut := joinWithOut(t, g, "alice", false)
	_, bOut := joinWithOut(t, g, "bob", false)

	g.step(nil, nil, []ActionEnvelope{instant(alice, protocol.InstantReq{ID: "c1", Type: protocol.InstantClaim, Cell: 9})})

	seen := func(out chan []byte) bool {
		for {
			select {
			case b := <-out:
				var em protocol.EventMsg
				if err := json.Unmarshal(b, &em); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if typ, _ := em.Event["type"].(string); typ == "CELL_CLAIMED" {
					return true
				}
			default:
				return false
			}
		}
	}
	if !seen(aOut) {
		t.Fatalf("actor did not receive CELL_CLAIMED")
	}
	if !seen(bOut) {
		t.Fatalf("observer did not receive CELL_CLAIMED")
	}
}

func TestEventLoggerReceivesJournalEntries(t *testing.T) {
	g := newTestGrid(t, Config{})
	rec := &recordingEventLogger{}
	g.SetEventLogger(rec)
	pid, out := joinWithOut(t, g, "alice", false)
	claimCell(t, g, pid, out, 2)

	if len(rec.entries) != 1 {
		t.Fatalf("logged entries = %d, want 1", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Cursor != 1 {
		t.Fatalf("logged cursor = %d, want 1", e.Cursor)
	}
	if typ, _ := e.Event["type"].(string); typ != "CELL_CLAIMED" {
		t.Fatalf("logged event type = %v", e.Event["type"])
	}
}

type recordingEventLogger struct {
	entries []EventLogEntry
}

func (r *recordingEventLogger) WriteEvent(e EventLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}
