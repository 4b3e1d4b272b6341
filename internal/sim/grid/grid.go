package grid

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"pixelgrid.io/internal/persistence/snapshot"
	"pixelgrid.io/internal/protocol"
)

// Fixed board geometry. Cell ids are 1..Cells, laid out row-major.
const (
	Width  = 16
	Height = 16
	Cells  = Width * Height
)

type Config struct {
	ID         string
	TickRateHz int

	SnapshotEveryTicks uint64

	// AdminID is the painter identity allowed to withdraw the treasury.
	AdminID string

	// Fee gating for claims. When FeeRequired is false, attached payments
	// are still credited to the treasury but never checked.
	FeeRequired bool
	MinClaimFee int

	// EventJournalCap bounds the in-memory cursored journal.
	EventJournalCap int
}

type JoinRequest struct {
	Name  string
	Admin bool
	Out   chan []byte
	Resp  chan JoinResponse
}

type AttachRequest struct {
	ResumeToken string
	Out         chan []byte
	Resp        chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

type ActionEnvelope struct {
	PainterID string
	Act       protocol.ActMsg
}

// EventBatchRequest serves cursored catch-up reads from the journal.
type EventBatchRequest struct {
	SinceCursor uint64
	Limit       int
	Resp        chan EventBatchResponse
}

type EventBatchResponse struct {
	Events     []protocol.EventBatchItem
	NextCursor uint64
}

// Painter is an authenticated caller identity.
type Painter struct {
	ID          string
	Name        string
	ResumeToken string
	Admin       bool
	JoinedTick  uint64
}

type clientState struct {
	Out chan []byte
}

// Transferrer moves a withdrawn treasury balance out of the registry.
// A non-nil error must leave the caller free to retry: the registry rolls
// the withdrawal back and keeps the balance.
type Transferrer interface {
	Transfer(dest string, amount uint64) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type EventLogger interface {
	WriteEvent(entry EventLogEntry) error
}

type AuditEntry struct {
	Tick   uint64 `json:"tick"`
	Actor  string `json:"actor"`
	Action string `json:"action"` // e.g. "CLAIM"
	Cell   int    `json:"cell"`
	R      uint8  `json:"r,omitempty"`
	G      uint8  `json:"g,omitempty"`
	B      uint8  `json:"b,omitempty"`
	Amount uint64 `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type EventLogEntry struct {
	Cursor uint64         `json:"cursor"`
	Tick   uint64         `json:"tick"`
	Event  protocol.Event `json:"event"`
}

// Grid is the single-threaded authoritative cell registry.
// All state must be accessed only from the grid loop goroutine.
type Grid struct {
	cfg Config

	tick         atomic.Uint64
	totalClaimed atomic.Uint64

	cells   [Cells]Cell
	balance uint64

	painters map[string]*Painter
	byToken  map[string]*Painter
	clients  map[string]*clientState

	journal    []protocol.EventBatchItem
	nextCursor uint64
	// Events staged during the current step, flushed to clients at its end.
	pendingBroadcast []protocol.EventBatchItem

	inbox     chan ActionEnvelope
	join      chan JoinRequest
	attach    chan AttachRequest
	leave     chan string
	eventsReq chan EventBatchRequest
	queries   chan func()
	stop      chan struct{}

	nextPainterNum atomic.Uint64

	transferrer Transferrer

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	auditLogger AuditLogger
	eventLogger EventLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1
}

func New(cfg Config) (*Grid, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("grid id is required")
	}
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	if cfg.AdminID == "" {
		cfg.AdminID = "admin"
	}
	if cfg.EventJournalCap <= 0 {
		cfg.EventJournalCap = 4096
	}
	if cfg.FeeRequired && cfg.MinClaimFee <= 0 {
		return nil, fmt.Errorf("fee gating enabled with no minimum fee")
	}

	g := &Grid{
		cfg:       cfg,
		painters:  map[string]*Painter{},
		byToken:   map[string]*Painter{},
		clients:   map[string]*clientState{},
		inbox:     make(chan ActionEnvelope, 1024),
		join:      make(chan JoinRequest, 64),
		attach:    make(chan AttachRequest, 64),
		leave:     make(chan string, 64),
		eventsReq: make(chan EventBatchRequest, 64),
		queries:   make(chan func(), 256),
		stop:      make(chan struct{}),
	}
	return g, nil
}

func (g *Grid) SetTransferrer(t Transferrer)                   { g.transferrer = t }
func (g *Grid) SetAuditLogger(l AuditLogger)                   { g.auditLogger = l }
func (g *Grid) SetEventLogger(l EventLogger)                   { g.eventLogger = l }
func (g *Grid) SetSnapshotSink(ch chan<- snapshot.SnapshotV1)  { g.snapshotSink = ch }

func (g *Grid) Inbox() chan<- ActionEnvelope        { return g.inbox }
func (g *Grid) Join() chan<- JoinRequest            { return g.join }
func (g *Grid) Attach() chan<- AttachRequest        { return g.attach }
func (g *Grid) Leave() chan<- string                { return g.leave }
func (g *Grid) EventsReq() chan<- EventBatchRequest { return g.eventsReq }

func (g *Grid) CurrentTick() uint64 { return g.tick.Load() }

// TotalClaimed reports the number of claimed cells. The counter is mirrored
// atomically by the loop, so this is safe from any goroutine.
func (g *Grid) TotalClaimed() uint64 { return g.totalClaimed.Load() }

func (g *Grid) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(g.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingActions []ActionEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.stop:
			return nil
		case req := <-g.join:
			pendingJoins = append(pendingJoins, req)
		case req := <-g.attach:
			g.handleAttach(req)
		case id := <-g.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-g.inbox:
			pendingActions = append(pendingActions, env)
		case req := <-g.eventsReq:
			g.handleEventBatch(req)
		case fn := <-g.queries:
			fn()
		case <-ticker.C:
			g.step(pendingJoins, pendingLeaves, pendingActions)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingActions = pendingActions[:0]
		}
	}
}

func (g *Grid) Stop() { close(g.stop) }

// step applies one tick's worth of pending work deterministically:
// leaves, then joins, then actions in inbox order.
func (g *Grid) step(joins []JoinRequest, leaves []string, actions []ActionEnvelope) {
	nowTick := g.tick.Load()

	for _, id := range leaves {
		g.handleLeave(id)
	}
	for _, req := range joins {
		resp := g.joinPainter(req, nowTick)
		if req.Resp != nil {
			req.Resp <- resp
		}
	}

	for _, env := range actions {
		p := g.painters[env.PainterID]
		if p == nil {
			continue
		}
		g.applyAct(p, env.Act, nowTick)
	}

	g.flushBroadcast()

	next := nowTick + 1
	g.tick.Store(next)
	if g.snapshotSink != nil && g.cfg.SnapshotEveryTicks > 0 && next%g.cfg.SnapshotEveryTicks == 0 {
		select {
		case g.snapshotSink <- g.ExportSnapshot():
		default:
		}
	}
}

func (g *Grid) joinPainter(req JoinRequest, nowTick uint64) JoinResponse {
	var p *Painter
	if req.Admin {
		// The admin identity is a singleton; reconnects reuse it.
		p = g.painters[g.cfg.AdminID]
		if p == nil {
			p = &Painter{
				ID:          g.cfg.AdminID,
				Name:        req.Name,
				ResumeToken: fmt.Sprintf("resume_%s_%s", g.cfg.ID, g.cfg.AdminID),
				Admin:       true,
				JoinedTick:  nowTick,
			}
			g.painters[p.ID] = p
			g.byToken[p.ResumeToken] = p
		}
	} else {
		n := g.nextPainterNum.Add(1)
		p = &Painter{
			ID:          fmt.Sprintf("P%d", n),
			Name:        req.Name,
			ResumeToken: fmt.Sprintf("resume_%s_%d", g.cfg.ID, n),
			JoinedTick:  nowTick,
		}
		g.painters[p.ID] = p
		g.byToken[p.ResumeToken] = p
	}

	if req.Out != nil {
		g.clients[p.ID] = &clientState{Out: req.Out}
	}
	return JoinResponse{Welcome: g.welcomeFor(p)}
}

func (g *Grid) handleAttach(req AttachRequest) {
	var resp JoinResponse
	if p := g.byToken[req.ResumeToken]; p != nil {
		if req.Out != nil {
			g.clients[p.ID] = &clientState{Out: req.Out}
		}
		resp = JoinResponse{Welcome: g.welcomeFor(p)}
	}
	if req.Resp != nil {
		req.Resp <- resp
	}
}

func (g *Grid) handleLeave(id string) {
	delete(g.clients, id)
}

func (g *Grid) welcomeFor(p *Painter) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PainterID:       p.ID,
		ResumeToken:     p.ResumeToken,
		Admin:           p.Admin,
		GridParams: protocol.GridParams{
			Width:        Width,
			Height:       Height,
			Cells:        Cells,
			TickRateHz:   g.cfg.TickRateHz,
			FeeRequired:  g.cfg.FeeRequired,
			MinClaimFee:  g.cfg.MinClaimFee,
			TotalClaimed: int(g.totalClaimed.Load()),
		},
		EventCursor: g.nextCursor,
	}
}
