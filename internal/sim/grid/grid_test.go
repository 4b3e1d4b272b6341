package grid

import (
	"encoding/json"
	"testing"

	"pixelgrid.io/internal/protocol"
)

func newTestGrid(t *testing.T, cfg Config) *Grid {
	t.Helper()
	if cfg.ID == "" {
		cfg.ID = "test"
	}
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	return g
}

// joinWithOut runs one step with a join request and returns the painter id
// and its outbound frame channel.
func joinWithOut(t *testing.T, g *Grid, name string, admin bool) (string, chan []byte) {
	t.Helper()
	out := make(chan []byte, 64)
	respCh := make(chan JoinResponse, 1)
	g.step([]JoinRequest{{Name: name, Admin: admin, Out: out, Resp: respCh}}, nil, nil)
	resp := <-respCh
	if resp.Welcome.PainterID == "" {
		t.Fatalf("join failed for %q", name)
	}
	return resp.Welcome.PainterID, out
}

func instant(pid string, inst protocol.InstantReq) ActionEnvelope {
	return ActionEnvelope{
		PainterID: pid,
		Act: protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			PainterID:       pid,
			Instants:        []protocol.InstantReq{inst},
		},
	}
}

// lastResult drains out and returns the final ACTION_RESULT seen.
func lastResult(t *testing.T, out chan []byte) protocol.Event {
	t.Helper()
	var last protocol.Event
	for {
		select {
		case b := <-out:
			var em protocol.EventMsg
			if err := json.Unmarshal(b, &em); err != nil {
				t.Fatalf("decode frame: %v", err)
			}
			if typ, _ := em.Event["type"].(string); typ == "ACTION_RESULT" {
				last = em.Event
			}
		default:
			if last == nil {
				t.Fatalf("no ACTION_RESULT received")
			}
			return last
		}
	}
}

func resultCode(ev protocol.Event) string {
	code, _ := ev["code"].(string)
	return code
}

func resultOK(ev protocol.Event) bool {
	ok, _ := ev["ok"].(bool)
	return ok
}

func TestJoinAssignsDistinctPainters(t *testing.T) {
	g := newTestGrid(t, Config{})
	a, _ := joinWithOut(t, g, "alice", false)
	b, _ := joinWithOut(t, g, "bob", false)
	if a == b {
		t.Fatalf("painter ids collide: %s", a)
	}
	if g.painters[a] == nil || g.painters[b] == nil {
		t.Fatalf("painters not registered")
	}
}

func TestAttachResumesIdentity(t *testing.T) {
	g := newTestGrid(t, Config{})
	id, _ := joinWithOut(t, g, "alice", false)
	token := g.painters[id].ResumeToken

	out := make(chan []byte, 8)
	respCh := make(chan JoinResponse, 1)
	g.handleAttach(AttachRequest{ResumeToken: token, Out: out, Resp: respCh})
	resp := <-respCh
	if resp.Welcome.PainterID != id {
		t.Fatalf("resume painter=%q want %q", resp.Welcome.PainterID, id)
	}

	respCh = make(chan JoinResponse, 1)
	g.handleAttach(AttachRequest{ResumeToken: "bogus", Resp: respCh})
	resp = <-respCh
	if resp.Welcome.PainterID != "" {
		t.Fatalf("bogus token resumed painter %q", resp.Welcome.PainterID)
	}
}

func TestAdminJoinIsSingleton(t *testing.T) {
	g := newTestGrid(t, Config{AdminID: "root"})
	a, _ := joinWithOut(t, g, "op1", true)
	b, _ := joinWithOut(t, g, "op2", true)
	if a != "root" || b != "root" {
		t.Fatalf("admin ids = %q, %q; want root", a, b)
	}
	if !g.painters["root"].Admin {
		t.Fatalf("admin painter not flagged")
	}
}
