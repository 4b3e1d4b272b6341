package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pixelgrid.io/internal/protocol"
	"pixelgrid.io/internal/sim/grid"
)

type Server struct {
	grid *grid.Grid
	log  *log.Logger

	// adminToken grants the registry admin identity. Empty disables it.
	adminToken string

	upgrader websocket.Upgrader
}

func NewServer(g *grid.Grid, adminToken string, logger *log.Logger) *Server {
	s := &Server{
		grid:       g,
		log:        logger,
		adminToken: adminToken,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		painterID, out := s.handshake(conn)
		if painterID == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			switch base.Type {
			case protocol.TypeAct:
				var act protocol.ActMsg
				if err := json.Unmarshal(msg, &act); err != nil {
					continue
				}
				if act.ProtocolVersion != protocol.Version {
					continue
				}
				s.grid.Inbox() <- grid.ActionEnvelope{PainterID: painterID, Act: act}
			case protocol.TypeEventBatchReq:
				var req protocol.EventBatchReqMsg
				if err := json.Unmarshal(msg, &req); err != nil {
					continue
				}
				if req.ProtocolVersion != protocol.Version {
					continue
				}
				go s.serveEventBatch(req, out)
			}
		}

		// Cleanup.
		s.grid.Leave() <- painterID
	}
}

// serveEventBatch answers a catch-up request off the reader goroutine so a
// slow journal read never delays ACT forwarding.
func (s *Server) serveEventBatch(req protocol.EventBatchReqMsg, out chan []byte) {
	respCh := make(chan grid.EventBatchResponse, 1)
	s.grid.EventsReq() <- grid.EventBatchRequest{
		SinceCursor: req.SinceCursor,
		Limit:       req.Limit,
		Resp:        respCh,
	}
	resp := <-respCh

	b, err := json.Marshal(protocol.EventBatchMsg{
		Type:            protocol.TypeEventBatch,
		ProtocolVersion: protocol.Version,
		ReqID:           req.ReqID,
		Events:          resp.Events,
		NextCursor:      resp.NextCursor,
	})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) (painterID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", nil
	}
	if hello.PainterName == "" {
		hello.PainterName = "painter"
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 16
	}
	if maxQ > 256 {
		maxQ = 256
	}
	out = make(chan []byte, maxQ)

	resumeToken := ""
	admin := false
	if hello.Auth != nil {
		resumeToken = strings.TrimSpace(hello.Auth.Token)
		admin = s.adminToken != "" && hello.Auth.AdminToken == s.adminToken
	}

	// Optional: resume an existing painter (reconnect).
	var resp grid.JoinResponse
	if resumeToken != "" {
		respCh := make(chan grid.JoinResponse, 1)
		s.grid.Attach() <- grid.AttachRequest{
			ResumeToken: resumeToken,
			Out:         out,
			Resp:        respCh,
		}
		resp = <-respCh
	}
	if resp.Welcome.PainterID == "" {
		// Fresh join.
		respCh := make(chan grid.JoinResponse, 1)
		s.grid.Join() <- grid.JoinRequest{
			Name:  hello.PainterName,
			Admin: admin,
			Out:   out,
			Resp:  respCh,
		}
		resp = <-respCh
	}
	resp.Welcome.SessionID = uuid.NewString()

	b, err := json.Marshal(resp.Welcome)
	if err != nil {
		return "", nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return "", nil
	}

	return resp.Welcome.PainterID, out
}
