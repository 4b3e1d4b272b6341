package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"pixelgrid.io/internal/protocol"
	"pixelgrid.io/internal/sim/grid"
)

// A demo painter: claims random free cells and repaints them with random
// quantized colors.
func main() {
	var (
		url  = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name = flag.String("name", "bot", "painter name")
		want = flag.Int("cells", 4, "number of cells to claim")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PainterName:     *name,
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 16},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	var painterID string
	var minFee int
	owned := map[int]bool{}
	reqNum := 0

	claimRandom := func() {
		reqNum++
		id := rand.Intn(grid.Cells) + 1
		act := protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			PainterID:       painterID,
			Instants: []protocol.InstantReq{
				{ID: fmt.Sprintf("claim_%d", reqNum), Type: protocol.InstantClaim, Cell: id, Payment: minFee},
			},
		}
		_ = conn.WriteJSON(act)
	}

	paintRandom := func(cell int) {
		reqNum++
		act := protocol.ActMsg{
			Type:            protocol.TypeAct,
			ProtocolVersion: protocol.Version,
			PainterID:       painterID,
			Instants: []protocol.InstantReq{
				{
					ID:    fmt.Sprintf("paint_%d", reqNum),
					Type:  protocol.InstantSetColorSteps,
					Cell:  cell,
					Steps: [3]int{rand.Intn(16), rand.Intn(16), rand.Intn(16)},
				},
			},
		}
		_ = conn.WriteJSON(act)
	}

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			painterID = w.PainterID
			minFee = w.GridParams.MinClaimFee
			logger.Printf("WELCOME painter_id=%s claimed=%d/%d", w.PainterID, w.GridParams.TotalClaimed, w.GridParams.Cells)
			claimRandom()

		case protocol.TypeEvent:
			var em protocol.EventMsg
			if err := json.Unmarshal(msg, &em); err != nil {
				continue
			}
			typ, _ := em.Event["type"].(string)
			switch typ {
			case "ACTION_RESULT":
				ok, _ := em.Event["ok"].(bool)
				ref, _ := em.Event["ref"].(string)
				code, _ := em.Event["code"].(string)
				if !ok && code == protocol.ErrAlreadyClaimed {
					claimRandom()
					continue
				}
				if !ok {
					logger.Printf("rejected ref=%s code=%s", ref, code)
				}
			case "CELL_CLAIMED":
				caller, _ := em.Event["caller"].(string)
				cell := intField(em.Event, "cell")
				if caller == painterID && cell > 0 {
					owned[cell] = true
					logger.Printf("claimed cell=%d (%d/%d)", cell, len(owned), *want)
					paintRandom(cell)
					if len(owned) < *want {
						claimRandom()
					}
				}
			}
		}
	}
}

// intField reads a numeric event field decoded by encoding/json as float64.
func intField(ev protocol.Event, key string) int {
	if f, ok := ev[key].(float64); ok {
		return int(f)
	}
	return 0
}
