package grid

import (
	"fmt"

	"pixelgrid.io/internal/persistence/snapshot"
)

// ImportSnapshot restores registry state before the loop starts. Not safe
// once Run is serving traffic.
func (g *Grid) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != 1 {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if len(snap.Cells) != Cells {
		return fmt.Errorf("snapshot has %d cells, want %d", len(snap.Cells), Cells)
	}

	var claimed uint64
	for _, cv := range snap.Cells {
		if !validID(cv.ID) {
			return fmt.Errorf("snapshot cell id %d out of range", cv.ID)
		}
		if cv.Claimed == (cv.Owner == "") {
			return fmt.Errorf("snapshot cell %d: claimed/owner mismatch", cv.ID)
		}
		g.cells[cv.ID-1] = Cell{
			Claimed: cv.Claimed,
			Owner:   cv.Owner,
			Color:   RGB{R: cv.R, G: cv.G, B: cv.B},
		}
		if cv.Claimed {
			claimed++
		}
	}
	if snap.Counters.TotalClaimed != claimed {
		return fmt.Errorf("snapshot counter total_claimed=%d, table has %d", snap.Counters.TotalClaimed, claimed)
	}

	g.painters = map[string]*Painter{}
	g.byToken = map[string]*Painter{}
	for _, pv := range snap.Painters {
		p := &Painter{
			ID:          pv.ID,
			Name:        pv.Name,
			ResumeToken: pv.ResumeToken,
			Admin:       pv.Admin,
			JoinedTick:  pv.JoinedTick,
		}
		g.painters[p.ID] = p
		g.byToken[p.ResumeToken] = p
	}

	g.tick.Store(snap.Header.Tick)
	g.totalClaimed.Store(claimed)
	g.balance = snap.Counters.Balance
	g.nextCursor = snap.Counters.NextEventCursor
	g.nextPainterNum.Store(snap.Counters.NextPainterNum)
	return nil
}
