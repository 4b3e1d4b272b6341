package grid

import (
	"sort"

	"pixelgrid.io/internal/persistence/snapshot"
)

// ExportSnapshot captures the full registry state. Loop goroutine only.
func (g *Grid) ExportSnapshot() snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			GridID:  g.cfg.ID,
			Tick:    g.tick.Load(),
		},
		TickRateHz:         g.cfg.TickRateHz,
		SnapshotEveryTicks: g.cfg.SnapshotEveryTicks,
		FeeRequired:        g.cfg.FeeRequired,
		MinClaimFee:        g.cfg.MinClaimFee,
		AdminID:            g.cfg.AdminID,
		Counters: snapshot.CountersV1{
			TotalClaimed:    g.totalClaimed.Load(),
			Balance:         g.balance,
			NextEventCursor: g.nextCursor,
			NextPainterNum:  g.nextPainterNum.Load(),
		},
	}

	snap.Cells = make([]snapshot.CellV1, Cells)
	for i := range g.cells {
		c := g.cells[i]
		snap.Cells[i] = snapshot.CellV1{
			ID:      i + 1,
			Claimed: c.Claimed,
			Owner:   c.Owner,
			R:       c.Color.R,
			G:       c.Color.G,
			B:       c.Color.B,
		}
	}

	snap.Painters = make([]snapshot.PainterV1, 0, len(g.painters))
	for _, p := range g.painters {
		snap.Painters = append(snap.Painters, snapshot.PainterV1{
			ID:          p.ID,
			Name:        p.Name,
			ResumeToken: p.ResumeToken,
			Admin:       p.Admin,
			JoinedTick:  p.JoinedTick,
		})
	}
	sort.Slice(snap.Painters, func(i, j int) bool { return snap.Painters[i].ID < snap.Painters[j].ID })

	return snap
}
