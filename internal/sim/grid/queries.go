package grid

import "pixelgrid.io/internal/persistence/snapshot"

// Read API. Each call runs on the loop goroutine via the query channel, so
// callers see a consistent snapshot of the registry without locking. The
// loop must be running (Run) for these to return.

// IsClaimed reports whether the cell has been claimed.
func (g *Grid) IsClaimed(id int) (bool, error) {
	if !validID(id) {
		return false, ErrInvalidID
	}
	resp := make(chan bool, 1)
	g.queries <- func() { resp <- g.cellAt(id).Claimed }
	return <-resp, nil
}

// GetColor returns the color of a claimed cell.
func (g *Grid) GetColor(id int) (RGB, error) {
	if !validID(id) {
		return RGB{}, ErrInvalidID
	}
	type result struct {
		c  RGB
		ok bool
	}
	resp := make(chan result, 1)
	g.queries <- func() {
		cell := g.cellAt(id)
		resp <- result{c: cell.Color, ok: cell.Claimed}
	}
	r := <-resp
	if !r.ok {
		return RGB{}, ErrNotFound
	}
	return r.c, nil
}

// ListClaimed returns the claimed cell ids in ascending order. The list is
// recomputed per call against the state at the moment the query runs.
func (g *Grid) ListClaimed() []int {
	resp := make(chan []int, 1)
	g.queries <- func() {
		ids := make([]int, 0, g.totalClaimed.Load())
		for i := range g.cells {
			if g.cells[i].Claimed {
				ids = append(ids, i+1)
			}
		}
		resp <- ids
	}
	return <-resp
}

// Render returns the metadata record for a claimed cell.
func (g *Grid) Render(id int) (Metadata, error) {
	if !validID(id) {
		return Metadata{}, ErrInvalidID
	}
	type result struct {
		m   Metadata
		err error
	}
	resp := make(chan result, 1)
	g.queries <- func() {
		m, err := g.renderCell(id)
		resp <- result{m: m, err: err}
	}
	r := <-resp
	return r.m, r.err
}

// RenderAll returns metadata for every claimed cell, ascending by id.
func (g *Grid) RenderAll() []Metadata {
	resp := make(chan []Metadata, 1)
	g.queries <- func() {
		out := make([]Metadata, 0, g.totalClaimed.Load())
		for i := range g.cells {
			if !g.cells[i].Claimed {
				continue
			}
			if m, err := g.renderCell(i + 1); err == nil {
				out = append(out, m)
			}
		}
		resp <- out
	}
	return <-resp
}

// SnapshotNow exports the current state from the loop goroutine, for
// shutdown-time persistence.
func (g *Grid) SnapshotNow() snapshot.SnapshotV1 {
	resp := make(chan snapshot.SnapshotV1, 1)
	g.queries <- func() { resp <- g.ExportSnapshot() }
	return <-resp
}
