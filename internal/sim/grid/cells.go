package grid

// RGB is one cell's color attribute.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// White is the color assigned to a cell at claim time.
var White = RGB{R: 255, G: 255, B: 255}

// Cell is one claimable board unit. Owner is set iff Claimed is true.
type Cell struct {
	Claimed bool
	Owner   string
	Color   RGB
}

// cellAt returns the loop-owned cell for a valid id.
func (g *Grid) cellAt(id int) *Cell {
	return &g.cells[id-1]
}

func validID(id int) bool {
	return id >= 1 && id <= Cells
}
