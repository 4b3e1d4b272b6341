package grid

import "fmt"

// Metadata is the derived descriptive record for a claimed cell.
type Metadata struct {
	ID       int    `json:"id"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Owner    string `json:"owner"`
	R        uint8  `json:"r"`
	G        uint8  `json:"g"`
	B        uint8  `json:"b"`
	ColorHex string `json:"color_hex"`
}

// renderCell composes coordinates and color for a claimed cell. Coordinates
// alone are always derivable, but metadata is only meaningful once the cell
// has an owner and a color.
func (g *Grid) renderCell(id int) (Metadata, error) {
	x, y, err := ToCoords(id)
	if err != nil {
		return Metadata{}, err
	}
	cell := g.cellAt(id)
	if !cell.Claimed {
		return Metadata{}, ErrNotFound
	}
	c := cell.Color
	return Metadata{
		ID:       id,
		X:        x,
		Y:        y,
		Owner:    cell.Owner,
		R:        c.R,
		G:        c.G,
		B:        c.B,
		ColorHex: HexColor(c),
	}, nil
}

// HexColor renders a color as uppercase "#RRGGBB".
func HexColor(c RGB) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
