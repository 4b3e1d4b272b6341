package grid

import "errors"

var (
	// ErrInvalidID indicates a cell id outside [1, Cells].
	ErrInvalidID = errors.New("cell id out of range")
	// ErrInvalidCoord indicates a coordinate outside the board.
	ErrInvalidCoord = errors.New("coordinate out of range")
	// ErrNotFound indicates an operation on an unclaimed cell.
	ErrNotFound = errors.New("cell not claimed")
)

// ToCoords maps a cell id to its (x, y) position. Ids are row-major,
// starting at 1 in the top-left corner.
func ToCoords(id int) (x, y int, err error) {
	if id < 1 || id > Cells {
		return 0, 0, ErrInvalidID
	}
	return (id - 1) % Width, (id - 1) / Width, nil
}

// ToID maps an (x, y) position to its cell id. Exact inverse of ToCoords
// over the valid domain.
func ToID(x, y int) (int, error) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return 0, ErrInvalidCoord
	}
	return y*Width + x + 1, nil
}
