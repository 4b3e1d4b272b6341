package grid

import "testing"

func TestCoordsBijection(t *testing.T) {
	for id := 1; id <= Cells; id++ {
		x, y, err := ToCoords(id)
		if err != nil {
			t.Fatalf("ToCoords(%d): %v", id, err)
		}
		if x < 0 || x >= Width || y < 0 || y >= Height {
			t.Fatalf("ToCoords(%d) = (%d,%d) out of range", id, x, y)
		}
		back, err := ToID(x, y)
		if err != nil {
			t.Fatalf("ToID(%d,%d): %v", x, y, err)
		}
		if back != id {
			t.Fatalf("round trip %d -> (%d,%d) -> %d", id, x, y, back)
		}
	}

	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			id, err := ToID(x, y)
			if err != nil {
				t.Fatalf("ToID(%d,%d): %v", x, y, err)
			}
			bx, by, err := ToCoords(id)
			if err != nil {
				t.Fatalf("ToCoords(%d): %v", id, err)
			}
			if bx != x || by != y {
				t.Fatalf("round trip (%d,%d) -> %d -> (%d,%d)", x, y, id, bx, by)
			}
		}
	}
}

func TestCoordsCorners(t *testing.T) {
	cases := []struct {
		id   int
		x, y int
	}{
		{1, 0, 0},
		{16, 15, 0},
		{17, 0, 1},
		{241, 0, 15},
		{256, 15, 15},
	}
	for _, c := range cases {
		x, y, err := ToCoords(c.id)
		if err != nil {
			t.Fatalf("ToCoords(%d): %v", c.id, err)
		}
		if x != c.x || y != c.y {
			t.Fatalf("ToCoords(%d) = (%d,%d), want (%d,%d)", c.id, x, y, c.x, c.y)
		}
	}
}

func TestCoordsDomainErrors(t *testing.T) {
	for _, id := range []int{0, -1, 257, 1000} {
		if _, _, err := ToCoords(id); err != ErrInvalidID {
			t.Fatalf("ToCoords(%d) err = %v, want ErrInvalidID", id, err)
		}
	}
	for _, c := range [][2]int{{-1, 0}, {0, -1}, {16, 0}, {0, 16}} {
		if _, err := ToID(c[0], c[1]); err != ErrInvalidCoord {
			t.Fatalf("ToID(%d,%d) err = %v, want ErrInvalidCoord", c[0], c[1], err)
		}
	}
}
