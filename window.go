/*
Copyright © 2024 the gridmath authors.
This file is part of gridmath.

gridmath is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridmath is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridmath.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridmath

// TileWindow is a Tile plus per-edge expansion offsets. The offsets
// start at a nominal symmetric value and are clamped independently on
// each edge so the expanded region never crosses the grid boundary.
type TileWindow struct {
	Tile                     Tile
	Left, Right, Top, Bottom int
}

// ReadRegion returns the expanded region to read: the tile grown by
// the clamped per-edge offsets.
func (w TileWindow) ReadRegion() Tile {
	return Tile{
		Col:    w.Tile.Col - w.Left,
		Row:    w.Tile.Row - w.Top,
		Width:  w.Tile.Width + w.Left + w.Right,
		Height: w.Tile.Height + w.Top + w.Bottom,
	}
}

// expandWindow computes the clamped expansion of t by offset pixels on
// every edge of a grid with the given extent. The clamp is closed
// form: each edge offset is the smaller of the nominal offset and the
// distance from the tile to that grid edge.
func expandWindow(t Tile, offset, gridWidth, gridHeight int) TileWindow {
	return TileWindow{
		Tile:   t,
		Left:   min(offset, t.Col),
		Top:    min(offset, t.Row),
		Right:  min(offset, gridWidth-t.Col-t.Width),
		Bottom: min(offset, gridHeight-t.Row-t.Height),
	}
}

// pixelWindows calls visit once per pixel of tile t, in row-major
// order, passing the pixel's tile-local coordinates and the expanded
// 1×1 window around it. Each window is clamped independently, so
// windows at grid edges are smaller than (2·offset+1)².
func (e *Engine) pixelWindows(t Tile, offset int,
	visit func(localCol, localRow int, w TileWindow) error) error {
	for r := 0; r < t.Height; r++ {
		for c := 0; c < t.Width; c++ {
			px := Tile{Col: t.Col + c, Row: t.Row + r, Width: 1, Height: 1}
			w := expandWindow(px, offset, e.width, e.height)
			if err := visit(c, r, w); err != nil {
				return err
			}
		}
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
