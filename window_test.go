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

import (
	"testing"

	"github.com/ctessum/sparse"
)

func TestExpandWindowClamping(t *testing.T) {
	const W, H = 10, 8
	cases := []struct {
		tile   Tile
		offset int
		want   TileWindow
	}{
		// Interior: full symmetric expansion.
		{Tile{4, 4, 2, 2}, 2, TileWindow{Tile{4, 4, 2, 2}, 2, 2, 2, 2}},
		// Top-left corner pixel: left and top clamp to zero.
		{Tile{0, 0, 1, 1}, 2, TileWindow{Tile{0, 0, 1, 1}, 0, 2, 0, 2}},
		// Bottom-right corner: right and bottom clamp to zero.
		{Tile{9, 7, 1, 1}, 2, TileWindow{Tile{9, 7, 1, 1}, 2, 0, 2, 0}},
		// One pixel in from the left: left offset reduced to 1.
		{Tile{1, 4, 1, 1}, 2, TileWindow{Tile{1, 4, 1, 1}, 1, 2, 1, 2}},
		// Whole-extent tile: no expansion possible anywhere.
		{Tile{0, 0, W, H}, 3, TileWindow{Tile{0, 0, W, H}, 0, 0, 0, 0}},
	}
	for _, c := range cases {
		got := expandWindow(c.tile, c.offset, W, H)
		if got != c.want {
			t.Errorf("expandWindow(%v, %d) = %+v, want %+v",
				c.tile, c.offset, got, c.want)
		}
		r := got.ReadRegion()
		if r.Col < 0 || r.Row < 0 || r.Col+r.Width > W || r.Row+r.Height > H {
			t.Errorf("read region %v crosses the grid boundary", r)
		}
		if r.Width != got.Left+c.tile.Width+got.Right {
			t.Errorf("region width = %d, want left+width+right = %d",
				r.Width, got.Left+c.tile.Width+got.Right)
		}
	}
}

// TestPixelWindows checks that every pixel of a tile gets one window
// and that windows shrink at the grid edges.
func TestPixelWindows(t *testing.T) {
	e, _ := testEngine(t) // 4×4 grid
	tile, err := e.Tiling().Tile(0)
	if err != nil {
		t.Fatal(err)
	}
	const k = 2
	type visit struct {
		c, r int
		w, h int
	}
	var visits []visit
	err = e.pixelWindows(tile, k, func(c, r int, w TileWindow) error {
		region := w.ReadRegion()
		visits = append(visits, visit{c, r, region.Width, region.Height})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(visits) != tile.Width*tile.Height {
		t.Fatalf("%d visits for a %d-pixel tile", len(visits), tile.Width*tile.Height)
	}
	// Pixel (0,0): left and top fully clamped; right and bottom
	// limited by the 4-pixel extent.
	first := visits[0]
	if first.w != 0+1+2 || first.h != 0+1+2 {
		t.Errorf("window at (0,0) is %d×%d, want 3×3", first.w, first.h)
	}
	// Pixel (1,1): one pixel available on the left/top, two on the
	// right/bottom.
	var center visit
	for _, v := range visits {
		if v.c == 1 && v.r == 1 {
			center = v
		}
	}
	if center.w != 1+1+2 || center.h != 1+1+2 {
		t.Errorf("window at (1,1) is %d×%d, want 4×4", center.w, center.h)
	}
}

// TestWindowedRun applies a function returning its window's pixel
// count, verifying per-pixel clamped expansion across the whole grid.
func TestWindowedRun(t *testing.T) {
	e, d := testEngine(t)
	count := func(src []*sparse.DenseArray, _ Params) (*sparse.DenseArray, error) {
		out := sparse.ZerosDense(1)
		out.Elements[0] = float64(src[0].Shape[0] * src[0].Shape[1])
		return out, nil
	}
	if _, err := e.AddWindowFunc(count, "out", 1, Named("count"), OutNoData(-1)); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	out, err := d.Open("out")
	if err != nil {
		t.Fatal(err)
	}
	// With offset 1 on a 4×4 grid, corner windows hold 4 pixels, edge
	// windows 6, interior windows 9; masked source pixels are
	// overwritten with -1.
	want := []float64{
		-1, 6, 6, 4,
		6, 9, -1, 6,
		6, 9, 9, -1,
		4, 6, 6, 4,
	}
	got := readAll(t, out, 0)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pixel %d: got %g, want %g", i, got[i], want[i])
		}
	}
}
