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
	"reflect"
	"testing"
)

// TestTilingPartition checks that for a range of tile sizes the tiles
// exactly cover the extent: every pixel once, no overlaps, and the
// pixel counts sum to width×height.
func TestTilingPartition(t *testing.T) {
	cases := []struct {
		width, height  int
		blockX, blockY int
	}{
		{4, 4, 2, 2},
		{4, 4, 4, 4},
		{5, 3, 2, 2},
		{7, 7, 3, 5},
		{1, 1, 1, 1},
		{10, 1, 3, 1},
		{256, 256, 100, 100},
		{3, 9, 7, 2}, // nominal size larger than one dimension
	}
	for _, c := range cases {
		tl := planTiles(c.width, c.height, c.blockX, c.blockY)
		covered := make([]int, c.width*c.height)
		sum := 0
		for i := 0; i < tl.NTiles(); i++ {
			tile, err := tl.Tile(i)
			if err != nil {
				t.Fatal(err)
			}
			sum += tile.Width * tile.Height
			for r := tile.Row; r < tile.Row+tile.Height; r++ {
				for col := tile.Col; col < tile.Col+tile.Width; col++ {
					if r < 0 || r >= c.height || col < 0 || col >= c.width {
						t.Fatalf("%+v: tile %v outside extent", c, tile)
					}
					covered[r*c.width+col]++
				}
			}
		}
		if sum != c.width*c.height {
			t.Errorf("%+v: tile areas sum to %d, want %d", c, sum, c.width*c.height)
		}
		for pix, n := range covered {
			if n != 1 {
				t.Errorf("%+v: pixel %d covered %d times", c, pix, n)
			}
		}
	}
}

func TestTilingRowMajorOrder(t *testing.T) {
	tl := planTiles(4, 4, 2, 2)
	want := []Tile{
		{0, 0, 2, 2},
		{2, 0, 2, 2},
		{0, 2, 2, 2},
		{2, 2, 2, 2},
	}
	for i, w := range want {
		tile, err := tl.Tile(i)
		if err != nil {
			t.Fatal(err)
		}
		if tile != w {
			t.Errorf("tile %d = %v, want %v", i, tile, w)
		}
	}
}

func TestTilingIdempotent(t *testing.T) {
	a := planTiles(100, 60, 33, 17)
	b := planTiles(100, 60, 33, 17)
	if !reflect.DeepEqual(a, b) {
		t.Error("re-planning the same parameters gave a different partition")
	}
	for i := 0; i < a.NTiles(); i++ {
		ta, _ := a.Tile(i)
		tb, _ := b.Tile(i)
		if ta != tb {
			t.Errorf("tile %d differs: %v vs %v", i, ta, tb)
		}
	}
}

func TestTilingEdgeTiles(t *testing.T) {
	tl := planTiles(5, 3, 2, 2)
	last, err := tl.Tile(tl.NTiles() - 1)
	if err != nil {
		t.Fatal(err)
	}
	if last.Width != 1 || last.Height != 1 {
		t.Errorf("last tile = %v, want 1×1 edge tile", last)
	}
}

func TestBlockDimResolve(t *testing.T) {
	cases := []struct {
		dim    BlockDim
		extent int
		want   int
		err    bool
	}{
		{Pixels(64), 100, 64, false},
		{WholeDim, 100, 100, false},
		{Frac(1.0 / 3.0), 100, 34, false}, // ceil
		{Frac(1), 100, 100, false},
		{Frac(1.5), 100, 0, true},
		{Pixels(0), 100, 0, true},
		{Pixels(-2), 100, 0, true},
	}
	for _, c := range cases {
		got, err := c.dim.resolve(c.extent)
		if c.err {
			if err == nil {
				t.Errorf("%+v: expected error", c)
			}
			continue
		}
		if err != nil {
			t.Errorf("%+v: %v", c, err)
			continue
		}
		if got != c.want {
			t.Errorf("%+v: got %d, want %d", c, got, c.want)
		}
	}
}

func TestTileIndexOutOfRange(t *testing.T) {
	tl := planTiles(4, 4, 2, 2)
	if _, err := tl.Tile(-1); err == nil {
		t.Error("negative index should fail")
	}
	if _, err := tl.Tile(tl.NTiles()); err == nil {
		t.Error("index past the end should fail")
	}
}
