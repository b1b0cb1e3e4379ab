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
	"fmt"
	"math"
)

// Tile is one rectangular partition unit of the shared grid extent.
// Col and Row are the pixel coordinates of its top-left corner.
type Tile struct {
	Col, Row      int
	Width, Height int
}

func (t Tile) String() string {
	return fmt.Sprintf("(%d,%d %d×%d)", t.Col, t.Row, t.Width, t.Height)
}

// BlockDim specifies one dimension of the tile size: a positive pixel
// count, the whole corresponding grid dimension, or a proportional
// fraction of it.
type BlockDim struct {
	n    int
	frac float64
}

// Pixels returns a BlockDim of n pixels.
func Pixels(n int) BlockDim { return BlockDim{n: n} }

// Frac returns a BlockDim that is fraction f in (0,1] of the grid
// dimension, rounded up.
func Frac(f float64) BlockDim { return BlockDim{frac: f} }

// WholeDim uses the full corresponding grid dimension.
var WholeDim = BlockDim{n: -1}

// resolve converts a BlockDim into a pixel count for a grid dimension
// of the given extent.
func (d BlockDim) resolve(extent int) (int, error) {
	switch {
	case d.frac != 0:
		if d.frac <= 0 || d.frac > 1 {
			return 0, fmt.Errorf("gridmath: tile size fraction %g outside (0,1]", d.frac)
		}
		return int(math.Ceil(float64(extent) * d.frac)), nil
	case d.n == -1:
		return extent, nil
	case d.n > 0:
		return d.n, nil
	default:
		return 0, fmt.Errorf("gridmath: invalid tile size %d", d.n)
	}
}

// Tiling is a deterministic row-major partition of a grid extent into
// tiles. It is a value type; re-planning with the same parameters
// yields an identical partition.
type Tiling struct {
	width, height  int // grid extent in pixels
	blockX, blockY int // nominal tile size in pixels
	nx, ny         int // tile counts per axis
}

func planTiles(width, height, blockX, blockY int) Tiling {
	if blockX > width {
		blockX = width
	}
	if blockY > height {
		blockY = height
	}
	return Tiling{
		width:  width,
		height: height,
		blockX: blockX,
		blockY: blockY,
		nx:     (width + blockX - 1) / blockX,
		ny:     (height + blockY - 1) / blockY,
	}
}

// NTiles returns the total number of tiles.
func (tl Tiling) NTiles() int { return tl.nx * tl.ny }

// NX returns the number of tile columns.
func (tl Tiling) NX() int { return tl.nx }

// NY returns the number of tile rows.
func (tl Tiling) NY() int { return tl.ny }

// BlockSize returns the nominal tile size in pixels.
func (tl Tiling) BlockSize() (x, y int) { return tl.blockX, tl.blockY }

// Tile returns tile i in row-major order. Edge tiles are smaller than
// the nominal size when the extent is not an exact multiple of it.
func (tl Tiling) Tile(i int) (Tile, error) {
	if i < 0 || i >= tl.NTiles() {
		return Tile{}, fmt.Errorf("gridmath: tile %d out of range: there are only %d tiles", i, tl.NTiles())
	}
	col := (i % tl.nx) * tl.blockX
	row := (i / tl.nx) * tl.blockY
	return Tile{
		Col:    col,
		Row:    row,
		Width:  min(tl.width-col, tl.blockX),
		Height: min(tl.height-row, tl.blockY),
	}, nil
}
