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
	"github.com/ctessum/sparse"
)

// Block holds one source's pixels over one tile together with the
// per-pixel validity flags. Values and Invalid are carried as an
// explicit pair; masked values are never zeroed in the value buffer.
//
// In flattened mode Values has shape (pixels, bands); in spatial mode
// it has shape (rows, cols, bands). Invalid always has one entry per
// pixel, true meaning masked.
type Block struct {
	Values  *sparse.DenseArray
	Invalid []bool
	Spatial bool
}

// Pixels returns the number of pixels in the block.
func (b *Block) Pixels() int { return len(b.Invalid) }

// Bands returns the number of bands in the block.
func (b *Block) Bands() int {
	return b.Values.Shape[len(b.Values.Shape)-1]
}

// FullyMasked reports whether every pixel in the block is invalid.
func (b *Block) FullyMasked() bool {
	for _, inv := range b.Invalid {
		if !inv {
			return false
		}
	}
	return true
}

// NValid returns the number of valid pixels.
func (b *Block) NValid() int {
	n := 0
	for _, inv := range b.Invalid {
		if !inv {
			n++
		}
	}
	return n
}

// ValidValues returns a flattened (validPixels, bands) array holding
// only the rows of valid pixels, preserving pixel order. It is only
// meaningful for flattened blocks.
func (b *Block) ValidValues() *sparse.DenseArray {
	nb := b.Bands()
	out := sparse.ZerosDense(b.NValid(), nb)
	j := 0
	for pix, inv := range b.Invalid {
		if inv {
			continue
		}
		copy(out.Elements[j*nb:(j+1)*nb], b.Values.Elements[pix*nb:(pix+1)*nb])
		j++
	}
	return out
}

// ensureBands returns arr with a guaranteed trailing band dimension:
// a 1-dimensional array becomes (n, 1), and in spatial mode a
// (rows, cols) array becomes (rows, cols, 1).
func ensureBands(arr *sparse.DenseArray, spatial bool) *sparse.DenseArray {
	switch {
	case len(arr.Shape) == 1:
		return reshape(arr, []int{arr.Shape[0], 1})
	case spatial && len(arr.Shape) == 2:
		return reshape(arr, []int{arr.Shape[0], arr.Shape[1], 1})
	default:
		return arr
	}
}

// reshape returns a view of arr with a new shape holding the same
// number of elements.
func reshape(arr *sparse.DenseArray, shape []int) *sparse.DenseArray {
	out := sparse.ZerosDense(shape...)
	out.Elements = arr.Elements
	return out
}
