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

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Pointwise convenience transforms over the canonical (first) source.
// Each reduces the band values of every pixel to a single output
// band, so they are registered with AddFunc in flattened mode.

// BandMean returns a Func computing the mean across bands for each
// pixel.
func BandMean() Func {
	return bandReduce(func(bands []float64) float64 {
		return stat.Mean(bands, nil)
	})
}

// BandMin returns a Func computing the minimum across bands for each
// pixel.
func BandMin() Func {
	return bandReduce(floats.Min)
}

// BandMax returns a Func computing the maximum across bands for each
// pixel.
func BandMax() Func {
	return bandReduce(floats.Max)
}

func bandReduce(reduce func([]float64) float64) Func {
	return func(src []*sparse.DenseArray, _ Params) (*sparse.DenseArray, error) {
		if len(src) == 0 {
			return nil, fmt.Errorf("gridmath: no input array")
		}
		arr := src[0]
		if len(arr.Shape) != 2 {
			return nil, fmt.Errorf("gridmath: band reduction needs a flattened (pixels, bands) array, got shape %v", arr.Shape)
		}
		npix, nb := arr.Shape[0], arr.Shape[1]
		out := sparse.ZerosDense(npix, 1)
		for pix := 0; pix < npix; pix++ {
			out.Elements[pix] = reduce(arr.Elements[pix*nb : (pix+1)*nb])
		}
		return out, nil
	}
}
