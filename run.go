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

	"github.com/ctessum/sparse"
)

// Run processes every tile in row-major order, applying each
// registered function and writing its result to the function's output
// grid, then finalizes the outputs. Tiles are processed strictly in
// sequence. Fatal errors abort the whole run; partially written
// outputs are not rolled back.
func (e *Engine) Run() error {
	if e.state != Idle {
		return fmt.Errorf("gridmath: cannot run while %v", e.state)
	}
	if len(e.funcs) == 0 {
		return fmt.Errorf("gridmath: no function registered")
	}
	e.state = Running
	n := e.tiling.NTiles()
	lastPct := -1
	for i := 0; i < n; i++ {
		t, err := e.tiling.Tile(i)
		if err != nil {
			return err
		}
		blocks, err := e.readRegion(t, e.spatial)
		if err != nil {
			return err
		}
		for _, spec := range e.funcs {
			res, err := e.applyFunc(spec, t, blocks)
			if err != nil {
				return err
			}
			if err := writeResult(spec, t, res); err != nil {
				return err
			}
		}
		e.position = i + 1
		if pct := e.position * 100 / n; pct > lastPct {
			lastPct = pct
			e.Log.Infof("gridmath: %3d%% (%d/%d tiles)", pct, e.position, n)
		}
	}

	e.state = Finalizing
	for _, spec := range e.funcs {
		if spec.HasNoData {
			if err := spec.out.SetNoData(spec.NoData); err != nil {
				return fmt.Errorf("gridmath: finalizing %s: %w", spec.Name, err)
			}
		}
		e.Log.Infof("gridmath: saved %s using %s", spec.outPath, spec.Name)
	}
	e.state = Done
	return nil
}

// Progress returns the monotonically increasing fraction of tiles
// processed, in [0, 1].
func (e *Engine) Progress() float64 {
	return float64(e.position) / float64(e.tiling.NTiles())
}

// applyFunc computes one function's result for one tile. The returned
// array holds tileWidth·tileHeight pixels in row-major order with
// OutBands values each, regardless of block mode or source count.
func (e *Engine) applyFunc(spec *FunctionSpec, t Tile, blocks []*Block) (*sparse.DenseArray, error) {
	npix := t.Width * t.Height
	if blocks[0].FullyMasked() {
		if !spec.HasNoData {
			return nil, &MissingNoDataError{Name: spec.Name, Tile: t}
		}
		res := sparse.ZerosDense(npix, spec.OutBands)
		for i := range res.Elements {
			res.Elements[i] = spec.NoData
		}
		return res, nil
	}

	var res *sparse.DenseArray
	var err error
	if spec.windowed {
		res, err = e.applyWindowed(spec, t, blocks[0].Invalid)
	} else {
		res, err = e.applyPointwise(spec, t, blocks)
	}
	if err != nil {
		return nil, err
	}
	if spec.HasNoData {
		for i, v := range res.Elements {
			if math.IsNaN(v) {
				res.Elements[i] = spec.NoData
			}
		}
	}
	return res, nil
}

// applyPointwise invokes a pointwise function on one tile. In
// flattened mode only valid pixels are passed in, and the masked rows
// are reinserted around the result; in spatial mode the full block is
// passed and masked pixels are overwritten afterwards.
func (e *Engine) applyPointwise(spec *FunctionSpec, t Tile, blocks []*Block) (*sparse.DenseArray, error) {
	invalid := blocks[0].Invalid
	args := make([]*sparse.DenseArray, len(blocks))
	for i, b := range blocks {
		if e.spatial {
			args[i] = b.Values
		} else {
			args[i] = b.ValidValues()
		}
	}
	res, err := spec.fn(args, spec.params)
	if err != nil {
		return nil, fmt.Errorf("gridmath: %s on tile %v: %w", spec.Name, t, err)
	}
	res = ensureBands(res, e.spatial)
	nb := res.Shape[len(res.Shape)-1]
	if nb > spec.OutBands {
		return nil, &BandOverflowError{Name: spec.Name, Got: nb, Max: spec.OutBands}
	}
	if nb < spec.OutBands {
		return nil, fmt.Errorf("gridmath: function %s output %d bands, expected %d",
			spec.Name, nb, spec.OutBands)
	}

	fill := 0.0
	if spec.HasNoData {
		fill = spec.NoData
	}
	npix := t.Width * t.Height
	if e.spatial {
		if len(res.Elements) != npix*nb {
			return nil, fmt.Errorf("gridmath: function %s output %d values for a %d-pixel tile",
				spec.Name, len(res.Elements), npix*nb)
		}
		for pix, inv := range invalid {
			if !inv {
				continue
			}
			for b := 0; b < nb; b++ {
				res.Elements[pix*nb+b] = fill
			}
		}
		return res, nil
	}

	nvalid := blocks[0].NValid()
	if res.Shape[0] != nvalid {
		return nil, fmt.Errorf("gridmath: function %s output %d rows for %d valid pixels",
			spec.Name, res.Shape[0], nvalid)
	}
	if nvalid == npix {
		return res, nil
	}
	out := sparse.ZerosDense(npix, nb)
	j := 0
	for pix, inv := range invalid {
		if inv {
			for b := 0; b < nb; b++ {
				out.Elements[pix*nb+b] = fill
			}
			continue
		}
		copy(out.Elements[pix*nb:(pix+1)*nb], res.Elements[j*nb:(j+1)*nb])
		j++
	}
	return out, nil
}

// applyWindowed invokes a window function once per pixel of the tile.
// Masked pixels flow through the windows unchanged; their outputs are
// overwritten afterwards.
func (e *Engine) applyWindowed(spec *FunctionSpec, t Tile, invalid []bool) (*sparse.DenseArray, error) {
	nb := spec.OutBands
	out := sparse.ZerosDense(t.Height, t.Width, nb)
	err := e.pixelWindows(t, spec.offset, func(c, r int, w TileWindow) error {
		blocks, err := e.readRegion(w.ReadRegion(), true)
		if err != nil {
			return err
		}
		args := make([]*sparse.DenseArray, len(blocks))
		for i, b := range blocks {
			args[i] = b.Values
		}
		res, err := spec.fn(args, spec.params)
		if err != nil {
			return fmt.Errorf("gridmath: %s at pixel (%d,%d): %w",
				spec.Name, t.Col+c, t.Row+r, err)
		}
		got := res.Shape[len(res.Shape)-1]
		if got > nb {
			return &BandOverflowError{Name: spec.Name, Got: got, Max: nb}
		}
		if got != nb || len(res.Elements) != nb {
			return fmt.Errorf("gridmath: window function %s must return one %d-band pixel, got shape %v",
				spec.Name, nb, res.Shape)
		}
		copy(out.Elements[(r*t.Width+c)*nb:(r*t.Width+c+1)*nb], res.Elements)
		return nil
	})
	if err != nil {
		return nil, err
	}

	fill := 0.0
	if spec.HasNoData {
		fill = spec.NoData
	}
	for pix, inv := range invalid {
		if !inv {
			continue
		}
		for b := 0; b < nb; b++ {
			out.Elements[pix*nb+b] = fill
		}
	}
	return out, nil
}

// writeResult writes one function's tile result band by band. res
// holds tileWidth·tileHeight pixels in row-major order with bands
// interleaved last.
func writeResult(spec *FunctionSpec, t Tile, res *sparse.DenseArray) error {
	npix := t.Width * t.Height
	nb := spec.OutBands
	buf := make([]float64, npix)
	for b := 0; b < nb; b++ {
		for pix := 0; pix < npix; pix++ {
			buf[pix] = res.Elements[pix*nb+b]
		}
		if err := spec.out.Write(b, t.Col, t.Row, t.Width, t.Height, buf); err != nil {
			return fmt.Errorf("gridmath: writing %s band %d tile %v: %w",
				spec.Name, b, t, err)
		}
	}
	return nil
}
