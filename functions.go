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

	"github.com/spatialmodel/gridmath/raster"
)

// Params holds the keyword parameters passed to a function on every
// invocation.
type Params map[string]interface{}

// Func is a user transform. src holds one array per registered
// source: for pointwise functions the flattened (validPixels, bands)
// values, or the full (rows, cols, bands) tile in spatial mode; for
// window functions the (windowRows, windowCols, bands) neighborhood
// of one pixel. The returned array's trailing dimension is
// interpreted as output bands.
type Func func(src []*sparse.DenseArray, p Params) (*sparse.DenseArray, error)

// FunctionSpec is one registered transform together with its
// committed output parameters. It is created by AddFunc or
// AddWindowFunc and immutable afterwards.
type FunctionSpec struct {
	Name string

	fn       Func
	params   Params
	windowed bool
	offset   int

	// committed output parameters
	OutBands    int
	OutDataType raster.DataType
	NoData      float64
	HasNoData   bool

	compression raster.Compression
	extraOpts   []string
	outPath     string
	out         raster.Dataset
}

// Windowed reports whether the function runs once per pixel over a
// neighborhood window.
func (s *FunctionSpec) Windowed() bool { return s.windowed }

// Offset returns the nominal neighborhood offset (windowed functions
// only).
func (s *FunctionSpec) Offset() int { return s.offset }

// Output returns the function's destination grid.
func (s *FunctionSpec) Output() raster.Dataset { return s.out }

// FuncOption configures one function registration.
type FuncOption func(*FunctionSpec)

// Named sets the name used in logs and errors.
func Named(name string) FuncOption {
	return func(s *FunctionSpec) { s.Name = name }
}

// OutBands declares the output band count instead of inferring it
// from the probe result.
func OutBands(n int) FuncOption {
	return func(s *FunctionSpec) { s.OutBands = n }
}

// OutDataType declares the output storage type instead of the default
// Float64.
func OutDataType(dt raster.DataType) FuncOption {
	return func(s *FunctionSpec) { s.OutDataType = dt }
}

// OutNoData forces an output no-data value. Values below the minimum
// representable by the output type are raised to that minimum.
func OutNoData(v float64) FuncOption {
	return func(s *FunctionSpec) {
		s.NoData = v
		s.HasNoData = true
	}
}

// Compress selects the output compression profile.
func Compress(c raster.Compression) FuncOption {
	return func(s *FunctionSpec) { s.compression = c }
}

// ExtraCreateOptions appends driver-specific creation parameters in
// KEY=VALUE form to the output grid.
func ExtraCreateOptions(opts ...string) FuncOption {
	return func(s *FunctionSpec) { s.extraOpts = append(s.extraOpts, opts...) }
}

// WithParams sets the keyword parameters passed to the function.
func WithParams(p Params) FuncOption {
	return func(s *FunctionSpec) { s.params = p }
}

// Funcs returns the registered function specs in registration order.
func (e *Engine) Funcs() []*FunctionSpec { return e.funcs }

// AddFunc registers a pointwise transform writing to outPath. The
// function is immediately probed on a small sample block; probe
// failures return a RegistrationError and leave no partial state.
func (e *Engine) AddFunc(fn Func, outPath string, opts ...FuncOption) (*FunctionSpec, error) {
	return e.addFunc(fn, outPath, false, 0, opts)
}

// AddWindowFunc registers a transform evaluated once per pixel on a
// spatial neighborhood window extending offset pixels from the pixel
// on each side, clamped at grid edges.
func (e *Engine) AddWindowFunc(fn Func, outPath string, offset int, opts ...FuncOption) (*FunctionSpec, error) {
	if offset < 0 {
		return nil, fmt.Errorf("gridmath: negative window offset %d", offset)
	}
	return e.addFunc(fn, outPath, true, offset, opts)
}

func (e *Engine) addFunc(fn Func, outPath string, windowed bool, offset int, opts []FuncOption) (*FunctionSpec, error) {
	if e.state != Idle {
		return nil, fmt.Errorf("gridmath: cannot register functions while %v", e.state)
	}
	if fn == nil {
		return nil, fmt.Errorf("gridmath: nil function")
	}
	if e.driver == nil {
		return nil, fmt.Errorf("gridmath: no output driver configured")
	}
	spec := &FunctionSpec{
		Name:     fmt.Sprintf("function %d", len(e.funcs)+1),
		fn:       fn,
		windowed: windowed,
		offset:   offset,
		outPath:  outPath,
	}
	for _, opt := range opts {
		opt(spec)
	}

	probe, err := e.probeBlock(windowed, offset)
	if err != nil {
		return nil, &RegistrationError{Name: spec.Name, Err: err}
	}
	res, err := fn(probe, spec.params)
	if err != nil {
		return nil, &RegistrationError{Name: spec.Name, Err: err}
	}
	if res == nil || len(res.Shape) == 0 {
		return nil, &RegistrationError{Name: spec.Name,
			Err: fmt.Errorf("probe returned no array")}
	}
	res = ensureBands(res, windowed || e.spatial)
	if spec.OutBands == 0 {
		spec.OutBands = res.Shape[len(res.Shape)-1]
		e.Log.Infof("gridmath: detected %d band(s) for %s", spec.OutBands, spec.Name)
	}
	if spec.OutBands <= 0 {
		return nil, &RegistrationError{Name: spec.Name,
			Err: fmt.Errorf("invalid output band count %d", spec.OutBands)}
	}
	if spec.OutDataType == raster.Unknown {
		spec.OutDataType = raster.Float64
	}

	e.inferNoData(spec)

	bx, by := e.tiling.BlockSize()
	out, err := e.driver.Create(outPath, e.width, e.height, spec.OutBands,
		spec.OutDataType, e.gt, e.projection, &raster.CreateOptions{
			BlockXSize:  bx,
			BlockYSize:  by,
			Compression: spec.compression,
			Extra:       spec.extraOpts,
		})
	if err != nil {
		return nil, &OpenError{Path: outPath, Err: err}
	}
	spec.out = out
	e.funcs = append(e.funcs, spec)
	return spec, nil
}

// inferNoData commits the output no-data value: when the caller
// forces one, or the canonical source has a no-data value, or an
// external mask is present, the value is the minimum representable by
// the output type unless a valid override was given.
func (e *Engine) inferNoData(spec *FunctionSpec) {
	if !spec.HasNoData && !e.hasNoData && e.mask == nil {
		return
	}
	min := spec.OutDataType.Min()
	if !spec.HasNoData || spec.NoData < min {
		spec.NoData = min
	}
	spec.HasNoData = true
	e.Log.Infof("gridmath: no-data for %s is set to %g", spec.Name, spec.NoData)
}

// probeBlock builds the ≤3×3 sample passed to a function at
// registration: a spatial window sample for windowed functions,
// otherwise a sample in the Engine's block mode, drawn from a random
// tile that is not fully masked.
func (e *Engine) probeBlock(windowed bool, offset int) ([]*sparse.DenseArray, error) {
	if windowed {
		blocks, err := e.randomSpatial(offset)
		if err != nil {
			return nil, err
		}
		return clipSpatial(blocks), nil
	}
	blocks, _, err := e.RandomTile()
	if err != nil {
		return nil, err
	}
	if e.spatial {
		return clipSpatial(blocks), nil
	}
	out := make([]*sparse.DenseArray, len(blocks))
	for i, b := range blocks {
		valid := b.ValidValues()
		n := min(valid.Shape[0], 9)
		clip := sparse.ZerosDense(n, valid.Shape[1])
		copy(clip.Elements, valid.Elements[:n*valid.Shape[1]])
		out[i] = clip
	}
	return out, nil
}

// randomSpatial reads a random not-fully-masked tile in spatial mode
// expanded by the window offset, for probing window functions.
func (e *Engine) randomSpatial(offset int) ([]*Block, error) {
	perm := e.rng.Perm(e.tiling.NTiles())
	var fallback []*Block
	for _, i := range perm {
		t, err := e.tiling.Tile(i)
		if err != nil {
			return nil, err
		}
		region := expandWindow(t, offset, e.width, e.height).ReadRegion()
		blocks, err := e.readRegion(region, true)
		if err != nil {
			return nil, err
		}
		if !blocks[0].FullyMasked() {
			return blocks, nil
		}
		if fallback == nil {
			fallback = blocks
		}
	}
	return fallback, nil
}

// clipSpatial clips spatial blocks to at most 3×3 pixels, keeping all
// bands.
func clipSpatial(blocks []*Block) []*sparse.DenseArray {
	out := make([]*sparse.DenseArray, len(blocks))
	for i, b := range blocks {
		rows := min(b.Values.Shape[0], 3)
		cols := min(b.Values.Shape[1], 3)
		nb := b.Values.Shape[2]
		clip := sparse.ZerosDense(rows, cols, nb)
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				for bb := 0; bb < nb; bb++ {
					clip.Set(b.Values.Get(r, c, bb), r, c, bb)
				}
			}
		}
		out[i] = clip
	}
	return out
}
