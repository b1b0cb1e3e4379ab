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

// Package gridmath reads one or more pixel-aligned grids tile by tile,
// applies user functions to each tile, and streams the results to
// per-function output grids, propagating no-data masks throughout.
//
// The first grid registered with an Engine sets the canonical
// metadata: extent, geotransform, projection, data type, no-data
// value, and tile size. Further grids must share the canonical
// extent. Functions are registered with AddFunc (applied to the
// flattened valid pixels of each tile) or AddWindowFunc (applied once
// per pixel over a spatial neighborhood window); Run then processes
// every tile in row-major order.
//
// Physical grid input and output is delegated to the raster.Driver
// implementations in the raster subdirectories.
package gridmath

import (
	"fmt"
	"math/rand"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/gridmath/raster"
)

// State is the phase of an Engine's run loop.
type State int

const (
	// Idle: sources and functions may be registered.
	Idle State = iota
	// Running: tiles are being processed.
	Running
	// Finalizing: output no-data values are being written.
	Finalizing
	// Done: the run has completed; the Engine may only be closed.
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Engine is the tiled computation driver. Create one with New, add
// any further sources and functions, then call Run.
type Engine struct {
	// Log receives progress and registration feedback.
	Log logrus.FieldLogger

	sources []raster.Dataset
	mask    raster.Dataset

	// canonical metadata, from the first source
	width, height int
	bands         int
	dtype         raster.DataType
	nodata        float64
	hasNoData     bool
	gt            raster.GeoTransform
	projection    string

	spatial bool // pass 3-D (rows, cols, bands) blocks to pointwise functions
	tiling  Tiling
	driver  raster.Driver

	funcs    []*FunctionSpec
	state    State
	position int
	rng      *rand.Rand
}

// Option configures an Engine at construction.
type Option func(*Engine) error

// Spatial makes pointwise functions receive full spatial
// (rows, cols, bands) blocks, masked pixels included, instead of the
// flattened valid pixels.
func Spatial() Option {
	return func(e *Engine) error {
		e.spatial = true
		return nil
	}
}

// MaskDataset sets an external mask grid: pixels where its first band
// is zero are treated as invalid. The mask must share the canonical
// extent.
func MaskDataset(ds raster.Dataset) Option {
	return func(e *Engine) error {
		if ds.Width() != e.width || ds.Height() != e.height {
			return &SizeMismatchError{
				Width: ds.Width(), Height: ds.Height(),
				CanonicalWidth: e.width, CanonicalHeight: e.height,
			}
		}
		e.mask = ds
		return nil
	}
}

// BlockSize sets the tile size used for reading and writing. The
// default is the canonical source's native block size.
func BlockSize(x, y BlockDim) Option {
	return func(e *Engine) error {
		return e.SetBlockSize(x, y)
	}
}

// OutputDriver sets the driver used to create output grids.
func OutputDriver(d raster.Driver) Option {
	return func(e *Engine) error {
		e.driver = d
		return nil
	}
}

// Logger replaces the default logger.
func Logger(l logrus.FieldLogger) Option {
	return func(e *Engine) error {
		e.Log = l
		return nil
	}
}

// RandomSeed seeds the tile sampler used by RandomTile and by
// registration probing, making them reproducible.
func RandomSeed(seed int64) Option {
	return func(e *Engine) error {
		e.rng = rand.New(rand.NewSource(seed))
		return nil
	}
}

// New creates an Engine with ds as the canonical source. The source
// stays open for the Engine's lifetime; Close releases it.
func New(ds raster.Dataset, opts ...Option) (*Engine, error) {
	e := &Engine{
		Log:        logrus.StandardLogger(),
		sources:    []raster.Dataset{ds},
		width:      ds.Width(),
		height:     ds.Height(),
		bands:      ds.Bands(),
		dtype:      ds.DataType(),
		gt:         ds.GeoTransform(),
		projection: ds.Projection(),
		rng:        rand.New(rand.NewSource(0)),
	}
	e.nodata, e.hasNoData = ds.NoData()
	bx, by := ds.BlockSize()
	e.tiling = planTiles(e.width, e.height, bx, by)
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Open opens a grid with the given driver and creates an Engine with
// it as the canonical source, also using the driver for outputs
// unless the OutputDriver option overrides it.
func Open(d raster.Driver, path string, opts ...Option) (*Engine, error) {
	ds, err := d.Open(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return New(ds, append([]Option{OutputDriver(d)}, opts...)...)
}

// AddSource registers a further input grid. Its extent must match the
// canonical extent; a mismatched source is skipped with a warning and
// a SizeMismatchError is returned, leaving the Engine usable.
func (e *Engine) AddSource(ds raster.Dataset) error {
	if ds.Width() != e.width || ds.Height() != e.height {
		err := &SizeMismatchError{
			Width: ds.Width(), Height: ds.Height(),
			CanonicalWidth: e.width, CanonicalHeight: e.height,
		}
		e.Log.Warnf("gridmath: skipping source: %v", err)
		return err
	}
	e.sources = append(e.sources, ds)
	return nil
}

// NSources returns the number of registered input grids.
func (e *Engine) NSources() int { return len(e.sources) }

// Extent returns the canonical width and height in pixels.
func (e *Engine) Extent() (width, height int) { return e.width, e.height }

// Bands returns the canonical source's band count.
func (e *Engine) Bands() int { return e.bands }

// DataType returns the canonical source's storage type.
func (e *Engine) DataType() raster.DataType { return e.dtype }

// NoData returns the canonical no-data value, if any.
func (e *Engine) NoData() (float64, bool) { return e.nodata, e.hasNoData }

// GeoTransform returns the canonical geotransform.
func (e *Engine) GeoTransform() raster.GeoTransform { return e.gt }

// Projection returns the canonical projection descriptor.
func (e *Engine) Projection() string { return e.projection }

// SR parses the canonical projection descriptor.
func (e *Engine) SR() (*proj.SR, error) {
	return raster.ParseSRS(e.projection)
}

// Bounds returns the georeferenced bounding box of the canonical
// extent.
func (e *Engine) Bounds() *geom.Bounds {
	return e.gt.Bounds(e.width, e.height)
}

// Tiling returns the current tile partition.
func (e *Engine) Tiling() Tiling { return e.tiling }

// State returns the current run-loop state.
func (e *Engine) State() State { return e.state }

// SetBlockSize re-plans the tiling with a new tile size. It may only
// be called before any function is registered, because output grids
// are created block-aligned to the tiling.
func (e *Engine) SetBlockSize(x, y BlockDim) error {
	if len(e.funcs) > 0 {
		return fmt.Errorf("gridmath: cannot change tile size after functions are registered")
	}
	bx, err := x.resolve(e.width)
	if err != nil {
		return err
	}
	by, err := y.resolve(e.height)
	if err != nil {
		return err
	}
	e.tiling = planTiles(e.width, e.height, bx, by)
	e.Log.Infof("gridmath: total number of tiles: %d", e.tiling.NTiles())
	return nil
}

// Close releases all source, mask, and output grids. Output grids
// created by a run that did not complete may be left partially
// written.
func (e *Engine) Close() error {
	var firstErr error
	capture := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, ds := range e.sources {
		capture(ds.Close())
	}
	if e.mask != nil {
		capture(e.mask.Close())
	}
	for _, f := range e.funcs {
		if f.out != nil {
			capture(f.out.Close())
		}
	}
	return firstErr
}

// readRegion reads one region from every source, returning one Block
// per source. spatial selects the (rows, cols, bands) shape; the
// validity flags are shared across sources and derive from the
// canonical source's first band and the external mask.
func (e *Engine) readRegion(t Tile, spatial bool) ([]*Block, error) {
	var maskVals []float64
	if e.mask != nil {
		var err error
		maskVals, err = e.mask.Read(0, t.Col, t.Row, t.Width, t.Height)
		if err != nil {
			return nil, fmt.Errorf("gridmath: reading mask tile %v: %w", t, err)
		}
	}
	blocks := make([]*Block, len(e.sources))
	var invalid []bool
	for i, src := range e.sources {
		arr, raw, err := readArray(src, t, spatial)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			invalid = e.computeInvalid(raw, maskVals)
		}
		blocks[i] = &Block{Values: arr, Invalid: invalid, Spatial: spatial}
	}
	return blocks, nil
}

// readArray reads all bands of one source over one region into a
// DenseArray, also returning the raw first-band values for mask
// derivation.
func readArray(src raster.Dataset, t Tile, spatial bool) (*sparse.DenseArray, []float64, error) {
	nb := src.Bands()
	npix := t.Width * t.Height
	var arr *sparse.DenseArray
	if spatial {
		arr = sparse.ZerosDense(t.Height, t.Width, nb)
	} else {
		arr = sparse.ZerosDense(npix, nb)
	}
	var band0 []float64
	for b := 0; b < nb; b++ {
		vals, err := src.Read(b, t.Col, t.Row, t.Width, t.Height)
		if err != nil {
			return nil, nil, fmt.Errorf("gridmath: reading band %d of tile %v: %w", b, t, err)
		}
		if b == 0 {
			band0 = vals
		}
		// Both shapes store pixels in row-major order with bands
		// interleaved last, so the element layout is the same.
		for pix, v := range vals {
			arr.Elements[pix*nb+b] = v
		}
	}
	return arr, band0, nil
}

// ReadTile reads tile i (in row-major order) from every source,
// expanded by offset pixels on each edge with boundary clamping.
// The returned blocks use the Engine's block mode.
func (e *Engine) ReadTile(i, offset int) ([]*Block, error) {
	t, err := e.tiling.Tile(i)
	if err != nil {
		return nil, err
	}
	region := expandWindow(t, offset, e.width, e.height).ReadRegion()
	return e.readRegion(region, e.spatial)
}

// RandomTile returns the blocks of a randomly chosen tile that is not
// fully masked, together with its index. When every tile is fully
// masked, the blocks of one fully-masked tile are returned.
func (e *Engine) RandomTile() ([]*Block, int, error) {
	perm := e.rng.Perm(e.tiling.NTiles())
	var fallback []*Block
	fallbackIdx := -1
	for _, i := range perm {
		t, err := e.tiling.Tile(i)
		if err != nil {
			return nil, 0, err
		}
		blocks, err := e.readRegion(t, e.spatial)
		if err != nil {
			return nil, 0, err
		}
		if !blocks[0].FullyMasked() {
			return blocks, i, nil
		}
		if fallback == nil {
			fallback, fallbackIdx = blocks, i
		}
	}
	return fallback, fallbackIdx, nil
}

// EachBlock calls fn for every tile that is not fully masked, in
// row-major order, with the tile and its blocks in the Engine's block
// mode. Iteration stops on the first error.
func (e *Engine) EachBlock(fn func(t Tile, blocks []*Block) error) error {
	for i := 0; i < e.tiling.NTiles(); i++ {
		t, err := e.tiling.Tile(i)
		if err != nil {
			return err
		}
		blocks, err := e.readRegion(t, e.spatial)
		if err != nil {
			return err
		}
		if blocks[0].FullyMasked() {
			continue
		}
		if err := fn(t, blocks); err != nil {
			return err
		}
	}
	return nil
}

// EachBand calls fn for every band of every source over the whole
// extent, with that band's values as a (height, width) array and the
// extent-wide validity flags.
func (e *Engine) EachBand(fn func(source, band int, values *sparse.DenseArray, invalid []bool) error) error {
	full := Tile{Col: 0, Row: 0, Width: e.width, Height: e.height}
	var maskVals []float64
	if e.mask != nil {
		var err error
		maskVals, err = e.mask.Read(0, 0, 0, e.width, e.height)
		if err != nil {
			return fmt.Errorf("gridmath: reading mask: %w", err)
		}
	}
	for i, src := range e.sources {
		for b := 0; b < src.Bands(); b++ {
			vals, err := src.Read(b, 0, 0, e.width, e.height)
			if err != nil {
				return fmt.Errorf("gridmath: reading band %d of source %d: %w", b, i, err)
			}
			invalid := e.computeInvalid(vals, maskVals)
			arr := sparse.ZerosDense(full.Height, full.Width)
			copy(arr.Elements, vals)
			if err := fn(i, b, arr, invalid); err != nil {
				return err
			}
		}
	}
	return nil
}
