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

// Package cdfgrid stores grids in NetCDF classic files. The layout is
// one "values" variable with dimensions (band, y, x) plus global
// attributes carrying the georeferencing metadata, so windowed reads
// and writes map directly onto NetCDF hyperslabs.
package cdfgrid

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ctessum/cdf"

	"github.com/spatialmodel/gridmath/raster"
)

const valuesVar = "values"

// The no-data value is mutable after creation (the engine sets it when
// a run finalizes), so it lives in a two-element variable
// (flag, value) rather than in the fixed header attributes.
const noDataVar = "no_data"

// Driver reads and writes NetCDF grid files.
type Driver struct{}

var _ raster.Driver = Driver{}

// Open opens an existing NetCDF grid read-write.
func (Driver) Open(path string) (raster.Dataset, error) {
	ff, err := os.OpenFile(path, os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, fmt.Errorf("cdfgrid: opening %s: %w", path, err)
	}
	f, err := cdf.Open(ff)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("cdfgrid: reading NetCDF header of %s: %w", path, err)
	}
	dims := f.Header.Lengths(valuesVar)
	if len(dims) != 3 {
		ff.Close()
		return nil, fmt.Errorf("cdfgrid: %s: variable %q must have dimensions (band, y, x), got %d dimensions",
			path, valuesVar, len(dims))
	}
	g := &Dataset{
		file:   ff,
		f:      f,
		bands:  dims[0],
		height: dims[1],
		width:  dims[2],
	}
	if err := g.readMeta(); err != nil {
		ff.Close()
		return nil, fmt.Errorf("cdfgrid: %s: %w", path, err)
	}
	return g, nil
}

// Create creates a new NetCDF grid filled with zeros.
func (Driver) Create(path string, width, height, bands int, dt raster.DataType,
	gt raster.GeoTransform, projection string, opts *raster.CreateOptions) (raster.Dataset, error) {
	if dt == raster.Unknown {
		return nil, fmt.Errorf("cdfgrid: cannot create %s with unknown data type", path)
	}
	blockX, blockY := width, 1
	if opts != nil {
		if opts.BlockXSize > 0 {
			blockX = opts.BlockXSize
		}
		if opts.BlockYSize > 0 {
			blockY = opts.BlockYSize
		}
	}

	h := cdf.NewHeader([]string{"band", "y", "x", "nd"}, []int{bands, height, width, 2})
	h.AddVariable(valuesVar, []string{"band", "y", "x"}, prototype(dt))
	h.AddAttribute(valuesVar, "data_type", dt.String())
	h.AddVariable(noDataVar, []string{"nd"}, []float64{0})
	h.AddAttribute("", "geo_transform", gt[:])
	h.AddAttribute("", "projection", projection)
	h.AddAttribute("", "block_size", []int32{int32(blockX), int32(blockY)})
	h.Define()
	for _, err := range h.Check() {
		return nil, fmt.Errorf("cdfgrid: defining NetCDF header for %s: %v", path, err)
	}

	ff, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("cdfgrid: creating %s: %w", path, err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("cdfgrid: writing NetCDF header of %s: %w", path, err)
	}
	g := &Dataset{
		file:       ff,
		f:          f,
		width:      width,
		height:     height,
		bands:      bands,
		dtype:      dt,
		gt:         gt,
		projection: projection,
		blockX:     blockX,
		blockY:     blockY,
	}
	if err := g.zeroFill(); err != nil {
		ff.Close()
		return nil, fmt.Errorf("cdfgrid: initializing %s: %w", path, err)
	}
	return g, nil
}

// prototype returns the NetCDF storage slice for a data type. The
// classic format has no unsigned types, so unsigned grids are widened.
func prototype(dt raster.DataType) interface{} {
	switch dt {
	case raster.Int16:
		return []int16{0}
	case raster.Byte, raster.UInt16, raster.Int32:
		return []int32{0}
	case raster.Float32:
		return []float32{0}
	default: // UInt32, Float64
		return []float64{0}
	}
}

// Dataset is one open NetCDF grid.
type Dataset struct {
	file       *os.File
	f          *cdf.File
	width      int
	height     int
	bands      int
	dtype      raster.DataType
	gt         raster.GeoTransform
	projection string
	blockX     int
	blockY     int
	nodata     float64
	hasNoData  bool
}

var _ raster.Dataset = (*Dataset)(nil)

func (g *Dataset) readMeta() error {
	dts, _ := g.f.Header.GetAttribute(valuesVar, "data_type").(string)
	g.dtype = dataTypeFromString(dts)
	if g.dtype == raster.Unknown {
		return fmt.Errorf("unrecognized data_type attribute %q", dts)
	}
	gt, ok := g.f.Header.GetAttribute("", "geo_transform").([]float64)
	if !ok || len(gt) != 6 {
		return fmt.Errorf("missing or malformed geo_transform attribute")
	}
	copy(g.gt[:], gt)
	g.projection, _ = g.f.Header.GetAttribute("", "projection").(string)
	bs, ok := g.f.Header.GetAttribute("", "block_size").([]int32)
	if ok && len(bs) == 2 {
		g.blockX, g.blockY = int(bs[0]), int(bs[1])
	} else {
		g.blockX, g.blockY = g.width, 1
	}

	r := g.f.Reader(noDataVar, []int{0}, []int{2})
	buf := r.Zero(2)
	if _, err := r.Read(buf); err != nil {
		return fmt.Errorf("reading no-data variable: %w", err)
	}
	nd := buf.([]float64)
	if nd[0] != 0 {
		g.hasNoData = true
		g.nodata = nd[1]
	}
	return nil
}

func dataTypeFromString(s string) raster.DataType {
	for _, dt := range []raster.DataType{raster.Byte, raster.Int16, raster.UInt16,
		raster.Int32, raster.UInt32, raster.Float32, raster.Float64} {
		if strings.EqualFold(s, dt.String()) {
			return dt
		}
	}
	return raster.Unknown
}

// zeroFill writes zeros to every variable so that reads of unwritten
// regions are well defined.
func (g *Dataset) zeroFill() error {
	for b := 0; b < g.bands; b++ {
		zero := make([]float64, g.width)
		for row := 0; row < g.height; row++ {
			if err := g.Write(b, 0, row, g.width, 1, zero); err != nil {
				return err
			}
		}
	}
	w := g.f.Writer(noDataVar, []int{0}, []int{2})
	if _, err := w.Write([]float64{0, 0}); err != nil {
		return fmt.Errorf("initializing no-data variable: %w", err)
	}
	return nil
}

func (g *Dataset) Width() int                        { return g.width }
func (g *Dataset) Height() int                       { return g.height }
func (g *Dataset) Bands() int                        { return g.bands }
func (g *Dataset) DataType() raster.DataType         { return g.dtype }
func (g *Dataset) GeoTransform() raster.GeoTransform { return g.gt }
func (g *Dataset) Projection() string                { return g.projection }
func (g *Dataset) BlockSize() (int, int)             { return g.blockX, g.blockY }
func (g *Dataset) NoData() (float64, bool)           { return g.nodata, g.hasNoData }

func (g *Dataset) checkWindow(band, col, row, width, height int) error {
	if band < 0 || band >= g.bands {
		return fmt.Errorf("cdfgrid: band %d out of range [0,%d)", band, g.bands)
	}
	if col < 0 || row < 0 || width <= 0 || height <= 0 ||
		col+width > g.width || row+height > g.height {
		return fmt.Errorf("cdfgrid: window (%d,%d,%d,%d) outside grid %d×%d",
			col, row, width, height, g.width, g.height)
	}
	return nil
}

// Read reads a hyperslab of one band, converting to float64.
func (g *Dataset) Read(band, col, row, width, height int) ([]float64, error) {
	if err := g.checkWindow(band, col, row, width, height); err != nil {
		return nil, err
	}
	r := g.f.Reader(valuesVar,
		[]int{band, row, col},
		[]int{band + 1, row + height, col + width})
	buf := r.Zero(width * height)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("cdfgrid: reading band %d window (%d,%d,%d,%d): %w",
			band, col, row, width, height, err)
	}
	out := make([]float64, width*height)
	switch v := buf.(type) {
	case []int16:
		for i, x := range v {
			out[i] = float64(x)
		}
	case []int32:
		for i, x := range v {
			out[i] = float64(x)
		}
	case []float32:
		for i, x := range v {
			out[i] = float64(x)
		}
	case []float64:
		copy(out, v)
	default:
		return nil, fmt.Errorf("cdfgrid: unexpected NetCDF buffer type %T", buf)
	}
	return out, nil
}

// Write writes a hyperslab of one band, converting from float64 to the
// storage type.
func (g *Dataset) Write(band, col, row, width, height int, data []float64) error {
	if err := g.checkWindow(band, col, row, width, height); err != nil {
		return err
	}
	if len(data) != width*height {
		return fmt.Errorf("cdfgrid: write of %d values to %d-pixel window",
			len(data), width*height)
	}
	w := g.f.Writer(valuesVar,
		[]int{band, row, col},
		[]int{band + 1, row + height, col + width})
	var buf interface{}
	switch prototype(g.dtype).(type) {
	case []int16:
		v := make([]int16, len(data))
		for i, x := range data {
			v[i] = int16(g.dtype.Clamp(x))
		}
		buf = v
	case []int32:
		v := make([]int32, len(data))
		for i, x := range data {
			v[i] = int32(g.dtype.Clamp(x))
		}
		buf = v
	case []float32:
		v := make([]float32, len(data))
		for i, x := range data {
			v[i] = float32(g.dtype.Clamp(x))
		}
		buf = v
	default:
		v := make([]float64, len(data))
		for i, x := range data {
			v[i] = g.dtype.Clamp(x)
		}
		buf = v
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("cdfgrid: writing band %d window (%d,%d,%d,%d): %w",
			band, col, row, width, height, err)
	}
	return nil
}

// SetNoData records the no-data value in the grid's metadata.
func (g *Dataset) SetNoData(v float64) error {
	w := g.f.Writer(noDataVar, []int{0}, []int{2})
	if _, err := w.Write([]float64{1, v}); err != nil {
		return fmt.Errorf("cdfgrid: writing no-data value: %w", err)
	}
	g.nodata = v
	g.hasNoData = true
	return nil
}

// Close flushes and closes the underlying file.
func (g *Dataset) Close() error {
	if err := cdf.UpdateNumRecs(g.file); err != nil {
		g.file.Close()
		return fmt.Errorf("cdfgrid: updating record count: %w", err)
	}
	return g.file.Close()
}

func (g *Dataset) String() string {
	return "cdfgrid " + strconv.Itoa(g.width) + "×" + strconv.Itoa(g.height) +
		"×" + strconv.Itoa(g.bands) + " " + g.dtype.String()
}
