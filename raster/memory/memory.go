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

// Package memory implements an in-memory raster driver. Grids created
// by it live only for the lifetime of the process; it stands in for
// file-backed drivers in tests and supports fully programmatic
// pipelines.
package memory

import (
	"fmt"
	"sync"

	"github.com/spatialmodel/gridmath/raster"
)

// Driver creates and reopens in-memory grids. Paths are arbitrary
// names; Open finds grids previously created with the same Driver
// value. The zero value is ready to use.
type Driver struct {
	mx    sync.Mutex
	grids map[string]*Dataset
}

// Created grids report 256×256 tiling unless overridden, matching the
// usual tiled-format default.
const defaultBlockX = 256
const defaultBlockY = 256

// Open returns the named grid, or an error if it was never created.
func (d *Driver) Open(path string) (raster.Dataset, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	g, ok := d.grids[path]
	if !ok {
		return nil, fmt.Errorf("memory: no grid named %q", path)
	}
	return g, nil
}

// Create allocates a new named grid filled with zeros.
func (d *Driver) Create(path string, width, height, bands int, dt raster.DataType,
	gt raster.GeoTransform, projection string, opts *raster.CreateOptions) (raster.Dataset, error) {
	if width <= 0 || height <= 0 || bands <= 0 {
		return nil, fmt.Errorf("memory: invalid dimensions %d×%d×%d for grid %q",
			width, height, bands, path)
	}
	g := &Dataset{
		name:       path,
		width:      width,
		height:     height,
		bands:      bands,
		dtype:      dt,
		gt:         gt,
		projection: projection,
		blockX:     defaultBlockX,
		blockY:     defaultBlockY,
		data:       make([][]float64, bands),
	}
	if opts != nil {
		if opts.BlockXSize > 0 {
			g.blockX = opts.BlockXSize
		}
		if opts.BlockYSize > 0 {
			g.blockY = opts.BlockYSize
		}
	}
	if g.blockX > width {
		g.blockX = width
	}
	if g.blockY > height {
		g.blockY = height
	}
	for b := range g.data {
		g.data[b] = make([]float64, width*height)
	}
	d.mx.Lock()
	if d.grids == nil {
		d.grids = make(map[string]*Dataset)
	}
	d.grids[path] = g
	d.mx.Unlock()
	return g, nil
}

// NewDataset creates an anonymous grid without registering it with a
// Driver, for use as a directly-constructed input.
func NewDataset(width, height, bands int, dt raster.DataType,
	gt raster.GeoTransform, projection string) *Dataset {
	g := &Dataset{
		width:      width,
		height:     height,
		bands:      bands,
		dtype:      dt,
		gt:         gt,
		projection: projection,
		blockX:     defaultBlockX,
		blockY:     defaultBlockY,
		data:       make([][]float64, bands),
	}
	if g.blockX > width {
		g.blockX = width
	}
	if g.blockY > height {
		g.blockY = height
	}
	for b := range g.data {
		g.data[b] = make([]float64, width*height)
	}
	return g
}

// Dataset is an in-memory grid.
type Dataset struct {
	name       string
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
	data       [][]float64 // per band, row-major
}

var _ raster.Dataset = (*Dataset)(nil)

func (g *Dataset) Width() int                     { return g.width }
func (g *Dataset) Height() int                    { return g.height }
func (g *Dataset) Bands() int                     { return g.bands }
func (g *Dataset) DataType() raster.DataType      { return g.dtype }
func (g *Dataset) GeoTransform() raster.GeoTransform { return g.gt }
func (g *Dataset) Projection() string             { return g.projection }
func (g *Dataset) BlockSize() (int, int)          { return g.blockX, g.blockY }

func (g *Dataset) NoData() (float64, bool) { return g.nodata, g.hasNoData }

// SetNoData sets the no-data metadata value.
func (g *Dataset) SetNoData(v float64) error {
	g.nodata = v
	g.hasNoData = true
	return nil
}

func (g *Dataset) checkWindow(band, col, row, width, height int) error {
	if band < 0 || band >= g.bands {
		return fmt.Errorf("memory: band %d out of range [0,%d)", band, g.bands)
	}
	if col < 0 || row < 0 || width <= 0 || height <= 0 ||
		col+width > g.width || row+height > g.height {
		return fmt.Errorf("memory: window (%d,%d,%d,%d) outside grid %d×%d",
			col, row, width, height, g.width, g.height)
	}
	return nil
}

// Read returns the pixels of the given window in row-major order.
func (g *Dataset) Read(band, col, row, width, height int) ([]float64, error) {
	if err := g.checkWindow(band, col, row, width, height); err != nil {
		return nil, err
	}
	out := make([]float64, width*height)
	for r := 0; r < height; r++ {
		src := (row+r)*g.width + col
		copy(out[r*width:(r+1)*width], g.data[band][src:src+width])
	}
	return out, nil
}

// Write stores data, converting each value to the grid's storage type.
func (g *Dataset) Write(band, col, row, width, height int, data []float64) error {
	if err := g.checkWindow(band, col, row, width, height); err != nil {
		return err
	}
	if len(data) != width*height {
		return fmt.Errorf("memory: write of %d values to %d-pixel window",
			len(data), width*height)
	}
	for r := 0; r < height; r++ {
		dst := (row+r)*g.width + col
		for c := 0; c < width; c++ {
			g.data[band][dst+c] = g.dtype.Clamp(data[r*width+c])
		}
	}
	return nil
}

// Fill sets every pixel of one band.
func (g *Dataset) Fill(band int, v float64) error {
	if band < 0 || band >= g.bands {
		return fmt.Errorf("memory: band %d out of range [0,%d)", band, g.bands)
	}
	v = g.dtype.Clamp(v)
	for i := range g.data[band] {
		g.data[band][i] = v
	}
	return nil
}

func (g *Dataset) Close() error { return nil }
