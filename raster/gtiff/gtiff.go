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

// Package gtiff implements the raster Driver interface for GeoTIFF
// files (and any other format GDAL can open read-only) using the
// godal bindings.
package gtiff

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/airbusgeo/godal"

	"github.com/spatialmodel/gridmath/raster"
)

var registerOnce sync.Once

// Driver opens GDAL-readable grids and creates tiled GeoTIFFs.
type Driver struct{}

var _ raster.Driver = Driver{}

// Open opens an existing grid read-only.
func (Driver) Open(path string) (raster.Dataset, error) {
	registerOnce.Do(func() { godal.RegisterAll() })
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gtiff: opening %s: %w", path, err)
	}
	return &Dataset{ds: ds}, nil
}

// Create creates a new GeoTIFF.
func (Driver) Create(path string, width, height, bands int, dt raster.DataType,
	gt raster.GeoTransform, projection string, opts *raster.CreateOptions) (raster.Dataset, error) {
	registerOnce.Do(func() { godal.RegisterAll() })
	gdt, err := gdalType(dt)
	if err != nil {
		return nil, err
	}
	ds, err := godal.Create(godal.GTiff, path, bands, gdt, width, height,
		godal.CreationOption(creationOptions(opts)...))
	if err != nil {
		return nil, fmt.Errorf("gtiff: creating %s: %w", path, err)
	}
	if err := ds.SetGeoTransform([6]float64(gt)); err != nil {
		ds.Close()
		return nil, fmt.Errorf("gtiff: setting geotransform on %s: %w", path, err)
	}
	if projection != "" {
		if err := ds.SetProjection(projection); err != nil {
			ds.Close()
			return nil, fmt.Errorf("gtiff: setting projection on %s: %w", path, err)
		}
	}
	return &Dataset{ds: ds}, nil
}

// creationOptions translates CreateOptions into GTiff creation
// parameters. Tiled layout is only declared for square power-of-two
// blocks, which is what the format requires.
func creationOptions(opts *raster.CreateOptions) []string {
	if opts == nil {
		opts = &raster.CreateOptions{}
	}
	var o []string
	switch opts.Compression {
	case raster.CompressionNone:
		o = append(o, "BIGTIFF=IF_NEEDED")
	case raster.CompressionHigh:
		o = append(o, "BIGTIFF=IF_SAFER",
			fmt.Sprintf("NUM_THREADS=%d", writerThreads()),
			"COMPRESS=DEFLATE", "PREDICTOR=2", "ZLEVEL=9")
	default:
		o = append(o, "BIGTIFF=IF_SAFER",
			fmt.Sprintf("NUM_THREADS=%d", writerThreads()),
			"COMPRESS=PACKBITS")
	}
	if opts.BlockXSize > 0 && opts.BlockYSize > 0 {
		o = append(o,
			fmt.Sprintf("BLOCKXSIZE=%d", opts.BlockXSize),
			fmt.Sprintf("BLOCKYSIZE=%d", opts.BlockYSize))
		if opts.BlockXSize == opts.BlockYSize && tileableSize(opts.BlockXSize) {
			o = append(o, "TILED=YES")
		}
	}
	o = append(o, opts.Extra...)
	return o
}

func writerThreads() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

func tileableSize(n int) bool {
	switch n {
	case 64, 128, 256, 512, 1024, 2048, 4096:
		return true
	}
	return false
}

func gdalType(dt raster.DataType) (godal.DataType, error) {
	switch dt {
	case raster.Byte:
		return godal.Byte, nil
	case raster.Int16:
		return godal.Int16, nil
	case raster.UInt16:
		return godal.UInt16, nil
	case raster.Int32:
		return godal.Int32, nil
	case raster.UInt32:
		return godal.UInt32, nil
	case raster.Float32:
		return godal.Float32, nil
	case raster.Float64:
		return godal.Float64, nil
	}
	return godal.Unknown, fmt.Errorf("gtiff: unsupported data type %v", dt)
}

func rasterType(dt godal.DataType) raster.DataType {
	switch dt {
	case godal.Byte:
		return raster.Byte
	case godal.Int16:
		return raster.Int16
	case godal.UInt16:
		return raster.UInt16
	case godal.Int32:
		return raster.Int32
	case godal.UInt32:
		return raster.UInt32
	case godal.Float32:
		return raster.Float32
	case godal.Float64:
		return raster.Float64
	}
	return raster.Unknown
}

// Dataset wraps one open GDAL dataset.
type Dataset struct {
	ds *godal.Dataset
}

var _ raster.Dataset = (*Dataset)(nil)

func (g *Dataset) Width() int  { return g.ds.Structure().SizeX }
func (g *Dataset) Height() int { return g.ds.Structure().SizeY }
func (g *Dataset) Bands() int  { return g.ds.Structure().NBands }

func (g *Dataset) DataType() raster.DataType {
	return rasterType(g.ds.Structure().DataType)
}

func (g *Dataset) NoData() (float64, bool) {
	bands := g.ds.Bands()
	if len(bands) == 0 {
		return 0, false
	}
	return bands[0].NoData()
}

func (g *Dataset) GeoTransform() raster.GeoTransform {
	gt, err := g.ds.GeoTransform()
	if err != nil {
		// GDAL's conventional identity transform for ungeoreferenced
		// grids.
		return raster.GeoTransform{0, 1, 0, 0, 0, 1}
	}
	return raster.GeoTransform(gt)
}

func (g *Dataset) Projection() string { return g.ds.Projection() }

func (g *Dataset) BlockSize() (int, int) {
	st := g.ds.Structure()
	return st.BlockSizeX, st.BlockSizeY
}

// Read reads a window of one band, converting to float64.
func (g *Dataset) Read(band, col, row, width, height int) ([]float64, error) {
	bands := g.ds.Bands()
	if band < 0 || band >= len(bands) {
		return nil, fmt.Errorf("gtiff: band %d out of range [0,%d)", band, len(bands))
	}
	buf := make([]float64, width*height)
	if err := bands[band].Read(col, row, buf, width, height); err != nil {
		return nil, fmt.Errorf("gtiff: reading band %d window (%d,%d,%d,%d): %w",
			band, col, row, width, height, err)
	}
	return buf, nil
}

// Write writes a window of one band. GDAL converts to the band's
// storage type.
func (g *Dataset) Write(band, col, row, width, height int, data []float64) error {
	bands := g.ds.Bands()
	if band < 0 || band >= len(bands) {
		return fmt.Errorf("gtiff: band %d out of range [0,%d)", band, len(bands))
	}
	if len(data) != width*height {
		return fmt.Errorf("gtiff: write of %d values to %d-pixel window",
			len(data), width*height)
	}
	if err := bands[band].Write(col, row, data, width, height); err != nil {
		return fmt.Errorf("gtiff: writing band %d window (%d,%d,%d,%d): %w",
			band, col, row, width, height, err)
	}
	return nil
}

// SetNoData sets the no-data value on every band.
func (g *Dataset) SetNoData(v float64) error {
	if err := g.ds.SetNoData(v); err != nil {
		return fmt.Errorf("gtiff: setting no-data: %w", err)
	}
	return nil
}

func (g *Dataset) Close() error { return g.ds.Close() }
