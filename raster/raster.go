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

// Package raster defines the interface between the gridmath engine and
// the libraries that perform physical grid input and output. A Dataset
// is one open grid; a Driver opens existing grids and creates new ones.
// Subdirectories hold the available implementations.
package raster

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// DataType is the storage type of one grid band.
type DataType int

// Supported band storage types.
const (
	Unknown DataType = iota
	Byte
	Int16
	UInt16
	Int32
	UInt32
	Float32
	Float64
)

func (dt DataType) String() string {
	switch dt {
	case Byte:
		return "Byte"
	case Int16:
		return "Int16"
	case UInt16:
		return "UInt16"
	case Int32:
		return "Int32"
	case UInt32:
		return "UInt32"
	case Float32:
		return "Float32"
	case Float64:
		return "Float64"
	default:
		return "Unknown"
	}
}

// Size returns the number of bytes used to store one pixel.
func (dt DataType) Size() int {
	switch dt {
	case Byte:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// Min returns the minimum value representable by dt.
func (dt DataType) Min() float64 {
	switch dt {
	case Byte, UInt16, UInt32:
		return 0
	case Int16:
		return math.MinInt16
	case Int32:
		return math.MinInt32
	case Float32:
		return -math.MaxFloat32
	case Float64:
		return -math.MaxFloat64
	default:
		return 0
	}
}

// Max returns the maximum value representable by dt.
func (dt DataType) Max() float64 {
	switch dt {
	case Byte:
		return math.MaxUint8
	case Int16:
		return math.MaxInt16
	case UInt16:
		return math.MaxUint16
	case Int32:
		return math.MaxInt32
	case UInt32:
		return math.MaxUint32
	case Float32:
		return math.MaxFloat32
	case Float64:
		return math.MaxFloat64
	default:
		return 0
	}
}

// IsFloat reports whether dt stores fractional values.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float64
}

// Clamp rounds and limits v to the representable range of dt.
// Float types are returned unchanged except for range limiting.
func (dt DataType) Clamp(v float64) float64 {
	if !dt.IsFloat() {
		v = math.Round(v)
	}
	if v < dt.Min() {
		return dt.Min()
	}
	if v > dt.Max() {
		return dt.Max()
	}
	return v
}

// DataTypeForRange returns the smallest DataType able to hold all
// values in [min, max]. Fractional bounds always select a float type.
func DataTypeForRange(min, max float64) DataType {
	if min != math.Trunc(min) || max != math.Trunc(max) ||
		math.IsNaN(min) || math.IsNaN(max) {
		if math.Max(math.Abs(min), math.Abs(max)) > math.MaxFloat32 {
			return Float64
		}
		return Float32
	}
	if min >= 0 {
		switch {
		case max <= math.MaxUint8:
			return Byte
		case max <= math.MaxUint16:
			return UInt16
		case max <= math.MaxUint32:
			return UInt32
		}
	} else {
		switch {
		case min >= math.MinInt16 && max <= math.MaxInt16:
			return Int16
		case min >= math.MinInt32 && max <= math.MaxInt32:
			return Int32
		}
	}
	if math.Max(math.Abs(min), math.Abs(max)) > math.MaxFloat32 {
		return Float64
	}
	return Float32
}

// GeoTransform holds the six affine coefficients relating pixel
// coordinates to georeferenced coordinates, in the usual order:
// origin X, pixel width, row rotation, origin Y, column rotation,
// pixel height (negative for north-up grids).
type GeoTransform [6]float64

// Origin returns the georeferenced coordinate of the top-left corner
// of the top-left pixel.
func (gt GeoTransform) Origin() geom.Point {
	return geom.Point{X: gt[0], Y: gt[3]}
}

// PixelSize returns the absolute pixel width and height in
// georeferenced units.
func (gt GeoTransform) PixelSize() (dx, dy float64) {
	return math.Abs(gt[1]), math.Abs(gt[5])
}

// Bounds returns the georeferenced bounding box of a grid with the
// given pixel dimensions.
func (gt GeoTransform) Bounds(width, height int) *geom.Bounds {
	b := geom.NewBounds()
	for _, px := range [][2]float64{
		{0, 0},
		{float64(width), 0},
		{0, float64(height)},
		{float64(width), float64(height)},
	} {
		x := gt[0] + px[0]*gt[1] + px[1]*gt[2]
		y := gt[3] + px[0]*gt[4] + px[1]*gt[5]
		b.Extend(geom.NewBoundsPoint(geom.Point{X: x, Y: y}))
	}
	return b
}

// ParseSRS parses a spatial reference descriptor (WKT or PROJ.4) into
// a projection that can be used with the geom packages.
func ParseSRS(descriptor string) (*proj.SR, error) {
	sr, err := proj.Parse(descriptor)
	if err != nil {
		return nil, fmt.Errorf("raster: parsing spatial reference: %w", err)
	}
	return sr, nil
}

// Compression selects the compression profile for a created grid.
type Compression int

const (
	// CompressionDefault is a balanced, fast profile.
	CompressionDefault Compression = iota
	// CompressionNone stores pixels uncompressed.
	CompressionNone
	// CompressionHigh trades speed for the smallest output, using a
	// horizontal-differencing predictor where the format supports it.
	CompressionHigh
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionHigh:
		return "high"
	default:
		return "default"
	}
}

// CreateOptions parameterizes Driver.Create.
type CreateOptions struct {
	// BlockXSize and BlockYSize set the tiling of the created grid.
	// Zero means the driver's native block size.
	BlockXSize, BlockYSize int

	Compression Compression

	// Extra holds additional driver-specific creation parameters in
	// KEY=VALUE form, applied after the options derived from the
	// fields above.
	Extra []string
}

// Dataset is one open grid. Pixel values cross this interface as
// float64 regardless of the underlying storage type; implementations
// convert on read and write. Read and Write access the rectangle with
// top-left pixel (col, row) and the given width and height, in
// row-major order. Bands are numbered from 0.
type Dataset interface {
	Width() int
	Height() int
	Bands() int
	DataType() DataType
	NoData() (value float64, ok bool)
	GeoTransform() GeoTransform
	Projection() string
	BlockSize() (x, y int)

	Read(band, col, row, width, height int) ([]float64, error)
	Write(band, col, row, width, height int, data []float64) error

	SetNoData(value float64) error
	Close() error
}

// Driver opens and creates grids in one physical format.
type Driver interface {
	Open(path string) (Dataset, error)
	Create(path string, width, height, bands int, dt DataType,
		gt GeoTransform, projection string, opts *CreateOptions) (Dataset, error)
}
