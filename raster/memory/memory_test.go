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

package memory

import (
	"reflect"
	"testing"

	"github.com/spatialmodel/gridmath/raster"
)

var gt = raster.GeoTransform{0, 1, 0, 0, 0, -1}

func TestCreateOpenRoundTrip(t *testing.T) {
	d := new(Driver)
	if _, err := d.Open("missing"); err == nil {
		t.Error("Open of an uncreated grid should fail")
	}
	created, err := d.Create("g", 3, 2, 2, raster.Float64, gt, "proj", nil)
	if err != nil {
		t.Fatal(err)
	}
	opened, err := d.Open("g")
	if err != nil {
		t.Fatal(err)
	}
	if opened != created {
		t.Error("Open returned a different grid than Create")
	}
	if opened.Width() != 3 || opened.Height() != 2 || opened.Bands() != 2 {
		t.Errorf("dimensions = %d×%d×%d, want 3×2×2",
			opened.Width(), opened.Height(), opened.Bands())
	}
	if opened.Projection() != "proj" || opened.GeoTransform() != gt {
		t.Error("georeferencing metadata lost")
	}
}

func TestReadWriteWindow(t *testing.T) {
	d := new(Driver)
	g, err := d.Create("g", 4, 4, 1, raster.Float64, gt, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Write(0, 1, 1, 2, 2, []float64{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	got, err := g.Read(0, 0, 0, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{
		0, 0, 0, 0,
		0, 1, 2, 0,
		0, 3, 4, 0,
		0, 0, 0, 0,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	sub, err := g.Read(0, 2, 1, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sub, []float64{2, 0, 4, 0}) {
		t.Errorf("window read = %v, want [2 0 4 0]", sub)
	}
}

func TestWindowValidation(t *testing.T) {
	d := new(Driver)
	g, err := d.Create("g", 4, 4, 1, raster.Float64, gt, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Read(1, 0, 0, 1, 1); err == nil {
		t.Error("read of band 1 on a 1-band grid should fail")
	}
	if _, err := g.Read(0, 3, 3, 2, 2); err == nil {
		t.Error("read past the grid edge should fail")
	}
	if err := g.Write(0, 0, 0, 2, 2, []float64{1}); err == nil {
		t.Error("write with short buffer should fail")
	}
	if _, err := d.Create("bad", 0, 4, 1, raster.Float64, gt, "", nil); err == nil {
		t.Error("zero-width create should fail")
	}
}

func TestWriteClampsToDataType(t *testing.T) {
	d := new(Driver)
	g, err := d.Create("g", 2, 1, 1, raster.Byte, gt, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Write(0, 0, 0, 2, 1, []float64{-5, 300.4}); err != nil {
		t.Fatal(err)
	}
	got, err := g.Read(0, 0, 0, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []float64{0, 255}) {
		t.Errorf("got %v, want [0 255]", got)
	}
}

func TestBlockSizeClamping(t *testing.T) {
	d := new(Driver)
	g, err := d.Create("g", 10, 5, 1, raster.Float64, gt, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if x, y := g.BlockSize(); x != 10 || y != 5 {
		t.Errorf("block size = %d×%d, want grid size 10×5", x, y)
	}
	g, err = d.Create("g2", 1000, 1000, 1, raster.Float64, gt, "",
		&raster.CreateOptions{BlockXSize: 128, BlockYSize: 64})
	if err != nil {
		t.Fatal(err)
	}
	if x, y := g.BlockSize(); x != 128 || y != 64 {
		t.Errorf("block size = %d×%d, want 128×64", x, y)
	}
}

func TestNoDataAndFill(t *testing.T) {
	g := NewDataset(2, 2, 1, raster.Float64, gt, "")
	if _, ok := g.NoData(); ok {
		t.Error("fresh grid should have no no-data value")
	}
	if err := g.SetNoData(-99); err != nil {
		t.Fatal(err)
	}
	if v, ok := g.NoData(); !ok || v != -99 {
		t.Errorf("no-data = %g, %v; want -99, true", v, ok)
	}
	if err := g.Fill(0, 7); err != nil {
		t.Fatal(err)
	}
	got, err := g.Read(0, 0, 0, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []float64{7, 7, 7, 7}) {
		t.Errorf("filled values = %v, want all 7", got)
	}
	if err := g.Fill(3, 0); err == nil {
		t.Error("fill of missing band should fail")
	}
}
