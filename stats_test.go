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
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
)

func bandFixture() []*sparse.DenseArray {
	arr := sparse.ZerosDense(3, 3)
	copy(arr.Elements, []float64{
		1, 2, 3,
		4, 4, 4,
		-1, 0, 7,
	})
	return []*sparse.DenseArray{arr}
}

func TestBandReductions(t *testing.T) {
	cases := []struct {
		name string
		fn   Func
		want []float64
	}{
		{"mean", BandMean(), []float64{2, 4, 2}},
		{"min", BandMin(), []float64{1, 4, -1}},
		{"max", BandMax(), []float64{3, 4, 7}},
	}
	for _, c := range cases {
		got, err := c.fn(bandFixture(), nil)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if !reflect.DeepEqual(got.Shape, []int{3, 1}) {
			t.Fatalf("%s: shape = %v, want [3 1]", c.name, got.Shape)
		}
		if !reflect.DeepEqual(got.Elements, c.want) {
			t.Errorf("%s = %v, want %v", c.name, got.Elements, c.want)
		}
	}
}

func TestBandReduceRejectsSpatial(t *testing.T) {
	arr := sparse.ZerosDense(2, 2, 3)
	if _, err := BandMean()([]*sparse.DenseArray{arr}, nil); err == nil {
		t.Error("expected error for 3-D input")
	}
	if _, err := BandMean()(nil, nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestBandMeanEndToEnd(t *testing.T) {
	e, d := testEngine(t)
	if _, err := e.AddFunc(BandMean(), "mean", Named("bandMean"), OutNoData(-1)); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	out, err := d.Open("mean")
	if err != nil {
		t.Fatal(err)
	}
	// Single source band, so the mean equals the input where valid.
	want := []float64{
		-1, 1, 2, 3,
		4, 5, -1, 7,
		8, 9, 10, -1,
		1, 1, 1, 1,
	}
	if got := readAll(t, out, 0); !reflect.DeepEqual(got, want) {
		t.Errorf("mean output = %v, want %v", got, want)
	}
}
