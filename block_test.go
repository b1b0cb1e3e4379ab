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

func TestValidValues(t *testing.T) {
	vals := sparse.ZerosDense(4, 2)
	copy(vals.Elements, []float64{
		1, 2,
		3, 4,
		5, 6,
		7, 8,
	})
	b := &Block{Values: vals, Invalid: []bool{false, true, false, true}}
	got := b.ValidValues()
	if !reflect.DeepEqual(got.Shape, []int{2, 2}) {
		t.Fatalf("shape = %v, want [2 2]", got.Shape)
	}
	want := []float64{1, 2, 5, 6}
	if !reflect.DeepEqual(got.Elements, want) {
		t.Errorf("elements = %v, want %v", got.Elements, want)
	}
	if b.NValid() != 2 {
		t.Errorf("NValid = %d, want 2", b.NValid())
	}
}

func TestFullyMasked(t *testing.T) {
	b := &Block{Values: sparse.ZerosDense(2, 1), Invalid: []bool{true, true}}
	if !b.FullyMasked() {
		t.Error("all-invalid block not reported fully masked")
	}
	b.Invalid[1] = false
	if b.FullyMasked() {
		t.Error("partially valid block reported fully masked")
	}
}

func TestEnsureBands(t *testing.T) {
	one := sparse.ZerosDense(5)
	if got := ensureBands(one, false); !reflect.DeepEqual(got.Shape, []int{5, 1}) {
		t.Errorf("1-D flattened: shape = %v, want [5 1]", got.Shape)
	}
	two := sparse.ZerosDense(3, 4)
	if got := ensureBands(two, true); !reflect.DeepEqual(got.Shape, []int{3, 4, 1}) {
		t.Errorf("2-D spatial: shape = %v, want [3 4 1]", got.Shape)
	}
	if got := ensureBands(two, false); got != two {
		t.Error("2-D flattened array should be unchanged")
	}
	three := sparse.ZerosDense(3, 4, 2)
	if got := ensureBands(three, true); got != three {
		t.Error("3-D spatial array should be unchanged")
	}
}
