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

// computeInvalid derives per-pixel validity flags for one tile.
// raw holds the first band of the canonical source, one value per
// pixel in row-major order; maskVals holds the first band of the
// external mask grid over the same tile, or is nil when no mask is
// configured. A pixel is invalid when the external mask is zero there
// or the canonical first-band value equals the canonical no-data
// value. The flag applies to all bands of the pixel.
func (e *Engine) computeInvalid(raw, maskVals []float64) []bool {
	invalid := make([]bool, len(raw))
	for i, v := range raw {
		if maskVals != nil && maskVals[i] == 0 {
			invalid[i] = true
			continue
		}
		if e.hasNoData && v == e.nodata {
			invalid[i] = true
		}
	}
	return invalid
}
