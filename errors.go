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

import "fmt"

// OpenError is returned when a source or destination grid cannot be
// opened or created.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("gridmath: opening %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// SizeMismatchError is returned by AddSource when a grid's extent
// disagrees with the canonical extent set by the first source. The
// mismatched source is skipped; the engine remains usable.
type SizeMismatchError struct {
	Width, Height                   int
	CanonicalWidth, CanonicalHeight int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("gridmath: source extent %d×%d does not match canonical extent %d×%d",
		e.Width, e.Height, e.CanonicalWidth, e.CanonicalHeight)
}

// RegistrationError is returned when the probe invocation of a
// function fails during registration. No partial registration state
// is kept.
type RegistrationError struct {
	Name string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("gridmath: registering %s: %v", e.Name, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// BandOverflowError aborts a run when a function returns more bands at
// run time than were committed at registration.
type BandOverflowError struct {
	Name string
	Got  int
	Max  int
}

func (e *BandOverflowError) Error() string {
	return fmt.Sprintf("gridmath: function %s output %d bands, but was defined to have a maximum of %d bands",
		e.Name, e.Got, e.Max)
}

// MissingNoDataError aborts a run when a fully-masked tile is
// encountered for a function that has no no-data value configured.
type MissingNoDataError struct {
	Name string
	Tile Tile
}

func (e *MissingNoDataError) Error() string {
	return fmt.Sprintf("gridmath: tile %v is fully masked and function %s has no no-data value",
		e.Tile, e.Name)
}
