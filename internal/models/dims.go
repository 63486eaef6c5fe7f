// Package models defines the shared dimension model used across the
// reconstruction pipeline. Every array carries a fixed-rank dimension
// vector with fixed semantic axes; operators select the axes they act
// on through dimension flag sets.
package models

import "fmt"

// N is the canonical number of array dimensions. All arrays in the
// pipeline are rank N; unused axes have size 1.
const N = 8

// Semantic axis assignment. The first three axes are spatial, followed
// by the receive-coil axis and the ESPIRiT map axis. The remaining axes
// are free batch dimensions.
const (
	DimX = iota
	DimY
	DimZ
	DimCoil
	DimMaps
)

// Flags is a bitmask selecting a subset of axes.
type Flags uint

// Flag sets for the fixed semantic axes.
const (
	SpatialFlags Flags = 1<<DimX | 1<<DimY | 1<<DimZ
	CoilFlag     Flags = 1 << DimCoil
	MapsFlag     Flags = 1 << DimMaps
	AllFlags     Flags = 1<<N - 1
)

// Has reports whether axis d is selected.
func (f Flags) Has(d int) bool { return f&(1<<uint(d)) != 0 }

// Dims is an ordered vector of dimension sizes.
type Dims []int

// MakeDims returns a rank-N dimension vector with all sizes 1, then the
// given leading sizes applied in order.
func MakeDims(sizes ...int) Dims {
	d := make(Dims, N)
	for i := range d {
		d[i] = 1
	}
	copy(d, sizes)
	return d
}

// Size returns the total number of elements.
func (d Dims) Size() int {
	n := 1
	for _, s := range d {
		n *= s
	}
	return n
}

// Clone returns a copy of d.
func (d Dims) Clone() Dims {
	c := make(Dims, len(d))
	copy(c, d)
	return c
}

// Select returns a copy of d with every axis not in flags collapsed to 1.
func (d Dims) Select(flags Flags) Dims {
	c := d.Clone()
	for i := range c {
		if !flags.Has(i) {
			c[i] = 1
		}
	}
	return c
}

// Equal reports whether d and o have identical sizes.
func (d Dims) Equal(o Dims) bool {
	if len(d) != len(o) {
		return false
	}
	for i := range d {
		if d[i] != o[i] {
			return false
		}
	}
	return true
}

// EqualOn reports whether d and o agree on every axis in flags.
func (d Dims) EqualOn(o Dims, flags Flags) bool {
	for i := range d {
		if flags.Has(i) && d[i] != o[i] {
			return false
		}
	}
	return true
}

// Strides returns element strides for d with the first axis fastest.
func (d Dims) Strides() []int {
	s := make([]int, len(d))
	n := 1
	for i, size := range d {
		s[i] = n
		n *= size
	}
	return s
}

// Validate returns an error unless d is rank N with positive sizes.
func (d Dims) Validate() error {
	if len(d) != N {
		return fmt.Errorf("models: dimension vector has rank %d, want %d", len(d), N)
	}
	for i, s := range d {
		if s < 1 {
			return fmt.Errorf("models: dimension %d has non-positive size %d", i, s)
		}
	}
	return nil
}

func (d Dims) String() string {
	return fmt.Sprintf("%v", []int(d))
}
