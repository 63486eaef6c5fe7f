// Package array provides dense N-dimensional complex arrays used for
// k-space data, sensitivity maps, sampling patterns and images. Arrays
// are stored with the first axis fastest, carry the canonical rank-N
// dimension vector from internal/models, and support broadcast
// elementwise kernels over dimension flag sets.
package array

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/cmplxs"

	"bpsense/internal/models"
)

// Array is a dense complex array with an explicit dimension vector.
type Array struct {
	Dims models.Dims
	Data []complex128
}

// New allocates a zeroed array with the given dimensions.
func New(dims models.Dims) *Array {
	return &Array{
		Dims: dims.Clone(),
		Data: make([]complex128, dims.Size()),
	}
}

// FromData wraps existing data in an array. The data length must match
// the dimension vector.
func FromData(dims models.Dims, data []complex128) (*Array, error) {
	if len(data) != dims.Size() {
		return nil, fmt.Errorf("array: data length %d does not match dims %v", len(data), dims)
	}
	return &Array{Dims: dims.Clone(), Data: data}, nil
}

// Size returns the total number of elements.
func (a *Array) Size() int { return len(a.Data) }

// Clear sets all elements to zero.
func (a *Array) Clear() {
	for i := range a.Data {
		a.Data[i] = 0
	}
}

// Clone returns a deep copy of a.
func (a *Array) Clone() *Array {
	c := New(a.Dims)
	copy(c.Data, a.Data)
	return c
}

// CopyFrom copies src into a. The shapes must match exactly.
func (a *Array) CopyFrom(src *Array) {
	if !a.Dims.Equal(src.Dims) {
		panic(fmt.Sprintf("array: copy shape mismatch %v vs %v", a.Dims, src.Dims))
	}
	copy(a.Data, src.Data)
}

// Scale multiplies every element by c in place.
func (a *Array) Scale(c complex128) {
	cmplxs.Scale(c, a.Data)
}

// Norm returns the Euclidean norm of a.
func (a *Array) Norm() float64 {
	return cmplxs.Norm(a.Data, 2)
}

// SumAbs returns the sum of element magnitudes, the l1 norm of a.
func (a *Array) SumAbs() float64 {
	var s float64
	for _, v := range a.Data {
		s += cmplx.Abs(v)
	}
	return s
}

// Real drops the imaginary part of every element in place.
func (a *Array) Real() {
	for i, v := range a.Data {
		a.Data[i] = complex(real(v), 0)
	}
}

// Add adds src to a elementwise. Shapes must match.
func (a *Array) Add(src *Array) {
	cmplxs.Add(a.Data, src.Data)
}

// Sub subtracts src from a elementwise. Shapes must match.
func (a *Array) Sub(src *Array) {
	cmplxs.Sub(a.Data, src.Data)
}

// AddScaled adds alpha*src to a elementwise. Shapes must match.
func (a *Array) AddScaled(alpha complex128, src *Array) {
	cmplxs.AddScaled(a.Data, alpha, src.Data)
}

// Dot returns the conjugated inner product <a, b> = sum conj(a_i)*b_i.
func Dot(a, b *Array) complex128 {
	if len(a.Data) != len(b.Data) {
		panic("array: dot length mismatch")
	}
	var s complex128
	for i, v := range a.Data {
		s += cmplx.Conj(v) * b.Data[i]
	}
	return s
}
