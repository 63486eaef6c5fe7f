package array

import (
	"fmt"
	"math/cmplx"

	"bpsense/internal/models"
)

// broadcastStrides returns the element strides of dims against max,
// with a zero stride on every axis where dims is singleton. An axis
// that is neither singleton nor equal to max is a shape error.
func broadcastStrides(max, dims models.Dims) ([]int, error) {
	strides := dims.Strides()
	for i := range dims {
		switch dims[i] {
		case max[i]:
		case 1:
			strides[i] = 0
		default:
			return nil, fmt.Errorf("array: axis %d size %d incompatible with %d", i, dims[i], max[i])
		}
	}
	return strides, nil
}

// maxDims returns the elementwise maximum of the given dimension vectors.
func maxDims(ds ...models.Dims) models.Dims {
	m := ds[0].Clone()
	for _, d := range ds[1:] {
		for i := range m {
			if d[i] > m[i] {
				m[i] = d[i]
			}
		}
	}
	return m
}

// MulDiag computes dst = src * diag with diag broadcast over singleton
// axes. With conj set, the conjugate of diag is used (the adjoint of a
// diagonal operator). dst and src must share the same shape.
func MulDiag(dst, src, diag *Array, conj bool) error {
	if !dst.Dims.Equal(src.Dims) {
		return fmt.Errorf("array: diag shape mismatch %v vs %v", dst.Dims, src.Dims)
	}
	ds, err := broadcastStrides(dst.Dims, diag.Dims)
	if err != nil {
		return err
	}
	if fastPath(dst.Dims, diag.Dims) {
		if conj {
			for i, v := range src.Data {
				dst.Data[i] = v * cmplx.Conj(diag.Data[i])
			}
		} else {
			for i, v := range src.Data {
				dst.Data[i] = v * diag.Data[i]
			}
		}
		return nil
	}
	iterate(dst.Dims, dst.Dims.Strides(), src.Dims.Strides(), ds,
		func(od, oa, ob int) {
			w := diag.Data[ob]
			if conj {
				w = cmplx.Conj(w)
			}
			dst.Data[od] = src.Data[oa] * w
		})
	return nil
}

// FMAcc accumulates dst += a * b over the joint extent of all three
// arrays, broadcasting singleton axes and reducing axes where dst is
// singleton. With conjB set, the conjugate of b is used. This is the
// workhorse behind the sensitivity-map operator and its adjoint.
func FMAcc(dst, a, b *Array, conjB bool) error {
	max := maxDims(dst.Dims, a.Dims, b.Dims)
	sd, err := broadcastStrides(max, dst.Dims)
	if err != nil {
		return err
	}
	sa, err := broadcastStrides(max, a.Dims)
	if err != nil {
		return err
	}
	sb, err := broadcastStrides(max, b.Dims)
	if err != nil {
		return err
	}
	iterate(max, sd, sa, sb, func(od, oa, ob int) {
		w := b.Data[ob]
		if conjB {
			w = cmplx.Conj(w)
		}
		dst.Data[od] += a.Data[oa] * w
	})
	return nil
}

// fastPath reports whether two shapes are identical, allowing the flat
// loop without odometer bookkeeping.
func fastPath(a, b models.Dims) bool { return a.Equal(b) }

// iterate walks the full index space of max, invoking f with the flat
// offsets of the three participating arrays at every position.
func iterate(max models.Dims, s0, s1, s2 []int, f func(o0, o1, o2 int)) {
	total := max.Size()
	pos := make([]int, len(max))
	var o0, o1, o2 int
	for i := 0; i < total; i++ {
		f(o0, o1, o2)
		for d := 0; d < len(max); d++ {
			pos[d]++
			o0 += s0[d]
			o1 += s1[d]
			o2 += s2[d]
			if pos[d] < max[d] {
				break
			}
			pos[d] = 0
			o0 -= s0[d] * max[d]
			o1 -= s1[d] * max[d]
			o2 -= s2[d] * max[d]
		}
	}
}

// CircShift writes src circularly shifted by shift[d] along each axis
// into dst. Shapes must match; shift entries may be negative.
func CircShift(dst, src *Array, shift []int) {
	if !dst.Dims.Equal(src.Dims) {
		panic(fmt.Sprintf("array: shift shape mismatch %v vs %v", dst.Dims, src.Dims))
	}
	dims := src.Dims
	strides := dims.Strides()
	norm := make([]int, len(dims))
	for d := range dims {
		if d < len(shift) {
			norm[d] = ((shift[d] % dims[d]) + dims[d]) % dims[d]
		}
	}
	total := dims.Size()
	pos := make([]int, len(dims))
	for i := 0; i < total; i++ {
		od := 0
		for d := range dims {
			od += ((pos[d] + norm[d]) % dims[d]) * strides[d]
		}
		dst.Data[od] = src.Data[i]
		for d := 0; d < len(dims); d++ {
			pos[d]++
			if pos[d] < dims[d] {
				break
			}
			pos[d] = 0
		}
	}
}
