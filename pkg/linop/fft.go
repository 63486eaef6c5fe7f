package linop

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"bpsense/internal/models"
	"bpsense/pkg/array"
)

// Fourier is a unitary discrete Fourier transform along a set of
// flagged axes. The transform is uncentered; callers working with
// centered k-space apply FFTMod to their data once up front, or use
// NewCenteredFourier.
type Fourier struct {
	dims    models.Dims
	flags   models.Flags
	inverse bool
	plans   map[int]*fourier.CmplxFFT
}

// NewFourier returns the forward transform along the flagged axes of
// the given shape.
func NewFourier(dims models.Dims, flags models.Flags) *Fourier {
	return newFourier(dims, flags, false)
}

// NewInverseFourier returns the inverse transform, the adjoint of
// NewFourier on the same shape.
func NewInverseFourier(dims models.Dims, flags models.Flags) *Fourier {
	return newFourier(dims, flags, true)
}

func newFourier(dims models.Dims, flags models.Flags, inverse bool) *Fourier {
	f := &Fourier{
		dims:    dims.Clone(),
		flags:   flags,
		inverse: inverse,
		plans:   make(map[int]*fourier.CmplxFFT),
	}
	for d, n := range dims {
		if flags.Has(d) && n > 1 {
			if _, ok := f.plans[n]; !ok {
				f.plans[n] = fourier.NewCmplxFFT(n)
			}
		}
	}
	return f
}

func (f *Fourier) Domain() models.Dims   { return f.dims }
func (f *Fourier) Codomain() models.Dims { return f.dims }

func (f *Fourier) Apply(dst, src *array.Array) {
	dst.CopyFrom(src)
	f.transform(dst, f.inverse)
}

func (f *Fourier) Adjoint(dst, src *array.Array) {
	dst.CopyFrom(src)
	f.transform(dst, !f.inverse)
}

// transform runs the flagged-axis sweeps in place. Unitary scaling is
// applied per axis so that apply followed by adjoint is the identity.
func (f *Fourier) transform(a *array.Array, inverse bool) {
	for d, n := range a.Dims {
		if f.flags.Has(d) && n > 1 {
			f.transformAxis(a, d, inverse)
		}
	}
}

func (f *Fourier) transformAxis(a *array.Array, d int, inverse bool) {
	dims := a.Dims
	n := dims[d]
	plan := f.plans[n]
	stride := dims.Strides()[d]
	scale := complex(1/math.Sqrt(float64(n)), 0)

	line := make([]complex128, n)
	out := make([]complex128, n)

	// Walk every line along axis d: iterate the index space with axis d
	// collapsed and gather with the axis stride.
	outer := dims.Clone()
	outer[d] = 1
	total := outer.Size()
	strides := dims.Strides()
	pos := make([]int, len(dims))
	base := 0
	for i := 0; i < total; i++ {
		for j := 0; j < n; j++ {
			line[j] = a.Data[base+j*stride]
		}
		if inverse {
			plan.Sequence(out, line)
		} else {
			plan.Coefficients(out, line)
		}
		for j := 0; j < n; j++ {
			a.Data[base+j*stride] = out[j] * scale
		}
		for dd := 0; dd < len(dims); dd++ {
			if dd == d {
				continue
			}
			pos[dd]++
			base += strides[dd]
			if pos[dd] < dims[dd] {
				break
			}
			pos[dd] = 0
			base -= strides[dd] * dims[dd]
		}
	}
}

// FFTMod multiplies a by the alternating-phase modulation along the
// flagged axes, converting between centered and uncentered transform
// conventions without explicit shifts. For even axis sizes this is the
// (-1)^k checkerboard and is self-inverse.
func FFTMod(a *array.Array, flags models.Flags) {
	dims := a.Dims
	strides := dims.Strides()
	for d, n := range dims {
		if !flags.Has(d) || n <= 1 {
			continue
		}
		phase := make([]complex128, n)
		for k := 0; k < n; k++ {
			if n%2 == 0 {
				if k%2 == 0 {
					phase[k] = 1
				} else {
					phase[k] = -1
				}
			} else {
				phase[k] = cmplx.Exp(complex(0, 2*math.Pi*float64(k)*float64(n/2)/float64(n)))
			}
		}
		stride := strides[d]
		outer := dims.Clone()
		outer[d] = 1
		total := outer.Size()
		pos := make([]int, len(dims))
		base := 0
		for i := 0; i < total; i++ {
			for k := 0; k < n; k++ {
				a.Data[base+k*stride] *= phase[k]
			}
			for dd := 0; dd < len(dims); dd++ {
				if dd == d {
					continue
				}
				pos[dd]++
				base += strides[dd]
				if pos[dd] < dims[dd] {
					break
				}
				pos[dd] = 0
				base -= strides[dd] * dims[dd]
			}
		}
	}
}

// NewCenteredFourier returns the centered unitary transform, built by
// chaining modulation, the uncentered transform, and modulation again.
func NewCenteredFourier(dims models.Dims, flags models.Flags) (Operator, error) {
	mod := newModOperator(dims, flags)
	return NewChain(mod, NewFourier(dims, flags), mod)
}

type modOperator struct {
	dims  models.Dims
	flags models.Flags
}

func newModOperator(dims models.Dims, flags models.Flags) Operator {
	return &modOperator{dims: dims.Clone(), flags: flags}
}

func (op *modOperator) Domain() models.Dims   { return op.dims }
func (op *modOperator) Codomain() models.Dims { return op.dims }

func (op *modOperator) Apply(dst, src *array.Array) {
	dst.CopyFrom(src)
	FFTMod(dst, op.flags)
}

func (op *modOperator) Adjoint(dst, src *array.Array) {
	dst.CopyFrom(src)
	// The modulation is diagonal with unit-magnitude entries; the
	// adjoint conjugates the phase, which for even sizes is identical.
	conjFFTMod(dst, op.flags)
}

func conjFFTMod(a *array.Array, flags models.Flags) {
	for i, v := range a.Data {
		a.Data[i] = cmplx.Conj(v)
	}
	FFTMod(a, flags)
	for i, v := range a.Data {
		a.Data[i] = cmplx.Conj(v)
	}
}
