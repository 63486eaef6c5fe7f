// Package wavelet implements a multi-level CDF 9/7 wavelet transform
// over the flagged axes of a complex array, the sparsifying transform
// used by the reconstruction when total variation is not selected.
// The transform is computed by lifting and is exactly invertible.
package wavelet

import (
	"fmt"

	"bpsense/internal/models"
	"bpsense/pkg/array"
	"bpsense/pkg/linop"
)

// CDF 9/7 lifting coefficients.
const (
	liftAlpha = -1.5861343420693648
	liftBeta  = -0.0529801185718856
	liftGamma = 0.8829110755411875
	liftDelta = 0.4435068520511142
	liftZeta  = 1.1496043988602418
)

// step records one lifting pass: the axis and the current length of
// the low band along it.
type step struct {
	axis int
	n    int
}

// Transform is a multi-level wavelet transform on a fixed shape.
type Transform struct {
	dims     models.Dims
	schedule []step
	// region after each scheduled step, used to bound deeper levels.
	low models.Dims
}

// NewTransform builds the transform for the given shape. Decomposition
// along an axis recurses while the low band stays at least minSize
// long and even; axes not in flags or of size 1 are untouched. The
// block floor clamps per axis to the axis extent, so a small axis
// never deepens the decomposition on the larger ones.
func NewTransform(dims models.Dims, flags models.Flags, minSize int) (*Transform, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	if minSize < 2 {
		return nil, fmt.Errorf("wavelet: minimum block size %d too small", minSize)
	}
	floor := make([]int, len(dims))
	for d, n := range dims {
		floor[d] = minSize
		if n < minSize {
			floor[d] = n
		}
	}
	t := &Transform{dims: dims.Clone(), low: dims.Clone()}
	for {
		progressed := false
		for d, n := range t.low {
			if !flags.Has(d) || n < 2*floor[d] || n%2 != 0 {
				continue
			}
			t.schedule = append(t.schedule, step{axis: d, n: n})
			t.low[d] = n / 2
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return t, nil
}

// Dims returns the transform shape. Coefficients occupy the same shape
// as the input, arranged in-place band by band.
func (t *Transform) Dims() models.Dims { return t.dims }

// Forward computes the wavelet coefficients of a in place.
func (t *Transform) Forward(a *array.Array) {
	t.check(a)
	region := t.dims.Clone()
	for _, s := range t.schedule {
		region[s.axis] = s.n
		t.liftAxis(a, s.axis, s.n, region, false)
		region[s.axis] = s.n / 2
	}
}

// Inverse reconstructs the signal from its coefficients in place.
func (t *Transform) Inverse(a *array.Array) {
	t.check(a)
	// Rebuild the per-step regions, then replay backwards.
	regions := make([]models.Dims, len(t.schedule))
	region := t.dims.Clone()
	for i, s := range t.schedule {
		region[s.axis] = s.n
		regions[i] = region.Clone()
		region[s.axis] = s.n / 2
	}
	for i := len(t.schedule) - 1; i >= 0; i-- {
		s := t.schedule[i]
		t.liftAxis(a, s.axis, s.n, regions[i], true)
	}
}

func (t *Transform) check(a *array.Array) {
	if !a.Dims.Equal(t.dims) {
		panic(fmt.Sprintf("wavelet: shape mismatch %v vs %v", a.Dims, t.dims))
	}
}

// liftAxis runs one lifting pass of length n along axis d for every
// line inside region.
func (t *Transform) liftAxis(a *array.Array, d, n int, region models.Dims, inverse bool) {
	strides := a.Dims.Strides()
	stride := strides[d]
	outer := region.Clone()
	outer[d] = 1
	total := outer.Size()
	pos := make([]int, len(region))
	line := make([]complex128, n)
	base := 0
	for i := 0; i < total; i++ {
		for j := 0; j < n; j++ {
			line[j] = a.Data[base+j*stride]
		}
		if inverse {
			inverseLine(line)
		} else {
			forwardLine(line)
		}
		for j := 0; j < n; j++ {
			a.Data[base+j*stride] = line[j]
		}
		for dd := 0; dd < len(region); dd++ {
			if dd == d {
				continue
			}
			pos[dd]++
			base += strides[dd]
			if pos[dd] < outer[dd] {
				break
			}
			pos[dd] = 0
			base -= strides[dd] * outer[dd]
		}
	}
}

// forwardLine lifts one even-length line: predict/update pairs, band
// scaling, then deinterleaving into low | high halves.
func forwardLine(x []complex128) {
	n := len(x)
	lift(x, liftAlpha, true)
	lift(x, liftBeta, false)
	lift(x, liftGamma, true)
	lift(x, liftDelta, false)
	for i := 0; i < n; i += 2 {
		x[i] *= complex(liftZeta, 0)
	}
	for i := 1; i < n; i += 2 {
		x[i] *= complex(1/liftZeta, 0)
	}
	tmp := make([]complex128, n)
	for i := 0; i < n/2; i++ {
		tmp[i] = x[2*i]
		tmp[n/2+i] = x[2*i+1]
	}
	copy(x, tmp)
}

// inverseLine undoes forwardLine exactly.
func inverseLine(x []complex128) {
	n := len(x)
	tmp := make([]complex128, n)
	for i := 0; i < n/2; i++ {
		tmp[2*i] = x[i]
		tmp[2*i+1] = x[n/2+i]
	}
	copy(x, tmp)
	for i := 0; i < n; i += 2 {
		x[i] *= complex(1/liftZeta, 0)
	}
	for i := 1; i < n; i += 2 {
		x[i] *= complex(liftZeta, 0)
	}
	lift(x, -liftDelta, false)
	lift(x, -liftGamma, true)
	lift(x, -liftBeta, false)
	lift(x, -liftAlpha, true)
}

// lift adds c*(left+right neighbor) to the odd (predict) or even
// (update) samples, with symmetric boundary extension.
func lift(x []complex128, c float64, odd bool) {
	n := len(x)
	cc := complex(c, 0)
	start := 0
	if odd {
		start = 1
	}
	for i := start; i < n; i += 2 {
		l := i - 1
		r := i + 1
		if l < 0 {
			l = 1
		}
		if r >= n {
			r = n - 2
		}
		x[i] += cc * (x[l] + x[r])
	}
}

// operator adapts a Transform to the linear-operator interface so it
// can participate in operator chains and objective evaluation.
type operator struct {
	t *Transform
}

// NewOperator wraps the transform as a linear operator. The inverse is
// the true inverse rather than the adjoint; for CDF 9/7 the two agree
// closely enough for the thresholding use made of it here, matching
// the behavior of the lifting-based transform this is modeled on.
func NewOperator(t *Transform) linop.Operator {
	return &operator{t: t}
}

func (op *operator) Domain() models.Dims   { return op.t.Dims() }
func (op *operator) Codomain() models.Dims { return op.t.Dims() }

func (op *operator) Apply(dst, src *array.Array) {
	dst.CopyFrom(src)
	op.t.Forward(dst)
}

func (op *operator) Adjoint(dst, src *array.Array) {
	dst.CopyFrom(src)
	op.t.Inverse(dst)
}
