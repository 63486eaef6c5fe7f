// Package thresh implements the proximal operators driven by the ADMM
// solver: complex soft-thresholding (the prox of the l1 norm), the
// wavelet-domain variant with optional random shifts, and projection
// onto the data-consistency l2 ball.
package thresh

import (
	"math/cmplx"

	"golang.org/x/exp/rand"

	"bpsense/internal/models"
	"bpsense/pkg/array"
	"bpsense/pkg/wavelet"
)

// Proximal maps v to argmin_u 1/2||u-v||^2 + mu*g(u) for its penalty
// g. The per-call step mu scales the operator's unit base strength;
// construction never fixes the final threshold.
type Proximal interface {
	Apply(mu float64, dst, src *array.Array)
}

// SoftThresh is the proximal operator of lambda*||.||_1: elementwise
// complex soft-thresholding that shrinks magnitudes toward zero.
type SoftThresh struct {
	// Lambda is the base penalty weight, scaled by mu per call.
	Lambda float64
}

// NewSoftThresh returns soft-thresholding with unit base weight.
func NewSoftThresh() *SoftThresh { return &SoftThresh{Lambda: 1} }

func (s *SoftThresh) Apply(mu float64, dst, src *array.Array) {
	softThresh(mu*s.Lambda, dst.Data, src.Data)
}

func softThresh(t float64, dst, src []complex128) {
	if t <= 0 {
		copy(dst, src)
		return
	}
	for i, v := range src {
		m := cmplx.Abs(v)
		if m <= t {
			dst[i] = 0
		} else {
			dst[i] = v * complex(1-t/m, 0)
		}
	}
}

// WaveletThresh soft-thresholds in the wavelet domain: shift,
// transform, threshold, inverse transform, unshift. A non-nil random
// source draws a fresh grid shift per call to suppress blocking
// artifacts; this makes repeated runs non-deterministic unless the
// caller seeds the source.
type WaveletThresh struct {
	transform *wavelet.Transform
	flags     models.Flags
	shiftMax  int
	rng       *rand.Rand
	tmp       *array.Array
}

// NewWaveletThresh builds the wavelet thresholding operator. shiftMax
// bounds the random shift per flagged axis; rng may be nil for a
// deterministic zero shift.
func NewWaveletThresh(t *wavelet.Transform, flags models.Flags, shiftMax int, rng *rand.Rand) *WaveletThresh {
	return &WaveletThresh{
		transform: t,
		flags:     flags,
		shiftMax:  shiftMax,
		rng:       rng,
		tmp:       array.New(t.Dims()),
	}
}

func (w *WaveletThresh) Apply(mu float64, dst, src *array.Array) {
	shift := make([]int, models.N)
	if w.rng != nil && w.shiftMax > 1 {
		for d, n := range w.transform.Dims() {
			if w.flags.Has(d) && n > 1 {
				shift[d] = w.rng.Intn(w.shiftMax)
			}
		}
	}
	array.CircShift(w.tmp, src, shift)
	w.transform.Forward(w.tmp)
	softThresh(mu, w.tmp.Data, w.tmp.Data)
	w.transform.Inverse(w.tmp)
	for d := range shift {
		shift[d] = -shift[d]
	}
	array.CircShift(dst, w.tmp, shift)
}

// L2BallProj projects onto { v : ||v - Center|| <= Radius }, the
// indicator prox enforcing the data-consistency constraint. The step
// mu is irrelevant for an indicator and is ignored.
type L2BallProj struct {
	Center *array.Array
	Radius float64
}

// NewL2BallProj returns the projection onto the eps-ball around y.
func NewL2BallProj(y *array.Array, eps float64) *L2BallProj {
	return &L2BallProj{Center: y, Radius: eps}
}

func (p *L2BallProj) Apply(_ float64, dst, src *array.Array) {
	dst.CopyFrom(src)
	dst.Sub(p.Center)
	n := dst.Norm()
	if n > p.Radius {
		if n > 0 {
			dst.Scale(complex(p.Radius/n, 0))
		}
	}
	dst.Add(p.Center)
}
