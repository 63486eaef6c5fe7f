// Package iter contains the iterative engines of the reconstruction:
// a conjugate-gradient solver for the inner normal-equation steps and
// the ADMM loop that alternates them with proximal updates.
package iter

import (
	"math"

	"bpsense/pkg/array"
)

// CGResult reports how an inner linear solve finished. Exhausting the
// iteration budget is not an error; the caller proceeds with the best
// available estimate.
type CGResult struct {
	Iterations int
	Converged  bool
	Residual   float64
}

// SolveCG runs conjugate gradient on the symmetric positive
// semi-definite system apply(x) = rhs, starting from the current
// contents of x. It stops after maxIter iterations or when the
// residual norm falls below tol times the right-hand-side norm.
func SolveCG(apply func(dst, src *array.Array), x, rhs *array.Array, maxIter int, tol float64) CGResult {
	rhsNorm := rhs.Norm()
	if rhsNorm == 0 {
		// Zero system: the minimum-norm solution is zero.
		x.Clear()
		return CGResult{Converged: true}
	}

	r := rhs.Clone()
	ax := array.New(x.Dims)
	apply(ax, x)
	r.Sub(ax)

	p := r.Clone()
	ap := array.New(x.Dims)
	rs := real(array.Dot(r, r))

	res := CGResult{}
	for res.Iterations < maxIter {
		if math.Sqrt(rs) <= tol*rhsNorm {
			res.Converged = true
			break
		}
		apply(ap, p)
		den := real(array.Dot(p, ap))
		if den <= 0 {
			// Numerically singular direction; keep the current iterate.
			break
		}
		alpha := rs / den
		x.AddScaled(complex(alpha, 0), p)
		r.AddScaled(complex(-alpha, 0), ap)
		rsNext := real(array.Dot(r, r))
		beta := rsNext / rs
		// p = r + beta*p
		p.Scale(complex(beta, 0))
		p.Add(r)
		rs = rsNext
		res.Iterations++
	}
	if !res.Converged && math.Sqrt(rs) <= tol*rhsNorm {
		res.Converged = true
	}
	res.Residual = math.Sqrt(rs)
	return res
}
