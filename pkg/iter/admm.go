package iter

import (
	"fmt"
	"math"

	"bpsense/pkg/array"
	"bpsense/pkg/linop"
	"bpsense/pkg/thresh"
)

// ADMMConfig controls the outer ADMM loop and its inner CG solves.
// The penalty rho stays fixed for the whole run; there is no adaptive
// re-balancing.
type ADMMConfig struct {
	// Rho is the ADMM penalty parameter.
	Rho float64

	// MaxIter bounds the outer iterations. Zero returns the initial
	// estimate untouched.
	MaxIter int

	// MaxCGIter bounds each inner conjugate-gradient solve. Running
	// out of inner iterations degrades quality silently.
	MaxCGIter int

	// CGTol is the relative residual tolerance of the inner solve.
	CGTol float64

	// AbsTol, when positive, stops the loop early once the primal
	// residual falls below it. Zero keeps the fixed budget.
	AbsTol float64
}

// DefaultADMMConfig holds the solver defaults; per-run configurations
// start from a copy of this value.
var DefaultADMMConfig = ADMMConfig{
	Rho:       10,
	MaxIter:   100,
	MaxCGIter: 10,
	CGTol:     1e-3,
	AbsTol:    0,
}

// ADMMReport summarizes a finished run.
type ADMMReport struct {
	Iterations     int
	CGIterations   int
	PrimalResidual float64
}

// IterFunc, when non-nil, observes each finished outer iteration. It
// must not mutate solver state.
type IterFunc func(iter int, x *array.Array)

// SolveADMM minimizes
//
//	sum_i g_i(G_i x) + lambda/2 ||x||^2
//
// by scaled-dual ADMM, where g_i is represented by its proximal
// operator proxes[i] and G_i by ops[i]. The x-update solves the
// normal equations (sum_i G_i^H G_i + (lambda/rho) I) x = rhs with
// CG; with realConstraint set, x is projected onto real-valued images
// after every update. All operators must share x's shape as domain;
// a mismatch is a configuration error reported before any iteration.
func SolveADMM(conf ADMMConfig, x *array.Array, ops []linop.Operator, proxes []thresh.Proximal,
	lambda float64, realConstraint bool, observe IterFunc) (ADMMReport, error) {

	if len(ops) == 0 || len(ops) != len(proxes) {
		return ADMMReport{}, fmt.Errorf("iter: %d operators vs %d proximal operators", len(ops), len(proxes))
	}
	for i, op := range ops {
		if !op.Domain().Equal(x.Dims) {
			return ADMMReport{}, fmt.Errorf("iter: operator %d domain %v does not match image dims %v",
				i, op.Domain(), x.Dims)
		}
	}
	if conf.Rho <= 0 {
		return ADMMReport{}, fmt.Errorf("iter: non-positive penalty rho %v", conf.Rho)
	}

	n := len(ops)
	z := make([]*array.Array, n)
	u := make([]*array.Array, n)
	gx := make([]*array.Array, n)
	w := make([]*array.Array, n)
	for i, op := range ops {
		cod := op.Codomain()
		z[i] = array.New(cod)
		u[i] = array.New(cod)
		gx[i] = array.New(cod)
		w[i] = array.New(cod)
		op.Apply(z[i], x)
	}

	rhs := array.New(x.Dims)
	dom := array.New(x.Dims)
	ridge := 0.0
	if lambda > 0 {
		ridge = lambda / conf.Rho
	}

	normal := func(dst, src *array.Array) {
		dst.Clear()
		for i, op := range ops {
			op.Apply(w[i], src)
			op.Adjoint(dom, w[i])
			dst.Add(dom)
		}
		if ridge > 0 {
			dst.AddScaled(complex(ridge, 0), src)
		}
	}

	report := ADMMReport{}
	for k := 0; k < conf.MaxIter; k++ {
		// x-update: CG on the stacked normal equations, warm-started
		// from the previous iterate.
		rhs.Clear()
		for i, op := range ops {
			w[i].CopyFrom(z[i])
			w[i].Sub(u[i])
			op.Adjoint(dom, w[i])
			rhs.Add(dom)
		}
		cg := SolveCG(normal, x, rhs, conf.MaxCGIter, conf.CGTol)
		report.CGIterations += cg.Iterations
		if realConstraint {
			x.Real()
		}

		// z- and dual updates per constraint block.
		primal := 0.0
		for i, op := range ops {
			op.Apply(gx[i], x)
			w[i].CopyFrom(gx[i])
			w[i].Add(u[i])
			proxes[i].Apply(1/conf.Rho, z[i], w[i])
			// u += Gx - z
			u[i].Add(gx[i])
			u[i].Sub(z[i])

			w[i].CopyFrom(gx[i])
			w[i].Sub(z[i])
			r := w[i].Norm()
			primal += r * r
		}
		report.Iterations = k + 1
		report.PrimalResidual = math.Sqrt(primal)

		if observe != nil {
			observe(k, x)
		}
		if conf.AbsTol > 0 && report.PrimalResidual <= conf.AbsTol {
			break
		}
	}
	return report, nil
}
