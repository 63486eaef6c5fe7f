package iter

import (
	"math"
	"math/cmplx"
	"testing"

	"golang.org/x/exp/rand"

	"bpsense/internal/models"
	"bpsense/pkg/array"
)

func randomArray(dims models.Dims, seed uint64) *array.Array {
	rng := rand.New(rand.NewSource(seed))
	a := array.New(dims)
	for i := range a.Data {
		a.Data[i] = complex(rng.Float64()-0.5, rng.Float64()-0.5)
	}
	return a
}

// TestCGDiagonalSystem verifies the solver against the closed-form
// solution of a positive diagonal system
func TestCGDiagonalSystem(t *testing.T) {
	dims := models.MakeDims(16)
	d := make([]float64, 16)
	for i := range d {
		d[i] = 1 + float64(i)/4
	}
	apply := func(dst, src *array.Array) {
		for i := range src.Data {
			dst.Data[i] = src.Data[i] * complex(d[i], 0)
		}
	}

	rhs := randomArray(dims, 37)
	x := array.New(dims)
	res := SolveCG(apply, x, rhs, 100, 1e-12)

	if !res.Converged {
		t.Fatalf("Solver did not converge, residual %v", res.Residual)
	}
	for i := range x.Data {
		want := rhs.Data[i] / complex(d[i], 0)
		if cmplx.Abs(x.Data[i]-want) > 1e-9 {
			t.Fatalf("Element %d: got %v, want %v", i, x.Data[i], want)
		}
	}
}

// TestCGZeroRHS verifies that a zero right-hand side clears the
// iterate and reports convergence immediately
func TestCGZeroRHS(t *testing.T) {
	dims := models.MakeDims(8)
	x := randomArray(dims, 41)
	apply := func(dst, src *array.Array) { dst.CopyFrom(src) }

	res := SolveCG(apply, x, array.New(dims), 10, 1e-6)
	if !res.Converged || res.Iterations != 0 {
		t.Errorf("Expected immediate convergence, got %+v", res)
	}
	if x.Norm() != 0 {
		t.Errorf("Iterate not cleared, norm %v", x.Norm())
	}
}

// TestCGWarmStart verifies that starting at the exact solution needs
// no iterations
func TestCGWarmStart(t *testing.T) {
	dims := models.MakeDims(8)
	apply := func(dst, src *array.Array) {
		dst.CopyFrom(src)
		dst.Scale(3)
	}

	rhs := randomArray(dims, 43)
	x := rhs.Clone()
	x.Scale(complex(1.0/3, 0))
	res := SolveCG(apply, x, rhs, 10, 1e-10)

	if !res.Converged || res.Iterations != 0 {
		t.Errorf("Expected zero iterations from the solution, got %+v", res)
	}
}

// TestCGBudgetExhaustion verifies that running out of iterations is
// reported without being treated as an error
func TestCGBudgetExhaustion(t *testing.T) {
	dims := models.MakeDims(32)
	rng := rand.New(rand.NewSource(47))
	d := make([]float64, 32)
	for i := range d {
		d[i] = 0.01 + rng.Float64()*100
	}
	apply := func(dst, src *array.Array) {
		for i := range src.Data {
			dst.Data[i] = src.Data[i] * complex(d[i], 0)
		}
	}

	rhs := randomArray(dims, 53)
	x := array.New(dims)
	res := SolveCG(apply, x, rhs, 2, 1e-14)

	if res.Converged {
		t.Fatalf("Ill-conditioned system converged in 2 iterations")
	}
	if res.Iterations != 2 {
		t.Errorf("Expected 2 iterations, got %d", res.Iterations)
	}
	if math.IsNaN(res.Residual) || res.Residual <= 0 {
		t.Errorf("Implausible residual %v", res.Residual)
	}
}

// TestCGRelativeTolerance verifies that the stopping test scales with
// the right-hand side
func TestCGRelativeTolerance(t *testing.T) {
	dims := models.MakeDims(8)
	apply := func(dst, src *array.Array) { dst.CopyFrom(src) }

	rhs := randomArray(dims, 59)
	rhs.Scale(1e6)
	x := array.New(dims)
	res := SolveCG(apply, x, rhs, 10, 1e-6)

	if !res.Converged {
		t.Fatalf("Identity system did not converge: %+v", res)
	}
	if res.Residual > 1e-6*rhs.Norm() {
		t.Errorf("Residual %v above relative tolerance", res.Residual)
	}
}
