package tv

import (
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

// TestGradConstant verifies that a constant image has zero gradient
// under the circular difference
func TestGradConstant(t *testing.T) {
	dims := models.MakeDims(4, 4)
	g, err := NewGrad(dims, models.SpatialFlags)
	if err != nil {
		t.Fatalf("NewGrad failed: %v", err)
	}

	x := array.New(dims)
	for i := range x.Data {
		x.Data[i] = complex(2, -1)
	}
	out := array.New(g.Codomain())
	g.Apply(out, x)

	if out.Norm() != 0 {
		t.Errorf("Gradient of constant has norm %v, want 0", out.Norm())
	}
}

// TestGradDirections verifies one stacked block per active axis and
// the forward-difference values along the first axis
func TestGradDirections(t *testing.T) {
	dims := models.MakeDims(4, 3)
	g, err := NewGrad(dims, models.SpatialFlags)
	if err != nil {
		t.Fatalf("NewGrad failed: %v", err)
	}

	if g.Codomain()[GradDim] != 2 {
		t.Fatalf("Expected 2 directions, got %d", g.Codomain()[GradDim])
	}

	x := array.New(dims)
	for i := range x.Data {
		x.Data[i] = complex(float64(i), 0)
	}
	out := array.New(g.Codomain())
	g.Apply(out, x)

	// First block: difference along x is 1 except at the wrap, where
	// it steps back by 3.
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			want := complex128(1)
			if col == 3 {
				want = -3
			}
			if got := out.Data[row*4+col]; got != want {
				t.Errorf("Grad x at (%d,%d): got %v, want %v", col, row, got, want)
			}
		}
	}
}

// TestGradAdjoint verifies the adjoint identity of the gradient,
// required for the normal equations to be symmetric
func TestGradAdjoint(t *testing.T) {
	dims := models.MakeDims(5, 4, 3)
	g, err := NewGrad(dims, models.SpatialFlags)
	if err != nil {
		t.Fatalf("NewGrad failed: %v", err)
	}

	x := randomArray(g.Domain(), 107)
	y := randomArray(g.Codomain(), 109)
	gx := array.New(g.Codomain())
	gty := array.New(g.Domain())
	g.Apply(gx, x)
	g.Adjoint(gty, y)

	if got := cmplx.Abs(array.Dot(gx, y) - array.Dot(x, gty)); got > 1e-10 {
		t.Errorf("Adjoint mismatch %g", got)
	}
}

// TestGradSingletonAxesSkipped verifies that size-1 axes contribute no
// direction, so a 2D slice gets a 2-direction gradient
func TestGradSingletonAxesSkipped(t *testing.T) {
	dims := models.MakeDims(8, 8, 1)
	g, err := NewGrad(dims, models.SpatialFlags)
	if err != nil {
		t.Fatalf("NewGrad failed: %v", err)
	}
	if g.Codomain()[GradDim] != 2 {
		t.Errorf("Expected 2 directions for a 2D slice, got %d", g.Codomain()[GradDim])
	}
}

// TestGradNoActiveAxes verifies construction fails when every flagged
// axis is singleton
func TestGradNoActiveAxes(t *testing.T) {
	if _, err := NewGrad(models.MakeDims(1, 1, 1), models.SpatialFlags); err == nil {
		t.Errorf("Expected error for all-singleton image")
	}
}

// TestGradStackingAxisInUse verifies rejection of inputs that already
// occupy the direction axis
func TestGradStackingAxisInUse(t *testing.T) {
	dims := models.MakeDims(4, 4)
	dims[GradDim] = 2
	if _, err := NewGrad(dims, models.SpatialFlags); err == nil {
		t.Errorf("Expected error for occupied stacking axis")
	}
}
