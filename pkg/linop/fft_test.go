package linop

import (
	"math"
	"math/cmplx"
	"testing"

	"bpsense/internal/models"
	"bpsense/pkg/array"
)

// TestFourierRoundTrip verifies that the adjoint inverts the unitary
// forward transform
func TestFourierRoundTrip(t *testing.T) {
	dims := models.MakeDims(8, 4, 2)
	op := NewFourier(dims, models.SpatialFlags)

	x := randomArray(dims, 41)
	k := array.New(dims)
	back := array.New(dims)
	op.Apply(k, x)
	op.Adjoint(back, k)

	for i := range x.Data {
		if cmplx.Abs(back.Data[i]-x.Data[i]) > 1e-12 {
			t.Fatalf("Round trip mismatch at %d: %v vs %v", i, back.Data[i], x.Data[i])
		}
	}
}

// TestFourierUnitary verifies norm preservation, the scaling the
// solver's normal equations rely on
func TestFourierUnitary(t *testing.T) {
	dims := models.MakeDims(8, 8)
	op := NewFourier(dims, models.SpatialFlags)

	x := randomArray(dims, 43)
	k := array.New(dims)
	op.Apply(k, x)

	if math.Abs(k.Norm()-x.Norm()) > 1e-12 {
		t.Errorf("Norm changed: %v vs %v", k.Norm(), x.Norm())
	}
}

// TestFourierDelta verifies that a unit impulse at the origin
// transforms to a flat spectrum
func TestFourierDelta(t *testing.T) {
	dims := models.MakeDims(8)
	op := NewFourier(dims, models.SpatialFlags)

	x := array.New(dims)
	x.Data[0] = 1
	k := array.New(dims)
	op.Apply(k, x)

	want := 1 / math.Sqrt(8)
	for i, v := range k.Data {
		if math.Abs(real(v)-want) > 1e-12 || math.Abs(imag(v)) > 1e-12 {
			t.Fatalf("Coefficient %d: got %v, want %v", i, v, want)
		}
	}
}

// TestFourierAdjointIdentity verifies the inner-product adjoint check
// for the transform restricted to one axis
func TestFourierAdjointIdentity(t *testing.T) {
	dims := models.MakeDims(8, 4)
	op := NewFourier(dims, models.Flags(1<<models.DimY))
	if got := adjointMismatch(op, 47); got > 1e-10 {
		t.Errorf("Adjoint mismatch %g", got)
	}
}

// TestFFTModSelfInverse verifies that the even-size modulation is its
// own inverse
func TestFFTModSelfInverse(t *testing.T) {
	dims := models.MakeDims(8, 4)
	a := randomArray(dims, 53)
	orig := a.Clone()

	FFTMod(a, models.SpatialFlags)
	changed := false
	for i := range a.Data {
		if a.Data[i] != orig.Data[i] {
			changed = true
			break
		}
	}
	if !changed {
		t.Fatalf("Modulation is a no-op")
	}

	FFTMod(a, models.SpatialFlags)
	for i := range a.Data {
		if cmplx.Abs(a.Data[i]-orig.Data[i]) > 1e-14 {
			t.Fatalf("Double modulation not identity at %d", i)
		}
	}
}

// TestCenteredFourierShift verifies that the centered transform puts
// the DC coefficient of a constant image in the array center
func TestCenteredFourierShift(t *testing.T) {
	dims := models.MakeDims(8)
	op, err := NewCenteredFourier(dims, models.SpatialFlags)
	if err != nil {
		t.Fatalf("NewCenteredFourier failed: %v", err)
	}

	x := array.New(dims)
	for i := range x.Data {
		x.Data[i] = 1
	}
	k := array.New(dims)
	op.Apply(k, x)

	// All energy lands on index n/2.
	for i, v := range k.Data {
		mag := cmplx.Abs(v)
		if i == 4 {
			if math.Abs(mag-math.Sqrt(8)) > 1e-12 {
				t.Errorf("DC magnitude %v, want sqrt(8)", mag)
			}
		} else if mag > 1e-12 {
			t.Errorf("Leakage %v at index %d", mag, i)
		}
	}
}
