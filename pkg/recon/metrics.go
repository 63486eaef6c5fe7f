package recon

import (
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"bpsense/pkg/array"
)

// RelativeError returns ||x - truth|| / ||truth||. A zero truth image
// yields the absolute norm of x instead.
func RelativeError(x, truth *array.Array) float64 {
	diff := x.Clone()
	diff.Sub(truth)
	tn := truth.Norm()
	if tn == 0 {
		return diff.Norm()
	}
	return diff.Norm() / tn
}

// MagnitudeCorrelation returns the Pearson correlation between the
// voxel magnitudes of two images, a scale-insensitive similarity
// diagnostic.
func MagnitudeCorrelation(x, truth *array.Array) float64 {
	xm := magnitudes(x)
	tm := magnitudes(truth)
	if floats.Equal(xm, tm) {
		return 1
	}
	return stat.Correlation(xm, tm, nil)
}

func magnitudes(a *array.Array) []float64 {
	m := make([]float64, len(a.Data))
	for i, v := range a.Data {
		m[i] = cmplx.Abs(v)
	}
	return m
}
