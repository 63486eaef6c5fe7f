package sense

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"bpsense/internal/models"
	"bpsense/pkg/array"
)

// EstimatePattern derives the sampling pattern from k-space data: the
// coil axis is collapsed and a location is marked 1 if any coil holds
// nonzero signal there, 0 otherwise.
func EstimatePattern(ksp *array.Array) *array.Array {
	patDims := ksp.Dims.Select(^models.CoilFlag & models.AllFlags)
	pat := array.New(patDims)

	dims := ksp.Dims
	pstrides := patDims.Strides()
	total := dims.Size()
	pos := make([]int, len(dims))
	off := 0
	for i := 0; i < total; i++ {
		if ksp.Data[i] != 0 {
			pat.Data[off] = 1
		}
		for d := 0; d < len(dims); d++ {
			pos[d]++
			if d != models.DimCoil {
				off += pstrides[d]
			}
			if pos[d] < dims[d] {
				break
			}
			pos[d] = 0
			if d != models.DimCoil {
				off -= pstrides[d] * dims[d]
			}
		}
	}
	return pat
}

// NumSamples returns the number of acquired locations in a pattern,
// computed as the squared norm so continuous patterns degrade
// gracefully.
func NumSamples(pattern *array.Array) int {
	n := pattern.Norm()
	return int(n*n + 0.5)
}

// ScaleEstimator computes a positive intensity scale from k-space
// data, or 0 to disable scaling. Estimators must be 1-homogeneous so
// that re-estimating on already-scaled data yields approximately 1.
type ScaleEstimator func(ksp *array.Array) float64

// DefaultScaleEstimator returns the 90th-percentile magnitude of the
// nonzero k-space samples. Dividing the data by this value brings the
// bulk of the signal near unity, which keeps the fixed soft-threshold
// levels of the solver meaningful across differently scaled inputs.
func DefaultScaleEstimator(ksp *array.Array) float64 {
	mags := make([]float64, 0, len(ksp.Data))
	for _, v := range ksp.Data {
		if v != 0 {
			re, im := real(v), imag(v)
			mags = append(mags, re*re+im*im)
		}
	}
	if len(mags) == 0 {
		return 0
	}
	sort.Float64s(mags)
	q := stat.Quantile(0.9, stat.Empirical, mags, nil)
	if q <= 0 {
		return 0
	}
	// mags holds squared magnitudes to avoid a sqrt per sample.
	return math.Sqrt(q)
}
