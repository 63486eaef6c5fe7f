// Package recon drives the basis pursuit denoising reconstruction:
//
//	min_x ||T x||_1 + lambda/2 ||x||_2^2  s.t.  ||y - A x||_2 <= eps
//
// It estimates the sampling pattern and intensity scale from the raw
// k-space, composes the encoding operator from the sensitivity maps,
// selects the sparsifying transform and its proximal operator, and
// runs the ADMM solver.
package recon

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"bpsense/internal/models"
	"bpsense/pkg/array"
	"bpsense/pkg/iter"
	"bpsense/pkg/linop"
	"bpsense/pkg/sense"
	"bpsense/pkg/thresh"
	"bpsense/pkg/tv"
	"bpsense/pkg/wavelet"
)

// Params holds the reconstruction configuration. A Params value is
// constructed once per run from the defaults plus user options and is
// not mutated while solving.
type Params struct {
	// Lambda is the l2 regularization weight; 0 disables the ridge.
	Lambda float64

	// Eps is the data-consistency tolerance ||y - Ax|| <= Eps.
	Eps float64

	// Rho is the ADMM penalty parameter.
	Rho float64

	// MaxIter bounds the outer ADMM iterations.
	MaxIter int

	// MaxCGIter bounds each inner conjugate-gradient solve.
	MaxCGIter int

	// CGTol is the inner solve's relative residual tolerance.
	CGTol float64

	// RealValueConstraint projects the image onto real values after
	// every x-update.
	RealValueConstraint bool

	// UseTotalVariation selects the TV transform; the default is the
	// wavelet transform.
	UseTotalVariation bool

	// WaveletMinSize is the minimum wavelet block size per spatial
	// axis, clamped per axis to the image extent.
	WaveletMinSize int

	// RandomShift cycles the wavelet grid randomly per thresholding
	// call to reduce blocking artifacts. The shifts make output
	// depend on Seed; tests fix Seed for reproducibility.
	RandomShift bool

	// Seed seeds the random shift generator.
	Seed uint64

	// ScaleEstimator overrides the intensity scale heuristic; nil
	// selects sense.DefaultScaleEstimator.
	ScaleEstimator sense.ScaleEstimator

	// Verbose enables progress output.
	Verbose bool
}

// DefaultParams returns the standard configuration.
func DefaultParams() Params {
	return Params{
		Lambda:         0,
		Eps:            0,
		Rho:            iter.DefaultADMMConfig.Rho,
		MaxIter:        iter.DefaultADMMConfig.MaxIter,
		MaxCGIter:      iter.DefaultADMMConfig.MaxCGIter,
		CGTol:          iter.DefaultADMMConfig.CGTol,
		WaveletMinSize: 16,
		RandomShift:    true,
		Seed:           1,
		Verbose:        true,
	}
}

// Report collects the diagnostic output of a run. It is informational
// only; nothing downstream consumes it.
type Report struct {
	// Size is the number of image-space locations, Samples the number
	// of acquired k-space locations, and Acceleration their ratio.
	Size         int
	Samples      int
	Acceleration float64

	// Scaling is the estimated intensity scale divided out of the
	// data before solving.
	Scaling float64

	Iterations   int
	CGIterations int
	Elapsed      time.Duration

	// Objective is the l1 norm of the transformed solution, in the
	// scaled units the solver works in.
	Objective float64

	// RelativeError compares against the ground-truth image when one
	// was supplied.
	RelativeError float64
	HasTruth      bool
}

// Reconstructor runs the pipeline for one dataset.
type Reconstructor struct {
	params Params
	report Report
}

// NewReconstructor returns a reconstructor for the given parameters.
func NewReconstructor(params Params) *Reconstructor {
	return &Reconstructor{params: params}
}

// Report returns the diagnostics of the last Process call.
func (r *Reconstructor) Report() Report { return r.report }

// Process reconstructs an image from multi-coil k-space data and
// sensitivity maps. A nil pattern is estimated from the data; a
// supplied pattern is used verbatim without compatibility checks. The
// optional truth image is used for diagnostics only and never feeds
// back into the optimization. The k-space and map arrays are
// un-centered and rescaled in place.
func (r *Reconstructor) Process(ksp, maps, pattern, truth *array.Array) (*array.Array, error) {
	start := time.Now()

	if err := r.validate(ksp, maps); err != nil {
		return nil, err
	}

	imgDims := sense.ImageDims(maps.Dims)
	patDims := maps.Dims.Select(^(models.CoilFlag | models.MapsFlag) & models.AllFlags)

	if maps.Dims[models.DimMaps] > 1 {
		r.logf("%d maps.\nESPIRiT reconstruction.\n", maps.Dims[models.DimMaps])
	}
	if r.params.Lambda > 0 {
		r.logf("l2 regularization: %f\n", r.params.Lambda)
	}
	if r.params.UseTotalVariation {
		r.logf("use Total Variation\n")
	} else {
		r.logf("use Wavelets\n")
	}
	if truth != nil {
		r.logf("Compare to truth\n")
	}

	if pattern == nil {
		pattern = sense.EstimatePattern(ksp)
	}

	size := patDims.Size()
	samples := sense.NumSamples(pattern)
	accel := 0.0
	if samples > 0 {
		accel = float64(size) / float64(samples)
	}
	r.logf("Size: %d Samples: %d Acc: %.2f\n", size, samples, accel)

	// Un-center the data so the operator can use plain transforms.
	linop.FFTMod(ksp, models.SpatialFlags)
	linop.FFTMod(maps, models.SpatialFlags)

	estimator := r.params.ScaleEstimator
	if estimator == nil {
		estimator = sense.DefaultScaleEstimator
	}
	scaling := estimator(ksp)
	r.logf("Scaling: %f\n", scaling)
	if scaling != 0 {
		ksp.Scale(complex(1/scaling, 0))
	}

	encode, err := sense.NewEncoding(maps, pattern, ksp.Dims)
	if err != nil {
		return nil, err
	}

	sparsity, prox, objective, err := r.buildSparsity(imgDims)
	if err != nil {
		return nil, err
	}

	image := array.New(imgDims)

	conf := iter.DefaultADMMConfig
	conf.Rho = r.params.Rho
	conf.MaxIter = r.params.MaxIter
	conf.MaxCGIter = r.params.MaxCGIter
	conf.CGTol = r.params.CGTol

	ops := []linop.Operator{sparsity, encode}
	proxes := []thresh.Proximal{prox, thresh.NewL2BallProj(ksp, r.params.Eps)}

	admm, err := iter.SolveADMM(conf, image, ops, proxes,
		r.params.Lambda, r.params.RealValueConstraint, nil)
	if err != nil {
		return nil, err
	}

	// Sparsity objective of the final iterate, before rescaling.
	coeffs := array.New(objective.Codomain())
	objective.Apply(coeffs, image)
	obj := coeffs.SumAbs()
	r.logf("Objective: %f\n", obj)

	// Restore the original intensity units.
	if scaling != 0 {
		image.Scale(complex(scaling, 0))
	}

	r.report = Report{
		Size:         size,
		Samples:      samples,
		Acceleration: accel,
		Scaling:      scaling,
		Iterations:   admm.Iterations,
		CGIterations: admm.CGIterations,
		Elapsed:      time.Since(start),
		Objective:    obj,
	}

	if truth != nil {
		if !truth.Dims.Equal(imgDims) {
			return nil, fmt.Errorf("recon: truth dims %v do not match image dims %v", truth.Dims, imgDims)
		}
		r.report.HasTruth = true
		r.report.RelativeError = RelativeError(image, truth)
		r.logf("Relative error to truth: %f\n", r.report.RelativeError)
	}
	r.logf("Total Time: %f s\n", r.report.Elapsed.Seconds())

	return image, nil
}

// validate checks the configuration-level shape invariants that must
// hold before any optimization work begins.
func (r *Reconstructor) validate(ksp, maps *array.Array) error {
	if err := ksp.Dims.Validate(); err != nil {
		return err
	}
	if err := maps.Dims.Validate(); err != nil {
		return err
	}
	if !ksp.Dims.EqualOn(maps.Dims, models.SpatialFlags|models.CoilFlag) {
		return fmt.Errorf("recon: dimensions of kspace %v and sensitivities %v do not match",
			ksp.Dims, maps.Dims)
	}
	if ksp.Dims[models.DimMaps] != 1 {
		return fmt.Errorf("recon: kspace carries %d maps, want 1", ksp.Dims[models.DimMaps])
	}
	if r.params.MaxIter < 0 {
		return fmt.Errorf("recon: negative iteration budget %d", r.params.MaxIter)
	}
	return nil
}

// buildSparsity returns the analysis operator, its matching proximal
// operator, and the transform used to evaluate the l1 objective. For
// wavelets the analysis operator is the identity; the transform itself
// lives inside the thresholding step.
func (r *Reconstructor) buildSparsity(imgDims models.Dims) (linop.Operator, thresh.Proximal, linop.Operator, error) {
	if r.params.UseTotalVariation {
		grad, err := tv.NewGrad(imgDims, models.SpatialFlags)
		if err != nil {
			return nil, nil, nil, err
		}
		return grad, thresh.NewSoftThresh(), grad, nil
	}

	minSize := r.params.WaveletMinSize
	if minSize <= 0 {
		minSize = 16
	}
	wt, err := wavelet.NewTransform(imgDims, models.SpatialFlags, minSize)
	if err != nil {
		return nil, nil, nil, err
	}
	var rng *rand.Rand
	if r.params.RandomShift {
		rng = rand.New(rand.NewSource(r.params.Seed))
	}
	prox := thresh.NewWaveletThresh(wt, models.SpatialFlags, minSize, rng)
	return linop.NewIdentity(imgDims), prox, wavelet.NewOperator(wt), nil
}

func (r *Reconstructor) logf(format string, args ...any) {
	if r.params.Verbose {
		fmt.Printf(format, args...)
	}
}
