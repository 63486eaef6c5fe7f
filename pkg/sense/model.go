// Package sense builds the multi-coil encoding operator for parallel
// MRI: sensitivity-map weighting, Fourier transform along the spatial
// axes, and restriction to the sampled k-space locations. It also
// provides the sampling-pattern and intensity-scale estimators that
// run once on the raw data.
package sense

import (
	"fmt"

	"bpsense/internal/models"
	"bpsense/pkg/array"
	"bpsense/pkg/linop"
)

// mapsOperator multiplies an image by the coil sensitivity maps,
// producing virtual per-coil images. With several ESPIRiT maps the
// forward action sums over the map axis; the adjoint sums the
// conjugate-weighted coil images back over the coil axis.
type mapsOperator struct {
	maps    *array.Array
	imgDims models.Dims
	kspDims models.Dims
}

// NewMaps returns the sensitivity operator for the given map array,
// which carries both the coil and the map axis.
func NewMaps(maps *array.Array) (linop.Operator, error) {
	if err := maps.Dims.Validate(); err != nil {
		return nil, err
	}
	img := maps.Dims.Select(^models.CoilFlag & models.AllFlags)
	ksp := maps.Dims.Select(^models.MapsFlag & models.AllFlags)
	return &mapsOperator{maps: maps, imgDims: img, kspDims: ksp}, nil
}

func (op *mapsOperator) Domain() models.Dims   { return op.imgDims }
func (op *mapsOperator) Codomain() models.Dims { return op.kspDims }

func (op *mapsOperator) Apply(dst, src *array.Array) {
	dst.Clear()
	if err := array.FMAcc(dst, src, op.maps, false); err != nil {
		panic(err)
	}
}

func (op *mapsOperator) Adjoint(dst, src *array.Array) {
	dst.Clear()
	if err := array.FMAcc(dst, src, op.maps, true); err != nil {
		panic(err)
	}
}

// NewSampling returns the diagonal restriction operator defined by the
// sampling pattern, broadcast over the coil axis. The pattern is
// real-valued, so the operator is self-adjoint.
func NewSampling(kspDims models.Dims, pattern *array.Array) (linop.Operator, error) {
	return linop.NewDiag(kspDims, pattern)
}

// NewEncoding composes the full encoding operator A = P F S mapping an
// image-space array to sampled multi-coil k-space. The Fourier stage
// is uncentered: callers un-center their data with linop.FFTMod once,
// as the reconstruction driver does.
func NewEncoding(maps, pattern *array.Array, kspDims models.Dims) (linop.Operator, error) {
	if err := kspDims.Validate(); err != nil {
		return nil, err
	}
	if !maps.Dims.EqualOn(kspDims, models.SpatialFlags|models.CoilFlag) {
		return nil, fmt.Errorf("sense: map dims %v do not match k-space dims %v on spatial/coil axes",
			maps.Dims, kspDims)
	}
	if kspDims[models.DimMaps] != 1 {
		return nil, fmt.Errorf("sense: k-space carries %d maps, want 1", kspDims[models.DimMaps])
	}
	s, err := NewMaps(maps)
	if err != nil {
		return nil, err
	}
	f := linop.NewFourier(kspDims, models.SpatialFlags)
	p, err := NewSampling(kspDims, pattern)
	if err != nil {
		return nil, err
	}
	return linop.NewChain(s, f, p)
}

// ImageDims returns the image-space shape implied by a sensitivity-map
// shape: the coil axis collapsed, the map axis kept.
func ImageDims(mapDims models.Dims) models.Dims {
	return mapDims.Select(^models.CoilFlag & models.AllFlags)
}
