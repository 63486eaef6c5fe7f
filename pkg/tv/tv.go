// Package tv provides the discrete gradient operator used for total
// variation regularization: circular forward differences along the
// flagged axes, stacked on the last (otherwise unused) array axis.
package tv

import (
	"fmt"

	"bpsense/internal/models"
	"bpsense/pkg/array"
	"bpsense/pkg/linop"
)

// GradDim is the axis holding the stacked difference directions.
const GradDim = models.N - 1

// Grad is the discrete gradient linear operator.
type Grad struct {
	imgDims  models.Dims
	outDims  models.Dims
	axes     []int
	strides  []int
	imgBlock int
}

// NewGrad builds the gradient over the flagged axes of imgDims. The
// input must leave the stacking axis singleton; axes of size 1 do not
// contribute a direction.
func NewGrad(imgDims models.Dims, flags models.Flags) (*Grad, error) {
	if err := imgDims.Validate(); err != nil {
		return nil, err
	}
	if imgDims[GradDim] != 1 {
		return nil, fmt.Errorf("tv: stacking axis %d already in use (size %d)", GradDim, imgDims[GradDim])
	}
	var axes []int
	for d, n := range imgDims {
		if d != GradDim && flags.Has(d) && n > 1 {
			axes = append(axes, d)
		}
	}
	if len(axes) == 0 {
		return nil, fmt.Errorf("tv: no active axes in flags %b for dims %v", flags, imgDims)
	}
	out := imgDims.Clone()
	out[GradDim] = len(axes)
	return &Grad{
		imgDims:  imgDims.Clone(),
		outDims:  out,
		axes:     axes,
		strides:  imgDims.Strides(),
		imgBlock: imgDims.Size(),
	}, nil
}

func (g *Grad) Domain() models.Dims   { return g.imgDims }
func (g *Grad) Codomain() models.Dims { return g.outDims }

// Apply computes the circular forward difference along every active
// axis, one direction per stacked block.
func (g *Grad) Apply(dst, src *array.Array) {
	for k, d := range g.axes {
		block := dst.Data[k*g.imgBlock : (k+1)*g.imgBlock]
		g.diff(block, src.Data, d, false)
	}
}

// Adjoint accumulates the negative circular divergence of the stacked
// differences.
func (g *Grad) Adjoint(dst, src *array.Array) {
	dst.Clear()
	for k, d := range g.axes {
		block := src.Data[k*g.imgBlock : (k+1)*g.imgBlock]
		g.diff(dst.Data, block, d, true)
	}
}

// diff computes dst = shift(src) - src along axis d. In adjoint mode
// the shift runs backward and the result accumulates into dst.
func (g *Grad) diff(dst, src []complex128, d int, adjoint bool) {
	dims := g.imgDims
	n := dims[d]
	stride := g.strides[d]
	pos := make([]int, len(dims))
	for i := 0; i < g.imgBlock; i++ {
		var nb int
		if adjoint {
			if pos[d] > 0 {
				nb = i - stride
			} else {
				nb = i + (n-1)*stride
			}
		} else {
			if pos[d]+1 < n {
				nb = i + stride
			} else {
				nb = i - (n-1)*stride
			}
		}
		if adjoint {
			dst[i] += src[nb] - src[i]
		} else {
			dst[i] = src[nb] - src[i]
		}
		for dd := 0; dd < len(dims); dd++ {
			pos[dd]++
			if pos[dd] < dims[dd] {
				break
			}
			pos[dd] = 0
		}
	}
}

var _ linop.Operator = (*Grad)(nil)
