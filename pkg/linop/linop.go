// Package linop models linear operators between complex array spaces.
// An operator knows its domain and codomain shapes and exposes forward
// and adjoint actions; composite operators are built as explicit trees
// of immutable operator values.
package linop

import (
	"fmt"

	"bpsense/internal/models"
	"bpsense/pkg/array"
)

// Operator is a linear mapping between two array shapes.
type Operator interface {
	// Domain returns the input shape of the forward action.
	Domain() models.Dims

	// Codomain returns the output shape of the forward action.
	Codomain() models.Dims

	// Apply computes dst = A src. dst must have the codomain shape and
	// src the domain shape; dst and src must not alias.
	Apply(dst, src *array.Array)

	// Adjoint computes dst = A^H src with the shapes reversed.
	Adjoint(dst, src *array.Array)
}

// Normal computes dst = A^H A src using tmp as codomain scratch.
func Normal(op Operator, dst, src, tmp *array.Array) {
	op.Apply(tmp, src)
	op.Adjoint(dst, tmp)
}

type identity struct {
	dims models.Dims
}

// NewIdentity returns the identity operator on the given shape.
func NewIdentity(dims models.Dims) Operator {
	return &identity{dims: dims.Clone()}
}

func (op *identity) Domain() models.Dims   { return op.dims }
func (op *identity) Codomain() models.Dims { return op.dims }

func (op *identity) Apply(dst, src *array.Array)   { dst.CopyFrom(src) }
func (op *identity) Adjoint(dst, src *array.Array) { dst.CopyFrom(src) }

type diag struct {
	dims models.Dims
	d    *array.Array
}

// NewDiag returns the operator y = D x where D multiplies elementwise
// by diag, broadcast over the axes where diag is singleton. The adjoint
// multiplies by the conjugate.
func NewDiag(dims models.Dims, d *array.Array) (Operator, error) {
	for i := range d.Dims {
		if d.Dims[i] != 1 && d.Dims[i] != dims[i] {
			return nil, fmt.Errorf("linop: diagonal axis %d size %d incompatible with %d", i, d.Dims[i], dims[i])
		}
	}
	return &diag{dims: dims.Clone(), d: d}, nil
}

func (op *diag) Domain() models.Dims   { return op.dims }
func (op *diag) Codomain() models.Dims { return op.dims }

func (op *diag) Apply(dst, src *array.Array) {
	if err := array.MulDiag(dst, src, op.d, false); err != nil {
		panic(err)
	}
}

func (op *diag) Adjoint(dst, src *array.Array) {
	if err := array.MulDiag(dst, src, op.d, true); err != nil {
		panic(err)
	}
}

type scale struct {
	dims models.Dims
	c    complex128
}

// NewScale returns c times the identity on the given shape.
func NewScale(dims models.Dims, c complex128) Operator {
	return &scale{dims: dims.Clone(), c: c}
}

func (op *scale) Domain() models.Dims   { return op.dims }
func (op *scale) Codomain() models.Dims { return op.dims }

func (op *scale) Apply(dst, src *array.Array) {
	dst.CopyFrom(src)
	dst.Scale(op.c)
}

func (op *scale) Adjoint(dst, src *array.Array) {
	dst.CopyFrom(src)
	dst.Scale(complex(real(op.c), -imag(op.c)))
}

type chain struct {
	ops []Operator
	// tmp[i] holds the output of ops[i] during a forward sweep.
	tmp []*array.Array
}

// NewChain composes operators applied left to right: the forward
// action is ops[n-1](...(ops[0](x))). Adjacent shapes must match.
func NewChain(ops ...Operator) (Operator, error) {
	if len(ops) == 0 {
		return nil, fmt.Errorf("linop: empty chain")
	}
	for i := 1; i < len(ops); i++ {
		if !ops[i-1].Codomain().Equal(ops[i].Domain()) {
			return nil, fmt.Errorf("linop: chain stage %d domain %v does not match previous codomain %v",
				i, ops[i].Domain(), ops[i-1].Codomain())
		}
	}
	c := &chain{ops: ops}
	for i := 0; i < len(ops)-1; i++ {
		c.tmp = append(c.tmp, array.New(ops[i].Codomain()))
	}
	return c, nil
}

func (c *chain) Domain() models.Dims   { return c.ops[0].Domain() }
func (c *chain) Codomain() models.Dims { return c.ops[len(c.ops)-1].Codomain() }

func (c *chain) Apply(dst, src *array.Array) {
	cur := src
	for i, op := range c.ops {
		out := dst
		if i < len(c.ops)-1 {
			out = c.tmp[i]
		}
		op.Apply(out, cur)
		cur = out
	}
}

func (c *chain) Adjoint(dst, src *array.Array) {
	cur := src
	for i := len(c.ops) - 1; i >= 0; i-- {
		out := dst
		if i > 0 {
			out = c.tmp[i-1]
		}
		c.ops[i].Adjoint(out, cur)
		cur = out
	}
}
