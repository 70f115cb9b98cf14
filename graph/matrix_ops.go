/*
 *	Copyright 2025 The Kayak Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package graph

import (
	"math/rand"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/silky/Kayak/types/shapes"
	"github.com/silky/Kayak/types/tensors"
	"github.com/silky/Kayak/types/xslices"
)

// MatMult is the matrix product of a rank-2 left operand with a rank-2 or
// rank-1 right operand.
type MatMult struct {
	node
}

// NewMatMult creates the matrix product of two or more operands. More than
// two desugar right-associatively, NewMatMult(a, b, c) ≡
// NewMatMult(a, NewMatMult(b, c)). The left operand of each product must be
// rank-2 and its second dimension must match the right operand's first. It
// panics on operands it cannot multiply.
func NewMatMult(a, b Differentiable, rest ...Differentiable) *MatMult {
	if len(rest) > 0 {
		b = NewMatMult(b, rest[0], rest[1:]...)
	}
	lhsShape, rhsShape := a.Shape(nil), b.Shape(nil)
	if lhsShape.Rank() != 2 {
		exceptions.Panicf("MatMult requires a rank-2 left operand, got shape %s", lhsShape)
	}
	if rhsShape.Rank() != 1 && rhsShape.Rank() != 2 {
		exceptions.Panicf("MatMult requires a rank-1 or rank-2 right operand, got shape %s", rhsShape)
	}
	if lhsShape.Dim(1) != rhsShape.Dim(0) {
		exceptions.Panicf("cannot multiply %s by %s matrices", lhsShape, rhsShape)
	}
	m := &MatMult{}
	m.init(m, a, b)
	return m
}

func (m *MatMult) compute(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor {
	lhs := m.operands[0].Value(reset, rng, inputs)
	rhs := m.operands[1].Value(reset, rng, inputs)
	return tensors.MatMul(lhs, rhs)
}

func (m *MatMult) localGrad(operand int, outgrad *tensors.Tensor) *tensors.Tensor {
	lhs := m.operands[0].Value(false, nil, nil)
	rhs := m.operands[1].Value(false, nil, nil)
	if operand == 0 {
		if rhs.Rank() == 1 {
			// out = lhs·rhs is a vector, so outgrad is too:
			// d/dlhs = outgrad ⊗ rhs.
			return tensors.Outer(outgrad, rhs)
		}
		return tensors.MatMul(outgrad, tensors.Transpose(rhs))
	}
	return tensors.MatMul(tensors.Transpose(lhs), outgrad)
}

func (m *MatMult) Shape(inputs Bindings) shapes.Shape {
	lhsShape := m.operands[0].Shape(inputs)
	rhsShape := m.operands[1].Shape(inputs)
	if rhsShape.Rank() == 1 {
		return shapes.Make(lhsShape.Dim(0))
	}
	return shapes.Make(lhsShape.Dim(0), rhsShape.Dim(1))
}

// MatSum sums the operand over one axis, or over all of them. The summed
// axes are kept with size 1, so the result broadcasts back against the
// operand.
type MatSum struct {
	node
	axis    int
	fullSum bool
}

// NewMatSum creates a sum of the operand over the given axis (negative
// values count from the end). With no axis it sums over all elements,
// producing a tensor of the operand's rank with every dimension 1. Summing
// over several axes at once is not supported: compose MatSum nodes instead.
func NewMatSum(a Differentiable, axis ...int) *MatSum {
	if len(axis) > 1 {
		exceptions.Panicf("MatSum can only sum over one axis at a time, got axes %v", axis)
	}
	s := &MatSum{}
	if len(axis) == 0 {
		s.fullSum = true
	} else {
		s.axis = axis[0]
	}
	s.init(s, a)
	return s
}

func (s *MatSum) compute(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor {
	value := s.operands[0].Value(reset, rng, inputs)
	if s.fullSum {
		return tensors.FromScalarAndDimensions(
			tensors.ReduceAllSum(value), xslices.SliceWithValue(value.Rank(), 1)...)
	}
	return tensors.ReduceSum(value, s.axis)
}

func (s *MatSum) localGrad(operand int, outgrad *tensors.Tensor) *tensors.Tensor {
	return tensors.BroadcastTo(outgrad, s.operands[0].Shape(nil))
}

func (s *MatSum) Shape(inputs Bindings) shapes.Shape {
	operandShape := s.operands[0].Shape(inputs)
	if s.fullSum {
		return shapes.Make(xslices.SliceWithValue(operandShape.Rank(), 1)...)
	}
	axis := s.axis
	if axis < 0 {
		axis += operandShape.Rank()
	}
	if axis < 0 || axis >= operandShape.Rank() {
		exceptions.Panicf("MatSum axis %d is out of range for operand shape %s", s.axis, operandShape)
	}
	dims := slices.Clone(operandShape.Dimensions)
	dims[axis] = 1
	return shapes.Make(dims...)
}

// MatAdd is the broadcasting elementwise sum of its operands.
type MatAdd struct {
	node
}

// NewMatAdd creates the elementwise sum of two or more operands, under the
// usual broadcasting rules: shapes are aligned from the last axis, and axes
// of size 1 (or missing leading axes) stretch to match. More than two
// operands desugar into a chain of binary sums. It panics if the operand
// shapes do not broadcast.
func NewMatAdd(a, b Differentiable, rest ...Differentiable) *MatAdd {
	if len(rest) > 0 {
		b = NewMatAdd(b, rest[0], rest[1:]...)
	}
	if _, err := shapes.Broadcast(a.Shape(nil), b.Shape(nil)); err != nil {
		exceptions.Panicf("MatAdd operands: %v", err)
	}
	sum := &MatAdd{}
	sum.init(sum, a, b)
	return sum
}

func (a *MatAdd) compute(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor {
	lhs := a.operands[0].Value(reset, rng, inputs)
	rhs := a.operands[1].Value(reset, rng, inputs)
	return tensors.Add(lhs, rhs)
}

func (a *MatAdd) localGrad(operand int, outgrad *tensors.Tensor) *tensors.Tensor {
	return reduceToShape(outgrad, a.operands[operand].Shape(nil))
}

func (a *MatAdd) Shape(inputs Bindings) shapes.Shape {
	output, err := shapes.Broadcast(a.operands[0].Shape(inputs), a.operands[1].Shape(inputs))
	if err != nil {
		exceptions.Panicf("MatAdd operands: %v", err)
	}
	return output
}

// reduceToShape is the broadcast adjoint: it sums outgrad over the axes
// broadcasting stretched (leading axes the operand did not have, and axes
// where the operand's dimension is 1) and reshapes the result to the operand
// shape.
func reduceToShape(outgrad *tensors.Tensor, target shapes.Shape) *tensors.Tensor {
	if outgrad.Shape().Equal(target) {
		return outgrad
	}
	reduced := outgrad
	pad := outgrad.Rank() - target.Rank()
	for axis := 0; axis < outgrad.Rank(); axis++ {
		if axis < pad || target.Dim(axis-pad) == 1 {
			reduced = tensors.ReduceSum(reduced, axis)
		}
	}
	return tensors.Reshape(reduced, target.Dimensions...)
}

// Transpose permutes the operand's axes, by default reversing them.
type Transpose struct {
	node
	axes []int
}

// NewTranspose creates a transpose of the operand. Without axes it reverses
// the axis order; otherwise axes must be a permutation of the operand's
// axes, checked when the node is evaluated.
func NewTranspose(a Differentiable, axes ...int) *Transpose {
	t := &Transpose{axes: slices.Clone(axes)}
	t.init(t, a)
	return t
}

func (t *Transpose) compute(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor {
	return tensors.Transpose(t.operands[0].Value(reset, rng, inputs), t.axes...)
}

func (t *Transpose) localGrad(operand int, outgrad *tensors.Tensor) *tensors.Tensor {
	if t.axes == nil {
		return tensors.Transpose(outgrad)
	}
	// The adjoint of an axis permutation is its inverse permutation,
	// the argsort of the forward axes.
	inverse := make([]int, len(t.axes))
	for ii, axis := range t.axes {
		inverse[axis] = ii
	}
	return tensors.Transpose(outgrad, inverse...)
}

func (t *Transpose) Shape(inputs Bindings) shapes.Shape {
	operandShape := t.operands[0].Shape(inputs)
	if t.axes == nil {
		dims := slices.Clone(operandShape.Dimensions)
		slices.Reverse(dims)
		return shapes.Make(dims...)
	}
	if len(t.axes) != operandShape.Rank() {
		exceptions.Panicf("Transpose axes %v do not form a permutation of the axes of shape %s",
			t.axes, operandShape)
	}
	seen := make([]bool, len(t.axes))
	dims := make([]int, len(t.axes))
	for ii, axis := range t.axes {
		if axis < 0 || axis >= operandShape.Rank() || seen[axis] {
			exceptions.Panicf("Transpose axes %v do not form a permutation of the axes of shape %s",
				t.axes, operandShape)
		}
		seen[axis] = true
		dims[ii] = operandShape.Dim(axis)
	}
	return shapes.Make(dims...)
}

// Reshape reinterprets the operand's elements under a new shape with the
// same total size.
type Reshape struct {
	node
	dimensions []int
}

// NewReshape creates a reshape of the operand to the given dimensions. The
// element count must match the operand's, checked when the node is
// evaluated.
func NewReshape(a Differentiable, dimensions ...int) *Reshape {
	r := &Reshape{dimensions: slices.Clone(dimensions)}
	r.init(r, a)
	return r
}

func (r *Reshape) compute(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor {
	return tensors.Reshape(r.operands[0].Value(reset, rng, inputs), r.dimensions...)
}

func (r *Reshape) localGrad(operand int, outgrad *tensors.Tensor) *tensors.Tensor {
	// Reshape is a bijective relabeling of elements, so its adjoint is
	// the reshape back.
	return tensors.Reshape(outgrad, r.operands[0].Shape(nil).Dimensions...)
}

func (r *Reshape) Shape(inputs Bindings) shapes.Shape {
	return shapes.Make(r.dimensions...)
}
