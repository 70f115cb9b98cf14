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

	"github.com/gomlx/exceptions"
	"github.com/silky/Kayak/types/shapes"
	"github.com/silky/Kayak/types/tensors"
)

// leafGrad is the gradient rule shared by all leaves: the upstream gradient
// itself when differentiating with respect to the leaf, zeros otherwise.
func leafGrad(leaf, other Differentiable, outgrad *tensors.Tensor) *tensors.Tensor {
	if other == leaf {
		if outgrad == nil {
			outgrad = tensors.Ones(leaf.Shape(nil))
		}
		return outgrad
	}
	return tensors.FromShape(other.Shape(nil))
}

// Constant is a leaf node holding a fixed tensor. Gradients with respect to
// anything flow through it as zeros.
type Constant struct {
	value *tensors.Tensor
}

// NewConstant creates a leaf node with the given fixed value.
func NewConstant(value *tensors.Tensor) *Constant {
	if value == nil {
		exceptions.Panicf("NewConstant requires a non-nil tensor")
	}
	return &Constant{value: value}
}

func (c *Constant) Value(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor {
	return c.value
}

func (c *Constant) Grad(other Differentiable, outgrad *tensors.Tensor) *tensors.Tensor {
	return leafGrad(c, other, outgrad)
}

func (c *Constant) DependsOn(other Differentiable) bool { return other == Differentiable(c) }

func (c *Constant) Shape(inputs Bindings) shapes.Shape { return c.value.Shape() }

func (c *Constant) Operands() []Differentiable { return nil }

// Parameter is a mutable leaf node, the usual subject of differentiation.
// Its value is replaced with Set, typically in a gradient-descent loop.
type Parameter struct {
	value *tensors.Tensor
}

// NewParameter creates a leaf node with the given initial value.
func NewParameter(value *tensors.Tensor) *Parameter {
	if value == nil {
		exceptions.Panicf("NewParameter requires a non-nil tensor")
	}
	return &Parameter{value: value}
}

// Set replaces the parameter's value. Nodes computed from the parameter keep
// their cached values: the next evaluation pass that should observe the new
// value must be run with reset true.
func (p *Parameter) Set(value *tensors.Tensor) {
	if value == nil {
		exceptions.Panicf("Parameter.Set requires a non-nil tensor")
	}
	p.value = value
}

func (p *Parameter) Value(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor {
	return p.value
}

func (p *Parameter) Grad(other Differentiable, outgrad *tensors.Tensor) *tensors.Tensor {
	return leafGrad(p, other, outgrad)
}

func (p *Parameter) DependsOn(other Differentiable) bool { return other == Differentiable(p) }

func (p *Parameter) Shape(inputs Bindings) shapes.Shape { return p.value.Shape() }

func (p *Parameter) Operands() []Differentiable { return nil }

// Input is a leaf node whose value is supplied per evaluation pass, through
// the Bindings map keyed by the node itself. Its shape is declared at
// construction, so nodes can be built on top of it before any value exists.
// A binding sticks like any other node's cached value: gradient passes,
// which carry no bindings, reuse the binding of the preceding forward pass.
type Input struct {
	shape shapes.Shape
	value *tensors.Tensor
	bound *tensors.Tensor
}

// NewInput creates an Input leaf with the given declared dimensions and no
// value: every evaluation must bind one, and the binding must match the
// declared shape.
func NewInput(dimensions ...int) *Input {
	return &Input{shape: shapes.Make(dimensions...)}
}

// NewInputWithValue creates an Input leaf with a default value, used
// whenever no binding is in effect. The declared shape is the value's.
func NewInputWithValue(value *tensors.Tensor) *Input {
	if value == nil {
		exceptions.Panicf("NewInputWithValue requires a non-nil tensor")
	}
	return &Input{shape: value.Shape(), value: value}
}

func (in *Input) Value(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor {
	if bound, found := inputs[in]; found {
		if !bound.Shape().Equal(in.shape) {
			exceptions.Panicf("Input declared with shape %s was bound to a tensor of shape %s",
				in.shape, bound.Shape())
		}
		in.bound = bound
		return bound
	}
	if reset {
		in.bound = nil
	}
	if in.bound != nil {
		return in.bound
	}
	if in.value == nil {
		exceptions.Panicf("Input of shape %s has no value: not found in the given bindings and no default set",
			in.shape)
	}
	return in.value
}

func (in *Input) Grad(other Differentiable, outgrad *tensors.Tensor) *tensors.Tensor {
	return leafGrad(in, other, outgrad)
}

func (in *Input) DependsOn(other Differentiable) bool { return other == Differentiable(in) }

func (in *Input) Shape(inputs Bindings) shapes.Shape { return in.shape }

func (in *Input) Operands() []Differentiable { return nil }
