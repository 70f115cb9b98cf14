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

// notImplemented is the base of operations that are declared but have no
// behavior yet. Constructing one succeeds, so graphs mentioning them can be
// assembled and inspected; using one through the Differentiable protocol
// panics.
type notImplemented struct {
	name     string
	operands []Differentiable
}

func (n *notImplemented) Value(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor {
	exceptions.Panicf("%s.Value is not implemented", n.name)
	return nil
}

func (n *notImplemented) Grad(other Differentiable, outgrad *tensors.Tensor) *tensors.Tensor {
	exceptions.Panicf("%s.Grad is not implemented", n.name)
	return nil
}

func (n *notImplemented) DependsOn(other Differentiable) bool {
	exceptions.Panicf("%s.DependsOn is not implemented", n.name)
	return false
}

func (n *notImplemented) Shape(inputs Bindings) shapes.Shape {
	exceptions.Panicf("%s.Shape is not implemented", n.name)
	return shapes.Shape{}
}

func (n *notImplemented) Operands() []Differentiable { return n.operands }

// MatDet is the determinant of a square matrix. Declared, not implemented:
// its local gradient will be det(A)·A⁻ᵀ once it is.
type MatDet struct {
	notImplemented
}

// NewMatDet declares a determinant node over a. Using the node panics until
// the operation is implemented.
func NewMatDet(a Differentiable) *MatDet {
	return &MatDet{notImplemented{name: "MatDet", operands: []Differentiable{a}}}
}

// MatLogDet is the log-determinant of a positive-definite matrix. Declared,
// not implemented: its local gradient will be A⁻ᵀ once it is.
type MatLogDet struct {
	notImplemented
}

// NewMatLogDet declares a log-determinant node over a. Using the node panics
// until the operation is implemented.
func NewMatLogDet(a Differentiable) *MatLogDet {
	return &MatLogDet{notImplemented{name: "MatLogDet", operands: []Differentiable{a}}}
}

// MatTrace is the trace of a square matrix. Declared, not implemented: its
// local gradient will be the identity matrix scaled by outgrad once it is.
type MatTrace struct {
	notImplemented
}

// NewMatTrace declares a trace node over a. Using the node panics until the
// operation is implemented.
func NewMatTrace(a Differentiable) *MatTrace {
	return &MatTrace{notImplemented{name: "MatTrace", operands: []Differentiable{a}}}
}

// TensorMult is a tensor contraction over arbitrary axes, the higher-rank
// generalization of MatMult. Declared, not implemented.
type TensorMult struct {
	notImplemented
}

// NewTensorMult declares a tensor contraction node over a and b. Using the
// node panics until the operation is implemented.
func NewTensorMult(a, b Differentiable) *TensorMult {
	return &TensorMult{notImplemented{name: "TensorMult", operands: []Differentiable{a, b}}}
}
