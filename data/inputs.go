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

package data

import (
	"math/rand"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/silky/Kayak/graph"
	"github.com/silky/Kayak/types/shapes"
	"github.com/silky/Kayak/types/tensors"
)

// Inputs feeds an array of feature rows into a computation graph as a leaf
// node, optionally row-batched. Unlike Targets it is a full
// graph.Differentiable, so graphs can be built directly on top of it;
// gradients treat it like any other leaf.
type Inputs struct {
	data    *tensors.Tensor
	batcher Batcher
}

var _ graph.Differentiable = &Inputs{}

// NewInputs wraps the given feature array. A nil batcher means Value returns
// the full array.
func NewInputs(data *tensors.Tensor, batcher Batcher) *Inputs {
	if data == nil {
		exceptions.Panicf("NewInputs requires a non-nil tensor")
	}
	return &Inputs{data: data, batcher: batcher}
}

// Value returns the feature rows of the current batch, or the full array
// when there is no batcher. The selection is computed afresh on every call,
// so nodes built on top of this one must be evaluated with reset true after
// the batcher advances.
func (in *Inputs) Value(reset bool, rng *rand.Rand, inputs graph.Bindings) *tensors.Tensor {
	if in.batcher == nil {
		return in.data
	}
	return tensors.GatherRows(in.data, in.batcher.Indices())
}

func (in *Inputs) Grad(other graph.Differentiable, outgrad *tensors.Tensor) *tensors.Tensor {
	if other == graph.Differentiable(in) {
		if outgrad == nil {
			outgrad = tensors.Ones(in.Shape(nil))
		}
		return outgrad
	}
	return tensors.FromShape(other.Shape(nil))
}

func (in *Inputs) DependsOn(other graph.Differentiable) bool {
	return other == graph.Differentiable(in)
}

// Shape returns the shape of what Value currently returns.
func (in *Inputs) Shape(inputs graph.Bindings) shapes.Shape {
	if in.batcher == nil {
		return in.data.Shape()
	}
	dims := slices.Clone(in.data.Shape().Dimensions)
	dims[0] = len(in.batcher.Indices())
	return shapes.Make(dims...)
}

func (in *Inputs) Operands() []graph.Differentiable { return nil }
