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
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/silky/Kayak/graph"
	"github.com/silky/Kayak/types/shapes"
	"github.com/silky/Kayak/types/tensors"
)

// Targets wraps an array of supervised targets, assumed to be one row per
// example, optionally row-batched. It deliberately does not implement
// graph.Differentiable: with respect to differentiation it is always a leaf
// the gradient never reaches, and asking for its gradient panics.
type Targets struct {
	data    *tensors.Tensor
	batcher Batcher
}

// NewTargets wraps the given target array. A nil batcher means Value returns
// the full array.
func NewTargets(data *tensors.Tensor, batcher Batcher) *Targets {
	if data == nil {
		exceptions.Panicf("NewTargets requires a non-nil tensor")
	}
	return &Targets{data: data, batcher: batcher}
}

// Value returns the target rows of the current batch, or the full array when
// there is no batcher. The selection is computed afresh on every call.
func (t *Targets) Value(reset bool) *tensors.Tensor {
	if t.batcher == nil {
		return t.data
	}
	return tensors.GatherRows(t.data, t.batcher.Indices())
}

// Shape returns the shape of what Value currently returns.
func (t *Targets) Shape() shapes.Shape {
	if t.batcher == nil {
		return t.data.Shape()
	}
	dims := slices.Clone(t.data.Shape().Dimensions)
	dims[0] = len(t.batcher.Indices())
	return shapes.Make(dims...)
}

// DependsOn always answers false: targets never depend on graph nodes.
func (t *Targets) DependsOn(other graph.Differentiable) bool {
	return false
}

// Grad panics: it is not sensible to take the gradient in terms of targets.
func (t *Targets) Grad(other graph.Differentiable) *tensors.Tensor {
	exceptions.Panicf("not sensible to take the gradient in terms of targets")
	return nil
}
