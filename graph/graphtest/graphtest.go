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

// Package graphtest holds test utilities for packages that depend on the
// graph package: random test tensors and a finite-difference gradient
// checker.
package graphtest

import (
	"math/rand"
	"testing"

	"github.com/silky/Kayak/graph"
	"github.com/silky/Kayak/types/shapes"
	"github.com/silky/Kayak/types/tensors"
	"github.com/stretchr/testify/require"
)

// RngTensor creates a tensor of the given dimensions filled with values
// drawn uniformly from [-1, 1).
func RngTensor(rng *rand.Rand, dimensions ...int) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dimensions...))
	flat := t.Flat()
	for ii := range flat {
		flat[ii] = 2*rng.Float64() - 1
	}
	return t
}

// FiniteDifferenceGrad estimates the gradient of the sum of output's
// elements with respect to param by central differences: each element of
// param is nudged by ±epsilon, output is re-evaluated with reset, and the
// slope is taken. The param value and the graph's caches are restored
// before returning.
func FiniteDifferenceGrad(output graph.Differentiable, param *graph.Parameter, epsilon float64) *tensors.Tensor {
	base := param.Value(false, nil, nil)
	grad := tensors.FromShape(base.Shape())
	gradFlat := grad.Flat()
	for ii := range gradFlat {
		up := base.Clone()
		up.Flat()[ii] += epsilon
		param.Set(up)
		plus := tensors.ReduceAllSum(output.Value(true, nil, nil))

		down := base.Clone()
		down.Flat()[ii] -= epsilon
		param.Set(down)
		minus := tensors.ReduceAllSum(output.Value(true, nil, nil))

		gradFlat[ii] = (plus - minus) / (2 * epsilon)
	}
	param.Set(base)
	output.Value(true, nil, nil)
	return grad
}

// CheckGrad evaluates output, takes its analytic gradient with respect to
// param and requires it to match the finite-difference estimate within
// tolerance, elementwise.
func CheckGrad(t *testing.T, output graph.Differentiable, param *graph.Parameter, tolerance float64) {
	const epsilon = 1e-4
	output.Value(true, nil, nil)
	analytic := output.Grad(param, nil)
	require.Truef(t, analytic.Shape().Equal(param.Shape(nil)),
		"analytic gradient shape %s does not match parameter shape %s",
		analytic.Shape(), param.Shape(nil))
	estimate := FiniteDifferenceGrad(output, param, epsilon)
	require.InDeltaSlice(t, estimate.Flat(), analytic.Flat(), tolerance,
		"analytic gradient %s diverges from finite-difference estimate %s",
		analytic, estimate)
}
