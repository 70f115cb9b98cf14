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

package graph_test

import (
	"math/rand"
	"testing"

	. "github.com/silky/Kayak/graph"
	"github.com/silky/Kayak/graph/graphtest"
	"github.com/silky/Kayak/types/tensors"
	"github.com/stretchr/testify/require"
)

func TestMatMult(t *testing.T) {
	a := NewParameter(tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}}))
	b := NewParameter(tensors.FromValue([][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}))
	product := NewMatMult(a, b)
	got := product.Value(true, nil, nil)
	require.Equal(t, []int{2, 4}, got.Shape().Dimensions)
	require.Equal(t, []float64{38, 44, 50, 56, 83, 98, 113, 128}, got.Flat())

	// d(sum(A·B))/dA replicates the row sums of B; /dB the column sums of A.
	require.Equal(t, []float64{10, 26, 42, 10, 26, 42}, product.Grad(a, nil).Flat())
	require.Equal(t, []float64{5, 5, 5, 5, 7, 7, 7, 7, 9, 9, 9, 9}, product.Grad(b, nil).Flat())

	// With an explicit outgrad G, dA = G·Bᵀ.
	outgrad := tensors.FromValue([][]float64{{1, 0, 0, 0}, {0, 0, 0, 1}})
	require.Equal(t, []float64{1, 5, 9, 4, 8, 12}, product.Grad(a, outgrad).Flat())
}

func TestMatMultChained(t *testing.T) {
	a := NewParameter(tensors.FromValue([][]float64{{1, 0}, {0, 1}}))
	b := NewParameter(tensors.FromValue([][]float64{{2, 0}, {0, 2}}))
	c := NewParameter(tensors.FromValue([][]float64{{1, 2}, {3, 4}}))
	product := NewMatMult(a, b, c)
	require.Equal(t, []float64{2, 4, 6, 8}, product.Value(true, nil, nil).Flat())

	// The variadic form folds to the right: A·(B·C).
	operands := product.Operands()
	require.Len(t, operands, 2)
	require.Same(t, a, operands[0].(*Parameter))
	_, ok := operands[1].(*MatMult)
	require.True(t, ok)
}

func TestMatMultVector(t *testing.T) {
	a := NewParameter(tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}}))
	x := NewParameter(tensors.FromValue([]float64{1, 0, 2}))
	y := NewMatMult(a, x)
	got := y.Value(true, nil, nil)
	require.Equal(t, []int{2}, got.Shape().Dimensions)
	require.Equal(t, []float64{7, 16}, got.Flat())

	// dy/dx = Aᵀ·1 and dy/dA = 1 ⊗ x.
	require.Equal(t, []float64{5, 7, 9}, y.Grad(x, nil).Flat())
	require.Equal(t, []float64{1, 0, 2, 1, 0, 2}, y.Grad(a, nil).Flat())
}

func TestMatMultShapeErrors(t *testing.T) {
	a := NewParameter(tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}}))
	vec := NewParameter(tensors.FromValue([]float64{1, 2}))
	square := NewParameter(tensors.FromValue([][]float64{{1, 2}, {3, 4}}))
	require.Panics(t, func() { NewMatMult(a, square) })
	require.Panics(t, func() { NewMatMult(a, vec) })
	require.Panics(t, func() { NewMatMult(vec, square) })
	require.Panics(t, func() { NewMatMult(a, NewMatSum(a)) })
}

func TestMatSum(t *testing.T) {
	p := NewParameter(tensors.FromValue([][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}))

	full := NewMatSum(p)
	require.Equal(t, []int{1, 1}, full.Shape(nil).Dimensions)
	require.Equal(t, 78.0, full.Value(true, nil, nil).At(0, 0))
	require.Equal(t, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, full.Grad(p, nil).Flat())

	rows := NewMatSum(p, 1)
	require.Equal(t, []int{3, 1}, rows.Shape(nil).Dimensions)
	require.Equal(t, []float64{10, 26, 42}, rows.Value(true, nil, nil).Flat())

	cols := NewMatSum(p, 0)
	require.Equal(t, []int{1, 4}, cols.Shape(nil).Dimensions)
	require.Equal(t, []float64{15, 18, 21, 24}, cols.Value(true, nil, nil).Flat())

	// Negative axes count from the back.
	lastAxis := NewMatSum(p, -1)
	require.Equal(t, []float64{10, 26, 42}, lastAxis.Value(true, nil, nil).Flat())

	// An explicit outgrad broadcasts back over the summed axis.
	outgrad := tensors.FromValue([][]float64{{1}, {2}, {3}})
	require.Equal(t, []float64{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}, rows.Grad(p, outgrad).Flat())
}

func TestMatSumAxisErrors(t *testing.T) {
	p := NewParameter(tensors.FromValue([][]float64{{1, 2}, {3, 4}}))
	require.Panics(t, func() { NewMatSum(p, 0, 1) })
	require.Panics(t, func() { NewMatSum(p, 2).Shape(nil) })
	require.Panics(t, func() { NewMatSum(p, -3).Value(true, nil, nil) })
}

func TestMatAdd(t *testing.T) {
	a := NewParameter(tensors.FromValue([][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}))
	column := NewParameter(tensors.FromValue([][]float64{{1}, {2}, {3}}))
	sum := NewMatAdd(a, column)
	require.Equal(t, []int{3, 4}, sum.Shape(nil).Dimensions)
	require.Equal(t, []float64{2, 3, 4, 5, 7, 8, 9, 10, 12, 13, 14, 15},
		sum.Value(true, nil, nil).Flat())

	// The broadcast operand accumulates over the replicated axis.
	require.Equal(t, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}, sum.Grad(a, nil).Flat())
	require.Equal(t, []float64{4, 4, 4}, sum.Grad(column, nil).Flat())

	scalar := NewParameter(tensors.FromScalar(5))
	shifted := NewMatAdd(a, scalar)
	require.Equal(t, 6.0, shifted.Value(true, nil, nil).At(0, 0))
	require.Equal(t, 12.0, shifted.Grad(scalar, nil).At())

	// Rank extension: a vector shaped (4,) against rows of (3, 4).
	row := NewParameter(tensors.FromValue([]float64{10, 20, 30, 40}))
	byRow := NewMatAdd(a, row)
	require.Equal(t, []float64{11, 22, 33, 44, 15, 26, 37, 48, 19, 30, 41, 52},
		byRow.Value(true, nil, nil).Flat())
	require.Equal(t, []float64{3, 3, 3, 3}, byRow.Grad(row, nil).Flat())
}

func TestMatAddVariadic(t *testing.T) {
	x := NewParameter(tensors.FromValue([]float64{1, 2}))
	tripled := NewMatAdd(x, x, x)
	require.Equal(t, []float64{3, 6}, tripled.Value(true, nil, nil).Flat())
	require.Equal(t, []float64{3, 3}, tripled.Grad(x, nil).Flat())
}

func TestMatAddShapeErrors(t *testing.T) {
	a := NewParameter(tensors.FromValue([][]float64{{1, 2}, {3, 4}, {5, 6}}))
	b := NewParameter(tensors.FromValue([][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}}))
	require.Panics(t, func() { NewMatAdd(a, b) })
}

func TestTranspose(t *testing.T) {
	p := NewParameter(tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}}))
	transposed := NewTranspose(p)
	got := transposed.Value(true, nil, nil)
	require.Equal(t, []int{3, 2}, got.Shape().Dimensions)
	require.Equal(t, []float64{1, 4, 2, 5, 3, 6}, got.Flat())

	outgrad := tensors.FromValue([][]float64{{1, 2}, {3, 4}, {5, 6}})
	require.Equal(t, []float64{1, 3, 5, 2, 4, 6}, transposed.Grad(p, outgrad).Flat())
	require.Equal(t, []float64{1, 1, 1, 1, 1, 1}, transposed.Grad(p, nil).Flat())
}

func TestTransposeAxes(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	p := NewParameter(graphtest.RngTensor(rng, 2, 3, 4))
	permuted := NewTranspose(p, 2, 0, 1)
	require.Equal(t, []int{4, 2, 3}, permuted.Shape(nil).Dimensions)
	got := permuted.Value(true, nil, nil)
	base := p.Value(false, nil, nil)
	require.Equal(t, base.At(0, 2, 1), got.At(1, 0, 2))
	require.Equal(t, base.At(1, 2, 3), got.At(3, 1, 2))

	loss := NewMatSum(NewMatSum(NewMatSum(permuted, 2), 1), 0)
	graphtest.CheckGrad(t, loss, p, 1e-6)

	require.Panics(t, func() { NewTranspose(p, 0, 0, 1).Shape(nil) })
	require.Panics(t, func() { NewTranspose(p, 0, 1).Shape(nil) })
}

func TestReshape(t *testing.T) {
	p := NewParameter(tensors.FromValue([][]float64{{1, 2, 3}, {4, 5, 6}}))
	flat := NewReshape(p, 6)
	require.Equal(t, []int{6}, flat.Shape(nil).Dimensions)
	require.Equal(t, []float64{1, 2, 3, 4, 5, 6}, flat.Value(true, nil, nil).Flat())

	outgrad := tensors.FromValue([]float64{10, 20, 30, 40, 50, 60})
	grad := flat.Grad(p, outgrad)
	require.Equal(t, []int{2, 3}, grad.Shape().Dimensions)
	require.Equal(t, []float64{10, 20, 30, 40, 50, 60}, grad.Flat())

	require.Panics(t, func() { NewReshape(p, 4).Value(true, nil, nil) })
}

func TestCheckGradComposite(t *testing.T) {
	// Squared-error shaped computation: sum((X·W + b - Y)ᵀ·(X·W + b - Y)).
	rng := rand.New(rand.NewSource(17))
	x := NewConstant(graphtest.RngTensor(rng, 8, 3))
	w := NewParameter(graphtest.RngTensor(rng, 3, 2))
	b := NewParameter(graphtest.RngTensor(rng, 1, 2))
	y := graphtest.RngTensor(rng, 8, 2)
	negY := NewConstant(tensors.Mul(y, tensors.FromScalar(-1)))

	diff := NewMatAdd(NewMatMult(x, w), b, negY)
	loss := NewMatSum(NewMatMult(NewTranspose(diff), diff))

	graphtest.CheckGrad(t, loss, w, 1e-4)
	graphtest.CheckGrad(t, loss, b, 1e-4)
}

func TestCheckGradVectorPath(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := NewConstant(graphtest.RngTensor(rng, 4, 3))
	v := NewParameter(graphtest.RngTensor(rng, 3))
	loss := NewMatSum(NewMatMult(a, v), 0)
	graphtest.CheckGrad(t, loss, v, 1e-6)
}

func TestCheckGradSharedSubexpression(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	x := NewParameter(graphtest.RngTensor(rng, 2, 2))
	shared := NewMatSum(x, 1)
	rejoined := NewMatAdd(NewMatSum(shared, 0), NewTranspose(shared))
	graphtest.CheckGrad(t, rejoined, x, 1e-6)
}