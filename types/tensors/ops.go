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

package tensors

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/silky/Kayak/types/shapes"
	"github.com/silky/Kayak/types/xslices"
)

// This file implements the compute kernels on tensors: the numeric primitives the
// graph operations are built from. Kernels always allocate fresh outputs and panic
// on invalid arguments (evaluation-time errors).

// adjustAxisToRank converts a negative axis (counting from the end) to its
// positive counterpart, panicking if out-of-range for the given rank.
func adjustAxisToRank(axis, rank int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += rank
	}
	if adjustedAxis < 0 || adjustedAxis >= rank {
		exceptions.Panicf("axis %d is out-of-range for rank %d", axis, rank)
	}
	return adjustedAxis
}

// MatMul returns the matrix product of lhs and rhs.
//
// lhs must be rank 2, shaped (m, k). rhs is either rank 2, shaped (k, n), yielding an
// (m, n) result, or rank 1, shaped (k,), yielding a rank-1 (m,) result (matrix-vector
// product). The contracting dimensions must match.
func MatMul(lhs, rhs *Tensor) *Tensor {
	if lhs.Rank() != 2 {
		exceptions.Panicf("MatMul: lhs must be rank 2, got shape %s", lhs.shape)
	}
	if rhs.Rank() != 1 && rhs.Rank() != 2 {
		exceptions.Panicf("MatMul: rhs must be rank 1 or 2, got shape %s", rhs.shape)
	}
	m, contracting := lhs.shape.Dimensions[0], xslices.Last(lhs.shape.Dimensions)
	if rhs.shape.Dimensions[0] != contracting {
		exceptions.Panicf("MatMul: inner dimensions must match, got lhs=%s, rhs=%s", lhs.shape, rhs.shape)
	}
	if rhs.Rank() == 1 {
		output := FromShape(shapes.Make(m))
		for i := 0; i < m; i++ {
			sum := 0.0
			for k := 0; k < contracting; k++ {
				sum += lhs.flat[i*contracting+k] * rhs.flat[k]
			}
			output.flat[i] = sum
		}
		return output
	}
	n := xslices.Last(rhs.shape.Dimensions)
	output := FromShape(shapes.Make(m, n))
	for i := 0; i < m; i++ {
		for k := 0; k < contracting; k++ {
			v := lhs.flat[i*contracting+k]
			rowOut := output.flat[i*n : (i+1)*n]
			rowRhs := rhs.flat[k*n : (k+1)*n]
			for j, r := range rowRhs {
				rowOut[j] += v * r
			}
		}
	}
	return output
}

// Outer returns the outer product of two rank-1 tensors: Outer(u, v)[i, j] = u[i]*v[j].
func Outer(lhs, rhs *Tensor) *Tensor {
	if lhs.Rank() != 1 || rhs.Rank() != 1 {
		exceptions.Panicf("Outer: operands must be rank 1, got %s and %s", lhs.shape, rhs.shape)
	}
	m, n := lhs.shape.Dimensions[0], rhs.shape.Dimensions[0]
	output := FromShape(shapes.Make(m, n))
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			output.flat[i*n+j] = lhs.flat[i] * rhs.flat[j]
		}
	}
	return output
}

// binaryOp applies fn elementwise on lhs and rhs under the standard broadcasting rules.
func binaryOp(name string, lhs, rhs *Tensor, fn func(lhs, rhs float64) float64) *Tensor {
	outputShape, err := shapes.Broadcast(lhs.shape, rhs.shape)
	if err != nil {
		panic(errors.WithMessagef(err, "tensors.%s", name))
	}
	output := FromShape(outputShape)
	if lhs.shape.Equal(rhs.shape) {
		for ii := range output.flat {
			output.flat[ii] = fn(lhs.flat[ii], rhs.flat[ii])
		}
		return output
	}
	lhsIter := newBroadcastIterator(lhs.shape, outputShape)
	rhsIter := newBroadcastIterator(rhs.shape, outputShape)
	for ii := range output.flat {
		output.flat[ii] = fn(lhs.flat[lhsIter.Next()], rhs.flat[rhsIter.Next()])
	}
	return output
}

// Add returns the elementwise sum of lhs and rhs, broadcasting shapes as needed.
// It panics if the shapes are not broadcast-compatible.
func Add(lhs, rhs *Tensor) *Tensor {
	return binaryOp("Add", lhs, rhs, func(lhs, rhs float64) float64 { return lhs + rhs })
}

// Mul returns the elementwise product of lhs and rhs, broadcasting shapes as needed.
// It panics if the shapes are not broadcast-compatible.
func Mul(lhs, rhs *Tensor) *Tensor {
	return binaryOp("Mul", lhs, rhs, func(lhs, rhs float64) float64 { return lhs * rhs })
}

// BroadcastTo returns t broadcast to the given shape: missing leading axes are added
// and axes with dimension 1 are repeated. It panics if t's shape does not broadcast
// to exactly the given shape.
func BroadcastTo(t *Tensor, shape shapes.Shape) *Tensor {
	outputShape, err := shapes.Broadcast(t.shape, shape)
	if err != nil || !outputShape.Equal(shape) {
		exceptions.Panicf("BroadcastTo: cannot broadcast shape %s to %s", t.shape, shape)
	}
	output := FromShape(shape)
	iter := newBroadcastIterator(t.shape, shape)
	for ii := range output.flat {
		output.flat[ii] = t.flat[iter.Next()]
	}
	return output
}

// ReduceAllSum returns the sum of all elements of t.
func ReduceAllSum(t *Tensor) float64 {
	sum := 0.0
	for _, v := range t.flat {
		sum += v
	}
	return sum
}

// ReduceSum sums t along the given axis, keeping the reduced axis with dimension 1 so
// the result stays broadcast-compatible with t. The axis may be negative, counting
// from the end. It panics if the axis is out-of-range.
func ReduceSum(t *Tensor, axis int) *Tensor {
	adjustedAxis := adjustAxisToRank(axis, t.Rank())
	dimensions := append([]int(nil), t.shape.Dimensions...)
	xslices.SetAt(dimensions, adjustedAxis, 1)
	output := FromShape(shapes.Make(dimensions...))

	axisDim := t.shape.Dimensions[adjustedAxis]
	inner := 1
	for _, dim := range t.shape.Dimensions[adjustedAxis+1:] {
		inner *= dim
	}
	outer := 1
	for _, dim := range t.shape.Dimensions[:adjustedAxis] {
		outer *= dim
	}
	for o := 0; o < outer; o++ {
		for a := 0; a < axisDim; a++ {
			base := (o*axisDim + a) * inner
			outBase := o * inner
			for i := 0; i < inner; i++ {
				output.flat[outBase+i] += t.flat[base+i]
			}
		}
	}
	return output
}

// Transpose returns t with its axes permuted. Without arguments the axes order is
// fully reversed (the ordinary matrix transpose for rank 2). Otherwise axes must be
// a permutation of [0, rank): output axis i takes t's axis axes[i].
func Transpose(t *Tensor, axes ...int) *Tensor {
	rank := t.Rank()
	if len(axes) == 0 {
		axes = make([]int, rank)
		for ii := range axes {
			axes[ii] = rank - 1 - ii
		}
	}
	if len(axes) != rank {
		exceptions.Panicf("Transpose: axes %v is not a permutation of the %d axes of shape %s", axes, rank, t.shape)
	}
	seen := make([]bool, rank)
	for _, axis := range axes {
		if axis < 0 || axis >= rank || seen[axis] {
			exceptions.Panicf("Transpose: axes %v is not a permutation of the %d axes of shape %s", axes, rank, t.shape)
		}
		seen[axis] = true
	}

	outputDims := make([]int, rank)
	for ii, axis := range axes {
		outputDims[ii] = t.shape.Dimensions[axis]
	}
	output := FromShape(shapes.Make(outputDims...))

	// Walk the output in row-major order, tracking the matching flat index on the input.
	inStrides := t.LayoutStrides()
	srcStrides := make([]int, rank)
	for ii, axis := range axes {
		srcStrides[ii] = inStrides[axis]
	}
	outIdx := make([]int, rank)
	srcIdx := 0
	for ii := range output.flat {
		output.flat[ii] = t.flat[srcIdx]
		for axis := rank - 1; axis >= 0; axis-- {
			outIdx[axis]++
			srcIdx += srcStrides[axis]
			if outIdx[axis] < outputDims[axis] {
				break
			}
			outIdx[axis] = 0
			srcIdx -= srcStrides[axis] * outputDims[axis]
		}
	}
	return output
}

// Reshape returns t's data reinterpreted under the given dimensions. The total element
// count must match t's, otherwise it panics. The data is copied.
func Reshape(t *Tensor, dimensions ...int) *Tensor {
	shape := shapes.Make(dimensions...)
	if shape.Size() != t.Size() {
		exceptions.Panicf("Reshape: cannot reshape %s (%d elements) to %s (%d elements)",
			t.shape, t.Size(), shape, shape.Size())
	}
	output := FromShape(shape)
	copy(output.flat, t.flat)
	return output
}

// GatherRows returns the rows of t (its leading axis) selected by indices, in order.
// Indices may repeat. It panics if t is a scalar or any index is out-of-range.
func GatherRows(t *Tensor, indices []int) *Tensor {
	if t.Rank() == 0 {
		exceptions.Panicf("GatherRows: cannot select rows of a scalar")
	}
	numRows := t.shape.Dimensions[0]
	rowSize := 1
	for _, dim := range t.shape.Dimensions[1:] {
		rowSize *= dim
	}
	outputDims := append([]int{len(indices)}, t.shape.Dimensions[1:]...)
	output := FromShape(shapes.Make(outputDims...))
	for ii, row := range indices {
		if row < 0 || row >= numRows {
			exceptions.Panicf("GatherRows: row %d out-of-range for shape %s", row, t.shape)
		}
		copy(output.flat[ii*rowSize:(ii+1)*rowSize], t.flat[row*rowSize:(row+1)*rowSize])
	}
	return output
}
