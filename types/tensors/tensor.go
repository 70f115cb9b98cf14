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

// Package tensors implements a `Tensor`, a representation of a multi-dimensional array of float64.
//
// Tensors are multidimensional arrays (from scalar with 0 dimensions, to arbitrarily large dimensions),
// defined by their shape (the axes' dimensions) and their actual content, stored as a flat (row-major)
// slice of float64.
//
// The main use of tensors is as the values flowing through computation graphs (see graph package).
//
// There are various ways to construct a Tensor from local data:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromScalarAndDimensions(value float64, dimensions ...int): creates a Tensor with the
//     given dimensions, filled with the scalar value given.
//
//   - FromFlatDataAndDimensions(data []float64, dimensions ...int): creates a Tensor with the
//     given dimensions, and set the flattened values with the given data. Example:
//
//     t := FromFlatDataAndDimensions([]float64{1, 2, 3, 4}, 2, 2) // Tensor with [[1,2], [3,4]]
//
//   - FromValue(value any): conversion from a scalar float64 or any multidimensional slice of
//     float64. Slices of rank > 1 must be regular, that is all the sub-slices must have the
//     same shape. Example:
//
//     t := FromValue([][]float64{{1, 2}, {3, 5}, {7, 11}})
//
// Tensors flowing through a graph are treated as immutable: the compute kernels in this package
// always allocate fresh outputs. Mutating a tensor's flat data while it is cached by a graph node
// leads to stale reads; replace the tensor instead (see graph.Parameter.Set).
//
// A Tensor is not safe for concurrent mutation. Concurrent reads are fine.
package tensors

import (
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/silky/Kayak/types/shapes"
	"github.com/silky/Kayak/types/xslices"
)

// Tensor represents a multidimensional array of float64, defined by its shape
// and its content, stored as a flat (row-major) slice.
//
// Use one of the From* constructors; the zero value of Tensor is not valid.
type Tensor struct {
	shape shapes.Shape
	flat  []float64
}

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
func FromShape(shape shapes.Shape) *Tensor {
	return &Tensor{
		shape: shape.Clone(),
		flat:  make([]float64, shape.Size()),
	}
}

// Ones returns a Tensor with the given shape, filled with ones.
func Ones(shape shapes.Shape) *Tensor {
	t := FromShape(shape)
	xslices.FillSlice(t.flat, 1.0)
	return t
}

// FromScalar creates a rank-0 tensor with the given value.
func FromScalar(value float64) *Tensor {
	return FromScalarAndDimensions(value)
}

// FromScalarAndDimensions creates a tensor with the given dimensions, filled with the
// given scalar value replicated everywhere.
func FromScalarAndDimensions(value float64, dimensions ...int) *Tensor {
	t := FromShape(shapes.Make(dimensions...))
	xslices.FillSlice(t.flat, value)
	return t
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the
// flattened values given in `data`. The data is copied to the Tensor.
func FromFlatDataAndDimensions(data []float64, dimensions ...int) *Tensor {
	shape := shapes.Make(dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d", shape, len(data), shape.Size())
	}
	t := FromShape(shape)
	copy(t.flat, data)
	return t
}

// FromValue returns a tensor constructed from a scalar float64 or a multi-dimension slice
// of float64 ([]float64, [][]float64, …). If the rank of the `value` is larger than 1, the
// shape of all sub-slices must be the same.
//
// It panics if the value is not a float64 container or the shape is not regular.
func FromValue(value any) *Tensor {
	shape, err := shapeForValue(value)
	if err != nil {
		panic(errors.Wrapf(err, "cannot create a tensor from %T", value))
	}
	t := FromShape(shape)
	if shape.IsScalar() {
		t.flat[0] = value.(float64)
		return t
	}
	copySlicesRecursively(t.flat, reflect.ValueOf(value), t.LayoutStrides())
	return t
}

// shapeForValue computes the shape of a nested slice of float64, checking that
// all sub-slices are regular.
func shapeForValue(value any) (shape shapes.Shape, err error) {
	valueType := reflect.TypeOf(value)
	var dimensions []int
	for valueType.Kind() == reflect.Slice {
		dimensions = append(dimensions, 0)
		valueType = valueType.Elem()
	}
	if valueType.Kind() != reflect.Float64 {
		err = errors.Errorf("tensors only hold float64 elements, got %T", value)
		return
	}
	valueOf := reflect.ValueOf(value)
	for axis := range dimensions {
		dimensions[axis] = valueOf.Len()
		if valueOf.Len() == 0 {
			break
		}
		valueOf = valueOf.Index(0)
	}
	shape = shapes.Make(dimensions...)
	if !regularSubSlices(reflect.ValueOf(value), dimensions) {
		err = errors.Errorf("value has irregular sub-slices, they must all have the same dimensions to convert to a tensor")
	}
	return
}

func regularSubSlices(valueOf reflect.Value, dimensions []int) bool {
	if len(dimensions) == 0 {
		return true
	}
	if valueOf.Len() != dimensions[0] {
		return false
	}
	for ii := 0; ii < valueOf.Len(); ii++ {
		if !regularSubSlices(valueOf.Index(ii), dimensions[1:]) {
			return false
		}
	}
	return true
}

// copySlicesRecursively copy values on a multi-dimension slice to a flat data slice
// assuming the strides for each dimension.
func copySlicesRecursively(data []float64, mdSlice reflect.Value, strides []int) {
	if len(strides) == 1 {
		reflect.Copy(reflect.ValueOf(data), mdSlice)
		return
	}
	numElements := mdSlice.Len()
	subStrides := strides[1:]
	for ii := 0; ii < numElements; ii++ {
		start := ii * strides[0]
		copySlicesRecursively(data[start:start+strides[0]], mdSlice.Index(ii), subStrides)
	}
}

// Shape of the tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Rank of the tensor's shape, same as t.Shape().Rank().
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size is the number of elements stored, same as t.Shape().Size().
func (t *Tensor) Size() int { return t.shape.Size() }

// IsScalar returns whether the tensor holds a single value, same as t.Shape().IsScalar().
func (t *Tensor) IsScalar() bool { return t.shape.IsScalar() }

// LayoutStrides returns the row-major strides of each axis.
func (t *Tensor) LayoutStrides() []int { return t.shape.Strides() }

// Flat returns the tensor's underlying flat data, in row-major order.
// It is a reference, not a copy; see the package documentation on immutability.
func (t *Tensor) Flat() []float64 { return t.flat }

// At returns the element at the given indices, one per axis.
func (t *Tensor) At(indices ...int) float64 {
	if len(indices) != t.Rank() {
		exceptions.Panicf("Tensor.At() requires one index per axis, got %d indices for shape %s", len(indices), t.shape)
	}
	flatIdx := 0
	for axis, idx := range indices {
		if idx < 0 || idx >= t.shape.Dimensions[axis] {
			exceptions.Panicf("Tensor.At(%v) out-of-bounds for shape %s", indices, t.shape)
		}
		flatIdx = flatIdx*t.shape.Dimensions[axis] + idx
	}
	return t.flat[flatIdx]
}

// Value returns the tensor contents as a scalar float64 if rank is 0, or as a
// multidimensional slice ([]float64, [][]float64, …) otherwise. The data is copied.
func (t *Tensor) Value() any {
	if t.IsScalar() {
		return t.flat[0]
	}
	return nestedSlice(t.flat, t.shape.Dimensions, t.LayoutStrides()).Interface()
}

func nestedSlice(flat []float64, dimensions, strides []int) reflect.Value {
	if len(dimensions) == 1 {
		out := make([]float64, dimensions[0])
		copy(out, flat)
		return reflect.ValueOf(out)
	}
	sliceType := reflect.TypeOf(float64(0))
	for range dimensions {
		sliceType = reflect.SliceOf(sliceType)
	}
	out := reflect.MakeSlice(sliceType, dimensions[0], dimensions[0])
	for ii := 0; ii < dimensions[0]; ii++ {
		start := ii * strides[0]
		out.Index(ii).Set(nestedSlice(flat[start:start+strides[0]], dimensions[1:], strides[1:]))
	}
	return out
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	t2 := FromShape(t.shape)
	copy(t2.flat, t.flat)
	return t2
}

// Equal checks whether two tensors have the same shape and exactly the same values.
func (t *Tensor) Equal(t2 *Tensor) bool {
	if !t.shape.Equal(t2.shape) {
		return false
	}
	for ii, v := range t.flat {
		if t2.flat[ii] != v {
			return false
		}
	}
	return true
}

// InDelta checks whether two tensors have the same shape and all values within delta of each other.
func (t *Tensor) InDelta(t2 *Tensor, delta float64) bool {
	if !t.shape.Equal(t2.shape) {
		return false
	}
	for ii, v := range t.flat {
		diff := t2.flat[ii] - v
		if diff > delta || diff < -delta {
			return false
		}
	}
	return true
}
