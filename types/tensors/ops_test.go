package tensors

import (
	"testing"

	"github.com/silky/Kayak/types/shapes"
	"github.com/silky/Kayak/types/xslices"
	"github.com/stretchr/testify/require"
)

func TestMatMul(t *testing.T) {
	a := FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})
	b := FromValue([][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}})
	got := MatMul(a, b)
	require.Equal(t, []int{2, 4}, got.Shape().Dimensions)
	require.Equal(t, []float64{38, 44, 50, 56, 83, 98, 113, 128}, got.Flat())

	// Matrix times vector contracts to a vector.
	x := FromValue([]float64{1, 0, 2})
	got = MatMul(a, x)
	require.Equal(t, []int{2}, got.Shape().Dimensions)
	require.Equal(t, []float64{7, 16}, got.Flat())

	// Mismatched contracting dimensions.
	require.Panics(t, func() { MatMul(a, FromShape(shapes.Make(4, 2))) })
	require.Panics(t, func() { MatMul(a, FromValue([]float64{1, 2})) })
	// Only rank-2 left operands.
	require.Panics(t, func() { MatMul(x, a) })
}

func TestOuter(t *testing.T) {
	u := FromValue([]float64{1, 2, 3})
	v := FromValue([]float64{4, 5})
	got := Outer(u, v)
	require.Equal(t, []int{3, 2}, got.Shape().Dimensions)
	require.Equal(t, []float64{4, 5, 8, 10, 12, 15}, got.Flat())

	require.Panics(t, func() { Outer(u, FromShape(shapes.Make(2, 2))) })
}

func TestAdd(t *testing.T) {
	m := FromValue([][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}})

	// Same shapes.
	got := Add(m, m)
	require.Equal(t, []float64{2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22, 24}, got.Flat())

	// A column broadcasts across the rows.
	column := FromValue([][]float64{{1}, {2}, {3}})
	got = Add(column, m)
	require.Equal(t, []int{3, 4}, got.Shape().Dimensions)
	require.Equal(t, []float64{2, 3, 4, 5, 7, 8, 9, 10, 12, 13, 14, 15}, got.Flat())

	// A vector broadcasts across leading axes.
	vector := FromValue([]float64{10, 20, 30})
	rows := FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})
	got = Add(vector, rows)
	require.Equal(t, []int{2, 3}, got.Shape().Dimensions)
	require.Equal(t, []float64{11, 22, 33, 14, 25, 36}, got.Flat())

	// A scalar broadcasts everywhere.
	got = Add(FromScalar(10), FromValue([][]float64{{1, 2}, {3, 4}}))
	require.Equal(t, []float64{11, 12, 13, 14}, got.Flat())

	require.Panics(t, func() { Add(FromShape(shapes.Make(3, 2)), FromShape(shapes.Make(3, 4))) })
}

func TestMul(t *testing.T) {
	got := Mul(FromValue([][]float64{{1, 2}, {3, 4}}), FromValue([][]float64{{2, 2}, {2, 2}}))
	require.Equal(t, []float64{2, 4, 6, 8}, got.Flat())

	got = Mul(FromValue([]float64{1, 10}), FromValue([][]float64{{1, 2}, {3, 4}}))
	require.Equal(t, []float64{1, 20, 3, 40}, got.Flat())
}

func TestBroadcastTo(t *testing.T) {
	column := FromValue([][]float64{{1}, {2}, {3}})
	got := BroadcastTo(column, shapes.Make(3, 2))
	require.Equal(t, []float64{1, 1, 2, 2, 3, 3}, got.Flat())

	vector := FromValue([]float64{1, 2, 3})
	got = BroadcastTo(vector, shapes.Make(2, 3))
	require.Equal(t, []float64{1, 2, 3, 1, 2, 3}, got.Flat())

	got = BroadcastTo(FromScalar(7), shapes.Make(2, 2))
	require.Equal(t, []float64{7, 7, 7, 7}, got.Flat())

	// Must broadcast to exactly the target shape.
	require.Panics(t, func() { BroadcastTo(vector, shapes.Make(3, 2)) })
	require.Panics(t, func() { BroadcastTo(FromShape(shapes.Make(2, 3)), shapes.Make(3)) })
}

func TestReduceSum(t *testing.T) {
	m := FromValue([][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}})

	got := ReduceSum(m, 1)
	require.Equal(t, []int{3, 1}, got.Shape().Dimensions)
	require.Equal(t, []float64{10, 26, 42}, got.Flat())

	got = ReduceSum(m, 0)
	require.Equal(t, []int{1, 4}, got.Shape().Dimensions)
	require.Equal(t, []float64{15, 18, 21, 24}, got.Flat())

	// Negative axes count from the end.
	require.Equal(t, []float64{10, 26, 42}, ReduceSum(m, -1).Flat())

	require.Equal(t, 78.0, ReduceAllSum(m))

	require.Panics(t, func() { ReduceSum(m, 2) })
	require.Panics(t, func() { ReduceSum(m, -3) })
}

func TestTranspose(t *testing.T) {
	a := FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})
	got := Transpose(a)
	require.Equal(t, []int{3, 2}, got.Shape().Dimensions)
	require.Equal(t, []float64{1, 4, 2, 5, 3, 6}, got.Flat())

	// Axes permutation on a rank-3 tensor: output axis ii takes the
	// input axis axes[ii].
	rank3 := FromFlatDataAndDimensions(xslices.Iota(0.0, 24), 2, 3, 4)
	got = Transpose(rank3, 2, 0, 1)
	require.Equal(t, []int{4, 2, 3}, got.Shape().Dimensions)
	require.Equal(t, rank3.At(0, 2, 1), got.At(1, 0, 2))
	require.Equal(t, rank3.At(1, 2, 3), got.At(3, 1, 2))
	require.Equal(t, rank3.At(0, 0, 0), got.At(0, 0, 0))

	// Transposing twice with the same permutation's inverse restores.
	back := Transpose(got, 1, 2, 0)
	require.True(t, back.Equal(rank3))

	require.Panics(t, func() { Transpose(a, 0, 0) })
	require.Panics(t, func() { Transpose(a, 0) })
	require.Panics(t, func() { Transpose(a, 0, 2) })
}

func TestReshape(t *testing.T) {
	a := FromValue([][]float64{{1, 2, 3}, {4, 5, 6}})
	got := Reshape(a, 3, 2)
	require.Equal(t, []int{3, 2}, got.Shape().Dimensions)
	require.Equal(t, []float64{1, 2, 3, 4, 5, 6}, got.Flat())

	got = Reshape(a, 6)
	require.Equal(t, []int{6}, got.Shape().Dimensions)

	// The data is copied, not shared.
	got.Flat()[0] = 100
	require.Equal(t, 1.0, a.At(0, 0))

	require.Panics(t, func() { Reshape(a, 4) })
}

func TestGatherRows(t *testing.T) {
	m := FromValue([][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}})
	got := GatherRows(m, []int{2, 0, 2})
	require.Equal(t, []int{3, 4}, got.Shape().Dimensions)
	require.Equal(t, []float64{9, 10, 11, 12, 1, 2, 3, 4, 9, 10, 11, 12}, got.Flat())

	// Gathering from a vector selects elements.
	v := FromValue([]float64{10, 20, 30})
	got = GatherRows(v, []int{1})
	require.Equal(t, []int{1}, got.Shape().Dimensions)
	require.Equal(t, []float64{20}, got.Flat())

	require.Panics(t, func() { GatherRows(m, []int{3}) })
	require.Panics(t, func() { GatherRows(FromScalar(1), []int{0}) })
}