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
	"github.com/silky/Kayak/types/shapes"
)

// broadcastIterator allows one to iterate over the flat indices of a tensor that is being
// broadcast (some dimensions will grow) while walking the target shape in row-major order.
//
// It is used by the implicit broadcasting of the binary kernels as well as by BroadcastTo.
type broadcastIterator struct {
	flatIdx     int
	perAxesIdx  []int
	targetDims  []int
	isBroadcast []bool
	strides     []int
}

// newBroadcastIterator returns an iterator over the flat indices of a tensor of fromShape
// while the enclosing loop walks toShape in row-major order.
//
// fromShape's rank may be smaller than toShape's: missing leading axes count as 1,
// following the trailing-aligned broadcast rules. Each remaining axis of fromShape must
// either equal toShape's or be 1; callers validate with shapes.Broadcast first.
func newBroadcastIterator(fromShape, toShape shapes.Shape) *broadcastIterator {
	rank := toShape.Rank()
	fromDims := make([]int, rank)
	pad := rank - fromShape.Rank()
	for axis := range fromDims {
		if axis < pad {
			fromDims[axis] = 1
		} else {
			fromDims[axis] = fromShape.Dimensions[axis-pad]
		}
	}
	bi := &broadcastIterator{
		perAxesIdx:  make([]int, rank),
		targetDims:  toShape.Dimensions,
		isBroadcast: make([]bool, rank),
		strides:     make([]int, rank),
	}
	stride := 1
	for axis := rank - 1; axis >= 0; axis-- {
		bi.strides[axis] = stride
		stride *= fromDims[axis]
		bi.isBroadcast[axis] = fromDims[axis] != toShape.Dimensions[axis]
	}
	return bi
}

func (bi *broadcastIterator) Next() (flatIdx int) {
	flatIdx = bi.flatIdx
	bi.flatIdx++
	rank := len(bi.perAxesIdx)
	for axis := rank - 1; axis >= 0; axis-- {
		bi.perAxesIdx[axis]++
		if bi.perAxesIdx[axis] < bi.targetDims[axis] {
			if bi.isBroadcast[axis] {
				// If we are broadcasting on this axis, we need to go back and repeat the same slice of the tensor.
				bi.flatIdx -= bi.strides[axis]
			}
			break
		}
		bi.perAxesIdx[axis] = 0
	}
	return
}
