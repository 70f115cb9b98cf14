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

package shapes

import (
	"github.com/pkg/errors"

	"github.com/silky/Kayak/types/xslices"
)

// Broadcast returns the shape resulting from broadcasting lhs and rhs together,
// following the standard trailing-aligned rules: dimensions are compared from
// the rightmost axis; two dimensions are compatible if they are equal or if
// either is 1; missing leading dimensions are treated as 1; the output takes
// the larger dimension per axis.
//
// It returns an error if any aligned pair of dimensions is incompatible.
func Broadcast(lhs, rhs Shape) (output Shape, err error) {
	rank := max(lhs.Rank(), rhs.Rank())
	output = Shape{Dimensions: make([]int, rank)}
	for axis := 1; axis <= rank; axis++ {
		lhsDim, rhsDim := 1, 1
		if axis <= lhs.Rank() {
			lhsDim = xslices.At(lhs.Dimensions, -axis)
		}
		if axis <= rhs.Rank() {
			rhsDim = xslices.At(rhs.Dimensions, -axis)
		}
		if lhsDim != 1 && rhsDim != 1 && lhsDim != rhsDim {
			err = errors.Errorf("cannot broadcast shapes %s and %s: axis %d from the end has incompatible dimensions %d and %d",
				lhs, rhs, axis, lhsDim, rhsDim)
			return Shape{}, err
		}
		output.Dimensions[rank-axis] = max(lhsDim, rhsDim)
	}
	return output, nil
}
