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
	"bytes"
	"fmt"
	"strings"

	"github.com/silky/Kayak/types/xslices"
)

// MaxSizeForString is the largest tensor that String() prints in full; larger
// tensors print only their shape and element count.
var MaxSizeForString = 500

// Summary returns a multi-line summary of the Tensor's content.
// Inspired by numpy output: at most the first and last 3 rows and columns of
// each axis are printed, with an ellipsis in between.
func (t *Tensor) Summary(precision int) string {
	if t.shape.IsZeroSize() {
		return t.shape.String()
	}

	// Easy string building.
	var buf bytes.Buffer
	w := func(format string, args ...any) { _, _ = fmt.Fprintf(&buf, format, args...) }

	dims := t.shape.Dimensions
	for _, dim := range dims {
		w("[%d]", dim)
	}
	w("float64")
	if len(dims) == 0 {
		w("(%.*g)", precision, t.flat[0])
		return buf.String()
	}

	// Recursive function to print elements.
	var printElements func(index, indent int, currentShape []int)
	printElements = func(index, indent int, currentShape []int) {
		indentStr := strings.Repeat(" ", indent)
		if len(currentShape) == 1 {
			// One row of data:
			w("{")
			if currentShape[0] > 6 {
				// Apply ellipsis for large rows.
				for ii := 0; ii < 3; ii++ {
					if ii > 0 {
						w(", ")
					}
					w("%.*g", precision, t.flat[index+ii])
				}
				w(", ..., ")
				for ii := currentShape[0] - 3; ii < currentShape[0]; ii++ {
					if ii > currentShape[0]-3 {
						w(", ")
					}
					w("%.*g", precision, t.flat[index+ii])
				}
			} else {
				for ii := 0; ii < currentShape[0]; ii++ {
					if ii > 0 {
						w(", ")
					}
					w("%.*g", precision, t.flat[index+ii])
				}
			}
			w("}")
			return
		}

		// Outer axes: print at most the first and last 3 rows.
		stride := 1
		for _, dim := range currentShape[1:] {
			stride *= dim
		}
		w("{")
		firstRows, lastRows := currentShape[0], 0
		if currentShape[0] > 6 {
			firstRows, lastRows = 3, 3
		}
		for ii := 0; ii < firstRows; ii++ {
			if ii > 0 {
				w(",\n%s", indentStr)
			}
			printElements(index+ii*stride, indent+1, currentShape[1:])
		}
		if lastRows > 0 {
			w(",\n%s...", indentStr)
			for ii := currentShape[0] - lastRows; ii < currentShape[0]; ii++ {
				w(",\n%s", indentStr)
				printElements(index+ii*stride, indent+1, currentShape[1:])
			}
		}
		w("}")
	}
	printElements(0, 1, dims)
	return buf.String()
}

// String converts to string, if not too large (see MaxSizeForString). It uses
// t.Summary(precision=4).
func (t *Tensor) String() string {
	if t.Size() > MaxSizeForString {
		dims := xslices.Map(t.shape.Dimensions, func(dim int) string { return fmt.Sprintf("[%d]", dim) })
		return fmt.Sprintf("%sfloat64{... %d elements ...}", strings.Join(dims, ""), t.Size())
	}
	return t.Summary(4)
}
