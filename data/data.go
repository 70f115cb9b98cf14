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

// Package data feeds external arrays into a computation graph: Inputs for
// feature rows, Targets for supervised targets, and batchers that select
// which rows each evaluation pass sees.
//
// Inputs and Targets select their rows afresh on every value request, but
// the graph nodes computed from them cache as usual: after advancing a
// batcher, run the next evaluation pass with reset true so the new batch is
// observed.
package data

import (
	"github.com/gomlx/exceptions"
)

// Batcher selects which rows of a data array an evaluation pass sees.
type Batcher interface {
	// Indices returns the row indices of the current batch.
	Indices() []int
}

// MiniBatcher walks a data array of some total number of rows in contiguous
// mini-batches. The last batch of an epoch is short when the batch size does
// not divide the total.
type MiniBatcher struct {
	batchSize int
	total     int
	start     int
}

var _ Batcher = &MiniBatcher{}

// NewMiniBatcher creates a MiniBatcher over total rows, batchSize rows at a
// time, positioned at the first batch.
func NewMiniBatcher(batchSize, total int) *MiniBatcher {
	if batchSize <= 0 {
		exceptions.Panicf("NewMiniBatcher requires a positive batch size, got %d", batchSize)
	}
	if total <= 0 {
		exceptions.Panicf("NewMiniBatcher requires a positive total row count, got %d", total)
	}
	return &MiniBatcher{batchSize: batchSize, total: total}
}

// Indices returns the row indices of the current batch.
func (b *MiniBatcher) Indices() []int {
	end := b.start + b.batchSize
	if end > b.total {
		end = b.total
	}
	indices := make([]int, 0, end-b.start)
	for row := b.start; row < end; row++ {
		indices = append(indices, row)
	}
	return indices
}

// Next advances to the following batch. It returns false, after rewinding to
// the first batch, when the epoch is over.
func (b *MiniBatcher) Next() bool {
	b.start += b.batchSize
	if b.start >= b.total {
		b.start = 0
		return false
	}
	return true
}

// Reset rewinds to the first batch.
func (b *MiniBatcher) Reset() {
	b.start = 0
}

// NumBatches returns how many batches one epoch has.
func (b *MiniBatcher) NumBatches() int {
	return (b.total + b.batchSize - 1) / b.batchSize
}
