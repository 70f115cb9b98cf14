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

// Package graph implements reverse-mode automatic differentiation over
// matrix-valued computations.
//
// A computation is built bottom-up as an immutable directed acyclic graph of
// Differentiable nodes. Leaves hold data (Constant, Parameter, Input) and
// interior nodes apply matrix operations (MatMult, MatSum, MatAdd, Transpose,
// Reshape) to their operands. There is no separate "compile" step: a node is
// ready to evaluate as soon as it is constructed.
//
// The main elements in the package are:
//
//   - Differentiable: the node protocol. Value evaluates the forward pass,
//     Grad runs the reverse pass (the chain rule), DependsOn answers
//     reachability in the operand graph and Shape reports the node's static
//     (or input-dependent) shape.
//
//   - Leaves: Constant wraps a fixed tensor, Parameter wraps a mutable one
//     (the thing one usually differentiates with respect to) and Input is
//     bound to a concrete tensor only at evaluation time, through a Bindings
//     map.
//
//   - Operations: constructed with NewMatMult, NewMatAdd, NewMatSum,
//     NewTranspose and NewReshape. The n-ary constructors (NewMatMult,
//     NewMatAdd) desugar a call with more than two operands into a chain of
//     binary nodes.
//
// # Identity, not equality
//
// Nodes are compared by identity everywhere: two Parameters built from equal
// tensors are distinct nodes, each with its own gradient. Grad(other, ...)
// and DependsOn(other) follow pointers through the operand graph, never
// tensor contents. Reusing one node as an operand of several others is the
// way to express shared structure, and gradient contributions along all
// paths to it are summed.
//
// # Caching and the reset flag
//
// Every operation node caches its forward value. Value(false, ...) returns
// the cached tensor if there is one; Value(true, ...) forces this node and
// every operand visited in the same pass to recompute and re-cache. The
// reset flag is pass-scoped: it does not invalidate caches of nodes the pass
// never visits. Evaluation is single-threaded; nodes are not safe for
// concurrent use.
//
// # Error handling
//
// Structural mistakes (incompatible shapes, invalid axes, gradients of
// unimplemented operations) panic with an error built by
// github.com/gomlx/exceptions, so they carry a message and can be recovered
// with exceptions.Try. Errors are raised as early as they can be detected:
// shape mismatches between fixed-shape operands fail at construction, while
// anything depending on late-bound Input shapes fails during evaluation.
package graph

import (
	"math/rand"

	"github.com/silky/Kayak/types/shapes"
	"github.com/silky/Kayak/types/tensors"
	"k8s.io/klog/v2"
)

// Bindings maps Input nodes to the tensors they take for one evaluation
// pass. It is threaded unchanged through the whole recursion; nil is valid
// for graphs without Input nodes.
type Bindings map[*Input]*tensors.Tensor

// Differentiable is the protocol every node of a computation graph
// implements, leaves included.
type Differentiable interface {
	// Value returns this node's forward value, evaluating operands as
	// needed. With reset false a previously cached value is returned
	// untouched; with reset true this node and every operand visited
	// recompute. The rng is threaded to operations with stochastic
	// behavior and inputs binds Input leaves for this pass.
	Value(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor

	// Grad returns the gradient of this node with respect to other,
	// given the upstream gradient outgrad (shaped like this node's own
	// value). A nil outgrad seeds the reverse pass with ones, which is
	// what one wants when this node is the loss being differentiated.
	// It reuses the forward values cached by the preceding Value call.
	Grad(other Differentiable, outgrad *tensors.Tensor) *tensors.Tensor

	// DependsOn reports whether other is this node or is reachable from
	// it through operands. Comparison is by node identity.
	DependsOn(other Differentiable) bool

	// Shape returns the node's shape. Nodes whose shape is fixed at
	// construction accept a nil inputs; Input nodes without a stored
	// value need their binding to answer.
	Shape(inputs Bindings) shapes.Shape

	// Operands returns the nodes this node was constructed from, in
	// order. Leaves return nil. The returned slice must not be modified.
	Operands() []Differentiable
}

// op is the hook interface operation nodes implement on top of the embedded
// node base: compute produces the forward value and localGrad pushes an
// upstream gradient one level down, to the operand at the given index.
type op interface {
	Differentiable
	compute(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor
	localGrad(operand int, outgrad *tensors.Tensor) *tensors.Tensor
}

// node is the common base of all operation nodes. It owns the operand list,
// the forward-value cache and the generic chain rule, leaving only compute
// and localGrad to each operation. It must be initialized with init, which
// registers the outer operation so the base can call back into its hooks.
type node struct {
	self     op
	operands []Differentiable

	cached *tensors.Tensor
	reach  map[Differentiable]struct{}
}

func (n *node) init(self op, operands ...Differentiable) {
	n.self = self
	n.operands = operands
}

// Value returns the cached forward value, recomputing it first if there is
// none yet or reset is true.
func (n *node) Value(reset bool, rng *rand.Rand, inputs Bindings) *tensors.Tensor {
	if n.cached == nil || reset {
		n.cached = n.self.compute(reset, rng, inputs)
		if klog.V(3).Enabled() {
			klog.Infof("%T: recomputed, shape=%s", n.self, n.cached.Shape())
		}
	}
	return n.cached
}

// Grad accumulates the chain rule over the operands: the local gradient is
// added directly for an operand that is other itself, and pushed recursively
// through operands that depend on other. Operands unrelated to other
// contribute nothing. A nil outgrad is seeded with ones shaped like this
// node's value.
func (n *node) Grad(other Differentiable, outgrad *tensors.Tensor) *tensors.Tensor {
	if outgrad == nil {
		outgrad = tensors.Ones(n.self.Shape(nil))
	}
	grad := tensors.FromShape(other.Shape(nil))
	for ii, operand := range n.operands {
		if operand == other {
			grad = tensors.Add(grad, n.self.localGrad(ii, outgrad))
		} else if operand.DependsOn(other) {
			grad = tensors.Add(grad, operand.Grad(other, n.self.localGrad(ii, outgrad)))
		}
	}
	return grad
}

// DependsOn reports whether other is this node or any node reachable from
// it. The reachable set is collected once, on first use: the operand graph
// below a node never changes after construction, so it stays valid even as
// values do change (Parameter.Set, Input bindings).
func (n *node) DependsOn(other Differentiable) bool {
	if other == Differentiable(n.self) {
		return true
	}
	if n.reach == nil {
		n.reach = make(map[Differentiable]struct{})
		collectReachable(n.self, n.reach)
	}
	_, found := n.reach[other]
	return found
}

func (n *node) Operands() []Differentiable {
	return n.operands
}

// collectReachable adds to seen every node reachable from root through
// operands, root excluded. Diamonds are visited once.
func collectReachable(root Differentiable, seen map[Differentiable]struct{}) {
	for _, operand := range root.Operands() {
		if _, found := seen[operand]; found {
			continue
		}
		seen[operand] = struct{}{}
		collectReachable(operand, seen)
	}
}
