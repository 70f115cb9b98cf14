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

// Package nanlogger monitors selected nodes of a computation graph for
// `NaN` ("not-a-number") or `Inf` (infinity) values.
//
// It does that by wrapping the nodes to monitor: the wrapper is itself a
// graph.Differentiable that passes values and gradients through unchanged,
// scanning every value it sees. When a `NaN` or `Inf` is observed (often it
// then spreads through the whole graph, so the node where it first appears
// is the interesting one), it reports the stack trace of where the monitor
// was created, along with an optional user-set scoped context.
//
// Example:
//
//	nanLogger := nanlogger.New()
//	…
//	for ii := 0; ii < numBlocks; ii++ {
//		name := fmt.Sprintf("block-%d", ii+1)
//		nanLogger.PushScope(name)
//		x = nanLogger.Monitor(graph.NewMatMult(x, weights[ii]))
//		nanLogger.PopScope()
//	}
package nanlogger

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/silky/Kayak/graph"
	"github.com/silky/Kayak/types/shapes"
	"github.com/silky/Kayak/types/tensors"
	"k8s.io/klog/v2"
)

// NanLogger monitors for NaN (and Inf) values flowing through a computation
// graph. You manually select the nodes to monitor with Monitor, and it saves
// the stack where the monitor was set along with user provided scope
// information. If during evaluation a NaN appears, it calls the configured
// handler with that trace; the default handler prints everything and exits.
//
// See example in the package documentation.
type NanLogger struct {
	handler      HandlerFn
	currentScope []string
}

// Trace information of a node that is set to monitor.
// This is what is printed out when a `NaN` is found, or passed to a handler
// function, if one is set.
type Trace struct {
	// StackTrace of where the monitor was created, stored as an error
	// that can be printed.
	StackTrace error

	// Scope saved when the monitor was created.
	Scope []string
}

// HandlerFn is the type of function to handle NaN traces. It receives the
// offending value (NaN, +Inf or -Inf) and the trace of the monitor that
// caught it.
type HandlerFn func(badValue float64, info *Trace)

// New creates a NanLogger that can be used to find where NaNs first appear
// in a computation. See NanLogger for details.
func New() *NanLogger {
	return &NanLogger{handler: DefaultHandler}
}

// Monitor wraps node so that every value it produces is scanned for NaN and
// Inf before flowing further up the graph. The wrapper behaves exactly like
// node otherwise, gradients included, so it can be used in node's place when
// building the rest of the graph.
//
// A user-provided scope can be given: it stacks on top of the current
// NanLogger scope stack.
//
// A nil NanLogger is valid: Monitor returns node unchanged.
func (l *NanLogger) Monitor(node graph.Differentiable, scope ...string) graph.Differentiable {
	if l == nil {
		return node
	}
	trace := &Trace{
		StackTrace: errors.Errorf("stack-trace"),
		Scope:      append(slices.Clone(l.currentScope), scope...),
	}
	return &monitored{logger: l, wrapped: node, trace: trace}
}

// PushScope to current scope stack.
// These values are added by default to any new monitor.
//
// A nil NanLogger is valid, and it will simply be a no-op.
func (l *NanLogger) PushScope(scope string) {
	if l == nil {
		return
	}
	l.currentScope = append(l.currentScope, scope)
}

// PopScope removes the last entry in the current scope stack.
//
// A nil NanLogger is valid, and it will simply be a no-op.
func (l *NanLogger) PopScope() {
	if l == nil {
		return
	}
	if len(l.currentScope) == 0 {
		klog.Warningf("NanLogger.PopScope() called on an already empty scope stack!?")
		return
	}
	l.currentScope = l.currentScope[:len(l.currentScope)-1]
}

// SetHandler sets the function called when a `NaN` is observed. The default
// is DefaultHandler, which prints out all information and exits.
//
// A nil NanLogger is valid, and it will simply be a no-op.
func (l *NanLogger) SetHandler(handler HandlerFn) {
	if l == nil {
		return
	}
	l.handler = handler
}

// DefaultHandler when a `NaN` or `Inf` is observed: it prints out all the
// information and exits.
func DefaultHandler(badValue float64, info *Trace) {
	var scopeTxt string
	if len(info.Scope) > 0 {
		scopeTxt = fmt.Sprintf("Scope:\n\t%s\n", strings.Join(info.Scope, "\n\t"))
	}
	klog.Exitf("NanLogger observed a %f during evaluation:\n%sStack-trace of monitor:\n%+v\n",
		badValue, scopeTxt, info.StackTrace)
}

// monitored is the pass-through node Monitor wraps around the node to watch.
type monitored struct {
	logger  *NanLogger
	wrapped graph.Differentiable
	trace   *Trace
}

func (m *monitored) Value(reset bool, rng *rand.Rand, inputs graph.Bindings) *tensors.Tensor {
	value := m.wrapped.Value(reset, rng, inputs)
	// The sum of all elements is enough to detect trouble: any NaN or
	// Inf drags the whole sum along.
	sum := tensors.ReduceAllSum(value)
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		m.logger.handler(sum, m.trace)
	}
	return value
}

func (m *monitored) Grad(other graph.Differentiable, outgrad *tensors.Tensor) *tensors.Tensor {
	if outgrad == nil {
		outgrad = tensors.Ones(m.Shape(nil))
	}
	if other == m.wrapped || other == graph.Differentiable(m) {
		return outgrad
	}
	if m.wrapped.DependsOn(other) {
		return m.wrapped.Grad(other, outgrad)
	}
	return tensors.FromShape(other.Shape(nil))
}

func (m *monitored) DependsOn(other graph.Differentiable) bool {
	return other == graph.Differentiable(m) || m.wrapped.DependsOn(other)
}

func (m *monitored) Shape(inputs graph.Bindings) shapes.Shape {
	return m.wrapped.Shape(inputs)
}

func (m *monitored) Operands() []graph.Differentiable {
	return []graph.Differentiable{m.wrapped}
}
