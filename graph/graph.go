// Package graph implements the computation-graph and reverse-mode autodiff
// engine at the core of this module: an arena of Node values, owned and
// indexed by a Graph, wired together into a DAG by the operator set in this
// package (elementwise, matrix, probabilistic, sequence/attention, spatial).
package graph

import (
	"fmt"

	"github.com/dagtrain/dagtrain/tensor"
)

// Graph owns every node created through its New* factories. Nodes are never
// freed individually; they live as long as the Graph. A Graph is not safe
// for concurrent use — each worker thread in the distributed training layer
// owns a private Graph and never shares it.
type Graph struct {
	nodes []*nodeState

	variables    []Handle
	nameToHandle map[string]Handle
	handleToName map[Handle]string

	epoch int
	rng   *tensor.RNG
}

// New returns an empty Graph whose random number generator (used by
// Dropout, Sampler, and RandomNormal-initialized Variables) is seeded with
// seed.
func New(seed int64) *Graph {
	return &Graph{
		nameToHandle: make(map[string]Handle),
		handleToName: make(map[Handle]string),
		rng:          tensor.NewRNG(seed),
	}
}

// RNG returns the graph's random number generator.
func (g *Graph) RNG() *tensor.RNG { return g.rng }

// add allocates a new arena slot for op and returns its handle.
func (g *Graph) add(kind string, op Operator) Handle {
	h := Handle(len(g.nodes))
	g.nodes = append(g.nodes, &nodeState{kind: kind, op: op, backprop: true})
	return h
}

// Keep adopts an externally constructed Operator (typically a composite
// wired up via IDerivative) so its lifetime is tied to this Graph, exactly
// like a node created by one of the New* factories.
func (g *Graph) Keep(kind string, op Operator) Handle {
	return g.add(kind, op)
}

// SetName assigns a unique, human-readable name to a node, used for
// checkpointing and debugging. Returns ErrDuplicateName if name is already
// registered to a different node.
func (g *Graph) SetName(h Handle, name string) error {
	if existing, ok := g.nameToHandle[name]; ok && existing != h {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if old, ok := g.handleToName[h]; ok {
		delete(g.nameToHandle, old)
	}
	g.nameToHandle[name] = h
	g.handleToName[h] = name
	g.nodes[h].name = name
	return nil
}

// Name returns the name assigned to h, or "" if none.
func (g *Graph) Name(h Handle) string { return g.handleToName[h] }

// ByName looks up a node by its registered name.
func (g *Graph) ByName(name string) (Handle, bool) {
	h, ok := g.nameToHandle[name]
	return h, ok
}

// SetBackprop pins gradient flow through h on (the default) or off.
// Disabling it suppresses both h's own gradient accumulation and delivery
// of gradients to h's inputs, letting a node be treated as a constant
// without changing its type.
func (g *Graph) SetBackprop(h Handle, enabled bool) {
	g.nodes[h].backprop = enabled
}

// Backprop reports whether gradient flow through h is enabled.
func (g *Graph) Backprop(h Handle) bool { return g.nodes[h].backprop }

// Kind returns the operator kind name of h ("constant", "linear", ...).
func (g *Graph) Kind(h Handle) string { return g.nodes[h].kind }

// Value returns h's cached forward value, or nil if it has never been
// forwarded.
func (g *Graph) Value(h Handle) *tensor.Tensor { return g.nodes[h].value }

// Gradient returns h's current accumulated gradient, or nil if it has
// never received one.
func (g *Graph) Gradient(h Handle) *tensor.Tensor { return g.nodes[h].grad }

// Variables returns every Variable node in the order it was created. This
// order is part of the weight-serialization contract in package training.
func (g *Graph) Variables() []Handle {
	out := make([]Handle, len(g.variables))
	copy(out, g.variables)
	return out
}

// Recache advances the graph's epoch in O(1), invalidating every node's
// cached forward value. Cached values are not cleared eagerly; each node
// simply recomputes the next time Forward reaches it.
func (g *Graph) Recache() {
	g.epoch++
}

// Epoch returns the current recache epoch.
func (g *Graph) Epoch() int { return g.epoch }

// Forward computes (and caches) h's value, recursively forcing its inputs.
// A node forwards at most once per epoch: repeated calls in the same epoch
// return the identical cached tensor. Returns ErrShapeMismatch if h's
// recomputed shape differs from its previously established shape, or
// ErrUnsetConstant if forward reaches a Constant that was never given a
// value.
func (g *Graph) Forward(h Handle) (val *tensor.Tensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverGraphError(r)
			val = nil
		}
	}()
	return g.forward(h), nil
}

// forward is the panic-raising implementation Operators call on their own
// inputs; Forward recovers at the public boundary.
func (g *Graph) forward(h Handle) *tensor.Tensor {
	n := g.nodes[h]
	if n.valid && n.epoch == g.epoch {
		return n.value
	}
	v := n.op.Forward(g)
	if n.valid && (v.Rows() != n.value.Rows() || v.Cols() != n.value.Cols()) {
		panicShapeMismatch(n.kind, fmt.Errorf("node %q shape changed from %dx%d to %dx%d", g.displayName(h), n.value.Rows(), n.value.Cols(), v.Rows(), v.Cols()))
	}
	n.value = v
	n.epoch = g.epoch
	n.valid = true
	return v
}

func (g *Graph) displayName(h Handle) string {
	if name, ok := g.handleToName[h]; ok {
		return name
	}
	return fmt.Sprintf("#%d", h)
}

// reachable returns every handle reachable from root by following Inputs()
// edges, including root itself, sorted in decreasing handle order. Since
// every node's inputs have strictly smaller handles than the node itself,
// this order is a valid reverse topological order without a separate sort.
func (g *Graph) reachable(root Handle) []Handle {
	seen := make(map[Handle]bool)
	var order []Handle
	var visit func(Handle)
	visit = func(h Handle) {
		if seen[h] {
			return
		}
		seen[h] = true
		order = append(order, h)
		for _, in := range g.nodes[h].op.Inputs() {
			visit(in)
		}
	}
	visit(root)
	// order is pre-order from root (descending-ish already because inputs
	// are smaller), but sort explicitly so the invariant holds regardless
	// of traversal order.
	sortDescending(order)
	return order
}

func sortDescending(hs []Handle) {
	for i := 1; i < len(hs); i++ {
		for j := i; j > 0 && hs[j-1] < hs[j]; j-- {
			hs[j-1], hs[j] = hs[j], hs[j-1]
		}
	}
}

// Backward zeroes every node's gradient, seeds F's gradient with seed, and
// walks the reverse topological order of nodes reached forward-wise from F,
// invoking each registered operator's Backward once and accumulating the
// resulting gradients additively into its inputs. A node with backprop
// disabled neither receives nor propagates a gradient.
func (g *Graph) Backward(f Handle, seed *tensor.Tensor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverGraphError(r)
		}
	}()
	for _, n := range g.nodes {
		n.grad = nil
	}
	order := g.reachable(f)
	g.nodes[f].grad = seed
	for _, h := range order {
		n := g.nodes[h]
		if !n.backprop || n.grad == nil {
			continue
		}
		inputs := n.op.Inputs()
		if len(inputs) == 0 {
			continue
		}
		grads := n.op.Backward(g, n.grad)
		for i, in := range inputs {
			if grads[i] == nil {
				continue
			}
			inNode := g.nodes[in]
			if !inNode.backprop {
				continue
			}
			if inNode.grad == nil {
				inNode.grad = grads[i].Clone()
			} else {
				inNode.grad = tensor.Add(inNode.grad, grads[i])
			}
		}
	}
	return nil
}

// ZeroGrad sets every variable's gradient to zero, matching its value's
// shape. Call this after an optimizer step and before the next forward.
func (g *Graph) ZeroGrad() {
	for _, h := range g.variables {
		n := g.nodes[h]
		if n.value != nil {
			n.grad = tensor.Zeros(n.value.Rows(), n.value.Cols())
		} else {
			n.grad = nil
		}
	}
}
