// Package training implements the Trait shared by every concrete model: a
// pair of graphs (curr, the live training graph, and prev, the last
// snapshot seen from the master) plus the get/set/upd-weights operations
// that move variable values across the wire using package codec. It
// mirrors the division the teacher's own model types make between a small
// embeddable base (the plumbing) and a per-model virtual hook
// (BatchTrain) the base can't implement generically.
package training

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dagtrain/dagtrain/codec"
	"github.com/dagtrain/dagtrain/graph"
	"github.com/dagtrain/dagtrain/tensor"
)

// ErrVariableCountMismatch is returned by GetUpdate when curr and prev
// disagree on the number of variables — they must have gone through the
// same SetWeights history to be comparable.
var ErrVariableCountMismatch = errors.New("training: variable count mismatch between curr and prev")

// Trait is the contract every model implementation satisfies: the get/set/
// upd-weights plumbing (provided by Base) plus the one model-specific hook,
// BatchTrain, that runs forward/backward/optimizer.Update for one step.
type Trait interface {
	GetWeights() ([]byte, error)
	SetWeights(buf []byte) error
	GetUpdate() ([]byte, error)
	UpdWeights(buf []byte) error
	BatchTrain() error
}

// Base implements every Trait method except BatchTrain. A concrete model
// embeds Base and supplies BatchTrain itself, exactly the split the spec's
// "abstract; the concrete model implements one optimizer step" describes.
type Base struct {
	Curr *graph.Graph
	Prev *graph.Graph
}

// NewBase wraps an existing live graph curr with a fresh, empty snapshot
// graph seeded the same way, ready to receive its first SetWeights.
func NewBase(curr *graph.Graph, prevSeed int64) *Base {
	return &Base{Curr: curr, Prev: graph.New(prevSeed)}
}

// GetWeights writes the variable count N followed by each of curr's
// variables, in insertion order, using the codec.
func (b *Base) GetWeights() ([]byte, error) {
	vars := b.Curr.Variables()
	var buf bytes.Buffer
	if err := codec.WriteInt(&buf, int32(len(vars))); err != nil {
		return nil, err
	}
	for _, h := range vars {
		v, err := b.Curr.Forward(h)
		if err != nil {
			return nil, fmt.Errorf("training: GetWeights: %w", err)
		}
		if err := codec.WriteTensor(&buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// SetWeights parses N and loads each variable's tensor into both Curr and
// Prev. If either graph has fewer than N variables, the shortfall is made
// up with freshly created (empty, zero-valued) Variable nodes before the
// values are loaded — callers that build their model graph ahead of time
// never hit this path; it exists for a worker receiving its very first
// snapshot before its own graph construction has created matching
// variables. Right after SetWeights, GetUpdate returns all-zero tensors
// because Curr and Prev now hold identical values.
func (b *Base) SetWeights(buf []byte) error {
	r := bytes.NewReader(buf)
	n, err := codec.ReadInt(r)
	if err != nil {
		return fmt.Errorf("training: SetWeights: %w", err)
	}
	growVariables(b.Curr, int(n))
	growVariables(b.Prev, int(n))
	currVars := b.Curr.Variables()
	prevVars := b.Prev.Variables()
	for i := 0; i < int(n); i++ {
		t, err := codec.ReadTensor(r)
		if err != nil {
			return fmt.Errorf("training: SetWeights: %w", err)
		}
		b.Curr.SetVariable(currVars[i], t.Clone())
		b.Prev.SetVariable(prevVars[i], t.Clone())
	}
	b.Curr.Recache()
	b.Prev.Recache()
	// Force every variable through Forward once so Graph.Value reflects the
	// just-loaded tensor immediately, rather than the pre-SetWeights cache.
	for i := 0; i < int(n); i++ {
		if _, err := b.Curr.Forward(currVars[i]); err != nil {
			return fmt.Errorf("training: SetWeights: %w", err)
		}
		if _, err := b.Prev.Forward(prevVars[i]); err != nil {
			return fmt.Errorf("training: SetWeights: %w", err)
		}
	}
	return nil
}

// GetUpdate writes, for each variable i, curr[i] - prev[i]. Returns
// ErrVariableCountMismatch if the two graphs disagree on variable count.
func (b *Base) GetUpdate() ([]byte, error) {
	currVars := b.Curr.Variables()
	prevVars := b.Prev.Variables()
	if len(currVars) != len(prevVars) {
		return nil, fmt.Errorf("%w: curr has %d, prev has %d", ErrVariableCountMismatch, len(currVars), len(prevVars))
	}
	var buf bytes.Buffer
	if err := codec.WriteInt(&buf, int32(len(currVars))); err != nil {
		return nil, err
	}
	for i := range currVars {
		cv, err := b.Curr.Forward(currVars[i])
		if err != nil {
			return nil, fmt.Errorf("training: GetUpdate: %w", err)
		}
		pv, err := b.Prev.Forward(prevVars[i])
		if err != nil {
			return nil, fmt.Errorf("training: GetUpdate: %w", err)
		}
		delta := tensor.Sub(cv, pv)
		if err := codec.WriteTensor(&buf, delta); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UpdWeights parses N and adds each delta tensor into curr[i] in place.
func (b *Base) UpdWeights(buf []byte) error {
	r := bytes.NewReader(buf)
	n, err := codec.ReadInt(r)
	if err != nil {
		return fmt.Errorf("training: UpdWeights: %w", err)
	}
	growVariables(b.Curr, int(n))
	currVars := b.Curr.Variables()
	for i := 0; i < int(n); i++ {
		delta, err := codec.ReadTensor(r)
		if err != nil {
			return fmt.Errorf("training: UpdWeights: %w", err)
		}
		cur, err := b.Curr.Forward(currVars[i])
		if err != nil {
			return fmt.Errorf("training: UpdWeights: %w", err)
		}
		b.Curr.SetVariable(currVars[i], tensor.Add(cur, delta))
	}
	b.Curr.Recache()
	for i := 0; i < int(n); i++ {
		if _, err := b.Curr.Forward(currVars[i]); err != nil {
			return fmt.Errorf("training: UpdWeights: %w", err)
		}
	}
	return nil
}

// growVariables appends empty 1x1-zero Variable nodes to g until it has at
// least n variables, so SetWeights/UpdWeights never index out of range on a
// graph that was constructed before its final variable count was known.
func growVariables(g *graph.Graph, n int) {
	for len(g.Variables()) < n {
		g.NewVariable(tensor.Zeros(1, 1))
	}
}
