package graph

import (
	"errors"
	"fmt"

	"github.com/dagtrain/dagtrain/tensor"
)

// Sentinel errors matching the taxonomy: callers test with errors.Is.
var (
	// ErrShapeMismatch is returned when a binary op's operands, or a
	// node's recomputed value, have incompatible shapes.
	ErrShapeMismatch = errors.New("graph: shape mismatch")

	// ErrDuplicateName is returned by Graph.SetName when the name is
	// already registered on a different node.
	ErrDuplicateName = errors.New("graph: duplicate node name")

	// ErrUnsetConstant is returned when Forward reaches a Constant node
	// that was never given a value.
	ErrUnsetConstant = errors.New("graph: constant forwarded without a value")
)

// errBroadcast is wrapped into ErrShapeMismatch by panicShapeMismatch when
// a multi-input element-wise operator's operands can't be broadcast to a
// common shape.
var errBroadcast = errors.New("operands cannot be broadcast to a common shape")

// panic payloads used internally so Operator implementations can fail
// eagerly from deep inside a recursive Forward/Backward without threading
// an error return through every call; Graph.Forward/Backward recover them
// at the API boundary and turn them back into ordinary errors.
type shapeMismatchPanic struct {
	op  string
	err error
}

func (p *shapeMismatchPanic) Error() string {
	return fmt.Sprintf("graph: %s: %v", p.op, p.err)
}

func (p *shapeMismatchPanic) Unwrap() error { return ErrShapeMismatch }

func panicShapeMismatch(op string, err error) {
	panic(&shapeMismatchPanic{op: op, err: err})
}

type unsetConstantPanic struct{ name string }

func (p *unsetConstantPanic) Error() string {
	if p.name == "" {
		return ErrUnsetConstant.Error()
	}
	return fmt.Sprintf("%s: %q", ErrUnsetConstant.Error(), p.name)
}

func (p *unsetConstantPanic) Unwrap() error { return ErrUnsetConstant }

// recoverGraphError converts a recovered panic value into a plain error,
// classifying the two panic kinds raised by operators as their taxonomy
// sentinels and re-panicking anything else (a genuine bug, not a modeled
// error condition).
func recoverGraphError(r any) error {
	switch v := r.(type) {
	case *shapeMismatchPanic:
		return fmt.Errorf("%w: %s", ErrShapeMismatch, v.err)
	case *unsetConstantPanic:
		return fmt.Errorf("%w", v)
	case *tensor.ShapeError:
		return fmt.Errorf("%w: %s", ErrShapeMismatch, v)
	case error:
		panic(v)
	default:
		panic(r)
	}
}
