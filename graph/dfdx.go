package graph

import (
	"fmt"

	"github.com/dagtrain/dagtrain/tensor"
)

// settable is implemented by node kinds whose value can be overwritten
// directly — Constant and Variable — which is what DFdX needs in order to
// perturb X without going through the graph's normal forward wiring.
type settable interface {
	setValue(*tensor.Tensor)
}

// DefaultEpsilon is the perturbation size DFdX uses unless told otherwise,
// matching the central-difference tolerance the gradient-check tests in
// this module are written against.
const DefaultEpsilon = 1e-3

// DFdX computes the central-difference Jacobian of F's (outR, outC) output
// element with respect to every element of X, using the default epsilon.
// It exists purely for test validation of analytic Backward implementations
// and is never on a training hot path.
func (g *Graph) DFdX(f, x Handle, outR, outC int) (*tensor.Tensor, error) {
	return g.DFdXEps(f, x, outR, outC, DefaultEpsilon)
}

// DFdXEps is DFdX with an explicit epsilon.
func (g *Graph) DFdXEps(f, x Handle, outR, outC int, eps float64) (*tensor.Tensor, error) {
	set, ok := g.nodes[x].op.(settable)
	if !ok {
		return nil, fmt.Errorf("graph: dFdX: node %q is not settable (must be Constant or Variable)", g.displayName(x))
	}

	base, err := g.Forward(x)
	if err != nil {
		return nil, err
	}
	orig := base.Clone()
	rows, cols := orig.Rows(), orig.Cols()
	jac := tensor.Zeros(rows, cols)

	restore := func(v *tensor.Tensor) (*tensor.Tensor, error) {
		set.setValue(v)
		g.Recache()
		return g.Forward(f)
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			plus := orig.Clone()
			plus.Set(r, c, orig.At(r, c)+eps)
			fPlus, err := restore(plus)
			if err != nil {
				return nil, err
			}

			minus := orig.Clone()
			minus.Set(r, c, orig.At(r, c)-eps)
			fMinus, err := restore(minus)
			if err != nil {
				return nil, err
			}

			jac.Set(r, c, (fPlus.At(outR, outC)-fMinus.At(outR, outC))/(2*eps))
		}
	}

	if _, err := restore(orig); err != nil {
		return nil, err
	}
	return jac, nil
}
