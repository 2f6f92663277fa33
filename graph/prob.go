package graph

import (
	"math"

	"github.com/dagtrain/dagtrain/tensor"
)

// softmaxNode computes a numerically stable row-wise softmax: subtract the
// row max, exponentiate, divide by the row sum.
//
// Backward, per row: dL/dz = (g - (g·y)·1) ⊙ y, where g·y is the row's dot
// product of upstream gradient and softmax output.
type softmaxNode struct {
	x      Handle
	output *tensor.Tensor
}

func (n *softmaxNode) Inputs() []Handle { return []Handle{n.x} }

func softmaxRow(row []float64) []float64 {
	maxV := row[0]
	for _, v := range row {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float64, len(row))
	var sum float64
	for i, v := range row {
		e := math.Exp(v - maxV)
		out[i] = e
		sum += e
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func (n *softmaxNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	n.output = xv.RowApply(softmaxRow)
	return n.output
}

func (n *softmaxNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	rows, cols := outputGrad.Rows(), outputGrad.Cols()
	grad := tensor.Zeros(rows, cols)
	for r := 0; r < rows; r++ {
		var dot float64
		for c := 0; c < cols; c++ {
			dot += outputGrad.At(r, c) * n.output.At(r, c)
		}
		for c := 0; c < cols; c++ {
			grad.Set(r, c, n.output.At(r, c)*(outputGrad.At(r, c)-dot))
		}
	}
	return []*tensor.Tensor{grad}
}

// NewSoftmax applies row-wise softmax to x.
func (g *Graph) NewSoftmax(x Handle) Handle {
	return g.add("softmax", &softmaxNode{x: x})
}

// logSoftmaxNode computes log_softmax(z) = z - logsumexp(z) per row.
// Backward reuses the plain softmax: dL/dz = g - softmax(z)*sum(g) per row.
type logSoftmaxNode struct {
	x       Handle
	softmax *tensor.Tensor
}

func (n *logSoftmaxNode) Inputs() []Handle { return []Handle{n.x} }

func (n *logSoftmaxNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	n.softmax = xv.RowApply(softmaxRow)
	return xv.RowApply(func(row []float64) []float64 {
		maxV := row[0]
		for _, v := range row {
			if v > maxV {
				maxV = v
			}
		}
		var sum float64
		for _, v := range row {
			sum += math.Exp(v - maxV)
		}
		lse := maxV + math.Log(sum)
		out := make([]float64, len(row))
		for i, v := range row {
			out[i] = v - lse
		}
		return out
	})
}

func (n *logSoftmaxNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	rows, cols := outputGrad.Rows(), outputGrad.Cols()
	grad := tensor.Zeros(rows, cols)
	for r := 0; r < rows; r++ {
		var sum float64
		for c := 0; c < cols; c++ {
			sum += outputGrad.At(r, c)
		}
		for c := 0; c < cols; c++ {
			grad.Set(r, c, outputGrad.At(r, c)-n.softmax.At(r, c)*sum)
		}
	}
	return []*tensor.Tensor{grad}
}

// NewLogSoftmax applies row-wise log-softmax to x.
func (g *Graph) NewLogSoftmax(x Handle) Handle {
	return g.add("log_softmax", &logSoftmaxNode{x: x})
}

// gaussianNode implements both GaussianPDF and LogGaussian: element-wise
// functions of three broadcastable inputs (x, mu, sigma), differing only in
// the forward/backward math supplied.
type gaussianNode struct {
	x, mu, sigma Handle
	forward      func(x, mu, sigma float64) float64
	backward     func(x, mu, sigma, g float64) (dx, dmu, dsigma float64)
}

func (n *gaussianNode) Inputs() []Handle { return []Handle{n.x, n.mu, n.sigma} }

func (n *gaussianNode) Forward(g *Graph) *tensor.Tensor {
	xv, muv, sv := g.forward(n.x), g.forward(n.mu), g.forward(n.sigma)
	rows, cols, err := broadcastDims3(xv, muv, sv)
	if err != nil {
		panicShapeMismatch("gaussian", err)
	}
	out := tensor.Zeros(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, n.forward(at(xv, r, c), at(muv, r, c), at(sv, r, c)))
		}
	}
	return out
}

func (n *gaussianNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	xv, muv, sv := g.Value(n.x), g.Value(n.mu), g.Value(n.sigma)
	rows, cols := outputGrad.Rows(), outputGrad.Cols()
	dx := tensor.Zeros(rows, cols)
	dmu := tensor.Zeros(rows, cols)
	dsigma := tensor.Zeros(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			gdx, gdmu, gds := n.backward(at(xv, r, c), at(muv, r, c), at(sv, r, c), outputGrad.At(r, c))
			dx.Set(r, c, gdx)
			dmu.Set(r, c, gdmu)
			dsigma.Set(r, c, gds)
		}
	}
	return []*tensor.Tensor{
		tensor.SumToShape(dx, xv.Rows(), xv.Cols()),
		tensor.SumToShape(dmu, muv.Rows(), muv.Cols()),
		tensor.SumToShape(dsigma, sv.Rows(), sv.Cols()),
	}
}

func at(t *tensor.Tensor, r, c int) float64 { return t.At(r%t.Rows(), c%t.Cols()) }

// broadcastDims3 finds the common output shape of three broadcastable
// operands (x, mu, sigma for GaussianPDF/LogGaussian), reducing to the same
// one-or-equal rule tensor.broadcastAxis applies pairwise.
func broadcastDims3(a, b, c *tensor.Tensor) (rows, cols int, err error) {
	rows, err = broadcastAxis3(a.Rows(), b.Rows(), c.Rows())
	if err != nil {
		return 0, 0, err
	}
	cols, err = broadcastAxis3(a.Cols(), b.Cols(), c.Cols())
	return rows, cols, err
}

func broadcastAxis3(a, b, c int) (int, error) {
	ab, ok := broadcastAxisSingle(a, b)
	if !ok {
		return 0, errBroadcast
	}
	v, ok := broadcastAxisSingle(ab, c)
	if !ok {
		return 0, errBroadcast
	}
	return v, nil
}

func broadcastAxisSingle(a, b int) (int, bool) {
	switch {
	case a == b:
		return a, true
	case a == 1:
		return b, true
	case b == 1:
		return a, true
	default:
		return 0, false
	}
}

// NewGaussianPDF computes the Normal(mu, sigma) density at x, element-wise.
func (g *Graph) NewGaussianPDF(x, mu, sigma Handle) Handle {
	pdf := func(x, mu, sigma float64) float64 {
		d := x - mu
		return math.Exp(-(d*d)/(2*sigma*sigma)) / (sigma * math.Sqrt(2*math.Pi))
	}
	return g.add("gaussian_pdf", &gaussianNode{
		x: x, mu: mu, sigma: sigma, forward: pdf,
		backward: func(x, mu, sigma, grad float64) (float64, float64, float64) {
			p := pdf(x, mu, sigma)
			d := x - mu
			dx := -p * d / (sigma * sigma)
			return grad * dx, -grad * dx, grad * p * ((d*d)/(sigma*sigma*sigma) - 1/sigma)
		},
	})
}

// NewLogGaussian computes the Normal(mu, sigma) log-density at x,
// element-wise.
func (g *Graph) NewLogGaussian(x, mu, sigma Handle) Handle {
	logPdf := func(x, mu, sigma float64) float64 {
		d := x - mu
		return -0.5*math.Log(2*math.Pi) - math.Log(sigma) - (d*d)/(2*sigma*sigma)
	}
	return g.add("log_gaussian", &gaussianNode{
		x: x, mu: mu, sigma: sigma, forward: logPdf,
		backward: func(x, mu, sigma, grad float64) (float64, float64, float64) {
			d := x - mu
			dx := -d / (sigma * sigma)
			dsigma := (d*d)/(sigma*sigma*sigma) - 1/sigma
			return grad * dx, -grad * dx, grad * dsigma
		},
	})
}

// samplerNode draws a reparameterized Normal(mu, sigma) sample:
// eps ~ N(0,1) is drawn once per epoch and cached, exactly like Dropout's
// mask, so repeated forwards in the same epoch are deterministic.
// Backward: dmu = g, dsigma = g ⊙ eps.
type samplerNode struct {
	mu, sigma Handle
	eps       *tensor.Tensor
	epoch     int
}

func (n *samplerNode) Inputs() []Handle { return []Handle{n.mu, n.sigma} }

func (n *samplerNode) Forward(g *Graph) *tensor.Tensor {
	muv := g.forward(n.mu)
	sv := g.forward(n.sigma)
	if n.eps == nil || n.epoch != g.Epoch() || !n.eps.SameShape(muv) {
		n.eps = tensor.RandomNormal(muv.Rows(), muv.Cols(), g.RNG(), 0, 1)
		n.epoch = g.Epoch()
	}
	return tensor.Add(muv, tensor.Mul(sv, n.eps))
}

func (n *samplerNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	return []*tensor.Tensor{outputGrad, tensor.Mul(outputGrad, n.eps)}
}

// NewSampler draws mu + sigma*eps with eps ~ N(0,1), the reparameterization
// trick for backpropagating through a stochastic Gaussian sample.
func (g *Graph) NewSampler(mu, sigma Handle) Handle {
	return g.add("sampler", &samplerNode{mu: mu, sigma: sigma})
}
