package graph

import "github.com/dagtrain/dagtrain/tensor"

// conv2DNode implements 2-D convolution with stride, padding and dilation.
// x is a row vector of length inCh*inR*inC, channel-major then row-major:
// element (ic, r, c) lives at index ic*inR*inC + r*inC + c. kernel has shape
// (outCh*kR, inCh*kC); the block at (oc*kR:(oc+1)*kR, ic*kC:(ic+1)*kC) is
// the filter mapping input channel ic to output channel oc. Output is a row
// vector of length outCh*outR*outC, same channel-major-row-major layout.
type conv2DNode struct {
	x, kernel                     Handle
	inR, inC, inCh, outCh, kR, kC int
	stride, pad, dilation         int
	outR, outC                    int
}

func convOutDim(in, k, stride, pad, dilation int) int {
	return (in+2*pad-dilation*(k-1)-1)/stride + 1
}

func (n *conv2DNode) Inputs() []Handle { return []Handle{n.x, n.kernel} }

func (n *conv2DNode) Forward(g *Graph) *tensor.Tensor {
	xv := g.forward(n.x)
	kv := g.forward(n.kernel)
	n.outR = convOutDim(n.inR, n.kR, n.stride, n.pad, n.dilation)
	n.outC = convOutDim(n.inC, n.kC, n.stride, n.pad, n.dilation)

	xFlat := xv.Data()
	out := make([]float64, n.outCh*n.outR*n.outC)
	for oc := 0; oc < n.outCh; oc++ {
		for i := 0; i < n.outR; i++ {
			for j := 0; j < n.outC; j++ {
				var sum float64
				for ic := 0; ic < n.inCh; ic++ {
					for kr := 0; kr < n.kR; kr++ {
						row := i*n.stride - n.pad + kr*n.dilation
						if row < 0 || row >= n.inR {
							continue
						}
						for kc := 0; kc < n.kC; kc++ {
							col := j*n.stride - n.pad + kc*n.dilation
							if col < 0 || col >= n.inC {
								continue
							}
							xVal := xFlat[ic*n.inR*n.inC+row*n.inC+col]
							kVal := kv.At(oc*n.kR+kr, ic*n.kC+kc)
							sum += xVal * kVal
						}
					}
				}
				out[oc*n.outR*n.outC+i*n.outC+j] = sum
			}
		}
	}
	return tensor.NewRow(out)
}

func (n *conv2DNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	xv := g.Value(n.x)
	kv := g.Value(n.kernel)

	dX := make([]float64, xv.Cols())
	dK := tensor.Zeros(kv.Rows(), kv.Cols())
	grad := outputGrad.Data()

	for oc := 0; oc < n.outCh; oc++ {
		for i := 0; i < n.outR; i++ {
			for j := 0; j < n.outC; j++ {
				gOut := grad[oc*n.outR*n.outC+i*n.outC+j]
				if gOut == 0 {
					continue
				}
				for ic := 0; ic < n.inCh; ic++ {
					for kr := 0; kr < n.kR; kr++ {
						row := i*n.stride - n.pad + kr*n.dilation
						if row < 0 || row >= n.inR {
							continue
						}
						for kc := 0; kc < n.kC; kc++ {
							col := j*n.stride - n.pad + kc*n.dilation
							if col < 0 || col >= n.inC {
								continue
							}
							xIdx := ic*n.inR*n.inC + row*n.inC + col
							kRow, kCol := oc*n.kR+kr, ic*n.kC+kc
							dX[xIdx] += gOut * kv.At(kRow, kCol)
							dK.Set(kRow, kCol, dK.At(kRow, kCol)+gOut*xv.Data()[xIdx])
						}
					}
				}
			}
		}
	}
	return []*tensor.Tensor{tensor.NewRow(dX), dK}
}

// NewConv2D applies a strided, padded, dilated 2-D convolution to a
// flattened channel-major-row-major input row vector.
func (g *Graph) NewConv2D(x, kernel Handle, inR, inC, inCh, outCh, kR, kC, stride, pad, dilation int) Handle {
	return g.add("conv2d", &conv2DNode{
		x: x, kernel: kernel,
		inR: inR, inC: inC, inCh: inCh, outCh: outCh,
		kR: kR, kC: kC,
		stride: stride, pad: pad, dilation: dilation,
	})
}
