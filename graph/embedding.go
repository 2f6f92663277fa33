package graph

import "github.com/dagtrain/dagtrain/tensor"

// embeddingNode gathers rows of an embedding table by a vector of indices.
// indices is a 1xN constant holding non-negative integer values stored as
// floats; table is typically a Variable of shape (vocab, dim). Backward
// scatters each output row's gradient back into the table row it was read
// from, accumulating where an index repeats.
type embeddingNode struct {
	table, indices Handle
	ids            []int
	tableRows      int
	tableCols      int
}

func (n *embeddingNode) Inputs() []Handle { return []Handle{n.table, n.indices} }

func (n *embeddingNode) Forward(g *Graph) *tensor.Tensor {
	tableV := g.forward(n.table)
	idxV := g.forward(n.indices)
	n.tableRows, n.tableCols = tableV.Rows(), tableV.Cols()

	idxData := idxV.Data()
	n.ids = make([]int, len(idxData))
	out := tensor.Zeros(len(idxData), n.tableCols)
	for i, f := range idxData {
		id := int(f)
		n.ids[i] = id
		out.SetRow(i, tableV.Row(id))
	}
	return out
}

func (n *embeddingNode) Backward(g *Graph, outputGrad *tensor.Tensor) []*tensor.Tensor {
	dTable := tensor.Zeros(n.tableRows, n.tableCols)
	for i, id := range n.ids {
		dTable.AddBlock(id, 0, outputGrad.Block(i, 0, 1, n.tableCols))
	}
	return []*tensor.Tensor{dTable, nil}
}

// NewEmbedding looks up indices as rows of table and stacks them.
func (g *Graph) NewEmbedding(table, indices Handle) Handle {
	return g.add("embedding", &embeddingNode{table: table, indices: indices})
}
