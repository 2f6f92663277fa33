package graph

// RowBuilder builds a per-row output node from a single row of an input
// matrix, given as a 1xcols node already split out by NewRowWise.
type RowBuilder func(g *Graph, row Handle) Handle

// NewRowWise applies builder independently to each of x's rows and stacks
// the per-row results back into a single matrix. rows and cols describe x's
// shape and must be known at construction time — composite nodes build
// their subgraph once, not per forward, the same restriction Conv2D places
// on its spatial dimensions.
//
// Built entirely from existing primitives (split, builder, transpose,
// join, iderivative): gradient correctness is inherited from each
// primitive's own Backward, so no dedicated Operator is needed here.
func (g *Graph) NewRowWise(x Handle, rows, cols int, builder RowBuilder) Handle {
	transposedRows := make([]Handle, rows)
	for r := 0; r < rows; r++ {
		row := g.NewSplit(x, r, 0, 1, cols)
		out := builder(g, row)
		transposedRows[r] = g.NewTranspose(out)
	}
	return g.NewIDerivative(g.NewTranspose(g.NewJoin(transposedRows...)))
}
