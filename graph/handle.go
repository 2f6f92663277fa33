package graph

// Handle identifies a node owned by a Graph. Handles are assigned in
// creation order starting at 0; a node's Operator.Inputs() always returns
// handles smaller than the node's own handle, since factories only accept
// handles to nodes that already exist. That invariant is what lets Backward
// compute a reverse topological order by simply walking reached handles in
// decreasing order, with no separate sort.
type Handle int

// Invalid is returned by lookups that found nothing.
const Invalid Handle = -1
