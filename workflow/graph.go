package workflow

// ============================================================================
// GRAPH INTROSPECTION
// ============================================================================

// GraphNode is one node of the workflow's introspected shape.
type GraphNode struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// GraphEdge connects two nodes by ID.
type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is the static shape of a turn: the node sequence plus the
// conditional loop through call_tools when tools are available.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Graph reports the engine's workflow shape. The call_tools node and
// its loop edges appear only when the catalog has tools.
func (e *Engine) Graph() Graph {
	g := Graph{
		Nodes: []GraphNode{
			{ID: NodeStart, Type: "start", Label: "Start"},
			{ID: NodeProcessInput, Type: "process", Label: "Process Input"},
			{ID: NodeGenerateResponse, Type: "generate", Label: "Generate Response"},
		},
		Edges: []GraphEdge{
			{Source: NodeStart, Target: NodeProcessInput},
			{Source: NodeProcessInput, Target: NodeGenerateResponse},
		},
	}

	if !e.catalog.Empty() {
		g.Nodes = append(g.Nodes, GraphNode{ID: NodeCallTools, Type: "tool", Label: "Call Tools"})
		g.Edges = append(g.Edges,
			GraphEdge{Source: NodeGenerateResponse, Target: NodeCallTools},
			GraphEdge{Source: NodeCallTools, Target: NodeGenerateResponse},
		)
	}

	g.Nodes = append(g.Nodes,
		GraphNode{ID: NodeFormatOutput, Type: "format", Label: "Format Output"},
		GraphNode{ID: NodeEnd, Type: "end", Label: "End"},
	)
	g.Edges = append(g.Edges,
		GraphEdge{Source: NodeGenerateResponse, Target: NodeFormatOutput},
		GraphEdge{Source: NodeFormatOutput, Target: NodeEnd},
	)
	return g
}
