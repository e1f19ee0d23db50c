package tree

// Row is one visible line of a rendered comment tree.
type Row struct {
	Node  Node `json:"node"`
	Depth int  `json:"depth"`
	// Collapsed means the node has replies below the depth ceiling that are
	// reachable only through the detail view.
	Collapsed bool `json:"collapsed,omitempty"`
}

// Flatten 按先序展开，深度达到 maxDepth 的节点不再展开子评论
func Flatten(nodes []Node, maxDepth int) []Row {
	if maxDepth <= 0 {
		maxDepth = MaxRenderDepth
	}
	var rows []Row
	var visit func([]Node, int)
	visit = func(list []Node, depth int) {
		for _, n := range list {
			row := Row{Node: n, Depth: depth}
			row.Node.Comments = nil
			expand := depth+1 < maxDepth
			if !expand && (len(n.Comments) > 0 || n.HasMore) {
				row.Collapsed = true
			}
			if n.HasMore {
				row.Collapsed = true
			}
			rows = append(rows, row)
			if expand {
				visit(n.Comments, depth+1)
			}
		}
	}
	visit(nodes, 0)
	return rows
}
