// Package mindmap turns a generated topic tree into node and edge lists for a renderer.
//
// The layout is a plain top-down stacking: x grows with depth, y with pre-order
// position. Parents are not re-centered over their subtrees.
package mindmap

import (
	"strconv"

	"ledgerchat/internal/types"
)

// Default spacing in renderer units.
const (
	DefaultColumnWidth = 260
	DefaultRowHeight   = 80
)

// Node is a positioned tree node.
type Node struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Depth  int    `json:"depth"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// Edge links a parent to a child.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Graph is what a renderer consumes.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Spacing controls the distance between columns and rows.
type Spacing struct {
	ColumnWidth int
	RowHeight   int
}

// Layout positions root with the default spacing.
func Layout(root *types.MindMapNode) Graph {
	return LayoutWithSpacing(root, Spacing{ColumnWidth: DefaultColumnWidth, RowHeight: DefaultRowHeight})
}

// LayoutWithSpacing walks the tree in pre-order. Node ids are "n0", "n1", ... in visit
// order, so the root is always "n0" and ids are stable for an unchanged tree.
func LayoutWithSpacing(root *types.MindMapNode, sp Spacing) Graph {
	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	if root == nil {
		return g
	}

	type frame struct {
		node     *types.MindMapNode
		depth    int
		parentID string
	}

	// Explicit stack keeps deep trees off the call stack.
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		row := len(g.Nodes)
		id := "n" + strconv.Itoa(row)
		g.Nodes = append(g.Nodes, Node{
			ID:     id,
			Label:  f.node.Label,
			Detail: f.node.Detail,
			Depth:  f.depth,
			X:      f.depth * sp.ColumnWidth,
			Y:      row * sp.RowHeight,
		})
		if f.parentID != "" {
			g.Edges = append(g.Edges, Edge{ID: f.parentID + "-" + id, Source: f.parentID, Target: id})
		}

		for i := len(f.node.Children) - 1; i >= 0; i-- {
			if child := f.node.Children[i]; child != nil {
				stack = append(stack, frame{node: child, depth: f.depth + 1, parentID: id})
			}
		}
	}
	return g
}

// Stats summarizes a tree.
type Stats struct {
	Nodes  int `json:"nodes"`
	Depth  int `json:"depth"` // a lone root has depth 0
	Leaves int `json:"leaves"`
}

// Summarize counts nodes, leaves and the maximum depth.
func Summarize(root *types.MindMapNode) Stats {
	var st Stats
	if root == nil {
		return st
	}
	for _, n := range LayoutWithSpacing(root, Spacing{}).Nodes {
		st.Nodes++
		if n.Depth > st.Depth {
			st.Depth = n.Depth
		}
	}
	st.Leaves = countLeaves(root)
	return st
}

func countLeaves(n *types.MindMapNode) int {
	leaves := 0
	hasChild := false
	for _, c := range n.Children {
		if c == nil {
			continue
		}
		hasChild = true
		leaves += countLeaves(c)
	}
	if !hasChild {
		return 1
	}
	return leaves
}
