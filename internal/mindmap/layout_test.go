package mindmap

import (
	"testing"

	"ledgerchat/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func sampleTree() *types.MindMapNode {
	return &types.MindMapNode{
		Label: "VAT",
		Children: []*types.MindMapNode{
			{Label: "Rates", Children: []*types.MindMapNode{
				{Label: "19%", Detail: "standard"},
				{Label: "9%"},
			}},
			{Label: "Deadlines"},
		},
	}
}

func TestLayout_StacksTopDown(t *testing.T) {
	got := LayoutWithSpacing(sampleTree(), Spacing{ColumnWidth: 100, RowHeight: 10})

	want := Graph{
		Nodes: []Node{
			{ID: "n0", Label: "VAT", Depth: 0, X: 0, Y: 0},
			{ID: "n1", Label: "Rates", Depth: 1, X: 100, Y: 10},
			{ID: "n2", Label: "19%", Detail: "standard", Depth: 2, X: 200, Y: 20},
			{ID: "n3", Label: "9%", Depth: 2, X: 200, Y: 30},
			{ID: "n4", Label: "Deadlines", Depth: 1, X: 100, Y: 40},
		},
		Edges: []Edge{
			{ID: "n0-n1", Source: "n0", Target: "n1"},
			{ID: "n1-n2", Source: "n1", Target: "n2"},
			{ID: "n1-n3", Source: "n1", Target: "n3"},
			{ID: "n0-n4", Source: "n0", Target: "n4"},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Layout() mismatch (-want +got):\n%s", diff)
	}
}

func TestLayout_ParentsAreNotRecentered(t *testing.T) {
	g := Layout(sampleTree())
	// The root sits on the first row even though its subtree spans five rows.
	assert.Equal(t, 0, g.Nodes[0].Y)
	assert.Equal(t, DefaultRowHeight, g.Nodes[1].Y)
}

func TestLayout_StableIDs(t *testing.T) {
	if diff := cmp.Diff(Layout(sampleTree()), Layout(sampleTree())); diff != "" {
		t.Errorf("layout not stable:\n%s", diff)
	}
}

func TestLayout_EdgeCases(t *testing.T) {
	empty := Layout(nil)
	assert.Empty(t, empty.Nodes)
	assert.NotNil(t, empty.Edges)

	root := &types.MindMapNode{Label: "only", Children: []*types.MindMapNode{nil}}
	g := Layout(root)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Stats{Nodes: 5, Depth: 2, Leaves: 3}, Summarize(sampleTree()))
	assert.Equal(t, Stats{Nodes: 1, Depth: 0, Leaves: 1}, Summarize(&types.MindMapNode{Label: "x"}))
	assert.Equal(t, Stats{}, Summarize(nil))
}
