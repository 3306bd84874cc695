package main

import (
	"strings"

	"ledgerchat/internal/types"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	rootStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	detailStyle = lipgloss.NewStyle().Faint(true)
	branchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

// renderMarkdown renders an answer for the terminal, falling back to plain text.
func renderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text + "\n"
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

// renderRetrieval lists the URLs the provider fetched.
func renderRetrieval(meta []types.URLContextMetadata) string {
	var b strings.Builder
	b.WriteString(detailStyle.Render("Sources retrieved:"))
	for _, m := range meta {
		style := failStyle
		if strings.HasSuffix(m.Status, "SUCCESS") {
			style = okStyle
		}
		b.WriteString("\n  ")
		b.WriteString(style.Render("•"))
		b.WriteString(" ")
		b.WriteString(m.RetrievedURL)
		b.WriteString(" ")
		b.WriteString(detailStyle.Render("(" + m.Status + ")"))
	}
	return b.String()
}

// renderTree draws a mind map as an indented tree.
func renderTree(root *types.MindMapNode) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(rootStyle.Render(root.Label))
	if root.Detail != "" {
		b.WriteString(" " + detailStyle.Render(root.Detail))
	}
	writeChildren(&b, root.Children, "")
	return b.String()
}

func writeChildren(b *strings.Builder, children []*types.MindMapNode, prefix string) {
	var nodes []*types.MindMapNode
	for _, c := range children {
		if c != nil {
			nodes = append(nodes, c)
		}
	}

	for i, n := range nodes {
		last := i == len(nodes)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}

		b.WriteString("\n")
		b.WriteString(branchStyle.Render(prefix + branch))
		b.WriteString(labelStyle.Render(n.Label))
		if n.Detail != "" {
			b.WriteString(" " + detailStyle.Render(n.Detail))
		}
		writeChildren(b, n.Children, prefix+next)
	}
}
