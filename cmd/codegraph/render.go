package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/codegraph/codegraph/internal/store"
)

// Table rendering is deliberately thin: the query surface already returns
// plain structs, this just formats them for a terminal. Grounded on
// cmd/nerd/ui.SimpleTable's column-width-then-pad approach.
var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7680"))
)

func renderNodeTable(nodes []store.NodeRecord) string {
	if len(nodes) == 0 {
		return dimStyle.Render("(no results)")
	}

	headers := []string{"ID", "KIND", "NAME", "PATH"}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{fmt.Sprint(n.ID), n.Kind, n.Name, n.Path})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(padRow(headers, widths)))
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString(padRow(row, widths))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func padRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = lipgloss.NewStyle().Width(widths[i] + 2).Render(c)
	}
	return strings.Join(parts, "")
}

func renderProjectTable(projects []store.ProjectRecord) string {
	if len(projects) == 0 {
		return dimStyle.Render("(no projects)")
	}

	headers := []string{"PROJECT", "ROOT", "LAST INDEXED", "NODES"}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{p.ProjectPath, p.RootPath, p.LastIndexedAt.Format("2006-01-02 15:04:05"), fmt.Sprint(p.NodeCount)})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(padRow(headers, widths)))
	sb.WriteString("\n")
	for _, row := range rows {
		sb.WriteString(padRow(row, widths))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func renderStats(stats *store.Stats) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("nodes: %d", stats.TotalNodes)))
	sb.WriteString("\n")
	sb.WriteString(headerStyle.Render(fmt.Sprintf("edges: %d", stats.TotalEdges)))
	sb.WriteString("\n")
	for kind, count := range stats.NodesByKind {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  %-12s %d", kind, count)))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
