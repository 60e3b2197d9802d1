// Package render draws human-readable views of the stage graph for the CLI.
package render

import (
	"fmt"
	"strings"

	"github.com/contentsmith/pipewright/internal/dag"
)

// GraphViewer provides human-readable visualization of a stage graph.
type GraphViewer struct {
	def *dag.Definition
}

// NewGraphViewer creates a viewer over a definition.
func NewGraphViewer(def *dag.Definition) *GraphViewer {
	return &GraphViewer{def: def}
}

// ViewDAG returns a tree view of the stages in declaration order, each with
// its dependencies.
func (gv *GraphViewer) ViewDAG() string {
	nodes := gv.def.Nodes()
	if len(nodes) == 0 {
		return "No stages declared"
	}

	var sb strings.Builder
	for i, n := range nodes {
		isLast := i == len(nodes)-1

		prefix := "├─ "
		connector := "│  "
		if isLast {
			prefix = "└─ "
			connector = "   "
		}

		line := fmt.Sprintf("%s%s", prefix, n.Stage)
		if n.Description != "" {
			line += fmt.Sprintf(" - %s", n.Description)
		}
		sb.WriteString(line + "\n")

		for j, dep := range n.Dependencies {
			depPrefix := connector + "├─ "
			if j == len(n.Dependencies)-1 {
				depPrefix = connector + "└─ "
			}
			sb.WriteString(fmt.Sprintf("%s(depends on) %s\n", depPrefix, dep))
		}
	}

	sb.WriteString("═══════════════════════════════════════════════════════════\n")
	sb.WriteString(fmt.Sprintf("Summary: %d stages\n", len(nodes)))
	return sb.String()
}

// ViewOrder returns the numbered execution order the engine will follow.
func (gv *GraphViewer) ViewOrder() string {
	order := gv.def.ExecutionOrder()

	var sb strings.Builder
	sb.WriteString("Execution order\n")
	sb.WriteString("═══════════════════════════════════════════════════════════\n")
	for i, id := range order {
		line := fmt.Sprintf("%2d. %s", i+1, id)
		if n, ok := gv.def.Node(id); ok && len(n.Dependencies) > 0 {
			deps := make([]string, len(n.Dependencies))
			for j, d := range n.Dependencies {
				deps[j] = string(d)
			}
			line += fmt.Sprintf("  (after %s)", strings.Join(deps, ", "))
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}
