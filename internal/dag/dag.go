// Package dag declares the pipeline's stage graph and provides cycle
// detection and deterministic topological ordering over it.
package dag

import (
	"fmt"

	"github.com/contentsmith/pipewright/internal/fault"
)

// StageID names one pipeline stage. Unique within a definition.
type StageID string

// Node is one stage declaration: the stage, the stages it depends on, and a
// human-readable description for plan rendering.
type Node struct {
	Stage        StageID
	Dependencies []StageID
	Description  string
}

// Definition is the full stage graph, fixed at construction time. Declaration
// order is significant: ties between independent stages are broken by it, so
// execution order is reproducible run to run.
type Definition struct {
	nodes []Node
	index map[StageID]int
}

// NewDefinition builds a definition from declared nodes. Duplicate stage ids
// are a configuration error.
func NewDefinition(nodes []Node) (*Definition, error) {
	d := &Definition{
		nodes: nodes,
		index: make(map[StageID]int, len(nodes)),
	}
	for i, n := range nodes {
		if _, dup := d.index[n.Stage]; dup {
			return nil, fault.Configurationf("duplicate stage declaration: %s", n.Stage)
		}
		d.index[n.Stage] = i
	}
	return d, nil
}

// Nodes returns the declarations in declaration order.
func (d *Definition) Nodes() []Node { return d.nodes }

// Node returns the declaration for a stage.
func (d *Definition) Node(stage StageID) (Node, bool) {
	i, ok := d.index[stage]
	if !ok {
		return Node{}, false
	}
	return d.nodes[i], true
}

// Len returns the number of declared stages.
func (d *Definition) Len() int { return len(d.nodes) }

// Validate checks the definition for dangling dependencies and cycles.
// Problems are collected, not returned on first failure, so a caller sees
// every configuration error in one pass.
func (d *Definition) Validate() (bool, []string) {
	var errs []string

	for _, n := range d.nodes {
		for _, dep := range n.Dependencies {
			if _, ok := d.index[dep]; !ok {
				errs = append(errs, fmt.Sprintf("stage %s depends on undeclared stage %s", n.Stage, dep))
			}
		}
	}

	if cycle := d.findCycle(); cycle != "" {
		errs = append(errs, fmt.Sprintf("cycle detected in stage dependencies involving %s", cycle))
	}

	return len(errs) == 0, errs
}

// three-colour DFS: white = unvisited, gray = on the current path,
// black = fully explored. A gray dependency is a back edge, i.e. a cycle.
type colour int

const (
	white colour = iota
	gray
	black
)

// findCycle returns a stage on a dependency cycle, or "" if the graph is
// acyclic. O(V+E).
func (d *Definition) findCycle() StageID {
	colours := make(map[StageID]colour, len(d.nodes))

	var visit func(StageID) StageID
	visit = func(stage StageID) StageID {
		colours[stage] = gray
		n := d.nodes[d.index[stage]]
		for _, dep := range n.Dependencies {
			if _, ok := d.index[dep]; !ok {
				continue // dangling edge, reported separately
			}
			switch colours[dep] {
			case gray:
				return dep
			case white:
				if hit := visit(dep); hit != "" {
					return hit
				}
			}
		}
		colours[stage] = black
		return ""
	}

	for _, n := range d.nodes {
		if colours[n.Stage] == white {
			if hit := visit(n.Stage); hit != "" {
				return hit
			}
		}
	}
	return ""
}

// ExecutionOrder returns the stages topologically sorted: every stage appears
// exactly once and only after all of its dependencies. Post-order DFS in
// declaration order, so independent stages keep their declared relative
// order. Must only be called on a definition that passed Validate.
func (d *Definition) ExecutionOrder() []StageID {
	visited := make(map[StageID]bool, len(d.nodes))
	order := make([]StageID, 0, len(d.nodes))

	var visit func(StageID)
	visit = func(stage StageID) {
		if visited[stage] {
			return
		}
		visited[stage] = true
		for _, dep := range d.nodes[d.index[stage]].Dependencies {
			if _, ok := d.index[dep]; ok {
				visit(dep)
			}
		}
		order = append(order, stage)
	}

	for _, n := range d.nodes {
		visit(n.Stage)
	}
	return order
}
