package orchestrator

import (
	"fmt"
	"sort"
	"strings"
)

// dagBuilder computes topological levels over a plan's steps so that steps
// at the same level can run concurrently. It also detects malformed plans:
// duplicate IDs, dangling dependencies, cycles.
type dagBuilder struct {
	steps map[string]*Step

	// dependents maps a step ID to the IDs that depend on it.
	dependents map[string][]string

	// inDegree tracks incoming dependency edges per step.
	inDegree map[string]int

	levels [][]string
}

func newDAGBuilder() *dagBuilder {
	return &dagBuilder{
		steps:      make(map[string]*Step),
		dependents: make(map[string][]string),
		inDegree:   make(map[string]int),
	}
}

// buildLevels validates the dependency graph and returns step IDs grouped
// by topological depth. The ordering within a level is deterministic
// (sorted by step ID) so plans serialize stably.
func (b *dagBuilder) buildLevels(steps []Step) ([][]string, error) {
	if len(steps) == 0 {
		return nil, NewValidationError("plan has no steps", nil).WithCode(ErrCodeMalformedPlan)
	}

	for i := range steps {
		step := &steps[i]
		if step.ID == "" {
			return nil, NewValidationError("step has empty ID", nil).WithCode(ErrCodeMalformedPlan)
		}
		if _, exists := b.steps[step.ID]; exists {
			return nil, NewValidationError(fmt.Sprintf("duplicate step ID: %s", step.ID), nil).
				WithCode(ErrCodeMalformedPlan)
		}
		b.steps[step.ID] = step
		b.inDegree[step.ID] = 0
	}

	for _, step := range b.steps {
		for _, dep := range step.DependsOn {
			if _, exists := b.steps[dep]; !exists {
				return nil, NewValidationError(
					fmt.Sprintf("step %s depends on unknown step %s", step.ID, dep), nil).
					WithCode(ErrCodeMalformedPlan).WithStep(step.Name)
			}
			b.dependents[dep] = append(b.dependents[dep], step.ID)
			b.inDegree[step.ID]++
		}
	}

	if err := b.detectCycles(); err != nil {
		return nil, err
	}

	// Kahn's algorithm with level tracking.
	current := make([]string, 0)
	for id, degree := range b.inDegree {
		if degree == 0 {
			current = append(current, id)
		}
	}
	if len(current) == 0 {
		return nil, NewValidationError("no root steps - every step has dependencies", nil).
			WithCode(ErrCodeMalformedPlan)
	}

	remaining := make(map[string]int, len(b.inDegree))
	for id, degree := range b.inDegree {
		remaining[id] = degree
	}

	processed := 0
	for len(current) > 0 {
		sort.Strings(current)
		b.levels = append(b.levels, current)
		processed += len(current)

		next := make([]string, 0)
		for _, id := range current {
			for _, dep := range b.dependents[id] {
				remaining[dep]--
				if remaining[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		current = next
	}

	if processed != len(b.steps) {
		return nil, NewValidationError("not all steps reachable from roots", nil).
			WithCode(ErrCodeMalformedPlan)
	}

	// Record the computed depth on each step.
	for level, ids := range b.levels {
		for _, id := range ids {
			b.steps[id].Level = level
		}
	}

	return b.levels, nil
}

// detectCycles runs DFS over the dependents graph.
func (b *dagBuilder) detectCycles() error {
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	var visit func(id string, path []string) []string
	visit = func(id string, path []string) []string {
		visited[id] = true
		inStack[id] = true
		path = append(path, id)

		for _, dep := range b.dependents[id] {
			if !visited[dep] {
				if cycle := visit(dep, path); cycle != nil {
					return cycle
				}
			} else if inStack[dep] {
				for i, p := range path {
					if p == dep {
						return append(path[i:], dep)
					}
				}
				return append(path, dep)
			}
		}

		inStack[id] = false
		return nil
	}

	for id := range b.steps {
		if !visited[id] {
			if cycle := visit(id, nil); cycle != nil {
				return NewValidationError(
					"circular dependency detected: "+strings.Join(cycle, " -> "), nil).
					WithCode(ErrCodeMalformedPlan)
			}
		}
	}
	return nil
}

// ToDOT renders the plan's dependency graph in Graphviz DOT format.
func (p *Plan) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph ProvisioningPlan {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for level, ids := range p.Levels {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_level_%d {\n", level))
		sb.WriteString(fmt.Sprintf("    label=\"Level %d\";\n", level))
		sb.WriteString("    style=dashed;\n")
		for _, id := range ids {
			step := p.StepByID(id)
			if step == nil {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %q [label=\"%s\\n%s\", fillcolor=%q, style=\"filled,rounded\"];\n",
				step.ID, step.Name, step.Kind, kindColor(step.Kind)))
		}
		sb.WriteString("  }\n\n")
	}

	for i := range p.Steps {
		for _, dep := range p.Steps[i].DependsOn {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", dep, p.Steps[i].ID))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func kindColor(kind ResourceKind) string {
	switch kind {
	case KindWorkspace:
		return "lightgreen"
	case KindChannel:
		return "lightblue"
	case KindMembership:
		return "lightyellow"
	case KindAccount:
		return "lightgray"
	default:
		return "white"
	}
}
