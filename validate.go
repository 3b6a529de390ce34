package warden

import (
	"fmt"
	"strings"
)

// color represents the state of a node during DFS cycle detection.
type color int

const (
	white color = iota // unvisited
	gray               // in current DFS path (cycle if revisited)
	black              // fully processed
)

// typeNode represents a node type in the propagation graph.
type typeNode struct {
	nodeType string
}

// propagationEdge records which rule produced an edge, for diagnostics.
type propagationEdge struct {
	to   typeNode
	rule string
}

// DetectPropagationCycles inspects the rule configuration for propagation
// loops between node types. A cycle is not an error: the traversal engine
// terminates on cyclic graphs through its visited set. It is still worth
// surfacing, because a loop usually means a rule direction was configured
// backwards, and every check touching the loop pays for the full walk.
//
// Only rules that declare Source and Target participate; rules without type
// endpoints cannot be analyzed statically. Returned strings describe each
// distinct cycle, e.g. "Document -[CONTAINS]-> Folder -[CONTAINS]-> Document".
func DetectPropagationCycles(reg *Registry) []string {
	graph := buildPropagationGraph(reg.Rules())

	var cycles []string
	colors := make(map[typeNode]color)
	parent := make(map[typeNode]propagationEdge)

	var dfs func(n typeNode)
	dfs = func(n typeNode) {
		colors[n] = gray
		for _, e := range graph[n] {
			switch colors[e.to] {
			case gray:
				cycles = append(cycles, formatPropagationCycle(n, e, parent))
			case white:
				parent[e.to] = propagationEdge{to: n, rule: e.rule}
				dfs(e.to)
			}
		}
		colors[n] = black
	}

	for n := range graph {
		if colors[n] == white {
			dfs(n)
		}
	}

	return cycles
}

// buildPropagationGraph derives the node-type graph implied by the rules.
// Edges follow the direction permissions flow in: for DirectionOut the target
// inherits from the source, for DirectionIn the source inherits from the
// target, for DirectionBoth both edges exist. Rules with no propagating mode
// contribute nothing.
func buildPropagationGraph(rules []RelationshipRule) map[typeNode][]propagationEdge {
	graph := make(map[typeNode][]propagationEdge)

	for _, r := range rules {
		if r.Source == "" || r.Target == "" || r.Direction == DirectionNone {
			continue
		}
		if r.Read == ModeNone && r.Write == ModeNone && r.Delete == ModeNone && r.AccessControl == ModeNone {
			continue
		}

		src := typeNode{nodeType: r.Source}
		dst := typeNode{nodeType: r.Target}

		if r.Direction == DirectionOut || r.Direction == DirectionBoth {
			graph[src] = append(graph[src], propagationEdge{to: dst, rule: r.Type})
		}
		if r.Direction == DirectionIn || r.Direction == DirectionBoth {
			graph[dst] = append(graph[dst], propagationEdge{to: src, rule: r.Type})
		}
	}

	return graph
}

// formatPropagationCycle reconstructs the cycle path from parent pointers.
// from is the node whose edge closed the cycle back to e.to.
func formatPropagationCycle(from typeNode, e propagationEdge, parent map[typeNode]propagationEdge) string {
	hops := []string{fmt.Sprintf("-[%s]-> %s", e.rule, e.to.nodeType)}
	for n := from; n != e.to; {
		p, ok := parent[n]
		if !ok {
			break
		}
		hops = append([]string{fmt.Sprintf("-[%s]-> %s", p.rule, n.nodeType)}, hops...)
		n = p.to
	}
	return e.to.nodeType + " " + strings.Join(hops, " ")
}
