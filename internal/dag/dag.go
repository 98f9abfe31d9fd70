// SPDX-License-Identifier: MPL-2.0

// Package dag provides the directed graphs used to sequence module scans:
// the reference graph (ordered with TopologicalSort) and the wait-for graph
// of in-flight scans, where AddEdgeAcyclic detects a reference cycle before
// a scan blocks on it.
//
// Graph is not safe for concurrent use; callers serialize access.
package dag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is the sentinel wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError reports modules that reference each other, directly or
	// through intermediate modules.
	CycleError struct {
		// Cycle names the modules on the loop, or the modules left unordered
		// when the loop is found by TopologicalSort.
		Cycle []string
	}

	// Graph is a directed graph keyed by module path. Edges are kept in
	// insertion order so that every traversal is reproducible.
	Graph struct {
		adjacency map[string][]string
		nodes     []string
		nodeSet   map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	if g.nodeSet[name] {
		return
	}
	g.nodeSet[name] = true
	g.nodes = append(g.nodes, name)
}

// AddEdge adds a directed edge from -> to. Both nodes are implicitly added;
// an existing edge is not duplicated.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if g.HasEdge(from, to) {
		return
	}
	g.adjacency[from] = append(g.adjacency[from], to)
}

// AddEdgeAcyclic adds from -> to unless it would close a cycle, in which
// case the graph is left unchanged and a CycleError listing the cycle
// (starting and ending at from) is returned.
func (g *Graph) AddEdgeAcyclic(from, to string) error {
	if path := g.Path(to, from); path != nil {
		return &CycleError{Cycle: append([]string{from}, path...)}
	}
	g.AddEdge(from, to)
	return nil
}

// RemoveEdge deletes the edge from -> to if present. Nodes are kept.
func (g *Graph) RemoveEdge(from, to string) {
	neighbors := g.adjacency[from]
	for i, n := range neighbors {
		if n == to {
			g.adjacency[from] = append(neighbors[:i:i], neighbors[i+1:]...)
			return
		}
	}
}

// HasEdge reports whether the edge from -> to exists.
func (g *Graph) HasEdge(from, to string) bool {
	for _, n := range g.adjacency[from] {
		if n == to {
			return true
		}
	}
	return false
}

// Path returns the nodes of a path from -> ... -> to (inclusive), or nil
// when to is unreachable. A node always reaches itself.
func (g *Graph) Path(from, to string) []string {
	if from == to {
		return []string{from}
	}
	parent := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range g.adjacency[node] {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = node
			if next == to {
				var path []string
				for n := to; n != from; n = parent[n] {
					path = append(path, n)
				}
				path = append(path, from)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Successors returns the outgoing neighbors of node in insertion order.
func (g *Graph) Successors(node string) []string {
	return append([]string(nil), g.adjacency[node]...)
}

// TopologicalSort orders the nodes so that every edge source precedes its
// target. Ties are broken by insertion order. A graph with a loop yields a
// CycleError naming the nodes that could not be placed.
func (g *Graph) TopologicalSort() ([]string, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	pending := make(map[string]int, len(g.nodes))
	for _, targets := range g.adjacency {
		for _, target := range targets {
			pending[target]++
		}
	}

	ready := make([]string, 0, len(g.nodes))
	for _, node := range g.nodes {
		if pending[node] == 0 {
			ready = append(ready, node)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for i := 0; i < len(ready); i++ {
		node := ready[i]
		order = append(order, node)
		for _, target := range g.adjacency[node] {
			if pending[target]--; pending[target] == 0 {
				ready = append(ready, target)
			}
		}
	}

	if len(order) == len(g.nodes) {
		return order, nil
	}
	var stuck []string
	for _, node := range g.nodes {
		if pending[node] > 0 {
			stuck = append(stuck, node)
		}
	}
	return nil, &CycleError{Cycle: stuck}
}
