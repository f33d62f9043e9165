// Package depgraph provides the dependency-graph operations the plan
// layer needs before handing a finished plan to the engine compiler:
// cycle detection and deterministic topological ordering over node
// handles.
package depgraph

import (
	"cmp"
	"fmt"
	"slices"
)

// Graph is a directed graph keyed by ordered node IDs. Edges point from
// a dependency to its dependent.
type Graph[ID cmp.Ordered] struct {
	nodes   map[ID]struct{}
	edges   map[ID][]ID // dependency -> dependents
	parents map[ID][]ID // dependent -> dependencies
}

// New creates an empty graph.
func New[ID cmp.Ordered]() *Graph[ID] {
	return &Graph[ID]{
		nodes:   make(map[ID]struct{}),
		edges:   make(map[ID][]ID),
		parents: make(map[ID][]ID),
	}
}

// AddNode registers a node. Adding an existing node is a no-op.
func (g *Graph[ID]) AddNode(id ID) {
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = struct{}{}
}

// AddEdge records that child depends on parent. Both nodes must already
// exist; self-loops are rejected.
func (g *Graph[ID]) AddEdge(parent, child ID) error {
	if _, ok := g.nodes[parent]; !ok {
		return fmt.Errorf("parent node %v does not exist", parent)
	}
	if _, ok := g.nodes[child]; !ok {
		return fmt.Errorf("child node %v does not exist", child)
	}
	if parent == child {
		return fmt.Errorf("self-loop detected: %v", parent)
	}
	if !slices.Contains(g.edges[parent], child) {
		g.edges[parent] = append(g.edges[parent], child)
	}
	if !slices.Contains(g.parents[child], parent) {
		g.parents[child] = append(g.parents[child], parent)
	}
	return nil
}

// NodeCount returns the number of registered nodes.
func (g *Graph[ID]) NodeCount() int { return len(g.nodes) }

// Parents returns the dependencies of a node.
func (g *Graph[ID]) Parents(id ID) []ID { return g.parents[id] }

// HasCycle reports whether the graph contains a cycle, along with one
// offending path for error reporting.
func (g *Graph[ID]) HasCycle() (bool, []ID) {
	visited := make(map[ID]bool)
	recStack := make(map[ID]bool)
	cameFrom := make(map[ID]ID)

	var cycle []ID
	var dfs func(id ID) bool
	dfs = func(id ID) bool {
		visited[id] = true
		recStack[id] = true
		for _, child := range g.edges[id] {
			if !visited[child] {
				cameFrom[child] = id
				if dfs(child) {
					return true
				}
			} else if recStack[child] {
				cycle = []ID{child}
				for curr := id; curr != child; curr = cameFrom[curr] {
					cycle = append([]ID{curr}, cycle...)
				}
				cycle = append([]ID{child}, cycle...)
				return true
			}
		}
		recStack[id] = false
		return false
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] {
			if dfs(id) {
				return true, cycle
			}
		}
	}
	return false, nil
}

// TopologicalSort returns node IDs with every dependency before its
// dependents, deterministically (ties broken by ID order). Fails if the
// graph contains a cycle.
func (g *Graph[ID]) TopologicalSort() ([]ID, error) {
	if cyclic, path := g.HasCycle(); cyclic {
		return nil, fmt.Errorf("cycle detected: %v", path)
	}

	visited := make(map[ID]bool)
	var result []ID
	var visit func(id ID)
	visit = func(id ID) {
		if visited[id] {
			return
		}
		visited[id] = true
		parents := slices.Clone(g.parents[id])
		slices.Sort(parents)
		for _, parent := range parents {
			visit(parent)
		}
		result = append(result, id)
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}
	return result, nil
}

// Roots returns nodes with no dependencies, in ID order.
func (g *Graph[ID]) Roots() []ID {
	var roots []ID
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	slices.Sort(roots)
	return roots
}

// Leaves returns nodes with no dependents, in ID order.
func (g *Graph[ID]) Leaves() []ID {
	var leaves []ID
	for id := range g.nodes {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	slices.Sort(leaves)
	return leaves
}

func (g *Graph[ID]) sortedIDs() []ID {
	ids := make([]ID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
