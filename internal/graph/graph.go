// Package graph builds and queries the constraint graph: an undirected
// graph over (relation, column) nodes with an edge wherever two columns
// share a domain tag and their sampled value sets overlap. Adjacency is
// stored as an arena of nodes with integer indices rather than owning
// pointers, so the graph (which is cyclic by nature — two columns may
// mutually reference each other) never needs cycle-aware cleanup.
package graph

import (
	"sort"

	"github.com/matilda-project/matilda/internal/rule"
)

// Node identifies a single (relation, column) position in the graph.
type Node struct {
	Relation string
	Column   int
}

// ColumnStats is the per-column input the graph is built from: a column's
// declared domain and a bounded reservoir of sampled value hashes, used to
// estimate cross-column overlap without scanning full tables.
type ColumnStats struct {
	Relation     string
	ColumnIndex  int
	ColumnName   string
	Domain       rule.Domain
	SampleHashes []uint64
}

// Neighbor is one edge endpoint as seen from a given node: the node on the
// other side and the edge's cached weight (estimated shared distinct
// values).
type Neighbor struct {
	Node   Node
	Weight int
}

// ConstraintGraph is the equi-join skeleton over (relation, column) nodes.
// Immutable after Build.
type ConstraintGraph struct {
	nodes     []Node
	nodeIndex map[Node]int
	adjacency [][]Neighbor // indexed by nodeIndex[node]
	relations map[string]struct{}
}

// Build estimates overlap for every pair of columns sharing a domain tag
// and inserts an edge wherever the estimate is >= 1. Edge weight is the
// estimated count of shared distinct values (hash-intersection size).
func Build(columns []ColumnStats) *ConstraintGraph {
	g := &ConstraintGraph{
		nodeIndex: map[Node]int{},
		relations: map[string]struct{}{},
	}

	sorted := make([]ColumnStats, len(columns))
	copy(sorted, columns)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Relation != sorted[j].Relation {
			return sorted[i].Relation < sorted[j].Relation
		}
		return sorted[i].ColumnIndex < sorted[j].ColumnIndex
	})

	for _, c := range sorted {
		n := Node{Relation: c.Relation, Column: c.ColumnIndex}
		g.relations[c.Relation] = struct{}{}
		if _, ok := g.nodeIndex[n]; ok {
			continue
		}
		g.nodeIndex[n] = len(g.nodes)
		g.nodes = append(g.nodes, n)
	}
	g.adjacency = make([][]Neighbor, len(g.nodes))

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if a.Relation == b.Relation && a.ColumnIndex == b.ColumnIndex {
				continue
			}
			if a.Domain != b.Domain {
				continue
			}
			weight := overlapCount(a.SampleHashes, b.SampleHashes)
			if weight < 1 {
				continue
			}
			an := Node{Relation: a.Relation, Column: a.ColumnIndex}
			bn := Node{Relation: b.Relation, Column: b.ColumnIndex}
			if an == bn {
				continue // no self-loops
			}
			g.addEdge(an, bn, weight)
		}
	}

	for i := range g.adjacency {
		g.sortNeighbors(i)
	}

	return g
}

func (g *ConstraintGraph) addEdge(a, b Node, weight int) {
	ai, bi := g.nodeIndex[a], g.nodeIndex[b]
	g.adjacency[ai] = append(g.adjacency[ai], Neighbor{Node: b, Weight: weight})
	g.adjacency[bi] = append(g.adjacency[bi], Neighbor{Node: a, Weight: weight})
}

func (g *ConstraintGraph) sortNeighbors(i int) {
	ns := g.adjacency[i]
	sort.SliceStable(ns, func(a, b int) bool {
		if ns[a].Weight != ns[b].Weight {
			return ns[a].Weight > ns[b].Weight // descending weight
		}
		if ns[a].Node.Relation != ns[b].Node.Relation {
			return ns[a].Node.Relation < ns[b].Node.Relation
		}
		return ns[a].Node.Column < ns[b].Node.Column
	})
}

// Neighbors returns node's neighbors sorted by descending weight, with a
// deterministic (relation, column) lexicographic tie-break.
func (g *ConstraintGraph) Neighbors(n Node) []Neighbor {
	i, ok := g.nodeIndex[n]
	if !ok {
		return nil
	}
	out := make([]Neighbor, len(g.adjacency[i]))
	copy(out, g.adjacency[i])
	return out
}

// Contains reports whether relation has at least one node in the graph.
func (g *ConstraintGraph) Contains(relation string) bool {
	_, ok := g.relations[relation]
	return ok
}

// Relations returns every relation name present in the graph, sorted.
func (g *ConstraintGraph) Relations() []string {
	out := make([]string, 0, len(g.relations))
	for r := range g.relations {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Nodes returns every node in the graph, in deterministic (relation,
// column) order.
func (g *ConstraintGraph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// overlapCount estimates the number of shared distinct values between two
// sampled hash reservoirs.
func overlapCount(a, b []uint64) int {
	set := make(map[uint64]struct{}, len(a))
	for _, h := range a {
		set[h] = struct{}{}
	}
	count := 0
	seen := make(map[uint64]struct{}, len(b))
	for _, h := range b {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if _, ok := set[h]; ok {
			count++
		}
	}
	return count
}
