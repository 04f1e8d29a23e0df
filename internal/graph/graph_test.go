package graph

import (
	"testing"

	"github.com/matilda-project/matilda/internal/rule"
)

func TestBuild_EdgeOnOverlap(t *testing.T) {
	g := Build([]ColumnStats{
		{Relation: "enrollment", ColumnIndex: 0, ColumnName: "student_id", Domain: rule.Integer, SampleHashes: []uint64{1, 2, 3}},
		{Relation: "student", ColumnIndex: 0, ColumnName: "student_id", Domain: rule.Integer, SampleHashes: []uint64{2, 3, 4}},
		{Relation: "course", ColumnIndex: 0, ColumnName: "title", Domain: rule.Text, SampleHashes: []uint64{9}},
	})

	n := Node{Relation: "enrollment", Column: 0}
	neighbors := g.Neighbors(n)
	if len(neighbors) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(neighbors))
	}
	if neighbors[0].Node.Relation != "student" || neighbors[0].Weight != 2 {
		t.Fatalf("unexpected neighbor: %+v", neighbors[0])
	}

	if g.Contains("course") != true {
		t.Fatalf("expected graph to contain course (even with no edges)")
	}
	if len(g.Neighbors(Node{Relation: "course", Column: 0})) != 0 {
		t.Fatalf("expected course.title to have no edges (different domain)")
	}
}

func TestBuild_NoSelfLoops(t *testing.T) {
	g := Build([]ColumnStats{
		{Relation: "a", ColumnIndex: 0, Domain: rule.Integer, SampleHashes: []uint64{1, 2}},
	})
	if len(g.Neighbors(Node{Relation: "a", Column: 0})) != 0 {
		t.Fatalf("expected no self-loop edges")
	}
}

func TestBuild_DeterministicTieBreak(t *testing.T) {
	stats := []ColumnStats{
		{Relation: "x", ColumnIndex: 0, Domain: rule.Integer, SampleHashes: []uint64{1, 2}},
		{Relation: "b", ColumnIndex: 0, Domain: rule.Integer, SampleHashes: []uint64{1, 2}},
		{Relation: "a", ColumnIndex: 0, Domain: rule.Integer, SampleHashes: []uint64{1, 2}},
	}
	g1 := Build(stats)
	g2 := Build(stats)

	n1 := g1.Neighbors(Node{Relation: "x", Column: 0})
	n2 := g2.Neighbors(Node{Relation: "x", Column: 0})
	if len(n1) != 2 || len(n2) != 2 {
		t.Fatalf("expected 2 neighbors each")
	}
	for i := range n1 {
		if n1[i] != n2[i] {
			t.Fatalf("expected identical neighbor ordering across builds")
		}
	}
	if n1[0].Node.Relation != "a" {
		t.Fatalf("expected lexicographic tie-break to order 'a' before 'b', got %s", n1[0].Node.Relation)
	}
}
