// Package enumerator implements the bounded join-tree DFS that produces
// candidate tuple-generating dependencies from a constraint graph: one
// singleton-body seed per relation, depth-first chain extension along
// graph edges, and a head-closure candidate emitted at every chain depth
// of two or more atoms. No teacher file implements this search directly
// (melange's rule trees are already resolved at schema-parse time); the
// shape — small structs, early returns, a seen-fingerprint set, sorted
// iteration instead of map ranges — follows the constraint graph's own
// traversal style.
package enumerator

import (
	"fmt"
	"sort"

	"github.com/matilda-project/matilda/internal/graph"
	"github.com/matilda-project/matilda/internal/rule"
)

// Params bounds the candidate search space.
type Params struct {
	MaxTable uint32
	MaxVars  uint32
}

// CancelChecker reports whether the run's cooperative cancel flag has
// been set; polled once per DFS node, satisfied by *monitor.Monitor
// without this package importing it.
type CancelChecker interface {
	Cancelled() bool
}

// Enumerator walks a ConstraintGraph's bounded join-tree DFS.
type Enumerator struct {
	graph     *graph.ConstraintGraph
	relations map[string]rule.Relation
	order     []string
	params    Params
	seen      map[rule.Fingerprint]struct{}
	nextVar   int
	nextIndex uint64
}

// New builds an Enumerator over g, using relations for arity/column-name
// lookups when materializing new atoms along graph edges.
func New(g *graph.ConstraintGraph, relations []rule.Relation, params Params) *Enumerator {
	rels := make(map[string]rule.Relation, len(relations))
	order := make([]string, 0, len(relations))
	for _, r := range relations {
		rels[r.Name] = r
		order = append(order, r.Name)
	}
	sort.Strings(order)
	return &Enumerator{
		graph:     g,
		relations: rels,
		order:     order,
		params:    params,
		seen:      map[rule.Fingerprint]struct{}{},
	}
}

// chainAtom is one atom of a partial chain under construction. Every
// position carries a variable during construction; singleton rewriting to
// the anonymous term happens only once a rule is closed off.
type chainAtom struct {
	relation string
	vars     []string
}

// Enumerate walks the DFS in deterministic relation/neighbor order,
// invoking emit once per legal head-closure candidate. It returns early,
// with no error, the first time cancel reports true or emit returns
// false (the caller has seen enough).
func (e *Enumerator) Enumerate(cancel CancelChecker, emit func(rule.Rule) bool) {
	for _, name := range e.order {
		if cancel != nil && cancel.Cancelled() {
			return
		}
		rel := e.relations[name]
		e.nextVar = 0
		seed := chainAtom{relation: rel.Name, vars: e.freshVars(rel.Arity())}
		if !e.dfs([]chainAtom{seed}, cancel, emit) {
			return
		}
	}
}

func (e *Enumerator) freshVars(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("v%d", e.nextVar)
		e.nextVar++
	}
	return out
}

// dfs visits one partial chain, emitting a head-closure candidate (if the
// chain is long enough) before recursing into every legal extension.
// Returns false to stop the whole enumeration (cancelled, or emit asked
// to stop); true to keep going.
func (e *Enumerator) dfs(chain []chainAtom, cancel CancelChecker, emit func(rule.Rule) bool) bool {
	if cancel != nil && cancel.Cancelled() {
		return false
	}
	if !e.markSeen(chain) {
		return true
	}

	if len(chain) >= 2 {
		if r, ok := e.closeHead(chain); ok {
			if !emit(r) {
				return false
			}
		}
	}

	if uint32(len(chain)) >= e.params.MaxTable {
		return true
	}

	for _, ext := range e.extensions(chain) {
		if e.jointVarCount(chain)+ext.freshCount > int(e.params.MaxVars) {
			continue
		}
		next := make([]chainAtom, len(chain)+1)
		copy(next, chain)
		next[len(chain)] = ext.atom
		if !e.dfs(next, cancel, emit) {
			return false
		}
	}
	return true
}

// markSeen fingerprints chain as the partial rule it would close into (the
// most recently added atom as head, the rest as body; a single-atom seed as
// a headless body) and reports whether this is the first time it has been
// visited. Isomorphic partial chains with the same head collapse regardless
// of which traversal order produced their bodies, while the same atoms
// closed under a different head stay distinct candidates.
func (e *Enumerator) markSeen(chain []chainAtom) bool {
	atoms := chainAtoms(chain)
	partial := rule.Rule{Body: atoms}
	if len(atoms) >= 2 {
		partial = rule.Rule{Body: atoms[:len(atoms)-1], Head: atoms[len(atoms)-1:]}
	}
	fp := rule.ComputeFingerprint(partial)
	if _, ok := e.seen[fp]; ok {
		return false
	}
	e.seen[fp] = struct{}{}
	return true
}

type extension struct {
	atom       chainAtom
	freshCount int
}

// extensions lists every legal next atom reachable from chain: for each
// variable already bound somewhere in the chain, follow each constraint
// graph edge out of that variable's (relation, column) node, in the
// graph's deterministic descending-weight order.
func (e *Enumerator) extensions(chain []chainAtom) []extension {
	var out []extension
	for _, ca := range chain {
		rel, ok := e.relations[ca.relation]
		if !ok {
			continue
		}
		for pos, v := range ca.vars {
			if pos >= len(rel.Columns) {
				continue
			}
			for _, nb := range e.graph.Neighbors(graph.Node{Relation: ca.relation, Column: pos}) {
				nextRel, ok := e.relations[nb.Node.Relation]
				if !ok {
					continue
				}
				colIdx := nb.Node.Column
				if colIdx < 0 || colIdx >= nextRel.Arity() {
					continue
				}
				vars := e.freshVars(nextRel.Arity())
				vars[colIdx] = v
				out = append(out, extension{
					atom:       chainAtom{relation: nextRel.Name, vars: vars},
					freshCount: nextRel.Arity() - 1,
				})
			}
		}
	}
	return out
}

// jointVarCount estimates the variable count a head-closure at this exact
// chain would have, in the worst case that every one of the next atom's
// fresh positions survives as a kept existential: the number of variables
// already shared across two or more chain positions (singletons so far
// are presumed to anonymize away). Used only to decide whether an
// extension is worth exploring; closeHead re-derives the true count.
func (e *Enumerator) jointVarCount(chain []chainAtom) int {
	counts := map[string]int{}
	for _, ca := range chain {
		for _, v := range ca.vars {
			counts[v]++
		}
	}
	n := 0
	for _, c := range counts {
		if c >= 2 {
			n++
		}
	}
	return n
}

// closeHead treats chain's most recently added atom as the rule's head
// and everything before it as the body, applying the singleton-rewrite
// and body-supersedes-head pruning rules before returning the candidate.
func (e *Enumerator) closeHead(chain []chainAtom) (rule.Rule, bool) {
	bodyChain := chain[:len(chain)-1]
	headChain := chain[len(chain)-1]

	if tautological(bodyChain, headChain) {
		return rule.Rule{}, false
	}

	bodyAtoms := chainAtoms(bodyChain)
	headAtoms := []rule.Atom{{Relation: headChain.relation, Terms: varsToTerms(headChain.vars)}}

	bodyVars := varSet(bodyAtoms)
	var existentials []string
	for _, v := range headChain.vars {
		if _, ok := bodyVars[v]; !ok {
			existentials = append(existentials, v)
		}
	}
	existentialSet := toSet(existentials)

	all := append(append([]rule.Atom{}, bodyAtoms...), headAtoms...)
	counts := occurrenceCounts(all)
	bodyAtoms = anonymizeSingletons(bodyAtoms, counts, existentialSet)
	headAtoms = anonymizeSingletons(headAtoms, counts, existentialSet)

	r := rule.Rule{
		Body:           bodyAtoms,
		Head:           headAtoms,
		Existentials:   existentials,
		DiscoveryIndex: e.nextIndex,
	}
	e.nextIndex++

	if !r.WellFormed() {
		return rule.Rule{}, false
	}
	if r.VariableCount() > int(e.params.MaxVars) {
		return rule.Rule{}, false
	}
	return r, true
}

// tautological reports whether headChain is, position-for-position, the
// exact same (relation, variable-vector) as some body atom already in the
// chain: a cheap check that the head adds no new variable constraint.
func tautological(bodyChain []chainAtom, headChain chainAtom) bool {
	for _, b := range bodyChain {
		if b.relation != headChain.relation || len(b.vars) != len(headChain.vars) {
			continue
		}
		same := true
		for i := range b.vars {
			if b.vars[i] != headChain.vars[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

func chainAtoms(chain []chainAtom) []rule.Atom {
	out := make([]rule.Atom, len(chain))
	for i, ca := range chain {
		out[i] = rule.Atom{Relation: ca.relation, Terms: varsToTerms(ca.vars)}
	}
	return out
}

func varsToTerms(vars []string) []rule.Term {
	terms := make([]rule.Term, len(vars))
	for i, v := range vars {
		terms[i] = rule.Var(v)
	}
	return terms
}

func varSet(atoms []rule.Atom) map[string]struct{} {
	out := map[string]struct{}{}
	for _, a := range atoms {
		for _, v := range a.Variables() {
			out[v] = struct{}{}
		}
	}
	return out
}

func toSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[n] = struct{}{}
	}
	return out
}

// occurrenceCounts counts how many term positions (across all of atoms)
// each variable name occupies.
func occurrenceCounts(atoms []rule.Atom) map[string]int {
	out := map[string]int{}
	for _, a := range atoms {
		for _, t := range a.Terms {
			if t.IsVariable() {
				out[t.Name]++
			}
		}
	}
	return out
}

// anonymizeSingletons rewrites every occurrence of a variable that (a) is
// not an existential head variable and (b) occurs in fewer than two
// positions overall, to the anonymous term. Existentials are exempt:
// by construction each occurs exactly once (in the head), and that single
// occurrence is the meaningful assertion "there exists a value here".
func anonymizeSingletons(atoms []rule.Atom, counts map[string]int, existentials map[string]struct{}) []rule.Atom {
	out := make([]rule.Atom, len(atoms))
	for i, a := range atoms {
		terms := make([]rule.Term, len(a.Terms))
		for j, t := range a.Terms {
			if t.IsVariable() {
				if _, ok := existentials[t.Name]; !ok && counts[t.Name] < 2 {
					terms[j] = rule.Anon()
					continue
				}
			}
			terms[j] = t
		}
		out[i] = rule.Atom{Relation: a.Relation, Terms: terms, Polarity: a.Polarity}
	}
	return out
}
