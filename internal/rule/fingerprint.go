package rule

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint is the canonical form of a rule used to collapse isomorphic
// candidates (rules identical up to variable renaming).
type Fingerprint string

// termPattern renders a term vector canonically: variables become their
// canonical index (assigned by the caller), anonymous stays "_".
func termPattern(terms []Term, index map[string]int) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		if !t.IsVariable() {
			parts[i] = "_"
			continue
		}
		parts[i] = fmt.Sprintf("v%d", index[t.Name])
	}
	return strings.Join(parts, ",")
}

// groupByRelation partitions atoms by relation name and returns the groups
// ordered by that name. Relation name is the only thing about an atom that
// survives variable renaming, so this partition — unlike a sort keyed on
// original variable names — never depends on how the rule's variables
// happen to be spelled.
func groupByRelation(atoms []Atom) [][]Atom {
	byRelation := map[string][]Atom{}
	for _, a := range atoms {
		byRelation[a.Relation] = append(byRelation[a.Relation], a)
	}

	relations := make([]string, 0, len(byRelation))
	for rel := range byRelation {
		relations = append(relations, rel)
	}
	sort.Strings(relations)

	groups := make([][]Atom, len(relations))
	for i, rel := range relations {
		groups[i] = byRelation[rel]
	}
	return groups
}

// assignFirstOccurrence assigns a fresh canonical index to each variable
// in atoms, in traversal order, skipping variables index already holds.
func assignFirstOccurrence(atoms []Atom, index map[string]int, next *int) {
	for _, a := range atoms {
		for _, v := range a.Variables() {
			if _, ok := index[v]; ok {
				continue
			}
			index[v] = *next
			*next++
		}
	}
}

// permute calls visit once for every permutation of items, via Heap's
// algorithm, in a fixed deterministic generation order.
func permute(items []Atom, visit func([]Atom)) {
	data := append([]Atom(nil), items...)
	var generate func(k int)
	generate = func(k int) {
		if k == 1 {
			visit(data)
			return
		}
		for i := 0; i < k; i++ {
			generate(k - 1)
			if k%2 == 0 {
				data[i], data[k-1] = data[k-1], data[i]
			} else {
				data[0], data[k-1] = data[k-1], data[0]
			}
		}
	}
	generate(len(items))
}

// bestPermutation orders a same-relation atom group so that its term-pattern
// encoding — built from fresh indices extending varIndex/next — is
// lexicographically smallest, then commits that ordering's variable
// assignments into varIndex/next.
//
// This is what makes canonicalization invariant under variable renaming:
// when several atoms tie on relation and shape (a self-join), which one a
// name-based sort would put first depends on the accident of what the
// variables are called. Trying every ordering of the tied group and keeping
// the one with the smallest pattern removes that dependency entirely —
// the choice is driven only by the structure, never by a variable's
// spelling. Group sizes are bounded by max_table, so the full permutation
// is cheap.
func bestPermutation(group []Atom, varIndex map[string]int, next *int) []Atom {
	if len(group) <= 1 {
		assignFirstOccurrence(group, varIndex, next)
		return group
	}

	var (
		bestOrder   []Atom
		bestPattern string
		bestAssign  map[string]int
		bestNext    int
	)

	permute(group, func(candidate []Atom) {
		tmpIndex := make(map[string]int, len(varIndex))
		for k, v := range varIndex {
			tmpIndex[k] = v
		}
		tmpNext := *next
		assignFirstOccurrence(candidate, tmpIndex, &tmpNext)

		patterns := make([]string, len(candidate))
		for i, a := range candidate {
			patterns[i] = a.Relation + "(" + termPattern(a.Terms, tmpIndex) + ")"
		}
		pattern := strings.Join(patterns, "|")

		if bestOrder == nil || pattern < bestPattern {
			bestOrder = append([]Atom(nil), candidate...)
			bestPattern = pattern
			bestAssign = tmpIndex
			bestNext = tmpNext
		}
	})

	for k, v := range bestAssign {
		varIndex[k] = v
	}
	*next = bestNext
	return bestOrder
}

// canonicalizeSequence orders atoms into a canonical, name-agnostic
// sequence, extending varIndex/next with fresh indices for any variable
// that isn't already assigned one.
func canonicalizeSequence(atoms []Atom, varIndex map[string]int, next *int) []Atom {
	out := make([]Atom, 0, len(atoms))
	for _, group := range groupByRelation(atoms) {
		out = append(out, bestPermutation(group, varIndex, next)...)
	}
	return out
}

// Canonicalize returns the rule's atoms (body then head, each internally
// ordered into a name-agnostic canonical sequence) and a fresh index
// assigning each distinct variable its first-occurrence position in that
// order. This index is the basis for both the fingerprint and reproducible
// TGD string rendering.
func Canonicalize(r Rule) (body, head []Atom, varIndex map[string]int) {
	varIndex = map[string]int{}
	next := 0

	body = canonicalizeSequence(r.Body, varIndex, &next)
	head = canonicalizeSequence(r.Head, varIndex, &next)
	return body, head, varIndex
}

// ComputeFingerprint returns the rule's canonical fingerprint: atoms ordered
// into a name-agnostic canonical sequence, variables renamed to their
// first-occurrence index in that order. Two rules identical up to variable
// renaming — including self-joins where which atom instance is "first" is
// arbitrary — always produce identical fingerprints.
func ComputeFingerprint(r Rule) Fingerprint {
	body, head, varIndex := Canonicalize(r)

	var sb strings.Builder
	sb.WriteString("B:")
	for i, a := range body {
		if i > 0 {
			sb.WriteString("|")
		}
		sb.WriteString(a.Relation)
		sb.WriteString("(")
		sb.WriteString(termPattern(a.Terms, varIndex))
		sb.WriteString(")")
	}
	sb.WriteString(";H:")
	for i, a := range head {
		if i > 0 {
			sb.WriteString("|")
		}
		sb.WriteString(a.Relation)
		sb.WriteString("(")
		sb.WriteString(termPattern(a.Terms, varIndex))
		sb.WriteString(")")
	}
	sb.WriteString(";E:")
	existentialIdx := make([]int, 0, len(r.Existentials))
	for _, v := range r.Existentials {
		if idx, ok := varIndex[v]; ok {
			existentialIdx = append(existentialIdx, idx)
		}
	}
	sort.Ints(existentialIdx)
	for i, idx := range existentialIdx {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, "v%d", idx)
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return Fingerprint(hex.EncodeToString(sum[:]))
}
