// Package pruner implements the two-stage candidate filter sitting on
// either side of the validator: a pre-validation syntactic filter (reject
// a candidate before spending a SQL round trip on it) and a
// post-validation deduper that keeps only the accepted rules a more
// general, previously accepted rule doesn't already make redundant.
package pruner

import (
	"sort"

	"github.com/matilda-project/matilda/internal/rule"
)

// Verdict is the subset of validator.Verdict the pruner needs to decide
// whether to keep a candidate. Declared locally so this package doesn't
// depend on internal/validator.
type Verdict struct {
	Valid      bool
	Support    uint64
	Confidence float64
}

// PreFilter rejects candidates before they reach the validator: malformed
// rules, rules exceeding the configured bounds, and exact-fingerprint
// repeats already seen by this run. The enumerator already prunes
// isomorphic *partial* chains during its own DFS; this is the final,
// whole-rule backstop spec.md §4.5 calls for.
type PreFilter struct {
	maxTable uint32
	maxVars  uint32
	seen     map[rule.Fingerprint]struct{}
}

// NewPreFilter builds a PreFilter bounded by maxTable/maxVars.
func NewPreFilter(maxTable, maxVars uint32) *PreFilter {
	return &PreFilter{maxTable: maxTable, maxVars: maxVars, seen: map[rule.Fingerprint]struct{}{}}
}

// Admit reports whether r should be sent to the validator.
func (f *PreFilter) Admit(r rule.Rule) bool {
	if !r.WellFormed() {
		return false
	}
	if uint32(r.AtomCount()) > f.maxTable {
		return false
	}
	if uint32(r.VariableCount()) > f.maxVars {
		return false
	}
	fp := rule.ComputeFingerprint(r)
	if _, ok := f.seen[fp]; ok {
		return false
	}
	f.seen[fp] = struct{}{}
	return true
}

// accepted is one entry in the Deduper's sorted index.
type accepted struct {
	fingerprint rule.Fingerprint
	rule        rule.Rule
	verdict     Verdict
}

// Deduper is the post-validation filter: it keeps every validated rule
// that is not subsumed by a rule already accepted, indexed by fingerprint
// in a sorted slice (the idiomatic Go stand-in for spec.md's
// `BTreeMap<Fingerprint, Rule>` — see DESIGN.md for why no library ordered
// map was used instead).
type Deduper struct {
	entries []accepted // kept sorted by fingerprint for sort.Search lookups
}

// NewDeduper returns an empty post-validation filter.
func NewDeduper() *Deduper {
	return &Deduper{}
}

// Consider applies the post-validation filter: drop if the verdict isn't
// valid, drop if a previously accepted rule subsumes the candidate
// (same head atom, candidate's body a super-multiset of the accepted
// rule's body under some variable correspondence — implying the accepted
// rule is strictly more general, so the candidate adds nothing). Returns
// whether r was accepted and added to the index.
func (d *Deduper) Consider(r rule.Rule, v Verdict) bool {
	if !v.Valid {
		return false
	}
	for _, a := range d.entries {
		if subsumes(a.rule, r) {
			return false
		}
	}

	fp := rule.ComputeFingerprint(r)
	idx := sort.Search(len(d.entries), func(i int) bool { return d.entries[i].fingerprint >= fp })
	d.entries = append(d.entries, accepted{})
	copy(d.entries[idx+1:], d.entries[idx:])
	d.entries[idx] = accepted{fingerprint: fp, rule: r, verdict: v}
	return true
}

// Accepted returns every retained rule together with its verdict, sorted
// by the ranked-sink order spec.md §3 specifies: confidence desc, support
// desc, size (atom count) asc, and finally DiscoveryIndex asc as the
// deterministic tie-break once every other key compares equal.
func (d *Deduper) Accepted() []struct {
	Rule    rule.Rule
	Verdict Verdict
} {
	out := make([]struct {
		Rule    rule.Rule
		Verdict Verdict
	}, len(d.entries))
	for i, a := range d.entries {
		out[i].Rule = a.rule
		out[i].Verdict = a.verdict
	}
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := out[i].Verdict, out[j].Verdict
		if vi.Confidence != vj.Confidence {
			return vi.Confidence > vj.Confidence
		}
		if vi.Support != vj.Support {
			return vi.Support > vj.Support
		}
		si, sj := out[i].Rule.AtomCount(), out[j].Rule.AtomCount()
		if si != sj {
			return si < sj
		}
		return out[i].Rule.DiscoveryIndex < out[j].Rule.DiscoveryIndex
	})
	return out
}

// Len reports how many rules are currently accepted.
func (d *Deduper) Len() int { return len(d.entries) }

// subsumes reports whether accepted is at least as general as candidate:
// both heads are the same relation with a correspondence making
// candidate's head atom the image of accepted's, and accepted's body
// atoms embed into candidate's body atoms (as a sub-multiset) under a
// consistent extension of that same variable correspondence. A more
// general (fewer/looser body constraints) previously-accepted rule makes
// the more specific candidate redundant: its confidence can only be
// weaker or equal.
func subsumes(general, candidate rule.Rule) bool {
	if len(general.Head) != 1 || len(candidate.Head) != 1 {
		return false
	}
	gh, ch := general.Head[0], candidate.Head[0]
	if gh.Relation != ch.Relation || len(gh.Terms) != len(ch.Terms) {
		return false
	}

	mapping := map[string]string{}
	if !extendMapping(mapping, gh.Terms, ch.Terms) {
		return false
	}

	remaining := make([]rule.Atom, len(candidate.Body))
	copy(remaining, candidate.Body)
	return embedBody(general.Body, remaining, mapping)
}

// extendMapping tries to align from's terms onto to's terms, extending
// mapping in place. Anonymous positions on from impose no constraint.
// An anonymous position on to can only be matched by an anonymous
// position on from (a named variable has nowhere to bind). Returns false
// on any inconsistency.
func extendMapping(mapping map[string]string, from, to []rule.Term) bool {
	for i := range from {
		ft, tt := from[i], to[i]
		if !ft.IsVariable() {
			continue
		}
		if !tt.IsVariable() {
			return false
		}
		if existing, ok := mapping[ft.Name]; ok {
			if existing != tt.Name {
				return false
			}
			continue
		}
		mapping[ft.Name] = tt.Name
	}
	return true
}

// embedBody tries to match every atom in from (the accepted rule's body)
// against a distinct, not-yet-used atom in candidate's remaining body
// atoms, extending mapping as needed for body-only accepted variables.
// Backtracks across ambiguous relation-name collisions.
func embedBody(from []rule.Atom, remaining []rule.Atom, mapping map[string]string) bool {
	if len(from) == 0 {
		return true
	}
	head, rest := from[0], from[1:]

	for i, cand := range remaining {
		if cand.Relation != head.Relation || len(cand.Terms) != len(head.Terms) {
			continue
		}
		trial := cloneMapping(mapping)
		if !extendMapping(trial, head.Terms, cand.Terms) {
			continue
		}
		nextRemaining := make([]rule.Atom, 0, len(remaining)-1)
		nextRemaining = append(nextRemaining, remaining[:i]...)
		nextRemaining = append(nextRemaining, remaining[i+1:]...)
		if embedBody(rest, nextRemaining, trial) {
			for k, v := range trial {
				mapping[k] = v
			}
			return true
		}
	}
	return false
}

func cloneMapping(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
