// Package validator evaluates a candidate rule's support and confidence
// against a live database by compiling it to SQL (internal/sqlgen) and
// dispatching through a catalog.QueryEngine, caching compiled-query results
// in a bounded LRU keyed on the canonical SQL text.
package validator

import (
	"context"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matilda-project/matilda/internal/rule"
	"github.com/matilda-project/matilda/internal/sqlgen"
)

// confidenceTolerance is the comparison slack spec.md requires for
// confidence-threshold decisions, to absorb floating point rounding in the
// division support(body ∧ head) / support(body).
const confidenceTolerance = 1e-9

// Counter is the subset of catalog.QueryEngine the validator needs: a single
// parameterized scalar-count operation. Kept as a narrow interface so tests
// can substitute an in-memory fake without a live database.
type Counter interface {
	Count(ctx context.Context, sqlText string, params []any) (uint64, error)
}

// Quoter mirrors sqlgen.Quoter; re-declared here so this package's exported
// surface doesn't force callers to import sqlgen just to build a Validator.
type Quoter interface {
	QuoteIdent(name string) string
}

// Verdict is the outcome of validating one candidate rule.
type Verdict struct {
	Valid      bool
	Support    uint64
	Confidence float64
}

// Validator measures a candidate rule's support and confidence, honoring the
// configured support floor and confidence threshold.
type Validator struct {
	counter          Counter
	quoter           Quoter
	relations        map[string]rule.Relation
	nbOccurrence     uint64
	confidenceThresh float64
	cache            *lru.Cache[string, uint64]
}

// New builds a Validator. cacheSize bounds the number of distinct compiled
// SQL query results held in memory at once (spec.md §4.4: "a bounded LRU,
// eviction policy-free" — golang-lru/v2 supplies the eviction for free).
func New(counter Counter, quoter Quoter, relations map[string]rule.Relation, nbOccurrence uint64, confidenceThreshold float64, cacheSize int) (*Validator, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, uint64](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Validator{
		counter:          counter,
		quoter:           quoter,
		relations:        relations,
		nbOccurrence:     nbOccurrence,
		confidenceThresh: confidenceThreshold,
		cache:            cache,
	}, nil
}

// Validate compiles and measures r, applying the early-rejection rule
// (skip the confidence query entirely once support already falls below the
// configured floor) and the always-satisfiable-existential-head
// short-circuit (confidence = 1.0 without issuing the correlated EXISTS
// query, since it is mathematically guaranteed to hold).
func (v *Validator) Validate(ctx context.Context, r rule.Rule) (Verdict, error) {
	support, err := v.support(ctx, r)
	if err != nil {
		return Verdict{}, err
	}

	floor := v.nbOccurrence
	if floor == 0 {
		// spec.md's resolved open question: nb_occurrence=0 means "no
		// floor", but a rule with zero witnesses is never emitted.
		floor = 1
	}
	if support < floor {
		return Verdict{Support: support}, nil
	}

	confidence, err := v.confidence(ctx, r, support)
	if err != nil {
		return Verdict{}, err
	}

	valid := support >= floor && confidenceAtLeast(confidence, v.confidenceThresh)
	return Verdict{Valid: valid, Support: support, Confidence: confidence}, nil
}

// confidenceAtLeast compares with the spec-mandated 1e-9 tolerance so a
// threshold of 1.0 isn't defeated by floating point division noise.
func confidenceAtLeast(confidence, threshold float64) bool {
	return confidence >= threshold || math.Abs(confidence-threshold) < confidenceTolerance
}

// support measures |body|: the count of distinct body-variable bindings.
func (v *Validator) support(ctx context.Context, r rule.Rule) (uint64, error) {
	sqlText, err := sqlgen.CompileSupport(r, v.relations, v.quoter)
	if err != nil {
		return 0, err
	}
	return v.countCached(ctx, sqlText)
}

// confidence measures |body ∧ head| / |body|, short-circuiting to 1.0 when
// the rule's head is purely existential (every head variable absent from
// the body): the correlated EXISTS subquery sqlgen would compile for such a
// head is trivially satisfiable for every body binding, so confidence is
// mathematically guaranteed to be 1.0 without running it.
func (v *Validator) confidence(ctx context.Context, r rule.Rule, support uint64) (float64, error) {
	if support == 0 {
		return 0, nil
	}
	if purelyExistentialHead(r) {
		return 1.0, nil
	}

	sqlText, err := sqlgen.CompileConfidence(r, v.relations, v.quoter)
	if err != nil {
		return 0, err
	}
	bodyAndHead, err := v.countCached(ctx, sqlText)
	if err != nil {
		return 0, err
	}
	return float64(bodyAndHead) / float64(support), nil
}

// purelyExistentialHead reports whether every head atom's variables are
// existential: no term correlates back to a body binding, so the EXISTS
// subquery sqlgen would compile carries no WHERE predicate against the
// outer query and holds unconditionally for every body binding.
func purelyExistentialHead(r rule.Rule) bool {
	for _, atom := range r.Head {
		for _, v := range atom.Variables() {
			if !r.IsExistential(v) {
				return false
			}
		}
	}
	return true
}

// countCached dispatches sqlText through the counter, caching the scalar
// result keyed on the exact SQL text so repeated candidates sharing a
// sub-query (e.g. the same body shape under different heads) pay for the
// count only once.
func (v *Validator) countCached(ctx context.Context, sqlText string) (uint64, error) {
	if n, ok := v.cache.Get(sqlText); ok {
		return n, nil
	}
	n, err := v.counter.Count(ctx, sqlText, nil)
	if err != nil {
		return 0, err
	}
	v.cache.Add(sqlText, n)
	return n, nil
}
