// Package discovery is MATILDA's top-level orchestrator: it wires
// internal/catalog, internal/graph, internal/enumerator,
// internal/validator, internal/pruner, and internal/monitor into the
// single ordered run spec.md §5 describes as a state machine (INIT →
// LOADING_CATALOG → BUILDING_GRAPH → ENUMERATING ⇄ VALIDATING →
// FINALIZING → DONE, with CANCELLED reachable from any state). Modeled on
// melange's Migrator.MigrateWithTypes: one exported method walking fixed
// stages in order, returning as soon as a stage reports a fatal error.
package discovery

import (
	"context"
	"database/sql"
	"time"

	"github.com/matilda-project/matilda/internal/catalog"
	"github.com/matilda-project/matilda/internal/clierr"
	"github.com/matilda-project/matilda/internal/enumerator"
	"github.com/matilda-project/matilda/internal/graph"
	"github.com/matilda-project/matilda/internal/monitor"
	"github.com/matilda-project/matilda/internal/pruner"
	"github.com/matilda-project/matilda/internal/report"
	"github.com/matilda-project/matilda/internal/rule"
	"github.com/matilda-project/matilda/internal/tracking"
	"github.com/matilda-project/matilda/internal/validator"
)

// maxConsecutiveTimeouts is spec.md §7's escalation threshold: three
// per-statement timeouts in a row turn a non-fatal per-candidate failure
// into a clean, whole-run cancellation.
const maxConsecutiveTimeouts = 3

// State names one position in the run's state machine.
type State int

const (
	StateInit State = iota
	StateLoadingCatalog
	StateBuildingGraph
	StateEnumerating
	StateValidating
	StateFinalizing
	StateDone
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateLoadingCatalog:
		return "LOADING_CATALOG"
	case StateBuildingGraph:
		return "BUILDING_GRAPH"
	case StateEnumerating:
		return "ENUMERATING"
	case StateValidating:
		return "VALIDATING"
	case StateFinalizing:
		return "FINALIZING"
	case StateDone:
		return "DONE"
	case StateCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Params bounds one discovery run. The algorithm and monitor fields mirror
// the algorithm.* and monitor.* config keys; CacheSize, SampleSize,
// StatementTimeout and Tracker are set by the caller and have no config
// key of their own.
type Params struct {
	NbOccurrence        uint64
	MaxTable            uint32
	MaxVars             uint32
	ConfidenceThreshold float64
	CacheSize           int
	SampleSize          int

	MemoryThresholdBytes uint64
	Timeout              time.Duration
	StatementTimeout     time.Duration

	// Tracker logs the finished run to an external experiment tracker.
	// Nil is treated as tracking.NoopTracker{}.
	Tracker tracking.Tracker
}

// Outcome is everything a caller needs after Run returns without a fatal
// error: the rendered results, whether the run was cancelled (and why),
// and any (non-fatal, best-effort) tracking failure.
type Outcome struct {
	Results     report.Results
	Cancelled   bool
	Trigger     string
	TrackingErr error
}

// Orchestrator runs one discovery pass against an already-open database
// connection. A single instance owns the catalog for the duration of Run;
// every other component receives a non-owning reference, per spec.md §9's
// shared-ownership design note.
type Orchestrator struct {
	db      *sql.DB
	dialect catalog.Dialect
	params  Params
	state   State
}

// New builds an Orchestrator over an already-open db/dialect pair (see
// catalog.Open).
func New(db *sql.DB, dialect catalog.Dialect, params Params) *Orchestrator {
	return &Orchestrator{db: db, dialect: dialect, params: params, state: StateInit}
}

// State reports the orchestrator's current position in the state machine.
func (o *Orchestrator) State() State { return o.state }

// Run executes one full discovery pass. database names the catalog being
// discovered against, for the results artifact filenames only — it has no
// bearing on the SQL issued.
func (o *Orchestrator) Run(ctx context.Context, database string) (Outcome, error) {
	mon := monitor.New(o.params.MemoryThresholdBytes, o.params.Timeout)

	o.state = StateLoadingCatalog
	cat, err := catalog.Load(ctx, o.db, o.dialect, o.params.SampleSize)
	if err != nil {
		return Outcome{}, err
	}

	o.state = StateBuildingGraph
	g := graph.Build(columnStats(cat))
	relations := relationMap(cat.Relations())

	qe := catalog.NewQueryEngine(cat, mon, o.params.StatementTimeout)
	val, err := validator.New(qe, o.dialect, relations, o.params.NbOccurrence, o.params.ConfidenceThreshold, o.params.CacheSize)
	if err != nil {
		return Outcome{}, clierr.InternalInvariantError("building validator", err)
	}

	pre := pruner.NewPreFilter(o.params.MaxTable, o.params.MaxVars)
	dedup := pruner.NewDeduper()
	enum := enumerator.New(g, cat.Relations(), enumerator.Params{MaxTable: o.params.MaxTable, MaxVars: o.params.MaxVars})

	o.state = StateEnumerating

	var (
		runErr              error
		cancelled           bool
		trigger             string
		consecutiveTimeouts int
	)

	enum.Enumerate(mon, func(r rule.Rule) bool {
		mon.Poll()
		if mon.Cancelled() {
			cancelled = true
			trigger = mon.Trigger().String()
			return false
		}

		if !pre.Admit(r) {
			return true
		}

		o.state = StateValidating
		verdict, vErr := val.Validate(ctx, r)
		o.state = StateEnumerating
		if vErr != nil {
			if clierr.IsTimeoutErr(vErr) {
				consecutiveTimeouts++
				if consecutiveTimeouts >= maxConsecutiveTimeouts {
					cancelled = true
					trigger = "query_timeouts"
					return false
				}
				return true
			}
			runErr = vErr
			return false
		}
		consecutiveTimeouts = 0

		dedup.Consider(r, pruner.Verdict{Valid: verdict.Valid, Support: verdict.Support, Confidence: verdict.Confidence})
		return true
	})

	if runErr != nil {
		return Outcome{}, runErr
	}

	o.state = StateFinalizing
	if !cancelled && mon.Cancelled() {
		cancelled = true
		trigger = mon.Trigger().String()
	}

	status := report.StatusSuccess
	if cancelled {
		status = report.StatusPartial
	}

	accepted := acceptedResults(dedup)
	results := report.Build(database, accepted, mon.Elapsed(), status)

	trackingErr := logRun(ctx, o.params.Tracker, database, results, o.params)

	o.state = StateDone
	return Outcome{Results: results, Cancelled: cancelled, Trigger: trigger, TrackingErr: trackingErr}, nil
}

func acceptedResults(dedup *pruner.Deduper) []report.Accepted {
	ranked := dedup.Accepted()
	out := make([]report.Accepted, len(ranked))
	for i, a := range ranked {
		out[i] = report.Accepted{Rule: a.Rule, Support: a.Verdict.Support, Confidence: a.Verdict.Confidence}
	}
	return out
}

// logRun reports the finished run to the configured tracker, if any. A
// tracking failure never fails the discovery run itself (spec.md §6.4:
// tracking is a thin, best-effort external collaborator).
func logRun(ctx context.Context, tracker tracking.Tracker, database string, results report.Results, params Params) error {
	if tracker == nil {
		tracker = tracking.NoopTracker{}
	}
	return tracker.LogRun(ctx, tracking.Summary{
		Database:             database,
		TotalRules:           results.Metadata.TotalRules,
		ExecutionTimeSeconds: results.Metadata.ExecutionTimeSeconds,
		Status:               results.Metadata.Status,
		NbOccurrence:         uint32(params.NbOccurrence),
		ConfidenceThreshold:  params.ConfidenceThreshold,
	})
}

func columnStats(cat *catalog.Catalog) []graph.ColumnStats {
	var out []graph.ColumnStats
	for _, rel := range cat.Relations() {
		stats, ok := cat.Stats(rel.Name)
		if !ok {
			continue
		}
		for i, col := range rel.Columns {
			out = append(out, graph.ColumnStats{
				Relation:     rel.Name,
				ColumnIndex:  i,
				ColumnName:   col.Name,
				Domain:       col.Domain,
				SampleHashes: stats.Samples[col.Name],
			})
		}
	}
	return out
}

func relationMap(relations []rule.Relation) map[string]rule.Relation {
	out := make(map[string]rule.Relation, len(relations))
	for _, r := range relations {
		out[r.Name] = r
	}
	return out
}
