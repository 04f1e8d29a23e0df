// Package report renders a completed discovery run's accepted rules into
// the two artifact shapes spec.md §6 names: a machine-readable JSON result
// file and a human-readable Markdown summary. The summary rendering
// follows internal/doctor's Report/Print pattern (group, render line,
// summary line) adapted from health-check categories to ranked rules.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/matilda-project/matilda/internal/rule"
)

// Status is the run's terminal outcome, as spec.md §6's metadata.status
// enum names it.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
)

// Accepted is one rule the pruner retained, paired with its measured
// support and confidence — the minimal slice of validator.Verdict this
// package needs, kept local so it doesn't import internal/validator.
type Accepted struct {
	Rule       rule.Rule
	Support    uint64
	Confidence float64
}

// RuleResult is one entry of the JSON results file's "rules" array.
type RuleResult struct {
	Body       []string `json:"body"`
	Head       []string `json:"head"`
	Support    uint64   `json:"support"`
	Confidence float64  `json:"confidence"`
	TGDString  string   `json:"tgd_string"`
}

// Metadata is the JSON results file's "metadata" object.
type Metadata struct {
	Database             string  `json:"database"`
	TotalRules           int     `json:"total_rules"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	Status               string  `json:"status"`
}

// Results is the full JSON results document.
type Results struct {
	Rules    []RuleResult `json:"rules"`
	Metadata Metadata     `json:"metadata"`
}

// Build renders accepted rules (already sorted by the pruner's ranked-sink
// order) into a Results document, formatting confidence to the spec'd 4
// decimal places.
func Build(database string, accepted []Accepted, elapsed time.Duration, status Status) Results {
	rules := make([]RuleResult, len(accepted))
	for i, a := range accepted {
		body, head := rule.CanonicalAtomStrings(a.Rule)
		rules[i] = RuleResult{
			Body:       body,
			Head:       head,
			Support:    a.Support,
			Confidence: round4(a.Confidence),
			TGDString:  rule.TGDString(a.Rule),
		}
	}
	return Results{
		Rules: rules,
		Metadata: Metadata{
			Database:             database,
			TotalRules:           len(rules),
			ExecutionTimeSeconds: elapsed.Seconds(),
			Status:               string(status),
		},
	}
}

// round4 rounds to 4 decimal places, the precision spec.md §4.4 requires
// for output confidence values.
func round4(f float64) float64 {
	const scale = 1e4
	return math.Round(f*scale) / scale
}

// WriteJSON marshals results as indented JSON.
func (r Results) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteMarkdown renders a human-readable summary: one line per rule
// (TGD string, support, confidence) followed by a totals line, matching
// doctor.Report.Print's grouped-checks-then-summary shape.
func (r Results) WriteMarkdown(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# MATILDA discovery report — %s\n\n", r.Metadata.Database); err != nil {
		return err
	}
	if len(r.Rules) == 0 {
		if _, err := fmt.Fprintln(w, "No rules met the configured support and confidence thresholds."); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintln(w, "| Rule | Support | Confidence |"); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "|---|---|---|"); err != nil {
			return err
		}
		for _, rr := range r.Rules {
			if _, err := fmt.Fprintf(w, "| `%s` | %d | %.4f |\n", rr.TGDString, rr.Support, rr.Confidence); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintf(w, "\nSummary: %d rules, %.2fs, status %s\n",
		r.Metadata.TotalRules, r.Metadata.ExecutionTimeSeconds, r.Metadata.Status)
	return err
}

// JSONPath and MarkdownPath name the artifact files exactly as spec.md §6
// requires: "results/MATILDA_<db>_results.json" and
// "results/report_MATILDA_<db>.md".
func JSONPath(outputDir, database string) string {
	return filepath.Join(outputDir, fmt.Sprintf("MATILDA_%s_results.json", database))
}

func MarkdownPath(outputDir, database string) string {
	return filepath.Join(outputDir, fmt.Sprintf("report_MATILDA_%s.md", database))
}

// Save writes both artifacts under outputDir, creating the directory if
// needed, and returns their paths.
func (r Results) Save(outputDir string) (jsonPath, markdownPath string, err error) {
	if err = os.MkdirAll(outputDir, 0o755); err != nil {
		return "", "", err
	}

	jsonPath = JSONPath(outputDir, r.Metadata.Database)
	jf, err := os.Create(jsonPath)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = jf.Close() }()
	if err = r.WriteJSON(jf); err != nil {
		return "", "", err
	}

	markdownPath = MarkdownPath(outputDir, r.Metadata.Database)
	mf, err := os.Create(markdownPath)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = mf.Close() }()
	if err = r.WriteMarkdown(mf); err != nil {
		return "", "", err
	}

	return jsonPath, markdownPath, nil
}
