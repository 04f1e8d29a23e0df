// Package tracking optionally reports a finished discovery run to an
// external MLflow-compatible tracking server. It is a thin collaborator,
// not a tracking client: when mlflow.use is false (the default) nothing
// leaves the process.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Summary is the minimal run record a Tracker logs: enough for an
// experiment dashboard to compare runs without duplicating the full
// results/MATILDA_<db>_results.json artifact.
type Summary struct {
	Database             string  `json:"database"`
	TotalRules           int     `json:"total_rules"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
	Status               string  `json:"status"`
	NbOccurrence         uint32  `json:"nb_occurrence"`
	ConfidenceThreshold  float64 `json:"confidence_threshold"`
}

// Tracker logs a run summary to wherever the configured backend sends it.
type Tracker interface {
	LogRun(ctx context.Context, summary Summary) error
}

// NoopTracker discards every run summary. It is the default Tracker: most
// runs have mlflow.use set to false.
type NoopTracker struct{}

func (NoopTracker) LogRun(context.Context, Summary) error { return nil }

// HTTPTracker POSTs the run summary as JSON to an MLflow-compatible HTTP
// endpoint, following the same bare http.Client{Timeout: ...} shape the
// teacher's update checker uses for its own external HTTP call.
type HTTPTracker struct {
	TrackingURI    string
	ExperimentName string
	Client         *http.Client
}

// NewHTTPTracker builds an HTTPTracker with a bounded request timeout.
func NewHTTPTracker(trackingURI, experimentName string) *HTTPTracker {
	return &HTTPTracker{
		TrackingURI:    trackingURI,
		ExperimentName: experimentName,
		Client:         &http.Client{Timeout: 10 * time.Second},
	}
}

type runPayload struct {
	ExperimentName string  `json:"experiment_name"`
	Database       string  `json:"database"`
	TotalRules     int     `json:"total_rules"`
	ExecutionTime  float64 `json:"execution_time_seconds"`
	Status         string  `json:"status"`
	NbOccurrence   uint32  `json:"nb_occurrence"`
	Confidence     float64 `json:"confidence_threshold"`
}

// LogRun POSTs the summary to TrackingURI + "/runs". A non-2xx response or
// transport failure is returned as an error; the caller decides whether a
// tracking failure should fail the whole discovery run (spec.md §6 treats
// tracking as best-effort, so callers typically log and continue).
func (t *HTTPTracker) LogRun(ctx context.Context, summary Summary) error {
	payload := runPayload{
		ExperimentName: t.ExperimentName,
		Database:       summary.Database,
		TotalRules:     summary.TotalRules,
		ExecutionTime:  summary.ExecutionTimeSeconds,
		Status:         summary.Status,
		NbOccurrence:   summary.NbOccurrence,
		Confidence:     summary.ConfidenceThreshold,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding run summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.TrackingURI+"/runs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building tracking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting run summary: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tracking server returned status %d", resp.StatusCode)
	}
	return nil
}

// New selects NoopTracker or HTTPTracker based on the mlflow config keys
// spec.md §6 names.
func New(use bool, trackingURI, experimentName string) Tracker {
	if !use || trackingURI == "" {
		return NoopTracker{}
	}
	return NewHTTPTracker(trackingURI, experimentName)
}
