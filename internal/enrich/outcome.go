// Package enrich drives the resolution pipeline: the orchestrator resolves
// one entry against the provider chain, the runner batches entries over a
// worker pool and aggregates a run report.
package enrich

import (
	"log/slog"
	"time"
)

// Status classifies the result of resolving one entry.
type Status string

const (
	// StatusMatched means a candidate was selected. Applied may still be
	// empty when every target field already had a value by merge time.
	StatusMatched Status = "matched"
	// StatusNoMatch means every attempted provider returned no candidates.
	StatusNoMatch Status = "no-match"
	// StatusFailed means every attempted provider errored, or persistence
	// failed after a match.
	StatusFailed Status = "failed"
)

// Outcome is the per-entry result of one resolution. Only the applied fields
// are persisted; the outcome itself lives for the duration of the run.
type Outcome struct {
	EntryID  int64
	Status   Status
	Provider string
	Applied  []string
	Err      error

	// patch holds the pending field writes for a matched outcome. Consumed
	// by the runner, never serialized.
	patch map[string]any
}

// Fields returns a copy of the pending field writes for a matched outcome.
// Used by operator tooling to display what a resolution found.
func (o Outcome) Fields() map[string]any {
	if len(o.patch) == 0 {
		return nil
	}
	fields := make(map[string]any, len(o.patch))
	for k, v := range o.patch {
		fields[k] = v
	}
	return fields
}

// maxReportedFailures bounds the failure list operators see in the report.
const maxReportedFailures = 10

// Failure is one reported per-entry failure reason.
type Failure struct {
	EntryID int64  `yaml:"entry_id"`
	Reason  string `yaml:"reason"`
}

// RunReport aggregates the outcomes of one batch invocation.
type RunReport struct {
	Total    int       `yaml:"total"`
	Matched  int       `yaml:"matched"`
	NoMatch  int       `yaml:"no_match"`
	Failed   int       `yaml:"failed"`
	Elapsed  string    `yaml:"elapsed"`
	Failures []Failure `yaml:"failures,omitempty"`
}

func (r *RunReport) record(o Outcome) {
	r.Total++
	switch o.Status {
	case StatusMatched:
		r.Matched++
	case StatusNoMatch:
		r.NoMatch++
	case StatusFailed:
		r.Failed++
		if len(r.Failures) < maxReportedFailures && o.Err != nil {
			r.Failures = append(r.Failures, Failure{EntryID: o.EntryID, Reason: o.Err.Error()})
		}
	}
}

func (r *RunReport) finish(start time.Time) {
	r.Elapsed = time.Since(start).Round(time.Millisecond).String()
}

// Log writes the report summary to the structured log.
func (r *RunReport) Log() {
	slog.Info("Enrichment run complete",
		"total", r.Total,
		"matched", r.Matched,
		"no_match", r.NoMatch,
		"failed", r.Failed,
		"elapsed", r.Elapsed,
	)
	for _, f := range r.Failures {
		slog.Warn("Entry failed", "entry_id", f.EntryID, "reason", f.Reason)
	}
}
