// Package provider defines the contract external metadata sources implement
// and the normalized candidate shape they return. Raw provider JSON/HTML never
// leaks past this boundary.
package provider

import "context"

// Query is the transient lookup key built from a catalog entry.
type Query struct {
	CatalogueNumber string
	Title           string
	Year            int
}

// Confidence ranks how certain a candidate match is. The ordering is total:
// an exact catalogue-number match always beats a title+year match, which
// beats a fuzzy title-only match.
type Confidence int

const (
	MatchNone Confidence = iota
	MatchTitleFuzzy
	MatchTitleYear
	MatchCatalogueExact
)

func (c Confidence) String() string {
	switch c {
	case MatchCatalogueExact:
		return "catalogue-exact"
	case MatchTitleYear:
		return "title-year"
	case MatchTitleFuzzy:
		return "title-fuzzy"
	default:
		return "none"
	}
}

// Candidate is a provider-normalized enrichment result. Zero values mean the
// provider had nothing for that field. Candidates have no lifecycle of their
// own; they are merged or discarded by the orchestrator.
type Candidate struct {
	Source       string
	Confidence   Confidence
	PosterURL    string
	BackdropURL  string
	Description  string
	Director     string
	Actors       []string
	Images       []string
	ExternalID   string
	InfoPageLink string
}

// Provider fetches candidate metadata for a query.
//
// Resolve returns an empty slice (not an error) when the provider found
// nothing. Implementations must not cache, retry, or rate-limit internally;
// the orchestrator owns request pacing via the rate limiter.
type Provider interface {
	// Name returns the short provider identifier used in logs and reports.
	Name() string

	// Supports reports whether the query carries the inputs this provider
	// needs (e.g. a catalogue number for a catalogue-lookup provider).
	Supports(q Query) bool

	// Resolve translates the query into a provider request and parses the
	// response into normalized candidates. Failures are *Error values.
	Resolve(ctx context.Context, q Query) ([]Candidate, error)
}
