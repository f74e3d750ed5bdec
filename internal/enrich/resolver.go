package enrich

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yourflix/enrich/internal/catalog"
	"github.com/yourflix/enrich/internal/provider"
	"github.com/yourflix/enrich/internal/ratelimit"
)

// Resolver walks the provider chain for one entry and merges the best
// candidate into the fields the entry is still missing.
type Resolver struct {
	chain    []provider.Provider
	limiters *ratelimit.Registry
	fields   []string

	// throttled tracks providers that signaled throttling this run. Further
	// requests to them are skipped until the next run.
	throttled sync.Map
}

// NewResolver creates a resolver over the given provider chain, highest-trust
// first. The limiter registry paces requests per provider.
func NewResolver(chain []provider.Provider, limiters *ratelimit.Registry) *Resolver {
	return &Resolver{
		chain:    chain,
		limiters: limiters,
		fields:   catalog.EnrichableFields,
	}
}

// SetTargetFields restricts which fields a merge may fill. Defaults to every
// enrichable field.
func (r *Resolver) SetTargetFields(fields []string) {
	if len(fields) > 0 {
		r.fields = fields
	}
}

// ResolveOne resolves a single entry against the provider chain. Provider
// errors never propagate: they become part of the outcome. The chain stops
// early once an exact catalogue match is in hand.
func (r *Resolver) ResolveOne(ctx context.Context, entry *catalog.Entry) Outcome {
	query := provider.Query{
		CatalogueNumber: entry.CatalogueNumber,
		Title:           entry.Title,
		Year:            entry.Year,
	}

	var candidates []provider.Candidate
	var lastErr error
	succeeded := 0

	for _, p := range r.chain {
		if !p.Supports(query) {
			continue
		}
		if _, skip := r.throttled.Load(p.Name()); skip {
			continue
		}

		limiter := r.limiters.Get(p.Name())
		if err := limiter.Acquire(ctx); err != nil {
			lastErr = err
			break
		}
		found, err := p.Resolve(ctx, query)
		limiter.Release()

		if err != nil {
			slog.Warn("Provider failed, trying next in chain",
				"provider", p.Name(),
				"entry_id", entry.ID,
				"kind", provider.KindOf(err).String(),
				"error", err,
			)
			lastErr = err
			r.markIfThrottled(p.Name(), err)
			continue
		}

		succeeded++
		candidates = append(candidates, found...)

		if bestConfidence(found) >= provider.MatchCatalogueExact {
			slog.Debug("Exact catalogue match, skipping lower-priority providers",
				"provider", p.Name(), "entry_id", entry.ID)
			break
		}
	}

	if len(candidates) == 0 {
		if succeeded == 0 && lastErr != nil {
			return Outcome{EntryID: entry.ID, Status: StatusFailed, Err: lastErr}
		}
		return Outcome{EntryID: entry.ID, Status: StatusNoMatch}
	}

	best := selectBest(candidates)
	patch, applied := r.buildPatch(entry, best)

	return Outcome{
		EntryID:  entry.ID,
		Status:   StatusMatched,
		Provider: best.Source,
		Applied:  applied,
		patch:    patch,
	}
}

// markIfThrottled remembers a provider that signaled throttling so the rest
// of the run skips it. Logged once per provider per run.
func (r *Resolver) markIfThrottled(name string, err error) {
	if provider.KindOf(err) != provider.KindRateLimited {
		return
	}
	if _, loaded := r.throttled.LoadOrStore(name, struct{}{}); !loaded {
		slog.Warn("Provider rate limit reached; skipping it for the rest of this run",
			"provider", name)
	}
}

// selectBest picks the highest-confidence candidate. Candidates arrive in
// chain-priority order, so the strict comparison breaks ties in favor of the
// earlier provider.
func selectBest(candidates []provider.Candidate) provider.Candidate {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

func bestConfidence(candidates []provider.Candidate) provider.Confidence {
	top := provider.MatchNone
	for _, c := range candidates {
		if c.Confidence > top {
			top = c.Confidence
		}
	}
	return top
}

// buildPatch maps the candidate's non-empty fields onto the target fields the
// entry is still missing. Fields the entry already has never enter the patch.
func (r *Resolver) buildPatch(entry *catalog.Entry, c provider.Candidate) (map[string]any, []string) {
	values := map[string]any{
		catalog.FieldPosterURL:       c.PosterURL,
		catalog.FieldBackdropURL:     c.BackdropURL,
		catalog.FieldDescription:     c.Description,
		catalog.FieldDirector:        c.Director,
		catalog.FieldActors:          c.Actors,
		catalog.FieldAvailableImages: c.Images,
		catalog.FieldInfoPageLink:    c.InfoPageLink,
		catalog.FieldExternalID:      c.ExternalID,
	}

	patch := make(map[string]any)
	var applied []string
	for _, field := range r.fields {
		if entry.HasField(field) {
			continue
		}
		switch v := values[field].(type) {
		case string:
			if v == "" {
				continue
			}
			patch[field] = v
		case []string:
			if len(v) == 0 {
				continue
			}
			patch[field] = v
		default:
			continue
		}
		applied = append(applied, field)
	}
	return patch, applied
}
