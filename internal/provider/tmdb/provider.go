package tmdb

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	enricherrors "github.com/yourflix/enrich/internal/errors"
	"github.com/yourflix/enrich/internal/provider"
)

const providerName = "tmdb"

// topCastLimit bounds how many cast names are carried into a candidate.
const topCastLimit = 10

// Provider is the title-search adapter. It trusts TMDB's own ranking and
// normalizes the first result into a candidate.
type Provider struct {
	client *Client
}

// NewProvider wraps a Client as a provider-chain member.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return providerName }

// Supports requires a title; year is optional and only narrows the search.
func (p *Provider) Supports(q provider.Query) bool {
	return q.Title != ""
}

// Resolve searches TMDB for the title and normalizes the first-ranked result.
// A missing poster on the top result still yields a candidate; the remaining
// fields are useful on their own.
func (p *Provider) Resolve(ctx context.Context, q provider.Query) ([]provider.Candidate, error) {
	if q.Title == "" {
		return nil, nil
	}

	results, err := p.client.SearchMovies(ctx, q.Title, q.Year)
	if err != nil {
		return nil, classify(err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	first := results[0]

	confidence := provider.MatchTitleFuzzy
	if q.Year > 0 && first.YearInt() == q.Year {
		confidence = provider.MatchTitleYear
	}

	candidate := provider.Candidate{
		Source:      providerName,
		Confidence:  confidence,
		PosterURL:   p.client.ImageURL(first.PosterPath),
		BackdropURL: p.client.ImageURL(first.BackdropPath),
		Description: first.Overview,
		ExternalID:  strconv.Itoa(first.ID),
	}

	// Credits live on the details endpoint. A detail failure degrades to the
	// search-level candidate instead of failing the whole resolve.
	details, err := p.client.MovieDetails(ctx, first.ID)
	if err != nil {
		slog.Debug("TMDB details fetch failed, keeping search result only",
			"tmdb_id", first.ID, "title", q.Title, "error", err)
		return []provider.Candidate{candidate}, nil
	}

	if candidate.Description == "" {
		candidate.Description = details.Overview
	}
	if candidate.PosterURL == "" {
		candidate.PosterURL = p.client.ImageURL(details.PosterPath)
	}
	if candidate.BackdropURL == "" {
		candidate.BackdropURL = p.client.ImageURL(details.BackdropPath)
	}
	candidate.Director = details.Director()
	candidate.Actors = details.TopCast(topCastLimit)

	return []provider.Candidate{candidate}, nil
}

func classify(err error) error {
	switch {
	case enricherrors.IsRateLimitError(err):
		return provider.NewError(providerName, provider.KindRateLimited, err)
	case errors.Is(err, errDecode):
		return provider.NewError(providerName, provider.KindParse, err)
	default:
		return provider.NewError(providerName, provider.KindTransport, err)
	}
}
