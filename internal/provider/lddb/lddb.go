// Package lddb implements the catalogue-number lookup adapter against the
// LDDB laserdisc database. LDDB serves HTML, so the adapter matches on stable
// substrings and link patterns only and never trusts the page structure.
package lddb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	enricherrors "github.com/yourflix/enrich/internal/errors"
	"github.com/yourflix/enrich/internal/provider"
)

const (
	providerName   = "lddb"
	defaultBaseURL = "https://www.lddb.com"
	defaultTimeout = 10 * time.Second
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Provider looks up catalogue numbers on LDDB search pages.
type Provider struct {
	baseURL    string
	httpClient HTTPDoer
}

// NewProvider creates an LDDB provider with the given options.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithBaseURL sets a custom base URL for LDDB.
func WithBaseURL(base string) Option {
	return func(p *Provider) {
		if base != "" {
			p.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			if hc, ok := p.httpClient.(*http.Client); ok {
				hc.Timeout = d
			}
		}
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return providerName }

// Supports requires a catalogue number.
func (p *Provider) Supports(q provider.Query) bool {
	return q.CatalogueNumber != ""
}

// Resolve fetches the LDDB search page for the catalogue number and returns
// one candidate per linked laserdisc detail page whose surrounding text
// contains the number. Zero matches is a no-match, not a failure. When a
// match is found, the first detail page is scraped for descriptive fields;
// a detail failure degrades to the link-level candidate.
func (p *Provider) Resolve(ctx context.Context, q provider.Query) ([]provider.Candidate, error) {
	if q.CatalogueNumber == "" {
		return nil, nil
	}

	searchURL := fmt.Sprintf("%s/search?query=%s", p.baseURL, url.QueryEscape(q.CatalogueNumber))
	body, err := p.fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	candidates, err := parseSearch(body, q.CatalogueNumber, searchURL)
	if err != nil {
		return nil, provider.NewError(providerName, provider.KindParse, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	p.fillFromDetailPage(ctx, &candidates[0])

	return candidates, nil
}

func (p *Provider) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, provider.NewError(providerName, provider.KindTransport, err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, provider.NewError(providerName, provider.KindTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, provider.NewError(providerName, provider.KindRateLimited,
			enricherrors.NewRateLimitError("lddb: request throttled (429)"))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, provider.NewError(providerName, provider.KindTransport,
			fmt.Errorf("lddb: unexpected status %d for %s", resp.StatusCode, pageURL))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, provider.NewError(providerName, provider.KindTransport, err)
	}
	return body, nil
}
