package lddb

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/yourflix/enrich/internal/provider"
)

// castLimit bounds how many cast names are taken from a detail page.
const castLimit = 5

// parseSearch scans a search result page for anchors to laserdisc detail
// pages whose surrounding text contains the catalogue number. The substring
// test is deliberately loose: LDDB markup shifts, but catalogue numbers and
// the /laserdisc/ path have stayed stable.
func parseSearch(body []byte, catalogueNumber, pageURL string) ([]provider.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var candidates []provider.Candidate

	doc.Find(`a[href*="/laserdisc/"]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}

		// The row context is the closest table row when there is one, the
		// immediate parent otherwise. The catalogue number is usually printed
		// in a sibling cell, not in the link text itself.
		row := s.Closest("tr")
		if row.Length() == 0 {
			row = s.Parent()
		}
		rowText := s.Text()
		if row.Length() > 0 {
			rowText = row.Text()
		}
		if !containsFold(rowText, catalogueNumber) {
			return
		}

		link := resolveURL(pageURL, href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true

		candidate := provider.Candidate{
			Source:       providerName,
			Confidence:   provider.MatchCatalogueExact,
			InfoPageLink: link,
		}
		row.Find("img").Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok {
				if resolved := resolveURL(pageURL, src); resolved != "" {
					candidate.Images = append(candidate.Images, resolved)
				}
			}
		})

		candidates = append(candidates, candidate)
	})

	return candidates, nil
}

// fillFromDetailPage scrapes the candidate's detail page for descriptive
// fields. Scrape failures only cost detail, never the match itself.
func (p *Provider) fillFromDetailPage(ctx context.Context, candidate *provider.Candidate) {
	body, err := p.fetch(ctx, candidate.InfoPageLink)
	if err != nil {
		slog.Debug("LDDB detail fetch failed, keeping link-level candidate",
			"url", candidate.InfoPageLink, "error", err)
		return
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		slog.Debug("LDDB detail parse failed, keeping link-level candidate",
			"url", candidate.InfoPageLink, "error", err)
		return
	}

	doc.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return
		}
		label := strings.ToLower(strings.TrimSpace(dt.Text()))
		value := strings.TrimSpace(dd.Text())
		if value == "" {
			return
		}
		if strings.Contains(label, "director") && candidate.Director == "" {
			candidate.Director = value
		}
	})

	if len(candidate.Actors) == 0 {
		doc.Find(`a[href*="/person/"]`).Each(func(_ int, s *goquery.Selection) {
			if len(candidate.Actors) >= castLimit {
				return
			}
			if name := strings.TrimSpace(s.Text()); name != "" {
				candidate.Actors = append(candidate.Actors, name)
			}
		})
	}

	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok {
			return true
		}
		lower := strings.ToLower(src)
		if strings.Contains(lower, "cover") || strings.Contains(lower, "poster") {
			if resolved := resolveURL(candidate.InfoPageLink, src); resolved != "" {
				candidate.PosterURL = resolved
				candidate.Images = appendUnique(candidate.Images, resolved)
				return false
			}
		}
		return true
	})

	if candidate.Description == "" {
		doc.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
			class, _ := div.Attr("class")
			if !strings.Contains(strings.ToLower(class), "description") {
				return true
			}
			if text := strings.TrimSpace(div.Text()); text != "" {
				candidate.Description = truncate(text, 500)
				return false
			}
			return true
		})
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func resolveURL(base, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}
	resolved := baseURL.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
