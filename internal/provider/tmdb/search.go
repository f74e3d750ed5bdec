package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// SearchResult represents a single movie search result from TMDB.
type SearchResult struct {
	ID           int
	Title        string
	PosterPath   string
	BackdropPath string
	Overview     string
	ReleaseDate  string
}

// YearInt returns the release year as an int, or 0 when unknown.
func (r SearchResult) YearInt() int {
	if len(r.ReleaseDate) >= 4 {
		if year, err := strconv.Atoi(r.ReleaseDate[:4]); err == nil {
			return year
		}
	}
	return 0
}

// SearchMovies performs a movie search on TMDB. If year > 0, it is passed as
// a hint; results are left in the provider's own ranking order.
func (c *Client) SearchMovies(ctx context.Context, query string, year int) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", query)
	params.Set("include_adult", "false")
	if year > 0 {
		params.Set("year", strconv.Itoa(year))
	}

	endpoint := fmt.Sprintf("%s/search/movie?%s", c.baseURL, params.Encode())

	var response struct {
		Results []struct {
			ID           int    `json:"id"`
			Title        string `json:"title"`
			PosterPath   string `json:"poster_path"`
			BackdropPath string `json:"backdrop_path"`
			Overview     string `json:"overview"`
			ReleaseDate  string `json:"release_date"`
		} `json:"results"`
	}

	if err := c.getJSON(ctx, endpoint, &response); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(response.Results))
	for _, item := range response.Results {
		results = append(results, SearchResult{
			ID:           item.ID,
			Title:        item.Title,
			PosterPath:   item.PosterPath,
			BackdropPath: item.BackdropPath,
			Overview:     item.Overview,
			ReleaseDate:  item.ReleaseDate,
		})
	}

	return results, nil
}
