package tmdb

import (
	"context"
	"fmt"
	"net/url"
)

// MovieDetails carries the subset of the TMDB movie-details response the
// pipeline uses, with credits appended.
type MovieDetails struct {
	ID           int    `json:"id"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	BackdropPath string `json:"backdrop_path"`
	Credits      struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
		Crew []struct {
			Name string `json:"name"`
			Job  string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
}

// Director returns the first crew member credited as Director, or "".
func (d *MovieDetails) Director() string {
	for _, c := range d.Credits.Crew {
		if c.Job == "Director" {
			return c.Name
		}
	}
	return ""
}

// TopCast returns up to n cast member names in billing order.
func (d *MovieDetails) TopCast(n int) []string {
	if n <= 0 || len(d.Credits.Cast) == 0 {
		return nil
	}
	if n > len(d.Credits.Cast) {
		n = len(d.Credits.Cast)
	}
	names := make([]string, 0, n)
	for _, c := range d.Credits.Cast[:n] {
		names = append(names, c.Name)
	}
	return names
}

// MovieDetails fetches full movie details with credits for a TMDB id.
func (c *Client) MovieDetails(ctx context.Context, id int) (*MovieDetails, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("append_to_response", "credits")

	endpoint := fmt.Sprintf("%s/movie/%d?%s", c.baseURL, id, params.Encode())

	var details MovieDetails
	if err := c.getJSON(ctx, endpoint, &details); err != nil {
		return nil, err
	}
	return &details, nil
}
