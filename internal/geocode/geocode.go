// Package geocode resolves free-text addresses into candidates with
// coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	appLog "agendacal/internal/log"
)

const (
	DefaultTimeout = 5 * time.Second
	DefaultLimit   = 5

	maxResponseBytes = 1 << 20
)

// Query is one address lookup.
type Query struct {
	Text    string
	Country string
	Limit   int
}

// Candidate is one address match.
type Candidate struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// Searcher looks up address candidates.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Candidate, error)
}

// Client queries a Nominatim-compatible /search endpoint.
type Client struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

// NewClient returns a Client for baseURL (e.g.
// "https://nominatim.openstreetmap.org"). timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "agendacal/0.1",
	}
}

// nominatimResult mirrors the fields we read from the JSON response; lat
// and lon arrive as strings.
type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search implements Searcher.
func (c *Client) Search(ctx context.Context, q Query) ([]Candidate, error) {
	if strings.TrimSpace(q.Text) == "" {
		return []Candidate{}, nil
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(q.Limit))
	if q.Country != "" {
		params.Set("countrycodes", q.Country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("geocode: read body: %w", err)
	}

	var raw []nominatimResult
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("geocode: decode: %w", err)
	}

	out := make([]Candidate, 0, len(raw))
	for _, r := range raw {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lon, errLon := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLon != nil {
			appLog.Debug("geocode: skipping candidate without coordinates", "display_name", r.DisplayName)
			continue
		}
		out = append(out, Candidate{DisplayName: r.DisplayName, Lat: lat, Lon: lon})
	}
	return out, nil
}

// Static serves a fixed candidate list, matching on a case-insensitive
// substring of the display name. Useful offline and in tests.
type Static struct {
	Candidates []Candidate
	Err        error
}

func (s Static) Search(ctx context.Context, q Query) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	needle := strings.ToLower(strings.TrimSpace(q.Text))
	out := make([]Candidate, 0)
	for _, c := range s.Candidates {
		if needle == "" || strings.Contains(strings.ToLower(c.DisplayName), needle) {
			out = append(out, c)
			if q.Limit > 0 && len(out) == q.Limit {
				break
			}
		}
	}
	return out, nil
}

// SafeSearch runs s and folds every failure into an empty result. It is the
// only form the wizard and the HTTP layer use.
func SafeSearch(ctx context.Context, s Searcher, q Query) []Candidate {
	if s == nil {
		return []Candidate{}
	}
	res, err := s.Search(ctx, q)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			appLog.Error("address lookup failed", err, "query", q.Text, "country", q.Country)
		}
		return []Candidate{}
	}
	if res == nil {
		return []Candidate{}
	}
	return res
}
