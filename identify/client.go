package identify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Match is a successful identification: the canonical title, artist and
// cover art for a fuzzy text query.
type Match struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"coverUrl"`
}

// Client talks to the song identification API (iTunes Search shape).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new identification client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Short timeout: a hung lookup must not stall an enrichment
			// batch longer than necessary.
			Timeout: 8 * time.Second,
		},
	}
}

// SetTimeout overrides the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// Identify resolves a fuzzy text query to song metadata. Returns (nil, nil)
// when the service has no match; an error only on transport/parse failure.
func (c *Client) Identify(ctx context.Context, query string) (*Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("term", query)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", "1")

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identify API returned status: %d", resp.StatusCode)
	}

	var result struct {
		ResultCount int `json:"resultCount"`
		Results     []struct {
			TrackName     string `json:"trackName"`
			ArtistName    string `json:"artistName"`
			ArtworkURL100 string `json:"artworkUrl100"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse identify response: %w", err)
	}

	if result.ResultCount == 0 || len(result.Results) == 0 {
		return nil, nil
	}

	hit := result.Results[0]
	return &Match{
		Title:  hit.TrackName,
		Artist: hit.ArtistName,
		// The API hands back 100x100 thumbnails; the same path serves
		// larger renditions.
		CoverURL: strings.Replace(hit.ArtworkURL100, "100x100", "600x600", 1),
	}, nil
}
