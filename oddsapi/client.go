// Package oddsapi is a small client for The Odds API v4.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Event is one upcoming fixture with bookmaker prices.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker is one book's markets for an event. Markets are kept as the
// provider sent them.
type Bookmaker struct {
	Key        string          `json:"key"`
	Title      string          `json:"title"`
	LastUpdate *time.Time      `json:"last_update,omitempty"`
	Markets    json.RawMessage `json:"markets"`
}

// Client fetches odds. It does not retry.
type Client struct {
	baseURL    string
	apiKey     string
	regions    string
	markets    string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMarkets sets the regions and markets query parameters.
func WithMarkets(regions, markets string) Option {
	return func(c *Client) {
		if regions != "" {
			c.regions = regions
		}
		if markets != "" {
			c.markets = markets
		}
	}
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. https://api.the-odds-api.com/v4). Without WithHTTPClient requests
// time out after 30 seconds.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		regions:    "us",
		markets:    "h2h,spreads,totals",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Odds returns current American-format odds for one sport key, or for every
// in-season sport when sportKey is "upcoming".
func (c *Client) Odds(ctx context.Context, sportKey string) ([]Event, error) {
	q := url.Values{}
	q.Set("apiKey", c.apiKey)
	q.Set("regions", c.regions)
	q.Set("markets", c.markets)
	q.Set("oddsFormat", "american")
	u := fmt.Sprintf("%s/sports/%s/odds/?%s", c.baseURL, url.PathEscape(sportKey), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch odds for %s: %w", sportKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch odds for %s: %s: %s", sportKey, resp.Status, body)
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decoding odds for %s: %w", sportKey, err)
	}
	return events, nil
}
