// Package realtime answers live-data questions from DuckDuckGo's Instant
// Answer API. Questions that do not look time-sensitive are skipped so the
// router can fall through to the generation path.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// baseURL is a var so tests can point the client at a local server.
var baseURL = "https://api.duckduckgo.com/"

// liveHints gate which queries hit the network at all.
var liveHints = []string{
	"weather", "temperature", "news", "price", "stock",
	"score", "today", "current", "latest", "right now",
}

type Client struct {
	http *http.Client
}

func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{http: httpClient}
}

// Search returns an instant answer for live-data questions, or empty when
// the query is not time-sensitive or nothing authoritative came back.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	if !needsLiveData(query) {
		return "", nil
	}

	u := baseURL + "?format=json&no_html=1&q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("build instant answer request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("instant answer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("instant answer: status %d", resp.StatusCode)
	}

	var out struct {
		Answer       string `json:"Answer"`
		AbstractText string `json:"AbstractText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode instant answer: %w", err)
	}

	if out.Answer != "" {
		return out.Answer, nil
	}
	return out.AbstractText, nil
}

func needsLiveData(query string) bool {
	lower := strings.ToLower(query)
	for _, hint := range liveHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
