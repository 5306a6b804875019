package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"concierge-backend/internal/sigv4"
)

// service is the signing scope for the search index endpoint.
const service = "es"

// Client issues signed JSON requests to the search index.
// Retry policy lives in the pipeline worker, never here.
type Client struct {
	endpoint   string
	index      string
	region     string
	creds      sigv4.Credentials
	httpClient *http.Client
}

// UpstreamError is a non-2xx response from the search index. The pipeline
// treats it as transient.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("search: upstream status %d: %s", e.Status, e.Body)
}

// NewClient creates a search index client. endpoint must not end in a slash.
func NewClient(endpoint, index, region string, creds sigv4.Credentials) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		index:    index,
		region:   region,
		creds:    creds,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// execute builds a canonical signed request, performs the call, and returns
// the raw response body. Only 200 and 201 are accepted.
func (c *Client) execute(ctx context.Context, method, path string, body any, params url.Values) ([]byte, error) {
	fullURL := c.endpoint + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("search: encode body: %w", err)
		}
		payload = data
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("search: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	sigv4.Sign(req, payload, c.creds, service, c.region, time.Now())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: transport: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string `json:"_id"`
			Source struct {
				RestaurantID string `json:"restaurant_id"`
				Cuisine      string `json:"cuisine"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Sample returns up to count unique restaurant ids for a cuisine, in the
// randomized order the index scored them. Zero matches is not an error;
// transport and upstream failures are.
func (c *Client) Sample(ctx context.Context, cuisine string, count int) ([]string, error) {
	query := map[string]any{
		"size": count,
		"query": map[string]any{
			"function_score": map[string]any{
				"query": map[string]any{
					"term": map[string]any{
						"cuisine": strings.ToLower(strings.TrimSpace(cuisine)),
					},
				},
				// random_score gives each matching document a fresh random
				// rank per query, which is the sampling mechanism.
				"random_score": map[string]any{},
			},
		},
	}

	raw, err := c.execute(ctx, http.MethodPost, "/"+c.index+"/_search", query, nil)
	if err != nil {
		return nil, fmt.Errorf("search: sample cuisine=%s: %w", cuisine, err)
	}

	var res searchResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("search: decode response: %w", err)
	}

	ids := make([]string, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		id := h.Source.RestaurantID
		if id == "" {
			id = h.ID
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return dedupe(ids, count), nil
}

// dedupe keeps the first occurrence of each id, preserving order, and caps
// the result at max entries.
func dedupe(ids []string, max int) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if len(out) == max {
			break
		}
	}
	return out
}
