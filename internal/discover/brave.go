package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TobiSchelling/leadcrawler/internal/neterr"
)

// Hit is one organic search result.
type Hit struct {
	URL         string
	Title       string
	Description string
}

// Searcher runs one web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Hit, error)
}

// BraveSearcher queries the Brave web search API.
type BraveSearcher struct {
	endpoint string
	apiKey   string
	count    int
	country  string
	client   *http.Client
	logger   *zap.Logger
}

// NewBraveSearcher creates a client for the Brave web search endpoint.
func NewBraveSearcher(endpoint, apiKey, country string, count int, timeout time.Duration, logger *zap.Logger) *BraveSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	return &BraveSearcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		count:    count,
		country:  country,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Search returns the web results for query.
func (s *BraveSearcher) Search(ctx context.Context, query string) ([]Hit, error) {
	params := url.Values{
		"q":       {query},
		"count":   {fmt.Sprintf("%d", s.count)},
		"country": {s.country},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, neterr.Wrap("search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, neterr.Wrap("search", &neterr.StatusError{Code: resp.StatusCode})
	}

	var result struct {
		Web struct {
			Results []struct {
				URL         string `json:"url"`
				Title       string `json:"title"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	var out []Hit
	for _, r := range result.Web.Results {
		if r.URL == "" {
			continue
		}
		out = append(out, Hit{
			URL:         r.URL,
			Title:       strings.TrimSpace(r.Title),
			Description: strings.TrimSpace(r.Description),
		})
	}

	s.logger.Debug("search complete", zap.String("query", query), zap.Int("results", len(out)))
	return out, nil
}
