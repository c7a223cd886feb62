package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// searchTimeout bounds a single backend query.
const searchTimeout = 15 * time.Second

// cloudPlatformScope is the OAuth scope for the Discovery Engine API.
const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// VertexConfig identifies the data store and caps each query.
type VertexConfig struct {
	ProjectID       string
	Location        string // "global", "us" or "eu"
	DataStoreID     string
	MaxDocuments    int // page size per query
	MaxSegmentCount int // extractive segments per document
	MaxAnswerCount  int // extractive answers per document
}

// VertexClient queries a Vertex AI Search serving config over REST.
// It implements Searcher. Auth uses Application Default Credentials.
//
// One client is shared by every conversation; concurrent Search calls
// are safe.
type VertexClient struct {
	cfg        VertexConfig
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger

	mu          sync.Mutex
	tokenSource oauth2.TokenSource // nil = ADC, resolved lazily under mu
}

// VertexOption customizes a VertexClient.
type VertexOption func(*VertexClient)

// WithEndpoint overrides the API endpoint. Tests point this at a local
// httptest server.
func WithEndpoint(url string) VertexOption {
	return func(c *VertexClient) { c.endpoint = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) VertexOption {
	return func(c *VertexClient) { c.httpClient = hc }
}

// WithTokenSource overrides the OAuth token source.
func WithTokenSource(ts oauth2.TokenSource) VertexOption {
	return func(c *VertexClient) { c.tokenSource = ts }
}

// NewVertexClient creates a search client for the configured data store.
func NewVertexClient(cfg VertexConfig, logger *slog.Logger, opts ...VertexOption) *VertexClient {
	if logger == nil {
		logger = slog.Default()
	}

	host := "discoveryengine.googleapis.com"
	if cfg.Location != "" && cfg.Location != "global" {
		host = cfg.Location + "-discoveryengine.googleapis.com"
	}

	c := &VertexClient{
		cfg: cfg,
		endpoint: fmt.Sprintf(
			"https://%s/v1/projects/%s/locations/%s/collections/default_collection/dataStores/%s/servingConfigs/default_search:search",
			host, cfg.ProjectID, cfg.Location, cfg.DataStoreID),
		httpClient: &http.Client{Timeout: searchTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchRequest is the Discovery Engine search request body.
type searchRequest struct {
	Query             string             `json:"query"`
	PageSize          int                `json:"pageSize"`
	ContentSearchSpec *contentSearchSpec `json:"contentSearchSpec,omitempty"`
}

type contentSearchSpec struct {
	ExtractiveContentSpec *extractiveContentSpec `json:"extractiveContentSpec,omitempty"`
}

type extractiveContentSpec struct {
	MaxExtractiveSegmentCount int `json:"maxExtractiveSegmentCount,omitempty"`
	MaxExtractiveAnswerCount  int `json:"maxExtractiveAnswerCount,omitempty"`
}

// searchResponse is the subset of the Discovery Engine response we consume.
type searchResponse struct {
	Results []struct {
		Document struct {
			ID                string         `json:"id"`
			DerivedStructData map[string]any `json:"derivedStructData"`
		} `json:"document"`
	} `json:"results"`
}

// Search queries the data store and returns extractive snippets in rank
// order, bounded by the configured caps. Backend failures and timeouts are
// wrapped in ErrUnavailable.
func (c *VertexClient) Search(ctx context.Context, query string) ([]Snippet, error) {
	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	body, err := json.Marshal(searchRequest{
		Query:    query,
		PageSize: c.cfg.MaxDocuments,
		ContentSearchSpec: &contentSearchSpec{
			ExtractiveContentSpec: &extractiveContentSpec{
				MaxExtractiveSegmentCount: c.cfg.MaxSegmentCount,
				MaxExtractiveAnswerCount:  c.cfg.MaxAnswerCount,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring credentials: %w", ErrUnavailable, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: search backend returned %d: %s",
			ErrUnavailable, resp.StatusCode, detail)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding search response: %w", ErrUnavailable, err)
	}

	snippets := c.snippetsFromResponse(&parsed)
	c.logger.Debug("search completed",
		"query_length", len(query),
		"documents", len(parsed.Results),
		"snippets", len(snippets))
	return snippets, nil
}

// accessToken resolves a bearer token, lazily falling back to Application
// Default Credentials.
func (c *VertexClient) accessToken(ctx context.Context) (string, error) {
	ts, err := c.resolveTokenSource(ctx)
	if err != nil {
		return "", err
	}
	token, err := ts.Token()
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// resolveTokenSource returns the configured token source, resolving ADC
// on first use. The client is shared across conversations, so the lazy
// initialization is guarded.
func (c *VertexClient) resolveTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokenSource == nil {
		ts, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, err
		}
		c.tokenSource = ts
	}
	return c.tokenSource, nil
}

// snippetsFromResponse flattens extractive answers and segments into
// snippets, preserving document rank order. Answers come before segments
// within a document, matching the serving config's emphasis.
func (c *VertexClient) snippetsFromResponse(resp *searchResponse) []Snippet {
	var snippets []Snippet
	for _, result := range resp.Results {
		data := result.Document.DerivedStructData

		meta := map[string]any{"document_id": result.Document.ID}
		if title, ok := data["title"].(string); ok && title != "" {
			meta["title"] = title
		}
		if link, ok := data["link"].(string); ok && link != "" {
			meta["link"] = link
		}

		for _, text := range extractiveContents(data, "extractive_answers") {
			snippets = append(snippets, Snippet{Text: text, Metadata: meta})
		}
		for _, text := range extractiveContents(data, "extractive_segments") {
			snippets = append(snippets, Snippet{Text: text, Metadata: meta})
		}
	}
	return snippets
}

// extractiveContents pulls the "content" strings out of one extractive
// field of derivedStructData.
func extractiveContents(data map[string]any, field string) []string {
	items, ok := data[field].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if content, ok := entry["content"].(string); ok && content != "" {
			out = append(out, content)
		}
	}
	return out
}
