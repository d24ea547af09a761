package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/sekai-app/bug-analysis-agent/internal/scanner"
)

// OpenSearchConfig configures the OpenSearch-backed searcher.
type OpenSearchConfig struct {
	Addresses   []string `yaml:"addresses"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	Insecure    bool     `yaml:"insecure"`
	Index       string   `yaml:"index"`
	PageSize    int      `yaml:"page_size"`    // identifier search page size
	WindowLimit int      `yaml:"window_limit"` // cap on time-window results
}

// OpenSearchSearcher implements Searcher against an OpenSearch cluster.
// Identifier searches are paginated with search_after until exhausted; window
// searches are a single capped page, since the fallback tier keeps only the
// closest few matches anyway.
type OpenSearchSearcher struct {
	client      *opensearch.Client
	index       string
	pageSize    int
	windowLimit int
}

// NewOpenSearchSearcher connects to the cluster and verifies it responds.
func NewOpenSearchSearcher(cfg OpenSearchConfig) (*OpenSearchSearcher, error) {
	if cfg.Index == "" {
		return nil, fmt.Errorf("opensearch index is required")
	}
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("opensearch addresses are required")
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure, // #nosec G402 - operator opt-in for dev clusters
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()
	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 500
	}
	windowLimit := cfg.WindowLimit
	if windowLimit <= 0 {
		windowLimit = 1000
	}

	return &OpenSearchSearcher{
		client:      client,
		index:       cfg.Index,
		pageSize:    pageSize,
		windowLimit: windowLimit,
	}, nil
}

type osDocument struct {
	Timestamp string `json:"@timestamp"`
	Message   string `json:"message"`
	LogGroup  string `json:"log_group"`
	LogStream string `json:"log_stream"`
	RequestID string `json:"request_id"`
}

// FindByIdentifiers searches for entries mentioning any of the identifiers,
// walking every result page.
func (s *OpenSearchSearcher) FindByIdentifiers(ctx context.Context, ids []string) ([]*Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	should := make([]map[string]interface{}, 0, len(ids)*2)
	for _, id := range ids {
		should = append(should,
			map[string]interface{}{"term": map[string]interface{}{"request_id": id}},
			map[string]interface{}{"match_phrase": map[string]interface{}{"message": id}},
		)
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               should,
				"minimum_should_match": 1,
			},
		},
		"sort": []map[string]interface{}{
			{"@timestamp": map[string]interface{}{"order": "asc"}},
			{"_id": map[string]interface{}{"order": "asc"}},
		},
	}

	var entries []*Entry
	for {
		hits, searchAfter, err := s.search(ctx, query, s.pageSize)
		if err != nil {
			return nil, err
		}
		entries = append(entries, hits...)
		if len(hits) < s.pageSize || searchAfter == nil {
			return entries, nil
		}
		query["search_after"] = searchAfter
	}
}

// FindByWindow searches for failure-shaped entries within radius of center.
// Results are a single page capped at the window limit.
func (s *OpenSearchSearcher) FindByWindow(ctx context.Context, center time.Time, radius time.Duration, patterns []string) ([]*Entry, error) {
	if len(patterns) == 0 {
		patterns = DefaultWindowPatterns
	}

	should := make([]map[string]interface{}, 0, len(patterns))
	for _, p := range patterns {
		should = append(should, map[string]interface{}{
			"match_phrase": map[string]interface{}{"message": p},
		})
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{
					{"range": map[string]interface{}{
						"@timestamp": map[string]interface{}{
							"gte": center.Add(-radius).UTC().Format(time.RFC3339Nano),
							"lte": center.Add(radius).UTC().Format(time.RFC3339Nano),
						},
					}},
				},
				"should":               should,
				"minimum_should_match": 1,
			},
		},
		"sort": []map[string]interface{}{
			{"@timestamp": map[string]interface{}{"order": "asc"}},
			{"_id": map[string]interface{}{"order": "asc"}},
		},
	}

	entries, _, err := s.search(ctx, query, s.windowLimit)
	return entries, err
}

// search runs one query page and returns the entries plus the sort values of
// the last hit, for search_after pagination.
func (s *OpenSearchSearcher) search(ctx context.Context, query map[string]interface{}, size int) ([]*Entry, []interface{}, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
		s.client.Search.WithSize(size),
		s.client.Search.WithTrackTotalHits(false),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, nil, fmt.Errorf("search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source osDocument    `json:"_source"`
				Sort   []interface{} `json:"sort"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, nil, fmt.Errorf("decode response: %w", err)
	}

	entries := make([]*Entry, 0, len(searchResult.Hits.Hits))
	var searchAfter []interface{}
	for _, hit := range searchResult.Hits.Hits {
		entries = append(entries, entryFromDocument(hit.Source))
		searchAfter = hit.Sort
	}
	return entries, searchAfter, nil
}

func entryFromDocument(doc osDocument) *Entry {
	entry := &Entry{
		Message:    doc.Message,
		LogGroup:   doc.LogGroup,
		LogStream:  doc.LogStream,
		Identifier: doc.RequestID,
	}
	if entry.Identifier == "" {
		entry.Identifier = scanner.FirstIdentifier(doc.Message)
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, doc.Timestamp); err == nil {
			entry.Timestamp = t
			break
		}
	}
	return entry
}
