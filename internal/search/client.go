package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
	"github.com/macchain/backend/internal/telemetry"
)

// IndexDiscussions is the community discussion index
const IndexDiscussions = "macchain-discussions"

// Client wraps the Elasticsearch client with MacChain-specific functionality
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to Elasticsearch at url and verifies the connection
func NewClient(url string) (*Client, error) {
	if url == "" {
		url = "http://localhost:9200"
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Transport: telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{ServiceName: "elasticsearch"}).Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info failed: %s", res.Status())
	}

	return &Client{es: es}, nil
}

// InitializeIndices creates the discussion index with its mapping
func (c *Client) InitializeIndices(ctx context.Context) error {
	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"index": map[string]interface{}{
				"custom": map[string]interface{}{
					"version": IndexVersion,
				},
			},
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id":                map[string]interface{}{"type": "keyword"},
				"user_id":           map[string]interface{}{"type": "keyword"},
				"username":          map[string]interface{}{"type": "keyword"},
				"category_id":       map[string]interface{}{"type": "keyword"},
				"title":             map[string]interface{}{"type": "text", "analyzer": "standard"},
				"content":           map[string]interface{}{"type": "text", "analyzer": "standard"},
				"passage_reference": map[string]interface{}{"type": "text", "analyzer": "standard"},
				"like_count":        map[string]interface{}{"type": "integer"},
				"comment_count":     map[string]interface{}{"type": "integer"},
				"created_at":        map[string]interface{}{"type": "date"},
			},
		},
	}
	if err := c.createIndex(ctx, IndexDiscussions, mapping); err != nil {
		return fmt.Errorf("failed to create discussions index: %w", err)
	}
	return nil
}

// createIndex creates an Elasticsearch index with the given mapping
func (c *Client) createIndex(ctx context.Context, indexName string, mapping map[string]interface{}) error {
	res, err := c.es.Indices.Exists([]string{indexName}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(indexName,
		c.es.Indices.Create.WithBody(bytes.NewReader(mappingJSON)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()
	return responseError("creating index", res)
}

// IndexDiscussion upserts a discussion document
func (c *Client) IndexDiscussion(ctx context.Context, doc DiscussionDoc) error {
	ctx, span := telemetry.TraceElasticsearchCall(ctx, "index", IndexDiscussions, doc.ID)
	defer span.End()

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal discussion document: %w", err)
	}

	res, err := c.es.Index(IndexDiscussions, bytes.NewReader(body),
		c.es.Index.WithDocumentID(doc.ID),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return fmt.Errorf("failed to index discussion: %w", err)
	}
	defer res.Body.Close()
	return responseError("indexing discussion", res)
}

// DeleteDiscussion removes a discussion document; a missing document is not an error
func (c *Client) DeleteDiscussion(ctx context.Context, id string) error {
	ctx, span := telemetry.TraceElasticsearchCall(ctx, "delete", IndexDiscussions, id)
	defer span.End()

	res, err := c.es.Delete(IndexDiscussions, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return fmt.Errorf("failed to delete discussion: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	return responseError("deleting discussion", res)
}

// Hit is one ranked search result
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Result is a page of ranked discussion ids
type Result struct {
	Hits  []Hit `json:"hits"`
	Total int   `json:"total"`
}

// SearchDiscussions runs a multi_match over title, content and passage reference
func (c *Client) SearchDiscussions(ctx context.Context, query string, limit, offset int) (*Result, error) {
	ctx, span := telemetry.TraceElasticsearchCall(ctx, "search", IndexDiscussions, query)
	defer span.End()

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"title^3", "content", "passage_reference"},
				"fuzziness": "AUTO",
			},
		},
		"sort": []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"created_at": map[string]interface{}{"order": "desc"}},
		},
		"from":    offset,
		"size":    limit,
		"_source": false,
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(IndexDiscussions),
		c.es.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()
	if err := responseError("searching discussions", res); err != nil {
		telemetry.RecordServiceError(span, err)
		return nil, err
	}

	var searchResp struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID    string  `json:"_id"`
				Score float64 `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	out := &Result{Hits: make([]Hit, 0, len(searchResp.Hits.Hits)), Total: searchResp.Hits.Total.Value}
	for _, h := range searchResp.Hits.Hits {
		out.Hits = append(out.Hits, Hit{ID: h.ID, Score: h.Score})
	}
	telemetry.RecordServiceSuccess(span, len(out.Hits))
	return out, nil
}

func responseError(action string, res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	var errResp map[string]interface{}
	body, _ := io.ReadAll(res.Body)
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("error %s: [%s]", action, res.Status())
	}
	return fmt.Errorf("error %s: [%s] %v", action, res.Status(), errResp["error"])
}
