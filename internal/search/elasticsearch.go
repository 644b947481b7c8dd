package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cocinarte/internal/config"
	"cocinarte/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchClient keeps the free-text class index
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

// classDocument is what gets indexed per class session
type classDocument struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ClassDate   string    `json:"class_date"`
	StartTime   string    `json:"start_time"`
	Price       float64   `json:"price"`
	SpotsLeft   int       `json:"spots_left"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
		Transport:     &http.Transport{ResponseHeaderTimeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{client: es, config: cfg}

	if err := client.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{c.config.Index}}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id": map[string]interface{}{"type": "long"},
				"title": map[string]interface{}{
					"type":     "text",
					"analyzer": "english",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256},
					},
				},
				"description": map[string]interface{}{"type": "text", "analyzer": "english"},
				"class_date":  map[string]interface{}{"type": "date", "format": "yyyy-MM-dd"},
				"start_time":  map[string]interface{}{"type": "keyword"},
				"price":       map[string]interface{}{"type": "scaled_float", "scaling_factor": 100},
				"spots_left":  map[string]interface{}{"type": "integer"},
				"updated_at":  map[string]interface{}{"type": "date"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createRes, err := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  bytes.NewReader(body),
	}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// SearchClasses returns ids of matching classes from today on, best match first
func (c *ElasticsearchClient) SearchClasses(ctx context.Context, query string, page, pageSize int) ([]int64, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	from := 0
	if page > 1 {
		from = (page - 1) * pageSize
	}

	request := map[string]interface{}{
		"query":   buildSearchQuery(query),
		"sort":    buildSortQuery(query),
		"from":    from,
		"size":    pageSize,
		"_source": []string{"id"},
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ID int64 `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]int64, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		ids = append(ids, hit.Source.ID)
	}
	return ids, nil
}

func buildSearchQuery(query string) map[string]interface{} {
	filter := []map[string]interface{}{
		{"range": map[string]interface{}{"class_date": map[string]interface{}{"gte": "now/d"}}},
	}

	if query == "" {
		return map[string]interface{}{"bool": map[string]interface{}{"filter": filter}}
	}

	return map[string]interface{}{
		"bool": map[string]interface{}{
			"must": []map[string]interface{}{{
				"multi_match": map[string]interface{}{
					"query":     query,
					"fields":    []string{"title^2", "description"},
					"fuzziness": "AUTO",
				},
			}},
			"filter": filter,
		},
	}
}

func buildSortQuery(query string) []map[string]interface{} {
	if query != "" {
		return []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"class_date": map[string]interface{}{"order": "asc"}},
		}
	}
	return []map[string]interface{}{
		{"class_date": map[string]interface{}{"order": "asc"}},
		{"id": map[string]interface{}{"order": "asc"}},
	}
}

// IndexClass upserts the class document
func (c *ElasticsearchClient) IndexClass(ctx context.Context, class *models.ClassSession) error {
	doc := classDocument{
		ID:        class.ID,
		Title:     class.Title,
		ClassDate: class.Date.Format("2006-01-02"),
		StartTime: class.StartTime,
		Price:     class.Price.InexactFloat64(),
		SpotsLeft: class.SpotsLeft(),
		UpdatedAt: class.UpdatedAt,
	}
	if class.Description != nil {
		doc.Description = *class.Description
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal class: %w", err)
	}

	res, err := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(class.ID, 10),
		Body:       bytes.NewReader(body),
		Refresh:    "wait_for",
	}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index class: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}
	return nil
}

// DeleteClass removes the document; a missing document is not an error
func (c *ElasticsearchClient) DeleteClass(ctx context.Context, id int64) error {
	res, err := esapi.DeleteRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(id, 10),
		Refresh:    "wait_for",
	}.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete error: %s", res.String())
	}
	return nil
}
