package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/data"
	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const (
	storiesIndex = "serialhub_stories"
	healthEvery  = 10 * time.Second
)

var errUnhealthy = errors.New("meilisearch unhealthy")

// Meili keeps published stories in a Meilisearch index and searches them.
// Server health is checked lazily, at most once every healthEvery.
type Meili struct {
	client meili.ServiceManager
	log    *zap.Logger

	mu         sync.Mutex
	healthy    bool
	checkedAt  time.Time
	configured bool
}

// NewMeili creates the client. An unreachable server is not an error: the
// index is configured on the first successful health check.
func NewMeili(url, apiKey string, log *zap.Logger) *Meili {
	m := &Meili{client: meili.New(url, meili.WithAPIKey(apiKey)), log: log}
	if !m.Healthy() {
		log.Warn("meilisearch unavailable", zap.String("url", url))
	}
	return m
}

func (m *Meili) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.checkedAt.IsZero() && time.Since(m.checkedAt) < healthEvery {
		return m.healthy
	}
	m.checkedAt = time.Now()
	_, err := m.client.Health()
	m.healthy = err == nil
	if m.healthy && !m.configured {
		if err := m.configureIndex(); err != nil {
			m.log.Warn("configure story index", zap.Error(err))
		} else {
			m.configured = true
		}
	}
	return m.healthy
}

func (m *Meili) markUnhealthy() {
	m.mu.Lock()
	m.healthy = false
	m.checkedAt = time.Now()
	m.mu.Unlock()
}

func (m *Meili) configureIndex() error {
	// Creating an existing index fails asynchronously; the settings below
	// apply either way.
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: storiesIndex, PrimaryKey: "id"}); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	index := m.client.Index(storiesIndex)
	filterable := []interface{}{"authorId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		return fmt.Errorf("filterable attributes: %w", err)
	}
	searchable := []string{"title", "description"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		return fmt.Errorf("searchable attributes: %w", err)
	}
	return nil
}

func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.Healthy() {
		return nil, 0, errUnhealthy
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}
	req := &meili.SearchRequest{
		IndexUID:              storiesIndex,
		Query:                 q.Text,
		Limit:                 limit,
		Offset:                int64(q.Offset),
		AttributesToHighlight: []string{"title", "description"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if q.AuthorID != "" {
		req.Filter = []string{fmt.Sprintf("authorId = %q", q.AuthorID)}
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{Queries: []*meili.SearchRequest{req}})
	if err != nil {
		m.markUnhealthy()
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := []Result{}
	total := 0
	for _, res := range resp.Results {
		total += int(res.EstimatedTotalHits)
		for _, hit := range res.Hits {
			r, err := hitToResult(hit)
			if err != nil {
				m.log.Warn("skip undecodable search hit", zap.Error(err))
				continue
			}
			results = append(results, r)
		}
	}
	return results, total, nil
}

// storyHit is a StoryRecord as returned by a search, with its highlighted copy.
type storyHit struct {
	StoryRecord
	Formatted struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"_formatted"`
}

func hitToResult(hit meili.Hit) (Result, error) {
	raw, err := json.Marshal(hit)
	if err != nil {
		return Result{}, err
	}
	var h storyHit
	if err := json.Unmarshal(raw, &h); err != nil {
		return Result{}, fmt.Errorf("decode story hit: %w", err)
	}

	r := Result{
		ID:          h.ID,
		Title:       h.Title,
		Snippet:     h.Description,
		AuthorID:    h.AuthorID,
		PublishedAt: h.PublishedAt,
	}
	if strings.TrimSpace(h.Formatted.Title) != "" {
		r.Title = h.Formatted.Title
	}
	if strings.TrimSpace(h.Formatted.Description) != "" {
		r.Snippet = h.Formatted.Description
	}
	return r, nil
}

// IndexStory adds or replaces a published story in the index.
func (m *Meili) IndexStory(s data.Story) error {
	_, err := m.client.Index(storiesIndex).AddDocuments([]StoryRecord{RecordFromStory(s)}, nil)
	return err
}

func (m *Meili) RemoveStory(id string) error {
	_, err := m.client.Index(storiesIndex).DeleteDocument(id, nil)
	return err
}
