// Package search keeps published stories in a Meilisearch index.
package search

import (
	"github.com/mAmineChniti/SerialHub/internal/data"
)

// Result is a single search hit returned to the caller.
type Result struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	AuthorID    string `json:"authorId"`
	PublishedAt int64  `json:"publishedAt"`
}

// Query describes a search request.
type Query struct {
	Text     string
	AuthorID string
	Limit    int
	Offset   int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// StoryRecord is the data indexed for a published story.
type StoryRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	AuthorID     string `json:"authorId"`
	PublishedAt  int64  `json:"publishedAt"`
	ChapterCount int    `json:"chapterCount"`
}

func RecordFromStory(s data.Story) StoryRecord {
	r := StoryRecord{
		ID:           s.ID.Hex(),
		Title:        s.Title,
		Description:  s.Description,
		AuthorID:     s.AuthorID,
		ChapterCount: s.ChapterCount,
	}
	if s.PublishedAt != nil {
		r.PublishedAt = s.PublishedAt.Unix()
	}
	return r
}
