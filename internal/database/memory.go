package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/data"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store used for local development (DB_DRIVER=memory)
// and tests. Each method holds the lock for its whole body, which gives it the
// same per-document atomicity as the MongoDB update operators.
type Memory struct {
	mu       sync.Mutex
	stories  map[primitive.ObjectID]data.Story
	chapters map[primitive.ObjectID]data.Chapter
	comments map[primitive.ObjectID]data.Comment
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		stories:  make(map[primitive.ObjectID]data.Story),
		chapters: make(map[primitive.ObjectID]data.Chapter),
		comments: make(map[primitive.ObjectID]data.Comment),
	}
}

func cloneStory(s data.Story) *data.Story {
	s.Bravos = append([]string{}, s.Bravos...)
	return &s
}

func (m *Memory) InsertStory(_ context.Context, story *data.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if story.ID.IsZero() {
		story.ID = primitive.NewObjectID()
	}
	if story.Bravos == nil {
		story.Bravos = []string{}
	}
	m.stories[story.ID] = *cloneStory(*story)
	return nil
}

func (m *Memory) FindStory(_ context.Context, id primitive.ObjectID) (*data.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneStory(s), nil
}

func (m *Memory) ListStories(_ context.Context, filter data.StoryFilter) ([]data.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []data.Story{}
	for _, s := range m.stories {
		if filter.AuthorID != "" && s.AuthorID != filter.AuthorID {
			continue
		}
		if filter.PublishedOnly && !s.Published {
			continue
		}
		matched = append(matched, *cloneStory(s))
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		ta, tb := a.CreatedAt, b.CreatedAt
		if filter.PublishedOnly {
			ta, tb = derefTime(a.PublishedAt), derefTime(b.PublishedAt)
		}
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.ID.Hex() > b.ID.Hex()
	})

	return paginate(matched, filter.Page), nil
}

func (m *Memory) UpdateStory(_ context.Context, id primitive.ObjectID, changes data.StoryChanges, now time.Time) (*data.Story, error) {
	return m.mutateStory(id, func(s *data.Story) {
		if changes.Title != nil {
			s.Title = *changes.Title
		}
		if changes.Description != nil {
			s.Description = *changes.Description
		}
		s.UpdatedAt = now
	})
}

func (m *Memory) SetStoryPublication(_ context.Context, id primitive.ObjectID, t data.Transition) (*data.Story, error) {
	return m.mutateStory(id, func(s *data.Story) {
		s.Publication.Apply(t)
		s.UpdatedAt = t.At
	})
}

func (m *Memory) SetStoryCover(_ context.Context, id primitive.ObjectID, key, url string, now time.Time) (*data.Story, error) {
	return m.mutateStory(id, func(s *data.Story) {
		s.CoverKey = key
		s.CoverURL = url
		s.UpdatedAt = now
	})
}

func (m *Memory) AddBravo(_ context.Context, id primitive.ObjectID, userID string) (*data.Story, error) {
	return m.mutateStory(id, func(s *data.Story) {
		if !s.HasBravo(userID) {
			s.Bravos = append(s.Bravos, userID)
		}
	})
}

func (m *Memory) RemoveBravo(_ context.Context, id primitive.ObjectID, userID string) (*data.Story, error) {
	return m.mutateStory(id, func(s *data.Story) {
		kept := s.Bravos[:0]
		for _, b := range s.Bravos {
			if b != userID {
				kept = append(kept, b)
			}
		}
		s.Bravos = kept
	})
}

func (m *Memory) AdjustChapterCount(_ context.Context, id primitive.ObjectID, delta int) error {
	_, err := m.mutateStory(id, func(s *data.Story) {
		s.ChapterCount = max(0, s.ChapterCount+delta)
	})
	return err
}

func (m *Memory) SetChapterCount(_ context.Context, id primitive.ObjectID, expected, count int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stories[id]
	if !ok || s.ChapterCount != expected {
		return false, nil
	}
	s.ChapterCount = count
	return true, nil
}

func (m *Memory) mutateStory(id primitive.ObjectID, fn func(*data.Story)) (*data.Story, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stories[id]
	if !ok {
		return nil, ErrNotFound
	}
	updated := cloneStory(s)
	fn(updated)
	m.stories[id] = *updated
	return cloneStory(*updated), nil
}

func (m *Memory) DeleteStory(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stories[id]; !ok {
		return ErrNotFound
	}
	delete(m.stories, id)
	return nil
}

func (m *Memory) StoryIDs(_ context.Context) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]primitive.ObjectID, 0, len(m.stories))
	for id := range m.stories {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) InsertChapter(_ context.Context, chapter *data.Chapter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if chapter.ID.IsZero() {
		chapter.ID = primitive.NewObjectID()
	}
	m.chapters[chapter.ID] = *chapter
	return nil
}

func (m *Memory) FindChapter(_ context.Context, id primitive.ObjectID) (*data.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chapters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListChapters(_ context.Context, storyID primitive.ObjectID, publishedOnly bool) ([]data.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chapters := []data.Chapter{}
	for _, c := range m.chapters {
		if c.StoryID != storyID || (publishedOnly && !c.Published) {
			continue
		}
		chapters = append(chapters, c)
	}
	sort.Slice(chapters, func(i, j int) bool {
		if chapters[i].Order != chapters[j].Order {
			return chapters[i].Order < chapters[j].Order
		}
		return chapters[i].CreatedAt.Before(chapters[j].CreatedAt)
	})
	return chapters, nil
}

func (m *Memory) UpdateChapter(_ context.Context, id primitive.ObjectID, changes data.ChapterChanges, now time.Time) (*data.Chapter, error) {
	return m.mutateChapter(id, func(c *data.Chapter) {
		if changes.Title != nil {
			c.Title = *changes.Title
		}
		if changes.Content != nil {
			c.Content = *changes.Content
		}
		if changes.Order != nil {
			c.Order = *changes.Order
		}
		c.UpdatedAt = now
	})
}

func (m *Memory) SetChapterPublication(_ context.Context, id primitive.ObjectID, t data.Transition) (*data.Chapter, error) {
	return m.mutateChapter(id, func(c *data.Chapter) {
		c.Publication.Apply(t)
		c.UpdatedAt = t.At
	})
}

func (m *Memory) mutateChapter(id primitive.ObjectID, fn func(*data.Chapter)) (*data.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chapters[id]
	if !ok {
		return nil, ErrNotFound
	}
	fn(&c)
	m.chapters[id] = c
	return &c, nil
}

func (m *Memory) DeleteChapter(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.chapters[id]; !ok {
		return ErrNotFound
	}
	delete(m.chapters, id)
	return nil
}

func (m *Memory) DeleteChaptersByStory(_ context.Context, storyID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, c := range m.chapters {
		if c.StoryID == storyID {
			delete(m.chapters, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) CountChapters(_ context.Context, storyID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, c := range m.chapters {
		if c.StoryID == storyID {
			n++
		}
	}
	return n, nil
}

func (m *Memory) ChapterStoryIDs(_ context.Context) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[primitive.ObjectID]struct{})
	for _, c := range m.chapters {
		seen[c.StoryID] = struct{}{}
	}
	return keys(seen), nil
}

func (m *Memory) InsertComment(_ context.Context, comment *data.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	m.comments[comment.ID] = *comment
	return nil
}

func (m *Memory) FindComment(_ context.Context, id primitive.ObjectID) (*data.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListComments(_ context.Context, storyID primitive.ObjectID, page data.Page) ([]data.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	comments := []data.Comment{}
	for _, c := range m.comments {
		if c.StoryID == storyID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID.Hex() > comments[j].ID.Hex()
	})
	return paginate(comments, page), nil
}

func (m *Memory) DeleteComment(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.comments[id]; !ok {
		return ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

func (m *Memory) DeleteCommentsByStory(_ context.Context, storyID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, c := range m.comments {
		if c.StoryID == storyID {
			delete(m.comments, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) CommentStoryIDs(_ context.Context) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[primitive.ObjectID]struct{})
	for _, c := range m.comments {
		seen[c.StoryID] = struct{}{}
	}
	return keys(seen), nil
}

func (m *Memory) Health(context.Context) (map[string]string, error) {
	return map[string]string{"message": "It's healthy", "driver": "memory"}, nil
}

func (m *Memory) Close(context.Context) error {
	return nil
}

func paginate[T any](items []T, page data.Page) []T {
	page = page.Normalize()
	skip := page.Skip()
	if skip < 0 || skip >= int64(len(items)) {
		return []T{}
	}
	start := int(skip)
	end := min(start+page.Limit, len(items))
	return items[start:end]
}

func keys(set map[primitive.ObjectID]struct{}) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
