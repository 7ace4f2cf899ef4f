package publishing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"github.com/mAmineChniti/SerialHub/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	publish   = json.RawMessage("true")
	unpublish = json.RawMessage("false")
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingIndexer struct {
	mu      sync.Mutex
	indexed map[string]data.Story
	removed []string
}

func (r *recordingIndexer) IndexStory(s data.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexed == nil {
		r.indexed = make(map[string]data.Story)
	}
	r.indexed[s.ID.Hex()] = s
	return nil
}

func (r *recordingIndexer) RemoveStory(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indexed, id)
	r.removed = append(r.removed, id)
	return nil
}

type countingCache struct {
	mu            sync.Mutex
	pages         map[data.Page][]data.Story
	invalidations int
}

func (c *countingCache) Get(_ context.Context, page data.Page) ([]data.Story, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stories, ok := c.pages[page]
	return stories, ok, nil
}

func (c *countingCache) Set(_ context.Context, page data.Page, stories []data.Story) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pages == nil {
		c.pages = make(map[data.Page][]data.Story)
	}
	c.pages[page] = stories
	return nil
}

func (c *countingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = nil
	c.invalidations++
	return nil
}

type memoryCovers struct {
	objects map[string]int64
	n       int
}

func (m *memoryCovers) Put(_ context.Context, storyID, _ string, body io.Reader, _ int64) (string, string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", "", err
	}
	if m.objects == nil {
		m.objects = make(map[string]int64)
	}
	m.n++
	key := fmt.Sprintf("stories/%s/%d", storyID, m.n)
	m.objects[key] = int64(len(b))
	return key, "https://cdn.example.com/" + key, nil
}

func (m *memoryCovers) Remove(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

// failingStore fails the operations named in failOn with errStore.
// beforeCountSet runs just before a conditional counter write.
type failingStore struct {
	*database.Memory
	failOn         map[string]bool
	beforeCountSet func()
}

var errStore = errors.New("connection reset by peer")

func (f *failingStore) SetStoryPublication(ctx context.Context, id primitive.ObjectID, t data.Transition) (*data.Story, error) {
	if f.failOn["SetStoryPublication"] {
		return nil, errStore
	}
	return f.Memory.SetStoryPublication(ctx, id, t)
}

func (f *failingStore) AdjustChapterCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	if f.failOn["AdjustChapterCount"] {
		return errStore
	}
	return f.Memory.AdjustChapterCount(ctx, id, delta)
}

func (f *failingStore) SetChapterCount(ctx context.Context, id primitive.ObjectID, expected, count int) (bool, error) {
	if f.beforeCountSet != nil {
		hook := f.beforeCountSet
		f.beforeCountSet = nil
		hook()
	}
	return f.Memory.SetChapterCount(ctx, id, expected, count)
}

type fixture struct {
	svc     *Service
	store   *database.Memory
	clock   *fakeClock
	index   *recordingIndexer
	cache   *countingCache
	covers  *memoryCovers
	context context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   database.NewMemory(),
		clock:   &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		index:   &recordingIndexer{},
		cache:   &countingCache{},
		covers:  &memoryCovers{},
		context: context.Background(),
	}
	f.svc = New(f.store,
		WithClock(f.clock.Now),
		WithIndexer(f.index),
		WithCache(f.cache),
		WithCovers(f.covers),
	)
	return f
}

func (f *fixture) story(t *testing.T, author string) *data.Story {
	t.Helper()
	story, err := f.svc.CreateStory(f.context, author, data.CreateStoryRequest{Title: "The Long Road", Description: "A serial."})
	require.NoError(t, err)
	return story
}

func (f *fixture) publishedStory(t *testing.T, author string) *data.Story {
	t.Helper()
	story := f.story(t, author)
	published, err := f.svc.SetStoryPublished(f.context, author, story.ID, publish)
	require.NoError(t, err)
	return published
}

func (f *fixture) chapter(t *testing.T, author string, storyID primitive.ObjectID, title string) *data.Chapter {
	t.Helper()
	chapter, err := f.svc.CreateChapter(f.context, author, storyID, data.CreateChapterRequest{Title: title, Content: "It was a dark night."})
	require.NoError(t, err)
	return chapter
}

func (f *fixture) storedStory(t *testing.T, id primitive.ObjectID) *data.Story {
	t.Helper()
	story, err := f.store.FindStory(f.context, id)
	require.NoError(t, err)
	return story
}

func assertKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperror.KindOf(err), "got %v", err)
}
