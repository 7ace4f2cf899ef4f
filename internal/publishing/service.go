// Package publishing implements the story and chapter lifecycle: ownership
// checks, publish/unpublish with audit stamps, the chapter counter, bravos and
// comments.
package publishing

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"github.com/mAmineChniti/SerialHub/internal/database"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PageCache caches pages of the public story listing.
type PageCache interface {
	Get(ctx context.Context, page data.Page) ([]data.Story, bool, error)
	Set(ctx context.Context, page data.Page, stories []data.Story) error
	Invalidate(ctx context.Context) error
}

// Indexer keeps published stories searchable.
type Indexer interface {
	IndexStory(story data.Story) error
	RemoveStory(id string) error
}

// CoverStorage stores story cover images.
type CoverStorage interface {
	Put(ctx context.Context, storyID string, contentType string, body io.Reader, size int64) (key, url string, err error)
	Remove(ctx context.Context, key string) error
}

type Service struct {
	store  database.Store
	cache  PageCache
	index  Indexer
	covers CoverStorage
	log    *zap.Logger
	clock  func() time.Time
}

type Option func(*Service)

func WithCache(c PageCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithIndexer(i Indexer) Option {
	return func(s *Service) { s.index = i }
}

func WithCovers(c CoverStorage) Option {
	return func(s *Service) { s.covers = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func New(store database.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		cache: noopCache{},
		index: noopIndexer{},
		log:   zap.NewNop(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now is truncated to milliseconds, the precision the store keeps.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Millisecond)
}

// storeErr turns a store failure into NotFound or a logged InternalError.
func (s *Service) storeErr(err error, op string, id primitive.ObjectID, notFoundMsg string) error {
	if errors.Is(err, database.ErrNotFound) {
		return apperror.NotFound(notFoundMsg)
	}
	s.log.Error("store operation failed", zap.String("op", op), zap.String("id", id.Hex()), zap.Error(err))
	return apperror.Internal(op, err)
}

func (s *Service) invalidateListings(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("story listing cache invalidation failed", zap.Error(err))
	}
}

// syncIndex indexes the story while it is published and removes it otherwise.
func (s *Service) syncIndex(story *data.Story) {
	var err error
	if story.Published {
		err = s.index.IndexStory(*story)
	} else {
		err = s.index.RemoveStory(story.ID.Hex())
	}
	if err != nil {
		s.log.Warn("search index update failed", zap.String("story", story.ID.Hex()), zap.Error(err))
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, data.Page) ([]data.Story, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, data.Page, []data.Story) error         { return nil }
func (noopCache) Invalidate(context.Context) error                           { return nil }

type noopIndexer struct{}

func (noopIndexer) IndexStory(data.Story) error { return nil }
func (noopIndexer) RemoveStory(string) error    { return nil }
