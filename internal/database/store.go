package database

import (
	"context"
	"errors"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/data"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when a lookup or targeted update matches no document.
var ErrNotFound = errors.New("document not found")

// Every single-document mutation below is atomic at the store; none of them
// reads before writing.

type StoryStore interface {
	InsertStory(ctx context.Context, story *data.Story) error
	FindStory(ctx context.Context, id primitive.ObjectID) (*data.Story, error)
	ListStories(ctx context.Context, filter data.StoryFilter) ([]data.Story, error)
	UpdateStory(ctx context.Context, id primitive.ObjectID, changes data.StoryChanges, now time.Time) (*data.Story, error)
	SetStoryPublication(ctx context.Context, id primitive.ObjectID, t data.Transition) (*data.Story, error)
	SetStoryCover(ctx context.Context, id primitive.ObjectID, key, url string, now time.Time) (*data.Story, error)
	AddBravo(ctx context.Context, id primitive.ObjectID, userID string) (*data.Story, error)
	RemoveBravo(ctx context.Context, id primitive.ObjectID, userID string) (*data.Story, error)
	// AdjustChapterCount adds delta to the counter, never letting it drop below zero.
	AdjustChapterCount(ctx context.Context, id primitive.ObjectID, delta int) error
	// SetChapterCount stores count only while the stored counter still equals
	// expected, and reports whether it did.
	SetChapterCount(ctx context.Context, id primitive.ObjectID, expected, count int) (bool, error)
	DeleteStory(ctx context.Context, id primitive.ObjectID) error
	StoryIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type ChapterStore interface {
	InsertChapter(ctx context.Context, chapter *data.Chapter) error
	FindChapter(ctx context.Context, id primitive.ObjectID) (*data.Chapter, error)
	ListChapters(ctx context.Context, storyID primitive.ObjectID, publishedOnly bool) ([]data.Chapter, error)
	UpdateChapter(ctx context.Context, id primitive.ObjectID, changes data.ChapterChanges, now time.Time) (*data.Chapter, error)
	SetChapterPublication(ctx context.Context, id primitive.ObjectID, t data.Transition) (*data.Chapter, error)
	DeleteChapter(ctx context.Context, id primitive.ObjectID) error
	DeleteChaptersByStory(ctx context.Context, storyID primitive.ObjectID) (int64, error)
	CountChapters(ctx context.Context, storyID primitive.ObjectID) (int64, error)
	// ChapterStoryIDs lists the distinct story ids referenced by chapters.
	ChapterStoryIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type CommentStore interface {
	InsertComment(ctx context.Context, comment *data.Comment) error
	FindComment(ctx context.Context, id primitive.ObjectID) (*data.Comment, error)
	ListComments(ctx context.Context, storyID primitive.ObjectID, page data.Page) ([]data.Comment, error)
	DeleteComment(ctx context.Context, id primitive.ObjectID) error
	DeleteCommentsByStory(ctx context.Context, storyID primitive.ObjectID) (int64, error)
	CommentStoryIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type Store interface {
	StoryStore
	ChapterStore
	CommentStore
	Health(ctx context.Context) (map[string]string, error)
	Close(ctx context.Context) error
}
