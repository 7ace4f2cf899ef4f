package publishing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"github.com/mAmineChniti/SerialHub/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAuthorize(t *testing.T) {
	story := &data.Story{AuthorID: "u1"}
	assert.NoError(t, Authorize("u1", story))
	assert.True(t, apperror.Is(Authorize("u2", story), apperror.KindForbidden))
	assert.True(t, apperror.Is(Authorize("", story), apperror.KindUnauthenticated))
}

func TestSetStoryPublishedByOwner(t *testing.T) {
	f := newFixture(t)
	story := f.story(t, "u1")
	require.False(t, story.Published)

	got, err := f.svc.SetStoryPublished(f.context, "u1", story.ID, publish)
	require.NoError(t, err)

	assert.True(t, got.Published)
	require.NotNil(t, got.PublishedAt)
	assert.Equal(t, f.clock.Now(), *got.PublishedAt)
	require.NotNil(t, got.PublishedBy)
	assert.Equal(t, "u1", *got.PublishedBy)
	assert.Nil(t, got.UnPublishedAt)
	assert.Nil(t, got.UnPublishedBy)

	assert.Contains(t, f.index.indexed, story.ID.Hex())
	assert.Positive(t, f.cache.invalidations)

	// A non-owner is refused after the owner published.
	_, err = f.svc.SetStoryPublished(f.context, "u2", story.ID, unpublish)
	assertKind(t, err, apperror.KindForbidden)
	assert.True(t, f.storedStory(t, story.ID).Published)
}

func TestSetStoryPublishedWritesEveryTime(t *testing.T) {
	f := newFixture(t)
	story := f.story(t, "u1")

	first, err := f.svc.SetStoryPublished(f.context, "u1", story.ID, publish)
	require.NoError(t, err)
	firstAt := *first.PublishedAt

	f.clock.Advance(time.Minute)
	second, err := f.svc.SetStoryPublished(f.context, "u1", story.ID, publish)
	require.NoError(t, err)

	assert.True(t, second.Published)
	assert.Equal(t, firstAt.Add(time.Minute), *second.PublishedAt)
}

func TestSetStoryUnpublishKeepsPublishStamp(t *testing.T) {
	f := newFixture(t)
	story := f.story(t, "u1")

	published, err := f.svc.SetStoryPublished(f.context, "u1", story.ID, publish)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	got, err := f.svc.SetStoryPublished(f.context, "u1", story.ID, unpublish)
	require.NoError(t, err)

	assert.False(t, got.Published)
	assert.Equal(t, *published.PublishedAt, *got.PublishedAt)
	assert.Equal(t, f.clock.Now(), *got.UnPublishedAt)
	assert.Equal(t, "u1", *got.UnPublishedBy)
	assert.NotContains(t, f.index.indexed, story.ID.Hex())
}

func TestSetStoryPublishedFailures(t *testing.T) {
	f := newFixture(t)
	story := f.story(t, "u1")
	missing := primitive.NewObjectID()

	tests := []struct {
		name  string
		actor string
		id    primitive.ObjectID
		flag  json.RawMessage
		want  apperror.Kind
	}{
		{"missing story hides existence from non-owner", "u2", missing, publish, apperror.KindNotFound},
		{"missing story with bad flag", "u1", missing, json.RawMessage(`"yes"`), apperror.KindNotFound},
		{"no identity", "", story.ID, publish, apperror.KindUnauthenticated},
		{"not the owner", "u2", story.ID, publish, apperror.KindForbidden},
		{"non-owner with bad flag", "u2", story.ID, json.RawMessage("1"), apperror.KindForbidden},
		{"string flag", "u1", story.ID, json.RawMessage(`"true"`), apperror.KindBadRequest},
		{"missing flag", "u1", story.ID, nil, apperror.KindBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SetStoryPublished(f.context, tt.actor, tt.id, tt.flag)
			assertKind(t, err, tt.want)
		})
	}
	assert.False(t, f.storedStory(t, story.ID).Published)
}

func TestSetStoryPublishedStoreFailure(t *testing.T) {
	store := &failingStore{Memory: database.NewMemory(), failOn: map[string]bool{"SetStoryPublication": true}}
	svc := New(store)
	story, err := svc.CreateStory(t.Context(), "u1", data.CreateStoryRequest{Title: "T"})
	require.NoError(t, err)

	_, err = svc.SetStoryPublished(t.Context(), "u1", story.ID, publish)
	assertKind(t, err, apperror.KindInternal)
	assert.ErrorIs(t, err, errStore)
}

func TestSetChapterPublished(t *testing.T) {
	f := newFixture(t)
	story := f.story(t, "u1")
	chapter := f.chapter(t, "u1", story.ID, "One")

	unpublished, err := f.svc.SetChapterPublished(f.context, "u1", chapter.ID, unpublish)
	require.NoError(t, err)
	assert.False(t, unpublished.Published)
	assert.Nil(t, unpublished.PublishedAt)
	require.NotNil(t, unpublished.UnPublishedAt)

	f.clock.Advance(time.Second)
	published, err := f.svc.SetChapterPublished(f.context, "u1", chapter.ID, publish)
	require.NoError(t, err)

	assert.True(t, published.Published)
	assert.False(t, published.PublishedAt.Before(*unpublished.UnPublishedAt))
	assert.Equal(t, *unpublished.UnPublishedAt, *published.UnPublishedAt)
	assert.Equal(t, "u1", *published.PublishedBy)
	assert.Equal(t, chapter.ID, published.ID)
	assert.Equal(t, chapter.Content, published.Content)
	assert.Equal(t, chapter.Title, published.Title)
}

func TestSetChapterPublishedAuthorizedByStory(t *testing.T) {
	f := newFixture(t)
	story := f.story(t, "u1")
	chapter := f.chapter(t, "u1", story.ID, "One")

	_, err := f.svc.SetChapterPublished(f.context, "u2", chapter.ID, publish)
	assertKind(t, err, apperror.KindForbidden)

	_, err = f.svc.SetChapterPublished(f.context, "", chapter.ID, publish)
	assertKind(t, err, apperror.KindUnauthenticated)

	_, err = f.svc.SetChapterPublished(f.context, "u1", primitive.NewObjectID(), publish)
	assertKind(t, err, apperror.KindNotFound)

	_, err = f.svc.SetChapterPublished(f.context, "u1", chapter.ID, json.RawMessage("null"))
	assertKind(t, err, apperror.KindBadRequest)

	// A chapter whose story vanished is not found rather than forbidden.
	require.NoError(t, f.store.DeleteStory(f.context, story.ID))
	_, err = f.svc.SetChapterPublished(f.context, "u2", chapter.ID, publish)
	assertKind(t, err, apperror.KindNotFound)
}
