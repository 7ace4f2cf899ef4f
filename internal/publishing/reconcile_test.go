package publishing

import (
	"testing"

	"github.com/mAmineChniti/SerialHub/internal/data"
	"github.com/mAmineChniti/SerialHub/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestReconcileRepairsDriftAndOrphans(t *testing.T) {
	f := newFixture(t)
	healthy := f.story(t, "u1")
	f.chapter(t, "u1", healthy.ID, "One")

	drifted := f.story(t, "u1")
	f.chapter(t, "u1", drifted.ID, "One")
	f.chapter(t, "u1", drifted.ID, "Two")
	set, err := f.store.SetChapterCount(f.context, drifted.ID, 2, 7)
	require.NoError(t, err)
	require.True(t, set)

	gone := primitive.NewObjectID()
	require.NoError(t, f.store.InsertChapter(f.context, &data.Chapter{StoryID: gone, Title: "lost"}))
	require.NoError(t, f.store.InsertComment(f.context, &data.Comment{StoryID: gone, Content: "lost"}))

	before := f.cache.invalidations
	report, err := f.svc.Reconcile(f.context)
	require.NoError(t, err)

	assert.Equal(t, ReconcileReport{Stories: 2, Repaired: 1, OrphanChapters: 1, OrphanComments: 1}, report)
	assert.Equal(t, 2, f.storedStory(t, drifted.ID).ChapterCount)
	assert.Equal(t, 1, f.storedStory(t, healthy.ID).ChapterCount)
	assert.Greater(t, f.cache.invalidations, before)

	n, err := f.store.CountChapters(f.context, gone)
	require.NoError(t, err)
	assert.Zero(t, n)

	again, err := f.svc.Reconcile(f.context)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Stories: 2}, again)
}

func TestReconcileKeepsConcurrentChapterWrites(t *testing.T) {
	store := &failingStore{Memory: database.NewMemory(), failOn: map[string]bool{}}
	svc := New(store)
	ctx := t.Context()

	story, err := svc.CreateStory(ctx, "u1", data.CreateStoryRequest{Title: "T"})
	require.NoError(t, err)
	_, err = svc.CreateChapter(ctx, "u1", story.ID, data.CreateChapterRequest{Title: "One", Content: "x"})
	require.NoError(t, err)
	set, err := store.SetChapterCount(ctx, story.ID, 1, 5)
	require.NoError(t, err)
	require.True(t, set)

	// A chapter lands after the recount read the stored counter.
	store.beforeCountSet = func() {
		_, err := svc.CreateChapter(ctx, "u1", story.ID, data.CreateChapterRequest{Title: "Two", Content: "x"})
		require.NoError(t, err)
	}
	report, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Repaired)

	stored, err := store.FindStory(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.ChapterCount)

	report, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Repaired)
	stored, err = store.FindStory(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ChapterCount)
}
