package publishing

import (
	"testing"
	"time"

	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	story := f.publishedStory(t, "u1")

	comment, err := f.svc.AddComment(f.context, "u2", story.ID, data.CommentRequest{Content: "  Great chapter!  "})
	require.NoError(t, err)
	assert.Equal(t, "Great chapter!", comment.Content)
	assert.Equal(t, "u2", comment.AuthorID)
	assert.Equal(t, story.ID, comment.StoryID)

	_, err = f.svc.AddComment(f.context, "u2", story.ID, data.CommentRequest{Content: "   "})
	assertKind(t, err, apperror.KindBadRequest)

	_, err = f.svc.AddComment(f.context, "", story.ID, data.CommentRequest{Content: "hi"})
	assertKind(t, err, apperror.KindUnauthenticated)

	_, err = f.svc.AddComment(f.context, "u2", primitive.NewObjectID(), data.CommentRequest{Content: "hi"})
	assertKind(t, err, apperror.KindNotFound)
}

func TestDeleteCommentOnlyByAuthor(t *testing.T) {
	f := newFixture(t)
	story := f.publishedStory(t, "u1")
	comment, err := f.svc.AddComment(f.context, "u2", story.ID, data.CommentRequest{Content: "first"})
	require.NoError(t, err)

	// Not even the story's author may delete someone else's comment.
	assertKind(t, f.svc.DeleteComment(f.context, "u1", comment.ID), apperror.KindForbidden)
	assertKind(t, f.svc.DeleteComment(f.context, "", comment.ID), apperror.KindUnauthenticated)

	require.NoError(t, f.svc.DeleteComment(f.context, "u2", comment.ID))
	assertKind(t, f.svc.DeleteComment(f.context, "u2", comment.ID), apperror.KindNotFound)
}

func TestListComments(t *testing.T) {
	f := newFixture(t)
	story := f.publishedStory(t, "u1")
	for _, text := range []string{"one", "two", "three"} {
		_, err := f.svc.AddComment(f.context, "u2", story.ID, data.CommentRequest{Content: text})
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}

	comments, err := f.svc.ListComments(f.context, "", story.ID, data.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "three", comments[0].Content)
	assert.Equal(t, "two", comments[1].Content)

	_, err = f.svc.ListComments(f.context, "", primitive.NewObjectID(), data.Page{})
	assertKind(t, err, apperror.KindNotFound)
}

func TestCommentsOnDraft(t *testing.T) {
	f := newFixture(t)
	draft := f.story(t, "u1")

	_, err := f.svc.AddComment(f.context, "u2", draft.ID, data.CommentRequest{Content: "early"})
	assertKind(t, err, apperror.KindNotFound)
	_, err = f.svc.ListComments(f.context, "u2", draft.ID, data.Page{})
	assertKind(t, err, apperror.KindNotFound)

	_, err = f.svc.AddComment(f.context, "u1", draft.ID, data.CommentRequest{Content: "note to self"})
	require.NoError(t, err)
	comments, err := f.svc.ListComments(f.context, "u1", draft.ID, data.Page{})
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}
