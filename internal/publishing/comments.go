package publishing

import (
	"context"
	"strings"

	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func (s *Service) AddComment(ctx context.Context, actor string, storyID primitive.ObjectID, req data.CommentRequest) (*data.Comment, error) {
	if _, err := s.GetStory(ctx, actor, storyID); err != nil {
		return nil, err
	}
	if actor == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validate(req); err != nil {
		return nil, err
	}

	comment := &data.Comment{
		StoryID:   storyID,
		AuthorID:  actor,
		Content:   req.Content,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return nil, s.storeErr(err, "insert comment", storyID, "story not found")
	}
	return comment, nil
}

// DeleteComment removes a comment; only its author may do so.
func (s *Service) DeleteComment(ctx context.Context, actor string, id primitive.ObjectID) error {
	comment, err := s.store.FindComment(ctx, id)
	if err != nil {
		return s.storeErr(err, "find comment", id, "comment not found")
	}
	if actor == "" {
		return apperror.Unauthenticated("authentication required")
	}
	if actor != comment.AuthorID {
		return apperror.Forbidden("only the author can delete this comment")
	}
	if err := s.store.DeleteComment(ctx, id); err != nil {
		return s.storeErr(err, "delete comment", id, "comment not found")
	}
	s.log.Info("comment deleted", zap.String("comment", id.Hex()), zap.String("actor", actor))
	return nil
}

func (s *Service) ListComments(ctx context.Context, actor string, storyID primitive.ObjectID, page data.Page) ([]data.Comment, error) {
	if _, err := s.GetStory(ctx, actor, storyID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListComments(ctx, storyID, page.Normalize())
	if err != nil {
		return nil, s.storeErr(err, "list comments", storyID, "story not found")
	}
	return comments, nil
}
