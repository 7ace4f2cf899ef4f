package publishing

import (
	"context"
	"errors"
	"strings"

	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"github.com/mAmineChniti/SerialHub/internal/database"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CreateChapter adds a chapter to a story and increments the story's chapter
// counter. The two writes are not transactional: if the counter write fails the
// call fails and the reconcile job repairs the count.
func (s *Service) CreateChapter(ctx context.Context, actor string, storyID primitive.ObjectID, req data.CreateChapterRequest) (*data.Chapter, error) {
	story, err := s.ownedStory(ctx, actor, storyID)
	if err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	chapter := &data.Chapter{
		StoryID:   storyID,
		Title:     req.Title,
		Content:   req.Content,
		Order:     story.ChapterCount + 1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Order != nil {
		chapter.Order = *req.Order
	}
	if req.Published != nil && *req.Published {
		chapter.Publication.Apply(data.Transition{Published: true, At: now, By: actor})
	}

	if err := s.store.InsertChapter(ctx, chapter); err != nil {
		return nil, s.storeErr(err, "insert chapter", storyID, "story not found")
	}
	if err := s.store.AdjustChapterCount(ctx, storyID, 1); err != nil {
		s.log.Error("chapter counter increment failed",
			zap.String("story", storyID.Hex()),
			zap.String("chapter", chapter.ID.Hex()),
			zap.Error(err),
		)
		return nil, apperror.Internal("increment chapter count", err)
	}

	s.invalidateListings(ctx)
	s.log.Info("chapter created",
		zap.String("story", storyID.Hex()),
		zap.String("chapter", chapter.ID.Hex()),
		zap.String("actor", actor),
	)
	return chapter, nil
}

// DeleteChapter removes a chapter and decrements its story's counter, floored at zero.
func (s *Service) DeleteChapter(ctx context.Context, actor string, id primitive.ObjectID) error {
	chapter, _, err := s.ownedChapter(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteChapter(ctx, id); err != nil {
		return s.storeErr(err, "delete chapter", id, "chapter not found")
	}
	err = s.store.AdjustChapterCount(ctx, chapter.StoryID, -1)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		s.log.Error("chapter counter decrement failed",
			zap.String("story", chapter.StoryID.Hex()),
			zap.String("chapter", id.Hex()),
			zap.Error(err),
		)
		return apperror.Internal("decrement chapter count", err)
	}

	s.invalidateListings(ctx)
	s.log.Info("chapter deleted",
		zap.String("story", chapter.StoryID.Hex()),
		zap.String("chapter", id.Hex()),
		zap.String("actor", actor),
	)
	return nil
}

// GetChapter returns a chapter readable by actor. Readers see a chapter only
// when both it and its story are published; the author sees everything.
func (s *Service) GetChapter(ctx context.Context, actor string, id primitive.ObjectID) (*data.Chapter, error) {
	chapter, err := s.store.FindChapter(ctx, id)
	if err != nil {
		return nil, s.storeErr(err, "find chapter", id, "chapter not found")
	}
	story, err := s.store.FindStory(ctx, chapter.StoryID)
	if err != nil {
		return nil, s.storeErr(err, "find story", chapter.StoryID, "chapter not found")
	}
	owner := actor != "" && actor == story.AuthorID
	if !owner && (!story.Published || !chapter.Published) {
		return nil, apperror.NotFound("chapter not found")
	}
	return chapter, nil
}

// ListChapters returns a story's chapters in display order.
func (s *Service) ListChapters(ctx context.Context, actor string, storyID primitive.ObjectID) ([]data.Chapter, error) {
	story, err := s.GetStory(ctx, actor, storyID)
	if err != nil {
		return nil, err
	}
	owner := actor != "" && actor == story.AuthorID
	chapters, err := s.store.ListChapters(ctx, storyID, !owner)
	if err != nil {
		return nil, s.storeErr(err, "list chapters", storyID, "story not found")
	}
	return chapters, nil
}

func (s *Service) UpdateChapter(ctx context.Context, actor string, id primitive.ObjectID, req data.UpdateChapterRequest) (*data.Chapter, error) {
	if _, _, err := s.ownedChapter(ctx, actor, id); err != nil {
		return nil, err
	}
	req.Title = trimmed(req.Title)
	if err := validate(req); err != nil {
		return nil, err
	}
	changes := data.ChapterChanges{Title: req.Title, Content: req.Content, Order: req.Order}
	if changes.Empty() {
		return nil, apperror.BadRequest("nothing to update")
	}

	chapter, err := s.store.UpdateChapter(ctx, id, changes, s.now())
	if err != nil {
		return nil, s.storeErr(err, "update chapter", id, "chapter not found")
	}
	return chapter, nil
}
