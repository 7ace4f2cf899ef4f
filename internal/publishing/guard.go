package publishing

import (
	"context"

	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Authorize reports whether actor may mutate story. An empty actor is
// unauthenticated.
func Authorize(actor string, story *data.Story) error {
	if actor == "" {
		return apperror.Unauthenticated("authentication required")
	}
	if actor != story.AuthorID {
		return apperror.Forbidden("only the author can modify this story")
	}
	return nil
}

// ownedStory resolves the story before checking ownership so that a missing
// id is NotFound for everyone.
func (s *Service) ownedStory(ctx context.Context, actor string, id primitive.ObjectID) (*data.Story, error) {
	story, err := s.store.FindStory(ctx, id)
	if err != nil {
		return nil, s.storeErr(err, "find story", id, "story not found")
	}
	if err := Authorize(actor, story); err != nil {
		return nil, err
	}
	return story, nil
}

// ownedChapter resolves a chapter and its parent story; authorization is
// always decided by the parent's author.
func (s *Service) ownedChapter(ctx context.Context, actor string, id primitive.ObjectID) (*data.Chapter, *data.Story, error) {
	chapter, err := s.store.FindChapter(ctx, id)
	if err != nil {
		return nil, nil, s.storeErr(err, "find chapter", id, "chapter not found")
	}
	story, err := s.store.FindStory(ctx, chapter.StoryID)
	if err != nil {
		return nil, nil, s.storeErr(err, "find story", chapter.StoryID, "story not found")
	}
	if err := Authorize(actor, story); err != nil {
		return nil, nil, err
	}
	return chapter, story, nil
}

func canRead(actor string, story *data.Story) bool {
	return story.Published || (actor != "" && actor == story.AuthorID)
}
