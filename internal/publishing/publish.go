package publishing

import (
	"context"
	"encoding/json"

	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SetStoryPublished moves a story to the requested publish state and stamps
// the transition. It writes on every call, even when the flag already has the
// requested value.
func (s *Service) SetStoryPublished(ctx context.Context, actor string, id primitive.ObjectID, requested json.RawMessage) (*data.Story, error) {
	if _, err := s.ownedStory(ctx, actor, id); err != nil {
		return nil, err
	}
	published, err := data.ParsePublished(requested)
	if err != nil {
		return nil, apperror.BadRequest(err.Error())
	}

	t := data.Transition{Published: published, At: s.now(), By: actor}
	story, err := s.store.SetStoryPublication(ctx, id, t)
	if err != nil {
		return nil, s.storeErr(err, "set story publication", id, "story not found")
	}

	s.log.Info("story publication changed",
		zap.String("story", id.Hex()),
		zap.Bool("published", published),
		zap.String("actor", actor),
	)
	s.syncIndex(story)
	s.invalidateListings(ctx)
	return story, nil
}

// SetChapterPublished is SetStoryPublished for a chapter, authorized by the
// chapter's story.
func (s *Service) SetChapterPublished(ctx context.Context, actor string, id primitive.ObjectID, requested json.RawMessage) (*data.Chapter, error) {
	if _, _, err := s.ownedChapter(ctx, actor, id); err != nil {
		return nil, err
	}
	published, err := data.ParsePublished(requested)
	if err != nil {
		return nil, apperror.BadRequest(err.Error())
	}

	t := data.Transition{Published: published, At: s.now(), By: actor}
	chapter, err := s.store.SetChapterPublication(ctx, id, t)
	if err != nil {
		return nil, s.storeErr(err, "set chapter publication", id, "chapter not found")
	}

	s.log.Info("chapter publication changed",
		zap.String("chapter", id.Hex()),
		zap.Bool("published", published),
		zap.String("actor", actor),
	)
	return chapter, nil
}
