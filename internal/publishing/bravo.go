package publishing

import (
	"context"

	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToggleBravo flips actor's membership in the story's reactions set. The
// store applies a set-add or set-pull, so racing toggles never duplicate an
// identity; the result is read from the document after the write. Drafts
// are not found for anyone but their author.
func (s *Service) ToggleBravo(ctx context.Context, actor string, id primitive.ObjectID) (data.BravoResult, error) {
	story, err := s.GetStory(ctx, actor, id)
	if err != nil {
		return data.BravoResult{}, err
	}
	if actor == "" {
		return data.BravoResult{}, apperror.Unauthenticated("authentication required")
	}

	if story.HasBravo(actor) {
		story, err = s.store.RemoveBravo(ctx, id, actor)
	} else {
		story, err = s.store.AddBravo(ctx, id, actor)
	}
	if err != nil {
		return data.BravoResult{}, s.storeErr(err, "toggle bravo", id, "story not found")
	}

	s.invalidateListings(ctx)
	return data.BravoResult{Bravos: len(story.Bravos), Braved: story.HasBravo(actor)}, nil
}
