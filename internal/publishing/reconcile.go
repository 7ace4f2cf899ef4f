package publishing

import (
	"context"
	"errors"
	"fmt"

	"github.com/mAmineChniti/SerialHub/internal/database"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ReconcileReport struct {
	Stories        int
	Repaired       int
	OrphanChapters int64
	OrphanComments int64
}

// Reconcile recounts every story's chapters and deletes chapters and comments
// whose story no longer exists.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	// Referencing ids are read before story ids: a chapter is only inserted
	// under an existing story, so anything missing from the later snapshot
	// really is orphaned.
	chapterStories, err := s.store.ChapterStoryIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("list chapter story ids: %w", err)
	}
	commentStories, err := s.store.CommentStoryIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("list comment story ids: %w", err)
	}
	storyIDs, err := s.store.StoryIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("list story ids: %w", err)
	}

	existing := make(map[primitive.ObjectID]struct{}, len(storyIDs))
	for _, id := range storyIDs {
		existing[id] = struct{}{}
	}

	for _, id := range chapterStories {
		if _, ok := existing[id]; ok {
			continue
		}
		n, err := s.store.DeleteChaptersByStory(ctx, id)
		if err != nil {
			return report, fmt.Errorf("delete orphaned chapters of %s: %w", id.Hex(), err)
		}
		report.OrphanChapters += n
	}
	for _, id := range commentStories {
		if _, ok := existing[id]; ok {
			continue
		}
		n, err := s.store.DeleteCommentsByStory(ctx, id)
		if err != nil {
			return report, fmt.Errorf("delete orphaned comments of %s: %w", id.Hex(), err)
		}
		report.OrphanComments += n
	}

	for _, id := range storyIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		repaired, err := s.recount(ctx, id)
		if err != nil {
			return report, err
		}
		report.Stories++
		if repaired {
			report.Repaired++
		}
	}

	if report.Repaired > 0 {
		s.invalidateListings(ctx)
	}
	s.log.Info("chapter counters reconciled",
		zap.Int("stories", report.Stories),
		zap.Int("repaired", report.Repaired),
		zap.Int64("orphan_chapters", report.OrphanChapters),
		zap.Int64("orphan_comments", report.OrphanComments),
	)
	return report, nil
}

func (s *Service) recount(ctx context.Context, id primitive.ObjectID) (bool, error) {
	story, err := s.store.FindStory(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find story %s: %w", id.Hex(), err)
	}
	n, err := s.store.CountChapters(ctx, id)
	if err != nil {
		return false, fmt.Errorf("count chapters of %s: %w", id.Hex(), err)
	}
	if int64(story.ChapterCount) == n {
		return false, nil
	}
	// A chapter created or deleted since the read moved the counter; the
	// next run repairs whatever drift is left.
	set, err := s.store.SetChapterCount(ctx, id, story.ChapterCount, int(n))
	if err != nil {
		return false, fmt.Errorf("set chapter count of %s: %w", id.Hex(), err)
	}
	if !set {
		return false, nil
	}
	s.log.Warn("chapter counter drift repaired",
		zap.String("story", id.Hex()),
		zap.Int("stored", story.ChapterCount),
		zap.Int64("actual", n),
	)
	return true, nil
}
