package publishing

import (
	"context"
	"io"
	"strings"

	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const MaxCoverSize = 5 << 20

func validate(req any) error {
	if body, ok := req.(interface{ Decoded() error }); ok && body.Decoded() != nil {
		return apperror.BadRequest("invalid request body")
	}
	details, err := data.ValidateStruct(req)
	if err == nil {
		return nil
	}
	if details == nil {
		return apperror.Internal("validate request", err)
	}
	return apperror.Invalid("invalid request body", details)
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// CreateStory creates an unpublished story owned by actor.
func (s *Service) CreateStory(ctx context.Context, actor string, req data.CreateStoryRequest) (*data.Story, error) {
	if actor == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.now()
	story := &data.Story{
		Title:       req.Title,
		Description: req.Description,
		AuthorID:    actor,
		Bravos:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertStory(ctx, story); err != nil {
		return nil, s.storeErr(err, "insert story", story.ID, "story not found")
	}
	s.log.Info("story created", zap.String("story", story.ID.Hex()), zap.String("actor", actor))
	return story, nil
}

// GetStory returns a story; drafts are only visible to their author.
func (s *Service) GetStory(ctx context.Context, actor string, id primitive.ObjectID) (*data.Story, error) {
	story, err := s.store.FindStory(ctx, id)
	if err != nil {
		return nil, s.storeErr(err, "find story", id, "story not found")
	}
	if !canRead(actor, story) {
		return nil, apperror.NotFound("story not found")
	}
	return story, nil
}

func (s *Service) UpdateStory(ctx context.Context, actor string, id primitive.ObjectID, req data.UpdateStoryRequest) (*data.Story, error) {
	if _, err := s.ownedStory(ctx, actor, id); err != nil {
		return nil, err
	}
	req.Title = trimmed(req.Title)
	req.Description = trimmed(req.Description)
	if err := validate(req); err != nil {
		return nil, err
	}
	changes := data.StoryChanges{Title: req.Title, Description: req.Description}
	if changes.Empty() {
		return nil, apperror.BadRequest("nothing to update")
	}

	story, err := s.store.UpdateStory(ctx, id, changes, s.now())
	if err != nil {
		return nil, s.storeErr(err, "update story", id, "story not found")
	}
	if story.Published {
		s.syncIndex(story)
	}
	s.invalidateListings(ctx)
	return story, nil
}

// DeleteStory removes a story after its chapters and comments, so that no
// chapter outlives its story.
func (s *Service) DeleteStory(ctx context.Context, actor string, id primitive.ObjectID) error {
	story, err := s.ownedStory(ctx, actor, id)
	if err != nil {
		return err
	}

	chapters, err := s.store.DeleteChaptersByStory(ctx, id)
	if err != nil {
		return s.storeErr(err, "delete story chapters", id, "story not found")
	}
	comments, err := s.store.DeleteCommentsByStory(ctx, id)
	if err != nil {
		return s.storeErr(err, "delete story comments", id, "story not found")
	}
	if err := s.store.DeleteStory(ctx, id); err != nil {
		return s.storeErr(err, "delete story", id, "story not found")
	}

	if err := s.index.RemoveStory(id.Hex()); err != nil {
		s.log.Warn("search index removal failed", zap.String("story", id.Hex()), zap.Error(err))
	}
	if story.CoverKey != "" && s.covers != nil {
		if err := s.covers.Remove(ctx, story.CoverKey); err != nil {
			s.log.Warn("cover removal failed", zap.String("story", id.Hex()), zap.Error(err))
		}
	}
	s.invalidateListings(ctx)

	s.log.Info("story deleted",
		zap.String("story", id.Hex()),
		zap.Int64("chapters", chapters),
		zap.Int64("comments", comments),
		zap.String("actor", actor),
	)
	return nil
}

// ListPublished returns a page of published stories, newest publication first.
func (s *Service) ListPublished(ctx context.Context, page data.Page) ([]data.Story, error) {
	page = page.Normalize()
	stories, hit, err := s.cache.Get(ctx, page)
	if err != nil {
		s.log.Warn("story listing cache read failed", zap.Error(err))
	}
	if hit {
		return stories, nil
	}

	stories, err = s.store.ListStories(ctx, data.StoryFilter{PublishedOnly: true, Page: page})
	if err != nil {
		return nil, s.storeErr(err, "list stories", primitive.NilObjectID, "stories not found")
	}
	if err := s.cache.Set(ctx, page, stories); err != nil {
		s.log.Warn("story listing cache write failed", zap.Error(err))
	}
	return stories, nil
}

// ListByAuthor returns a page of actor's own stories, drafts included.
func (s *Service) ListByAuthor(ctx context.Context, actor string, page data.Page) ([]data.Story, error) {
	if actor == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}
	stories, err := s.store.ListStories(ctx, data.StoryFilter{AuthorID: actor, Page: page.Normalize()})
	if err != nil {
		return nil, s.storeErr(err, "list stories", primitive.NilObjectID, "stories not found")
	}
	return stories, nil
}

type CoverUpload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadCover stores a new cover image for the story and drops the previous one.
func (s *Service) UploadCover(ctx context.Context, actor string, id primitive.ObjectID, upload CoverUpload) (*data.Story, error) {
	if s.covers == nil {
		return nil, apperror.Unavailable("cover storage is not configured")
	}
	previous, err := s.ownedStory(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return nil, apperror.BadRequest("cover must be an image")
	}
	if upload.Size <= 0 || upload.Size > MaxCoverSize {
		return nil, apperror.BadRequest("cover must be between 1 byte and 5 MiB")
	}

	key, url, err := s.covers.Put(ctx, id.Hex(), upload.ContentType, upload.Body, upload.Size)
	if err != nil {
		s.log.Error("cover upload failed", zap.String("story", id.Hex()), zap.Error(err))
		return nil, apperror.Internal("upload cover", err)
	}

	story, err := s.store.SetStoryCover(ctx, id, key, url, s.now())
	if err != nil {
		return nil, s.storeErr(err, "set story cover", id, "story not found")
	}
	if previous.CoverKey != "" && previous.CoverKey != key {
		if err := s.covers.Remove(ctx, previous.CoverKey); err != nil {
			s.log.Warn("previous cover removal failed", zap.String("story", id.Hex()), zap.Error(err))
		}
	}
	s.invalidateListings(ctx)
	return story, nil
}
