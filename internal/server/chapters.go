package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mAmineChniti/SerialHub/internal/data"
)

func (s *Server) ListChapters(c echo.Context) error {
	storyID, err := objectID(c, "id", "story")
	if err != nil {
		return err
	}
	chapters, err := s.stories.ListChapters(c.Request().Context(), actor(c), storyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string][]data.Chapter{"chapters": chapters})
}

func (s *Server) CreateChapter(c echo.Context) error {
	storyID, err := objectID(c, "id", "story")
	if err != nil {
		return err
	}
	var req data.CreateChapterRequest
	req.DecodeErr = c.Bind(&req)
	chapter, err := s.stories.CreateChapter(c.Request().Context(), actor(c), storyID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, chapter)
}

func (s *Server) GetChapter(c echo.Context) error {
	id, err := objectID(c, "id", "chapter")
	if err != nil {
		return err
	}
	chapter, err := s.stories.GetChapter(c.Request().Context(), actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chapter)
}

func (s *Server) UpdateChapter(c echo.Context) error {
	id, err := objectID(c, "id", "chapter")
	if err != nil {
		return err
	}
	var req data.UpdateChapterRequest
	req.DecodeErr = c.Bind(&req)
	chapter, err := s.stories.UpdateChapter(c.Request().Context(), actor(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chapter)
}

func (s *Server) DeleteChapter(c echo.Context) error {
	id, err := objectID(c, "id", "chapter")
	if err != nil {
		return err
	}
	if err := s.stories.DeleteChapter(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) PublishChapter(c echo.Context) error {
	id, err := objectID(c, "id", "chapter")
	if err != nil {
		return err
	}
	req := publishFlag(c)
	chapter, err := s.stories.SetChapterPublished(c.Request().Context(), actor(c), id, req.Published)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chapter)
}
