package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mAmineChniti/SerialHub/internal/data"
)

func (s *Server) ListComments(c echo.Context) error {
	storyID, err := objectID(c, "id", "story")
	if err != nil {
		return err
	}
	page, err := bindPage(c)
	if err != nil {
		return err
	}
	comments, err := s.stories.ListComments(c.Request().Context(), actor(c), storyID, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"comments": comments,
		"page":     page.Page,
		"limit":    page.Limit,
	})
}

func (s *Server) AddComment(c echo.Context) error {
	storyID, err := objectID(c, "id", "story")
	if err != nil {
		return err
	}
	var req data.CommentRequest
	req.DecodeErr = c.Bind(&req)
	comment, err := s.stories.AddComment(c.Request().Context(), actor(c), storyID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

func (s *Server) DeleteComment(c echo.Context) error {
	id, err := objectID(c, "id", "comment")
	if err != nil {
		return err
	}
	if err := s.stories.DeleteComment(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
