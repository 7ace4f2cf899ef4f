package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/data"
	"github.com/mAmineChniti/SerialHub/internal/publishing"
)

type storiesResponse struct {
	Stories []data.Story `json:"stories"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
}

func bindPage(c echo.Context) (data.Page, error) {
	var page data.Page
	err := echo.QueryParamsBinder(c).
		Int("page", &page.Page).
		Int("limit", &page.Limit).
		BindError()
	if err != nil {
		return page, apperror.BadRequest("Invalid pagination parameters")
	}
	return page.Normalize(), nil
}

func (s *Server) ListStories(c echo.Context) error {
	page, err := bindPage(c)
	if err != nil {
		return err
	}
	stories, err := s.stories.ListPublished(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, storiesResponse{Stories: stories, Page: page.Page, Limit: page.Limit})
}

func (s *Server) MyStories(c echo.Context) error {
	page, err := bindPage(c)
	if err != nil {
		return err
	}
	stories, err := s.stories.ListByAuthor(c.Request().Context(), actor(c), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, storiesResponse{Stories: stories, Page: page.Page, Limit: page.Limit})
}

func (s *Server) CreateStory(c echo.Context) error {
	var req data.CreateStoryRequest
	req.DecodeErr = c.Bind(&req)
	story, err := s.stories.CreateStory(c.Request().Context(), actor(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, story)
}

func (s *Server) GetStory(c echo.Context) error {
	id, err := objectID(c, "id", "story")
	if err != nil {
		return err
	}
	story, err := s.stories.GetStory(c.Request().Context(), actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, story)
}

func (s *Server) UpdateStory(c echo.Context) error {
	id, err := objectID(c, "id", "story")
	if err != nil {
		return err
	}
	var req data.UpdateStoryRequest
	req.DecodeErr = c.Bind(&req)
	story, err := s.stories.UpdateStory(c.Request().Context(), actor(c), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, story)
}

func (s *Server) DeleteStory(c echo.Context) error {
	id, err := objectID(c, "id", "story")
	if err != nil {
		return err
	}
	if err := s.stories.DeleteStory(c.Request().Context(), actor(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// publishFlag reads the requested flag without failing on a malformed body,
// so that a missing story or a foreign owner is reported before the flag.
func publishFlag(c echo.Context) data.PublishRequest {
	var req data.PublishRequest
	if err := c.Bind(&req); err != nil {
		return data.PublishRequest{}
	}
	return req
}

func (s *Server) PublishStory(c echo.Context) error {
	id, err := objectID(c, "id", "story")
	if err != nil {
		return err
	}
	req := publishFlag(c)
	story, err := s.stories.SetStoryPublished(c.Request().Context(), actor(c), id, req.Published)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, story)
}

func (s *Server) ToggleBravo(c echo.Context) error {
	id, err := objectID(c, "id", "story")
	if err != nil {
		return err
	}
	result, err := s.stories.ToggleBravo(c.Request().Context(), actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) UploadCover(c echo.Context) error {
	id, err := objectID(c, "id", "story")
	if err != nil {
		return err
	}
	file, err := c.FormFile("cover")
	if err != nil {
		return apperror.BadRequest("Missing cover file")
	}
	body, err := file.Open()
	if err != nil {
		return apperror.BadRequest("Unreadable cover file")
	}
	defer body.Close()

	story, err := s.stories.UploadCover(c.Request().Context(), actor(c), id, publishing.CoverUpload{
		ContentType: file.Header.Get(echo.HeaderContentType),
		Size:        file.Size,
		Body:        body,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, story)
}
