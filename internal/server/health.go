package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/search"
	"go.uber.org/zap"
)

func (s *Server) healthHandler(c echo.Context) error {
	ctx := c.Request().Context()
	health, err := s.store.Health(ctx)
	if err != nil {
		s.log.Error("store health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"message": "Database unavailable"})
	}

	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.log.Warn("dependency health check failed", zap.String("dependency", name), zap.Error(err))
			health[name] = "down"
			continue
		}
		health[name] = "up"
	}
	if s.searcher != nil {
		if s.searcher.Healthy() {
			health["search"] = "up"
		} else {
			health["search"] = "down"
		}
	}
	return c.JSON(http.StatusOK, health)
}

func (s *Server) Search(c echo.Context) error {
	if s.searcher == nil || !s.searcher.Healthy() {
		return apperror.Unavailable("Search is unavailable")
	}

	text := strings.TrimSpace(c.QueryParam("q"))
	if text == "" {
		return apperror.BadRequest("Query parameter q is required")
	}
	q := search.Query{Text: text, AuthorID: c.QueryParam("author")}
	if err := echo.QueryParamsBinder(c).
		Int("limit", &q.Limit).
		Int("offset", &q.Offset).
		BindError(); err != nil {
		return apperror.BadRequest("Invalid pagination parameters")
	}
	if q.Limit < 0 || q.Limit > 100 || q.Offset < 0 {
		return apperror.BadRequest("Invalid pagination parameters")
	}

	results, total, err := s.searcher.Search(q)
	if err != nil {
		s.log.Warn("search failed", zap.String("query", text), zap.Error(err))
		return apperror.Unavailable("Search is unavailable")
	}
	return c.JSON(http.StatusOK, search.Response{Results: results, Total: total, Query: text})
}
