package server

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"go.uber.org/zap"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = s.errorHandler
	e.Logger.SetLevel(log.INFO)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	e.Use(middleware.ContextTimeout(s.requestTimeout))

	s.DEBUG(e)

	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusMovedPermanently, "/api/v1")
	})

	api := e.Group("/api/v1", s.JWTMiddleware())
	api.GET("/health", s.healthHandler)
	api.GET("/search", s.Search)

	api.GET("/stories", s.ListStories)
	api.GET("/stories/mine", s.MyStories)
	api.POST("/stories", s.CreateStory)
	api.GET("/stories/:id", s.GetStory)
	api.PATCH("/stories/:id", s.UpdateStory)
	api.DELETE("/stories/:id", s.DeleteStory)
	api.PATCH("/stories/:id/publish", s.PublishStory)
	api.POST("/stories/:id/bravo", s.ToggleBravo)
	api.PUT("/stories/:id/cover", s.UploadCover, middleware.BodyLimit("6M"))

	api.GET("/stories/:id/chapters", s.ListChapters)
	api.POST("/stories/:id/chapters", s.CreateChapter)
	api.GET("/chapters/:id", s.GetChapter)
	api.PATCH("/chapters/:id", s.UpdateChapter)
	api.DELETE("/chapters/:id", s.DeleteChapter)
	api.PATCH("/chapters/:id/publish", s.PublishChapter)

	api.GET("/stories/:id/comments", s.ListComments)
	api.POST("/stories/:id/comments", s.AddComment)
	api.DELETE("/comments/:id", s.DeleteComment)

	e.RouteNotFound("/*", func(c echo.Context) error {
		return apperror.NotFound("Not found")
	})

	return e
}

func (s *Server) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			if v.Status >= http.StatusInternalServerError {
				s.log.Error("request", fields...)
			} else {
				s.log.Info("request", fields...)
			}
			return nil
		},
	})
}

// DEBUG dumps request and response bodies at debug level when enabled.
func (s *Server) DEBUG(e *echo.Echo) {
	if !s.debug {
		return
	}
	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		if len(reqBody) > 0 {
			s.log.Debug("request body", zap.String("uri", c.Request().RequestURI), zap.String("body", prettyJSON(reqBody)))
		}
		if len(resBody) > 0 {
			s.log.Debug("response body", zap.String("uri", c.Request().RequestURI), zap.String("body", prettyJSON(resBody)))
		}
	}))
}

func prettyJSON(raw []byte) string {
	var formatted any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return string(raw)
	}
	out, err := json.MarshalIndent(formatted, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(out)
}
