package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mAmineChniti/SerialHub/internal/apperror"
	"github.com/mAmineChniti/SerialHub/internal/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const actorKey = "user_id"

// JWTMiddleware resolves the acting identity from the bearer token. Requests
// without a token pass through anonymously; a token that fails verification
// is rejected.
func (s *Server) JWTMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := s.verifier.Identity(c.Request().Header.Get(echo.HeaderAuthorization))
			switch {
			case errors.Is(err, auth.ErrMissingToken):
				return next(c)
			case errors.Is(err, auth.ErrExpiredToken):
				return apperror.Unauthenticated("Unauthorized: token expired")
			case err != nil:
				return apperror.Unauthenticated("Unauthorized: invalid token")
			}
			c.Set(actorKey, userID)
			return next(c)
		}
	}
}

func actor(c echo.Context) string {
	id, _ := c.Get(actorKey).(string)
	return id
}

func objectID(c echo.Context, param, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		return primitive.NilObjectID, apperror.BadRequest("Invalid " + what + " ID")
	}
	return id, nil
}

type errorBody struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := errorBody{Message: "Internal server error", Code: apperror.KindInternal.String()}

	var appErr *apperror.Error
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		status = appErr.Kind.Status()
		body.Code = appErr.Kind.String()
		if appErr.Kind != apperror.KindInternal {
			body.Message = appErr.Message
			body.Details = appErr.Details
		}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		body.Code = codeForStatus(status)
		if msg, ok := httpErr.Message.(string); ok {
			body.Message = msg
		} else {
			body.Message = http.StatusText(status)
		}
	}

	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.log.Warn("write error response", zap.Error(err))
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return apperror.KindUnauthenticated.String()
	case http.StatusForbidden:
		return apperror.KindForbidden.String()
	case http.StatusNotFound:
		return apperror.KindNotFound.String()
	case http.StatusServiceUnavailable:
		return apperror.KindUnavailable.String()
	}
	if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return apperror.KindBadRequest.String()
	}
	return apperror.KindInternal.String()
}
