package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	// MaxPage keeps Skip within int64 for every allowed limit.
	MaxPage = math.MaxInt64 / MaxPageLimit
)

type Page struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

// Normalize clamps the page to 1..MaxPage and the limit to 1..MaxPageLimit.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Skip() int64 {
	return int64(p.Page-1) * int64(p.Limit)
}

// Body records why a request body could not be decoded. Operations report it
// only after the target is found and the caller is allowed to change it.
type Body struct {
	DecodeErr error `json:"-" validate:"-"`
}

func (b Body) Decoded() error {
	return b.DecodeErr
}

type CreateStoryRequest struct {
	Body
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

type UpdateStoryRequest struct {
	Body
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

type CreateChapterRequest struct {
	Body
	Title     string `json:"title" validate:"required,max=200"`
	Content   string `json:"content" validate:"required"`
	Order     *int   `json:"order" validate:"omitempty,min=0"`
	Published *bool  `json:"published"`
}

type UpdateChapterRequest struct {
	Body
	Title   *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content *string `json:"content" validate:"omitempty,min=1"`
	Order   *int    `json:"order" validate:"omitempty,min=0"`
}

type CommentRequest struct {
	Body
	Content string `json:"content" validate:"required,max=5000"`
}

// PublishRequest keeps the flag raw so that its type is checked by the
// publish operation itself, after the target and its owner are resolved.
type PublishRequest struct {
	Published json.RawMessage `json:"published"`
}

var ErrPublishFlag = errors.New("published must be a boolean")

// ParsePublished accepts exactly the JSON literals true and false.
func ParsePublished(raw json.RawMessage) (bool, error) {
	switch string(bytes.TrimSpace(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, ErrPublishFlag
	}
}
