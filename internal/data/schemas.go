package data

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Publication carries the publish state of a story or chapter together with
// the audit stamp of the last publish and the last unpublish.
type Publication struct {
	Published     bool       `json:"published" bson:"published"`
	PublishedAt   *time.Time `json:"publishedAt" bson:"publishedAt"`
	PublishedBy   *string    `json:"publishedBy" bson:"publishedBy"`
	UnPublishedAt *time.Time `json:"unPublishedAt" bson:"unPublishedAt"`
	UnPublishedBy *string    `json:"unPublishedBy" bson:"unPublishedBy"`
}

// Transition is one publish or unpublish action stamped with its time and actor.
type Transition struct {
	Published bool
	At        time.Time
	By        string
}

// Apply sets the flag and stamps the pair matching the direction of t,
// leaving the opposite pair untouched.
func (p *Publication) Apply(t Transition) {
	at, by := t.At, t.By
	p.Published = t.Published
	if t.Published {
		p.PublishedAt = &at
		p.PublishedBy = &by
		return
	}
	p.UnPublishedAt = &at
	p.UnPublishedBy = &by
}

type Story struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title        string             `json:"title" bson:"title"`
	Description  string             `json:"description" bson:"description"`
	AuthorID     string             `json:"authorId" bson:"authorId"`
	Publication  `bson:",inline"`
	Bravos       []string  `json:"bravos" bson:"bravos"`
	ChapterCount int       `json:"chapterCount" bson:"chapterCount"`
	CoverKey     string    `json:"-" bson:"coverKey,omitempty"`
	CoverURL     string    `json:"coverUrl,omitempty" bson:"coverUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// HasBravo reports whether userID is in the story's reactions set.
func (s *Story) HasBravo(userID string) bool {
	for _, id := range s.Bravos {
		if id == userID {
			return true
		}
	}
	return false
}

type Chapter struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	StoryID     primitive.ObjectID `json:"storyId" bson:"storyId"`
	Title       string             `json:"title" bson:"title"`
	Content     string             `json:"content" bson:"content"`
	Order       int                `json:"order" bson:"order"`
	Publication `bson:",inline"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Comment struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	StoryID   primitive.ObjectID `json:"storyId" bson:"storyId"`
	AuthorID  string             `json:"authorId" bson:"authorId"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// StoryFilter selects stories for listing. An empty AuthorID matches every author.
type StoryFilter struct {
	AuthorID      string
	PublishedOnly bool
	Page
}

// StoryChanges is a partial update of a story's editable fields.
type StoryChanges struct {
	Title       *string
	Description *string
}

func (c StoryChanges) Empty() bool {
	return c.Title == nil && c.Description == nil
}

// ChapterChanges is a partial update of a chapter's editable fields.
type ChapterChanges struct {
	Title   *string
	Content *string
	Order   *int
}

func (c ChapterChanges) Empty() bool {
	return c.Title == nil && c.Content == nil && c.Order == nil
}

// BravoResult is the outcome of a bravo toggle.
type BravoResult struct {
	Bravos int  `json:"bravos"`
	Braved bool `json:"braved"`
}
