package models

import (
	"time"

	"gorm.io/gorm"
)

// Content kinds. Posts and comments are two variants of one entity and share
// a single table distinguished by Kind.
const (
	ContentKindPost    = "post"
	ContentKindComment = "comment"
)

// Content represents an authored item: a post or a comment.
//
// A comment always references the post it belongs to via PostID and may
// reference a parent comment via ParentID; a nil ParentID means the comment
// is top level. Posts carry neither reference.
type Content struct {
	ID             string  `gorm:"primaryKey;size:36" json:"id"`
	Kind           string  `gorm:"size:16;not null;index" json:"kind"`
	AuthorUsername string  `gorm:"size:64;not null;index" json:"username"`
	Body           string  `gorm:"type:text" json:"text"`
	GifURL         string  `json:"gif_url,omitempty"`
	PostID         *string `gorm:"size:36;index" json:"post_id,omitempty"`
	ParentID       *string `gorm:"size:36;index" json:"parent_id,omitempty"`

	Author *User `gorm:"foreignKey:AuthorUsername;references:Username" json:"author,omitempty"`

	// LikesCount is not persisted; computed at query time. Zero likes is
	// reported as 0, never null.
	LikesCount int64 `gorm:"->" json:"likes"`

	// Media is populated by the per-item fan-out, not by a join.
	Media []Media `gorm:"-" json:"media"`

	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `gorm:"column:updated_at" json:"updated_at,omitempty"`
}

// TableName keeps the shared table name explicit.
func (Content) TableName() string {
	return "contents"
}

// IsEmpty reports whether the item carries neither text nor a gif reference.
// An item with no text, no gif and no attachments is rejected at creation.
func (c *Content) IsEmpty() bool {
	return c.Body == "" && c.GifURL == ""
}

// BeforeCreate validates the kind tag and comment references. Kind and the
// references are immutable after creation; edits write column maps and never
// pass through here.
func (c *Content) BeforeCreate(_ *gorm.DB) error {
	switch c.Kind {
	case ContentKindPost:
		if c.PostID != nil || c.ParentID != nil {
			return NewValidationError("A post cannot reference a parent")
		}
	case ContentKindComment:
		if c.PostID == nil || *c.PostID == "" {
			return NewValidationError("A comment must reference a post")
		}
	default:
		return NewValidationError("Invalid content kind")
	}
	return nil
}
