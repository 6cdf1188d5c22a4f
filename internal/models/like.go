package models

import (
	"time"

	"gorm.io/gorm"
)

// Like records a user's like on exactly one of a post or a comment.
// The (target, username) pair is unique.
type Like struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	PostID    *string `gorm:"size:36;uniqueIndex:idx_like_post_user" json:"post_id,omitempty"`
	CommentID *string `gorm:"size:36;uniqueIndex:idx_like_comment_user" json:"comment_id,omitempty"`
	Username  string  `gorm:"size:64;not null;uniqueIndex:idx_like_post_user;uniqueIndex:idx_like_comment_user" json:"username"`

	CreatedAt time.Time `json:"created_at"`
}

// Target returns the id of the liked content item.
func (l *Like) Target() string {
	if l.PostID != nil {
		return *l.PostID
	}
	if l.CommentID != nil {
		return *l.CommentID
	}
	return ""
}

// BeforeSave enforces that exactly one of PostID/CommentID is set.
func (l *Like) BeforeSave(_ *gorm.DB) error {
	hasPost := l.PostID != nil && *l.PostID != ""
	hasComment := l.CommentID != nil && *l.CommentID != ""
	if hasPost == hasComment {
		return NewValidationError("A like must reference exactly one post or comment")
	}
	if l.Username == "" {
		return NewValidationError("A like must carry the liking username")
	}
	return nil
}
