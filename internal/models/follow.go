package models

import (
	"time"

	"gorm.io/gorm"
)

// Follow is a directed edge: FollowerUsername follows FollowedUsername.
// The pair is the primary key, so an edge exists at most once.
type Follow struct {
	FollowedUsername string `gorm:"primaryKey;size:64" json:"followed_username"`
	FollowerUsername string `gorm:"primaryKey;size:64" json:"follower_username"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate rejects self-follows and incomplete edges.
func (f *Follow) BeforeCreate(_ *gorm.DB) error {
	if f.FollowedUsername == "" || f.FollowerUsername == "" {
		return NewValidationError("Both usernames are required")
	}
	if f.FollowedUsername == f.FollowerUsername {
		return NewValidationError("You cannot follow yourself")
	}
	return nil
}
