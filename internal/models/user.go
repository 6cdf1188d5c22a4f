// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered account in the MyFeed application.
// Username is the stable identity other rows reference; Name is the mutable
// display name.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Name         string    `gorm:"size:128" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password     string    `gorm:"not null" json:"-"`
	Bio          string    `json:"bio"`
	Avatar       string    `json:"avatar"`
	ProfileImage string    `json:"profile_img"`
	Location     string    `json:"location"`
	XURL         string    `json:"x_url"`
	InstagramURL string    `json:"instagram_url"`
	YoutubeURL   string    `json:"youtube_url"`
	VerifyToken  string    `gorm:"size:128;index" json:"-"`
	Verified     bool      `gorm:"not null;default:false" json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicProfile is the subset of User safe to embed in feeds and listings.
type PublicProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

// Public returns the embeddable public view of the user.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Avatar:   u.Avatar,
	}
}
