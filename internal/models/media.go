package models

import (
	"time"

	"gorm.io/gorm"
)

// Media kinds. Kind is decided by the uploaded blob's declared content type,
// or is gif for direct URL passthrough.
const (
	MediaKindImage = "image"
	MediaKindVideo = "video"
	MediaKindGif   = "gif"
)

// Media represents one uploaded or referenced asset bound to a content item.
// URL is the durable location returned by the media store; ExternalID is the
// store-side object identifier used for deletion. A row is only ever written
// after its upload has been confirmed durable.
type Media struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	ContentID  string `gorm:"size:36;not null;index" json:"content_id"`
	Kind       string `gorm:"size:8;not null" json:"kind"`
	URL        string `gorm:"not null" json:"url"`
	ExternalID string `json:"external_id,omitempty"`

	Content *Content `gorm:"foreignKey:ContentID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// ValidMediaKind reports whether kind is one of the three media kinds.
func ValidMediaKind(kind string) bool {
	switch kind {
	case MediaKindImage, MediaKindVideo, MediaKindGif:
		return true
	}
	return false
}

// BeforeCreate enforces that every new row has an agreeing kind and location.
// The in-place media swap on edit updates validated columns only.
func (m *Media) BeforeCreate(_ *gorm.DB) error {
	if !ValidMediaKind(m.Kind) {
		return NewValidationError("Invalid media kind")
	}
	if m.URL == "" {
		return NewValidationError("Media URL is required")
	}
	if m.ContentID == "" {
		return NewValidationError("Media must belong to a content item")
	}
	return nil
}
