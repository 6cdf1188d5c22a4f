package mediastore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Delete when the object no longer exists.
// Cleanup paths treat it as success.
var ErrNotFound = errors.New("mediastore: object not found")

// Folder names group assets by purpose inside the bucket.
const (
	FolderPhotos  = "photos"
	FolderGifs    = "gifs"
	FolderVideos  = "videos"
	FolderAvatars = "avatars"
)

// UploadOptions direct where and how an asset is stored.
type UploadOptions struct {
	// Folder is the key prefix (photos, gifs, videos, avatars).
	Folder string
	// ResourceType is the store-side class of the asset ("image" or "video").
	ResourceType string
}

// DeleteOptions mirror UploadOptions for removal; the store needs the
// resource type to locate video assets.
type DeleteOptions struct {
	ResourceType string
}

// UploadResult is the durable outcome of a confirmed upload.
type UploadResult struct {
	// SecureURL is the public location of the stored asset.
	SecureURL string
	// ExternalID identifies the asset for later deletion.
	ExternalID string
}

// Store is the remote media storage boundary. Implementations must only
// return a non-nil UploadResult once the asset is durably stored; callers
// persist database rows strictly after that confirmation.
type Store interface {
	// Upload stores a fully buffered asset.
	Upload(ctx context.Context, data []byte, contentType string, opts UploadOptions) (*UploadResult, error)
	// UploadStream stores an asset from a reader without buffering it whole.
	// Used for videos, which can be large.
	UploadStream(ctx context.Context, r io.Reader, size int64, contentType string, opts UploadOptions) (*UploadResult, error)
	// Delete removes a previously uploaded asset. Returns ErrNotFound when
	// the asset is already gone.
	Delete(ctx context.Context, externalID string, opts DeleteOptions) error
}
