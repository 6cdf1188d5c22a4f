package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"myfeed/internal/mediastore"
)

// FakeStore is an in-memory mediastore.Store for tests. It records every
// upload and delete and can be told to fail specific calls.
type FakeStore struct {
	mu sync.Mutex

	// FailUploads holds zero-based indexes of Upload/UploadStream calls that
	// should fail, counted across both methods.
	FailUploads map[int]bool
	// FailDeletes maps external ids whose Delete should fail.
	FailDeletes map[string]bool
	// MissingOnDelete maps external ids whose Delete returns ErrNotFound.
	MissingOnDelete map[string]bool

	uploads int
	Stored  []StoredObject
	Deleted []string
}

// StoredObject records one confirmed upload.
type StoredObject struct {
	ContentType string
	Folder      string
	ExternalID  string
	Size        int64
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		FailUploads:     map[int]bool{},
		FailDeletes:     map[string]bool{},
		MissingOnDelete: map[string]bool{},
	}
}

func (s *FakeStore) Upload(ctx context.Context, data []byte, contentType string, opts mediastore.UploadOptions) (*mediastore.UploadResult, error) {
	return s.store(contentType, opts, int64(len(data)))
}

func (s *FakeStore) UploadStream(ctx context.Context, r io.Reader, size int64, contentType string, opts mediastore.UploadOptions) (*mediastore.UploadResult, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, err
	}
	return s.store(contentType, opts, size)
}

func (s *FakeStore) store(contentType string, opts mediastore.UploadOptions, size int64) (*mediastore.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.uploads
	s.uploads++
	if s.FailUploads[n] {
		return nil, fmt.Errorf("fake store: upload %d failed", n)
	}

	id := fmt.Sprintf("%s/object-%d", opts.Folder, n)
	s.Stored = append(s.Stored, StoredObject{
		ContentType: contentType,
		Folder:      opts.Folder,
		ExternalID:  id,
		Size:        size,
	})
	return &mediastore.UploadResult{
		SecureURL:  "https://media.test/" + id,
		ExternalID: id,
	}, nil
}

func (s *FakeStore) Delete(ctx context.Context, externalID string, _ mediastore.DeleteOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MissingOnDelete[externalID] {
		return mediastore.ErrNotFound
	}
	if s.FailDeletes[externalID] {
		return fmt.Errorf("fake store: delete %s failed", externalID)
	}
	s.Deleted = append(s.Deleted, externalID)
	return nil
}

// UploadCount reports how many upload calls were attempted.
func (s *FakeStore) UploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploads
}
