// Package service holds the application's business logic, between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"myfeed/internal/mediastore"
	"myfeed/internal/models"
	"myfeed/internal/observability"
	"myfeed/internal/repository"
)

// ReplyPolicy decides what happens to a comment's replies when the comment
// is deleted.
type ReplyPolicy string

const (
	// ReplyCascade deletes the whole reply tree with the comment.
	ReplyCascade ReplyPolicy = "cascadeReplies"
	// ReplyOrphan keeps replies and promotes them to top level.
	ReplyOrphan ReplyPolicy = "orphanReplies"
)

// Attachment is one uploaded blob from the request. Video payloads arrive as
// a Reader and are streamed to the store; everything else is buffered.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
	Reader      io.Reader
	Size        int64
}

// AttachmentFailure reports one attachment that did not make it.
type AttachmentFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// CreateContentResult reports exactly what happened: the committed content
// row, the media that landed, and every attachment that failed. Partial
// success is explicit, never hidden.
type CreateContentResult struct {
	Content *models.Content     `json:"content"`
	Media   []models.Media      `json:"media"`
	Failed  []AttachmentFailure `json:"failed,omitempty"`
}

// CleanupOutcome reports one remote deletion attempted during content
// removal.
type CleanupOutcome struct {
	ExternalID string `json:"external_id"`
	OK         bool   `json:"ok"`
	Reason     string `json:"reason,omitempty"`
}

// DeleteContentResult reports the row deletion (always performed) and the
// per-asset remote cleanup outcomes.
type DeleteContentResult struct {
	Deleted string           `json:"deleted"`
	Cleanup []CleanupOutcome `json:"cleanup,omitempty"`
}

type CreateContentInput struct {
	Kind        string
	Author      string
	Body        string
	GifURL      string
	PostID      *string
	ParentID    *string
	Attachments []Attachment
}

type EditContentInput struct {
	ID          string
	Editor      string
	Body        *string
	GifURL      *string
	Replacement *Attachment
}

type DeleteContentInput struct {
	ID       string
	Actor    string
	OnDelete ReplyPolicy
}

// AuthoringService owns the create/edit/delete lifecycle of posts and
// comments, including their media.
type AuthoringService struct {
	contentRepo repository.ContentRepository
	mediaRepo   repository.MediaRepository
	store       mediastore.Store
	logger      *slog.Logger
}

func NewAuthoringService(
	contentRepo repository.ContentRepository,
	mediaRepo repository.MediaRepository,
	store mediastore.Store,
	logger *slog.Logger,
) *AuthoringService {
	return &AuthoringService{
		contentRepo: contentRepo,
		mediaRepo:   mediaRepo,
		store:       store,
		logger:      logger,
	}
}

// CreateContent publishes a post or comment.
//
// The content row (plus any direct gif reference) is committed before any
// upload is attempted, so a store outage can never lose authored text.
// Attachment uploads then run concurrently; rows for the confirmed uploads
// are persisted together afterwards. Failures are reported per attachment.
func (s *AuthoringService) CreateContent(ctx context.Context, in CreateContentInput) (*CreateContentResult, error) {
	if in.Body == "" && in.GifURL == "" && len(in.Attachments) == 0 {
		return nil, models.NewEmptyContentError()
	}
	if in.Author == "" {
		return nil, models.NewValidationError("Author is required")
	}

	content := &models.Content{
		ID:             uuid.NewString(),
		Kind:           in.Kind,
		AuthorUsername: in.Author,
		Body:           in.Body,
		GifURL:         in.GifURL,
		PostID:         in.PostID,
		ParentID:       in.ParentID,
	}

	var gifRows []*models.Media
	if in.GifURL != "" {
		gifRows = append(gifRows, &models.Media{
			ID:   uuid.NewString(),
			Kind: models.MediaKindGif,
			URL:  in.GifURL,
		})
	}
	if err := s.contentRepo.CreateWithMedia(ctx, content, gifRows); err != nil {
		return nil, err
	}

	result := &CreateContentResult{Content: content}
	for _, row := range gifRows {
		result.Media = append(result.Media, *row)
	}

	uploaded, failed := s.uploadAll(ctx, content.ID, in.Attachments)
	result.Failed = failed

	if len(uploaded) > 0 {
		if err := s.mediaRepo.CreateBatch(ctx, uploaded); err != nil {
			// The uploads are durable but unrecorded. Undo them remotely
			// and surface every attachment as failed.
			s.logger.Error("media rows not persisted, compensating", "content_id", content.ID, "error", err)
			for _, row := range uploaded {
				s.deleteRemote(ctx, row.ExternalID, row.Kind)
				result.Failed = append(result.Failed, AttachmentFailure{
					Filename: row.URL,
					Reason:   "attachment could not be recorded",
				})
			}
		} else {
			for _, row := range uploaded {
				result.Media = append(result.Media, *row)
			}
		}
	}

	if result.Media == nil {
		result.Media = []models.Media{}
	}
	content.Media = result.Media
	return result, nil
}

// uploadAll pushes every attachment to the store concurrently and returns
// the rows for confirmed uploads alongside the failures. Completion order is
// not guaranteed.
func (s *AuthoringService) uploadAll(ctx context.Context, contentID string, attachments []Attachment) ([]*models.Media, []AttachmentFailure) {
	if len(attachments) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		uploaded []*models.Media
		failed   []AttachmentFailure
	)

	for i := range attachments {
		att := attachments[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			row, err := s.uploadOne(ctx, contentID, att)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				observability.MediaUploads.WithLabelValues("failure").Inc()
				s.logger.Warn("attachment upload failed", "content_id", contentID, "filename", att.Filename, "error", err)
				failed = append(failed, AttachmentFailure{Filename: att.Filename, Reason: err.Error()})
				return
			}
			observability.MediaUploads.WithLabelValues("success").Inc()
			uploaded = append(uploaded, row)
		}()
	}
	wg.Wait()

	return uploaded, failed
}

func (s *AuthoringService) uploadOne(ctx context.Context, contentID string, att Attachment) (*models.Media, error) {
	kind, folder, resourceType, err := classifyAttachment(att.ContentType)
	if err != nil {
		return nil, err
	}

	opts := mediastore.UploadOptions{Folder: folder, ResourceType: resourceType}

	var res *mediastore.UploadResult
	if kind == models.MediaKindVideo && att.Reader != nil {
		res, err = s.store.UploadStream(ctx, att.Reader, att.Size, att.ContentType, opts)
	} else {
		res, err = s.store.Upload(ctx, att.Data, att.ContentType, opts)
	}
	if err != nil {
		return nil, models.NewUploadError(err)
	}

	return &models.Media{
		ID:         uuid.NewString(),
		ContentID:  contentID,
		Kind:       kind,
		URL:        res.SecureURL,
		ExternalID: res.ExternalID,
	}, nil
}

// classifyAttachment maps a declared MIME type onto a media kind and its
// store placement.
func classifyAttachment(contentType string) (kind, folder, resourceType string, err error) {
	switch {
	case contentType == "image/gif":
		return models.MediaKindGif, mediastore.FolderGifs, "image", nil
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaKindVideo, mediastore.FolderVideos, "video", nil
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaKindImage, mediastore.FolderPhotos, "image", nil
	}
	return "", "", "", models.NewValidationError("Unsupported attachment type: " + contentType)
}

// EditContent revises an item's text, gif reference and/or its attachment.
//
// A replacement is uploaded before the database is touched; the row update
// and the media swap share one transaction, so the item never has neither
// the old nor the new attachment. The replaced row's old remote object is
// removed last, best effort; any other media rows keep their objects.
// Editing an id that no longer exists is a no-op.
func (s *AuthoringService) EditContent(ctx context.Context, in EditContentInput) (*models.Content, error) {
	existing, err := s.contentRepo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if existing.AuthorUsername != in.Editor {
		return nil, models.NewUnauthorizedError("Only the author can edit this")
	}

	// The swap targets the item's primary (oldest) media row; any other rows
	// stay untouched, so only that row's old remote object may be cleaned up.
	var replaced *models.Media
	edit := repository.ContentEdit{
		Body:     in.Body,
		GifURL:   in.GifURL,
		EditedAt: time.Now().UTC(),
	}

	if in.Replacement != nil {
		oldRows, err := s.mediaRepo.ListByContent(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		if len(oldRows) > 0 {
			replaced = &oldRows[0]
		}

		row, err := s.uploadOne(ctx, in.ID, *in.Replacement)
		if err != nil {
			observability.MediaUploads.WithLabelValues("failure").Inc()
			return nil, err
		}
		observability.MediaUploads.WithLabelValues("success").Inc()
		edit.Media = row
	}

	if err := s.contentRepo.ApplyEdit(ctx, in.ID, edit); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Row vanished between the read and the write. Undo the fresh
			// upload and treat the edit as targeting nothing.
			if edit.Media != nil {
				s.deleteRemote(ctx, edit.Media.ExternalID, edit.Media.Kind)
			}
			return nil, nil
		}
		return nil, err
	}

	if replaced != nil && replaced.ExternalID != "" {
		s.deleteRemote(ctx, replaced.ExternalID, replaced.Kind)
	}

	return s.contentRepo.GetByID(ctx, in.ID)
}

// DeleteContent removes an item. Remote assets are deleted best effort with
// per-asset outcomes reported; the row deletion happens regardless of how
// the remote cleanup went.
func (s *AuthoringService) DeleteContent(ctx context.Context, in DeleteContentInput) (*DeleteContentResult, error) {
	existing, err := s.contentRepo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Content", in.ID)
		}
		return nil, err
	}
	if existing.AuthorUsername != in.Actor {
		return nil, models.NewUnauthorizedError("Only the author can delete this")
	}

	cascade := in.OnDelete != ReplyOrphan

	doomed := []string{in.ID}
	if cascade {
		descendants, err := s.contentRepo.DescendantIDs(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		doomed = append(doomed, descendants...)
	}

	rows, err := s.mediaRepo.ListByContents(ctx, doomed)
	if err != nil {
		return nil, err
	}

	result := &DeleteContentResult{Deleted: in.ID}
	for _, row := range rows {
		if row.ExternalID == "" {
			continue
		}
		outcome := CleanupOutcome{ExternalID: row.ExternalID, OK: true}
		if err := s.deleteRemote(ctx, row.ExternalID, row.Kind); err != nil {
			outcome.OK = false
			outcome.Reason = err.Error()
		}
		result.Cleanup = append(result.Cleanup, outcome)
	}

	if err := s.contentRepo.Delete(ctx, in.ID, cascade); err != nil {
		return nil, err
	}

	return result, nil
}

// deleteRemote removes one stored asset. An already-missing asset counts as
// success.
func (s *AuthoringService) deleteRemote(ctx context.Context, externalID, kind string) error {
	resourceType := "image"
	if kind == models.MediaKindVideo {
		resourceType = "video"
	}
	err := s.store.Delete(ctx, externalID, mediastore.DeleteOptions{ResourceType: resourceType})
	if err != nil && !errors.Is(err, mediastore.ErrNotFound) {
		observability.MediaCleanups.WithLabelValues("failure").Inc()
		s.logger.Warn("remote media cleanup failed", "external_id", externalID, "error", err)
		return err
	}
	observability.MediaCleanups.WithLabelValues("success").Inc()
	return nil
}

// GetContent fetches a single item with its media.
func (s *AuthoringService) GetContent(ctx context.Context, id string) (*models.Content, error) {
	content, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Content", id)
		}
		return nil, err
	}
	media, err := s.mediaRepo.ListByContent(ctx, id)
	if err != nil {
		return nil, err
	}
	if media == nil {
		media = []models.Media{}
	}
	content.Media = media
	return content, nil
}

// ListMedia lists the media rows bound to one content item.
func (s *AuthoringService) ListMedia(ctx context.Context, contentID string) ([]models.Media, error) {
	return s.mediaRepo.ListByContent(ctx, contentID)
}
