package service

import (
	"context"
	"log/slog"
	"sync"

	"myfeed/internal/models"
	"myfeed/internal/repository"
)

// PageSize is the fixed feed page length. Pages are 1-indexed; page 0 means
// the full ordered set.
const PageSize = 4

// FeedFilter selects which slice of the timeline to assemble. At most one
// of the fields is normally set; all empty means the global feed.
type FeedFilter struct {
	// FollowedBy limits to authors this username follows.
	FollowedBy string
	// Author limits to one author's items.
	Author string
	// PostID lists a post's top-level comments.
	PostID string
	// RepliesTo lists replies under a comment.
	RepliesTo string
}

// FeedService assembles ordered content listings with their authors, like
// counts and media.
type FeedService struct {
	contentRepo repository.ContentRepository
	mediaRepo   repository.MediaRepository
	logger      *slog.Logger
}

func NewFeedService(contentRepo repository.ContentRepository, mediaRepo repository.MediaRepository, logger *slog.Logger) *FeedService {
	return &FeedService{contentRepo: contentRepo, mediaRepo: mediaRepo, logger: logger}
}

// ListContent returns one feed page, newest first. Every item carries its
// author profile, its like count (zero when unliked) and its media; the
// media lookups for a page run concurrently and the page is only returned
// once all of them finished.
func (s *FeedService) ListContent(ctx context.Context, filter FeedFilter, page int) ([]*models.Content, error) {
	if page < 0 {
		return nil, models.NewValidationError("Page must be positive")
	}

	repoFilter := repository.ContentFilter{
		Kind:       models.ContentKindPost,
		Author:     filter.Author,
		FollowedBy: filter.FollowedBy,
	}
	if filter.PostID != "" {
		repoFilter = repository.ContentFilter{
			Kind:     models.ContentKindComment,
			PostID:   filter.PostID,
			TopLevel: true,
		}
	}
	if filter.RepliesTo != "" {
		repoFilter = repository.ContentFilter{
			Kind:     models.ContentKindComment,
			ParentID: filter.RepliesTo,
		}
	}

	limit, offset := 0, 0
	if page > 0 {
		limit = PageSize
		offset = (page - 1) * PageSize
	}

	items, err := s.contentRepo.List(ctx, repoFilter, limit, offset)
	if err != nil {
		return nil, err
	}

	if err := s.attachMedia(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// attachMedia runs the per-item media lookup fan-out and waits for the whole
// batch. Any single failure fails the page.
func (s *FeedService) attachMedia(ctx context.Context, items []*models.Content) error {
	if len(items) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, item := range items {
		item := item
		wg.Add(1)
		go func() {
			defer wg.Done()
			media, err := s.mediaRepo.ListByContent(ctx, item.ID)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if media == nil {
				media = []models.Media{}
			}
			item.Media = media
		}()
	}
	wg.Wait()

	return firstErr
}
