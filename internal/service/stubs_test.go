package service

import (
	"context"

	"myfeed/internal/models"
	"myfeed/internal/repository"
)

// Function-field stubs so each test overrides only what it needs.

type stubContentRepo struct {
	CreateFn          func(ctx context.Context, content *models.Content) error
	CreateWithMediaFn func(ctx context.Context, content *models.Content, rows []*models.Media) error
	GetByIDFn         func(ctx context.Context, id string) (*models.Content, error)
	ListFn            func(ctx context.Context, filter repository.ContentFilter, limit, offset int) ([]*models.Content, error)
	ApplyEditFn       func(ctx context.Context, id string, edit repository.ContentEdit) error
	DeleteFn          func(ctx context.Context, id string, cascadeReplies bool) error
	DescendantIDsFn   func(ctx context.Context, id string) ([]string, error)
}

func (s *stubContentRepo) Create(ctx context.Context, content *models.Content) error {
	return s.CreateFn(ctx, content)
}

func (s *stubContentRepo) CreateWithMedia(ctx context.Context, content *models.Content, rows []*models.Media) error {
	return s.CreateWithMediaFn(ctx, content, rows)
}

func (s *stubContentRepo) GetByID(ctx context.Context, id string) (*models.Content, error) {
	return s.GetByIDFn(ctx, id)
}

func (s *stubContentRepo) List(ctx context.Context, filter repository.ContentFilter, limit, offset int) ([]*models.Content, error) {
	return s.ListFn(ctx, filter, limit, offset)
}

func (s *stubContentRepo) ApplyEdit(ctx context.Context, id string, edit repository.ContentEdit) error {
	return s.ApplyEditFn(ctx, id, edit)
}

func (s *stubContentRepo) Delete(ctx context.Context, id string, cascadeReplies bool) error {
	return s.DeleteFn(ctx, id, cascadeReplies)
}

func (s *stubContentRepo) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	return s.DescendantIDsFn(ctx, id)
}

type stubMediaRepo struct {
	CreateBatchFn    func(ctx context.Context, rows []*models.Media) error
	ListByContentFn  func(ctx context.Context, contentID string) ([]models.Media, error)
	ListByContentsFn func(ctx context.Context, contentIDs []string) ([]models.Media, error)
}

func (s *stubMediaRepo) CreateBatch(ctx context.Context, rows []*models.Media) error {
	return s.CreateBatchFn(ctx, rows)
}

func (s *stubMediaRepo) ListByContent(ctx context.Context, contentID string) ([]models.Media, error) {
	return s.ListByContentFn(ctx, contentID)
}

func (s *stubMediaRepo) ListByContents(ctx context.Context, contentIDs []string) ([]models.Media, error) {
	return s.ListByContentsFn(ctx, contentIDs)
}
