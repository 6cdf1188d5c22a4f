package repository

import (
	"context"

	"myfeed/internal/models"

	"gorm.io/gorm"
)

// MediaRepository defines the interface for media row operations
type MediaRepository interface {
	// CreateBatch persists all rows in one transaction; either every row
	// commits or none does.
	CreateBatch(ctx context.Context, rows []*models.Media) error
	ListByContent(ctx context.Context, contentID string) ([]models.Media, error)
	ListByContents(ctx context.Context, contentIDs []string) ([]models.Media, error)
}

type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) CreateBatch(ctx context.Context, rows []*models.Media) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByContent returns a content item's media rows, primary row first. The
// id tie-break keeps the order stable when rows share a creation timestamp.
func (r *mediaRepository) ListByContent(ctx context.Context, contentID string) ([]models.Media, error) {
	var rows []models.Media
	err := r.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *mediaRepository) ListByContents(ctx context.Context, contentIDs []string) ([]models.Media, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}
	var rows []models.Media
	err := r.db.WithContext(ctx).
		Where("content_id IN ?", contentIDs).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
