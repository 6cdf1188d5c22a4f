// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"time"

	"myfeed/internal/models"

	"gorm.io/gorm"
)

// ContentFilter narrows a content listing. Zero values mean "no constraint".
type ContentFilter struct {
	// Kind restricts to posts or comments.
	Kind string
	// Author restricts to items authored by this username.
	Author string
	// FollowedBy restricts to items whose author is followed by this username.
	FollowedBy string
	// PostID restricts to comments belonging to this post.
	PostID string
	// ParentID restricts to replies of this comment.
	ParentID string
	// TopLevel, with PostID, excludes replies.
	TopLevel bool
}

// ContentEdit describes an in-place revision. Nil fields are left untouched.
// Media, when set, replaces (or installs) the item's primary media row inside
// the same transaction as the text update, so the item never passes through a
// state with neither the old nor the new attachment.
type ContentEdit struct {
	Body     *string
	GifURL   *string
	EditedAt time.Time
	Media    *models.Media
}

// ContentRepository defines the interface for content data operations
type ContentRepository interface {
	Create(ctx context.Context, content *models.Content) error
	// CreateWithMedia commits the content row and the given media rows
	// together; either all of it lands or none of it does.
	CreateWithMedia(ctx context.Context, content *models.Content, rows []*models.Media) error
	GetByID(ctx context.Context, id string) (*models.Content, error)
	List(ctx context.Context, filter ContentFilter, limit, offset int) ([]*models.Content, error)
	ApplyEdit(ctx context.Context, id string, edit ContentEdit) error
	Delete(ctx context.Context, id string, cascadeReplies bool) error
	DescendantIDs(ctx context.Context, id string) ([]string, error)
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) Create(ctx context.Context, content *models.Content) error {
	return r.db.WithContext(ctx).Create(content).Error
}

func (r *contentRepository) CreateWithMedia(ctx context.Context, content *models.Content, rows []*models.Media) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(content).Error; err != nil {
			return err
		}
		for _, row := range rows {
			row.ContentID = content.ID
			if err := tx.Create(row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *contentRepository) GetByID(ctx context.Context, id string) (*models.Content, error) {
	var content models.Content
	err := r.applyContentDetails(r.db.WithContext(ctx)).
		Preload("Author").
		First(&content, "contents.id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *contentRepository) List(ctx context.Context, filter ContentFilter, limit, offset int) ([]*models.Content, error) {
	q := r.applyContentDetails(r.db.WithContext(ctx)).
		Preload("Author")

	if filter.Kind != "" {
		q = q.Where("contents.kind = ?", filter.Kind)
	}
	if filter.Author != "" {
		q = q.Where("contents.author_username = ?", filter.Author)
	}
	if filter.FollowedBy != "" {
		q = q.Joins(
			"JOIN follows ON follows.followed_username = contents.author_username AND follows.follower_username = ?",
			filter.FollowedBy,
		)
	}
	if filter.PostID != "" {
		q = q.Where("contents.post_id = ?", filter.PostID)
	}
	if filter.ParentID != "" {
		q = q.Where("contents.parent_id = ?", filter.ParentID)
	}
	if filter.TopLevel {
		q = q.Where("contents.parent_id IS NULL")
	}

	q = q.Order("contents.created_at DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	var contents []*models.Content
	if err := q.Find(&contents).Error; err != nil {
		return nil, err
	}
	return contents, nil
}

// applyContentDetails adds the like count subquery so every row carries its
// aggregate in a single query. An item with no likes reports 0.
func (r *contentRepository) applyContentDetails(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Content{}).Select(
		"contents.*, " +
			"(SELECT COUNT(*) FROM likes WHERE likes.post_id = contents.id OR likes.comment_id = contents.id) as likes_count",
	)
}

func (r *contentRepository) ApplyEdit(ctx context.Context, id string, edit ContentEdit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Content
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"updated_at": edit.EditedAt}
		if edit.Body != nil {
			updates["body"] = *edit.Body
		}
		if edit.GifURL != nil {
			updates["gif_url"] = *edit.GifURL
		}
		if err := tx.Model(&models.Content{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		if edit.Media == nil {
			return nil
		}

		// Swap the primary media row in place. Updating rather than
		// delete-and-insert keeps an attachment visible throughout. The
		// ordering must match ListByContent so callers can tell which row
		// was swapped.
		var current models.Media
		err := tx.Where("content_id = ?", id).Order("created_at ASC, id ASC").First(&current).Error
		switch {
		case err == nil:
			return tx.Model(&models.Media{}).Where("id = ?", current.ID).Updates(map[string]interface{}{
				"kind":        edit.Media.Kind,
				"url":         edit.Media.URL,
				"external_id": edit.Media.ExternalID,
			}).Error
		case err == gorm.ErrRecordNotFound:
			edit.Media.ContentID = id
			return tx.Create(edit.Media).Error
		default:
			return err
		}
	})
}

// DescendantIDs walks the reply tree below id, breadth first.
func (r *contentRepository) DescendantIDs(ctx context.Context, id string) ([]string, error) {
	var all []string
	frontier := []string{id}
	for len(frontier) > 0 {
		var next []string
		err := r.db.WithContext(ctx).
			Model(&models.Content{}).
			Where("parent_id IN ?", frontier).
			Pluck("id", &next).Error
		if err != nil {
			return nil, err
		}
		all = append(all, next...)
		frontier = next
	}
	return all, nil
}

func (r *contentRepository) Delete(ctx context.Context, id string, cascadeReplies bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doomed := []string{id}
		if cascadeReplies {
			frontier := []string{id}
			for len(frontier) > 0 {
				var next []string
				if err := tx.Model(&models.Content{}).
					Where("parent_id IN ?", frontier).
					Pluck("id", &next).Error; err != nil {
					return err
				}
				doomed = append(doomed, next...)
				frontier = next
			}
		} else {
			// Surviving replies are promoted to top level.
			if err := tx.Model(&models.Content{}).
				Where("parent_id = ?", id).
				Update("parent_id", nil).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("post_id IN ? OR comment_id IN ?", doomed, doomed).
			Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id IN ?", doomed).
			Delete(&models.Media{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", doomed).Delete(&models.Content{}).Error
	})
}
