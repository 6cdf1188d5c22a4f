package repository

import (
	"context"
	"errors"

	"myfeed/internal/models"

	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	// Add records a like. Liking the same target twice is a no-op.
	Add(ctx context.Context, like *models.Like) error
	RemoveForPost(ctx context.Context, postID, username string) error
	RemoveForComment(ctx context.Context, commentID, username string) error
	StatusForPost(ctx context.Context, postID, username string) (bool, error)
	StatusForComment(ctx context.Context, commentID, username string) (bool, error)
	// CountReceivedByAuthor totals likes across everything the user authored.
	CountReceivedByAuthor(ctx context.Context, username string) (int64, error)
	// UsersWhoLiked lists the public profiles of everyone who liked a post.
	UsersWhoLiked(ctx context.Context, postID string) ([]models.PublicProfile, error)
	// RemoveAllBy drops every like a user has given. Used on account deletion.
	RemoveAllBy(ctx context.Context, username string) error
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Add(ctx context.Context, like *models.Like) error {
	err := r.db.WithContext(ctx).Create(like).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (r *likeRepository) RemoveForPost(ctx context.Context, postID, username string) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND username = ?", postID, username).
		Delete(&models.Like{}).Error
}

func (r *likeRepository) RemoveForComment(ctx context.Context, commentID, username string) error {
	return r.db.WithContext(ctx).
		Where("comment_id = ? AND username = ?", commentID, username).
		Delete(&models.Like{}).Error
}

func (r *likeRepository) StatusForPost(ctx context.Context, postID, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("post_id = ? AND username = ?", postID, username).
		Count(&count).Error
	return count > 0, err
}

func (r *likeRepository) StatusForComment(ctx context.Context, commentID, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("comment_id = ? AND username = ?", commentID, username).
		Count(&count).Error
	return count > 0, err
}

func (r *likeRepository) RemoveAllBy(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).
		Where("username = ?", username).
		Delete(&models.Like{}).Error
}

func (r *likeRepository) CountReceivedByAuthor(ctx context.Context, username string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Joins("JOIN contents ON contents.id = likes.post_id OR contents.id = likes.comment_id").
		Where("contents.author_username = ?", username).
		Count(&count).Error
	return count, err
}

func (r *likeRepository) UsersWhoLiked(ctx context.Context, postID string) ([]models.PublicProfile, error) {
	var profiles []models.PublicProfile
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.id, users.username, users.name, users.avatar").
		Joins("JOIN likes ON likes.username = users.username").
		Where("likes.post_id = ?", postID).
		Order("likes.created_at DESC").
		Find(&profiles).Error
	return profiles, err
}
