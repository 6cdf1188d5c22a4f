package repository

import (
	"context"
	"errors"

	"myfeed/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines the interface for follow edge operations
type FollowRepository interface {
	// Add records a follow edge. Following twice is a no-op.
	Add(ctx context.Context, follow *models.Follow) error
	Remove(ctx context.Context, followedUsername, followerUsername string) error
	IsFollowing(ctx context.Context, followedUsername, followerUsername string) (bool, error)
	// Followers lists who follows username.
	Followers(ctx context.Context, username string) ([]models.PublicProfile, error)
	// Following lists who username follows.
	Following(ctx context.Context, username string) ([]models.PublicProfile, error)
	// RemoveAllFor drops every edge touching username. Used on account deletion.
	RemoveAllFor(ctx context.Context, username string) error
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Add(ctx context.Context, follow *models.Follow) error {
	err := r.db.WithContext(ctx).Create(follow).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

func (r *followRepository) Remove(ctx context.Context, followedUsername, followerUsername string) error {
	return r.db.WithContext(ctx).
		Where("followed_username = ? AND follower_username = ?", followedUsername, followerUsername).
		Delete(&models.Follow{}).Error
}

func (r *followRepository) IsFollowing(ctx context.Context, followedUsername, followerUsername string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("followed_username = ? AND follower_username = ?", followedUsername, followerUsername).
		Count(&count).Error
	return count > 0, err
}

func (r *followRepository) RemoveAllFor(ctx context.Context, username string) error {
	return r.db.WithContext(ctx).
		Where("followed_username = ? OR follower_username = ?", username, username).
		Delete(&models.Follow{}).Error
}

func (r *followRepository) Followers(ctx context.Context, username string) ([]models.PublicProfile, error) {
	var profiles []models.PublicProfile
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.id, users.username, users.name, users.avatar").
		Joins("JOIN follows ON follows.follower_username = users.username").
		Where("follows.followed_username = ?", username).
		Order("follows.created_at DESC").
		Find(&profiles).Error
	return profiles, err
}

func (r *followRepository) Following(ctx context.Context, username string) ([]models.PublicProfile, error) {
	var profiles []models.PublicProfile
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.id, users.username, users.name, users.avatar").
		Joins("JOIN follows ON follows.followed_username = users.username").
		Where("follows.follower_username = ?", username).
		Order("follows.created_at DESC").
		Find(&profiles).Error
	return profiles, err
}
