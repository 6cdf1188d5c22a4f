package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"myfeed/internal/models"
	"myfeed/internal/repository"
)

// SocialService owns likes and follow edges.
type SocialService struct {
	contentRepo repository.ContentRepository
	likeRepo    repository.LikeRepository
	followRepo  repository.FollowRepository
	userRepo    repository.UserRepository
	logger      *slog.Logger
}

func NewSocialService(
	contentRepo repository.ContentRepository,
	likeRepo repository.LikeRepository,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	logger *slog.Logger,
) *SocialService {
	return &SocialService{
		contentRepo: contentRepo,
		likeRepo:    likeRepo,
		followRepo:  followRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

// LikePost records username's like on a post. Liking twice is a no-op.
func (s *SocialService) LikePost(ctx context.Context, postID, username string) error {
	if err := s.requireContent(ctx, postID, models.ContentKindPost); err != nil {
		return err
	}
	return s.likeRepo.Add(ctx, &models.Like{
		ID:       uuid.NewString(),
		PostID:   &postID,
		Username: username,
	})
}

func (s *SocialService) UnlikePost(ctx context.Context, postID, username string) error {
	return s.likeRepo.RemoveForPost(ctx, postID, username)
}

// LikeComment records username's like on a comment.
func (s *SocialService) LikeComment(ctx context.Context, commentID, username string) error {
	if err := s.requireContent(ctx, commentID, models.ContentKindComment); err != nil {
		return err
	}
	return s.likeRepo.Add(ctx, &models.Like{
		ID:        uuid.NewString(),
		CommentID: &commentID,
		Username:  username,
	})
}

func (s *SocialService) UnlikeComment(ctx context.Context, commentID, username string) error {
	return s.likeRepo.RemoveForComment(ctx, commentID, username)
}

func (s *SocialService) PostLikeStatus(ctx context.Context, postID, username string) (bool, error) {
	return s.likeRepo.StatusForPost(ctx, postID, username)
}

func (s *SocialService) CommentLikeStatus(ctx context.Context, commentID, username string) (bool, error) {
	return s.likeRepo.StatusForComment(ctx, commentID, username)
}

func (s *SocialService) UsersWhoLiked(ctx context.Context, postID string) ([]models.PublicProfile, error) {
	return s.likeRepo.UsersWhoLiked(ctx, postID)
}

// Follow makes follower follow followed. Self-follows are rejected by the
// model hook; following twice is a no-op.
func (s *SocialService) Follow(ctx context.Context, followed, follower string) error {
	if _, err := s.userRepo.GetByUsername(ctx, followed); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", followed)
		}
		return err
	}
	return s.followRepo.Add(ctx, &models.Follow{
		FollowedUsername: followed,
		FollowerUsername: follower,
	})
}

func (s *SocialService) Unfollow(ctx context.Context, followed, follower string) error {
	return s.followRepo.Remove(ctx, followed, follower)
}

func (s *SocialService) FollowStatus(ctx context.Context, followed, follower string) (bool, error) {
	return s.followRepo.IsFollowing(ctx, followed, follower)
}

func (s *SocialService) Followers(ctx context.Context, username string) ([]models.PublicProfile, error) {
	return s.followRepo.Followers(ctx, username)
}

func (s *SocialService) Following(ctx context.Context, username string) ([]models.PublicProfile, error) {
	return s.followRepo.Following(ctx, username)
}

func (s *SocialService) requireContent(ctx context.Context, id, kind string) error {
	content, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Content", id)
		}
		return err
	}
	if content.Kind != kind {
		return models.NewValidationError("Like target kind mismatch")
	}
	return nil
}
