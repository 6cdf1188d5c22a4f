package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"myfeed/internal/cache"
	"myfeed/internal/mailer"
	"myfeed/internal/mediastore"
	"myfeed/internal/models"
	"myfeed/internal/repository"
	"myfeed/internal/validation"
)

const searchLimitDefault = 5

type SignupInput struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileInput struct {
	Username     string
	Name         *string
	Bio          *string
	Location     *string
	XURL         *string
	InstagramURL *string
	YoutubeURL   *string
	Avatar       *Attachment
	ProfileImage *Attachment
}

// AccountService owns signup, verification, signin checks and profile
// management.
type AccountService struct {
	userRepo   repository.UserRepository
	likeRepo   repository.LikeRepository
	followRepo repository.FollowRepository
	authoring  *AuthoringService
	store      mediastore.Store
	mail       mailer.Mailer
	publicURL  string
	logger     *slog.Logger
}

func NewAccountService(
	userRepo repository.UserRepository,
	likeRepo repository.LikeRepository,
	followRepo repository.FollowRepository,
	authoring *AuthoringService,
	store mediastore.Store,
	mail mailer.Mailer,
	publicURL string,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		userRepo:   userRepo,
		likeRepo:   likeRepo,
		followRepo: followRepo,
		authoring:  authoring,
		store:      store,
		mail:       mail,
		publicURL:  publicURL,
		logger:     logger,
	}
}

// Signup registers a new account and sends the verification mail. The mail
// send is best effort; a delivery failure does not undo the signup.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Name == "" {
		in.Name = in.Username
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	token, err := newVerifyToken()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		ID:          uuid.NewString(),
		Username:    in.Username,
		Name:        in.Name,
		Email:       in.Email,
		Password:    string(hashed),
		VerifyToken: token,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewConflictError("Username or email already taken")
		}
		return nil, err
	}

	verifyURL := fmt.Sprintf("%s/api/auth/verify/%s", s.publicURL, token)
	if err := s.mail.SendVerification(ctx, user.Email, user.Username, verifyURL); err != nil {
		s.logger.Warn("verification mail not delivered", "username", user.Username, "error", err)
	}

	return user, nil
}

// Verify flips the account to verified for a valid token. The token is
// single use.
func (s *AccountService) Verify(ctx context.Context, token string) error {
	if token == "" {
		return models.NewValidationError("Verification token is required")
	}
	user, err := s.userRepo.GetByVerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Verification token", token)
		}
		return err
	}

	user.Verified = true
	user.VerifyToken = ""
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, user.Username)
	return nil
}

// Authenticate checks credentials for signin. Unverified accounts are
// rejected.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("Invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid email or password")
	}
	if !user.Verified {
		return nil, models.NewUnauthorizedError("Account not verified, check your mail")
	}
	return user, nil
}

// DeleteAccount removes the user and everything they authored, including
// remote media.
func (s *AccountService) DeleteAccount(ctx context.Context, username string) error {
	if _, err := s.userRepo.GetByUsername(ctx, username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("User", username)
		}
		return err
	}

	authored, err := s.authoring.contentRepo.List(ctx, repository.ContentFilter{Author: username}, 0, 0)
	if err != nil {
		return err
	}
	for _, item := range authored {
		_, err := s.authoring.DeleteContent(ctx, DeleteContentInput{
			ID:       item.ID,
			Actor:    username,
			OnDelete: ReplyCascade,
		})
		if err != nil {
			// Items already removed as part of another item's reply tree.
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
				continue
			}
			return err
		}
	}

	if err := s.likeRepo.RemoveAllBy(ctx, username); err != nil {
		return err
	}
	if err := s.followRepo.RemoveAllFor(ctx, username); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, username); err != nil {
		return err
	}
	cache.InvalidateUser(ctx, username)
	return nil
}

// UpdateProfile edits profile fields and optionally replaces the avatar
// and/or profile image. Uploaded images are validated and re-encoded before
// they reach the store.
func (s *AccountService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", in.Username)
		}
		return nil, err
	}

	if in.Avatar != nil {
		encoded, contentType, err := processProfileImage(in.Avatar.Data, in.Avatar.ContentType, AvatarMaxSize, true)
		if err != nil {
			return nil, err
		}
		res, err := s.store.Upload(ctx, encoded, contentType, mediastore.UploadOptions{
			Folder:       mediastore.FolderAvatars,
			ResourceType: "image",
		})
		if err != nil {
			return nil, models.NewUploadError(err)
		}
		user.Avatar = res.SecureURL
	}

	if in.ProfileImage != nil {
		decoded, _, err := processProfileImage(in.ProfileImage.Data, in.ProfileImage.ContentType, ProfileImageMaxSize, false)
		if err != nil {
			return nil, err
		}
		res, err := s.store.Upload(ctx, decoded, "image/webp", mediastore.UploadOptions{
			Folder:       mediastore.FolderAvatars,
			ResourceType: "image",
		})
		if err != nil {
			return nil, models.NewUploadError(err)
		}
		user.ProfileImage = res.SecureURL
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Location != nil {
		user.Location = *in.Location
	}
	if in.XURL != nil {
		user.XURL = *in.XURL
	}
	if in.InstagramURL != nil {
		user.InstagramURL = *in.InstagramURL
	}
	if in.YoutubeURL != nil {
		user.YoutubeURL = *in.YoutubeURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	cache.InvalidateUser(ctx, user.Username)
	return user, nil
}

// GetProfile fetches a user, through the cache when possible.
func (s *AccountService) GetProfile(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(username), &user, cache.UserTTL, func() error {
		found, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return err
		}
		user = *found
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", username)
		}
		return nil, err
	}
	return &user, nil
}

func (s *AccountService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.userRepo.List(ctx, limit, offset)
}

func (s *AccountService) SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error) {
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	if limit <= 0 {
		limit = searchLimitDefault
	}
	return s.userRepo.Search(ctx, query, limit)
}

// LikesReceived totals the likes across everything the user authored.
func (s *AccountService) LikesReceived(ctx context.Context, username string) (int64, error) {
	return s.likeRepo.CountReceivedByAuthor(ctx, username)
}

func newVerifyToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
