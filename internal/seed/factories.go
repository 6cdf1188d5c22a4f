// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"myfeed/internal/models"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rnd  *rand.Rand
}

// Options tune the seeder.
type Options struct {
	// SkipBcrypt stores the seed password as plain text for fast bulk runs.
	// Seed accounts cannot sign in then.
	SkipBcrypt bool
	// MaxDays spreads created_at timestamps over the given window.
	MaxDays int
}

// SeedPassword is the password every seeded account signs in with.
const SeedPassword = "Seed-Passw0rd-123"

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	return &Factory{
		db:   db,
		opts: opts,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// spreadBack returns a timestamp up to opts.MaxDays in the past.
func (f *Factory) spreadBack() time.Time {
	daysBack := f.rnd.Intn(f.opts.MaxDays)
	hoursBack := f.rnd.Intn(24)
	minsBack := f.rnd.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)
}

// CreateUser constructs and persists a sample verified user. Optional
// override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	username := fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999))
	user := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Name:     gofakeit.Name(),
		Email:    fmt.Sprintf("%s@example.com", username),
		Bio:      gofakeit.Sentence(10),
		Location: gofakeit.City(),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		Verified: true,
	}

	if f.opts.SkipBcrypt {
		user.Password = SeedPassword
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost constructs and persists a post for the given user, with a
// remote image reference roughly 40% of the time.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Content)) (*models.Content, error) {
	post := &models.Content{
		ID:             uuid.NewString(),
		Kind:           models.ContentKindPost,
		AuthorUsername: user.Username,
		Body:           gofakeit.Paragraph(1, 3, 8, "\n"),
		CreatedAt:      f.spreadBack(),
	}

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}

	if f.rnd.Float32() < 0.4 {
		media := &models.Media{
			ID:        uuid.NewString(),
			ContentID: post.ID,
			Kind:      models.MediaKindImage,
			URL:       fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
		}
		if err := f.db.Create(media).Error; err != nil {
			return nil, err
		}
	}
	return post, nil
}

// CreateComment persists a comment on post. A non-nil parent makes it a
// reply.
func (f *Factory) CreateComment(user *models.User, post *models.Content, parent *models.Content) (*models.Content, error) {
	comment := &models.Content{
		ID:             uuid.NewString(),
		Kind:           models.ContentKindComment,
		AuthorUsername: user.Username,
		Body:           gofakeit.Sentence(8),
		PostID:         &post.ID,
		CreatedAt:      f.spreadBack(),
	}
	if parent != nil {
		comment.ParentID = &parent.ID
	}

	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on the given item.
func (f *Factory) CreateLike(user *models.User, item *models.Content) error {
	like := &models.Like{
		ID:       uuid.NewString(),
		Username: user.Username,
	}
	if item.Kind == models.ContentKindComment {
		like.CommentID = &item.ID
	} else {
		like.PostID = &item.ID
	}
	return f.db.Create(like).Error
}

// CreateFollow persists a follow edge.
func (f *Factory) CreateFollow(followed, follower *models.User) error {
	return f.db.Create(&models.Follow{
		FollowedUsername: followed.Username,
		FollowerUsername: follower.Username,
	}).Error
}
