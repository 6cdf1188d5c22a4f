package seed

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"myfeed/internal/models"
)

// Seeder populates the database with demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder with default options.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// ClearAll deletes every seeded table, children first.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, model := range []any{
		&models.Like{},
		&models.Follow{},
		&models.Media{},
		&models.Content{},
		&models.User{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// SeedSocialMesh creates users and a follow graph among them. Each user
// follows a handful of others.
func (s *Seeder) SeedSocialMesh(numUsers int) ([]*models.User, error) {
	users := make([]*models.User, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, user)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d users...", i)
		}
	}

	for _, follower := range users {
		edges := s.factory.rnd.Intn(6)
		for e := 0; e < edges; e++ {
			followed := users[s.factory.rnd.Intn(len(users))]
			if followed.Username == follower.Username {
				continue
			}
			// Duplicate edges collide on the composite key; skip them.
			_ = s.factory.CreateFollow(followed, follower)
		}
	}

	log.Printf("Seeded %d users with follow edges", len(users))
	return users, nil
}

// SeedEngagement creates posts with comment threads and likes across the
// given users.
func (s *Seeder) SeedEngagement(users []*models.User, numPosts int) error {
	if len(users) == 0 {
		return fmt.Errorf("no users to seed engagement for")
	}

	pick := func() *models.User {
		return users[s.factory.rnd.Intn(len(users))]
	}

	for i := 0; i < numPosts; i++ {
		post, err := s.factory.CreatePost(pick())
		if err != nil {
			return fmt.Errorf("create post: %w", err)
		}

		numComments := s.factory.rnd.Intn(4)
		for c := 0; c < numComments; c++ {
			comment, err := s.factory.CreateComment(pick(), post, nil)
			if err != nil {
				return fmt.Errorf("create comment: %w", err)
			}
			if s.factory.rnd.Float32() < 0.3 {
				if _, err := s.factory.CreateComment(pick(), post, comment); err != nil {
					return fmt.Errorf("create reply: %w", err)
				}
			}
		}

		numLikes := s.factory.rnd.Intn(5)
		for l := 0; l < numLikes; l++ {
			// Duplicate likes collide on the unique index; skip them.
			_ = s.factory.CreateLike(pick(), post)
		}

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d posts...", i)
		}
	}

	log.Printf("Seeded %d posts with comments and likes", numPosts)
	return nil
}
