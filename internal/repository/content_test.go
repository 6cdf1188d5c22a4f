package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"myfeed/internal/models"
	"myfeed/internal/testutil"
)

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.NewString(),
		Username: username,
		Name:     username,
		Email:    username + "@example.com",
		Password: "hashed",
		Verified: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedPost(t *testing.T, db *gorm.DB, author, body string) *models.Content {
	t.Helper()
	post := &models.Content{
		ID:             uuid.NewString(),
		Kind:           models.ContentKindPost,
		AuthorUsername: author,
		Body:           body,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func seedComment(t *testing.T, db *gorm.DB, author, postID string, parentID *string) *models.Content {
	t.Helper()
	comment := &models.Content{
		ID:             uuid.NewString(),
		Kind:           models.ContentKindComment,
		AuthorUsername: author,
		Body:           "a comment",
		PostID:         &postID,
		ParentID:       parentID,
	}
	require.NoError(t, db.Create(comment).Error)
	return comment
}

func TestContentRepository_GetByID_LikesCount(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	seedUser(t, db, "bob")
	post := seedPost(t, db, "alice", "hello")

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.LikesCount, "no likes must read as zero")
	require.NotNil(t, got.Author)
	assert.Equal(t, "alice", got.Author.Username)

	require.NoError(t, db.Create(&models.Like{ID: uuid.NewString(), PostID: &post.ID, Username: "bob"}).Error)

	got, err = repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.LikesCount)
}

func TestContentRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestContentRepository_List_OrderAndPaging(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 6; i++ {
		post := &models.Content{
			ID:             uuid.NewString(),
			Kind:           models.ContentKindPost,
			AuthorUsername: "alice",
			Body:           "post",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(post).Error)
		ids = append(ids, post.ID)
	}

	page1, err := repo.List(ctx, ContentFilter{Kind: models.ContentKindPost}, 4, 0)
	require.NoError(t, err)
	require.Len(t, page1, 4)
	assert.Equal(t, ids[5], page1[0].ID, "newest first")
	assert.Equal(t, ids[2], page1[3].ID)

	page2, err := repo.List(ctx, ContentFilter{Kind: models.ContentKindPost}, 4, 4)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, ids[1], page2[0].ID)

	all, err := repo.List(ctx, ContentFilter{Kind: models.ContentKindPost}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 6, "no limit returns the full set")
}

func TestContentRepository_List_FollowedBy(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	seedUser(t, db, "bob")
	seedUser(t, db, "carol")
	seedPost(t, db, "alice", "from alice")
	seedPost(t, db, "bob", "from bob")

	require.NoError(t, db.Create(&models.Follow{FollowedUsername: "alice", FollowerUsername: "carol"}).Error)

	feed, err := repo.List(ctx, ContentFilter{Kind: models.ContentKindPost, FollowedBy: "carol"}, 4, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "alice", feed[0].AuthorUsername)
}

func TestContentRepository_List_CommentsAndReplies(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	post := seedPost(t, db, "alice", "root")
	top := seedComment(t, db, "alice", post.ID, nil)
	seedComment(t, db, "alice", post.ID, &top.ID)

	topLevel, err := repo.List(ctx, ContentFilter{Kind: models.ContentKindComment, PostID: post.ID, TopLevel: true}, 0, 0)
	require.NoError(t, err)
	require.Len(t, topLevel, 1)
	assert.Equal(t, top.ID, topLevel[0].ID)

	replies, err := repo.List(ctx, ContentFilter{ParentID: top.ID}, 0, 0)
	require.NoError(t, err)
	require.Len(t, replies, 1)
}

func TestContentRepository_CreateValidatesShape(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	post := seedPost(t, db, "alice", "anchor")

	tests := []struct {
		name    string
		content *models.Content
	}{
		{
			name: "unknown kind",
			content: &models.Content{
				ID: uuid.NewString(), Kind: "page", AuthorUsername: "alice", Body: "x",
			},
		},
		{
			name: "comment without a post",
			content: &models.Content{
				ID: uuid.NewString(), Kind: models.ContentKindComment, AuthorUsername: "alice", Body: "x",
			},
		},
		{
			name: "post with a parent",
			content: &models.Content{
				ID: uuid.NewString(), Kind: models.ContentKindPost, AuthorUsername: "alice", Body: "x",
				ParentID: &post.ID,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.content)
			require.Error(t, err)

			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, models.CodeValidation, appErr.Code)
		})
	}

	// Shape checks guard creation only; column edits on an existing row
	// must not be rejected for fields they do not touch.
	body := "edited"
	require.NoError(t, repo.ApplyEdit(ctx, post.ID, ContentEdit{Body: &body, EditedAt: time.Now()}))
}

func TestContentRepository_ApplyEdit_TextOnly(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	post := seedPost(t, db, "alice", "before")

	body := "after"
	now := time.Now().Truncate(time.Second)
	require.NoError(t, repo.ApplyEdit(ctx, post.ID, ContentEdit{Body: &body, EditedAt: now}))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Body)
	require.NotNil(t, got.EditedAt)
}

func TestContentRepository_ApplyEdit_MediaSwapKeepsRow(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	post := seedPost(t, db, "alice", "with media")
	old := &models.Media{
		ID:         uuid.NewString(),
		ContentID:  post.ID,
		Kind:       models.MediaKindImage,
		URL:        "https://media.test/old.jpg",
		ExternalID: "photos/old",
	}
	require.NoError(t, db.Create(old).Error)

	require.NoError(t, repo.ApplyEdit(ctx, post.ID, ContentEdit{
		EditedAt: time.Now(),
		Media: &models.Media{
			ID:         uuid.NewString(),
			Kind:       models.MediaKindVideo,
			URL:        "https://media.test/new.mp4",
			ExternalID: "videos/new",
		},
	}))

	var rows []models.Media
	require.NoError(t, db.Where("content_id = ?", post.ID).Find(&rows).Error)
	require.Len(t, rows, 1, "swap must not duplicate the row")
	assert.Equal(t, old.ID, rows[0].ID)
	assert.Equal(t, models.MediaKindVideo, rows[0].Kind)
	assert.Equal(t, "videos/new", rows[0].ExternalID)
}

func TestContentRepository_ApplyEdit_MissingRow(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)

	body := "x"
	err := repo.ApplyEdit(context.Background(), uuid.NewString(), ContentEdit{Body: &body, EditedAt: time.Now()})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestContentRepository_Delete_CascadeReplies(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	seedUser(t, db, "bob")
	post := seedPost(t, db, "alice", "root")
	top := seedComment(t, db, "alice", post.ID, nil)
	reply := seedComment(t, db, "bob", post.ID, &top.ID)
	nested := seedComment(t, db, "alice", post.ID, &reply.ID)

	require.NoError(t, db.Create(&models.Like{ID: uuid.NewString(), CommentID: &reply.ID, Username: "alice"}).Error)
	require.NoError(t, db.Create(&models.Media{
		ID: uuid.NewString(), ContentID: nested.ID, Kind: models.MediaKindGif, URL: "https://g.test/a.gif",
	}).Error)

	require.NoError(t, repo.Delete(ctx, top.ID, true))

	var remaining int64
	require.NoError(t, db.Model(&models.Content{}).Where("id IN ?", []string{top.ID, reply.ID, nested.ID}).Count(&remaining).Error)
	assert.Zero(t, remaining)

	var likes int64
	require.NoError(t, db.Model(&models.Like{}).Count(&likes).Error)
	assert.Zero(t, likes)

	var media int64
	require.NoError(t, db.Model(&models.Media{}).Count(&media).Error)
	assert.Zero(t, media)
}

func TestContentRepository_Delete_OrphanReplies(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	post := seedPost(t, db, "alice", "root")
	top := seedComment(t, db, "alice", post.ID, nil)
	reply := seedComment(t, db, "alice", post.ID, &top.ID)

	require.NoError(t, repo.Delete(ctx, top.ID, false))

	var survivor models.Content
	require.NoError(t, db.First(&survivor, "id = ?", reply.ID).Error)
	assert.Nil(t, survivor.ParentID, "orphaned reply is promoted to top level")
}

func TestContentRepository_DescendantIDs(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewContentRepository(db)
	ctx := context.Background()

	seedUser(t, db, "alice")
	post := seedPost(t, db, "alice", "root")
	top := seedComment(t, db, "alice", post.ID, nil)
	reply := seedComment(t, db, "alice", post.ID, &top.ID)
	nested := seedComment(t, db, "alice", post.ID, &reply.ID)

	ids, err := repo.DescendantIDs(ctx, top.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{reply.ID, nested.ID}, ids)
}
