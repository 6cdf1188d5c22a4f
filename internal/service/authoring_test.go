package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"myfeed/internal/models"
	"myfeed/internal/repository"
	"myfeed/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type createCall struct {
	content *models.Content
	rows    []*models.Media
}

func newAuthoringFixture() (*AuthoringService, *stubContentRepo, *stubMediaRepo, *testutil.FakeStore, *[]createCall, *[][]*models.Media) {
	var (
		mu      sync.Mutex
		creates []createCall
		batches [][]*models.Media
	)
	contentRepo := &stubContentRepo{
		CreateWithMediaFn: func(_ context.Context, content *models.Content, rows []*models.Media) error {
			mu.Lock()
			defer mu.Unlock()
			creates = append(creates, createCall{content: content, rows: rows})
			return nil
		},
	}
	mediaRepo := &stubMediaRepo{
		CreateBatchFn: func(_ context.Context, rows []*models.Media) error {
			mu.Lock()
			defer mu.Unlock()
			batches = append(batches, rows)
			return nil
		},
	}
	store := testutil.NewFakeStore()
	svc := NewAuthoringService(contentRepo, mediaRepo, store, discardLogger())
	return svc, contentRepo, mediaRepo, store, &creates, &batches
}

func TestCreateContent_EmptyRejectedBeforeSideEffects(t *testing.T) {
	svc, _, _, store, creates, _ := newAuthoringFixture()

	_, err := svc.CreateContent(context.Background(), CreateContentInput{
		Kind:   models.ContentKindPost,
		Author: "alice",
	})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeEmptyContent, appErr.Code)
	assert.Empty(t, *creates, "no row may be written")
	assert.Zero(t, store.UploadCount(), "no upload may be attempted")
}

func TestCreateContent_TextOnly(t *testing.T) {
	svc, _, _, store, creates, batches := newAuthoringFixture()

	res, err := svc.CreateContent(context.Background(), CreateContentInput{
		Kind:   models.ContentKindPost,
		Author: "alice",
		Body:   "hello world",
	})
	require.NoError(t, err)

	require.Len(t, *creates, 1)
	assert.Equal(t, "hello world", (*creates)[0].content.Body)
	assert.Empty(t, (*creates)[0].rows)
	assert.Empty(t, *batches)
	assert.Zero(t, store.UploadCount())
	assert.NotEmpty(t, res.Content.ID)
	assert.Empty(t, res.Failed)
	assert.NotNil(t, res.Media)
	assert.Empty(t, res.Media)
}

func TestCreateContent_GifRowCommitsWithContent(t *testing.T) {
	svc, _, _, store, creates, _ := newAuthoringFixture()

	res, err := svc.CreateContent(context.Background(), CreateContentInput{
		Kind:   models.ContentKindPost,
		Author: "alice",
		GifURL: "https://gifs.example/cat.gif",
	})
	require.NoError(t, err)

	require.Len(t, *creates, 1)
	require.Len(t, (*creates)[0].rows, 1)
	assert.Equal(t, models.MediaKindGif, (*creates)[0].rows[0].Kind)
	assert.Equal(t, "https://gifs.example/cat.gif", (*creates)[0].rows[0].URL)
	assert.Zero(t, store.UploadCount(), "a direct gif reference is not uploaded")
	require.Len(t, res.Media, 1)
}

func TestCreateContent_RowFailureAbortsBeforeUploads(t *testing.T) {
	svc, contentRepo, _, store, _, _ := newAuthoringFixture()
	contentRepo.CreateWithMediaFn = func(context.Context, *models.Content, []*models.Media) error {
		return errors.New("db down")
	}

	_, err := svc.CreateContent(context.Background(), CreateContentInput{
		Kind:        models.ContentKindPost,
		Author:      "alice",
		Body:        "text",
		Attachments: []Attachment{{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("x")}},
	})
	require.Error(t, err)
	assert.Zero(t, store.UploadCount(), "failed row commit must prevent uploads")
}

func TestCreateContent_AttachmentsUploadedAndPersisted(t *testing.T) {
	svc, _, _, store, _, batches := newAuthoringFixture()

	res, err := svc.CreateContent(context.Background(), CreateContentInput{
		Kind:   models.ContentKindPost,
		Author: "alice",
		Body:   "with media",
		Attachments: []Attachment{
			{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("jpegdata")},
			{Filename: "b.gif", ContentType: "image/gif", Data: []byte("gifdata")},
			{Filename: "c.mp4", ContentType: "video/mp4", Reader: strings.NewReader("videodata"), Size: 9},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, store.UploadCount())
	require.Len(t, *batches, 1)
	assert.Len(t, (*batches)[0], 3)
	assert.Len(t, res.Media, 3)
	assert.Empty(t, res.Failed)

	kinds := map[string]int{}
	folders := map[string]int{}
	for _, m := range res.Media {
		kinds[m.Kind]++
		assert.NotEmpty(t, m.URL)
		assert.NotEmpty(t, m.ExternalID)
	}
	for _, obj := range store.Stored {
		folders[obj.Folder]++
	}
	assert.Equal(t, map[string]int{"image": 1, "gif": 1, "video": 1}, kinds)
	assert.Equal(t, map[string]int{"photos": 1, "gifs": 1, "videos": 1}, folders)
}

func TestCreateContent_PartialUploadFailureIsExplicit(t *testing.T) {
	svc, _, _, store, _, batches := newAuthoringFixture()
	store.FailUploads[0] = true
	store.FailUploads[1] = true

	res, err := svc.CreateContent(context.Background(), CreateContentInput{
		Kind:   models.ContentKindPost,
		Author: "alice",
		Body:   "flaky store",
		Attachments: []Attachment{
			{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("1")},
			{Filename: "b.png", ContentType: "image/png", Data: []byte("2")},
			{Filename: "c.png", ContentType: "image/png", Data: []byte("3")},
		},
	})
	require.NoError(t, err, "partial failure is not an operation failure")

	assert.Len(t, res.Failed, 2, "every failed attachment must be reported")
	assert.Len(t, res.Media, 1, "confirmed uploads still land")
	require.Len(t, *batches, 1)
	assert.Len(t, (*batches)[0], 1, "only confirmed uploads get rows")
}

func TestCreateContent_UnsupportedTypeFailsThatAttachmentOnly(t *testing.T) {
	svc, _, _, store, _, _ := newAuthoringFixture()

	res, err := svc.CreateContent(context.Background(), CreateContentInput{
		Kind:   models.ContentKindPost,
		Author: "alice",
		Body:   "pdf attached",
		Attachments: []Attachment{
			{Filename: "doc.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
			{Filename: "pic.jpg", ContentType: "image/jpeg", Data: []byte("jpg")},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "doc.pdf", res.Failed[0].Filename)
	assert.Len(t, res.Media, 1)
	assert.Equal(t, 1, store.UploadCount(), "an unclassifiable attachment is never sent to the store")
}

func TestCreateContent_MediaRowFailureCompensatesUploads(t *testing.T) {
	svc, _, mediaRepo, store, _, _ := newAuthoringFixture()
	mediaRepo.CreateBatchFn = func(context.Context, []*models.Media) error {
		return errors.New("constraint violation")
	}

	res, err := svc.CreateContent(context.Background(), CreateContentInput{
		Kind:   models.ContentKindPost,
		Author: "alice",
		Body:   "text survives",
		Attachments: []Attachment{
			{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("1")},
			{Filename: "b.png", ContentType: "image/png", Data: []byte("2")},
		},
	})
	require.NoError(t, err)

	assert.NotNil(t, res.Content, "the content row stays committed")
	assert.Empty(t, res.Media)
	assert.Len(t, res.Failed, 2)
	assert.Len(t, store.Deleted, 2, "orphaned remote objects must be deleted")
}

func TestEditContent_MissingIDIsNoOp(t *testing.T) {
	svc, contentRepo, _, store, _, _ := newAuthoringFixture()
	contentRepo.GetByIDFn = func(context.Context, string) (*models.Content, error) {
		return nil, gorm.ErrRecordNotFound
	}

	body := "new text"
	got, err := svc.EditContent(context.Background(), EditContentInput{
		ID:          "gone",
		Editor:      "alice",
		Body:        &body,
		Replacement: &Attachment{Filename: "a.jpg", ContentType: "image/jpeg", Data: []byte("x")},
	})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, store.UploadCount(), "nothing is uploaded for a missing item")
}

func TestEditContent_UnauthorizedEditor(t *testing.T) {
	svc, contentRepo, _, _, _, _ := newAuthoringFixture()
	contentRepo.GetByIDFn = func(context.Context, string) (*models.Content, error) {
		return &models.Content{ID: "c1", AuthorUsername: "alice"}, nil
	}

	body := "hijack"
	_, err := svc.EditContent(context.Background(), EditContentInput{ID: "c1", Editor: "mallory", Body: &body})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)
}

func TestEditContent_ReplacementUploadsBeforeUpdateThenDeletesOld(t *testing.T) {
	svc, contentRepo, mediaRepo, store, _, _ := newAuthoringFixture()

	var edits []repository.ContentEdit
	contentRepo.GetByIDFn = func(_ context.Context, id string) (*models.Content, error) {
		return &models.Content{ID: id, AuthorUsername: "alice", Body: "old"}, nil
	}
	contentRepo.ApplyEditFn = func(_ context.Context, _ string, edit repository.ContentEdit) error {
		assert.Equal(t, 1, store.UploadCount(), "upload must be durable before the row update")
		edits = append(edits, edit)
		return nil
	}
	mediaRepo.ListByContentFn = func(context.Context, string) ([]models.Media, error) {
		return []models.Media{{ID: "m1", Kind: models.MediaKindImage, ExternalID: "photos/old"}}, nil
	}

	body := "new"
	got, err := svc.EditContent(context.Background(), EditContentInput{
		ID:          "c1",
		Editor:      "alice",
		Body:        &body,
		Replacement: &Attachment{Filename: "n.png", ContentType: "image/png", Data: []byte("new")},
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	require.Len(t, edits, 1)
	require.NotNil(t, edits[0].Media)
	assert.Equal(t, models.MediaKindImage, edits[0].Media.Kind)
	assert.False(t, edits[0].EditedAt.IsZero())
	assert.Equal(t, []string{"photos/old"}, store.Deleted, "old object removed only after the swap")
}

func TestEditContent_UploadFailureLeavesRowUntouched(t *testing.T) {
	svc, contentRepo, mediaRepo, store, _, _ := newAuthoringFixture()
	store.FailUploads[0] = true

	applied := false
	contentRepo.GetByIDFn = func(_ context.Context, id string) (*models.Content, error) {
		return &models.Content{ID: id, AuthorUsername: "alice"}, nil
	}
	contentRepo.ApplyEditFn = func(context.Context, string, repository.ContentEdit) error {
		applied = true
		return nil
	}
	mediaRepo.ListByContentFn = func(context.Context, string) ([]models.Media, error) {
		return nil, nil
	}

	_, err := svc.EditContent(context.Background(), EditContentInput{
		ID:          "c1",
		Editor:      "alice",
		Replacement: &Attachment{Filename: "n.png", ContentType: "image/png", Data: []byte("new")},
	})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUploadFailed, appErr.Code)
	assert.False(t, applied, "failed upload must not touch the row")
}

func TestEditContent_RowVanishedAfterUploadCompensates(t *testing.T) {
	svc, contentRepo, mediaRepo, store, _, _ := newAuthoringFixture()
	contentRepo.GetByIDFn = func(_ context.Context, id string) (*models.Content, error) {
		return &models.Content{ID: id, AuthorUsername: "alice"}, nil
	}
	contentRepo.ApplyEditFn = func(context.Context, string, repository.ContentEdit) error {
		return gorm.ErrRecordNotFound
	}
	mediaRepo.ListByContentFn = func(context.Context, string) ([]models.Media, error) {
		return nil, nil
	}

	got, err := svc.EditContent(context.Background(), EditContentInput{
		ID:          "c1",
		Editor:      "alice",
		Replacement: &Attachment{Filename: "n.png", ContentType: "image/png", Data: []byte("new")},
	})
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Len(t, store.Deleted, 1, "the fresh upload must not be orphaned")
}

func TestDeleteContent_NotFound(t *testing.T) {
	svc, contentRepo, _, _, _, _ := newAuthoringFixture()
	contentRepo.GetByIDFn = func(context.Context, string) (*models.Content, error) {
		return nil, gorm.ErrRecordNotFound
	}

	_, err := svc.DeleteContent(context.Background(), DeleteContentInput{ID: "gone", Actor: "alice"})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestDeleteContent_RowDeletionWinsOverCleanupFailures(t *testing.T) {
	svc, contentRepo, mediaRepo, store, _, _ := newAuthoringFixture()
	store.FailDeletes["photos/bad"] = true
	store.MissingOnDelete["photos/gone"] = true

	deleted := false
	contentRepo.GetByIDFn = func(_ context.Context, id string) (*models.Content, error) {
		return &models.Content{ID: id, Kind: models.ContentKindPost, AuthorUsername: "alice"}, nil
	}
	contentRepo.DescendantIDsFn = func(context.Context, string) ([]string, error) {
		return nil, nil
	}
	contentRepo.DeleteFn = func(_ context.Context, _ string, cascade bool) error {
		deleted = true
		assert.True(t, cascade)
		return nil
	}
	mediaRepo.ListByContentsFn = func(context.Context, []string) ([]models.Media, error) {
		return []models.Media{
			{ExternalID: "photos/ok", Kind: models.MediaKindImage},
			{ExternalID: "photos/bad", Kind: models.MediaKindImage},
			{ExternalID: "photos/gone", Kind: models.MediaKindImage},
			{ExternalID: "", Kind: models.MediaKindGif},
		}, nil
	}

	res, err := svc.DeleteContent(context.Background(), DeleteContentInput{
		ID:       "p1",
		Actor:    "alice",
		OnDelete: ReplyCascade,
	})
	require.NoError(t, err)
	assert.True(t, deleted, "the row deletion always proceeds")

	require.Len(t, res.Cleanup, 3, "direct gif references have nothing to clean up")
	byID := map[string]CleanupOutcome{}
	for _, o := range res.Cleanup {
		byID[o.ExternalID] = o
	}
	assert.True(t, byID["photos/ok"].OK)
	assert.False(t, byID["photos/bad"].OK)
	assert.NotEmpty(t, byID["photos/bad"].Reason)
	assert.True(t, byID["photos/gone"].OK, "already-gone objects count as cleaned")
}

func TestDeleteContent_OrphanPolicySkipsDescendants(t *testing.T) {
	svc, contentRepo, mediaRepo, _, _, _ := newAuthoringFixture()

	descendantsAsked := false
	contentRepo.GetByIDFn = func(_ context.Context, id string) (*models.Content, error) {
		return &models.Content{ID: id, Kind: models.ContentKindComment, AuthorUsername: "alice"}, nil
	}
	contentRepo.DescendantIDsFn = func(context.Context, string) ([]string, error) {
		descendantsAsked = true
		return []string{"r1"}, nil
	}
	contentRepo.DeleteFn = func(_ context.Context, _ string, cascade bool) error {
		assert.False(t, cascade)
		return nil
	}
	var asked []string
	mediaRepo.ListByContentsFn = func(_ context.Context, ids []string) ([]models.Media, error) {
		asked = ids
		return nil, nil
	}

	_, err := svc.DeleteContent(context.Background(), DeleteContentInput{
		ID:       "c1",
		Actor:    "alice",
		OnDelete: ReplyOrphan,
	})
	require.NoError(t, err)
	assert.False(t, descendantsAsked)
	assert.Equal(t, []string{"c1"}, asked)
}

func TestDeleteContent_CascadeCleansDescendantMedia(t *testing.T) {
	svc, contentRepo, mediaRepo, store, _, _ := newAuthoringFixture()

	contentRepo.GetByIDFn = func(_ context.Context, id string) (*models.Content, error) {
		return &models.Content{ID: id, Kind: models.ContentKindComment, AuthorUsername: "alice"}, nil
	}
	contentRepo.DescendantIDsFn = func(context.Context, string) ([]string, error) {
		return []string{"r1", "r2"}, nil
	}
	contentRepo.DeleteFn = func(context.Context, string, bool) error { return nil }
	mediaRepo.ListByContentsFn = func(_ context.Context, ids []string) ([]models.Media, error) {
		assert.Equal(t, []string{"c1", "r1", "r2"}, ids)
		return []models.Media{{ExternalID: "photos/r1", Kind: models.MediaKindImage}}, nil
	}

	res, err := svc.DeleteContent(context.Background(), DeleteContentInput{
		ID:       "c1",
		Actor:    "alice",
		OnDelete: ReplyCascade,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"photos/r1"}, store.Deleted)
	require.Len(t, res.Cleanup, 1)
}
