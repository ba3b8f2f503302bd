package books

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkleafbooks/inkleaf/pkg/models"
)

func TestCreateBook_Defaults(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	book := &models.Book{
		Title:   "Untitled Scan",
		OwnerID: "owner-1",
	}
	err := svc.CreateBook(ctx, book)
	require.NoError(t, err)

	assert.NotEmpty(t, book.ID)
	assert.Equal(t, models.ProcessStatusPending, book.ProcessStatus)
	assert.Equal(t, 5, book.GuestPreviewLimit)
	assert.Equal(t, 10, book.UserPreviewLimit)
	assert.False(t, book.CreatedAt.IsZero())
}

func TestUpdateBook_OnlyNamedColumns(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	book := createTestBook(t, db, 5, 10)
	book.Title = "Renamed"
	book.GuestPreviewLimit = 99

	err := svc.UpdateBook(ctx, db, book, UpdateBookOptions{Columns: []string{"title"}})
	require.NoError(t, err)

	reloaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", reloaded.Title)
	assert.Equal(t, 5, reloaded.GuestPreviewLimit)
}

func TestDeleteBookStructure_RemovesEverything(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	book := createTestBook(t, db, 5, 10)
	page := createTestPage(t, db, book.ID, 1, "p1.png", "")

	chapter := &models.Chapter{
		ID:         uuid.NewString(),
		BookID:     book.ID,
		Title:      "Chapter 1",
		FromPageNo: 1,
		ToPageNo:   1,
	}
	require.NoError(t, svc.InsertChapters(ctx, db, []*models.Chapter{chapter}))
	require.NoError(t, svc.InsertChapterPages(ctx, db, []*models.ChapterPage{{
		ID:        uuid.NewString(),
		ChapterID: chapter.ID,
		PageID:    page.ID,
	}}))

	err := svc.DeleteBookStructure(ctx, db, book.ID)
	require.NoError(t, err)

	pages, err := svc.ListPages(ctx, ListPagesOptions{BookID: &book.ID})
	require.NoError(t, err)
	assert.Empty(t, pages)

	chapters, err := svc.ListChapters(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, chapters)

	count, err := db.NewSelect().Model((*models.ChapterPage)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Deleting an already-empty structure is a no-op.
	require.NoError(t, svc.DeleteBookStructure(ctx, db, book.ID))
}

func TestListPages_Filters(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	book := createTestBook(t, db, 5, 10)
	for i := 1; i <= 10; i++ {
		createTestPage(t, db, book.ID, i, "p.png", "")
	}

	from, to := 3, 6
	pages, err := svc.ListPages(ctx, ListPagesOptions{BookID: &book.ID, FromPageNo: &from, ToPageNo: &to})
	require.NoError(t, err)
	require.Len(t, pages, 4)
	assert.Equal(t, 3, pages[0].PageNo)
	assert.Equal(t, 6, pages[3].PageNo)

	pages, err = svc.ListPages(ctx, ListPagesOptions{BookID: &book.ID, PageNos: []int{2, 9}})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, 2, pages[0].PageNo)
	assert.Equal(t, 9, pages[1].PageNo)
}

func TestUpsertBookUser_KeepsReadStateOnPurchase(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	book := createTestBook(t, db, 5, 10)

	pageNo := 4
	now := time.Now()
	err := svc.UpsertBookUser(ctx, &models.BookUser{
		BookID:         book.ID,
		UserID:         "viewer-1",
		PurchaseStatus: models.PurchaseStatusNone,
		LastReadPageNo: &pageNo,
		LastReadAt:     &now,
	})
	require.NoError(t, err)

	// Purchasing later should not wipe the reading position.
	err = svc.UpsertBookUser(ctx, &models.BookUser{
		BookID:         book.ID,
		UserID:         "viewer-1",
		PurchaseStatus: models.PurchaseStatusPurchased,
	})
	require.NoError(t, err)

	bu, err := svc.RetrieveBookUser(ctx, book.ID, "viewer-1")
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseStatusPurchased, bu.PurchaseStatus)
	require.NotNil(t, bu.LastReadPageNo)
	assert.Equal(t, 4, *bu.LastReadPageNo)
}
