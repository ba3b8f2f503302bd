package books

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/inkleafbooks/inkleaf/pkg/migrations"
	"github.com/inkleafbooks/inkleaf/pkg/models"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func createTestBook(t *testing.T, db *bun.DB, guestLimit, userLimit int) *models.Book {
	t.Helper()

	svc := NewService(db)
	book := &models.Book{
		Title:             "Test Book",
		OwnerID:           "owner-1",
		GuestPreviewLimit: guestLimit,
		UserPreviewLimit:  userLimit,
	}
	err := svc.CreateBook(context.Background(), book)
	require.NoError(t, err)

	return book
}

func createTestPage(t *testing.T, db *bun.DB, bookID string, pageNo int, imagePath, cropImagePath string) *models.Page {
	t.Helper()

	svc := NewService(db)
	page := &models.Page{
		ID:            uuid.NewString(),
		BookID:        bookID,
		PageNo:        pageNo,
		ImagePath:     imagePath,
		CropImagePath: cropImagePath,
	}
	err := svc.InsertPages(context.Background(), db, []*models.Page{page})
	require.NoError(t, err)

	return page
}
