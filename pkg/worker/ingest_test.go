package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/inkleafbooks/inkleaf/pkg/books"
	"github.com/inkleafbooks/inkleaf/pkg/jobs"
	"github.com/inkleafbooks/inkleaf/pkg/models"
)

func createSourceBook(t *testing.T, db *bun.DB, store *memoryStore) *models.Book {
	t.Helper()

	bookService := books.NewService(db)
	book := &models.Book{
		Title:   "Scanned Volume",
		OwnerID: "owner-1",
	}
	require.NoError(t, bookService.CreateBook(context.Background(), book))

	book.SourcePath = "books/" + book.ID + "/source.pdf"
	require.NoError(t, bookService.UpdateBook(context.Background(), db, book, books.UpdateBookOptions{
		Columns: []string{"source_path"},
	}))
	store.put(book.SourcePath, []byte("%PDF-1.4 fake"))

	return book
}

func TestProcessIngestJob_Success(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)
	extractor := &fakeExtractor{pageCount: 20}
	w := newTestWorker(t, db, store, extractor, nil)

	book := createSourceBook(t, db, store)
	job := enqueueTestJob(t, db, models.JobTypeIngest, &models.JobIngestData{BookID: book.ID, ActorID: "owner-1"})

	require.NoError(t, w.ProcessIngestJob(ctx, job))

	bookService := books.NewService(db)
	reloaded, err := bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusSuccess, reloaded.ProcessStatus)
	assert.Equal(t, 20, reloaded.PageCount)
	assert.Nil(t, reloaded.Remark)

	// Cover falls back to the first page image.
	require.NotNil(t, reloaded.CoverPath)
	assert.Contains(t, *reloaded.CoverPath, "0001")

	pages, err := bookService.ListPages(ctx, books.ListPagesOptions{BookID: &book.ID})
	require.NoError(t, err)
	require.Len(t, pages, 20)
	assert.Equal(t, "text of page 1", pages[0].Content)
	assert.Equal(t, "[0.1,0.1,0.8,0.8]", pages[0].CropBox)
	assert.True(t, store.has(pages[0].ImagePath))
	assert.True(t, store.has(pages[0].CropImagePath))

	chapters, err := bookService.ListChapters(ctx, book.ID)
	require.NoError(t, err)
	assert.Len(t, chapters, 3)

	joinCount, err := db.NewSelect().Model((*models.ChapterPage)(nil)).Count(ctx)
	require.NoError(t, err)
	// Part 1 (10) + its child chapter (10) + Part 2 (10).
	assert.Equal(t, 30, joinCount)

	job, err = jobs.NewService(db).RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, 100, job.Progress)
}

func TestProcessIngestJob_Idempotent(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)
	extractor := &fakeExtractor{pageCount: 8}
	w := newTestWorker(t, db, store, extractor, nil)

	book := createSourceBook(t, db, store)

	job1 := enqueueTestJob(t, db, models.JobTypeIngest, &models.JobIngestData{BookID: book.ID, ActorID: "owner-1"})
	require.NoError(t, w.ProcessIngestJob(ctx, job1))

	job2 := enqueueTestJob(t, db, models.JobTypeIngest, &models.JobIngestData{BookID: book.ID, ActorID: "owner-1"})
	require.NoError(t, w.ProcessIngestJob(ctx, job2))

	pageCount, err := db.NewSelect().Model((*models.Page)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, pageCount)

	chapterCount, err := db.NewSelect().Model((*models.Chapter)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, chapterCount)
}

func TestProcessIngestJob_UploadFailureRollsBack(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)
	extractor := &fakeExtractor{pageCount: 20}
	w := newTestWorker(t, db, store, extractor, nil)

	book := createSourceBook(t, db, store)
	store.injectPutFailure("books/" + book.ID + "/pages/0005.png")

	job := enqueueTestJob(t, db, models.JobTypeIngest, &models.JobIngestData{BookID: book.ID, ActorID: "owner-1"})
	require.Error(t, w.ProcessIngestJob(ctx, job))

	bookService := books.NewService(db)
	reloaded, err := bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusFailed, reloaded.ProcessStatus)
	require.NotNil(t, reloaded.Remark)

	// No partial structure survives the rollback.
	pageCount, err := db.NewSelect().Model((*models.Page)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, pageCount)
}

func TestProcessIngestJob_CropUploadFailureRollsBack(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)
	extractor := &fakeExtractor{pageCount: 8}
	w := newTestWorker(t, db, store, extractor, nil)

	book := createSourceBook(t, db, store)

	// The crop variant goes up alongside the original; losing either one
	// of the pair aborts the run.
	store.injectPutFailure("books/" + book.ID + "/pages/0003_crop.png")

	job := enqueueTestJob(t, db, models.JobTypeIngest, &models.JobIngestData{BookID: book.ID, ActorID: "owner-1"})
	require.Error(t, w.ProcessIngestJob(ctx, job))

	bookService := books.NewService(db)
	reloaded, err := bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusFailed, reloaded.ProcessStatus)

	pageCount, err := db.NewSelect().Model((*models.Page)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, pageCount)
}

func TestProcessIngestJob_LogicalFailure(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)
	extractor := &fakeExtractor{failWith: "source document is encrypted"}
	w := newTestWorker(t, db, store, extractor, nil)

	book := createSourceBook(t, db, store)

	job := enqueueTestJob(t, db, models.JobTypeIngest, &models.JobIngestData{BookID: book.ID, ActorID: "owner-1"})

	// The job itself succeeds; the outcome lands on the book.
	require.NoError(t, w.ProcessIngestJob(ctx, job))

	bookService := books.NewService(db)
	reloaded, err := bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusFailed, reloaded.ProcessStatus)
	require.NotNil(t, reloaded.Remark)
	assert.Equal(t, "source document is encrypted", *reloaded.Remark)
}

func TestProcessIngestJob_MissingSource(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)
	w := newTestWorker(t, db, store, &fakeExtractor{pageCount: 1}, nil)

	bookService := books.NewService(db)
	book := &models.Book{Title: "No Source", OwnerID: "owner-1"}
	require.NoError(t, bookService.CreateBook(ctx, book))

	// A book without a source file is bad input: the job completes with an
	// explanatory message and the book is left alone.
	job := enqueueTestJob(t, db, models.JobTypeIngest, &models.JobIngestData{BookID: book.ID, ActorID: "owner-1"})
	require.NoError(t, w.ProcessIngestJob(ctx, job))

	retrieved, err := w.jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, 100, retrieved.Progress)
	assert.Equal(t, "book has no source file", retrieved.Message)

	book, err = bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ProcessStatusPending, book.ProcessStatus)
}

func TestProcessIngestJob_MissingBook(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)
	w := newTestWorker(t, db, store, &fakeExtractor{pageCount: 1}, nil)

	job := enqueueTestJob(t, db, models.JobTypeIngest, &models.JobIngestData{BookID: "gone", ActorID: "owner-1"})
	require.NoError(t, w.ProcessIngestJob(ctx, job))

	retrieved, err := w.jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, 100, retrieved.Progress)
	assert.Equal(t, "book does not exist", retrieved.Message)
}
