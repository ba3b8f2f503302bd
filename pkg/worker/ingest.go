package worker

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"

	"github.com/inkleafbooks/inkleaf/pkg/books"
	"github.com/inkleafbooks/inkleaf/pkg/extract"
	"github.com/inkleafbooks/inkleaf/pkg/models"
)

type progressUpdate struct {
	current int
	total   int
	message string
}

// ProcessIngestJob runs the full ingestion pipeline: download the source,
// extract structure, replace the book's pages and chapters, and upload the
// page images. The structural replacement happens in one transaction so a
// half-ingested book is never visible.
func (w *Worker) ProcessIngestJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)

	data, ok := job.DataParsed.(*models.JobIngestData)
	if !ok {
		return errors.New("unexpected job data type")
	}
	log = log.Data(logger.Data{"book_id": data.BookID})
	log.Info("processing ingest job")

	// Bad input is an outcome, not a fault: the run logs, reports, and
	// completes without touching the book.
	book, err := w.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &data.BookID})
	if err != nil {
		if isNotFound(err) {
			log.Warn("book does not exist, skipping ingest")
			return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, "book does not exist"))
		}
		return errors.WithStack(err)
	}
	if book.SourcePath == "" {
		log.Warn("book has no source file, skipping ingest")
		return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, "book has no source file"))
	}

	// Flip to processing immediately so readers see the book is being
	// rebuilt. This commits on its own, outside the structural transaction.
	book.ProcessStatus = models.ProcessStatusProcessing
	book.Remark = nil
	err = w.bookService.UpdateBook(ctx, w.db, book, books.UpdateBookOptions{
		Columns: []string{"process_status", "remark"},
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := w.jobService.UpdateProgress(ctx, job.ID, 0, "downloading source"); err != nil {
		return errors.WithStack(err)
	}

	sourcePath, err := w.ensureLocalSource(ctx, book.ID, book.SourcePath)
	if err != nil {
		return w.failIngest(ctx, book, errors.WithStack(err))
	}

	imageDir := filepath.Join(w.workDir(book.ID), "images")
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return w.failIngest(ctx, book, errors.WithStack(err))
	}

	result, err := w.runExtractor(ctx, job.ID, sourcePath, imageDir)
	if err != nil {
		return w.failIngest(ctx, book, errors.WithStack(err))
	}

	if !result.Success {
		// The document itself is bad. That is an outcome, not a fault: the
		// job completes and the book carries the explanation.
		log.Info("extraction rejected source", logger.Data{"message": result.Message})
		book.ProcessStatus = models.ProcessStatusFailed
		book.Remark = &result.Message
		err = w.bookService.UpdateBook(ctx, w.db, book, books.UpdateBookOptions{
			Columns: []string{"process_status", "remark"},
		})
		if err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, result.Message))
	}

	err = w.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return w.persistExtraction(ctx, tx, job.ID, book, result)
	})
	if err != nil {
		return w.failIngest(ctx, book, errors.WithStack(err))
	}

	log.Info("finished ingest job", logger.Data{"pages": len(result.Pages)})
	return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, "done"))
}

// runExtractor runs the extraction on its own goroutine. Progress crosses
// back over a bounded channel and is persisted for every 10th page and on
// completion; the extractor callback never touches the database itself.
func (w *Worker) runExtractor(ctx context.Context, jobID, sourcePath, imageDir string) (*extract.Result, error) {
	updates := make(chan progressUpdate, 16)

	type extraction struct {
		result *extract.Result
		err    error
	}
	done := make(chan extraction, 1)

	go func() {
		result, err := w.extractor.Extract(sourcePath, imageDir, func(current, total int, message string) {
			select {
			case updates <- progressUpdate{current, total, message}:
			default:
				// Drop intermediate updates rather than stall extraction.
			}
		})
		close(updates)
		done <- extraction{result, err}
	}()

	log := logger.FromContext(ctx)
	for u := range updates {
		if u.total <= 0 {
			continue
		}
		if u.current%10 != 0 && u.current != u.total {
			continue
		}
		percent := u.current * 50 / u.total
		if err := w.jobService.UpdateProgress(ctx, jobID, percent, u.message); err != nil {
			log.Err(err).Error("update progress error")
		}
	}

	ex := <-done
	return ex.result, errors.WithStack(ex.err)
}

func (w *Worker) persistExtraction(ctx context.Context, tx bun.Tx, jobID string, book *models.Book, result *extract.Result) error {
	log := logger.FromContext(ctx)

	if err := w.bookService.DeleteBookStructure(ctx, tx, book.ID); err != nil {
		return errors.WithStack(err)
	}

	// Upload the image pair and build the row for every page. The original
	// and crop variants go up together; an upload failure aborts the whole
	// transaction and re-running the job starts clean.
	pages := make([]*models.Page, 0, len(result.Pages))
	pageIDByNo := make(map[int]string, len(result.Pages))
	for i, ep := range result.Pages {
		imageKey := fmt.Sprintf("books/%s/pages/%04d%s", book.ID, ep.PageNo, filepath.Ext(ep.ImagePath))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return w.uploadFile(gctx, ep.ImagePath, imageKey)
		})

		cropKey := ""
		if ep.CropImagePath != "" {
			cropKey = fmt.Sprintf("books/%s/pages/%04d_crop%s", book.ID, ep.PageNo, filepath.Ext(ep.CropImagePath))
			g.Go(func() error {
				return w.uploadFile(gctx, ep.CropImagePath, cropKey)
			})
		}

		if err := g.Wait(); err != nil {
			return errors.WithStack(err)
		}

		page := &models.Page{
			ID:            uuid.NewString(),
			BookID:        book.ID,
			PageNo:        ep.PageNo,
			ImagePath:     imageKey,
			CropImagePath: cropKey,
			Content:       strings.Join(ep.Text, "\n"),
			CropBox:       ep.CropBox,
		}
		pages = append(pages, page)
		pageIDByNo[ep.PageNo] = page.ID

		done := i + 1
		if done%10 == 0 || done == len(result.Pages) {
			percent := 50 + done*50/len(result.Pages)
			if err := w.jobService.UpdateProgress(ctx, jobID, percent, "uploading page images"); err != nil {
				log.Err(err).Error("update progress error")
			}
		}
	}

	if err := w.bookService.InsertPages(ctx, tx, pages); err != nil {
		return errors.WithStack(err)
	}

	chapters, joins := flattenOutline(book.ID, nil, result.Chapters, pageIDByNo)
	if err := w.bookService.InsertChapters(ctx, tx, chapters); err != nil {
		return errors.WithStack(err)
	}
	if err := w.bookService.InsertChapterPages(ctx, tx, joins); err != nil {
		return errors.WithStack(err)
	}

	book.PageCount = len(pages)
	book.ProcessStatus = models.ProcessStatusSuccess
	book.Remark = nil
	columns := []string{"page_count", "process_status", "remark"}

	// No explicit cover means the first page stands in for one.
	if book.CoverPath == nil && len(pages) > 0 {
		book.CoverPath = &pages[0].ImagePath
		columns = append(columns, "cover_path")
	}

	return errors.WithStack(w.bookService.UpdateBook(ctx, tx, book, books.UpdateBookOptions{
		Columns: columns,
	}))
}

// flattenOutline turns the extracted chapter tree into flat chapter rows
// plus chapter-page joins for every page inside each chapter's range.
func flattenOutline(bookID string, parentID *string, outline []*extract.Outline, pageIDByNo map[int]string) ([]*models.Chapter, []*models.ChapterPage) {
	chapters := []*models.Chapter{}
	joins := []*models.ChapterPage{}

	for _, node := range outline {
		chapter := &models.Chapter{
			ID:         uuid.NewString(),
			BookID:     bookID,
			ParentID:   parentID,
			Title:      node.Title,
			FromPageNo: node.FromPageNo,
			ToPageNo:   node.ToPageNo,
		}
		chapters = append(chapters, chapter)

		for pageNo := node.FromPageNo; pageNo <= node.ToPageNo; pageNo++ {
			pageID, ok := pageIDByNo[pageNo]
			if !ok {
				continue
			}
			joins = append(joins, &models.ChapterPage{
				ID:        uuid.NewString(),
				ChapterID: chapter.ID,
				PageID:    pageID,
			})
		}

		childChapters, childJoins := flattenOutline(bookID, &chapter.ID, node.Children, pageIDByNo)
		chapters = append(chapters, childChapters...)
		joins = append(joins, childJoins...)
	}

	return chapters, joins
}

// failIngest marks the book failed after a fault. The mark is best effort:
// the original error is what surfaces either way.
func (w *Worker) failIngest(ctx context.Context, book *models.Book, cause error) error {
	log := logger.FromContext(ctx)

	msg := cause.Error()
	book.ProcessStatus = models.ProcessStatusFailed
	book.Remark = &msg
	err := w.bookService.UpdateBook(ctx, w.db, book, books.UpdateBookOptions{
		Columns: []string{"process_status", "remark"},
	})
	if err != nil {
		log.Err(err).Error("mark book failed error")
	}

	return cause
}
