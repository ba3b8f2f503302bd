package worker

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"

	"github.com/inkleafbooks/inkleaf/pkg/books"
	"github.com/inkleafbooks/inkleaf/pkg/models"
	"github.com/inkleafbooks/inkleaf/pkg/rects"
	"github.com/inkleafbooks/inkleaf/pkg/terms"
)

// fallbackScanPageLimit bounds the scan range for books ingested before
// page counts were recorded.
const fallbackScanPageLimit = 1000

// ProcessScanTermsJob locates every known term of a book on its pages and
// replaces the stored occurrences wholesale. With no terms defined the run
// is a no-op; with terms but no matches it still clears stale rows.
func (w *Worker) ProcessScanTermsJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)

	data, ok := job.DataParsed.(*models.JobScanTermsData)
	if !ok {
		return errors.New("unexpected job data type")
	}
	log = log.Data(logger.Data{"book_id": data.BookID})
	log.Info("processing scan terms job")

	book, err := w.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &data.BookID})
	if err != nil {
		if isNotFound(err) {
			log.Warn("book does not exist, skipping scan")
			return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, "book does not exist"))
		}
		return errors.WithStack(err)
	}
	if book.SourcePath == "" {
		log.Warn("book has no source file, skipping scan")
		return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, "book has no source file"))
	}

	bookTerms, err := w.termService.ListTerms(ctx, terms.ListTermsOptions{
		BookIDOrGlobal: &book.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if len(bookTerms) == 0 {
		log.Info("no terms to scan for")
		return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, "no terms defined"))
	}

	if err := w.jobService.UpdateProgress(ctx, job.ID, 0, "downloading source"); err != nil {
		return errors.WithStack(err)
	}

	sourcePath, err := w.ensureLocalSource(ctx, book.ID, book.SourcePath)
	if err != nil {
		return errors.WithStack(err)
	}

	termByKey := make(map[string]*models.Term, len(bookTerms))
	keys := make([]string, 0, len(bookTerms))
	for _, t := range bookTerms {
		termByKey[t.Key] = t
		keys = append(keys, t.Key)
	}

	toPage := book.PageCount
	if toPage < 1 {
		toPage = fallbackScanPageLimit
	}

	if err := w.jobService.UpdateProgress(ctx, job.ID, 10, "scanning pages"); err != nil {
		return errors.WithStack(err)
	}

	matchesByPage, err := w.extractor.ScanKeywords(sourcePath, 1, toPage, keys)
	if err != nil {
		return errors.WithStack(err)
	}

	pageTerms := []*models.PageTerm{}
	for pageNo, matches := range matchesByPage {
		for _, match := range matches {
			term, ok := termByKey[match.Term]
			if !ok || len(match.Rects) == 0 {
				continue
			}
			rs := make([]rects.Rect, len(match.Rects))
			for i, r := range match.Rects {
				rs[i] = rects.Rect(r)
			}
			pageTerms = append(pageTerms, &models.PageTerm{
				BookID:      book.ID,
				PageNo:      pageNo,
				TermID:      term.ID,
				Key:         term.Key,
				Explanation: term.Explanation,
				RectsParsed: rs,
			})
		}
	}

	err = w.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return w.termService.ReplacePageTerms(ctx, tx, book.ID, pageTerms)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("finished scan terms job", logger.Data{"occurrences": len(pageTerms)})
	return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, "done"))
}
