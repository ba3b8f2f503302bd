package worker

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"

	"github.com/inkleafbooks/inkleaf/pkg/books"
	"github.com/inkleafbooks/inkleaf/pkg/models"
)

// ProcessExtractTermsJob mines new vocabulary from a page range. The range's
// page text is concatenated into one mining request. Suggestions that
// duplicate an existing book or global key are dropped; the dedup set extends
// as the run accepts terms, so the same key proposed twice in one response
// yields one row. Matching is case-sensitive.
func (w *Worker) ProcessExtractTermsJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)

	data, ok := job.DataParsed.(*models.JobExtractTermsData)
	if !ok {
		return errors.New("unexpected job data type")
	}
	log = log.Data(logger.Data{"book_id": data.BookID, "from_page": data.FromPage, "to_page": data.ToPage})
	log.Info("processing extract terms job")

	if w.miner == nil {
		log.Info("term mining not configured")
		return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, "term mining not configured"))
	}

	book, err := w.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &data.BookID})
	if err != nil {
		if isNotFound(err) {
			log.Warn("book does not exist, skipping term mining")
			return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, "book does not exist"))
		}
		return errors.WithStack(err)
	}

	pages, err := w.bookService.ListPages(ctx, books.ListPagesOptions{
		BookID:     &book.ID,
		FromPageNo: &data.FromPage,
		ToPageNo:   &data.ToPage,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	seen, err := w.termService.ExistingKeySet(ctx, book.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	if err := w.jobService.UpdateProgress(ctx, job.ID, 10, "mining terms"); err != nil {
		log.Err(err).Error("update progress error")
	}

	parts := make([]string, 0, len(pages))
	for _, page := range pages {
		if page.Content != "" {
			parts = append(parts, page.Content)
		}
	}
	suggestions := w.miner.ExtractTerms(ctx, strings.Join(parts, "\n"))

	accepted := []*models.Term{}
	for _, s := range suggestions {
		if s.Term == "" {
			continue
		}
		if _, dup := seen[s.Term]; dup {
			continue
		}
		seen[s.Term] = struct{}{}
		accepted = append(accepted, &models.Term{
			BookID:      &book.ID,
			SourceType:  models.TermSourceAI,
			Key:         s.Term,
			Explanation: s.Description,
		})
	}

	err = w.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return w.termService.InsertTerms(ctx, tx, accepted)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("finished extract terms job", logger.Data{"accepted": len(accepted)})
	return errors.WithStack(w.jobService.UpdateProgress(ctx, job.ID, 100, "done"))
}
