package books

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/inkleafbooks/inkleaf/pkg/auth"
	"github.com/inkleafbooks/inkleaf/pkg/errcodes"
	"github.com/inkleafbooks/inkleaf/pkg/jobs"
	"github.com/inkleafbooks/inkleaf/pkg/models"
	"github.com/inkleafbooks/inkleaf/pkg/storage"
)

type handler struct {
	bookService *Service
	jobService  *jobs.Service
	store       storage.ObjectStore
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	viewerID := auth.ViewerIDFromContext(c)
	if viewerID == nil {
		return errcodes.Unauthorized("Authentication required")
	}

	// Bind params.
	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		Title:          params.Title,
		Author:         params.Author,
		Summary:        params.Summary,
		ListPriceCents: params.ListPriceCents,
		SalePriceCents: params.SalePriceCents,
		OwnerID:        *viewerID,
	}
	if params.GuestPreviewLimit != nil {
		book.GuestPreviewLimit = *params.GuestPreviewLimit
	}
	if params.UserPreviewLimit != nil {
		book.UserPreviewLimit = *params.UserPreviewLimit
	}

	err := h.bookService.CreateBook(ctx, book)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:   &params.Limit,
		Offset:  &params.Offset,
		OwnerID: params.OwnerID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	// Bind params.
	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the book.
	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := h.requireOwner(c, book); err != nil {
		return err
	}

	// Keep track of what's been changed.
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.Author != nil {
		book.Author = params.Author
		opts.Columns = append(opts.Columns, "author")
	}
	if params.Summary != nil {
		book.Summary = params.Summary
		opts.Columns = append(opts.Columns, "summary")
	}
	if params.GuestPreviewLimit != nil && *params.GuestPreviewLimit != book.GuestPreviewLimit {
		book.GuestPreviewLimit = *params.GuestPreviewLimit
		opts.Columns = append(opts.Columns, "guest_preview_limit")
	}
	if params.UserPreviewLimit != nil && *params.UserPreviewLimit != book.UserPreviewLimit {
		book.UserPreviewLimit = *params.UserPreviewLimit
		opts.Columns = append(opts.Columns, "user_preview_limit")
	}
	if params.ListPriceCents != nil {
		book.ListPriceCents = params.ListPriceCents
		opts.Columns = append(opts.Columns, "list_price_cents")
	}
	if params.SalePriceCents != nil {
		book.SalePriceCents = params.SalePriceCents
		opts.Columns = append(opts.Columns, "sale_price_cents")
	}
	if params.SourcePath != nil && *params.SourcePath != book.SourcePath {
		// A new source file means the parsed structure is stale. The book
		// drops back to pending until the next ingestion run.
		book.SourcePath = *params.SourcePath
		book.ProcessStatus = models.ProcessStatusPending
		book.Remark = nil
		opts.Columns = append(opts.Columns, "source_path", "process_status", "remark")
	}

	// Update the model.
	err = h.bookService.UpdateBook(ctx, h.bookService.db, book, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload the model.
	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) chapters(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	chapters, err := h.bookService.ListChapters(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Chapters []*models.Chapter `json:"chapters"`
	}{chapters}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// pageImage is the Access Gate endpoint. It answers with a short-lived
// signed URL rather than the bytes so the transfer goes straight to storage.
func (h *handler) pageImage(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	pageNo, err := strconv.Atoi(c.Param("pageNo"))
	if err != nil || pageNo < 1 {
		return errcodes.NotFound("Page")
	}

	params := PageImageQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	viewerID := auth.ViewerIDFromContext(c)

	objectKey, err := h.bookService.ResolveImagePath(ctx, viewerID, id, pageNo, params.Variant == "crop")
	if err != nil {
		return errors.WithStack(err)
	}

	url, err := h.store.SignedDownloadURL(ctx, objectKey)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.Redirect(http.StatusFound, url))
}

func (h *handler) sourceUploadURL(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	params := SourceUploadPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if err := h.requireOwner(c, book); err != nil {
		return err
	}

	objectKey := "books/" + book.ID + "/source"
	upload, err := h.store.SignedUploadURL(ctx, objectKey, params.ContentType)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		ObjectKey string                `json:"object_key"`
		Upload    *storage.SignedUpload `json:"upload"`
	}{objectKey, upload}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) parse(c echo.Context) error {
	return h.enqueue(c, models.JobTypeIngest, nil)
}

func (h *handler) scanTerms(c echo.Context) error {
	return h.enqueue(c, models.JobTypeScanTerms, nil)
}

func (h *handler) extractTerms(c echo.Context) error {
	params := ExtractTermsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	return h.enqueue(c, models.JobTypeExtractTerms, &params)
}

func (h *handler) enqueue(c echo.Context, jobType string, extractParams *ExtractTermsPayload) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	viewerID := auth.ViewerIDFromContext(c)
	if viewerID == nil {
		return errcodes.Unauthorized("Authentication required")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if jobType == models.JobTypeIngest && book.SourcePath == "" {
		return errcodes.ValidationError("The book has no source file to parse.")
	}

	var data interface{}
	switch jobType {
	case models.JobTypeIngest:
		data = &models.JobIngestData{BookID: book.ID, ActorID: *viewerID}
	case models.JobTypeScanTerms:
		data = &models.JobScanTermsData{BookID: book.ID, ActorID: *viewerID}
	case models.JobTypeExtractTerms:
		data = &models.JobExtractTermsData{
			BookID:   book.ID,
			ActorID:  *viewerID,
			FromPage: extractParams.FromPage,
			ToPage:   extractParams.ToPage,
		}
	}

	job := &models.Job{
		Type:       jobType,
		Status:     models.JobStatusPending,
		DataParsed: data,
	}

	alreadyActive, err := h.jobService.EnqueueUnlessActive(ctx, job, book.ID)
	if err != nil {
		return errors.WithStack(err)
	}
	if alreadyActive {
		return errcodes.Conflict("A job of this type is already running or pending for this book.")
	}

	job, err = h.jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{
		ID: &job.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, job))
}

func (h *handler) purchase(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	viewerID := auth.ViewerIDFromContext(c)
	if viewerID == nil {
		return errcodes.Unauthorized("Authentication required")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	bu := &models.BookUser{
		BookID:         book.ID,
		UserID:         *viewerID,
		PurchaseStatus: models.PurchaseStatusPurchased,
	}
	err = h.bookService.UpsertBookUser(ctx, bu)
	if err != nil {
		return errors.WithStack(err)
	}

	bu, err = h.bookService.RetrieveBookUser(ctx, book.ID, *viewerID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, bu))
}

func (h *handler) readProgress(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	viewerID := auth.ViewerIDFromContext(c)
	if viewerID == nil {
		return errcodes.Unauthorized("Authentication required")
	}

	params := ReadProgressPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	now := time.Now()
	bu := &models.BookUser{
		BookID:         id,
		UserID:         *viewerID,
		LastReadPageNo: &params.PageNo,
		LastReadAt:     &now,
	}

	// Keep whatever purchase state already exists.
	if existing, err := h.bookService.RetrieveBookUser(ctx, id, *viewerID); err == nil {
		bu.PurchaseStatus = existing.PurchaseStatus
	}

	err := h.bookService.UpsertBookUser(ctx, bu)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) requireOwner(c echo.Context, book *models.Book) error {
	viewerID := auth.ViewerIDFromContext(c)
	if viewerID == nil {
		return errcodes.Unauthorized("Authentication required")
	}
	if book.OwnerID != *viewerID {
		return errcodes.Forbidden("Changing another owner's book")
	}
	return nil
}
