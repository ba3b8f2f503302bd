package terms

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/inkleafbooks/inkleaf/pkg/books"
	"github.com/inkleafbooks/inkleaf/pkg/models"
)

type handler struct {
	termService *Service
	bookService *books.Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateTermPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	term := &models.Term{
		BookID:      params.BookID,
		SourceType:  models.TermSourceManual,
		Key:         params.Key,
		Explanation: params.Explanation,
	}

	err := h.termService.CreateTerm(ctx, term)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, term))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListTermsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	terms, total, err := h.termService.ListTermsWithTotal(ctx, ListTermsOptions{
		Limit:          &params.Limit,
		Offset:         &params.Offset,
		BookIDOrGlobal: params.BookID,
		SourceTypes:    params.SourceType,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Terms []*models.Term `json:"terms"`
		Total int            `json:"total"`
	}{terms, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	// Bind params.
	params := UpdateTermPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	term, err := h.termService.RetrieveTerm(ctx, RetrieveTermOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateTermOptions{Columns: []string{}}

	if params.Key != nil && *params.Key != term.Key {
		term.Key = *params.Key
		opts.Columns = append(opts.Columns, "key")
	}
	if params.Explanation != nil && *params.Explanation != term.Explanation {
		term.Explanation = *params.Explanation
		opts.Columns = append(opts.Columns, "explanation")
	}

	err = h.termService.UpdateTerm(ctx, term, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, term))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	err := h.termService.DeleteTerm(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

// listPageTerms serves located occurrences for a page range. image_mode=crop
// rewrites rects through each page's crop window before responding; stored
// rows never change.
func (h *handler) listPageTerms(c echo.Context) error {
	ctx := c.Request().Context()
	bookID := c.Param("id")

	// Bind params.
	params := ListPageTermsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	pageTerms, err := h.termService.ListPageTerms(ctx, ListPageTermsOptions{
		BookID:     &bookID,
		FromPageNo: params.From,
		ToPageNo:   params.To,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if params.ImageMode == "crop" && len(pageTerms) > 0 {
		pages, err := h.bookService.ListPages(ctx, books.ListPagesOptions{
			BookID:     &bookID,
			FromPageNo: params.From,
			ToPageNo:   params.To,
		})
		if err != nil {
			return errors.WithStack(err)
		}

		cropBoxByPageNo := make(map[int]string, len(pages))
		for _, p := range pages {
			cropBoxByPageNo[p.PageNo] = p.CropBox
		}
		ApplyCropWindows(ctx, pageTerms, cropBoxByPageNo)
	}

	resp := struct {
		PageTerms []*models.PageTerm `json:"page_terms"`
	}{pageTerms}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
