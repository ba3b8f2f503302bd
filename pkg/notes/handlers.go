package notes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/inkleafbooks/inkleaf/pkg/auth"
	"github.com/inkleafbooks/inkleaf/pkg/books"
	"github.com/inkleafbooks/inkleaf/pkg/errcodes"
	"github.com/inkleafbooks/inkleaf/pkg/models"
	"github.com/inkleafbooks/inkleaf/pkg/rects"
)

type handler struct {
	noteService *Service
	bookService *books.Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	viewerID := auth.ViewerIDFromContext(c)
	if viewerID == nil {
		return errcodes.Unauthorized("Authentication required")
	}

	// Bind params.
	params := CreateNotePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	highlights := params.HighlightRects
	if params.CropMode {
		// Rects captured against the cropped image convert to original
		// space before they hit the database.
		pages, err := h.bookService.ListPages(ctx, books.ListPagesOptions{
			BookID:  &params.BookID,
			PageNos: []int{params.PageNo},
		})
		if err != nil {
			return errors.WithStack(err)
		}
		if len(pages) == 0 {
			return errcodes.NotFound("Page")
		}

		window, ok := rects.ParseWindow(pages[0].CropBox)
		if !ok {
			logger.FromContext(ctx).Warn("malformed crop box", logger.Data{
				"book_id": params.BookID,
				"page_no": params.PageNo,
			})
		}
		highlights = rects.ToOriginalSpace(highlights, window)
	}

	note := &models.Note{
		BookID:               params.BookID,
		UserID:               *viewerID,
		PageNo:               params.PageNo,
		Content:              params.Content,
		HighlightRectsParsed: highlights,
	}

	err := h.noteService.CreateNote(ctx, note)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, note))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	viewerID := auth.ViewerIDFromContext(c)
	if viewerID == nil {
		return errcodes.Unauthorized("Authentication required")
	}

	// Bind params.
	params := ListNotesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	notes, err := h.noteService.ListNotes(ctx, ListNotesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		BookID: params.BookID,
		UserID: viewerID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	if params.ImageMode == "crop" && params.BookID != nil && len(notes) > 0 {
		pageNos := make([]int, 0, len(notes))
		for _, n := range notes {
			pageNos = append(pageNos, n.PageNo)
		}

		pages, err := h.bookService.ListPages(ctx, books.ListPagesOptions{
			BookID:  params.BookID,
			PageNos: pageNos,
		})
		if err != nil {
			return errors.WithStack(err)
		}

		cropBoxByPageNo := make(map[int]string, len(pages))
		for _, p := range pages {
			cropBoxByPageNo[p.PageNo] = p.CropBox
		}
		ApplyCropWindows(ctx, notes, cropBoxByPageNo)
	}

	resp := struct {
		Notes []*models.Note `json:"notes"`
	}{notes}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	viewerID := auth.ViewerIDFromContext(c)
	if viewerID == nil {
		return errcodes.Unauthorized("Authentication required")
	}

	err := h.noteService.DeleteNote(ctx, id, *viewerID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
