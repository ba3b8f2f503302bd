package notes

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"

	"github.com/inkleafbooks/inkleaf/pkg/errcodes"
	"github.com/inkleafbooks/inkleaf/pkg/models"
	"github.com/inkleafbooks/inkleaf/pkg/rects"
)

type RetrieveNoteOptions struct {
	ID *string
}

type ListNotesOptions struct {
	Limit  *int
	Offset *int
	BookID *string
	UserID *string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateNote persists a note. HighlightRectsParsed must already be in
// original-image space; crop-space conversion happens in the handler where
// the page's crop window is at hand.
func (svc *Service) CreateNote(ctx context.Context, note *models.Note) error {
	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = note.CreatedAt

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.HighlightRects == "" && note.HighlightRectsParsed != nil {
		data, err := json.Marshal(note.HighlightRectsParsed)
		if err != nil {
			return errors.WithStack(err)
		}
		note.HighlightRects = string(data)
	}

	_, err := svc.db.
		NewInsert().
		Model(note).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveNote(ctx context.Context, opts RetrieveNoteOptions) (*models.Note, error) {
	note := &models.Note{}

	q := svc.db.
		NewSelect().
		Model(note)

	if opts.ID != nil {
		q = q.Where("n.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Note")
		}
		return nil, errors.WithStack(err)
	}

	if err := unmarshalRects(note); err != nil {
		return nil, errors.WithStack(err)
	}

	return note, nil
}

func (svc *Service) ListNotes(ctx context.Context, opts ListNotesOptions) ([]*models.Note, error) {
	notes := []*models.Note{}

	q := svc.db.
		NewSelect().
		Model(&notes).
		Order("n.page_no ASC", "n.created_at ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.BookID != nil {
		q = q.Where("n.book_id = ?", *opts.BookID)
	}
	if opts.UserID != nil {
		q = q.Where("n.user_id = ?", *opts.UserID)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, note := range notes {
		if err := unmarshalRects(note); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return notes, nil
}

func (svc *Service) DeleteNote(ctx context.Context, id, userID string) error {
	res, err := svc.db.
		NewDelete().
		Model((*models.Note)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if affected == 0 {
		return errcodes.NotFound("Note")
	}

	return nil
}

func unmarshalRects(note *models.Note) error {
	if note.HighlightRects == "" {
		return nil
	}
	return errors.WithStack(json.Unmarshal([]byte(note.HighlightRects), &note.HighlightRectsParsed))
}

// ApplyCropWindows rewrites note highlights into cropped-image space using
// each page's crop window. A malformed crop box is logged and treated as
// uncropped.
func ApplyCropWindows(ctx context.Context, notes []*models.Note, cropBoxByPageNo map[int]string) {
	log := logger.FromContext(ctx)
	for _, note := range notes {
		window, ok := rects.ParseWindow(cropBoxByPageNo[note.PageNo])
		if !ok {
			log.Warn("malformed crop box", logger.Data{"book_id": note.BookID, "page_no": note.PageNo})
		}
		if len(note.HighlightRectsParsed) == 0 {
			continue
		}
		note.HighlightRectsParsed = rects.ToCroppedSpace(note.HighlightRectsParsed, window)
	}
}
