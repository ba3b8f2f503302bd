package terms

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

type RetrieveTermOptions struct {
	ID *string
}

type ListTermsOptions struct {
	Limit          *int
	Offset         *int
	BookIDOrGlobal *string
	SourceTypes    []string

	includeTotal bool
}

type UpdateTermOptions struct {
	Columns []string
}

type ListPageTermsOptions struct {
	BookID     *string
	FromPageNo *int
	ToPageNo   *int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateTerm(ctx context.Context, term *models.Term) error {
	now := time.Now()
	if term.CreatedAt.IsZero() {
		term.CreatedAt = now
	}
	term.UpdatedAt = term.CreatedAt

	if term.ID == "" {
		term.ID = uuid.NewString()
	}
	if term.SourceType == "" {
		term.SourceType = models.TermSourceManual
	}

	_, err := svc.db.
		NewInsert().
		Model(term).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// InsertTerms batch-inserts accepted terms. Extraction runs this against
// its transaction so a failed run leaves no partial vocabulary behind.
func (svc *Service) InsertTerms(ctx context.Context, idb bun.IDB, terms []*models.Term) error {
	if len(terms) == 0 {
		return nil
	}
	now := time.Now()
	for _, term := range terms {
		if term.ID == "" {
			term.ID = uuid.NewString()
		}
		if term.CreatedAt.IsZero() {
			term.CreatedAt = now
		}
		term.UpdatedAt = term.CreatedAt
	}
	_, err := idb.
		NewInsert().
		Model(&terms).
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveTerm(ctx context.Context, opts RetrieveTermOptions) (*models.Term, error) {
	term := &models.Term{}

	q := svc.db.
		NewSelect().
		Model(term)

	if opts.ID != nil {
		q = q.Where("t.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Term")
		}
		return nil, errors.WithStack(err)
	}

	return term, nil
}

func (svc *Service) ListTerms(ctx context.Context, opts ListTermsOptions) ([]*models.Term, error) {
	t, _, err := svc.listTermsWithTotal(ctx, opts)
	return t, errors.WithStack(err)
}

func (svc *Service) ListTermsWithTotal(ctx context.Context, opts ListTermsOptions) ([]*models.Term, int, error) {
	opts.includeTotal = true
	return svc.listTermsWithTotal(ctx, opts)
}

func (svc *Service) listTermsWithTotal(ctx context.Context, opts ListTermsOptions) ([]*models.Term, int, error) {
	terms := []*models.Term{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&terms).
		Order("t.key ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.BookIDOrGlobal != nil {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("t.book_id = ?", *opts.BookIDOrGlobal).
				WhereOr("t.book_id IS NULL")
		})
	}
	if opts.SourceTypes != nil {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, s := range opts.SourceTypes {
				sq = sq.WhereOr("t.source_type = ?", s)
			}
			return sq
		})
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return terms, total, nil
}

func (svc *Service) UpdateTerm(ctx context.Context, term *models.Term, opts UpdateTermOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	now := time.Now()
	term.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(term).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Term")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) DeleteTerm(ctx context.Context, id string) error {
	_, err := svc.db.
		NewDelete().
		Model((*models.Term)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return errors.WithStack(err)
}

// ExistingKeySet returns the keys already known for a book, both its own and
// global ones. Extraction seeds its dedup set from this; matching is
// case-sensitive, so "DeFi" and "defi" are distinct entries.
func (svc *Service) ExistingKeySet(ctx context.Context, bookID string) (map[string]struct{}, error) {
	var keys []string
	err := svc.db.
		NewSelect().
		Model((*models.Term)(nil)).
		Column("t.key").
		WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("t.book_id = ?", bookID).
				WhereOr("t.book_id IS NULL")
		}).
		Scan(ctx, &keys)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set, nil
}

// ReplacePageTerms swaps out every located occurrence for a book in one
// shot: delete all rows, then insert the new ones. A scan that matched
// nothing still commits the delete, which is how stale locations for
// removed terms disappear.
func (svc *Service) ReplacePageTerms(ctx context.Context, idb bun.IDB, bookID string, pageTerms []*models.PageTerm) error {
	_, err := idb.
		NewDelete().
		Model((*models.PageTerm)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	if len(pageTerms) == 0 {
		return nil
	}

	now := time.Now()
	for _, pt := range pageTerms {
		if pt.ID == "" {
			pt.ID = uuid.NewString()
		}
		if pt.CreatedAt.IsZero() {
			pt.CreatedAt = now
		}
		if pt.Rects == "" && pt.RectsParsed != nil {
			data, err := json.Marshal(pt.RectsParsed)
			if err != nil {
				return errors.WithStack(err)
			}
			pt.Rects = string(data)
		}
	}

	_, err = idb.
		NewInsert().
		Model(&pageTerms).
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) ListPageTerms(ctx context.Context, opts ListPageTermsOptions) ([]*models.PageTerm, error) {
	pageTerms := []*models.PageTerm{}

	q := svc.db.
		NewSelect().
		Model(&pageTerms).
		Order("pt.page_no ASC", "pt.key ASC")

	if opts.BookID != nil {
		q = q.Where("pt.book_id = ?", *opts.BookID)
	}
	if opts.FromPageNo != nil {
		q = q.Where("pt.page_no >= ?", *opts.FromPageNo)
	}
	if opts.ToPageNo != nil {
		q = q.Where("pt.page_no <= ?", *opts.ToPageNo)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, pt := range pageTerms {
		if pt.Rects == "" {
			continue
		}
		err := json.Unmarshal([]byte(pt.Rects), &pt.RectsParsed)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return pageTerms, nil
}

// ApplyCropWindows rewrites each occurrence's rects into cropped-image
// space using its page's crop window. Occurrences that land entirely
// outside the viewport lose all their rects but stay in the list. A
// malformed crop box is logged and treated as uncropped.
func ApplyCropWindows(ctx context.Context, pageTerms []*models.PageTerm, cropBoxByPageNo map[int]string) {
	log := logger.FromContext(ctx)
	for _, pt := range pageTerms {
		window, ok := rects.ParseWindow(cropBoxByPageNo[pt.PageNo])
		if !ok {
			log.Warn("malformed crop box", logger.Data{"book_id": pt.BookID, "page_no": pt.PageNo})
		}
		if len(pt.RectsParsed) == 0 {
			continue
		}
		pt.RectsParsed = rects.ToCroppedSpace(pt.RectsParsed, window)
	}
}
