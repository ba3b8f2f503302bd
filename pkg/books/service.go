package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/inkleafbooks/inkleaf/pkg/errcodes"
	"github.com/inkleafbooks/inkleaf/pkg/models"
)

type RetrieveBookOptions struct {
	ID *string
}

type ListBooksOptions struct {
	Limit   *int
	Offset  *int
	OwnerID *string

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
}

type ListPagesOptions struct {
	BookID     *string
	FromPageNo *int
	ToPageNo   *int
	PageNos    []int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt

	if book.ID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return errors.WithStack(err)
		}
		book.ID = id.String()
	}
	if book.ProcessStatus == "" {
		book.ProcessStatus = models.ProcessStatusPending
	}
	if book.GuestPreviewLimit == 0 {
		book.GuestPreviewLimit = 5
	}
	if book.UserPreviewLimit == 0 {
		book.UserPreviewLimit = 10
	}

	_, err := svc.db.
		NewInsert().
		Model(book).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Order("b.created_at ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.OwnerID != nil {
		q = q.Where("b.owner_id = ?", *opts.OwnerID)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

// UpdateBook updates the given columns. It runs against idb so status flips
// can either commit immediately (pass the root DB) or ride along in a
// composed transaction (pass the Tx).
func (svc *Service) UpdateBook(ctx context.Context, idb bun.IDB, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	now := time.Now()
	book.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	_, err := idb.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Book")
		}
		return errors.WithStack(err)
	}

	return nil
}

// DeleteBookStructure removes all chapters, pages, and chapter-page joins
// for a book. Ingestion calls this inside its transaction before inserting
// the fresh structure, which is what makes re-ingestion idempotent.
func (svc *Service) DeleteBookStructure(ctx context.Context, idb bun.IDB, bookID string) error {
	_, err := idb.
		NewDelete().
		Model((*models.ChapterPage)(nil)).
		Where("chapter_id IN (SELECT id FROM chapters WHERE book_id = ?)", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = idb.
		NewDelete().
		Model((*models.Chapter)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = idb.
		NewDelete().
		Model((*models.Page)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) InsertChapters(ctx context.Context, idb bun.IDB, chapters []*models.Chapter) error {
	if len(chapters) == 0 {
		return nil
	}
	now := time.Now()
	for _, ch := range chapters {
		if ch.CreatedAt.IsZero() {
			ch.CreatedAt = now
		}
		ch.UpdatedAt = ch.CreatedAt
	}
	_, err := idb.
		NewInsert().
		Model(&chapters).
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) InsertPages(ctx context.Context, idb bun.IDB, pages []*models.Page) error {
	if len(pages) == 0 {
		return nil
	}
	now := time.Now()
	for _, p := range pages {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = p.CreatedAt
	}
	_, err := idb.
		NewInsert().
		Model(&pages).
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) InsertChapterPages(ctx context.Context, idb bun.IDB, joins []*models.ChapterPage) error {
	if len(joins) == 0 {
		return nil
	}
	now := time.Now()
	for _, j := range joins {
		if j.CreatedAt.IsZero() {
			j.CreatedAt = now
		}
	}
	_, err := idb.
		NewInsert().
		Model(&joins).
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) ListChapters(ctx context.Context, bookID string) ([]*models.Chapter, error) {
	chapters := []*models.Chapter{}
	err := svc.db.
		NewSelect().
		Model(&chapters).
		Where("ch.book_id = ?", bookID).
		Order("ch.from_page_no ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return chapters, nil
}

func (svc *Service) ListPages(ctx context.Context, opts ListPagesOptions) ([]*models.Page, error) {
	pages := []*models.Page{}

	q := svc.db.
		NewSelect().
		Model(&pages).
		Order("p.page_no ASC")

	if opts.BookID != nil {
		q = q.Where("p.book_id = ?", *opts.BookID)
	}
	if opts.FromPageNo != nil {
		q = q.Where("p.page_no >= ?", *opts.FromPageNo)
	}
	if opts.ToPageNo != nil {
		q = q.Where("p.page_no <= ?", *opts.ToPageNo)
	}
	if len(opts.PageNos) > 0 {
		q = q.Where("p.page_no IN (?)", bun.In(opts.PageNos))
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return pages, nil
}

func (svc *Service) RetrieveBookUser(ctx context.Context, bookID, userID string) (*models.BookUser, error) {
	bu := &models.BookUser{}
	err := svc.db.
		NewSelect().
		Model(bu).
		Where("bu.book_id = ?", bookID).
		Where("bu.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("BookUser")
		}
		return nil, errors.WithStack(err)
	}
	return bu, nil
}

// UpsertBookUser creates the relation lazily on first interaction or
// updates purchase/read state on an existing one.
func (svc *Service) UpsertBookUser(ctx context.Context, bu *models.BookUser) error {
	now := time.Now()
	if bu.CreatedAt.IsZero() {
		bu.CreatedAt = now
	}
	bu.UpdatedAt = now

	if bu.ID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return errors.WithStack(err)
		}
		bu.ID = id.String()
	}
	if bu.PurchaseStatus == "" {
		bu.PurchaseStatus = models.PurchaseStatusNone
	}

	_, err := svc.db.
		NewInsert().
		Model(bu).
		On("CONFLICT (book_id, user_id) DO UPDATE").
		Set("purchase_status = EXCLUDED.purchase_status").
		Set("last_read_page_no = COALESCE(EXCLUDED.last_read_page_no, bu.last_read_page_no)").
		Set("last_read_at = COALESCE(EXCLUDED.last_read_at, bu.last_read_at)").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return errors.WithStack(err)
}
