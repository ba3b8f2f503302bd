package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Chapter is a named page-range grouping within a book, possibly nested.
// Chapters are created in bulk during ingestion and replaced wholesale when
// a book is re-ingested.
type Chapter struct {
	bun.BaseModel `bun:"table:chapters,alias:ch"`

	ID         string    `bun:",pk,nullzero" json:"id"`
	BookID     string    `bun:",nullzero" json:"book_id"`
	ParentID   *string   `json:"parent_id"`
	Title      string    `bun:",nullzero" json:"title"`
	FromPageNo int       `bun:",notnull" json:"from_page_no"`
	ToPageNo   int       `bun:",notnull" json:"to_page_no"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Children []*Chapter `bun:"rel:has-many,join:id=parent_id" json:"children,omitempty"`
}

// ChapterPage joins a chapter to every page inside its range. The join rows
// are derived during ingestion and never patched incrementally.
type ChapterPage struct {
	bun.BaseModel `bun:"table:chapter_pages,alias:cp"`

	ID        string    `bun:",pk,nullzero" json:"id"`
	ChapterID string    `bun:",nullzero" json:"chapter_id"`
	PageID    string    `bun:",nullzero" json:"page_id"`
	CreatedAt time.Time `json:"created_at"`
}
