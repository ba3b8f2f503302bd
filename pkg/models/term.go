package models

import (
	"time"

	"github.com/inkleafbooks/inkleaf/pkg/rects"
	"github.com/uptrace/bun"
)

const (
	TermSourceManual = "manual"
	TermSourceAI     = "ai"
)

// Term is a domain-vocabulary entry with a short explanation. A nil BookID
// makes the term global; otherwise it is scoped to one book. Key is unique
// within its scope.
type Term struct {
	bun.BaseModel `bun:"table:terms,alias:t"`

	ID          string    `bun:",pk,nullzero" json:"id"`
	BookID      *string   `json:"book_id"`
	SourceType  string    `bun:",nullzero" json:"source_type"`
	Key         string    `bun:",nullzero" json:"key"`
	Explanation string    `json:"explanation"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PageTerm is a located occurrence of a term on a page. Rects is a JSON list
// of [x,y,w,h] fractions, always stored in original-image space; viewport
// transforms happen at read time only. Key and Explanation are denormalized
// from the term for display. All rows for a book are replaced per scan run.
type PageTerm struct {
	bun.BaseModel `bun:"table:page_terms,alias:pt"`

	ID          string       `bun:",pk,nullzero" json:"id"`
	BookID      string       `bun:",nullzero" json:"book_id"`
	PageNo      int          `bun:",notnull" json:"page_no"`
	TermID      string       `bun:",nullzero" json:"term_id"`
	Key         string       `bun:",nullzero" json:"key"`
	Explanation string       `json:"explanation"`
	Rects       string       `json:"-"`
	RectsParsed []rects.Rect `bun:"-" json:"rects"`
	CreatedAt   time.Time    `json:"created_at"`
}
