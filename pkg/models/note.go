package models

import (
	"time"

	"github.com/inkleafbooks/inkleaf/pkg/rects"
	"github.com/uptrace/bun"
)

// Note is a reader annotation on a page. HighlightRects is stored in
// original-image space; rects captured against the cropped variant are
// converted at creation time.
type Note struct {
	bun.BaseModel `bun:"table:notes,alias:n"`

	ID                   string       `bun:",pk,nullzero" json:"id"`
	BookID               string       `bun:",nullzero" json:"book_id"`
	UserID               string       `bun:",nullzero" json:"user_id"`
	PageNo               int          `bun:",notnull" json:"page_no"`
	Content              string       `json:"content"`
	HighlightRects       string       `json:"-"`
	HighlightRectsParsed []rects.Rect `bun:"-" json:"highlight_rects"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}
