package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Process status lifecycle: pending -> processing -> success | failed.
// Replacing the source file moves a book back to pending.
const (
	ProcessStatusPending    = "pending"
	ProcessStatusProcessing = "processing"
	ProcessStatusSuccess    = "success"
	ProcessStatusFailed     = "failed"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID                string    `bun:",pk,nullzero" json:"id"`
	Title             string    `bun:",nullzero" json:"title"`
	Author            *string   `json:"author"`
	Summary           *string   `json:"summary"`
	CoverPath         *string   `json:"cover_path"`
	SourcePath        string    `json:"-"`
	PageCount         int       `json:"page_count"`
	GuestPreviewLimit int       `bun:",notnull" json:"guest_preview_limit"`
	UserPreviewLimit  int       `bun:",notnull" json:"user_preview_limit"`
	ProcessStatus     string    `bun:",nullzero" json:"process_status"`
	Remark            *string   `json:"remark"`
	ListPriceCents    *int      `json:"list_price_cents"`
	SalePriceCents    *int      `json:"sale_price_cents"`
	OwnerID           string    `bun:",nullzero" json:"owner_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Chapters []*Chapter `bun:"rel:has-many,join:id=book_id" json:"chapters,omitempty"`
}
