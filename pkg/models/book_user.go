package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	PurchaseStatusNone      = "none"
	PurchaseStatusPurchased = "purchased"
)

// BookUser is the relation between a viewer and a book: purchase state plus
// last-read bookkeeping. One row per (book, user), created lazily on first
// interaction or by a purchase event.
type BookUser struct {
	bun.BaseModel `bun:"table:book_users,alias:bu"`

	ID             string     `bun:",pk,nullzero" json:"id"`
	BookID         string     `bun:",nullzero" json:"book_id"`
	UserID         string     `bun:",nullzero" json:"user_id"`
	PurchaseStatus string     `bun:",nullzero" json:"purchase_status"`
	LastReadPageNo *int       `json:"last_read_page_no"`
	LastReadAt     *time.Time `json:"last_read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
}
