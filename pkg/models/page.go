package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Page is one physical page of a book: an original/cropped image pair plus
// the text extracted from it. CropBox holds the viewport JSON ([x,y,w,h]
// fractions of the original image); empty means the cropped variant shows
// the full page.
type Page struct {
	bun.BaseModel `bun:"table:pages,alias:p"`

	ID            string    `bun:",pk,nullzero" json:"id"`
	BookID        string    `bun:",nullzero" json:"book_id"`
	PageNo        int       `bun:",notnull" json:"page_no"`
	ImagePath     string    `json:"image_path"`
	CropImagePath string    `json:"crop_image_path"`
	Content       string    `json:"content"`
	CropBox       string    `json:"crop_box"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
