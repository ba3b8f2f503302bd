package books

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/inkleafbooks/inkleaf/pkg/errcodes"
	"github.com/inkleafbooks/inkleaf/pkg/models"
)

// PreviewAllowed is the access decision for one page image, in priority
// order: a purchased relation grants everything; a logged-in viewer gets
// pages up to the user preview limit; an anonymous viewer gets pages up to
// the guest preview limit.
func PreviewAllowed(viewerID *string, purchased bool, guestLimit, userLimit, pageNo int) bool {
	if purchased {
		return true
	}
	if viewerID != nil {
		return pageNo <= userLimit
	}
	return pageNo <= guestLimit
}

// accessRow is the single joined read backing the gate: page image paths,
// the book's preview limits, and the viewer's purchase state if any.
type accessRow struct {
	ImagePath         string  `bun:"image_path"`
	CropImagePath     string  `bun:"crop_image_path"`
	GuestPreviewLimit int     `bun:"guest_preview_limit"`
	UserPreviewLimit  int     `bun:"user_preview_limit"`
	PurchaseStatus    *string `bun:"purchase_status"`
}

// ResolveImagePath decides whether the viewer may fetch the page image and
// returns its object key. A missing crop variant falls back to the
// original; a page outside the viewer's tier is forbidden.
func (svc *Service) ResolveImagePath(ctx context.Context, viewerID *string, bookID string, pageNo int, wantCropped bool) (string, error) {
	row := &accessRow{}

	q := svc.db.
		NewSelect().
		ColumnExpr("p.image_path, p.crop_image_path").
		ColumnExpr("b.guest_preview_limit, b.user_preview_limit").
		TableExpr("pages AS p").
		Join("JOIN books AS b ON b.id = p.book_id").
		Where("p.book_id = ?", bookID).
		Where("p.page_no = ?", pageNo)

	if viewerID != nil {
		q = q.
			ColumnExpr("bu.purchase_status").
			Join("LEFT JOIN book_users AS bu ON bu.book_id = b.id AND bu.user_id = ?", *viewerID)
	} else {
		q = q.ColumnExpr("NULL AS purchase_status")
	}

	err := q.Scan(ctx, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errcodes.NotFound("Page")
		}
		return "", errors.WithStack(err)
	}

	purchased := row.PurchaseStatus != nil && *row.PurchaseStatus == models.PurchaseStatusPurchased
	if !PreviewAllowed(viewerID, purchased, row.GuestPreviewLimit, row.UserPreviewLimit, pageNo) {
		return "", errcodes.Forbidden("Reading past the preview limit")
	}

	path := row.ImagePath
	if wantCropped && row.CropImagePath != "" {
		path = row.CropImagePath
	}
	if path == "" {
		return "", errcodes.NotFound("Page image")
	}

	return path, nil
}
