package notes

import "github.com/inkleafbooks/inkleaf/pkg/rects"

type CreateNotePayload struct {
	BookID         string       `json:"book_id" validate:"required,uuid4"`
	PageNo         int          `json:"page_no" validate:"required,min=1"`
	Content        string       `json:"content" validate:"max=10000"`
	HighlightRects []rects.Rect `json:"highlight_rects" validate:"required,min=1,max=100"`
	CropMode       bool         `json:"crop_mode"`
}

type ListNotesQuery struct {
	Limit     int     `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset    int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	BookID    *string `query:"book_id" json:"book_id,omitempty" validate:"omitempty,uuid4" tstype:"string"`
	ImageMode string  `query:"image_mode" json:"image_mode,omitempty" default:"original" validate:"oneof=crop original"`
}
