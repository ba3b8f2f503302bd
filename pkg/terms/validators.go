package terms

type ListTermsQuery struct {
	Limit      int      `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset     int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	BookID     *string  `query:"book_id" json:"book_id,omitempty" validate:"omitempty,uuid4" tstype:"string"`
	SourceType []string `query:"source_type" json:"source_type,omitempty" validate:"dive,oneof=manual ai"`
}

type CreateTermPayload struct {
	BookID      *string `json:"book_id,omitempty" validate:"omitempty,uuid4"`
	Key         string  `json:"key" validate:"required,max=200"`
	Explanation string  `json:"explanation" validate:"required,max=2000"`
}

type UpdateTermPayload struct {
	Key         *string `json:"key,omitempty" validate:"omitempty,max=200"`
	Explanation *string `json:"explanation,omitempty" validate:"omitempty,max=2000"`
}

type ListPageTermsQuery struct {
	From      *int   `query:"from" json:"from,omitempty" validate:"omitempty,min=1"`
	To        *int   `query:"to" json:"to,omitempty" validate:"omitempty,min=1"`
	ImageMode string `query:"image_mode" json:"image_mode,omitempty" default:"original" validate:"oneof=crop original"`
}
