package books

type ListBooksQuery struct {
	Limit   int     `query:"limit" json:"limit,omitempty" default:"24" validate:"min=1,max=100"`
	Offset  int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	OwnerID *string `query:"owner_id" json:"owner_id,omitempty" validate:"omitempty,uuid4" tstype:"string"`
}

type CreateBookPayload struct {
	Title             string  `json:"title" validate:"required,max=300"`
	Author            *string `json:"author,omitempty" validate:"omitempty,max=200"`
	Summary           *string `json:"summary,omitempty" validate:"omitempty,max=5000"`
	GuestPreviewLimit *int    `json:"guest_preview_limit,omitempty" validate:"omitempty,min=0"`
	UserPreviewLimit  *int    `json:"user_preview_limit,omitempty" validate:"omitempty,min=0"`
	ListPriceCents    *int    `json:"list_price_cents,omitempty" validate:"omitempty,min=0"`
	SalePriceCents    *int    `json:"sale_price_cents,omitempty" validate:"omitempty,min=0"`
}

type UpdateBookPayload struct {
	Title             *string `json:"title,omitempty" validate:"omitempty,max=300"`
	Author            *string `json:"author,omitempty" validate:"omitempty,max=200"`
	Summary           *string `json:"summary,omitempty" validate:"omitempty,max=5000"`
	SourcePath        *string `json:"source_path,omitempty" validate:"omitempty,max=1000"`
	GuestPreviewLimit *int    `json:"guest_preview_limit,omitempty" validate:"omitempty,min=0"`
	UserPreviewLimit  *int    `json:"user_preview_limit,omitempty" validate:"omitempty,min=0"`
	ListPriceCents    *int    `json:"list_price_cents,omitempty" validate:"omitempty,min=0"`
	SalePriceCents    *int    `json:"sale_price_cents,omitempty" validate:"omitempty,min=0"`
}

type ExtractTermsPayload struct {
	FromPage int `json:"from_page" validate:"required,min=1"`
	ToPage   int `json:"to_page" validate:"required,min=1,gtefield=FromPage"`
}

type PageImageQuery struct {
	Variant string `query:"variant" json:"variant,omitempty" default:"crop" validate:"oneof=crop original"`
}

type ReadProgressPayload struct {
	PageNo int `json:"page_no" validate:"required,min=1"`
}

type SourceUploadPayload struct {
	ContentType string `json:"content_type" validate:"required,max=200"`
}
