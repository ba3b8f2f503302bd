package books

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/inkleafbooks/inkleaf/pkg/auth"
	"github.com/inkleafbooks/inkleaf/pkg/jobs"
	"github.com/inkleafbooks/inkleaf/pkg/storage"
)

// RegisterRoutes registers book routes. Reads resolve the viewer when a
// token is present; mutations require one.
func RegisterRoutes(e *echo.Echo, db *bun.DB, store storage.ObjectStore, authMiddleware *auth.Middleware) {
	bookService := NewService(db)
	jobService := jobs.NewService(db)

	h := &handler{
		bookService: bookService,
		jobService:  jobService,
		store:       store,
	}

	g := e.Group("/books", authMiddleware.AuthenticateOptional)
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/chapters", h.chapters)
	g.GET("/:id/pages/:pageNo/image", h.pageImage)

	g.POST("", h.create, authMiddleware.Authenticate)
	g.POST("/:id", h.update, authMiddleware.Authenticate)
	g.POST("/:id/source-upload-url", h.sourceUploadURL, authMiddleware.Authenticate)
	g.POST("/:id/parse", h.parse, authMiddleware.Authenticate)
	g.POST("/:id/scan-terms", h.scanTerms, authMiddleware.Authenticate)
	g.POST("/:id/extract-terms", h.extractTerms, authMiddleware.Authenticate)
	g.POST("/:id/purchase", h.purchase, authMiddleware.Authenticate)
	g.POST("/:id/read-progress", h.readProgress, authMiddleware.Authenticate)
}
