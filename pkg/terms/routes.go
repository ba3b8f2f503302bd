package terms

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/inkleafbooks/inkleaf/pkg/auth"
	"github.com/inkleafbooks/inkleaf/pkg/books"
)

// RegisterRoutes registers term routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) {
	termService := NewService(db)
	bookService := books.NewService(db)

	h := &handler{
		termService: termService,
		bookService: bookService,
	}

	g := e.Group("/terms", authMiddleware.AuthenticateOptional)
	g.GET("", h.list)
	g.POST("", h.create, authMiddleware.Authenticate)
	g.POST("/:id", h.update, authMiddleware.Authenticate)
	g.DELETE("/:id", h.delete, authMiddleware.Authenticate)

	e.GET("/books/:id/page-terms", h.listPageTerms, authMiddleware.AuthenticateOptional)
}
