package notes

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"

	"github.com/inkleafbooks/inkleaf/pkg/auth"
	"github.com/inkleafbooks/inkleaf/pkg/books"
)

// RegisterRoutes registers note routes. Notes are always scoped to the
// authenticated viewer.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) {
	noteService := NewService(db)
	bookService := books.NewService(db)

	h := &handler{
		noteService: noteService,
		bookService: bookService,
	}

	g := e.Group("/notes", authMiddleware.AuthenticateOptional)
	g.GET("", h.list, authMiddleware.Authenticate)
	g.POST("", h.create, authMiddleware.Authenticate)
	g.DELETE("/:id", h.delete, authMiddleware.Authenticate)
}
