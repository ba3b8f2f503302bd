package jobs

import (
	"github.com/inkleafbooks/inkleaf/pkg/auth"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers job routes. Jobs are enqueued from the book
// endpoints; this surface only exposes status polling.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) {
	jobService := NewService(db)

	h := &handler{
		jobService: jobService,
	}

	g := e.Group("/jobs", authMiddleware.AuthenticateOptional)
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
}
