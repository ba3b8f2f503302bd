package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"

	"github.com/inkleafbooks/inkleaf/pkg/auth"
	"github.com/inkleafbooks/inkleaf/pkg/binder"
	"github.com/inkleafbooks/inkleaf/pkg/books"
	"github.com/inkleafbooks/inkleaf/pkg/config"
	"github.com/inkleafbooks/inkleaf/pkg/errcodes"
	"github.com/inkleafbooks/inkleaf/pkg/jobs"
	"github.com/inkleafbooks/inkleaf/pkg/notes"
	"github.com/inkleafbooks/inkleaf/pkg/storage"
	"github.com/inkleafbooks/inkleaf/pkg/terms"
)

func New(cfg *config.Config, db *bun.DB, store *storage.Local) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	authService := auth.NewService(cfg.ViewerTokenSecret)
	authMiddleware := auth.NewMiddleware(authService)

	books.RegisterRoutes(e, db, store, authMiddleware)
	terms.RegisterRoutes(e, db, authMiddleware)
	notes.RegisterRoutes(e, db, authMiddleware)
	jobs.RegisterRoutes(e, db, authMiddleware)
	storage.RegisterRoutes(e, store)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
