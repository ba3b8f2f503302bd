package storage

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/inkleafbooks/inkleaf/pkg/errcodes"
)

type handler struct {
	local *Local
}

// RegisterRoutes exposes the transfer endpoints for locally stored objects.
// The token in the path is the whole authorization; there is no session.
func RegisterRoutes(e *echo.Echo, local *Local) {
	h := &handler{local: local}

	e.PUT("/objects/:token", h.upload)
	e.GET("/objects/:token", h.download)
}

func (h *handler) objectPath(objectKey string) (string, error) {
	// Object keys come from signed tokens, but keep path traversal out of
	// the data directory anyway.
	cleaned := filepath.Clean("/" + objectKey)
	if cleaned == "/" {
		return "", errcodes.NotFound("Object")
	}
	return filepath.Join(h.local.dir, cleaned), nil
}

func (h *handler) upload(c echo.Context) error {
	log := logger.FromContext(c.Request().Context())

	claims, err := h.local.verify(c.Param("token"))
	if err != nil {
		return errcodes.Forbidden("Uploading without a valid signed URL")
	}
	if claims.Method != methodUpload {
		return errcodes.Forbidden("Uploading with a download URL")
	}

	path, err := h.objectPath(claims.ObjectKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	if _, err := io.Copy(f, c.Request().Body); err != nil {
		os.Remove(path)
		return errors.WithStack(err)
	}

	if claims.ContentType != "" {
		mtype, err := mimetype.DetectFile(path)
		if err == nil && !strings.EqualFold(mtype.String(), claims.ContentType) {
			log.Warn("uploaded content type differs from signed content type", logger.Data{
				"object_key": claims.ObjectKey,
				"signed":     claims.ContentType,
				"detected":   mtype.String(),
			})
		}
	}

	return c.NoContent(http.StatusOK)
}

func (h *handler) download(c echo.Context) error {
	claims, err := h.local.verify(c.Param("token"))
	if err != nil {
		return errcodes.Forbidden("Downloading without a valid signed URL")
	}
	if claims.Method != methodDownload {
		return errcodes.Forbidden("Downloading with an upload URL")
	}

	path, err := h.objectPath(claims.ObjectKey)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return errcodes.NotFound("Object")
	}

	return c.File(path)
}
