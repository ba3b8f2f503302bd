package auth

import (
	"github.com/inkleafbooks/inkleaf/pkg/errcodes"
	"github.com/labstack/echo/v4"
)

// Middleware resolves the viewer identity for requests.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{authService: authService}
}

// Authenticate requires a valid viewer token and adds the viewer ID to the
// context. Requests without one get a 401.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			return errcodes.Unauthorized("Authentication required")
		}

		claims, err := m.authService.ValidateToken(cookie.Value)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token")
		}

		c.Set("viewer_id", claims.ViewerID)
		return next(c)
	}
}

// AuthenticateOptional resolves the viewer if a valid token is present but
// lets anonymous requests through. Preview limits handle the rest.
func (m *Middleware) AuthenticateOptional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(CookieName)
		if err == nil && cookie.Value != "" {
			claims, err := m.authService.ValidateToken(cookie.Value)
			if err == nil {
				c.Set("viewer_id", claims.ViewerID)
			}
		}
		return next(c)
	}
}

// ViewerIDFromContext retrieves the viewer ID from the Echo context. It
// returns nil for anonymous requests.
func ViewerIDFromContext(c echo.Context) *string {
	viewerID, ok := c.Get("viewer_id").(string)
	if !ok || viewerID == "" {
		return nil
	}
	return &viewerID
}
