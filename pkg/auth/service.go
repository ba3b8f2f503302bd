package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// CookieName is the cookie carrying the viewer token.
	CookieName = "inkleaf_viewer"
	// TokenExpiry is how long viewer tokens are valid.
	TokenExpiry = 30 * 24 * time.Hour
)

// ViewerClaims represents the claims in a viewer token. Viewers are
// identified externally; the token only asserts who is reading.
type ViewerClaims struct {
	ViewerID string `json:"viewer_id"`
	jwt.RegisteredClaims
}

// Service issues and validates viewer tokens.
type Service struct {
	secret []byte
}

// NewService creates a new auth service.
func NewService(secret string) *Service {
	return &Service{secret: []byte(secret)}
}

// GenerateToken creates a new signed token for the viewer.
func (s *Service) GenerateToken(viewerID string) (string, error) {
	now := time.Now()
	claims := ViewerClaims{
		ViewerID: viewerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.secret)
	if err != nil {
		return "", errors.WithStack(err)
	}

	return signedToken, nil
}

// ValidateToken validates a viewer token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*ViewerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ViewerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*ViewerClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
