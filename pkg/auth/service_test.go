package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkleafbooks/inkleaf/pkg/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	svc := auth.NewService("test-secret")

	token, err := svc.GenerateToken("viewer-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "viewer-1", claims.ViewerID)
	assert.WithinDuration(t, time.Now().Add(auth.TokenExpiry), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := auth.NewService("secret-a").GenerateToken("viewer-1")
	require.NoError(t, err)

	_, err = auth.NewService("secret-b").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	t.Parallel()

	claims := auth.ViewerClaims{
		ViewerID: "viewer-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = auth.NewService("test-secret").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenWrongMethod(t *testing.T) {
	t.Parallel()

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.ViewerClaims{ViewerID: "viewer-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewService("test-secret").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	t.Parallel()

	_, err := auth.NewService("test-secret").ValidateToken("not-a-token")
	assert.Error(t, err)
}
