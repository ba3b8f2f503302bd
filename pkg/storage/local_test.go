package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	t.Parallel()

	l := NewLocal(t.TempDir(), "http://localhost:3690", []byte("test-secret"), time.Minute)
	ctx := context.Background()

	up, err := l.SignedUploadURL(ctx, "books/1/pages/1.webp", "image/webp")
	require.NoError(t, err)
	assert.Contains(t, up.URL, "/objects/")
	assert.Equal(t, "image/webp", up.Headers["Content-Type"])

	token := up.URL[len("http://localhost:3690/objects/"):]
	claims, err := l.verify(token)
	require.NoError(t, err)
	assert.Equal(t, "books/1/pages/1.webp", claims.ObjectKey)
	assert.Equal(t, methodUpload, claims.Method)

	dl, err := l.SignedDownloadURL(ctx, "books/1/pages/1.webp")
	require.NoError(t, err)
	claims, err = l.verify(dl[len("http://localhost:3690/objects/"):])
	require.NoError(t, err)
	assert.Equal(t, methodDownload, claims.Method)
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	t.Parallel()

	l := NewLocal(t.TempDir(), "http://localhost:3690", []byte("test-secret"), -time.Minute)
	token, err := l.sign("key", methodDownload, "")
	require.NoError(t, err)

	_, err = l.verify(token)
	assert.Error(t, err)

	other := NewLocal(t.TempDir(), "http://localhost:3690", []byte("other-secret"), time.Minute)
	token, err = other.sign("key", methodDownload, "")
	require.NoError(t, err)

	_, err = l.verify(token)
	assert.Error(t, err)
}
