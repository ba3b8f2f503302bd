package storage

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	methodUpload   = "upload"
	methodDownload = "download"
)

// Local stores objects on the local filesystem and signs URLs with a JWT so
// they behave like bucket-issued presigned URLs: anyone holding the URL can
// use it until it expires, nothing else is accepted.
type Local struct {
	dir     string
	baseURL string
	secret  []byte
	ttl     time.Duration
}

func NewLocal(dir, baseURL string, secret []byte, ttl time.Duration) *Local {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &Local{dir: dir, baseURL: baseURL, secret: secret, ttl: ttl}
}

type urlClaims struct {
	ObjectKey   string `json:"key"`
	Method      string `json:"method"`
	ContentType string `json:"content_type,omitempty"`
	jwt.RegisteredClaims
}

func (l *Local) sign(objectKey, method, contentType string) (string, error) {
	claims := urlClaims{
		ObjectKey:   objectKey,
		Method:      method,
		ContentType: contentType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(l.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return token, nil
}

func (l *Local) verify(token string) (*urlClaims, error) {
	claims := &urlClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return l.secret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid object token")
	}
	return claims, nil
}

func (l *Local) SignedUploadURL(_ context.Context, objectKey, contentType string) (*SignedUpload, error) {
	token, err := l.sign(objectKey, methodUpload, contentType)
	if err != nil {
		return nil, err
	}
	return &SignedUpload{
		URL:     l.baseURL + "/objects/" + token,
		Headers: map[string]string{"Content-Type": contentType},
	}, nil
}

func (l *Local) SignedDownloadURL(_ context.Context, objectKey string) (string, error) {
	token, err := l.sign(objectKey, methodDownload, "")
	if err != nil {
		return "", err
	}
	return l.baseURL + "/objects/" + token, nil
}
