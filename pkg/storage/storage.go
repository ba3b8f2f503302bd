// Package storage is the object-store boundary: the pipelines never touch
// buckets directly, they exchange object keys for short-lived signed URLs
// and perform plain HTTP transfers against them.
package storage

import "context"

// SignedUpload carries everything a client needs to PUT an object.
type SignedUpload struct {
	URL     string            `json:"upload_url"`
	Headers map[string]string `json:"headers"`
}

type ObjectStore interface {
	// SignedUploadURL returns a time-limited URL (plus required headers)
	// that accepts a single PUT of the given object.
	SignedUploadURL(ctx context.Context, objectKey, contentType string) (*SignedUpload, error)

	// SignedDownloadURL returns a time-limited URL serving the object.
	SignedDownloadURL(ctx context.Context, objectKey string) (string, error)
}
