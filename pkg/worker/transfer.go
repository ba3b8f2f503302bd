package worker

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// downloadObject streams the object behind a signed URL to localPath. A
// partial file never survives a failed transfer.
func (w *Worker) downloadObject(ctx context.Context, objectKey, localPath string) error {
	url, err := w.store.SignedDownloadURL(ctx, objectKey)
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.WithStack(err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("download %s: unexpected status %d", objectKey, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return errors.WithStack(err)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = io.Copy(f, resp.Body)
	cerr := f.Close()
	if err != nil || cerr != nil {
		os.Remove(localPath)
		if err != nil {
			return errors.WithStack(err)
		}
		return errors.WithStack(cerr)
	}

	return nil
}

// uploadFile PUTs a local file to the store under objectKey.
func (w *Worker) uploadFile(ctx context.Context, localPath, objectKey string) error {
	mtype, err := mimetype.DetectFile(localPath)
	if err != nil {
		return errors.WithStack(err)
	}

	upload, err := w.store.SignedUploadURL(ctx, objectKey, mtype.String())
	if err != nil {
		return errors.WithStack(err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, upload.URL, f)
	if err != nil {
		return errors.WithStack(err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", mtype.String())
	for k, v := range upload.Headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("upload %s: unexpected status %d", objectKey, resp.StatusCode)
	}

	return nil
}

// workDir is the scratch directory for one book's pipeline run.
func (w *Worker) workDir(bookID string) string {
	return filepath.Join(w.config.DataDir, "work", bookID)
}

// ensureLocalSource makes the book's source file available on local disk
// and returns its path.
func (w *Worker) ensureLocalSource(ctx context.Context, bookID, sourceKey string) (string, error) {
	localPath := filepath.Join(w.workDir(bookID), "source"+filepath.Ext(sourceKey))
	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if err := w.downloadObject(ctx, sourceKey, localPath); err != nil {
		return "", errors.WithStack(err)
	}

	return localPath, nil
}
