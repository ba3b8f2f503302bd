package worker

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/inkleafbooks/inkleaf/pkg/config"
	"github.com/inkleafbooks/inkleaf/pkg/extract"
	"github.com/inkleafbooks/inkleaf/pkg/jobs"
	"github.com/inkleafbooks/inkleaf/pkg/migrations"
	"github.com/inkleafbooks/inkleaf/pkg/models"
	"github.com/inkleafbooks/inkleaf/pkg/storage"
	"github.com/inkleafbooks/inkleaf/pkg/termmine"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// memoryStore is an in-memory ObjectStore backed by an httptest server, with
// per-key upload failure injection.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut map[string]bool

	server *httptest.Server
}

func newMemoryStore(t *testing.T) *memoryStore {
	t.Helper()

	s := &memoryStore{
		objects: map[string][]byte{},
		failPut: map[string]bool{},
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/")
		switch r.Method {
		case http.MethodPut:
			s.mu.Lock()
			fail := s.failPut[key]
			s.mu.Unlock()
			if fail {
				http.Error(w, "injected failure", http.StatusInternalServerError)
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			s.mu.Lock()
			s.objects[key] = body
			s.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			s.mu.Lock()
			body, ok := s.objects[key]
			s.mu.Unlock()
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write(body)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(s.server.Close)

	return s
}

func (s *memoryStore) SignedUploadURL(_ context.Context, objectKey, _ string) (*storage.SignedUpload, error) {
	return &storage.SignedUpload{URL: s.server.URL + "/" + objectKey}, nil
}

func (s *memoryStore) SignedDownloadURL(_ context.Context, objectKey string) (string, error) {
	return s.server.URL + "/" + objectKey, nil
}

func (s *memoryStore) put(key string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
}

func (s *memoryStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *memoryStore) injectPutFailure(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut[key] = true
}

// fakeExtractor produces a fixed number of pages with a two-level outline,
// or a canned logical failure.
type fakeExtractor struct {
	pageCount int
	failWith  string

	scanMatches map[int][]extract.KeywordMatch
	scanErr     error

	mu        sync.Mutex
	scanCalls int
}

func (f *fakeExtractor) Extract(_, imageDir string, onProgress extract.Progress) (*extract.Result, error) {
	if f.failWith != "" {
		return &extract.Result{Success: false, Message: f.failWith}, nil
	}

	pages := make([]*extract.Page, 0, f.pageCount)
	for i := 1; i <= f.pageCount; i++ {
		imagePath := filepath.Join(imageDir, fmt.Sprintf("%04d.png", i))
		cropPath := filepath.Join(imageDir, fmt.Sprintf("%04d_crop.png", i))
		if err := os.WriteFile(imagePath, []byte("png:"+imagePath), 0o644); err != nil {
			return nil, err
		}
		if err := os.WriteFile(cropPath, []byte("png:"+cropPath), 0o644); err != nil {
			return nil, err
		}
		pages = append(pages, &extract.Page{
			PageNo:        i,
			Text:          []string{fmt.Sprintf("text of page %d", i)},
			ImagePath:     imagePath,
			CropImagePath: cropPath,
			CropBox:       "[0.1,0.1,0.8,0.8]",
		})
		if onProgress != nil {
			onProgress(i, f.pageCount, "extracting pages")
		}
	}

	half := f.pageCount / 2
	chapters := []*extract.Outline{
		{
			Title:      "Part 1",
			FromPageNo: 1,
			ToPageNo:   half,
			Children: []*extract.Outline{
				{Title: "Chapter 1", FromPageNo: 1, ToPageNo: half},
			},
		},
		{Title: "Part 2", FromPageNo: half + 1, ToPageNo: f.pageCount},
	}

	return &extract.Result{Success: true, Pages: pages, Chapters: chapters}, nil
}

func (f *fakeExtractor) ScanKeywords(_ string, _, _ int, _ []string) (map[int][]extract.KeywordMatch, error) {
	f.mu.Lock()
	f.scanCalls++
	f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.scanMatches, nil
}

func newTestWorker(t *testing.T, db *bun.DB, store *memoryStore, extractor extract.Extractor, miner *termmine.Client) *Worker {
	t.Helper()

	cfg := &config.Config{
		DataDir:         t.TempDir(),
		WorkerProcesses: 1,
	}
	return New(cfg, db, store, extractor, miner)
}

// enqueueTestJob creates a job and returns it with DataParsed populated,
// the same shape the fetch loop hands to process functions.
func enqueueTestJob(t *testing.T, db *bun.DB, jobType string, data interface{}) *models.Job {
	t.Helper()

	jobService := jobs.NewService(db)
	job := &models.Job{
		Type:       jobType,
		DataParsed: data,
	}
	require.NoError(t, jobService.CreateJob(context.Background(), job))

	job, err := jobService.RetrieveJob(context.Background(), jobs.RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)

	return job
}
