package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkleafbooks/inkleaf/pkg/extract"
	"github.com/inkleafbooks/inkleaf/pkg/jobs"
	"github.com/inkleafbooks/inkleaf/pkg/models"
	"github.com/inkleafbooks/inkleaf/pkg/rects"
	"github.com/inkleafbooks/inkleaf/pkg/terms"
)

func TestProcessScanTermsJob_MatchesStored(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)

	book := createSourceBook(t, db, store)

	termService := terms.NewService(db)
	local := &models.Term{BookID: &book.ID, Key: "DeFi", Explanation: "Decentralized finance"}
	require.NoError(t, termService.CreateTerm(ctx, local))
	global := &models.Term{Key: "NFT", Explanation: "Non-fungible token"}
	require.NoError(t, termService.CreateTerm(ctx, global))

	extractor := &fakeExtractor{
		scanMatches: map[int][]extract.KeywordMatch{
			2: {{Term: "DeFi", Rects: [][4]float64{{0.1, 0.2, 0.1, 0.02}, {0.3, 0.5, 0.1, 0.02}}}},
			7: {{Term: "NFT", Rects: [][4]float64{{0.4, 0.4, 0.08, 0.02}}}},
		},
	}
	w := newTestWorker(t, db, store, extractor, nil)

	job := enqueueTestJob(t, db, models.JobTypeScanTerms, &models.JobScanTermsData{BookID: book.ID, ActorID: "owner-1"})
	require.NoError(t, w.ProcessScanTermsJob(ctx, job))

	pageTerms, err := termService.ListPageTerms(ctx, terms.ListPageTermsOptions{BookID: &book.ID})
	require.NoError(t, err)
	require.Len(t, pageTerms, 2)

	assert.Equal(t, 2, pageTerms[0].PageNo)
	assert.Equal(t, "DeFi", pageTerms[0].Key)
	assert.Equal(t, "Decentralized finance", pageTerms[0].Explanation)
	assert.Equal(t, local.ID, pageTerms[0].TermID)
	require.Len(t, pageTerms[0].RectsParsed, 2)
	assert.Equal(t, rects.Rect{0.1, 0.2, 0.1, 0.02}, pageTerms[0].RectsParsed[0])

	assert.Equal(t, 7, pageTerms[1].PageNo)
	assert.Equal(t, global.ID, pageTerms[1].TermID)
}

func TestProcessScanTermsJob_NoTermsIsNoop(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)

	book := createSourceBook(t, db, store)

	// Pre-existing occurrences from an earlier run.
	termService := terms.NewService(db)
	require.NoError(t, termService.ReplacePageTerms(ctx, db, book.ID, []*models.PageTerm{
		{BookID: book.ID, PageNo: 1, TermID: "stale", Key: "stale", RectsParsed: []rects.Rect{{0, 0, 0.1, 0.1}}},
	}))

	extractor := &fakeExtractor{}
	w := newTestWorker(t, db, store, extractor, nil)

	job := enqueueTestJob(t, db, models.JobTypeScanTerms, &models.JobScanTermsData{BookID: book.ID, ActorID: "owner-1"})
	require.NoError(t, w.ProcessScanTermsJob(ctx, job))

	// No terms defined: the scan never ran and nothing was touched.
	assert.Zero(t, extractor.scanCalls)
	pageTerms, err := termService.ListPageTerms(ctx, terms.ListPageTermsOptions{BookID: &book.ID})
	require.NoError(t, err)
	assert.Len(t, pageTerms, 1)
}

func TestProcessScanTermsJob_ZeroMatchesClears(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)

	book := createSourceBook(t, db, store)

	termService := terms.NewService(db)
	require.NoError(t, termService.CreateTerm(ctx, &models.Term{BookID: &book.ID, Key: "DeFi", Explanation: "x"}))
	require.NoError(t, termService.ReplacePageTerms(ctx, db, book.ID, []*models.PageTerm{
		{BookID: book.ID, PageNo: 1, TermID: "stale", Key: "stale", RectsParsed: []rects.Rect{{0, 0, 0.1, 0.1}}},
	}))

	extractor := &fakeExtractor{scanMatches: map[int][]extract.KeywordMatch{}}
	w := newTestWorker(t, db, store, extractor, nil)

	job := enqueueTestJob(t, db, models.JobTypeScanTerms, &models.JobScanTermsData{BookID: book.ID, ActorID: "owner-1"})
	require.NoError(t, w.ProcessScanTermsJob(ctx, job))

	// Terms exist but none matched: stale rows are gone.
	pageTerms, err := termService.ListPageTerms(ctx, terms.ListPageTermsOptions{BookID: &book.ID})
	require.NoError(t, err)
	assert.Empty(t, pageTerms)
}

func TestProcessScanTermsJob_MissingBookSkips(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	store := newMemoryStore(t)

	extractor := &fakeExtractor{}
	w := newTestWorker(t, db, store, extractor, nil)

	job := enqueueTestJob(t, db, models.JobTypeScanTerms, &models.JobScanTermsData{BookID: "gone", ActorID: "owner-1"})
	require.NoError(t, w.ProcessScanTermsJob(ctx, job))

	assert.Zero(t, extractor.scanCalls)

	retrieved, err := w.jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, 100, retrieved.Progress)
	assert.Equal(t, "book does not exist", retrieved.Message)
}
