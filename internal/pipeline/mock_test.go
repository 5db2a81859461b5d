package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/store"
)

type mockFinder struct{ mock.Mock }

func (m *mockFinder) DiscoverReviewURLs(ctx context.Context, productName string) ([]string, error) {
	args := m.Called(ctx, productName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockScraper struct{ mock.Mock }

func (m *mockScraper) Extract(ctx context.Context, pageURL string) model.ExtractResult {
	args := m.Called(ctx, pageURL)
	return args.Get(0).(model.ExtractResult)
}

func (m *mockScraper) ExtractBatch(ctx context.Context, urls []string) []model.ExtractResult {
	args := m.Called(ctx, urls)
	return args.Get(0).([]model.ExtractResult)
}

type mockAnalyzer struct{ mock.Mock }

func (m *mockAnalyzer) Analyze(ctx context.Context, reviews []string) (*model.AnalysisPayload, error) {
	args := m.Called(ctx, reviews)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AnalysisPayload), args.Error(1)
}

// recordingStore wraps a real store and keeps every progress event so tests
// can assert the whole sequence, not just the latest row.
type recordingStore struct {
	store.Store
	logs []model.ProcessingLog
}

func (r *recordingStore) AppendProgress(ctx context.Context, log model.ProcessingLog) error {
	r.logs = append(r.logs, log)
	return r.Store.AppendProgress(ctx, log)
}

func newTestStore(t *testing.T) *recordingStore {
	t.Helper()

	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	return &recordingStore{Store: s}
}

func createTestProduct(t *testing.T, s store.Store, name string) *model.Product {
	t.Helper()

	p, err := s.CreateProduct(context.Background(), name, nil)
	require.NoError(t, err)
	return p
}
