package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

func TestRunner_StartClaimsAndRuns(t *testing.T) {
	st := newTestStore(t)
	p := createTestProduct(t, st, "Sony WH-1000XM5")
	ctx := context.Background()

	finder := &mockFinder{}
	finder.On("DiscoverReviewURLs", mock.Anything, mock.Anything).
		Return([]string{"https://a/r1"}, nil)

	scraper := &mockScraper{}
	scraper.On("Extract", mock.Anything, mock.Anything).Return(successResult("https://a/r1", "a review"))

	analyzer := &mockAnalyzer{}
	analyzer.On("Analyze", mock.Anything, mock.Anything).Return(&model.AnalysisPayload{}, nil)

	r := NewRunner(New(st, finder, scraper, analyzer))

	started, err := r.Start(ctx, p.ProductID, p.ProductName)
	require.NoError(t, err)
	assert.True(t, started)
	r.Wait()

	got, err := st.GetProduct(ctx, p.ProductID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusCompleted, got.Status)

	// Completed products cannot be restarted.
	started, err = r.Start(ctx, p.ProductID, p.ProductName)
	require.NoError(t, err)
	assert.False(t, started)
}

func TestRunner_StartLosesClaimWhileProcessing(t *testing.T) {
	st := newTestStore(t)
	p := createTestProduct(t, st, "Bose QC45")
	ctx := context.Background()

	require.NoError(t, st.SetProductStatus(ctx, p.ProductID, model.ProductStatusProcessing))

	r := NewRunner(New(st, &mockFinder{}, &mockScraper{}, &mockAnalyzer{}))
	started, err := r.Start(ctx, p.ProductID, p.ProductName)
	require.NoError(t, err)
	assert.False(t, started)
}

func TestRunner_PanicRecordsFailure(t *testing.T) {
	st := newTestStore(t)
	p := createTestProduct(t, st, "Sony WH-1000XM5")
	ctx := context.Background()

	finder := &mockFinder{}
	finder.On("DiscoverReviewURLs", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("boom") }).
		Return([]string{}, nil)

	r := NewRunner(New(st, finder, &mockScraper{}, &mockAnalyzer{}))
	started, err := r.Start(ctx, p.ProductID, p.ProductName)
	require.NoError(t, err)
	assert.True(t, started)
	r.Wait()

	got, err := st.GetProduct(ctx, p.ProductID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusFailed, got.Status)

	latest, err := st.GetLatestProgress(ctx, p.ProductID)
	require.NoError(t, err)
	assert.Contains(t, latest.Error, "panic: boom")
}

func TestRunner_FailedProductCanBeRetried(t *testing.T) {
	st := newTestStore(t)
	p := createTestProduct(t, st, "Sony WH-1000XM5")
	ctx := context.Background()

	require.NoError(t, st.SetProductStatus(ctx, p.ProductID, model.ProductStatusFailed))

	finder := &mockFinder{}
	finder.On("DiscoverReviewURLs", mock.Anything, mock.Anything).
		Return([]string{"https://a/r1"}, nil)
	scraper := &mockScraper{}
	scraper.On("Extract", mock.Anything, mock.Anything).Return(successResult("https://a/r1", "a review"))
	analyzer := &mockAnalyzer{}
	analyzer.On("Analyze", mock.Anything, mock.Anything).Return(&model.AnalysisPayload{}, nil)

	r := NewRunner(New(st, finder, scraper, analyzer))
	started, err := r.Start(ctx, p.ProductID, p.ProductName)
	require.NoError(t, err)
	assert.True(t, started)
	r.Wait()

	got, err := st.GetProduct(ctx, p.ProductID)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusCompleted, got.Status)
}
