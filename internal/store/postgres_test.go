package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

func newMockPostgres(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresCreateProduct(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO products`).
		WithArgs("sony-wh-1000xm5", "Sony WH-1000XM5", "pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	p, err := s.CreateProduct(context.Background(), "Sony WH-1000XM5", nil)
	require.NoError(t, err)
	assert.Equal(t, "sony-wh-1000xm5", p.ProductID)
	assert.Equal(t, model.ProductStatusPending, p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateProductExisting(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now().UTC()

	// Conflict on the id: insert affects zero rows and the existing row wins.
	mock.ExpectExec(`INSERT INTO products`).
		WithArgs("sony-wh-1000xm5", "Sony WH-1000XM5", "pending", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT product_id, product_name, status, metadata, created_at FROM products`).
		WithArgs("sony-wh-1000xm5").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "product_name", "status", "metadata", "created_at"}).
			AddRow("sony-wh-1000xm5", "Sony WH-1000XM5", model.ProductStatusCompleted, []byte(nil), now))

	p, err := s.CreateProduct(context.Background(), "Sony WH-1000XM5", nil)
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusCompleted, p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetProductMissing(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT product_id, product_name, status, metadata, created_at FROM products`).
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "product_name", "status", "metadata", "created_at"}))

	p, err := s.GetProduct(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClaimProduct(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE products SET status`).
		WithArgs("processing", "bose-qc45", "pending", "failed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE products SET status`).
		WithArgs("processing", "bose-qc45", "pending", "failed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	claimed, err := s.ClaimProduct(context.Background(), "bose-qc45")
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = s.ClaimProduct(context.Background(), "bose-qc45")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendRawReviews(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectCopyFrom(pgx.Identifier{"raw_reviews"},
		[]string{"id", "product_id", "source_url", "source_platform", "domain", "raw_data", "metadata", "scraped_at"}).
		WillReturnResult(1)

	n, err := s.AppendRawReviews(context.Background(), "sony-wh-1000xm5", []model.ExtractResult{
		{URL: "https://amazon.in/r1", Success: true, Content: "great", Domain: "amazon.in", Platform: "amazon"},
		{URL: "https://flipkart.com/r2", Success: false, Error: "timeout"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendRawReviewsAllFailed(t *testing.T) {
	s, mock := newMockPostgres(t)

	// No COPY issued when nothing survives the filter.
	n, err := s.AppendRawReviews(context.Background(), "p", []model.ExtractResult{
		{URL: "https://a", Success: false},
		{URL: "https://b", Success: true, Content: ""},
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertAnalysisMarksCompleted(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO analysis_results`).
		WithArgs("sony-wh-1000xm5", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE products SET status`).
		WithArgs("completed", "sony-wh-1000xm5").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpsertAnalysis(context.Background(), "sony-wh-1000xm5", &model.AnalysisPayload{
		Sentiment: &model.Sentiment{Score: 8, Sentiment: "positive"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendProgressTerminalPropagates(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO processing_logs`).
		WithArgs(pgxmock.AnyArg(), "sony-wh-1000xm5", "analyze", "failed", 0, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE products SET status`).
		WithArgs("failed", "sony-wh-1000xm5").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.AppendProgress(context.Background(), model.ProcessingLog{
		ProductID: "sony-wh-1000xm5",
		Stage:     model.StageAnalyze,
		Status:    model.ProgressFailed,
		Error:     "boom",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendProgressInProgress(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO processing_logs`).
		WithArgs(pgxmock.AnyArg(), "sony-wh-1000xm5", "scrape", "in_progress", 20, "Found 2 URLs. Starting incremental scraping...", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AppendProgress(context.Background(), model.ProcessingLog{
		ProductID:   "sony-wh-1000xm5",
		Stage:       model.StageScrape,
		Status:      model.ProgressInProgress,
		Progress:    20,
		CurrentStep: "Found 2 URLs. Starting incremental scraping...",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetLatestProgress(t *testing.T) {
	s, mock := newMockPostgres(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT id, product_id, stage, status, progress, current_step, error, timestamp`).
		WithArgs("sony-wh-1000xm5").
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "stage", "status", "progress", "current_step", "error", "timestamp"}).
			AddRow("log-1", "sony-wh-1000xm5", model.StageAnalyze, model.ProgressCompleted, 100, "Analysis complete!", (*string)(nil), now))

	l, err := s.GetLatestProgress(context.Background(), "sony-wh-1000xm5")
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, 100, l.Progress)
	assert.Empty(t, l.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveComparison(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO comparisons`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c, err := s.SaveComparison(context.Background(), &model.ComparisonPayload{
		ComparedProducts: []string{"a", "b"},
		OverallWinner:    "a",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ComparisonID)
	assert.Equal(t, "a", c.OverallWinner)
	assert.NoError(t, mock.ExpectationsWereMet())
}
