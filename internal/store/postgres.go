package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/reviewpulse/reviewpulse/internal/db"
	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/slug"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations.
var preparedStatements = map[string]string{
	"get_product":         `SELECT product_id, product_name, status, metadata, created_at FROM products WHERE product_id = $1`,
	"set_product_status":  `UPDATE products SET status = $1 WHERE product_id = $2`,
	"insert_progress":     `INSERT INTO processing_logs (id, product_id, stage, status, progress, current_step, error, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"get_latest_progress": `SELECT id, product_id, stage, status, progress, current_step, error, timestamp FROM processing_logs WHERE product_id = $1 ORDER BY timestamp DESC, seq DESC LIMIT 1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS products (
	product_id   TEXT PRIMARY KEY,
	product_name TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	metadata     JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS raw_reviews (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	product_id      TEXT NOT NULL REFERENCES products(product_id),
	source_url      TEXT NOT NULL,
	source_platform TEXT NOT NULL DEFAULT 'unknown',
	domain          TEXT NOT NULL DEFAULT 'unknown',
	raw_data        TEXT NOT NULL,
	metadata        JSONB,
	scraped_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analysis_results (
	product_id  TEXT PRIMARY KEY REFERENCES products(product_id),
	payload     JSONB NOT NULL,
	analyzed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS processing_logs (
	seq          BIGSERIAL,
	id           TEXT PRIMARY KEY,
	product_id   TEXT NOT NULL REFERENCES products(product_id),
	stage        TEXT NOT NULL,
	status       TEXT NOT NULL,
	progress     INTEGER NOT NULL DEFAULT 0,
	current_step TEXT NOT NULL DEFAULT '',
	error        TEXT,
	timestamp    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS comparisons (
	comparison_id TEXT PRIMARY KEY,
	payload       JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_products_status ON products(status);
CREATE INDEX IF NOT EXISTS idx_raw_reviews_product_id ON raw_reviews(product_id);
CREATE INDEX IF NOT EXISTS idx_processing_logs_product_id ON processing_logs(product_id);
CREATE INDEX IF NOT EXISTS idx_processing_logs_latest ON processing_logs(product_id, timestamp DESC, seq DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, productName string, metadata map[string]any) (*model.Product, error) {
	productID := slug.Normalize(productName)
	if productID == "" {
		return nil, eris.Errorf("postgres: product name %q yields an empty id", productName)
	}

	now := time.Now().UTC()
	metadataJSON, err := marshalMetaJSON(metadata)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal metadata")
	}

	// ON CONFLICT DO NOTHING keeps creation idempotent under concurrent
	// requests for the same product name.
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO products (product_id, product_name, status, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (product_id) DO NOTHING`,
		productID, productName, string(model.ProductStatusPending), metadataJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert product")
	}
	if tag.RowsAffected() == 0 {
		return s.GetProduct(ctx, productID)
	}

	return &model.Product{
		ProductID:   productID,
		ProductName: productName,
		CreatedAt:   now,
		Status:      model.ProductStatusPending,
		Metadata:    metadata,
	}, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	var p model.Product
	var metadataJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT product_id, product_name, status, metadata, created_at FROM products WHERE product_id = $1`,
		productID,
	).Scan(&p.ProductID, &p.ProductName, &p.Status, &metadataJSON, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get product %s", productID)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &p.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal product metadata")
		}
	}
	return &p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT product_id, product_name, status, metadata, created_at FROM products ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list products")
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		var metadataJSON []byte
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.Status, &metadataJSON, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan product")
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &p.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal product metadata")
			}
		}
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "postgres: list products iterate")
}

func (s *PostgresStore) SetProductStatus(ctx context.Context, productID string, status model.ProductStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET status = $1 WHERE product_id = $2`,
		string(status), productID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set product status %s", productID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("product not found: %s", productID)
	}
	return nil
}

func (s *PostgresStore) ClaimProduct(ctx context.Context, productID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE products SET status = $1 WHERE product_id = $2 AND status IN ($3, $4)`,
		string(model.ProductStatusProcessing), productID,
		string(model.ProductStatusPending), string(model.ProductStatusFailed),
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: claim product %s", productID)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) AppendRawReviews(ctx context.Context, productID string, results []model.ExtractResult) (int, error) {
	now := time.Now().UTC()
	var rows [][]any
	for _, r := range results {
		if !r.Success || r.Content == "" {
			continue
		}
		metadataJSON, err := marshalMetaJSON(r.Metadata)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal review metadata")
		}
		rows = append(rows, []any{
			uuid.New().String(), productID, r.URL, r.Platform, r.Domain, r.Content, metadataJSON, now,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "raw_reviews",
		[]string{"id", "product_id", "source_url", "source_platform", "domain", "raw_data", "metadata", "scraped_at"},
		rows,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert raw reviews")
	}
	return int(n), nil
}

func (s *PostgresStore) GetRawReviews(ctx context.Context, productID string) ([]model.RawReview, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, product_id, source_url, source_platform, domain, raw_data, metadata, scraped_at
		 FROM raw_reviews WHERE product_id = $1 ORDER BY scraped_at, id`,
		productID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get raw reviews")
	}
	defer rows.Close()

	var reviews []model.RawReview
	for rows.Next() {
		var r model.RawReview
		var metadataJSON []byte
		if err := rows.Scan(&r.ID, &r.ProductID, &r.SourceURL, &r.SourcePlatform, &r.Domain, &r.RawData, &metadataJSON, &r.ScrapedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan raw review")
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal review metadata")
			}
		}
		reviews = append(reviews, r)
	}
	return reviews, eris.Wrap(rows.Err(), "postgres: get raw reviews iterate")
}

func (s *PostgresStore) CountRawReviews(ctx context.Context, productID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM raw_reviews WHERE product_id = $1`, productID,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count raw reviews")
}

func (s *PostgresStore) UpsertAnalysis(ctx context.Context, productID string, payload *model.AnalysisPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal analysis")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO analysis_results (product_id, payload, analyzed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (product_id) DO UPDATE SET payload = $2, analyzed_at = $3`,
		productID, payloadJSON, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert analysis %s", productID)
	}

	return s.SetProductStatus(ctx, productID, model.ProductStatusCompleted)
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, productID string) (*model.AnalysisResult, error) {
	var a model.AnalysisResult
	var payloadJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT product_id, payload, analyzed_at FROM analysis_results WHERE product_id = $1`,
		productID,
	).Scan(&a.ProductID, &payloadJSON, &a.AnalyzedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", productID)
	}
	if err := json.Unmarshal(payloadJSON, &a.AnalysisPayload); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal analysis payload")
	}
	return &a, nil
}

func (s *PostgresStore) AppendProgress(ctx context.Context, log model.ProcessingLog) error {
	id := log.ID
	if id == "" {
		id = uuid.New().String()
	}
	ts := log.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var errVal *string
	if log.Error != "" {
		errVal = &log.Error
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO processing_logs (id, product_id, stage, status, progress, current_step, error, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, log.ProductID, string(log.Stage), string(log.Status), log.Progress, log.CurrentStep, errVal, ts,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert processing log")
	}

	switch log.Status {
	case model.ProgressCompleted:
		return s.SetProductStatus(ctx, log.ProductID, model.ProductStatusCompleted)
	case model.ProgressFailed:
		return s.SetProductStatus(ctx, log.ProductID, model.ProductStatusFailed)
	}
	return nil
}

func (s *PostgresStore) GetLatestProgress(ctx context.Context, productID string) (*model.ProcessingLog, error) {
	var l model.ProcessingLog
	var errVal *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, product_id, stage, status, progress, current_step, error, timestamp
		 FROM processing_logs WHERE product_id = $1
		 ORDER BY timestamp DESC, seq DESC LIMIT 1`,
		productID,
	).Scan(&l.ID, &l.ProductID, &l.Stage, &l.Status, &l.Progress, &l.CurrentStep, &errVal, &l.Timestamp)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get latest progress %s", productID)
	}
	if errVal != nil {
		l.Error = *errVal
	}
	return &l, nil
}

func (s *PostgresStore) SaveComparison(ctx context.Context, payload *model.ComparisonPayload) (*model.Comparison, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal comparison")
	}

	c := &model.Comparison{
		ComparisonID:      uuid.New().String(),
		CreatedAt:         time.Now().UTC(),
		ComparisonPayload: *payload,
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO comparisons (comparison_id, payload, created_at) VALUES ($1, $2, $3)`,
		c.ComparisonID, payloadJSON, c.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert comparison")
	}
	return c, nil
}

func (s *PostgresStore) GetComparison(ctx context.Context, comparisonID string) (*model.Comparison, error) {
	var c model.Comparison
	var payloadJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT comparison_id, payload, created_at FROM comparisons WHERE comparison_id = $1`,
		comparisonID,
	).Scan(&c.ComparisonID, &payloadJSON, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get comparison %s", comparisonID)
	}
	if err := json.Unmarshal(payloadJSON, &c.ComparisonPayload); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal comparison payload")
	}
	return &c, nil
}

func marshalMetaJSON(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
