package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/reviewpulse/reviewpulse/internal/model"
	"github.com/reviewpulse/reviewpulse/internal/slug"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS products (
	product_id   TEXT PRIMARY KEY,
	product_name TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	metadata     TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS raw_reviews (
	id              TEXT PRIMARY KEY,
	product_id      TEXT NOT NULL REFERENCES products(product_id),
	source_url      TEXT NOT NULL,
	source_platform TEXT NOT NULL DEFAULT 'unknown',
	domain          TEXT NOT NULL DEFAULT 'unknown',
	raw_data        TEXT NOT NULL,
	metadata        TEXT,
	scraped_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analysis_results (
	product_id  TEXT PRIMARY KEY REFERENCES products(product_id),
	payload     TEXT NOT NULL,
	analyzed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS processing_logs (
	id           TEXT PRIMARY KEY,
	product_id   TEXT NOT NULL REFERENCES products(product_id),
	stage        TEXT NOT NULL,
	status       TEXT NOT NULL,
	progress     INTEGER NOT NULL DEFAULT 0,
	current_step TEXT NOT NULL DEFAULT '',
	error        TEXT,
	timestamp    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS comparisons (
	comparison_id TEXT PRIMARY KEY,
	payload       TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_products_status ON products(status);
CREATE INDEX IF NOT EXISTS idx_raw_reviews_product_id ON raw_reviews(product_id);
CREATE INDEX IF NOT EXISTS idx_processing_logs_product_id ON processing_logs(product_id);
CREATE INDEX IF NOT EXISTS idx_processing_logs_latest ON processing_logs(product_id, timestamp DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProduct(ctx context.Context, productName string, metadata map[string]any) (*model.Product, error) {
	productID := slug.Normalize(productName)
	if productID == "" {
		return nil, eris.Errorf("sqlite: product name %q yields an empty id", productName)
	}

	existing, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	metadataJSON, err := marshalMeta(metadata)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal metadata")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO products (product_id, product_name, status, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		productID, productName, string(model.ProductStatusPending), metadataJSON, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert product")
	}

	return &model.Product{
		ProductID:   productID,
		ProductName: productName,
		CreatedAt:   now,
		Status:      model.ProductStatusPending,
		Metadata:    metadata,
	}, nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT product_id, product_name, status, metadata, created_at FROM products WHERE product_id = ?`,
		productID,
	)

	var p model.Product
	var metadataJSON sql.NullString
	err := row.Scan(&p.ProductID, &p.ProductName, &p.Status, &metadataJSON, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get product %s", productID)
	}
	if err := unmarshalMeta(metadataJSON, &p.Metadata); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal product metadata")
	}
	return &p, nil
}

func (s *SQLiteStore) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, product_name, status, metadata, created_at FROM products ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list products")
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		var metadataJSON sql.NullString
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.Status, &metadataJSON, &p.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan product")
		}
		if err := unmarshalMeta(metadataJSON, &p.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal product metadata")
		}
		products = append(products, p)
	}
	return products, eris.Wrap(rows.Err(), "sqlite: list products iterate")
}

func (s *SQLiteStore) SetProductStatus(ctx context.Context, productID string, status model.ProductStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET status = ? WHERE product_id = ?`,
		string(status), productID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set product status %s", productID)
	}
	return checkRowsAffected(res, "product", productID)
}

func (s *SQLiteStore) ClaimProduct(ctx context.Context, productID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET status = ? WHERE product_id = ? AND status IN (?, ?)`,
		string(model.ProductStatusProcessing), productID,
		string(model.ProductStatusPending), string(model.ProductStatusFailed),
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: claim product %s", productID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) AppendRawReviews(ctx context.Context, productID string, results []model.ExtractResult) (int, error) {
	saved := 0
	for _, r := range results {
		if !r.Success || r.Content == "" {
			continue
		}

		metadataJSON, err := marshalMeta(r.Metadata)
		if err != nil {
			return saved, eris.Wrap(err, "sqlite: marshal review metadata")
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO raw_reviews (id, product_id, source_url, source_platform, domain, raw_data, metadata, scraped_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), productID, r.URL, r.Platform, r.Domain, r.Content, metadataJSON, time.Now().UTC(),
		)
		if err != nil {
			return saved, eris.Wrap(err, "sqlite: insert raw review")
		}
		saved++
	}
	return saved, nil
}

func (s *SQLiteStore) GetRawReviews(ctx context.Context, productID string) ([]model.RawReview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, product_id, source_url, source_platform, domain, raw_data, metadata, scraped_at
		 FROM raw_reviews WHERE product_id = ? ORDER BY scraped_at, rowid`,
		productID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get raw reviews")
	}
	defer rows.Close()

	var reviews []model.RawReview
	for rows.Next() {
		var r model.RawReview
		var metadataJSON sql.NullString
		if err := rows.Scan(&r.ID, &r.ProductID, &r.SourceURL, &r.SourcePlatform, &r.Domain, &r.RawData, &metadataJSON, &r.ScrapedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan raw review")
		}
		if err := unmarshalMeta(metadataJSON, &r.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal review metadata")
		}
		reviews = append(reviews, r)
	}
	return reviews, eris.Wrap(rows.Err(), "sqlite: get raw reviews iterate")
}

func (s *SQLiteStore) CountRawReviews(ctx context.Context, productID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM raw_reviews WHERE product_id = ?`, productID,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count raw reviews")
}

func (s *SQLiteStore) UpsertAnalysis(ctx context.Context, productID string, payload *model.AnalysisPayload) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analysis_results (product_id, payload, analyzed_at) VALUES (?, ?, ?)
		 ON CONFLICT(product_id) DO UPDATE SET payload = excluded.payload, analyzed_at = excluded.analyzed_at`,
		productID, string(payloadJSON), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert analysis %s", productID)
	}

	return s.SetProductStatus(ctx, productID, model.ProductStatusCompleted)
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, productID string) (*model.AnalysisResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT product_id, payload, analyzed_at FROM analysis_results WHERE product_id = ?`,
		productID,
	)

	var a model.AnalysisResult
	var payloadJSON string
	err := row.Scan(&a.ProductID, &payloadJSON, &a.AnalyzedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", productID)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &a.AnalysisPayload); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal analysis payload")
	}
	return &a, nil
}

func (s *SQLiteStore) AppendProgress(ctx context.Context, log model.ProcessingLog) error {
	id := log.ID
	if id == "" {
		id = uuid.New().String()
	}
	ts := log.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var errVal sql.NullString
	if log.Error != "" {
		errVal = sql.NullString{String: log.Error, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processing_logs (id, product_id, stage, status, progress, current_step, error, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, log.ProductID, string(log.Stage), string(log.Status), log.Progress, log.CurrentStep, errVal, ts,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert processing log")
	}

	return s.propagateTerminalStatus(ctx, log)
}

// propagateTerminalStatus mirrors terminal progress events onto the product
// row so product status and the progress log never disagree for long.
func (s *SQLiteStore) propagateTerminalStatus(ctx context.Context, log model.ProcessingLog) error {
	switch log.Status {
	case model.ProgressCompleted:
		return s.SetProductStatus(ctx, log.ProductID, model.ProductStatusCompleted)
	case model.ProgressFailed:
		return s.SetProductStatus(ctx, log.ProductID, model.ProductStatusFailed)
	default:
		return nil
	}
}

func (s *SQLiteStore) GetLatestProgress(ctx context.Context, productID string) (*model.ProcessingLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, product_id, stage, status, progress, current_step, error, timestamp
		 FROM processing_logs WHERE product_id = ?
		 ORDER BY timestamp DESC, rowid DESC LIMIT 1`,
		productID,
	)

	var l model.ProcessingLog
	var errVal sql.NullString
	err := row.Scan(&l.ID, &l.ProductID, &l.Stage, &l.Status, &l.Progress, &l.CurrentStep, &errVal, &l.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get latest progress %s", productID)
	}
	l.Error = errVal.String
	return &l, nil
}

func (s *SQLiteStore) SaveComparison(ctx context.Context, payload *model.ComparisonPayload) (*model.Comparison, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal comparison")
	}

	c := &model.Comparison{
		ComparisonID:      uuid.New().String(),
		CreatedAt:         time.Now().UTC(),
		ComparisonPayload: *payload,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO comparisons (comparison_id, payload, created_at) VALUES (?, ?, ?)`,
		c.ComparisonID, string(payloadJSON), c.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert comparison")
	}
	return c, nil
}

func (s *SQLiteStore) GetComparison(ctx context.Context, comparisonID string) (*model.Comparison, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT comparison_id, payload, created_at FROM comparisons WHERE comparison_id = ?`,
		comparisonID,
	)

	var c model.Comparison
	var payloadJSON string
	err := row.Scan(&c.ComparisonID, &payloadJSON, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get comparison %s", comparisonID)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &c.ComparisonPayload); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal comparison payload")
	}
	return &c, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func marshalMeta(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalMeta(v sql.NullString, out *map[string]any) error {
	if !v.Valid || v.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(v.String), out)
}
