// Package store persists products, raw reviews, analyses, progress logs,
// and comparisons behind a single interface with SQLite and Postgres
// implementations.
package store

import (
	"context"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

// Store defines the persistence interface for the review pipeline.
// Lookups return (nil, nil) when the record does not exist.
type Store interface {
	// Products
	CreateProduct(ctx context.Context, productName string, metadata map[string]any) (*model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	SetProductStatus(ctx context.Context, productID string, status model.ProductStatus) error
	// ClaimProduct atomically moves a pending or failed product to
	// processing. Returns false when another caller holds the claim or the
	// product is already completed.
	ClaimProduct(ctx context.Context, productID string) (bool, error)

	// Raw reviews (append-only; failed or empty extract results are skipped)
	AppendRawReviews(ctx context.Context, productID string, results []model.ExtractResult) (int, error)
	GetRawReviews(ctx context.Context, productID string) ([]model.RawReview, error)
	CountRawReviews(ctx context.Context, productID string) (int, error)

	// Analysis (one row per product, replaced wholesale on each pass;
	// a successful upsert also marks the product completed)
	UpsertAnalysis(ctx context.Context, productID string, payload *model.AnalysisPayload) error
	GetAnalysis(ctx context.Context, productID string) (*model.AnalysisResult, error)

	// Progress log (append-only; terminal statuses propagate to the product)
	AppendProgress(ctx context.Context, log model.ProcessingLog) error
	GetLatestProgress(ctx context.Context, productID string) (*model.ProcessingLog, error)

	// Comparisons (immutable once written)
	SaveComparison(ctx context.Context, payload *model.ComparisonPayload) (*model.Comparison, error)
	GetComparison(ctx context.Context, comparisonID string) (*model.Comparison, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
