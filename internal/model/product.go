// Package model defines the domain types shared by the pipeline, stores,
// and API layer.
package model

import "time"

// ProductStatus is the lifecycle state of a product record.
type ProductStatus string

const (
	ProductStatusPending    ProductStatus = "pending"
	ProductStatusProcessing ProductStatus = "processing"
	ProductStatusCompleted  ProductStatus = "completed"
	ProductStatusFailed     ProductStatus = "failed"
)

// Stage is the coarse pipeline phase reported in progress records.
type Stage string

const (
	StageSearch  Stage = "search"
	StageScrape  Stage = "scrape"
	StageAnalyze Stage = "analyze"
)

// ProgressStatus is the status of a single progress event.
type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// Product is a tracked product. The product_id slug is the stable key;
// status is the only field mutated after creation.
type Product struct {
	ProductID   string         `json:"product_id"`
	ProductName string         `json:"product_name"`
	CreatedAt   time.Time      `json:"created_at"`
	Status      ProductStatus  `json:"status"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RawReview is one persisted row per successfully scraped URL. Append-only.
type RawReview struct {
	ID             string         `json:"id"`
	ProductID      string         `json:"product_id"`
	SourceURL      string         `json:"source_url"`
	SourcePlatform string         `json:"source_platform"`
	ScrapedAt      time.Time      `json:"scraped_at"`
	RawData        string         `json:"raw_data"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Domain         string         `json:"domain"`
}

// ProcessingLog is one append-only progress event. The latest row by
// timestamp (insertion order as tiebreak) is a product's observable state.
type ProcessingLog struct {
	ID          string         `json:"id"`
	ProductID   string         `json:"product_id"`
	Stage       Stage          `json:"stage"`
	Status      ProgressStatus `json:"status"`
	Progress    int            `json:"progress"`
	CurrentStep string         `json:"current_step"`
	Timestamp   time.Time      `json:"timestamp"`
	Error       string         `json:"error,omitempty"`
}

// ExtractResult is the outcome of extracting one URL. Domain and Platform
// are always populated, even on failure.
type ExtractResult struct {
	URL      string         `json:"url"`
	Success  bool           `json:"success"`
	Content  string         `json:"content"`
	Domain   string         `json:"domain"`
	Platform string         `json:"platform"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Error    string         `json:"error,omitempty"`
}
