package store

import (
	"context"
	"time"

	"github.com/sells-group/cre-extract/internal/model"
)

// QueueStats summarizes the processing queue by status.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	DeadLetter int `json:"dead_letter"`
}

// Store defines the persistence interface for the extraction pipeline.
type Store interface {
	// Queue
	Enqueue(ctx context.Context, documentID string, priority int) (*model.QueueItem, error)
	FetchQueueBatch(ctx context.Context, limit, maxAttempts int, retryDelay time.Duration) ([]model.QueueItem, error)
	ClaimQueueItem(ctx context.Context, itemID string) (*model.QueueItem, error)
	CompleteQueueItem(ctx context.Context, itemID string) error
	FailQueueItem(ctx context.Context, itemID string, lastError string) error
	ResetStaleItems(ctx context.Context, staleTimeout time.Duration) (int, error)
	ListDeadLetters(ctx context.Context, maxAttempts, limit int) ([]model.QueueItem, error)
	RequeueDeadLetter(ctx context.Context, itemID string, maxAttempts int) (*model.QueueItem, error)
	GetQueueStats(ctx context.Context, maxAttempts int) (*QueueStats, error)

	// Documents
	GetDocument(ctx context.Context, documentID string) (*model.Document, error)
	SetDocumentStatus(ctx context.Context, documentID string, status model.DocumentStatus, errorMessage string) error
	SetDocumentReady(ctx context.Context, documentID string, documentType string, overallConfidence float64) error

	// Extractions
	InsertExtraction(ctx context.Context, extraction *model.Extraction, fields map[string]model.ExtractedField) error
	GetLatestExtraction(ctx context.Context, documentID string) (*model.Extraction, []model.ExtractedField, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
