package model

import "time"

// QueueStatus is the state of an item in the processing queue.
type QueueStatus string

const (
	QueueStatusPending    QueueStatus = "pending"
	QueueStatusProcessing QueueStatus = "processing"
	QueueStatusCompleted  QueueStatus = "completed"
	QueueStatusFailed     QueueStatus = "failed"
)

// QueueItem is a row in the processing queue. Items are created by document
// ingestion and only ever status-transitioned by the worker; they are never
// deleted so the queue doubles as an audit trail.
type QueueItem struct {
	ID          string      `json:"id"`
	DocumentID  string      `json:"document_id"`
	Status      QueueStatus `json:"status"`
	Attempts    int         `json:"attempts"`
	Priority    int         `json:"priority"`
	CreatedAt   time.Time   `json:"created_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	LastError   string      `json:"last_error,omitempty"`
}
