package model

import "time"

// DocumentStatus tracks a document through the extraction lifecycle.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document is a tenant-owned uploaded document awaiting or holding extraction results.
type Document struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenant_id"`
	StoragePath  string         `json:"storage_path"`
	MimeType     string         `json:"mime_type"`
	Status       DocumentStatus `json:"status"`
	DocumentType string         `json:"document_type,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	// OverallConfidence is set when the document reaches ready, copied from
	// the extraction that produced it.
	OverallConfidence *float64  `json:"overall_confidence,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ParseResult is the transient output of a document parser. It is consumed
// once by the pipeline and never persisted.
type ParseResult struct {
	Text     string
	Pages    []ParsedPage
	Tables   []ParsedTable
	Metadata ParseMetadata
}

// ParsedPage is a single page of extracted text.
type ParsedPage struct {
	Number int
	Text   string
}

// ParsedTable is a table extracted from the document, row-major.
type ParsedTable struct {
	Page int
	Rows [][]string
}

// ParseMetadata records which parser produced the result.
type ParseMetadata struct {
	Parser string
}
