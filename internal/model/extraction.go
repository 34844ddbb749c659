package model

import "time"

// MaxConfidence is the hard ceiling on any extraction confidence. Extraction
// output is never treated as ground truth, so 1.0 is unreachable by contract.
const MaxConfidence = 0.99

// ExtractionStatus is the state of a persisted extraction run.
type ExtractionStatus string

const (
	ExtractionStatusCompleted ExtractionStatus = "completed"
	ExtractionStatusFailed    ExtractionStatus = "failed"
)

// Extraction is one successful pipeline run over a document. Rows are
// append-only: re-processing a document creates a new Extraction rather than
// updating an old one.
type Extraction struct {
	ID                string           `json:"id"`
	TenantID          string           `json:"tenant_id"`
	DocumentID        string           `json:"document_id"`
	Status            ExtractionStatus `json:"status"`
	OverallConfidence float64          `json:"overall_confidence"`
	DocumentType      string           `json:"document_type"`
	ParserUsed        string           `json:"parser_used"`
	ExtractedAt       time.Time        `json:"extracted_at"`
}

// ExtractedField is a single field pulled out of a document, with its typed
// value and scored confidence. SourceSection and ValueType are only set for
// offering memoranda, where the section a claim appears in and whether it is
// an actual or a pro forma number change how much we trust it.
type ExtractedField struct {
	Name          string  `json:"name"`
	Value         any     `json:"value"`
	RawValue      string  `json:"raw_value,omitempty"`
	Confidence    float64 `json:"confidence"`
	Page          int     `json:"page,omitempty"`
	Quote         string  `json:"quote,omitempty"`
	SourceSection string  `json:"source_section,omitempty"`
	ValueType     string  `json:"value_type,omitempty"`
}

// ExtractionResult is the in-memory outcome of a field extraction pass.
type ExtractionResult struct {
	Fields            map[string]ExtractedField `json:"fields"`
	DocumentType      string                    `json:"document_type"`
	OverallConfidence float64                   `json:"overall_confidence"`
}
