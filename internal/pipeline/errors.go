package pipeline

import "fmt"

// NotFoundError reports a document ID with no matching row.
type NotFoundError struct {
	DocumentID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.DocumentID)
}

// AccessError reports a failure to download document content from storage.
type AccessError struct {
	DocumentID string
	Err        error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("storage access failed for document %s: %v", e.DocumentID, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// ParserError reports a failure to parse document content.
type ParserError struct {
	DocumentID string
	MimeType   string
	Err        error
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("parse failed for document %s (%s): %v", e.DocumentID, e.MimeType, e.Err)
}

func (e *ParserError) Unwrap() error { return e.Err }

// ExtractionError reports a failure during LLM field extraction.
type ExtractionError struct {
	DocumentID string
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for document %s: %v", e.DocumentID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// PersistenceError reports a failure to write extraction results.
type PersistenceError struct {
	DocumentID string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed for document %s: %v", e.DocumentID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
