// Package pipeline runs one document through download, parse, redact,
// extract, and persist. It reports every outcome as a Result; retry policy
// belongs to the worker, not here.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/parser"
	"github.com/sells-group/cre-extract/internal/redact"
	"github.com/sells-group/cre-extract/internal/storage"
	"github.com/sells-group/cre-extract/internal/store"
)

// FieldExtractor is the LLM extraction seam, satisfied by extract.Extractor.
type FieldExtractor interface {
	Extract(ctx context.Context, text, industry, documentType string) (*model.ExtractionResult, error)
	DetectDocumentType(ctx context.Context, text, industry string) (string, float64)
}

// Result is the outcome of processing one document. Process never returns an
// error; failures are carried here with the document already transitioned.
type Result struct {
	DocumentID        string
	ExtractionID      string
	Status            model.DocumentStatus
	OverallConfidence float64
	Error             string
}

// Failed reports whether the run ended in a failure state.
func (r Result) Failed() bool {
	return r.Status == model.DocumentStatusFailed
}

// Pipeline processes documents end to end.
type Pipeline struct {
	store     store.Store
	storage   storage.Storage
	parsers   *parser.Registry
	redactor  *redact.Redactor
	extractor FieldExtractor
	industry  string
}

// New creates a Pipeline. industry selects the field catalog section; empty
// defaults to commercial_real_estate.
func New(st store.Store, stg storage.Storage, parsers *parser.Registry, redactor *redact.Redactor, extractor FieldExtractor, industry string) *Pipeline {
	if industry == "" {
		industry = "commercial_real_estate"
	}
	return &Pipeline{
		store:     st,
		storage:   stg,
		parsers:   parsers,
		redactor:  redactor,
		extractor: extractor,
		industry:  industry,
	}
}

// Process runs the full extraction pipeline for a document. All failures are
// converted into a failed Result with a sanitized error; the only write
// skipped on failure is for documents that do not exist at all.
func (p *Pipeline) Process(ctx context.Context, documentID string) Result {
	doc, err := p.store.GetDocument(ctx, documentID)
	if err != nil {
		// Could not even read the row; nothing safe to update.
		return Result{
			DocumentID: documentID,
			Status:     model.DocumentStatusFailed,
			Error:      redact.SanitizeError(err.Error()),
		}
	}
	if doc == nil {
		notFound := &NotFoundError{DocumentID: documentID}
		return Result{
			DocumentID: documentID,
			Status:     model.DocumentStatusFailed,
			Error:      notFound.Error(),
		}
	}

	if err := p.store.SetDocumentStatus(ctx, documentID, model.DocumentStatusProcessing, ""); err != nil {
		return p.fail(ctx, documentID, &PersistenceError{DocumentID: documentID, Err: err})
	}

	data, err := p.storage.Download(ctx, doc.StoragePath, doc.TenantID)
	if err != nil {
		return p.fail(ctx, documentID, &AccessError{DocumentID: documentID, Err: err})
	}

	psr, err := p.parsers.Resolve(doc.MimeType)
	if err != nil {
		return p.fail(ctx, documentID, &ParserError{DocumentID: documentID, MimeType: doc.MimeType, Err: err})
	}
	parsed, err := psr.Parse(ctx, data)
	if err != nil {
		return p.fail(ctx, documentID, &ParserError{DocumentID: documentID, MimeType: doc.MimeType, Err: err})
	}

	// Redaction is mandatory: extraction only ever sees scrubbed text.
	text, entities := p.redactor.Redact(parsed.Text)
	if len(entities) > 0 {
		zap.L().Info("pipeline: redacted document text",
			zap.String("document_id", documentID),
			zap.Int("entities", len(entities)),
		)
	}

	docType := doc.DocumentType
	if docType == "" {
		var typeConf float64
		docType, typeConf = p.extractor.DetectDocumentType(ctx, text, p.industry)
		zap.L().Info("pipeline: detected document type",
			zap.String("document_id", documentID),
			zap.String("document_type", docType),
			zap.Float64("confidence", typeConf),
		)
	}

	extResult, err := p.extractor.Extract(ctx, text, p.industry, docType)
	if err != nil {
		return p.fail(ctx, documentID, &ExtractionError{DocumentID: documentID, Err: err})
	}

	extraction := &model.Extraction{
		ID:                uuid.New().String(),
		TenantID:          doc.TenantID,
		DocumentID:        documentID,
		Status:            model.ExtractionStatusCompleted,
		OverallConfidence: extResult.OverallConfidence,
		DocumentType:      extResult.DocumentType,
		ParserUsed:        psr.Name(),
	}
	if err := p.store.InsertExtraction(ctx, extraction, extResult.Fields); err != nil {
		return p.fail(ctx, documentID, &PersistenceError{DocumentID: documentID, Err: err})
	}

	if err := p.store.SetDocumentReady(ctx, documentID, extResult.DocumentType, extResult.OverallConfidence); err != nil {
		return p.fail(ctx, documentID, &PersistenceError{DocumentID: documentID, Err: err})
	}

	zap.L().Info("pipeline: document processed",
		zap.String("document_id", documentID),
		zap.String("extraction_id", extraction.ID),
		zap.String("document_type", extResult.DocumentType),
		zap.Float64("overall_confidence", extResult.OverallConfidence),
	)
	return Result{
		DocumentID:        documentID,
		ExtractionID:      extraction.ID,
		Status:            model.DocumentStatusReady,
		OverallConfidence: extResult.OverallConfidence,
	}
}

// fail is the single failure handler for steps after the document row is
// known to exist: sanitize, mark the document failed, and report the result.
func (p *Pipeline) fail(ctx context.Context, documentID string, cause error) Result {
	sanitized := redact.SanitizeError(cause.Error())

	if err := p.store.SetDocumentStatus(ctx, documentID, model.DocumentStatusFailed, sanitized); err != nil {
		zap.L().Error("pipeline: failed to mark document failed",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
	}

	zap.L().Warn("pipeline: document failed",
		zap.String("document_id", documentID),
		zap.String("error", sanitized),
	)
	return Result{
		DocumentID: documentID,
		Status:     model.DocumentStatusFailed,
		Error:      sanitized,
	}
}
