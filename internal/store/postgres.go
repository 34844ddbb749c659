package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cre-extract/internal/db"
	"github.com/sells-group/cre-extract/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot queue operations.
var preparedStatements = map[string]string{
	"claim_queue_item":    `UPDATE processing_queue SET status = 'processing', attempts = attempts + 1, started_at = $2 WHERE id = $1 AND status IN ('pending', 'failed') RETURNING id, document_id, status, attempts, priority, created_at, started_at, completed_at, last_error`,
	"complete_queue_item": `UPDATE processing_queue SET status = 'completed', completed_at = $2, last_error = NULL WHERE id = $1`,
	"fail_queue_item":     `UPDATE processing_queue SET status = 'failed', completed_at = $2, last_error = $3 WHERE id = $1`,
	"get_document":        `SELECT id, tenant_id, storage_path, mime_type, status, document_type, error_message, overall_confidence, updated_at FROM documents WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
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

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id          TEXT NOT NULL,
	storage_path       TEXT NOT NULL,
	mime_type          TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'pending',
	document_type      TEXT,
	error_message      TEXT,
	overall_confidence DOUBLE PRECISION,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_tenant_id ON documents(tenant_id);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS processing_queue (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	document_id  TEXT NOT NULL REFERENCES documents(id),
	status       TEXT NOT NULL DEFAULT 'pending',
	attempts     INTEGER NOT NULL DEFAULT 0,
	priority     INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at   TIMESTAMPTZ,
	completed_at TIMESTAMPTZ,
	last_error   TEXT
);

CREATE INDEX IF NOT EXISTS idx_queue_status ON processing_queue(status);
CREATE INDEX IF NOT EXISTS idx_queue_fetch ON processing_queue(status, priority DESC, created_at ASC);
CREATE INDEX IF NOT EXISTS idx_queue_document_id ON processing_queue(document_id);

CREATE TABLE IF NOT EXISTS extractions (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id          TEXT NOT NULL,
	document_id        TEXT NOT NULL REFERENCES documents(id),
	status             TEXT NOT NULL DEFAULT 'completed',
	overall_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	document_type      TEXT NOT NULL,
	parser_used        TEXT,
	extracted_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_extractions_document_id ON extractions(document_id);
CREATE INDEX IF NOT EXISTS idx_extractions_tenant_id ON extractions(tenant_id);

CREATE TABLE IF NOT EXISTS extraction_fields (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	extraction_id  TEXT NOT NULL REFERENCES extractions(id),
	name           TEXT NOT NULL,
	value          JSONB,
	raw_value      TEXT,
	confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
	page           INTEGER,
	quote          TEXT,
	source_section TEXT,
	value_type     TEXT
);

CREATE INDEX IF NOT EXISTS idx_extraction_fields_extraction_id ON extraction_fields(extraction_id);
CREATE INDEX IF NOT EXISTS idx_extraction_fields_name ON extraction_fields(name);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
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

// Queue operations

func (s *PostgresStore) Enqueue(ctx context.Context, documentID string, priority int) (*model.QueueItem, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO processing_queue (id, document_id, status, attempts, priority, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, documentID, string(model.QueueStatusPending), 0, priority, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: enqueue document %s", documentID)
	}

	return &model.QueueItem{
		ID:         id,
		DocumentID: documentID,
		Status:     model.QueueStatusPending,
		Priority:   priority,
		CreatedAt:  now,
	}, nil
}

// FetchQueueBatch returns up to limit items eligible for processing: pending
// items first, ordered by priority then age, topped up with failed items whose
// retry delay has elapsed and that still have attempts left.
func (s *PostgresStore) FetchQueueBatch(ctx context.Context, limit, maxAttempts int, retryDelay time.Duration) ([]model.QueueItem, error) {
	retryCutoff := time.Now().UTC().Add(-retryDelay)

	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, status, attempts, priority, created_at, started_at, completed_at, last_error
		 FROM processing_queue
		 WHERE status = 'pending'
		    OR (status = 'failed' AND attempts < $1 AND completed_at < $2)
		 ORDER BY CASE status WHEN 'pending' THEN 0 ELSE 1 END, priority DESC, created_at ASC
		 LIMIT $3`,
		maxAttempts, retryCutoff, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: fetch queue batch")
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: fetch queue batch iterate")
}

// ClaimQueueItem transitions an item to processing and increments its attempt
// counter. Returns nil without error if the item was already claimed — the
// status guard in the WHERE clause is the claim lock.
func (s *PostgresStore) ClaimQueueItem(ctx context.Context, itemID string) (*model.QueueItem, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE processing_queue
		 SET status = 'processing', attempts = attempts + 1, started_at = $2
		 WHERE id = $1 AND status IN ('pending', 'failed')
		 RETURNING id, document_id, status, attempts, priority, created_at, started_at, completed_at, last_error`,
		itemID, time.Now().UTC(),
	)

	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: claim queue item %s", itemID)
	}
	return item, nil
}

func (s *PostgresStore) CompleteQueueItem(ctx context.Context, itemID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE processing_queue SET status = 'completed', completed_at = $2, last_error = NULL WHERE id = $1`,
		itemID, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete queue item %s", itemID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("queue item not found: %s", itemID)
	}
	return nil
}

func (s *PostgresStore) FailQueueItem(ctx context.Context, itemID string, lastError string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE processing_queue SET status = 'failed', completed_at = $2, last_error = $3 WHERE id = $1`,
		itemID, time.Now().UTC(), lastError,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail queue item %s", itemID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("queue item not found: %s", itemID)
	}
	return nil
}

// ResetStaleItems recovers items stranded in processing by a crashed worker,
// returning them to pending so they can be fetched again.
func (s *PostgresStore) ResetStaleItems(ctx context.Context, staleTimeout time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-staleTimeout)

	tag, err := s.pool.Exec(ctx,
		`UPDATE processing_queue SET status = 'pending', started_at = NULL WHERE status = 'processing' AND started_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reset stale items")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ListDeadLetters(ctx context.Context, maxAttempts, limit int) ([]model.QueueItem, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, status, attempts, priority, created_at, started_at, completed_at, last_error
		 FROM processing_queue
		 WHERE status = 'failed' AND attempts >= $1
		 ORDER BY completed_at DESC
		 LIMIT $2`,
		maxAttempts, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dead letters")
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list dead letters iterate")
}

// RequeueDeadLetter returns a dead-lettered item to pending with a fresh
// attempt budget. The attempts guard keeps it from touching items still
// inside their retry window.
func (s *PostgresStore) RequeueDeadLetter(ctx context.Context, itemID string, maxAttempts int) (*model.QueueItem, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE processing_queue
		 SET status = 'pending', attempts = 0, started_at = NULL, completed_at = NULL, last_error = NULL
		 WHERE id = $1 AND status = 'failed' AND attempts >= $2
		 RETURNING id, document_id, status, attempts, priority, created_at, started_at, completed_at, last_error`,
		itemID, maxAttempts,
	)

	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("queue item not dead-lettered: %s", itemID)
		}
		return nil, eris.Wrapf(err, "postgres: requeue dead letter %s", itemID)
	}
	return item, nil
}

func (s *PostgresStore) GetQueueStats(ctx context.Context, maxAttempts int) (*QueueStats, error) {
	var stats QueueStats
	err := s.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE status = 'pending'),
		   COUNT(*) FILTER (WHERE status = 'processing'),
		   COUNT(*) FILTER (WHERE status = 'completed'),
		   COUNT(*) FILTER (WHERE status = 'failed' AND attempts < $1),
		   COUNT(*) FILTER (WHERE status = 'failed' AND attempts >= $1)
		 FROM processing_queue`,
		maxAttempts,
	).Scan(&stats.Pending, &stats.Processing, &stats.Completed, &stats.Failed, &stats.DeadLetter)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get queue stats")
	}
	return &stats, nil
}

// Document operations

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	var d model.Document
	var docType, errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, storage_path, mime_type, status, document_type, error_message, overall_confidence, updated_at
		 FROM documents WHERE id = $1`,
		documentID,
	).Scan(&d.ID, &d.TenantID, &d.StoragePath, &d.MimeType, &d.Status, &docType, &errMsg, &d.OverallConfidence, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get document %s", documentID)
	}

	if docType != nil {
		d.DocumentType = *docType
	}
	if errMsg != nil {
		d.ErrorMessage = *errMsg
	}
	return &d, nil
}

func (s *PostgresStore) SetDocumentStatus(ctx context.Context, documentID string, status model.DocumentStatus, errorMessage string) error {
	var errArg *string
	if errorMessage != "" {
		errArg = &errorMessage
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		string(status), errArg, time.Now().UTC(), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set document status %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %s", documentID)
	}
	return nil
}

func (s *PostgresStore) SetDocumentReady(ctx context.Context, documentID string, documentType string, overallConfidence float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET status = 'ready', document_type = $1, overall_confidence = $2, error_message = NULL, updated_at = $3 WHERE id = $4`,
		documentType, overallConfidence, time.Now().UTC(), documentID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set document ready %s", documentID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("document not found: %s", documentID)
	}
	return nil
}

// Extraction operations

var extractionFieldColumns = []string{
	"id", "extraction_id", "name", "value", "raw_value",
	"confidence", "page", "quote", "source_section", "value_type",
}

// InsertExtraction writes the extraction row and its field rows in one
// transaction. Field rows go in via COPY; a failure on either side rolls the
// whole extraction back so a fieldless extraction never looks successful.
func (s *PostgresStore) InsertExtraction(ctx context.Context, extraction *model.Extraction, fields map[string]model.ExtractedField) error {
	if extraction.ID == "" {
		extraction.ID = uuid.New().String()
	}
	if extraction.ExtractedAt.IsZero() {
		extraction.ExtractedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: insert extraction begin tx")
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO extractions (id, tenant_id, document_id, status, overall_confidence, document_type, parser_used, extracted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		extraction.ID, extraction.TenantID, extraction.DocumentID, string(extraction.Status),
		extraction.OverallConfidence, extraction.DocumentType, extraction.ParserUsed, extraction.ExtractedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert extraction for document %s", extraction.DocumentID)
	}

	if len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		rows := make([][]any, 0, len(fields))
		for _, name := range names {
			f := fields[name]
			valueJSON, err := json.Marshal(f.Value)
			if err != nil {
				return eris.Wrapf(err, "postgres: marshal field %s", name)
			}
			rows = append(rows, []any{
				uuid.New().String(), extraction.ID, f.Name, valueJSON, f.RawValue,
				f.Confidence, f.Page, f.Quote, f.SourceSection, f.ValueType,
			})
		}

		if _, err := db.CopyFrom(ctx, tx, "extraction_fields", extractionFieldColumns, rows); err != nil {
			return eris.Wrapf(err, "postgres: copy extraction fields for %s", extraction.ID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: insert extraction commit tx")
	}
	return nil
}

func (s *PostgresStore) GetLatestExtraction(ctx context.Context, documentID string) (*model.Extraction, []model.ExtractedField, error) {
	var e model.Extraction
	var parserUsed *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, document_id, status, overall_confidence, document_type, parser_used, extracted_at
		 FROM extractions WHERE document_id = $1
		 ORDER BY extracted_at DESC LIMIT 1`,
		documentID,
	).Scan(&e.ID, &e.TenantID, &e.DocumentID, &e.Status, &e.OverallConfidence, &e.DocumentType, &parserUsed, &e.ExtractedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, eris.Wrapf(err, "postgres: get latest extraction for %s", documentID)
	}
	if parserUsed != nil {
		e.ParserUsed = *parserUsed
	}

	rows, err := s.pool.Query(ctx,
		`SELECT name, value, raw_value, confidence, page, quote, source_section, value_type
		 FROM extraction_fields WHERE extraction_id = $1
		 ORDER BY name ASC`,
		e.ID,
	)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: get extraction fields for %s", e.ID)
	}
	defer rows.Close()

	var fields []model.ExtractedField
	for rows.Next() {
		var f model.ExtractedField
		var valueJSON []byte
		var rawValue, quote, sourceSection, valueType *string
		var page *int

		if err := rows.Scan(&f.Name, &valueJSON, &rawValue, &f.Confidence, &page, &quote, &sourceSection, &valueType); err != nil {
			return nil, nil, eris.Wrap(err, "postgres: scan extraction field")
		}
		if len(valueJSON) > 0 {
			if err := json.Unmarshal(valueJSON, &f.Value); err != nil {
				return nil, nil, eris.Wrapf(err, "postgres: unmarshal field %s", f.Name)
			}
		}
		if rawValue != nil {
			f.RawValue = *rawValue
		}
		if page != nil {
			f.Page = *page
		}
		if quote != nil {
			f.Quote = *quote
		}
		if sourceSection != nil {
			f.SourceSection = *sourceSection
		}
		if valueType != nil {
			f.ValueType = *valueType
		}
		fields = append(fields, f)
	}
	return &e, fields, eris.Wrap(rows.Err(), "postgres: get extraction fields iterate")
}

// scanQueueItem reads a queue row from either a pgx.Row or pgx.Rows.
func scanQueueItem(row pgx.Row) (*model.QueueItem, error) {
	var item model.QueueItem
	var lastError *string

	err := row.Scan(&item.ID, &item.DocumentID, &item.Status, &item.Attempts, &item.Priority,
		&item.CreatedAt, &item.StartedAt, &item.CompletedAt, &lastError)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, eris.Wrap(err, "postgres: scan queue item")
	}
	if lastError != nil {
		item.LastError = *lastError
	}
	return &item, nil
}
