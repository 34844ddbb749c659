package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Enqueue(ctx context.Context, documentID string, priority int) (*model.QueueItem, error) {
	args := m.Called(ctx, documentID, priority)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueItem), args.Error(1)
}

func (m *mockStore) FetchQueueBatch(ctx context.Context, limit, maxAttempts int, retryDelay time.Duration) ([]model.QueueItem, error) {
	args := m.Called(ctx, limit, maxAttempts, retryDelay)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.QueueItem), args.Error(1)
}

func (m *mockStore) ClaimQueueItem(ctx context.Context, itemID string) (*model.QueueItem, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueItem), args.Error(1)
}

func (m *mockStore) CompleteQueueItem(ctx context.Context, itemID string) error {
	return m.Called(ctx, itemID).Error(0)
}

func (m *mockStore) FailQueueItem(ctx context.Context, itemID string, lastError string) error {
	return m.Called(ctx, itemID, lastError).Error(0)
}

func (m *mockStore) ResetStaleItems(ctx context.Context, staleTimeout time.Duration) (int, error) {
	args := m.Called(ctx, staleTimeout)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) ListDeadLetters(ctx context.Context, maxAttempts, limit int) ([]model.QueueItem, error) {
	args := m.Called(ctx, maxAttempts, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.QueueItem), args.Error(1)
}

func (m *mockStore) RequeueDeadLetter(ctx context.Context, itemID string, maxAttempts int) (*model.QueueItem, error) {
	args := m.Called(ctx, itemID, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueItem), args.Error(1)
}

func (m *mockStore) GetQueueStats(ctx context.Context, maxAttempts int) (*store.QueueStats, error) {
	args := m.Called(ctx, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.QueueStats), args.Error(1)
}

func (m *mockStore) GetDocument(ctx context.Context, documentID string) (*model.Document, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *mockStore) SetDocumentStatus(ctx context.Context, documentID string, status model.DocumentStatus, errorMessage string) error {
	return m.Called(ctx, documentID, status, errorMessage).Error(0)
}

func (m *mockStore) SetDocumentReady(ctx context.Context, documentID string, documentType string, overallConfidence float64) error {
	return m.Called(ctx, documentID, documentType, overallConfidence).Error(0)
}

func (m *mockStore) InsertExtraction(ctx context.Context, extraction *model.Extraction, fields map[string]model.ExtractedField) error {
	return m.Called(ctx, extraction, fields).Error(0)
}

func (m *mockStore) GetLatestExtraction(ctx context.Context, documentID string) (*model.Extraction, []model.ExtractedField, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Extraction), args.Get(1).([]model.ExtractedField), args.Error(2)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

// --- Storage Mock ---

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Download(ctx context.Context, storagePath, tenantID string) ([]byte, error) {
	args := m.Called(ctx, storagePath, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// --- Extractor Mock ---

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, text, industry, documentType string) (*model.ExtractionResult, error) {
	args := m.Called(ctx, text, industry, documentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExtractionResult), args.Error(1)
}

func (m *mockExtractor) DetectDocumentType(ctx context.Context, text, industry string) (string, float64) {
	args := m.Called(ctx, text, industry)
	return args.String(0), args.Get(1).(float64)
}
