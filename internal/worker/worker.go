// Package worker polls the processing queue and runs pipelines concurrently,
// owning all queue state transitions: claim, complete, retry, dead-letter,
// and stale recovery.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cre-extract/internal/model"
	"github.com/sells-group/cre-extract/internal/pipeline"
	"github.com/sells-group/cre-extract/internal/redact"
	"github.com/sells-group/cre-extract/internal/store"
)

// Processor is the pipeline seam, satisfied by pipeline.Pipeline.
type Processor interface {
	Process(ctx context.Context, documentID string) pipeline.Result
}

// Config holds worker tuning parameters.
type Config struct {
	Concurrency   int           `yaml:"concurrency" mapstructure:"concurrency"`
	PollInterval  time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	MaxAttempts   int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	StaleTimeout  time.Duration `yaml:"stale_timeout" mapstructure:"stale_timeout"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace" mapstructure:"shutdown_grace"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:   5,
		PollInterval:  5 * time.Second,
		MaxAttempts:   3,
		RetryDelay:    5 * time.Minute,
		StaleTimeout:  15 * time.Minute,
		ShutdownGrace: 60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.StaleTimeout <= 0 {
		c.StaleTimeout = def.StaleTimeout
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = def.ShutdownGrace
	}
	return c
}

// Worker runs the cooperative poll loop.
type Worker struct {
	store store.Store
	proc  Processor
	cfg   Config

	// inflight maps queue item ID to document ID. It is the only mutable
	// state shared across item goroutines.
	mu       sync.Mutex
	inflight map[string]string

	eg     errgroup.Group
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Worker. Zero config values fall back to defaults.
func New(st store.Store, proc Processor, cfg Config) *Worker {
	w := &Worker{
		store:    st,
		proc:     proc,
		cfg:      cfg.withDefaults(),
		inflight: make(map[string]string),
		done:     make(chan struct{}),
	}
	w.eg.SetLimit(w.cfg.Concurrency)
	return w
}

// Start runs the poll loop until ctx is canceled or Stop is called, then
// drains in-flight items within the shutdown grace period.
func (w *Worker) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	defer close(w.done)

	// Crash recovery: anything stranded in processing by a dead worker goes
	// back to pending before we start claiming.
	if n, err := w.store.ResetStaleItems(runCtx, w.cfg.StaleTimeout); err != nil {
		zap.L().Warn("worker: stale item reset failed", zap.Error(err))
	} else if n > 0 {
		zap.L().Info("worker: reset stale items", zap.Int("count", n))
	}

	zap.L().Info("worker: started",
		zap.Int("concurrency", w.cfg.Concurrency),
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Int("max_attempts", w.cfg.MaxAttempts),
	)

	// In-flight items finish on their own context so a shutdown signal stops
	// polling without killing work mid-extraction.
	taskCtx := context.WithoutCancel(runCtx)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.tick(runCtx, taskCtx)
	for {
		select {
		case <-runCtx.Done():
			return w.drain()
		case <-ticker.C:
			w.tick(runCtx, taskCtx)
		}
	}
}

// Stop signals graceful shutdown and waits for Start to return.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
}

// InflightCount returns the number of items currently being processed.
func (w *Worker) InflightCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inflight)
}

// tick fetches up to the available concurrency slots and dispatches items.
func (w *Worker) tick(pollCtx, taskCtx context.Context) {
	slots := w.cfg.Concurrency - w.InflightCount()
	if slots <= 0 {
		return
	}

	items, err := w.store.FetchQueueBatch(pollCtx, slots, w.cfg.MaxAttempts, w.cfg.RetryDelay)
	if err != nil {
		zap.L().Warn("worker: queue fetch failed", zap.Error(err))
		return
	}

	for _, item := range items {
		if !w.track(item) {
			continue
		}
		started := w.eg.TryGo(func() error {
			defer w.untrack(item.ID)
			w.processItem(taskCtx, item)
			return nil
		})
		if !started {
			// Group at capacity; the item stays pending for a later tick.
			w.untrack(item.ID)
		}
	}
}

func (w *Worker) track(item model.QueueItem) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inflight[item.ID]; ok {
		return false
	}
	w.inflight[item.ID] = item.DocumentID
	return true
}

func (w *Worker) untrack(itemID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, itemID)
}

// processItem claims and runs a single queue item. A fault in any one item,
// including a panic, never takes the worker down.
func (w *Worker) processItem(ctx context.Context, item model.QueueItem) {
	var claimed *model.QueueItem
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("worker: recovered from panic",
				zap.String("item_id", item.ID),
				zap.Any("panic", r),
			)
			if claimed != nil {
				w.handleFailure(ctx, claimed, fmt.Sprintf("panic: %v", r))
			}
		}
	}()

	claimed, err := w.store.ClaimQueueItem(ctx, item.ID)
	if err != nil {
		zap.L().Warn("worker: claim failed", zap.String("item_id", item.ID), zap.Error(err))
		return
	}
	if claimed == nil {
		// Another worker got there first.
		return
	}

	// Duplicate delivery guard: a document that already reached ready does
	// not need another extraction run.
	doc, err := w.store.GetDocument(ctx, claimed.DocumentID)
	if err == nil && doc != nil && doc.Status == model.DocumentStatusReady {
		zap.L().Info("worker: document already processed, completing item",
			zap.String("item_id", claimed.ID),
			zap.String("document_id", claimed.DocumentID),
		)
		w.complete(ctx, claimed.ID)
		return
	}

	result := w.proc.Process(ctx, claimed.DocumentID)
	if result.Failed() {
		w.handleFailure(ctx, claimed, result.Error)
		return
	}
	w.complete(ctx, claimed.ID)
}

func (w *Worker) complete(ctx context.Context, itemID string) {
	if err := w.store.CompleteQueueItem(ctx, itemID); err != nil {
		zap.L().Error("worker: complete failed", zap.String("item_id", itemID), zap.Error(err))
	}
}

// handleFailure marks an item failed for retry, or dead-letters it once the
// attempt budget is spent. errMsg is sanitized before it is persisted.
func (w *Worker) handleFailure(ctx context.Context, claimed *model.QueueItem, errMsg string) {
	errMsg = redact.SanitizeError(errMsg)

	if claimed.Attempts >= w.cfg.MaxAttempts {
		errMsg = fmt.Sprintf("Dead lettered after %d attempts: %s", claimed.Attempts, errMsg)
		if err := w.store.FailQueueItem(ctx, claimed.ID, errMsg); err != nil {
			zap.L().Error("worker: dead letter failed", zap.String("item_id", claimed.ID), zap.Error(err))
			return
		}
		zap.L().Error("worker: item dead lettered",
			zap.String("item_id", claimed.ID),
			zap.String("document_id", claimed.DocumentID),
			zap.Int("attempts", claimed.Attempts),
		)
		return
	}

	if err := w.store.FailQueueItem(ctx, claimed.ID, errMsg); err != nil {
		zap.L().Error("worker: fail update failed", zap.String("item_id", claimed.ID), zap.Error(err))
		return
	}
	zap.L().Warn("worker: item failed, will retry",
		zap.String("item_id", claimed.ID),
		zap.String("document_id", claimed.DocumentID),
		zap.Int("attempts", claimed.Attempts),
		zap.Int("max_attempts", w.cfg.MaxAttempts),
	)
}

// drain waits for in-flight items up to the shutdown grace period, logging
// whatever is still running after timeout without touching its state. Stale
// recovery on the next start picks those up.
func (w *Worker) drain() error {
	finished := make(chan struct{})
	go func() {
		_ = w.eg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		zap.L().Info("worker: stopped, all items drained")
		return nil
	case <-time.After(w.cfg.ShutdownGrace):
	}

	w.mu.Lock()
	for itemID, docID := range w.inflight {
		zap.L().Warn("worker: item still in flight after shutdown grace",
			zap.String("item_id", itemID),
			zap.String("document_id", docID),
		)
	}
	remaining := len(w.inflight)
	w.mu.Unlock()

	zap.L().Warn("worker: stopped with items in flight", zap.Int("count", remaining))
	return nil
}
