package logging

import (
	"context"
	"fmt"
	"time"

	"routing_gateway/internal/models"
	"routing_gateway/internal/queue"
)

// BatchWriter persists a batch of dispatch records.
type BatchWriter interface {
	WriteBatch(ctx context.Context, records []*models.DispatchRecord) error
}

// AuditWorker drains the audit queue in batches
type AuditWorker struct {
	queue       queue.Queue[*models.DispatchRecord]
	dlq         queue.DeadLetterQueue[*models.DispatchRecord]
	writer      BatchWriter
	config      *queue.Config
	logger      *Logger
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewAuditWorker creates a new audit worker. dlq may be nil.
func NewAuditWorker(q queue.Queue[*models.DispatchRecord], dlq queue.DeadLetterQueue[*models.DispatchRecord], writer BatchWriter, config *queue.Config) *AuditWorker {
	if config == nil {
		config = queue.DefaultConfig("audit")
	}

	return &AuditWorker{
		queue:       q,
		dlq:         dlq,
		writer:      writer,
		config:      config,
		logger:      NewLogger("audit-worker"),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *AuditWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop signals the worker and waits for it to flush, or for ctx to expire
func (w *AuditWorker) Stop(ctx context.Context) error {
	select {
	case <-w.stopChan:
	default:
		close(w.stopChan)
	}

	select {
	case <-w.stoppedChan:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit worker did not stop: %w", ctx.Err())
	}
}

// run is the main worker loop
func (w *AuditWorker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Audit worker stopping")
			w.flushRemaining()
			return
		case <-ctx.Done():
			w.logger.Info("Audit worker context cancelled")
			w.flushRemaining()
			return
		default:
			w.processBatch(ctx)
		}
	}
}

// processBatch writes one batch of records
func (w *AuditWorker) processBatch(ctx context.Context) {
	records, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("Failed to dequeue dispatch records", "error", err)
		w.sleep(ctx, time.Second)
		return
	}

	if len(records) == 0 {
		return
	}

	w.logger.Debug("Processing audit batch", "count", len(records))
	w.writeWithRetry(ctx, records)
}

// flushRemaining drains what is still buffered once the worker is asked to stop
func (w *AuditWorker) flushRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for ctx.Err() == nil {
		records, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, 10*time.Millisecond)
		if err != nil || len(records) == 0 {
			return
		}
		w.writeWithRetry(ctx, records)
	}
}

// writeWithRetry retries a failing batch with exponential backoff and moves
// it to the dead letter queue once retries are exhausted
func (w *AuditWorker) writeWithRetry(ctx context.Context, records []*models.DispatchRecord) {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			w.logger.Debug("Retrying audit batch", "attempt", attempt, "backoff", backoff)
			if !w.sleep(ctx, backoff) {
				break
			}
		}

		if err := w.writer.WriteBatch(ctx, records); err != nil {
			lastErr = err
			w.logger.Error("Failed to write audit batch", "attempt", attempt, "count", len(records), "error", err)
			continue
		}

		w.logger.Debug("Audit batch written", "count", len(records))
		return
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	w.deadLetter(records, lastErr)
}

func (w *AuditWorker) deadLetter(records []*models.DispatchRecord, cause error) {
	if w.dlq == nil {
		w.logger.Warn("Dropping audit batch", "count", len(records), "error", cause)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := fmt.Errorf("%w: %v", queue.ErrMaxRetriesExceeded, cause)
	for _, rec := range records {
		if dlqErr := w.dlq.Add(ctx, rec, err); dlqErr != nil {
			w.logger.Error("Failed to add to dead letter queue", "request_id", rec.RequestID, "error", dlqErr)
		}
	}
	w.logger.Warn("Audit batch moved to DLQ", "count", len(records), "error", cause)
}

// sleep waits for d and reports false if interrupted
func (w *AuditWorker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-w.stopChan:
		return false
	}
}

// QueueLength returns the current queue length
func (w *AuditWorker) QueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// DeadLetterItems returns items from the dead letter queue
func (w *AuditWorker) DeadLetterItems(ctx context.Context, maxItems int) ([]queue.DeadLetterItem[*models.DispatchRecord], error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}

// RetryDeadLetterItem re-enqueues a failed record
func (w *AuditWorker) RetryDeadLetterItem(ctx context.Context, id string) error {
	items, err := w.DeadLetterItems(ctx, 0)
	if err != nil {
		return err
	}

	for _, dlItem := range items {
		if dlItem.ID != id {
			continue
		}
		if err := w.queue.Enqueue(ctx, dlItem.Item); err != nil {
			return fmt.Errorf("failed to re-enqueue item: %w", err)
		}
		if err := w.dlq.Remove(ctx, id); err != nil {
			return fmt.Errorf("failed to remove from DLQ: %w", err)
		}
		return nil
	}

	return queue.ErrItemNotFound
}
