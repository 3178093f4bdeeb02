package logging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"routing_gateway/internal/models"
	"routing_gateway/internal/queue"
)

// Sink receives dispatch audit records from the gateway.
type Sink interface {
	Enqueue(rec *models.DispatchRecord) error
	Shutdown(ctx context.Context) error
}

// NoopSink discards records.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) Enqueue(rec *models.DispatchRecord) error {
	return nil
}

func (s *NoopSink) Shutdown(ctx context.Context) error {
	return nil
}

// QueueSink buffers records on a queue that an AuditWorker drains.
type QueueSink struct {
	queue          queue.Queue[*models.DispatchRecord]
	worker         *AuditWorker
	enqueueTimeout time.Duration
	logger         *Logger
}

// NewQueueSink creates a sink feeding q. worker may be nil when another
// process drains the queue.
func NewQueueSink(q queue.Queue[*models.DispatchRecord], worker *AuditWorker) *QueueSink {
	return &QueueSink{
		queue:          q,
		worker:         worker,
		enqueueTimeout: 100 * time.Millisecond,
		logger:         NewLogger("audit-sink"),
	}
}

// Start launches the worker, if any
func (s *QueueSink) Start(ctx context.Context) {
	if s.worker != nil {
		s.worker.Start(ctx)
	}
}

// Enqueue stamps rec and hands it to the queue. It never blocks the request
// path for longer than the enqueue timeout.
func (s *QueueSink) Enqueue(rec *models.DispatchRecord) error {
	if rec == nil {
		return nil
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.enqueueTimeout)
	defer cancel()
	if err := s.queue.Enqueue(ctx, rec); err != nil {
		s.logger.Warn("Dropping dispatch record", "request_id", rec.RequestID, "error", err)
		return fmt.Errorf("failed to enqueue dispatch record: %w", err)
	}
	return nil
}

// Shutdown stops the worker after it has flushed what is buffered
func (s *QueueSink) Shutdown(ctx context.Context) error {
	if s.worker == nil {
		return nil
	}
	return s.worker.Stop(ctx)
}
