package outbox

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/spf13/viper"
	"github.com/streadway/amqp"

	"github.com/weftwear/oms/internal/dal/interfaces/ioutboxrepo"
)

// publisher is the slice of the AMQP channel the worker needs.
type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Worker drains the outbox table into RabbitMQ. Order notifications are
// written to the outbox inside the same transaction that changes the
// order, so the broker sees a change only after it committed.
type Worker struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	publisher    publisher
	pollInterval time.Duration
	batchSize    int
	stopCh       chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(outboxRepo ioutboxrepo.IOutboxRepository, publisher publisher) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	return &Worker{
		outboxRepo:   outboxRepo,
		publisher:    publisher,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:    batchSize,
		stopCh:       make(chan struct{}),
	}
}

// Start begins draining the outbox. It blocks until the context is
// cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.GetPendingMessages(ctx, w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing outbox messages", "count", len(messages))

	for _, msg := range messages {
		err := w.publisher.Publish(
			msg.ExchangeName,
			msg.RoutingKey,
			false,
			false,
			amqp.Publishing{
				ContentType:   msg.ContentType,
				CorrelationId: msg.CorrelationID,
				Body:          msg.Payload,
			},
		)
		if err != nil {
			w.handlePublishFailure(ctx, msg.ID, msg.RetryCount+1, msg.MaxRetries, err)

			continue
		}

		if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.Error("Failed to delete message from outbox after successful publish",
				"outbox_id", msg.ID,
				"error", err,
			)

			continue
		}

		slog.Info("Message published and removed from outbox", "outbox_id", msg.ID)
	}
}

func (w *Worker) handlePublishFailure(ctx context.Context, id int64, retryCount, maxRetries int, pubErr error) {
	if retryCount >= maxRetries {
		slog.Error("Dropping outbox message, retries exhausted",
			"outbox_id", id,
			"retry_count", retryCount,
			"error", pubErr,
		)

		if err := w.outboxRepo.Delete(ctx, id); err != nil {
			slog.Error("Failed to drop exhausted outbox message", "outbox_id", id, "error", err)
		}

		return
	}

	// Exponential backoff: 60s, 120s, 240s and so on.
	backoffSeconds := math.Pow(2, float64(retryCount)) * 30
	nextRetryAt := time.Now().Add(time.Duration(backoffSeconds) * time.Second)

	slog.Warn("Failed to publish message from outbox, will retry",
		"outbox_id", id,
		"retry_count", retryCount,
		"next_retry", nextRetryAt,
		"error", pubErr,
	)

	if err := w.outboxRepo.UpdateRetry(ctx, id, retryCount, pubErr.Error(), nextRetryAt); err != nil {
		slog.Error("Failed to update retry information", "outbox_id", id, "error", err)
	}
}
