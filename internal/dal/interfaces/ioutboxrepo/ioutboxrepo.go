package ioutboxrepo

import (
	"context"
	"time"

	"github.com/weftwear/oms/internal/service/models/outbox"
)

// IOutboxRepository stores messages pending publication to RabbitMQ.
type IOutboxRepository interface {
	Insert(ctx context.Context, msg outbox.Message) error
	GetPendingMessages(ctx context.Context, limit int) ([]outbox.Message, error)
	Delete(ctx context.Context, id int64) error
	UpdateRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error
}
