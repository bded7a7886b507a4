package outbox

import (
	"time"
)

// Queues fed by the outbox worker. Every routing key written to an
// outbox row must have its queue declared at startup; the worker
// publishes to the default exchange without the mandatory flag, so the
// broker drops messages for queues nobody declared.
const (
	// RouteOrderCreated carries checkout notifications.
	RouteOrderCreated = "oms.order.created"
	// RouteOrderStatusChanged carries status machine notifications.
	RouteOrderStatusChanged = "oms.order.status_changed"
)

// Message is a pending RabbitMQ publication. Rows are written inside the
// same transaction as the domain change they describe and drained by the
// outbox worker, so a status change and its notification cannot diverge.
type Message struct {
	ID            int64
	CorrelationID string
	ExchangeName  string
	RoutingKey    string
	Payload       []byte
	ContentType   string
	RetryCount    int
	MaxRetries    int
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	NextRetryAt   time.Time
}
