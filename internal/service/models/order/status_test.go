package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTableIsClosed(t *testing.T) {
	for _, from := range AllStatuses() {
		for _, to := range ValidTransitions(from) {
			assert.True(t, to.IsValid(), "transition from %s targets unknown status %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range AllStatuses() {
		switch s {
		case StatusCancelled, StatusRefunded:
			assert.True(t, s.IsTerminal(), "%s should be terminal", s)
			assert.Empty(t, ValidTransitions(s))
		default:
			assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
			assert.NotEmpty(t, ValidTransitions(s))
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{name: "pending to awaiting payment", from: StatusPending, to: StatusAwaitingPayment, want: true},
		{name: "pending to cancelled", from: StatusPending, to: StatusCancelled, want: true},
		{name: "pending straight to paid", from: StatusPending, to: StatusPaid, want: false},
		{name: "awaiting payment to paid", from: StatusAwaitingPayment, to: StatusPaid, want: true},
		{name: "paid to refunded", from: StatusPaid, to: StatusRefunded, want: true},
		{name: "shipped to cancelled", from: StatusShipped, to: StatusCancelled, want: false},
		{name: "shipped to delivered", from: StatusShipped, to: StatusDelivered, want: true},
		{name: "delivered to refunded", from: StatusDelivered, to: StatusRefunded, want: true},
		{name: "cancelled to anything", from: StatusCancelled, to: StatusPending, want: false},
		{name: "refunded to anything", from: StatusRefunded, to: StatusCancelled, want: false},
		{name: "self transition is idempotent", from: StatusPaid, to: StatusPaid, want: true},
		{name: "terminal self transition is idempotent", from: StatusCancelled, to: StatusCancelled, want: true},
		{name: "unknown from", from: Status("LOST"), to: StatusPaid, want: false},
		{name: "unknown to", from: StatusPaid, to: Status("LOST"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidTransitionsReturnsCopy(t *testing.T) {
	first := ValidTransitions(StatusPending)
	require.NotEmpty(t, first)
	first[0] = Status("MANGLED")

	again := ValidTransitions(StatusPending)
	assert.NotEqual(t, Status("MANGLED"), again[0])
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("FULFILLING")
	require.NoError(t, err)
	assert.Equal(t, StatusFulfilling, s)

	_, err = ParseStatus("fulfilling")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
