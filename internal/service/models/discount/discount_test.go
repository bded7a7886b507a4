package discount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/weftwear/oms/internal/service/models/result"
)

func ptrInt64(v int64) *int64 { return &v }
func ptrInt(v int) *int       { return &v }

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SUMMER10", NormalizeCode("  summer10 "))
	assert.Equal(t, "WELCOME", NormalizeCode("Welcome"))
}

func TestCheck(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name     string
		code     DiscountCode
		subtotal int64
		want     result.Reason
	}{
		{
			name:     "applicable",
			code:     DiscountCode{Kind: KindFixed, ValueCents: 500},
			subtotal: 8000,
			want:     result.ReasonNone,
		},
		{
			name:     "not started yet",
			code:     DiscountCode{Kind: KindFixed, ValueCents: 500, StartsAt: &after},
			subtotal: 8000,
			want:     result.ReasonNotStarted,
		},
		{
			name:     "expired",
			code:     DiscountCode{Kind: KindFixed, ValueCents: 500, EndsAt: &before},
			subtotal: 8000,
			want:     result.ReasonExpired,
		},
		{
			name:     "usage limit reached",
			code:     DiscountCode{Kind: KindFixed, ValueCents: 500, UsageLimit: ptrInt(3), TimesUsed: 3},
			subtotal: 8000,
			want:     result.ReasonUsageLimitExceeded,
		},
		{
			name:     "one use left",
			code:     DiscountCode{Kind: KindFixed, ValueCents: 500, UsageLimit: ptrInt(3), TimesUsed: 2},
			subtotal: 8000,
			want:     result.ReasonNone,
		},
		{
			name:     "below minimum subtotal",
			code:     DiscountCode{Kind: KindFixed, ValueCents: 500, MinSubtotalCents: ptrInt64(10000)},
			subtotal: 8000,
			want:     result.ReasonMinSubtotal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Check(now, tt.subtotal))
		})
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name     string
		code     DiscountCode
		subtotal int64
		want     int64
	}{
		{
			name:     "fixed",
			code:     DiscountCode{Kind: KindFixed, ValueCents: 500},
			subtotal: 8000,
			want:     500,
		},
		{
			name:     "fixed capped at subtotal",
			code:     DiscountCode{Kind: KindFixed, ValueCents: 5000},
			subtotal: 3000,
			want:     3000,
		},
		{
			name:     "percent",
			code:     DiscountCode{Kind: KindPercent, Percent: 10},
			subtotal: 8000,
			want:     800,
		},
		{
			name:     "percent rounds half up",
			code:     DiscountCode{Kind: KindPercent, Percent: 15},
			subtotal: 999,
			want:     150,
		},
		{
			name:     "full percent consumes subtotal",
			code:     DiscountCode{Kind: KindPercent, Percent: 100},
			subtotal: 8000,
			want:     8000,
		},
		{
			name:     "zero subtotal",
			code:     DiscountCode{Kind: KindFixed, ValueCents: 500},
			subtotal: 0,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.Amount(tt.subtotal))
		})
	}
}
