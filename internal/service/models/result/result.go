package result

// Reason is a machine-readable code for expected, recoverable failures.
// Callers branch on these; they are not Go errors. Storage failures and
// other unexpected conditions propagate as errors instead.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonInvalidTransition  Reason = "invalid_transition"
	ReasonGuardFailed        Reason = "guard_failed"
	ReasonInsufficientStock  Reason = "insufficient_stock"
	ReasonUsageLimitExceeded Reason = "usage_limit_exceeded"
	ReasonNotStarted         Reason = "not_started"
	ReasonExpired            Reason = "expired"
	ReasonMinSubtotal        Reason = "min_subtotal_not_met"
	ReasonNotFound           Reason = "not_found"
	ReasonValidation         Reason = "validation"
	ReasonBatchTooLarge      Reason = "batch_too_large"
)

func (r Reason) String() string {
	return string(r)
}
