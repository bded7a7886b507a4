package money

// RoundHalfUpRatio divides num by den in integer cents, rounding half up.
// Both arguments must be non-negative; den must be positive.
//
// Every derived monetary quantity in the system goes through this single
// helper exactly once, so rounding never accumulates across intermediate
// steps.
func RoundHalfUpRatio(num, den int64) int64 {
	return (2*num + den) / (2 * den)
}

// ApplyBasisPoints computes amount * rateBp / 10000, rounded half up.
// Rates are carried as basis points (725 = 7.25%).
func ApplyBasisPoints(amountCents, rateBp int64) int64 {
	return RoundHalfUpRatio(amountCents*rateBp, 10000)
}

// NetFromGross back-calculates the pre-tax portion of a tax-inclusive
// amount: gross / (1 + rate), rounded half up.
func NetFromGross(grossCents, rateBp int64) int64 {
	return RoundHalfUpRatio(grossCents*10000, 10000+rateBp)
}
