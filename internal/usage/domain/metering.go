package domain

import "math"

// BillingIncrementSeconds is the fixed unit raw usage is rounded down to
// before being counted against any quota. Clients that estimate remaining
// time locally must use the same constant so their numbers line up with what
// is actually billed.
const BillingIncrementSeconds int64 = 15

// ClampRawSeconds sanitizes a client-reported duration. Negative and
// non-finite values come from timer and clock-skew defects, not billing
// events, so they count as zero rather than propagate.
func ClampRawSeconds(raw float64) int64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw < 0 {
		return 0
	}
	return int64(math.Floor(raw))
}

// SumRawSeconds sums the raw durations of a set of session records, clamping
// each to a non-negative value.
func SumRawSeconds(records []SessionRecord) int64 {
	var total int64
	for _, r := range records {
		if r.RawDurationSeconds > 0 {
			total += r.RawDurationSeconds
		}
	}
	return total
}

// BilledSeconds truncates raw seconds to the billing increment. Partial
// increments are never billed, so the result never exceeds the input and is
// monotonically non-decreasing in it.
func BilledSeconds(raw int64) int64 {
	if raw <= 0 {
		return 0
	}
	return raw / BillingIncrementSeconds * BillingIncrementSeconds
}
