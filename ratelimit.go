package main

import (
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter implements a token-bucket discipline: bucket capacity burst,
// replenishment rate ms per token. It wraps
// golang.org/x/time/rate.Limiter rather than hand-rolling the bucket math.
type RateLimiter struct {
	limiter *rate.Limiter
	burst   int
}

// NewRateLimiter creates a limiter refilling one token every period,
// with the given burst capacity.
func NewRateLimiter(period time.Duration, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(period), burst),
		burst:   burst,
	}
}

// Charge reports how long the caller should sleep before handling the next
// command, having just spent cost tokens on the command it handled: when
// the bucket is exhausted the reader sleeps for (used - burst)/4 * rate ms
// before resuming. We derive "used" from the
// limiter's reservation delay rather than tracking a separate counter:
// reserving cost tokens now yields a delay of (used - burst) * rate, so a
// quarter of that delay is the sleep.
func (r *RateLimiter) Charge(cost int) time.Duration {
	if cost <= 0 {
		cost = 1
	}
	reservation := r.limiter.ReserveN(time.Now(), cost)
	if !reservation.OK() {
		// Requested more tokens than the bucket will ever hold; cap to burst.
		reservation = r.limiter.ReserveN(time.Now(), r.burst)
	}
	return reservation.Delay() / 4
}
