package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RequestPacer spaces outbound backend requests with a token bucket. A nil
// *RequestPacer never blocks.
type RequestPacer struct {
	limiter *rate.Limiter
}

// NewRequestPacer allows perMinute requests per minute with up to burst
// requests back to back. It returns nil when perMinute is not positive.
func NewRequestPacer(perMinute, burst int) *RequestPacer {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RequestPacer{
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst),
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (p *RequestPacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// delay takes a token at now and returns how long the caller would have to
// wait for it.
func (p *RequestPacer) delay(now time.Time) time.Duration {
	return p.limiter.ReserveN(now, 1).DelayFrom(now)
}
