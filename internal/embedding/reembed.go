package embedding

import (
	"context"

	"golang.org/x/time/rate"
)

// BulkLimiter is a rate limiter for bulk embed loops, such as a backfill
// over a large memory store. ratePerSec is the sustained rate, burst the
// maximum number of requests let through before throttling kicks in.
// maintenance.ReembedMissing does not use it: its oracle calls are not
// throttled.
type BulkLimiter struct {
	limiter *rate.Limiter
}

// NewBulkLimiter builds a limiter; ratePerSec <= 0 disables throttling.
func NewBulkLimiter(ratePerSec float64, burst int) *BulkLimiter {
	if ratePerSec <= 0 {
		return &BulkLimiter{limiter: rate.NewLimiter(rate.Inf, burst)}
	}
	return &BulkLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
}

// Wait blocks until the limiter admits the next embed call or ctx is done.
func (l *BulkLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
