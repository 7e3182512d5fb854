package ratelimit

import (
	"context"
	"time"

	"costumier/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverLimiter prefers the primary (Redis) limiter and falls back to the
// in-memory one when the primary errors. Throttling degrades to
// per-instance rather than blocking bookings outright.
type FailoverLimiter struct {
	primary  domain.BookingLimiter
	fallback domain.BookingLimiter
	logger   *zerolog.Logger
}

func NewFailoverLimiter(primary, fallback domain.BookingLimiter, logger *zerolog.Logger) *FailoverLimiter {
	return &FailoverLimiter{primary: primary, fallback: fallback, logger: logger}
}

func (l *FailoverLimiter) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	if l.primary != nil {
		ok, err := l.primary.Allow(ctx, key, window)
		if err == nil {
			return ok, nil
		}
		l.logger.Warn().Err(err).Msg("Primary rate limiter failed, falling back to memory")
	}
	return l.fallback.Allow(ctx, key, window)
}
