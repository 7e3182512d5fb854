package worker

import (
	"time"

	"costumier/internal/models"
)

// RetryPolicy задает экспоненциальную задержку между повторами задач
// зеркала.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy is the policy the sheets worker runs with unless the
// caller overrides it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    models.SheetsMaxRetries,
		InitialDelay:  models.SheetsRetryBaseSeconds * time.Second,
		MaxDelay:      models.SheetsRetryMaxSeconds * time.Second,
		BackoffFactor: 2,
	}
}

// NextDelay returns the wait before the given attempt (1-based). Each
// attempt multiplies the previous delay by BackoffFactor, clamped to
// MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := r.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * factor)
		if r.MaxDelay > 0 && delay >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	return delay
}
