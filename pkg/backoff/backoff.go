// Package backoff computes retry delays for failed delivery attempts.
//
// The policy is exponential with a hard cap and a jitter band: each failed
// attempt doubles the delay until MaxDelay, and the result is spread across
// ±JitterFraction to keep retries from synchronizing into bursts.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Defaults tuned for perishable notifications: retry quickly a few times,
// then give up rather than deliver stale alerts.
const (
	DefaultBaseDelay      = 5 * time.Second
	DefaultMaxDelay       = 5 * time.Minute
	DefaultMaxAttempts    = 3
	DefaultJitterFraction = 0.2
)

// Policy derives the delay before the next retry from the number of
// attempts already made. The zero value is not usable; construct with
// Default or fill every field.
type Policy struct {
	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration

	// MaxAttempts is the total attempt budget. Once it is spent, Next
	// reports no further retry.
	MaxAttempts int

	// JitterFraction spreads each delay uniformly across
	// [delay*(1-f), delay*(1+f)]. Zero disables jitter.
	JitterFraction float64
}

// Default returns the standard delivery retry policy.
func Default() Policy {
	return Policy{
		BaseDelay:      DefaultBaseDelay,
		MaxDelay:       DefaultMaxDelay,
		MaxAttempts:    DefaultMaxAttempts,
		JitterFraction: DefaultJitterFraction,
	}
}

// Next returns the delay before retrying after the given number of failed
// attempts, and whether a retry is allowed at all. attempts counts failures
// already recorded, so the first retry is computed with attempts == 1.
func (p Policy) Next(attempts int) (time.Duration, bool) {
	if attempts >= p.MaxAttempts {
		return 0, false
	}

	delay := p.BaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFraction > 0 {
		// Uniform in [1-f, 1+f).
		factor := 1 + p.JitterFraction*(2*rand.Float64()-1)
		delay = time.Duration(float64(delay) * factor)
	}

	return delay, true
}
