package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	ierrors "github.com/jzx17/jobpool/internal/errors"
	"github.com/jzx17/jobpool/pkg/types"
)

// Condition decides whether an error is worth another attempt
type Condition func(error) bool

// JitterFunc randomizes a delay
type JitterFunc func(time.Duration) time.Duration

// DefaultCondition retries every error except cancellation and recovered panics
func DefaultCondition(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !ierrors.IsPanic(err)
}

// FullJitter returns a random delay in [0, delay)
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)))
}

// EqualJitter keeps half of the delay and randomizes the other half
func EqualJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// Policy configures how a job is retried
type Policy struct {
	// MaxAttempts is the total number of Compute calls, including the first one
	MaxAttempts int

	// InitialDelay is the wait before the second attempt
	InitialDelay time.Duration

	// Multiplier grows the delay between consecutive attempts
	Multiplier float64

	// MaxDelay caps the delay
	MaxDelay time.Duration

	// Jitter randomizes the delay (optional)
	Jitter JitterFunc

	// RetryIf filters retryable errors (optional, defaults to DefaultCondition)
	RetryIf Condition
}

// DefaultPolicy returns default retry policy
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     30 * time.Second,
		RetryIf:      DefaultCondition,
	}
}

// Validate checks the policy values
func (p *Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", types.ErrInvalidConfig, p.MaxAttempts)
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("%w: retry delays must not be negative", types.ErrInvalidConfig)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("%w: multiplier must be at least 1, got %v", types.ErrInvalidConfig, p.Multiplier)
	}
	return nil
}

// ShouldRetry reports whether attempt, which failed with err, is followed by another one
func (p *Policy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.MaxAttempts {
		return false
	}

	cond := p.RetryIf
	if cond == nil {
		cond = DefaultCondition
	}
	return cond(err)
}

// NextDelay returns the wait after the given failed attempt (1-based)
func (p *Policy) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	delay := time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay < 0) {
		delay = p.MaxDelay
	}

	if p.Jitter != nil {
		delay = p.Jitter(delay)
	}
	return delay
}
