package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig tunes the per-call retry policy. The defaults stay well
// under the remote API's per-minute rate budget.
type RetryConfig struct {
	// MaxAttempts bounds the total number of attempts including the first.
	MaxAttempts int `yaml:"max_attempts" validate:"omitempty,min=1,max=10"`

	// InitialDelay is the first backoff delay.
	InitialDelay time.Duration `yaml:"initial_delay"`

	// Multiplier grows the delay between attempts.
	Multiplier float64 `yaml:"multiplier" validate:"omitempty,min=1"`

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration `yaml:"max_delay"`
}

// DefaultRetryConfig returns the standard retry tuning: 4 attempts, 2s
// initial delay doubling up to 45s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  4,
		InitialDelay: 2 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     45 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = d.InitialDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = d.Multiplier
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	return c
}

// retryPolicy wraps single remote calls with bounded exponential backoff.
// Only RateLimited and Unavailable classifications are retried; all other
// errors are terminal immediately, because retrying them cannot succeed
// and wastes the rate budget. Transparent to callers above it: a call
// site sees either the call's result or the final error.
type retryPolicy struct {
	cfg RetryConfig
}

func newRetryPolicy(cfg RetryConfig) *retryPolicy {
	return &retryPolicy{cfg: cfg.withDefaults()}
}

// do invokes op, retrying transient failures with exponential backoff and
// jitter. The backoff wait is cancellable through ctx, but each individual
// call runs on a context detached from cancellation: an in-flight remote
// call completes or fails naturally, and cancellation takes effect between
// attempts. Aborting a create mid-call would leave the remote state
// unknown and the resource unregistered. AuthExpired is surfaced untouched
// so the credential collaborator upstream can act.
func (p *retryPolicy) do(ctx context.Context, op func(ctx context.Context) error) error {
	hinted := &hintedBackOff{next: p.newBackOff()}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(hinted, uint64(p.cfg.MaxAttempts-1)), ctx)

	callCtx := context.WithoutCancel(ctx)
	attempt := func() error {
		err := op(callCtx)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		hinted.observe(err)
		return err
	}

	err := backoff.Retry(attempt, policy)
	if err == nil {
		return nil
	}

	// Context cancellation surfaces as-is from the policy.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewUnavailableError("remote call cancelled", err).WithCode(ErrCodeCancelled)
	}

	var perr *ProvisionError
	if errors.As(err, &perr) && IsRetryable(perr) {
		return &ProvisionError{
			Class:   perr.Class,
			Message: perr.Message,
			Code:    ErrCodeRetryExhausted,
			Step:    perr.Step,
			Err:     perr,
		}
	}
	return err
}

// newBackOff builds the exponential generator for one call. The
// randomization factor is bounded so consecutive jitter windows stay
// disjoint: with multiplier m and factor r, the longest delay for attempt
// j is d*(1+r) and the shortest for attempt j+1 is m*d*(1-r), so
// r <= (m-1)/(m+1) keeps the delay sequence non-decreasing until the cap.
func (p *retryPolicy) newBackOff() *backoff.ExponentialBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.InitialDelay
	exp.Multiplier = p.cfg.Multiplier
	exp.MaxInterval = p.cfg.MaxDelay
	exp.MaxElapsedTime = 0 // bounded by attempt count, not wall time
	exp.RandomizationFactor = jitterFor(p.cfg.Multiplier)
	return exp
}

func jitterFor(multiplier float64) float64 {
	r := (multiplier - 1) / (multiplier + 1)
	if r > 0.5 {
		r = 0.5
	}
	if r < 0 {
		r = 0
	}
	return r
}

// hintedBackOff stretches the computed backoff to honor a Retry-After
// hint from the most recent rate-limited response. The hint never exceeds
// the configured MaxDelay by more than the server asked for; a server
// that says "wait 30s" is believed over a shorter local estimate.
type hintedBackOff struct {
	next backoff.BackOff
	hint time.Duration
}

func (h *hintedBackOff) observe(err error) {
	var perr *ProvisionError
	if errors.As(err, &perr) && perr.RetryAfter > 0 {
		h.hint = perr.RetryAfter
	} else {
		h.hint = 0
	}
}

func (h *hintedBackOff) NextBackOff() time.Duration {
	d := h.next.NextBackOff()
	if d == backoff.Stop {
		return backoff.Stop
	}
	if h.hint > d {
		d = h.hint
	}
	return d
}

func (h *hintedBackOff) Reset() {
	h.hint = 0
	h.next.Reset()
}
