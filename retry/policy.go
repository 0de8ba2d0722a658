package retry

import "time"

// Policy holds the exponential backoff parameters. The zero value is not
// usable; obtain one from DefaultPolicy and adjust.
type Policy struct {
	BaseDelay   time.Duration `json:"baseDelay" yaml:"baseDelay"`
	MaxDelay    time.Duration `json:"maxDelay" yaml:"maxDelay"`
	MaxAttempts int           `json:"maxAttempts" yaml:"maxAttempts"`
}

// DefaultPolicy returns the default backoff configuration: 1s base delay
// doubling per attempt, capped at 60s, giving up after 5 attempts.
func DefaultPolicy() Policy {
	return Policy{
		BaseDelay:   time.Second,
		MaxDelay:    60 * time.Second,
		MaxAttempts: 5,
	}
}

// Decision is the outcome of consulting the policy.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// GiveUp is the terminal decision.
var GiveUp = Decision{}

// Next decides what to do after a failed attempt. attempt is zero-based:
// the first failure consults Next(0, …). Permanent failures and attempts at
// or beyond the ceiling give up; otherwise the delay grows as
// base * 2^attempt capped at MaxDelay.
func (p Policy) Next(attempt int, class Class) Decision {
	if class == ClassPermanent {
		return GiveUp
	}
	if attempt >= p.MaxAttempts {
		return GiveUp
	}
	delay := p.BaseDelay << uint(attempt)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	return Decision{Retry: true, Delay: delay}
}
