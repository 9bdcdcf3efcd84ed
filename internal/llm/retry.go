package llm

import "time"

// State is the retry machine state. The machine is deliberately separate
// from the network code so attempt counting and delay policy are testable
// in isolation.
type State int

const (
	// StateAttempting means another attempt is permitted.
	StateAttempting State = iota
	// StateSucceeded means an attempt returned without error.
	StateSucceeded
	// StateFailedTransient means every permitted attempt failed transiently.
	StateFailedTransient
	// StateFailedFatal means an attempt failed with a non-retryable error.
	StateFailedFatal
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateFailedTransient:
		return "failed_transient"
	case StateFailedFatal:
		return "failed_fatal"
	}
	return "unknown"
}

// Policy configures retry behavior for transient backend errors.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultPolicy is 3 attempts with exponential backoff: 1s, 2s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}
}

// Retrier tracks attempts against a Policy.
type Retrier struct {
	policy   Policy
	attempts int
	state    State
}

// NewRetrier creates a retrier in StateAttempting. Zero or negative policy
// fields fall back to the defaults.
func NewRetrier(p Policy) *Retrier {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.Multiplier <= 1 {
		p.Multiplier = def.Multiplier
	}
	return &Retrier{policy: p, state: StateAttempting}
}

// State returns the current machine state.
func (r *Retrier) State() State { return r.state }

// Attempts returns the number of attempts observed so far.
func (r *Retrier) Attempts() int { return r.attempts }

// ShouldAttempt reports whether another attempt is permitted.
func (r *Retrier) ShouldAttempt() bool { return r.state == StateAttempting }

// Delay returns the backoff to wait before the next attempt:
// BaseDelay * Multiplier^(attempts-1). Zero before the first attempt.
func (r *Retrier) Delay() time.Duration {
	if r.attempts == 0 {
		return 0
	}
	d := r.policy.BaseDelay
	for i := 1; i < r.attempts; i++ {
		d = time.Duration(float64(d) * r.policy.Multiplier)
	}
	return d
}

// Observe records the outcome of one attempt. A nil error moves to
// StateSucceeded. A non-transient error fails fatally without further
// attempts. A transient error keeps attempting until the ceiling.
func (r *Retrier) Observe(err error, transient bool) {
	r.attempts++
	switch {
	case err == nil:
		r.state = StateSucceeded
	case !transient:
		r.state = StateFailedFatal
	case r.attempts >= r.policy.MaxAttempts:
		r.state = StateFailedTransient
	default:
		r.state = StateAttempting
	}
}
