// Package circuit guards calls to remote subsystems. A breaker opens after a
// run of consecutive failures, rejects calls for a cooldown, then lets a
// limited number of trial calls through before closing again.
package circuit

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Allow while the breaker rejects calls.
var ErrOpen = errors.New("circuit open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Transition is reported to the OnTransition hook whenever the state changes.
type Transition struct {
	Name string
	From State
	To   State
}

type Breaker struct {
	mu        sync.Mutex
	name      string
	state     State
	failures  int
	successes int
	openedAt  time.Time

	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time
	onTransition     func(Transition)
}

type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the breaker.
// Default is 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many half-open successes close the breaker.
// Default is 2.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown sets how long the breaker stays open before trial calls.
// Default is 30s.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithOnTransition registers a hook called outside the lock on state changes.
func WithOnTransition(fn func(Transition)) Option {
	return func(b *Breaker) {
		b.onTransition = fn
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 2,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Breaker) Name() string {
	return b.name
}

// State reports the current state, moving open to half-open once the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	t, changed := b.advanceLocked()
	state := b.state
	b.mu.Unlock()
	b.notify(t, changed)
	return state
}

// Allow returns ErrOpen while the breaker is open. Callers that get nil must
// report the outcome through Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	t, changed := b.advanceLocked()
	open := b.state == StateOpen
	b.mu.Unlock()
	b.notify(t, changed)
	if open {
		return ErrOpen
	}
	return nil
}

// Record reports the outcome of an allowed call.
func (b *Breaker) Record(err error) {
	if err != nil {
		b.recordFailure()
		return
	}
	b.recordSuccess()
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	var (
		t       Transition
		changed bool
	)
	b.successes = 0
	b.failures++
	switch b.state {
	case StateHalfOpen:
		t, changed = b.setLocked(StateOpen)
	case StateClosed:
		if b.failures >= b.failureThreshold {
			t, changed = b.setLocked(StateOpen)
		}
	}
	b.mu.Unlock()
	b.notify(t, changed)
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	var (
		t       Transition
		changed bool
	)
	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.successThreshold {
			t, changed = b.setLocked(StateClosed)
		}
	}
	b.mu.Unlock()
	b.notify(t, changed)
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	t, changed := b.setLocked(StateClosed)
	b.mu.Unlock()
	b.notify(t, changed)
}

func (b *Breaker) advanceLocked() (Transition, bool) {
	if b.state == StateOpen && !b.now().Before(b.openedAt.Add(b.cooldown)) {
		return b.setLocked(StateHalfOpen)
	}
	return Transition{}, false
}

func (b *Breaker) setLocked(to State) (Transition, bool) {
	from := b.state
	b.state = to
	b.successes = 0
	switch to {
	case StateOpen:
		b.openedAt = b.now()
	case StateClosed:
		b.failures = 0
	}
	return Transition{Name: b.name, From: from, To: to}, from != to
}

func (b *Breaker) notify(t Transition, changed bool) {
	if changed && b.onTransition != nil {
		b.onTransition(t)
	}
}
