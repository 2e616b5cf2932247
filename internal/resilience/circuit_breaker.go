// Package resilience guards calls to external collaborators so a
// degraded service cannot stall or poison audit runs.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the circuit breaker state.
type State int32

const (
	// StateClosed - calls flow normally.
	StateClosed State = iota
	// StateOpen - calls are rejected without reaching the collaborator.
	StateOpen
	// StateHalfOpen - a limited number of probe calls test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrOpen is returned when the breaker rejects a call outright.
	ErrOpen = errors.New("circuit breaker is open")

	// ErrTooManyProbes is returned when the half-open probe quota is spent.
	ErrTooManyProbes = errors.New("too many probe calls in half-open state")
)

// Settings tunes one breaker.
type Settings struct {
	// Name identifies the guarded collaborator in logs and callbacks.
	Name string

	// FailureThreshold is how many consecutive failures trip the breaker.
	FailureThreshold uint32

	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration

	// HalfOpenMax caps concurrent probe calls while half-open. That many
	// consecutive successes close the breaker again.
	HalfOpenMax uint32

	// OnStateChange, when set, is notified of every transition.
	OnStateChange func(name string, from, to State)

	// Classify decides whether an error counts against the breaker.
	// Context cancellations say nothing about the collaborator's health,
	// so the default ignores them.
	Classify func(err error) bool
}

// DefaultSettings returns a configuration suited to a paid external API:
// trip fast, probe cautiously.
func DefaultSettings(name string) Settings {
	return Settings{
		Name:             name,
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		HalfOpenMax:      2,
	}
}

// Counts tracks call outcomes within the current generation.
type Counts struct {
	Calls                uint32
	Successes            uint32
	Failures             uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker implements the circuit breaker pattern around a single
// collaborator. The zero value is not usable, construct with New.
type Breaker struct {
	name          string
	threshold     uint32
	cooldown      time.Duration
	halfOpenMax   uint32
	onStateChange func(name string, from, to State)
	classify      func(err error) bool

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	openedAt   time.Time
	probes     uint32
}

// New creates a breaker from settings, filling in defaults for zero
// fields.
func New(settings Settings) *Breaker {
	b := &Breaker{
		name:          settings.Name,
		threshold:     settings.FailureThreshold,
		cooldown:      settings.Cooldown,
		halfOpenMax:   settings.HalfOpenMax,
		onStateChange: settings.OnStateChange,
		classify:      settings.Classify,
	}

	if b.threshold == 0 {
		b.threshold = 5
	}
	if b.cooldown == 0 {
		b.cooldown = 30 * time.Second
	}
	if b.halfOpenMax == 0 {
		b.halfOpenMax = 1
	}
	if b.classify == nil {
		b.classify = func(err error) bool {
			if err == nil {
				return false
			}
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
	}

	return b
}

// State returns the current state, promoting open to half-open once the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// Counts returns a copy of the current generation's counters.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn if the breaker allows it. The fn error is returned as-is;
// ErrOpen and ErrTooManyProbes signal rejection before fn ran.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	generation, err := b.before()
	if err != nil {
		return err
	}

	if ctx.Err() != nil {
		b.after(generation, ctx.Err())
		return ctx.Err()
	}

	err = fn(ctx)
	b.after(generation, err)
	return err
}

func (b *Breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState(time.Now()) {
	case StateOpen:
		return b.generation, ErrOpen
	case StateHalfOpen:
		if b.probes >= b.halfOpenMax {
			return b.generation, ErrTooManyProbes
		}
		b.probes++
	}

	b.counts.Calls++
	return b.generation, nil
}

func (b *Breaker) after(before uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state := b.currentState(now)

	// A state change since before() cleared the counts. This outcome
	// belongs to the old generation, drop it.
	if b.generation != before {
		return
	}

	if b.classify(err) {
		b.onFailure(state, now)
	} else {
		b.onSuccess(state, now)
	}
}

func (b *Breaker) onSuccess(state State, now time.Time) {
	b.counts.Successes++
	b.counts.ConsecutiveSuccesses++
	b.counts.ConsecutiveFailures = 0

	if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.halfOpenMax {
		b.transition(StateClosed, now)
	}
}

func (b *Breaker) onFailure(state State, now time.Time) {
	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0

	switch state {
	case StateClosed:
		if b.counts.ConsecutiveFailures >= b.threshold {
			b.transition(StateOpen, now)
		}
	case StateHalfOpen:
		// One failed probe sends the breaker straight back to open.
		b.transition(StateOpen, now)
	}
}

// currentState must be called with the lock held.
func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cooldown {
		b.transition(StateHalfOpen, now)
	}
	return b.state
}

// transition must be called with the lock held.
func (b *Breaker) transition(to State, now time.Time) {
	if b.state == to {
		return
	}

	from := b.state
	b.state = to
	b.generation++
	b.counts = Counts{}
	b.probes = 0

	if to == StateOpen {
		b.openedAt = now
	}

	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}
