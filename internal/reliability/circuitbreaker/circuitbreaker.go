package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker is open")

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
	}
	return "unknown"
}

// Settings configures a Breaker. Zero thresholds fall back to 5 failures,
// 1 probe success and a 30s cool-down.
type Settings struct {
	MaxFailures   int
	ProbeSuccess  int
	Cooldown      time.Duration
	OnStateChange func(name string, from, to State)
	now           func() time.Time
}

// Breaker fails fast once a provider keeps failing, then lets a probe
// through after the cool-down.
type Breaker struct {
	name     string
	settings Settings

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

func New(name string, s Settings) *Breaker {
	if s.MaxFailures <= 0 {
		s.MaxFailures = 5
	}
	if s.ProbeSuccess <= 0 {
		s.ProbeSuccess = 1
	}
	if s.Cooldown <= 0 {
		s.Cooldown = 30 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return &Breaker{name: name, settings: s}
}

func (b *Breaker) Name() string { return b.name }

// State reports the current state, moving open to half-open once the cool-down has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked()
}

// Execute runs fn unless the breaker is open and feeds its result back.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}
	err := fn()
	b.record(err == nil)
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentLocked() != StateOpen
}

func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentLocked() {
	case StateClosed:
		if ok {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.settings.MaxFailures {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		if !ok {
			b.transitionLocked(StateOpen)
			return
		}
		b.successes++
		if b.successes >= b.settings.ProbeSuccess {
			b.transitionLocked(StateClosed)
		}
	}
}

func (b *Breaker) currentLocked() State {
	if b.state == StateOpen && b.settings.now().Sub(b.openedAt) >= b.settings.Cooldown {
		b.transitionLocked(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.failures = 0
	b.successes = 0
	if to == StateOpen {
		b.openedAt = b.settings.now()
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}
