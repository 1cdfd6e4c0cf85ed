// Package study runs one review pass over a snapshot of a deck.
//
// Ratings are scheduling signals only: Again and Hard requeue the active card
// at the tail, Good and Easy retire it for the rest of the pass. There are no
// due dates; the queue lives for a single interactive session.
package study

import (
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/cramly/internal/domain"
)

var (
	ErrNoActiveCard = errors.New("study: no active card")
	ErrNotCompleted = errors.New("study: session not completed")
)

// State is the lifecycle state of an Engine.
type State int

const (
	Idle State = iota
	Reviewing
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Reviewing:
		return "reviewing"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Progress is a point-in-time view of a session.
type Progress struct {
	State     State
	Remaining int
	Completed int
	Flipped   bool
	Elapsed   time.Duration
}

// Summary is reported once a pass is completed.
type Summary struct {
	Retired int
	Elapsed time.Duration
}

// ElapsedText formats the elapsed time for display.
func (s Summary) ElapsedText() string {
	return FormatElapsed(s.Elapsed)
}

// Engine owns the review queue of one session. It is not safe for concurrent use.
type Engine struct {
	snapshot  []domain.Card
	queue     []domain.Card
	completed int
	start     time.Time
	flipped   bool
	state     State

	now func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for session timing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine returns an idle engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start snapshots cards in display order and begins a pass. Every card must
// be complete; otherwise the engine is left untouched and the first
// incomplete card is reported. An empty deck completes immediately.
func (e *Engine) Start(cards []domain.Card) error {
	if err := domain.Validate(cards); err != nil {
		return err
	}
	e.snapshot = append([]domain.Card(nil), cards...)
	e.begin()
	return nil
}

// Restart replays the last snapshot. It is only allowed once the current
// pass is completed.
func (e *Engine) Restart() error {
	if e.state != Completed {
		return ErrNotCompleted
	}
	e.begin()
	return nil
}

// Stop abandons the session and returns to Idle.
func (e *Engine) Stop() {
	e.snapshot = nil
	e.queue = nil
	e.completed = 0
	e.flipped = false
	e.state = Idle
}

func (e *Engine) begin() {
	e.queue = append([]domain.Card(nil), e.snapshot...)
	e.completed = 0
	e.start = e.now()
	e.flipped = false
	if len(e.queue) == 0 {
		e.state = Completed
		return
	}
	e.state = Reviewing
}

// Current returns the active card.
func (e *Engine) Current() (domain.Card, bool) {
	if len(e.queue) == 0 {
		return domain.Card{}, false
	}
	return e.queue[0], true
}

// Flip toggles the answer face of the active card.
func (e *Engine) Flip() error {
	if len(e.queue) == 0 {
		return ErrNoActiveCard
	}
	e.flipped = !e.flipped
	return nil
}

// Skip moves the active card to the tail without counting it.
func (e *Engine) Skip() error {
	if len(e.queue) == 0 {
		return ErrNoActiveCard
	}
	e.requeue()
	return nil
}

// Rate applies a rating to the active card. Again and Hard requeue it at the
// tail; Good and Easy retire it. Retiring the last card completes the pass.
func (e *Engine) Rate(r domain.Rating) error {
	if !r.IsValid() {
		return fmt.Errorf("%w: %d", domain.ErrInvalidRating, int(r))
	}
	if len(e.queue) == 0 {
		return ErrNoActiveCard
	}
	if !r.Retires() {
		e.requeue()
		return nil
	}
	e.queue = e.queue[1:]
	e.completed++
	e.flipped = false
	if len(e.queue) == 0 {
		e.state = Completed
	}
	return nil
}

func (e *Engine) requeue() {
	active := e.queue[0]
	e.queue = append(e.queue[1:], active)
	e.flipped = false
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Queue returns a copy of the queue, active card first.
func (e *Engine) Queue() []domain.Card {
	return append([]domain.Card(nil), e.queue...)
}

// Progress reports the current session numbers.
func (e *Engine) Progress() Progress {
	p := Progress{
		State:     e.state,
		Remaining: len(e.queue),
		Completed: e.completed,
		Flipped:   e.flipped,
	}
	if e.state != Idle {
		p.Elapsed = e.now().Sub(e.start)
	}
	return p
}

// Summary reports the statistics of a completed pass.
func (e *Engine) Summary() (Summary, error) {
	if e.state != Completed {
		return Summary{}, ErrNotCompleted
	}
	return Summary{Retired: e.completed, Elapsed: e.now().Sub(e.start)}, nil
}

// FormatElapsed renders d as "3m 5s", or "42s" when under a minute.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int(d / time.Second)
	minutes := seconds / 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}
