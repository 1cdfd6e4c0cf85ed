package study

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/conorfennell/cramly/internal/domain"
)

func cards(ids ...string) []domain.Card {
	out := make([]domain.Card, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Card{ID: id, Front: "front " + id, Back: "back " + id})
	}
	return out
}

func queueIDs(e *Engine) []string {
	var ids []string
	for _, c := range e.Queue() {
		ids = append(ids, c.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScenario(t *testing.T) {
	e := NewEngine()
	if e.State() != Idle {
		t.Fatalf("Expected Idle, but got %s", e.State())
	}
	if err := e.Start(cards("A", "B", "C")); err != nil {
		t.Fatalf("Start() returned an unexpected error: %v", err)
	}

	steps := []struct {
		rating    domain.Rating
		queue     []string
		completed int
		state     State
	}{
		{rating: domain.Hard, queue: []string{"B", "C", "A"}, completed: 0, state: Reviewing},
		{rating: domain.Good, queue: []string{"C", "A"}, completed: 1, state: Reviewing},
		{rating: domain.Easy, queue: []string{"A"}, completed: 2, state: Reviewing},
		{rating: domain.Good, queue: nil, completed: 3, state: Completed},
	}
	for _, step := range steps {
		if err := e.Rate(step.rating); err != nil {
			t.Fatalf("Rate(%s) returned an unexpected error: %v", step.rating, err)
		}
		if got := queueIDs(e); !equalIDs(got, step.queue) {
			t.Errorf("After %s expected queue %v, but got %v", step.rating, step.queue, got)
		}
		p := e.Progress()
		if p.Completed != step.completed {
			t.Errorf("After %s expected completed %d, but got %d", step.rating, step.completed, p.Completed)
		}
		if p.State != step.state {
			t.Errorf("After %s expected state %s, but got %s", step.rating, step.state, p.State)
		}
	}
}

func TestRequeueConservation(t *testing.T) {
	for _, r := range []domain.Rating{domain.Again, domain.Hard} {
		t.Run(r.String(), func(t *testing.T) {
			e := NewEngine()
			e.Start(cards("A", "B", "C", "D"))
			e.Flip()
			if err := e.Rate(r); err != nil {
				t.Fatalf("Rate() returned an unexpected error: %v", err)
			}
			if got := queueIDs(e); !equalIDs(got, []string{"B", "C", "D", "A"}) {
				t.Errorf("Expected rated card at the tail, but got %v", got)
			}
			p := e.Progress()
			if p.Completed != 0 || p.Remaining != 4 {
				t.Errorf("Expected completed 0 and remaining 4, but got %+v", p)
			}
			if p.Flipped {
				t.Error("Expected a rating to reset the flipped face")
			}
		})
	}
}

func TestRetirementConservation(t *testing.T) {
	for _, r := range []domain.Rating{domain.Good, domain.Easy} {
		t.Run(r.String(), func(t *testing.T) {
			e := NewEngine()
			e.Start(cards("A", "B"))
			e.Flip()
			e.Rate(r)
			p := e.Progress()
			if p.Remaining != 1 || p.Completed != 1 {
				t.Errorf("Expected remaining 1 and completed 1, but got %+v", p)
			}
			if p.Flipped {
				t.Error("Expected a rating to reset the flipped face")
			}
			if p.State != Reviewing {
				t.Errorf("Expected Reviewing, but got %s", p.State)
			}
		})
	}
}

func TestRequeuedCardCountsOnceAtRetirement(t *testing.T) {
	e := NewEngine()
	e.Start(cards("A"))
	for i := 0; i < 3; i++ {
		e.Rate(domain.Again)
	}
	if e.Progress().Completed != 0 {
		t.Fatalf("Expected no completions from requeues")
	}
	e.Rate(domain.Good)
	s, err := e.Summary()
	if err != nil {
		t.Fatalf("Summary() returned an unexpected error: %v", err)
	}
	if s.Retired != 1 {
		t.Errorf("Expected 1 retired card, but got %d", s.Retired)
	}
}

func TestSkipNeutrality(t *testing.T) {
	e := NewEngine()
	e.Start(cards("A", "B", "C"))
	e.Rate(domain.Good)
	before := queueIDs(e)

	if err := e.Skip(); err != nil {
		t.Fatalf("Skip() returned an unexpected error: %v", err)
	}
	after := queueIDs(e)
	if !equalIDs(after, []string{"C", "B"}) {
		t.Errorf("Expected skipped card at the tail, but got %v", after)
	}
	if e.Progress().Completed != 1 {
		t.Errorf("Expected completed to stay 1, but got %d", e.Progress().Completed)
	}
	sort.Strings(before)
	sort.Strings(after)
	if !equalIDs(before, after) {
		t.Errorf("Expected the same identities, got %v and %v", before, after)
	}
}

func TestSkipResetsFlip(t *testing.T) {
	e := NewEngine()
	e.Start(cards("A", "B"))
	e.Flip()
	e.Skip()
	if e.Progress().Flipped {
		t.Error("Expected skip to reset the flipped face")
	}
}

func TestFlipDoesNotReorder(t *testing.T) {
	e := NewEngine()
	e.Start(cards("A", "B"))
	e.Flip()
	if !e.Progress().Flipped {
		t.Fatal("Expected the card to be flipped")
	}
	e.Flip()
	if e.Progress().Flipped {
		t.Fatal("Expected a second flip to show the question again")
	}
	if got := queueIDs(e); !equalIDs(got, []string{"A", "B"}) {
		t.Errorf("Expected flip to leave order untouched, but got %v", got)
	}
}

func TestEmptyQueueOperationsRejected(t *testing.T) {
	e := NewEngine()
	if err := e.Rate(domain.Good); !errors.Is(err, ErrNoActiveCard) {
		t.Errorf("Expected ErrNoActiveCard from idle Rate, but got %v", err)
	}
	if err := e.Skip(); !errors.Is(err, ErrNoActiveCard) {
		t.Errorf("Expected ErrNoActiveCard from idle Skip, but got %v", err)
	}
	if err := e.Flip(); !errors.Is(err, ErrNoActiveCard) {
		t.Errorf("Expected ErrNoActiveCard from idle Flip, but got %v", err)
	}

	e.Start(cards("A"))
	e.Rate(domain.Easy)
	if err := e.Rate(domain.Good); !errors.Is(err, ErrNoActiveCard) {
		t.Errorf("Expected ErrNoActiveCard after completion, but got %v", err)
	}
	if e.Progress().Completed != 1 {
		t.Errorf("Expected a rejected rating to leave completed at 1")
	}
}

func TestInvalidRatingRejected(t *testing.T) {
	e := NewEngine()
	e.Start(cards("A"))
	if err := e.Rate(domain.Rating(9)); !errors.Is(err, domain.ErrInvalidRating) {
		t.Errorf("Expected ErrInvalidRating, but got %v", err)
	}
	if err := e.Rate(0); !errors.Is(err, domain.ErrInvalidRating) {
		t.Errorf("Expected ErrInvalidRating for unrated, but got %v", err)
	}
}

func TestEmptySessionCompletesImmediately(t *testing.T) {
	e := NewEngine()
	if err := e.Start(nil); err != nil {
		t.Fatalf("Start() returned an unexpected error: %v", err)
	}
	if e.State() != Completed {
		t.Errorf("Expected Completed, but got %s", e.State())
	}
	if s, err := e.Summary(); err != nil || s.Retired != 0 {
		t.Errorf("Expected an empty summary, got %+v, %v", s, err)
	}
}

func TestValidationGate(t *testing.T) {
	e := NewEngine()
	deck := cards("A", "B", "C")
	deck[1].Back = ""
	deck[2].Front = ""

	err := e.Start(deck)
	var incomplete *domain.IncompleteCardError
	if !errors.As(err, &incomplete) {
		t.Fatalf("Expected IncompleteCardError, but got %v", err)
	}
	if incomplete.Position != 2 {
		t.Errorf("Expected position 2, but got %d", incomplete.Position)
	}
	if e.State() != Idle {
		t.Errorf("Expected the engine to stay Idle, but got %s", e.State())
	}
}

func TestRestartIdempotence(t *testing.T) {
	e := NewEngine()
	if err := e.Restart(); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("Expected ErrNotCompleted from Idle, but got %v", err)
	}

	e.Start(cards("A", "B", "C"))
	if err := e.Restart(); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("Expected ErrNotCompleted while reviewing, but got %v", err)
	}

	for round := 0; round < 3; round++ {
		e.Rate(domain.Hard)
		for e.State() == Reviewing {
			e.Rate(domain.Good)
		}
		if err := e.Restart(); err != nil {
			t.Fatalf("Restart() returned an unexpected error: %v", err)
		}
		got := queueIDs(e)
		sort.Strings(got)
		if !equalIDs(got, []string{"A", "B", "C"}) {
			t.Errorf("Round %d: expected the original snapshot, but got %v", round, got)
		}
		if e.Progress().Completed != 0 || e.State() != Reviewing {
			t.Errorf("Round %d: expected a fresh session, but got %+v", round, e.Progress())
		}
	}
}

func TestSnapshotIsolation(t *testing.T) {
	deck := cards("A", "B")
	e := NewEngine()
	e.Start(deck)
	deck[0].Front = "edited"
	deck = append(deck, domain.Card{ID: "Z", Front: "f", Back: "b"})

	cur, _ := e.Current()
	if cur.Front != "front A" {
		t.Errorf("Expected the snapshot to be unaffected by deck edits, got %q", cur.Front)
	}
	if e.Progress().Remaining != 2 {
		t.Errorf("Expected 2 cards in the queue, but got %d", e.Progress().Remaining)
	}
}

func TestSummaryElapsed(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	e := NewEngine(WithClock(func() time.Time { return now }))
	e.Start(cards("A"))
	if _, err := e.Summary(); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("Expected ErrNotCompleted before completion, but got %v", err)
	}
	now = now.Add(95 * time.Second)
	e.Rate(domain.Good)
	s, err := e.Summary()
	if err != nil {
		t.Fatalf("Summary() returned an unexpected error: %v", err)
	}
	if s.ElapsedText() != "1m 35s" {
		t.Errorf("Expected '1m 35s', but got '%s'", s.ElapsedText())
	}
}

func TestFormatElapsed(t *testing.T) {
	testCases := []struct {
		d        time.Duration
		expected string
	}{
		{d: 0, expected: "0s"},
		{d: 999 * time.Millisecond, expected: "0s"},
		{d: 42 * time.Second, expected: "42s"},
		{d: 60 * time.Second, expected: "1m 0s"},
		{d: 12*time.Minute + 7*time.Second + 500*time.Millisecond, expected: "12m 7s"},
		{d: -time.Second, expected: "0s"},
	}
	for _, tc := range testCases {
		if got := FormatElapsed(tc.d); got != tc.expected {
			t.Errorf("FormatElapsed(%v): expected '%s', but got '%s'", tc.d, tc.expected, got)
		}
	}
}
