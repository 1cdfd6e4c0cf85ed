// Package sync persists an in-memory deck by diffing its cards against the
// store by client-generated id.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/conorfennell/cramly/internal/auth"
	"github.com/conorfennell/cramly/internal/domain"
)

// ErrSaveInProgress is returned when a save of the same deck is already running.
var ErrSaveInProgress = errors.New("sync: save already in progress for this deck")

// Entry is a card together with its display position in the deck.
type Entry struct {
	Card     domain.Card
	Position int
}

// Plan is the three-way difference between stored and in-memory cards.
type Plan struct {
	Insert []Entry
	Upsert []Entry
	Delete []string
}

// Diff compares the stored card ids of a deck with the in-memory cards.
// Cards only in memory are inserted, cards in both are upserted, and ids
// only in the store are deleted.
func Diff(stored []string, cards []domain.Card) Plan {
	existing := make(map[string]bool, len(stored))
	for _, id := range stored {
		existing[id] = true
	}

	var plan Plan
	current := make(map[string]bool, len(cards))
	for i, c := range cards {
		current[c.ID] = true
		entry := Entry{Card: c, Position: i}
		if existing[c.ID] {
			plan.Upsert = append(plan.Upsert, entry)
		} else {
			plan.Insert = append(plan.Insert, entry)
		}
	}
	for _, id := range stored {
		if !current[id] {
			plan.Delete = append(plan.Delete, id)
		}
	}
	return plan
}

// Store is the persistence collaborator a Saver writes to.
type Store interface {
	CreateDeck(ctx context.Context, userID, title string) (string, error)
	UpdateDeck(ctx context.Context, userID, deckID, title string) error
	CardIDs(ctx context.Context, deckID string) ([]string, error)
	ApplyPlan(ctx context.Context, deckID string, plan Plan) error
}

// Result reports what a save did. DeckID is set as soon as the deck exists,
// even when the card sync afterwards failed.
type Result struct {
	DeckID   string
	Created  bool
	Inserted int
	Upserted int
	Deleted  int
}

// Saver runs create-or-update plus card synchronize. Saves of one deck are
// serialized; an optional file lock extends that across processes.
type Saver struct {
	store  Store
	logger *slog.Logger
	lock   *flock.Flock
	now    func() time.Time

	mu       gosync.Mutex
	inFlight map[string]bool
}

// Option customizes a Saver.
type Option func(*Saver)

// WithLogger sets the logger used for save reports.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Saver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLockFile serializes saves across processes through an flock on path.
func WithLockFile(path string) Option {
	return func(s *Saver) {
		if path != "" {
			s.lock = flock.New(path)
		}
	}
}

// WithClock overrides the clock used for default titles.
func WithClock(now func() time.Time) Option {
	return func(s *Saver) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSaver returns a Saver writing to store.
func NewSaver(store Store, opts ...Option) *Saver {
	s := &Saver{
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
		inFlight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists deck for the signed-in user. A deck without an id is created
// first. The in-memory deck is never modified; callers record Result.DeckID.
func (s *Saver) Save(ctx context.Context, session auth.Session, deck domain.Deck) (Result, error) {
	if err := session.Require(); err != nil {
		return Result{}, err
	}
	if err := domain.Validate(deck.Cards); err != nil {
		return Result{}, err
	}
	if err := domain.ValidateIDs(deck.Cards); err != nil {
		return Result{}, err
	}

	key := deck.ID
	if key == "" {
		// Unsaved decks have no identity yet; serialize them per user.
		key = "new:" + session.UserID
	}
	if !s.acquire(key) {
		return Result{}, ErrSaveInProgress
	}
	defer s.release(key)

	if s.lock != nil {
		if _, err := s.lock.TryLockContext(ctx, 50*time.Millisecond); err != nil {
			return Result{}, fmt.Errorf("acquire save lock: %w", err)
		}
		defer func() {
			if err := s.lock.Unlock(); err != nil {
				s.logger.Warn("Failed to release save lock", "path", s.lock.Path(), "error", err)
			}
		}()
	}

	title := domain.TitleOrDefault(deck.Title, s.now())
	result := Result{DeckID: deck.ID}
	if deck.ID == "" {
		id, err := s.store.CreateDeck(ctx, session.UserID, title)
		if err != nil {
			return result, fmt.Errorf("create deck: %w", err)
		}
		result.DeckID = id
		result.Created = true
		s.logger.Debug("deck created", "deck_id", id)
	} else if err := s.store.UpdateDeck(ctx, session.UserID, deck.ID, title); err != nil {
		return result, fmt.Errorf("update deck %s: %w", deck.ID, err)
	}

	stored, err := s.store.CardIDs(ctx, result.DeckID)
	if err != nil {
		return result, fmt.Errorf("read stored cards: %w", err)
	}
	plan := Diff(stored, deck.Cards)
	if err := s.store.ApplyPlan(ctx, result.DeckID, plan); err != nil {
		return result, fmt.Errorf("sync cards: %w", err)
	}

	result.Inserted = len(plan.Insert)
	result.Upserted = len(plan.Upsert)
	result.Deleted = len(plan.Delete)
	s.logger.Info("deck saved",
		"deck_id", result.DeckID,
		"created", result.Created,
		"inserted", result.Inserted,
		"upserted", result.Upserted,
		"deleted", result.Deleted,
	)
	return result, nil
}

func (s *Saver) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[key] {
		return false
	}
	s.inFlight[key] = true
	return true
}

func (s *Saver) release(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}
