// Package deck holds the editable in-memory deck being worked on.
package deck

import (
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/cramly/internal/domain"
)

// Field names one side of a card.
type Field string

const (
	Front Field = "front"
	Back  Field = "back"
)

// Model is the authoritative, editable card set of the current deck. It is
// not safe for concurrent use; a single editing session owns it.
type Model struct {
	id    string
	title string
	cards []domain.Card

	newID func() string
	now   func() time.Time
}

// Option customizes a Model.
type Option func(*Model)

// WithIDGenerator overrides the card id generator (useful for tests).
func WithIDGenerator(gen func() string) Option {
	return func(m *Model) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithClock overrides the clock used for the default title.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// NewModel returns an empty deck model.
func NewModel(opts ...Option) *Model {
	m := &Model{
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewID returns a fresh card identifier from the model's generator.
func (m *Model) NewID() string {
	return m.newID()
}

// AddCard appends a new empty card with a fresh id and returns it.
func (m *Model) AddCard() domain.Card {
	c := domain.Card{ID: m.newID()}
	m.cards = append(m.cards, c)
	return c
}

// UpdateCard replaces one side of the card matching id. A stale id is a
// no-op and reports false.
func (m *Model) UpdateCard(id string, field Field, value string) bool {
	i := m.index(id)
	if i < 0 {
		return false
	}
	switch field {
	case Front:
		m.cards[i].Front = value
	case Back:
		m.cards[i].Back = value
	default:
		return false
	}
	return true
}

// ApplyPair overwrites both sides of the card matching id, keeping its id.
func (m *Model) ApplyPair(id string, p domain.Pair) bool {
	i := m.index(id)
	if i < 0 {
		return false
	}
	m.cards[i].Front = p.Front
	m.cards[i].Back = p.Back
	return true
}

// DeleteCard removes the card matching id.
func (m *Model) DeleteCard(id string) bool {
	i := m.index(id)
	if i < 0 {
		return false
	}
	m.cards = append(m.cards[:i], m.cards[i+1:]...)
	return true
}

// ReplaceAll swaps the whole card sequence, as after a load or generation.
// The title is only assigned when non-empty.
func (m *Model) ReplaceAll(cards []domain.Card, title string) {
	m.cards = append([]domain.Card(nil), cards...)
	if title != "" {
		m.title = title
	}
}

// Admit assigns fresh ids to generated pairs and replaces the card sequence
// with them. Identifiers from the producer are never trusted.
func (m *Model) Admit(pairs []domain.Pair, title string) {
	cards := make([]domain.Card, 0, len(pairs))
	for _, p := range pairs {
		cards = append(cards, domain.Card{ID: m.newID(), Front: p.Front, Back: p.Back})
	}
	m.ReplaceAll(cards, title)
}

// Load replaces the model with a stored deck, including its id.
func (m *Model) Load(d domain.Deck) {
	m.id = d.ID
	m.title = d.Title
	m.cards = append([]domain.Card(nil), d.Cards...)
}

// Reset empties the model and forgets the stored deck id.
func (m *Model) Reset() {
	m.id = ""
	m.title = ""
	m.cards = nil
}

// Card returns the card matching id.
func (m *Model) Card(id string) (domain.Card, bool) {
	i := m.index(id)
	if i < 0 {
		return domain.Card{}, false
	}
	return m.cards[i], true
}

// Cards returns a copy of the card sequence in display order.
func (m *Model) Cards() []domain.Card {
	return append([]domain.Card(nil), m.cards...)
}

// Len returns the number of cards.
func (m *Model) Len() int {
	return len(m.cards)
}

// SetTitle sets the deck title.
func (m *Model) SetTitle(title string) {
	m.title = title
}

// Title returns the title as entered, possibly blank.
func (m *Model) Title() string {
	return m.title
}

// DisplayTitle returns the title or the timestamped placeholder.
func (m *Model) DisplayTitle() string {
	return domain.TitleOrDefault(m.title, m.now())
}

// SetID records the durable id assigned by the store.
func (m *Model) SetID(id string) {
	m.id = id
}

// ID returns the durable deck id, empty before the first save.
func (m *Model) ID() string {
	return m.id
}

// Snapshot returns the deck as a value.
func (m *Model) Snapshot() domain.Deck {
	return domain.Deck{ID: m.id, Title: m.title, Cards: m.Cards()}
}

// Validate reports the first incomplete card, if any.
func (m *Model) Validate() error {
	return domain.Validate(m.cards)
}

func (m *Model) index(id string) int {
	for i := range m.cards {
		if m.cards[i].ID == id {
			return i
		}
	}
	return -1
}
