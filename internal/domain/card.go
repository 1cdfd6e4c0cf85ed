package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrIncompleteCard is matched by every IncompleteCardError.
var ErrIncompleteCard = errors.New("domain: incomplete card")

// ErrInvalidCardID is matched by every InvalidCardIDError.
var ErrInvalidCardID = errors.New("domain: invalid card id")

// Card represents a single front/back flashcard with a client-generated id.
type Card struct {
	ID     string `json:"id"`
	Front  string `json:"front"`
	Back   string `json:"back"`
	Status Rating `json:"status,omitempty"`
}

// Pair is a front/back pair without identity, as produced by generation,
// refinement and manual import.
type Pair struct {
	Front string `json:"front" validate:"required"`
	Back  string `json:"back" validate:"required"`
}

// Pair returns the card's content without its identity.
func (c Card) Pair() Pair {
	return Pair{Front: c.Front, Back: c.Back}
}

// Complete reports whether both sides of the card carry text.
func (c Card) Complete() bool {
	return c.Pair().Complete()
}

// Complete reports whether both sides of the pair carry text.
func (p Pair) Complete() bool {
	return strings.TrimSpace(p.Front) != "" && strings.TrimSpace(p.Back) != ""
}

// Deck is a named, ordered collection of cards. ID is empty until the deck
// has been persisted once.
type Deck struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Cards []Card `json:"cards"`
}

// DeckSummary is the listing shape of a stored deck.
type DeckSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CardCount int       `json:"card_count"`
}

// DefaultTitle is the placeholder title used when a deck has none.
func DefaultTitle(now time.Time) string {
	return "New Study Deck " + now.Format("2006-01-02")
}

// TitleOrDefault returns the trimmed title, or the placeholder when blank.
func TitleOrDefault(title string, now time.Time) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return DefaultTitle(now)
}

// IncompleteCardError reports the first card missing a front or a back.
// Position is 1-based.
type IncompleteCardError struct {
	Position int
}

func (e *IncompleteCardError) Error() string {
	return fmt.Sprintf("card %d is incomplete: both sides must have text", e.Position)
}

// Is makes errors.Is(err, ErrIncompleteCard) succeed.
func (e *IncompleteCardError) Is(target error) bool {
	return target == ErrIncompleteCard
}

// FirstIncomplete returns the 0-based index of the first incomplete card,
// or -1 when every card is complete.
func FirstIncomplete(cards []Card) int {
	for i, c := range cards {
		if !c.Complete() {
			return i
		}
	}
	return -1
}

// Validate gates the transitions into study and into persistence.
func Validate(cards []Card) error {
	if i := FirstIncomplete(cards); i >= 0 {
		return &IncompleteCardError{Position: i + 1}
	}
	return nil
}

// InvalidCardIDError reports a card whose id is blank or repeats an earlier
// card's id. Position is 1-based.
type InvalidCardIDError struct {
	Position int
	ID       string
}

func (e *InvalidCardIDError) Error() string {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Sprintf("card %d has no id", e.Position)
	}
	return fmt.Sprintf("card %d repeats id %q", e.Position, e.ID)
}

// Is makes errors.Is(err, ErrInvalidCardID) succeed.
func (e *InvalidCardIDError) Is(target error) bool {
	return target == ErrInvalidCardID
}

// ValidateIDs rejects blank and duplicate card ids. Ids are the sync key, so
// this gates every save of a deck received from outside.
func ValidateIDs(cards []Card) error {
	seen := make(map[string]bool, len(cards))
	for i, c := range cards {
		if strings.TrimSpace(c.ID) == "" || seen[c.ID] {
			return &InvalidCardIDError{Position: i + 1, ID: c.ID}
		}
		seen[c.ID] = true
	}
	return nil
}
