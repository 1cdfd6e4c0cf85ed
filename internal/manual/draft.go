// Package manual supports building a deck by hand, either card by card or
// from a Q:/A: markdown file.
package manual

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/conorfennell/cramly/internal/domain"
)

var (
	ErrLastCard      = errors.New("manual: a deck must keep at least one card")
	ErrTitleRequired = errors.New("manual: deck title is required")
	ErrUnknownCard   = errors.New("manual: no card with that id")
)

// Draft is a deck under manual construction. It always holds at least one card.
type Draft struct {
	Title string
	cards []domain.Card
	newID func() string
}

// NewDraft returns a draft holding one empty card. A nil newID uses random UUIDs.
func NewDraft(newID func() string) *Draft {
	if newID == nil {
		newID = uuid.NewString
	}
	d := &Draft{newID: newID}
	d.Add()
	return d
}

// Add appends an empty card and returns its id.
func (d *Draft) Add() string {
	id := d.newID()
	d.cards = append(d.cards, domain.Card{ID: id})
	return id
}

// Update sets both sides of the card with the given id.
func (d *Draft) Update(id, front, back string) error {
	for i := range d.cards {
		if d.cards[i].ID == id {
			d.cards[i].Front = front
			d.cards[i].Back = back
			return nil
		}
	}
	return ErrUnknownCard
}

// Remove deletes a card, refusing to remove the last one.
func (d *Draft) Remove(id string) error {
	for i := range d.cards {
		if d.cards[i].ID != id {
			continue
		}
		if len(d.cards) == 1 {
			return ErrLastCard
		}
		d.cards = append(d.cards[:i], d.cards[i+1:]...)
		return nil
	}
	return ErrUnknownCard
}

// Cards returns a copy of the draft's cards in order.
func (d *Draft) Cards() []domain.Card {
	return append([]domain.Card(nil), d.cards...)
}

// Finish validates the draft and returns it as a deck ready for preview.
func (d *Draft) Finish() (domain.Deck, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return domain.Deck{}, ErrTitleRequired
	}
	if err := domain.Validate(d.cards); err != nil {
		return domain.Deck{}, err
	}
	return domain.Deck{Title: title, Cards: d.Cards()}, nil
}
