package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		name             string
		cards            []Card
		expectedPosition int
	}{
		{name: "No cards", cards: nil, expectedPosition: 0},
		{
			name: "All complete",
			cards: []Card{
				{ID: "1", Front: "Q1", Back: "A1"},
				{ID: "2", Front: "Q2", Back: "A2"},
			},
			expectedPosition: 0,
		},
		{
			name: "Empty back on second card",
			cards: []Card{
				{ID: "1", Front: "Q1", Back: "A1"},
				{ID: "2", Front: "Q2", Back: ""},
				{ID: "3", Front: "", Back: ""},
			},
			expectedPosition: 2,
		},
		{
			name:             "Whitespace-only front",
			cards:            []Card{{ID: "1", Front: "  \n", Back: "A"}},
			expectedPosition: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.cards)
			if tc.expectedPosition == 0 {
				if err != nil {
					t.Fatalf("Validate() returned an unexpected error: %v", err)
				}
				if FirstIncomplete(tc.cards) != -1 {
					t.Errorf("Expected FirstIncomplete to be -1, but got %d", FirstIncomplete(tc.cards))
				}
				return
			}
			var incomplete *IncompleteCardError
			if !errors.As(err, &incomplete) {
				t.Fatalf("Expected IncompleteCardError, but got %v", err)
			}
			if incomplete.Position != tc.expectedPosition {
				t.Errorf("Expected position %d, but got %d", tc.expectedPosition, incomplete.Position)
			}
			if !errors.Is(err, ErrIncompleteCard) {
				t.Error("Expected errors.Is(err, ErrIncompleteCard) to hold")
			}
		})
	}
}

func TestTitleOrDefault(t *testing.T) {
	now := time.Date(2026, 3, 9, 15, 4, 5, 0, time.UTC)
	if got := TitleOrDefault("  Biology ", now); got != "Biology" {
		t.Errorf("Expected 'Biology', but got '%s'", got)
	}
	if got := TitleOrDefault(" ", now); got != "New Study Deck 2026-03-09" {
		t.Errorf("Expected placeholder title, but got '%s'", got)
	}
}

func TestParseRating(t *testing.T) {
	testCases := []struct {
		input    string
		expected Rating
		wantErr  bool
	}{
		{input: "again", expected: Again},
		{input: "HARD", expected: Hard},
		{input: " good ", expected: Good},
		{input: "4", expected: Easy},
		{input: "1", expected: Again},
		{input: "5", wantErr: true},
		{input: "later", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			r, err := ParseRating(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRating) {
					t.Fatalf("Expected ErrInvalidRating, but got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRating() returned an unexpected error: %v", err)
			}
			if r != tc.expected {
				t.Errorf("Expected %v, but got %v", tc.expected, r)
			}
		})
	}
}

func TestRatingRetires(t *testing.T) {
	for r, want := range map[Rating]bool{Again: false, Hard: false, Good: true, Easy: true} {
		if r.Retires() != want {
			t.Errorf("Expected %v.Retires() to be %v", r, want)
		}
	}
}

func TestCardStatusJSON(t *testing.T) {
	data, err := json.Marshal(Card{ID: "x", Front: "F", Back: "B", Status: Hard})
	if err != nil {
		t.Fatalf("Marshal returned an unexpected error: %v", err)
	}
	if string(data) != `{"id":"x","front":"F","back":"B","status":"hard"}` {
		t.Errorf("Unexpected JSON: %s", data)
	}

	var c Card
	if err := json.Unmarshal([]byte(`{"id":"y","front":"F","back":"B","status":"bogus"}`), &c); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("Expected ErrInvalidRating for bogus status, but got %v", err)
	}
}

func TestValidateIDs(t *testing.T) {
	testCases := []struct {
		name             string
		cards            []Card
		expectedPosition int
	}{
		{name: "No cards", cards: nil},
		{name: "Unique ids", cards: []Card{{ID: "a"}, {ID: "b"}}},
		{name: "Missing id", cards: []Card{{ID: "a"}, {ID: ""}}, expectedPosition: 2},
		{name: "Blank id", cards: []Card{{ID: "  "}}, expectedPosition: 1},
		{name: "Duplicate id", cards: []Card{{ID: "x"}, {ID: "y"}, {ID: "x"}}, expectedPosition: 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateIDs(tc.cards)
			if tc.expectedPosition == 0 {
				if err != nil {
					t.Fatalf("ValidateIDs() returned an unexpected error: %v", err)
				}
				return
			}
			var idErr *InvalidCardIDError
			if !errors.As(err, &idErr) || !errors.Is(err, ErrInvalidCardID) {
				t.Fatalf("Expected an InvalidCardIDError, but got %v", err)
			}
			if idErr.Position != tc.expectedPosition {
				t.Errorf("Expected position %d, but got %d", tc.expectedPosition, idErr.Position)
			}
		})
	}
}
