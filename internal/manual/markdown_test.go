package manual

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedCards int
		expectedFront string
		expectedBack  string
	}{
		{
			name:          "Simple Q&A",
			input:         "Q: What is the capital of France?\nA: Paris",
			expectedCards: 1,
			expectedFront: "What is the capital of France?",
			expectedBack:  "Paris",
		},
		{
			name: "Multiline Answer",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expectedCards: 1,
			expectedFront: "What are the primary colors?",
			expectedBack:  "Red\nBlue\nYellow",
		},
		{
			name: "Two Cards",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expectedCards: 2,
		},
		{
			name: "Separator ends a card",
			input: `Q: What is Go?
A: A compiled language.
---
Some prose that belongs to no card.
---
Q: What is a goroutine?
A: A lightweight thread.`,
			expectedCards: 2,
		},
		{
			name:          "No cards, just text",
			input:         "This is a file with no questions.",
			expectedCards: 0,
		},
		{
			name:          "Prefixes with no space",
			input:         "Q:Question\nA:Answer",
			expectedCards: 1,
			expectedFront: "Question",
			expectedBack:  "Answer",
		},
		{
			name:          "Windows line endings",
			input:         "Q: Question\r\nA: Answer\r\n",
			expectedCards: 1,
			expectedFront: "Question",
			expectedBack:  "Answer",
		},
		{
			name:          "Question without answer is kept for editing",
			input:         "Q: Unanswered",
			expectedCards: 1,
			expectedFront: "Unanswered",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pairs, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}

			if len(pairs) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(pairs))
			}

			if tc.expectedCards == 1 {
				pair := pairs[0]
				if pair.Front != tc.expectedFront {
					t.Errorf("Expected Front to be '%s', but got '%s'", tc.expectedFront, pair.Front)
				}
				if pair.Back != tc.expectedBack {
					t.Errorf("Expected Back to be '%s', but got '%s'", tc.expectedBack, pair.Back)
				}
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Biology 101.md")
	if err := os.WriteFile(path, []byte("Q: Cell?\nA: Unit of life\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	draft, err := ParseFile(path, nil)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if draft.Title != "Biology 101" {
		t.Errorf("Expected title 'Biology 101', but got '%s'", draft.Title)
	}
	if cards := draft.Cards(); len(cards) != 1 || cards[0].ID == "" {
		t.Errorf("Expected one card with an id, but got %+v", cards)
	}
}
