package manual

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/cramly/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	separator      = "---"
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
)

// ParseFile reads a markdown file into a draft titled after the file name.
func ParseFile(path string, newID func() string) (*Draft, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pairs, err := Parse(file)
	if err != nil {
		return nil, err
	}
	d := FromPairs(pairs, newID)
	d.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return d, nil
}

// FromPairs builds a draft holding the given pairs, or one empty card if
// there are none.
func FromPairs(pairs []domain.Pair, newID func() string) *Draft {
	d := NewDraft(newID)
	if len(pairs) == 0 {
		return d
	}
	d.cards = d.cards[:0]
	for _, p := range pairs {
		d.cards = append(d.cards, domain.Card{ID: d.newID(), Front: p.Front, Back: p.Back})
	}
	return d
}

// Parse reads Q:/A: blocks from r. Lines following a prefix continue the
// current side until the next prefix or a "---" separator.
func Parse(r io.Reader) ([]domain.Pair, error) {
	scanner := bufio.NewScanner(r)
	var pairs []domain.Pair
	var current domain.Pair
	var block []string
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimRight(strings.Join(block, "\n"), "\n ")
		switch currentState {
		case readingFront:
			current.Front = content
		case readingBack:
			current.Back = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Front != "" {
			pairs = append(pairs, current)
		}
		current = domain.Pair{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		switch {
		case strings.TrimSpace(line) == separator:
			finishCard()
		case strings.HasPrefix(line, questionPrefix):
			// A new question always starts a new card.
			if currentState != seeking {
				finishCard()
			}
			currentState = readingFront
			block = append(block, stripPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			currentState = readingBack
			block = append(block, stripPrefix(line, answerPrefix))
		case currentState != seeking:
			block = append(block, line)
		}
	}

	finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

func stripPrefix(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}
