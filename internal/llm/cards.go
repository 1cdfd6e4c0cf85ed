package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/cramly/internal/domain"
	"github.com/conorfennell/cramly/internal/knol"
)

const (
	DefaultCardCount = 10
	MaxCardCount     = 50
)

var (
	ErrEmptyText        = errors.New("llm: source text is empty")
	ErrNoCards          = errors.New("llm: response contained no complete cards")
	ErrEmptyInstruction = errors.New("llm: refine instruction is empty")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const generateSystemPrompt = `You are an expert study assistant that writes effective flashcards.
Respond with JSON only, in exactly this shape:
{"title": "short deck title", "flashcards": [{"front": "question or concept", "back": "answer or definition"}]}
Keep each front a single clear prompt and each back a concise answer. Inline math may use $...$.`

const refineSystemPrompt = `You are an expert study assistant.
You rewrite a single flashcard according to an instruction, keeping its core meaning.
Respond with JSON only, in exactly this shape:
{"front": "updated front", "back": "updated back"}`

// Generation is the validated result of a generation request.
type Generation struct {
	Title string
	Pairs []domain.Pair
}

type generationPayload struct {
	Title      string          `json:"title"`
	Flashcards []generatedPair `json:"flashcards" validate:"required,min=1,dive"`
}

type generatedPair struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// ClampCount bounds a requested card count to 1..MaxCardCount, defaulting
// non-positive values to DefaultCardCount.
func ClampCount(count int) int {
	switch {
	case count <= 0:
		return DefaultCardCount
	case count > MaxCardCount:
		return MaxCardCount
	default:
		return count
	}
}

// Generate asks the model for up to count flashcards drawn from text.
// Incomplete and duplicate pairs are dropped.
func (c *Client) Generate(ctx context.Context, text string, count int) (Generation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Generation{}, ErrEmptyText
	}
	count = ClampCount(count)

	prompt := fmt.Sprintf("Generate %d effective flashcards from the following text. Focus on key concepts and definitions suitable for studying:\n\n%s", count, text)
	content, err := c.CompleteJSON(ctx, "llm generate", generateSystemPrompt, prompt)
	if err != nil {
		return Generation{}, err
	}

	var payload generationPayload
	if err := DecodeJSON(content, &payload); err != nil {
		return Generation{}, fmt.Errorf("llm generate: parse payload: %w", err)
	}
	if err := validate.Struct(payload); err != nil {
		return Generation{}, fmt.Errorf("llm generate: invalid payload: %w", err)
	}

	pairs := make([]domain.Pair, 0, len(payload.Flashcards))
	for _, fc := range payload.Flashcards {
		p := domain.Pair{Front: strings.TrimSpace(fc.Front), Back: strings.TrimSpace(fc.Back)}
		if p.Complete() {
			pairs = append(pairs, p)
		}
	}
	pairs = knol.Dedupe(pairs)
	if len(pairs) == 0 {
		return Generation{}, ErrNoCards
	}
	if len(pairs) > count {
		pairs = pairs[:count]
	}
	return Generation{Title: strings.TrimSpace(payload.Title), Pairs: pairs}, nil
}

// Refine rewrites one card according to instruction.
func (c *Client) Refine(ctx context.Context, card domain.Pair, instruction string) (domain.Pair, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return domain.Pair{}, ErrEmptyInstruction
	}

	prompt := fmt.Sprintf("Current Flashcard:\nFront: %q\nBack: %q\n\nInstruction: %q\n\nUpdate the flashcard based on the instruction and return the new front and back.",
		card.Front, card.Back, instruction)
	content, err := c.CompleteJSON(ctx, "llm refine", refineSystemPrompt, prompt)
	if err != nil {
		return domain.Pair{}, err
	}

	var refined domain.Pair
	if err := DecodeJSON(content, &refined); err != nil {
		return domain.Pair{}, fmt.Errorf("llm refine: parse payload: %w", err)
	}
	refined.Front = strings.TrimSpace(refined.Front)
	refined.Back = strings.TrimSpace(refined.Back)
	if err := validate.Struct(refined); err != nil {
		return domain.Pair{}, fmt.Errorf("llm refine: invalid payload: %w", err)
	}
	return refined, nil
}
