// Package export writes decks to files other study tools can import.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/conorfennell/cramly/internal/domain"
)

// Format names an export file format.
type Format string

const (
	FormatAnki Format = "anki"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DefaultDeckName is used when a deck has no title.
const DefaultDeckName = "Cramly Deck"

var ErrUnknownFormat = errors.New("export: unknown format")

// ParseFormat accepts a format name or its file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "anki", "apkg":
		return FormatAnki, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatAnki:
		return ".apkg"
	case FormatCSV:
		return ".csv"
	case FormatXLSX:
		return ".xlsx"
	}
	return ""
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/octet-stream"
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// DeckName returns the title used inside exported files.
func DeckName(title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	return DefaultDeckName
}

// FileName derives a download name: whitespace runs become "-".
func FileName(title string, f Format) string {
	return whitespaceRun.ReplaceAllString(DeckName(title), "-") + f.Extension()
}

// Exporter renders decks in the supported formats.
type Exporter struct {
	now func() time.Time
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithClock overrides the clock used for timestamps inside Anki packages.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// New returns an Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Write renders deck in format f to w. Incomplete decks are refused before
// anything is written.
func (e *Exporter) Write(ctx context.Context, w io.Writer, f Format, deck domain.Deck) error {
	if err := domain.Validate(deck.Cards); err != nil {
		return err
	}
	name := DeckName(deck.Title)
	switch f {
	case FormatAnki:
		return e.writeAnki(ctx, w, name, deck.Cards)
	case FormatCSV:
		return writeCSV(w, deck.Cards)
	case FormatXLSX:
		return writeXLSX(w, deck.Cards)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}
