// Package terminal drives a study session over line-oriented input.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/conorfennell/cramly/internal/domain"
	"github.com/conorfennell/cramly/internal/study"
)

// ErrQuit is returned when the user leaves before the pass is completed.
var ErrQuit = errors.New("terminal: session abandoned")

const help = "commands: f flip, s skip, 1-4 or again/hard/good/easy rate, r restart, q quit"

// Option customizes a session.
type Option func(*session)

// Scripted marks input as non-interactive. Prompts are not printed ahead of
// input; each command read is echoed after its prompt instead, so the output
// reads as a transcript.
func Scripted() Option {
	return func(s *session) { s.scripted = true }
}

type session struct {
	scanner  *bufio.Scanner
	out      io.Writer
	scripted bool
}

// read shows prompt and returns the next trimmed input line. ok is false at
// the end of input.
func (s *session) read(prompt string) (line string, ok bool) {
	if !s.scripted {
		fmt.Fprint(s.out, prompt)
	}
	if !s.scanner.Scan() {
		return "", false
	}
	line = strings.TrimSpace(s.scanner.Text())
	if s.scripted {
		fmt.Fprintf(s.out, "%s%s\n", prompt, line)
	}
	return line, true
}

// Run reads commands from in and applies them to eng until the pass is
// completed and the user declines a restart, input ends, or the user quits.
// The engine must already be started. Ratings are accepted only once the
// answer is shown.
func Run(ctx context.Context, eng *study.Engine, in io.Reader, out io.Writer, opts ...Option) error {
	s := &session{scanner: bufio.NewScanner(in), out: out}
	for _, opt := range opts {
		opt(s)
	}
	fmt.Fprintln(out, help)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if eng.State() == study.Completed {
			if err := printSummary(out, eng); err != nil {
				return err
			}
			line, ok := s.read("restart? [r/q] ")
			if !ok {
				return s.scanner.Err()
			}
			if cmd := strings.ToLower(line); cmd == "r" || cmd == "restart" {
				if err := eng.Restart(); err != nil {
					return err
				}
				continue
			}
			return nil
		}

		card, ok := eng.Current()
		if !ok {
			return study.ErrNoActiveCard
		}
		p := eng.Progress()
		fmt.Fprintf(out, "\n[%d left, %d done]\nQ: %s\n", p.Remaining, p.Completed, card.Front)
		if p.Flipped {
			fmt.Fprintf(out, "A: %s\n", card.Back)
		}

		line, ok := s.read("> ")
		if !ok {
			if err := s.scanner.Err(); err != nil {
				return err
			}
			return ErrQuit
		}
		if err := apply(eng, line, out); err != nil {
			return err
		}
	}
}

func apply(eng *study.Engine, input string, out io.Writer) error {
	cmd := strings.ToLower(input)
	switch cmd {
	case "":
		return nil
	case "q", "quit":
		return ErrQuit
	case "f", "flip":
		return eng.Flip()
	case "s", "skip":
		return eng.Skip()
	case "?", "h", "help":
		fmt.Fprintln(out, help)
		return nil
	}

	rating, err := domain.ParseRating(cmd)
	if err != nil {
		fmt.Fprintf(out, "unknown command %s (%s)\n", strconv.Quote(input), help)
		return nil
	}
	if !eng.Progress().Flipped {
		fmt.Fprintln(out, "flip the card before rating it")
		return nil
	}
	return eng.Rate(rating)
}

func printSummary(out io.Writer, eng *study.Engine) error {
	summary, err := eng.Summary()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nSession complete")
	fmt.Fprintln(out, RenderTable(
		[]string{"Cards retired", "Time"},
		[][]string{{strconv.Itoa(summary.Retired), summary.ElapsedText()}},
		[]Alignment{AlignRight, AlignRight},
	))
	return nil
}
