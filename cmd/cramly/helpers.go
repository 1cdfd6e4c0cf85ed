package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/conorfennell/cramly/internal/domain"
	decksync "github.com/conorfennell/cramly/internal/sync"
	"github.com/conorfennell/cramly/internal/terminal"
)

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// stdinIsTerminal reports whether r is an interactive terminal. Readers that
// are not files, such as pipes set up in tests, are never terminals.
func stdinIsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isTerminal(f.Fd())
}

func printCards(out io.Writer, title string, cards []domain.Card) {
	fmt.Fprintf(out, "%s (%d cards)\n", title, len(cards))
	rows := make([][]string, 0, len(cards))
	for i, card := range cards {
		rows = append(rows, []string{fmt.Sprint(i + 1), oneLine(card.Front), oneLine(card.Back)})
	}
	fmt.Fprintln(out, terminal.RenderTable(
		[]string{"#", "Front", "Back"},
		rows,
		[]terminal.Alignment{terminal.AlignRight, terminal.AlignLeft, terminal.AlignLeft},
	))
}

func printSaveResult(out io.Writer, res decksync.Result) {
	fmt.Fprintf(out, "saved deck %s: %d inserted, %d updated, %d deleted\n",
		res.DeckID, res.Inserted, res.Upserted, res.Deleted)
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	const max = 60
	if r := []rune(s); len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}

// incompleteHint turns a validation failure into an actionable message.
func incompleteHint(err error) error {
	var incomplete *domain.IncompleteCardError
	if errors.As(err, &incomplete) {
		return fmt.Errorf("card %d is incomplete; both sides must have text", incomplete.Position)
	}
	return err
}
