package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/cramly/internal/llm"
	"github.com/conorfennell/cramly/internal/storage"
	"github.com/conorfennell/cramly/internal/workspace"
)

type deckOutputOptions struct {
	title string
	save  bool
	study bool
}

func (o *deckOutputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.title, "title", "", "Override the deck title")
	cmd.Flags().BoolVar(&o.save, "save", false, "Save the deck for --user")
	cmd.Flags().BoolVar(&o.study, "study", false, "Start a study session once the deck is ready")
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var text, file, repo string
	var count int
	var out deckOutputOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate flashcards from text, a document or a git repository of notes",
		Long: "Generate flashcards with the configured language model.\n\n" +
			"Exactly one source is required. --text - reads the text from stdin. " +
			"--file accepts plain text, markdown, PDF, DOCX and images (OCR through tesseract).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if countSources(text, file, repo) != 1 {
				return errors.New("provide exactly one of --text, --file or --repo")
			}
			if text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}

			run := func(db *storage.DB) error {
				ws := ctx.newWorkspace(db)
				var err error
				switch {
				case file != "":
					err = ws.GenerateFromFile(cmd.Context(), file, count)
				case repo != "":
					err = ws.GenerateFromRepository(cmd.Context(), repo, count)
				default:
					err = ws.GenerateFromText(cmd.Context(), text, count)
				}
				if err != nil {
					return err
				}
				return finishDeck(cmd, ctx, ws, out)
			}
			if out.save {
				if err := ctx.session().Require(); err != nil {
					return fmt.Errorf("--save: %w (pass --user)", err)
				}
				return ctx.withStore(run)
			}
			return run(nil)
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Source text, or - to read stdin")
	cmd.Flags().StringVar(&file, "file", "", "Source document")
	cmd.Flags().StringVar(&repo, "repo", "", "Git URL of a notes repository")
	cmd.Flags().IntVarP(&count, "count", "n", llm.DefaultCardCount, fmt.Sprintf("Number of cards (1-%d)", llm.MaxCardCount))
	out.bind(cmd)
	return cmd
}

func countSources(values ...string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// finishDeck applies the shared title, save and study handling to a deck in
// preview.
func finishDeck(cmd *cobra.Command, ctx *commandContext, ws *workspace.Workspace, opts deckOutputOptions) error {
	out := cmd.OutOrStdout()
	if opts.title != "" {
		ws.EnterEdit()
		if err := ws.SetTitle(opts.title); err != nil {
			return err
		}
	}

	printCards(out, ws.DisplayTitle(), ws.Deck().Cards)

	if opts.save {
		res, err := ws.Save(cmd.Context(), ctx.session())
		if err != nil {
			return incompleteHint(err)
		}
		printSaveResult(out, res)
	}
	if opts.study {
		return runStudy(cmd, ctx, ws)
	}
	return nil
}
