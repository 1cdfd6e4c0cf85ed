package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/cramly/internal/manual"
	"github.com/conorfennell/cramly/internal/storage"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var out deckOutputOptions

	cmd := &cobra.Command{
		Use:   "import <file.md>",
		Short: "Create a deck from Q:/A: markdown",
		Long: "Create a deck by hand from a markdown file. Each card starts with a line\n" +
			"beginning \"Q:\" followed by a line beginning \"A:\"; text continues until the\n" +
			"next question or a --- separator. The deck title defaults to the file name.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := manual.ParseFile(args[0], nil)
			if err != nil {
				return err
			}
			if out.title != "" {
				draft.Title = out.title
				out.title = ""
			}

			run := func(db *storage.DB) error {
				ws := ctx.newWorkspace(db)
				ws.BeginManual()
				if err := ws.FinishManual(draft); err != nil {
					return fmt.Errorf("import %s: %w", args[0], incompleteHint(err))
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
	out.bind(cmd)
	return cmd
}
