package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/cramly/internal/storage"
	"github.com/conorfennell/cramly/internal/terminal"
	"github.com/conorfennell/cramly/internal/workspace"
)

func newStudyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "study <deck-id>",
		Short: "Study a saved deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(db *storage.DB) error {
				ws := ctx.newWorkspace(db)
				if err := ws.LoadDeck(cmd.Context(), ctx.session(), args[0]); err != nil {
					return err
				}
				return runStudy(cmd, ctx, ws)
			})
		},
	}
}

func runStudy(cmd *cobra.Command, ctx *commandContext, ws *workspace.Workspace) error {
	if ws.Mode() != workspace.ModeStudy {
		if err := ws.EnterStudy(); err != nil {
			return fmt.Errorf("cannot study %q: %w", ws.DisplayTitle(), incompleteHint(err))
		}
	}
	in := cmd.InOrStdin()
	var opts []terminal.Option
	if !stdinIsTerminal(in) {
		ctx.logger.Debug("reading study commands from non-interactive input")
		opts = append(opts, terminal.Scripted())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Studying %s\n", ws.DisplayTitle())
	err := terminal.Run(cmd.Context(), ws.Study(), in, out, opts...)
	if errors.Is(err, terminal.ErrQuit) {
		fmt.Fprintln(out, "session ended early")
		return nil
	}
	return err
}
