package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/cramly/internal/storage"
)

func newRefineCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refine <deck-id> <card-number> <instruction...>",
		Short: "Rewrite one card of a saved deck with the language model",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil || position < 1 {
				return fmt.Errorf("card number must be a positive integer, got %q", args[1])
			}
			instruction := strings.Join(args[2:], " ")

			return ctx.withStore(func(db *storage.DB) error {
				ws := ctx.newWorkspace(db)
				if err := ws.LoadDeck(cmd.Context(), ctx.session(), args[0]); err != nil {
					return err
				}
				ws.EnterEdit()

				cards := ws.Deck().Cards
				if position > len(cards) {
					return fmt.Errorf("deck has %d cards, no card %d", len(cards), position)
				}
				before := cards[position-1]
				after, err := ws.Refine(cmd.Context(), before.ID, instruction)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "before\n  Q: %s\n  A: %s\nafter\n  Q: %s\n  A: %s\n",
					oneLine(before.Front), oneLine(before.Back), oneLine(after.Front), oneLine(after.Back))
				res, err := ws.Save(cmd.Context(), ctx.session())
				if err != nil {
					return err
				}
				printSaveResult(out, res)
				return nil
			})
		},
	}
}
