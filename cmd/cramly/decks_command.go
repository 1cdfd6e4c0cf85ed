package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/cramly/internal/domain"
	"github.com/conorfennell/cramly/internal/storage"
	"github.com/conorfennell/cramly/internal/terminal"
)

func newDecksCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "decks",
		Short: "List saved decks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := ctx.session()
			if err := session.Require(); err != nil {
				return fmt.Errorf("%w (pass --user)", err)
			}
			return ctx.withStore(func(db *storage.DB) error {
				decks, err := db.ListDecks(cmd.Context(), session.UserID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if decks == nil {
						decks = []domain.DeckSummary{}
					}
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(decks)
				}
				if len(decks) == 0 {
					fmt.Fprintln(out, "no saved decks")
					return nil
				}
				rows := make([][]string, 0, len(decks))
				for _, d := range decks {
					rows = append(rows, []string{d.ID, d.Title, fmt.Sprint(d.CardCount), d.UpdatedAt.Local().Format("2006-01-02 15:04")})
				}
				fmt.Fprintln(out, terminal.RenderTable(
					[]string{"ID", "Title", "Cards", "Updated"},
					rows,
					[]terminal.Alignment{terminal.AlignLeft, terminal.AlignLeft, terminal.AlignRight, terminal.AlignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	cmd.AddCommand(newDecksShowCommand(ctx))
	cmd.AddCommand(newDecksDeleteCommand(ctx))
	return cmd
}

func newDecksShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <deck-id>",
		Short: "Print the cards of a saved deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := ctx.session()
			if err := session.Require(); err != nil {
				return fmt.Errorf("%w (pass --user)", err)
			}
			return ctx.withStore(func(db *storage.DB) error {
				d, err := db.GetDeck(cmd.Context(), session.UserID, args[0])
				if err != nil {
					return err
				}
				printCards(cmd.OutOrStdout(), d.Title, d.Cards)
				return nil
			})
		},
	}
}

func newDecksDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <deck-id>",
		Short: "Delete a saved deck and its cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := ctx.session()
			if err := session.Require(); err != nil {
				return fmt.Errorf("%w (pass --user)", err)
			}
			return ctx.withStore(func(db *storage.DB) error {
				if err := db.DeleteDeck(cmd.Context(), session.UserID, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted deck %s\n", args[0])
				return nil
			})
		},
	}
}
