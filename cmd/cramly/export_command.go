package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/conorfennell/cramly/internal/export"
	"github.com/conorfennell/cramly/internal/storage"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var formatFlag, outPath string

	cmd := &cobra.Command{
		Use:   "export <deck-id>",
		Short: "Export a saved deck as an Anki package, CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			return ctx.withStore(func(db *storage.DB) error {
				ws := ctx.newWorkspace(db)
				if err := ws.LoadDeck(cmd.Context(), ctx.session(), args[0]); err != nil {
					return err
				}

				path := outPath
				if path == "" {
					path = export.FileName(ws.Deck().Title, format)
				}
				var w io.Writer = cmd.OutOrStdout()
				if path != "-" {
					f, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("create %s: %w", path, err)
					}
					defer f.Close()
					w = f
				}

				if err := ws.Export(cmd.Context(), format, w); err != nil {
					if path != "-" {
						os.Remove(path)
					}
					return incompleteHint(err)
				}
				if path != "-" {
					fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", string(export.FormatAnki), "Export format: anki, csv or xlsx")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path, or - for stdout (default derived from the deck title)")
	return cmd
}
