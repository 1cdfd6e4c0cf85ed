package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "cramly",
		Short:         "Turn notes into flashcards and study them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig(cmd.Flags())
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFlag, "config", "c", "", "Configuration file path (default ./cramly.yaml when present)")
	flags.String("db", "", "Database DSN (a file path for sqlite)")
	flags.String("db-driver", "", "Database driver: sqlite or postgres")
	flags.StringP("user", "u", "", "Owner id used for saved decks")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newDecksCommand(ctx))
	rootCmd.AddCommand(newStudyCommand(ctx))
	rootCmd.AddCommand(newRefineCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
