package cli

import (
	"github.com/spf13/cobra"
)

func DeadLettersCmd() *cobra.Command {
	var limit int

	dlqCmd := &cobra.Command{
		Use:     "dead-letters",
		Aliases: []string{"dlq"},
		Short:   "List quarantined jobs, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			app, err := newApplication(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			records, err := app.usecase.ListDeadLetters(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}

	dlqCmd.Flags().IntVar(&limit, "limit", 50, "maximum records to list")
	return dlqCmd
}
