package cli

import (
	"notify-dispatcher/internal/notification/scheduler"

	"github.com/spf13/cobra"
)

func RunCmd() *cobra.Command {
	var flags dispatchFlags

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Deliver due notifications once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}

			app, err := newApplication(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.driver.Run(cmd.Context(), scheduler.RunOptions{})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}

	flags.register(runCmd)
	return runCmd
}
