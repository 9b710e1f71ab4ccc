package cli

import (
	"encoding/json"
	"io"

	"notify-dispatcher/pkg/config"

	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "notify-dispatcher",
		Short:         "Delivers due push notifications from the job queue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(RunCmd())
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(EnqueueCmd())
	rootCmd.AddCommand(DeadLettersCmd())
	rootCmd.AddCommand(TokenCmd())

	return rootCmd
}

// dispatchFlags are shared by run and serve
type dispatchFlags struct {
	dryRun      bool
	pageSize    int
	maxBatches  int
	maxAttempts int
}

func (f *dispatchFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "mark due jobs sent without calling the gateway")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "due jobs claimed per batch (overrides DISPATCH_PAGE_SIZE)")
	cmd.Flags().IntVar(&f.maxBatches, "max-batches", 0, "batches per run (overrides DISPATCH_MAX_BATCHES)")
	cmd.Flags().IntVar(&f.maxAttempts, "max-attempts", 0, "attempts per job (overrides DISPATCH_MAX_ATTEMPTS)")
}

func (f *dispatchFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
	if cmd.Flags().Changed("page-size") {
		cfg.PageSize = f.pageSize
	}
	if cmd.Flags().Changed("max-batches") {
		cfg.MaxBatches = f.maxBatches
	}
	if cmd.Flags().Changed("max-attempts") {
		cfg.MaxAttempts = f.maxAttempts
	}
}

// loadConfig reads the environment, applies flag overrides and validates
func loadConfig(cmd *cobra.Command, flags *dispatchFlags) (*config.Config, error) {
	cfg := config.Load()
	if flags != nil {
		flags.apply(cmd, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
