package cli

import (
	"context"

	"notify-dispatcher/cmd/api"
	"notify-dispatcher/internal/notification/scheduler"
	"notify-dispatcher/internal/trigger"
	"notify-dispatcher/pkg/config"
	fbapp "notify-dispatcher/pkg/firebase"

	"github.com/spf13/cobra"
	"github.com/wb-go/wbf/zlog"
)

func ServeCmd() *cobra.Command {
	var flags dispatchFlags
	var noSchedule bool

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the operator API, the periodic scheduler and the Pub/Sub trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := newApplication(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if !noSchedule {
				s := scheduler.NewDispatchScheduler(app.driver, cfg.Interval)
				s.Start(ctx)
				defer s.Stop()
			} else {
				zlog.Logger.Info().Str("component", "serve").Msg("periodic scheduler disabled")
			}

			if cfg.PubSubTriggerTopic != "" {
				startTrigger(ctx, cfg, app.driver)
			}

			handler := api.NewHandler(app.usecase, app.driver, cfg)
			return handler.Start(ctx, ":"+cfg.Port)
		},
	}

	flags.register(serveCmd)
	serveCmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "only run on API or Pub/Sub triggers")
	return serveCmd
}

func startTrigger(ctx context.Context, cfg *config.Config, runner scheduler.Runner) {
	svc, err := trigger.NewService(ctx, cfg.GoogleProjectID, cfg.PubSubTriggerTopic, runner,
		fbapp.ClientOptions(credentials(cfg))...)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("component", "serve").Msg("pubsub trigger disabled")
		return
	}

	go func() {
		defer svc.Close()
		if err := svc.Start(ctx); err != nil {
			zlog.Logger.Error().Err(err).Str("component", "trigger").Msg("pubsub trigger stopped")
		}
	}()
}
