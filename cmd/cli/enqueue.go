package cli

import (
	"fmt"
	"time"

	"notify-dispatcher/internal/notification/domain"
	"notify-dispatcher/internal/notification/usecase"

	"github.com/spf13/cobra"
)

func EnqueueCmd() *cobra.Command {
	var (
		req       usecase.EnqueueRequest
		sendAt    string
		expiresAt string
		extra     map[string]string
	)

	enqueueCmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Add a notification job to the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, nil)
			if err != nil {
				return err
			}

			if sendAt != "" {
				t, err := time.Parse(time.RFC3339, sendAt)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				req.SendAt = t
			}
			if expiresAt != "" {
				t, err := time.Parse(time.RFC3339, expiresAt)
				if err != nil {
					return fmt.Errorf("--expires-at: %w", err)
				}
				req.ExpiresAt = &t
			}
			if len(extra) > 0 {
				req.Extra = make(map[string]domain.ExtraValue, len(extra))
				for k, v := range extra {
					req.Extra[k] = domain.StringValue(v)
				}
			}

			app, err := newApplication(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			job, err := app.usecase.Enqueue(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), job)
		},
	}

	f := enqueueCmd.Flags()
	f.StringVar(&req.Title, "title", "", "notification title")
	f.StringVar(&req.Body, "body", "", "notification body")
	f.StringVar(&req.ImageURL, "image", "", "notification image URL")
	f.StringVar(&req.Action, "action", "", "client action string")
	f.StringVar(&req.Topic, "topic", "", "deliver to a topic")
	f.StringVar(&req.Token, "token", "", "deliver to a device token")
	f.StringVar(&sendAt, "at", "", "due time, RFC3339 (default now)")
	f.StringVar(&expiresAt, "expires-at", "", "expiry time, RFC3339")
	f.StringToStringVar(&extra, "extra", nil, "extra data entries key=value")
	_ = enqueueCmd.MarkFlagRequired("title")
	_ = enqueueCmd.MarkFlagRequired("body")
	enqueueCmd.MarkFlagsOneRequired("topic", "token")
	enqueueCmd.MarkFlagsMutuallyExclusive("topic", "token")

	return enqueueCmd
}
