package cli

import (
	"errors"
	"fmt"
	"time"

	"notify-dispatcher/internal/notification/delivery"
	"notify-dispatcher/pkg/config"

	"github.com/spf13/cobra"
)

func TokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the operator API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.JWTSecret == "" {
				return errors.New("API_JWT_SECRET is not set")
			}

			token, err := delivery.IssueToken(cfg.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	tokenCmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return tokenCmd
}
