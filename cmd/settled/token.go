package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/settle/httpapi"
)

func newTokenCommand() *cobra.Command {
	var participant string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for API access",
		RunE: func(cmd *cobra.Command, args []string) error {
			if participant == "" {
				return fmt.Errorf("--participant is required")
			}
			cfg := loadConfig()
			if cfg.JWTSecret == "" {
				return fmt.Errorf("SETTLE_JWT_SECRET is not set")
			}

			tm := httpapi.NewTokenManager(cfg.JWTSecret, ttl)
			token, err := tm.Generate(participant)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&participant, "participant", "", "participant ID the token identifies")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
