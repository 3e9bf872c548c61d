package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sunsafe/sunsafe/internal/auth"
	"github.com/sunsafe/sunsafe/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		expiry time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for the /v1/me endpoints",
		Long: `Sign a bearer token with the configured key (JWT_SIGNING_KEY or
CONFIG_PATH). Intended for local development and smoke tests.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			svc := auth.NewJWTService(auth.JWTConfig{
				SigningKey: cfg.Auth.SigningKey,
				Issuer:     cfg.Auth.Issuer,
				Audience:   cfg.Auth.Audience,
				Expiry:     expiry,
			})
			token, expiresAt, err := svc.GenerateAccessToken(userID)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to put in the token")
	cmd.Flags().DurationVar(&expiry, "expiry", auth.DefaultAccessTokenExpiry, "token lifetime")
	_ = cmd.MarkFlagRequired("user") //nolint:errcheck // flag is registered above
	return cmd
}
