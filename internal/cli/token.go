package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookcaseapp/bookcase-server/internal/auth"
)

func newTokenCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}
	cmd.AddCommand(newTokenIssueCmd(e))
	return cmd
}

func newTokenIssueCmd(e *env) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Mint an access token for a user",
		Long: `Mint a PASETO access token signed with the server's key.

The identity provider issues tokens in production; this is for local
development and support sessions.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := auth.LoadOrGenerateKey(e.cfg.Auth.KeyPath)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService(key, e.cfg.Auth.Issuer, e.cfg.Auth.AccessTokenDuration)
			if err != nil {
				return err
			}
			token, err := tokens.IssueAccessToken(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: configured access token duration)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
