package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/todoagent/internal/google"
)

func newAuthCmd() *cobra.Command {
	var (
		code  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail and Google Tasks access for an account",
		Long: `Run the OAuth consent flow for the configured Google account and store the
token. Open the printed URL, grant access and paste the authorization code.

The OAuth client is read from google.client_id and google.client_secret, or
from GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(globals)
			if err != nil {
				return err
			}
			creds := cfg.ClientCredentials()
			if creds.ClientID == "" || creds.ClientSecret == "" {
				return errors.New("google client_id and client_secret must be configured")
			}
			store, err := google.NewTokenStore(cfg.Google.TokenDir, creds)
			if err != nil {
				return err
			}

			account := cfg.Google.Account
			out := cmd.OutOrStdout()
			if !force {
				if authorized, err := checkToken(cmd.Context(), out, store, account); authorized || err != nil {
					return err
				}
			}

			if code == "" {
				fmt.Fprintf(out, "Open this URL to authorize account %q:\n\n  %s\n\nAuthorization code: ", account, store.AuthURL())
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read authorization code: %w", err)
				}
				code = strings.TrimSpace(line)
			}
			if code == "" {
				return errors.New("authorization code is required")
			}

			if err := store.Exchange(cmd.Context(), account, code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token stored in %s\n", store.TokenFilePath(account))
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "Authorization code (prompted for when empty)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-authorize even when a token exists")
	return cmd
}

// checkToken reports whether account already has a usable token. A stored
// token that can no longer be refreshed is an error that asks for --force.
func checkToken(ctx context.Context, out io.Writer, tp google.TokenProvider, account string) (bool, error) {
	if !tp.HasTokenForAccount(account) {
		return false, nil
	}
	tok, err := tp.GetTokenForAccount(ctx, account)
	if err != nil {
		return false, fmt.Errorf("stored token for account %q is unusable, re-run with --force: %w", account, err)
	}
	fmt.Fprintf(out, "Account %q is already authorized", account)
	if !tok.Expiry.IsZero() {
		fmt.Fprintf(out, " (access token valid until %s)", tok.Expiry.Format(time.RFC3339))
	}
	fmt.Fprintln(out, ". Use --force to re-authorize.")
	return true, nil
}
