package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"go.pilab.hu/ghlink/internal/statetoken"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Issue and inspect installation state tokens",
}

var stateIssueCmd = &cobra.Command{
	Use:   "issue ACCOUNT_ID",
	Short: "Issue a state token for an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codec, err := statetoken.NewCodec(cfg.StateSecret, statetoken.WithTTL(cfg.StateTTL))
		if err != nil {
			return err
		}

		token, err := codec.Issue(args[0])
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}

var stateVerifyCmd = &cobra.Command{
	Use:   "verify TOKEN",
	Short: "Verify a state token and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		codec, err := statetoken.NewCodec(cfg.StateSecret, statetoken.WithTTL(cfg.StateTTL))
		if err != nil {
			return err
		}

		claims, err := codec.Verify(args[0])
		if err != nil {
			return err
		}

		out := map[string]interface{}{
			"account_id": claims.AccountID,
			"jti":        claims.ID,
			"issued_at":  claims.IssuedAt.Time.UTC().Format(time.RFC3339),
			"expires_at": claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	stateCmd.AddCommand(stateIssueCmd, stateVerifyCmd)
}
