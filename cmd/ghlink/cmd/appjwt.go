package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"go.pilab.hu/ghlink/internal/githubapp"
)

var appJWTCmd = &cobra.Command{
	Use:   "appjwt",
	Short: "Print a short-lived GitHub App credential",
	Long: `Print a signed App JWT for manual calls to the GitHub API, e.g.

  curl -H "Authorization: Bearer $(ghlink appjwt)" https://api.github.com/app`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.AppID <= 0 {
			return fmt.Errorf("app_id is not configured")
		}

		pemBytes, err := cfg.PrivateKeyPEM()
		if err != nil {
			return err
		}
		key, err := githubapp.ParsePrivateKey(pemBytes)
		if err != nil {
			return err
		}

		gh, err := githubapp.New(githubapp.Config{
			AppID:        strconv.FormatInt(cfg.AppID, 10),
			PrivateKey:   key,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			APIURL:       cfg.GitHubAPIURL,
			WebURL:       cfg.GitHubWebURL,
		})
		if err != nil {
			return err
		}

		token, err := gh.AppCredential()
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}
