package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.pilab.hu/ghlink/config"
	"go.pilab.hu/ghlink/log"
)

var (
	cfgFile   string
	cfg       *config.ServerConfig
	appLogger log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ghlink",
	Short: "ghlink links GitHub App installations to accounts",
	Long: `ghlink runs the GitHub App installation handshake: it sends users to
install the App with a signed state token and records the installation for
the account once the callback proves the user owns it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}

		level, levelErr := log.ParseLevel(cfg.LogLevel)
		appLogger = log.NewZerologAdapter(level, cfg.LogPretty)
		if levelErr != nil {
			appLogger.Warn(cmd.Context(), "Invalid log_level configured, defaulting to info", map[string]interface{}{
				"configured_log_level": cfg.LogLevel,
			})
		}

		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ./, /etc/ghlink/ and $HOME/.ghlink for ghlink_config.yaml)")

	rootCmd.AddCommand(serveCmd, stateCmd, appJWTCmd)
}
