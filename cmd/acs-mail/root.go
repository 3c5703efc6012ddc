package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shineum/acs-mail-lite/internal/config"
)

// app carries state shared by subcommands once the root command has run.
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "acs-mail",
		Short: "Send email through Azure Communication Services",
		Long: `acs-mail normalizes a send request and delivers it through Azure
Communication Services, or through Microsoft Graph, AWS SES, Resend or
stdout when configured.

Example:
  acs-mail send --message request.yaml
  acs-mail send --eml message.eml --provider stdout
  acs-mail check "Support <support@example.com>" ops@example.com`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML configuration file (optional)")
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", "", "path to a .env file loaded before the environment is read")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(newSendCmd(a))
	cmd.AddCommand(newCheckCmd())

	return cmd
}

// init loads configuration and installs the logger.
func (a *app) init(cmd *cobra.Command, _ []string) error {
	if a.envFile != "" {
		if err := config.LoadEnvFile(a.envFile); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	setupLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
