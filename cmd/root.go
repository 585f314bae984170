package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/dvwtools/dvw-cli/internal/config"
	"github.com/dvwtools/dvw-cli/internal/observability"
)

var (
	cfgFile string
	cfg     *config.Config
)

// NewRootCommand builds the root command with all subcommands attached. A
// fresh instance per invocation keeps flag state from leaking between runs.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "dvw",
		Short:   "dvw edits and persists Data Vault diagram models.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Runs before any command, setting up config and logging.
			if err := config.Init(viper.GetViper(), cfgFile); err != nil {
				return err
			}

			loaded, err := config.Load(viper.GetViper())
			if err != nil {
				// Fallback logger so the failure itself is visible.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "dvw"})
				return err
			}
			cfg = loaded

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("starting dvw", zap.String("version", Version))
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(
		newServeCmd(),
		newModelsCmd(),
		newPullCmd(),
		newPushCmd(),
		newNewCmd(),
		newDeriveCmd(),
		newImportCmd(),
		newExportCmd(),
		newSettingsCmd(),
	)
	return rootCmd
}

// Execute runs the CLI with a signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return err
	}
	return nil
}
