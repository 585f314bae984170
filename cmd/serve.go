package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dvwtools/dvw-cli/internal/observability"
	"github.com/dvwtools/dvw-cli/internal/server"
)

// newServeCmd creates the `serve` command, which runs the embedded reference
// backend so the editor core has a remote to talk to.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference model/settings backend",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr")); err != nil {
				return err
			}
			return viper.BindPFlag("server.dsn", cmd.Flags().Lookup("dsn"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Server.Addr = viper.GetString("server.addr")
			cfg.Server.DSN = viper.GetString("server.dsn")

			srv, err := server.New(cfg.Server, observability.GetLogger())
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().String("dsn", "", "sqlite database path (default from config)")
	return serveCmd
}
