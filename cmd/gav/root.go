package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gav/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "gav",
		Short: "Gav stores game assets and player scores behind a small REST API",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newInitCmd(cfg),
		newSeedCmd(cfg),
		newConfigCmd(cfg),
		newTokenHashCmd(),
	)

	return cmd
}
