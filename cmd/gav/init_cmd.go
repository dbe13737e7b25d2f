package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gav/internal/config"
	"gav/internal/store"
)

func newInitCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and apply schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("init database: %w", err)
			}
			defer st.Close()

			status, err := st.Status()
			if err != nil {
				return err
			}
			indexes, err := st.ListIndexes(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Database ready at %s\n", cfg.DBPath)
			fmt.Printf("Schema version: %d\n", status.CurrentVersion)
			for _, name := range indexes {
				fmt.Printf("Index: %s\n", name)
			}
			return nil
		},
	}
}
