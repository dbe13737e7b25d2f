package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gav/internal/auth"
)

func newTokenHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token-hash <token>",
		Short: "Hash an admin token for the admin_token_hash config key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := args[0]
			if err := auth.ValidateToken(token); err != nil {
				return err
			}
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	}
}
