package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/squideyes/esignatures/signature"
)

func newSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "secret",
		Short: "Generate a random webhook secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), signature.GenerateSecret())
			return err
		},
	}
}
