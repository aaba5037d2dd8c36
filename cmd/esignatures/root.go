package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "esignatures",
		Short:        "E-signature contract sender and callback relay",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		"path to a YAML config file (settings may also come from ESIG_* environment variables)")

	cmd.AddCommand(
		newServeCmd(opts),
		newSendCmd(opts),
		newSecretCmd(),
	)
	return cmd
}
