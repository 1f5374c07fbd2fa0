package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:   "reprise",
		Short: "Replay-prediction feature pipeline",
		Long: "reprise turns the five raw music streaming tables into the two\n" +
			"engineered feature tables used for replay prediction.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (JSON, YAML, or TOML)")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
