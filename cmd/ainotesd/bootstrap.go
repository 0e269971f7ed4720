package main

import (
	"strings"

	"github.com/spf13/cobra"

	"ainotes/internal/config"
	"ainotes/internal/daemonrun"
)

type runFunc func(cmd *cobra.Command, cfg *config.Config, opts daemonrun.Options) error

func newRootCommand() *cobra.Command {
	return newRootCommandWith(func(cmd *cobra.Command, cfg *config.Config, opts daemonrun.Options) error {
		return daemonrun.Run(cmd.Context(), cfg, opts)
	})
}

// newRootCommandWith lets tests observe the resolved config without running
// the daemon.
func newRootCommandWith(run runFunc) *cobra.Command {
	var configPath string
	var logLevel string
	var development bool

	cmd := &cobra.Command{
		Use:           "ainotesd",
		Short:         "ainotes background daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, _, err := config.Load(strings.TrimSpace(configPath))
			if err != nil {
				return err
			}
			return run(cmd, cfg, daemonrun.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&development, "dev", false, "Include source locations in log output")
	return cmd
}
