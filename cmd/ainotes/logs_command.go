package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ainotes/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var match logs.Match

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent daemon log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogFilePath()
			out := cmd.OutOrStdout()
			opts := logs.TailOptions{Offset: -1, Limit: lines, Filter: match.Filter()}
			for {
				result, err := logs.Tail(cmd.Context(), path, opts)
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				if !follow {
					return nil
				}
				opts.Offset = result.Offset
				opts.Follow = true
				opts.Wait = 5 * time.Second
			}
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries")
	cmd.Flags().StringVar(&match.JobID, "job", "", "Only entries for this job id")
	cmd.Flags().StringVar(&match.Component, "component", "", "Only entries from this component")
	cmd.Flags().StringVar(&match.MinLevel, "level", "", "Minimum level: debug, info, warn, error")
	return cmd
}
