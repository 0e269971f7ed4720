package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ainotes/internal/api"
	"ainotes/internal/client"
	"ainotes/internal/config"
	"ainotes/internal/daemonctl"
	"ainotes/internal/daemonrun"
	"ainotes/internal/jobs"
	"ainotes/internal/logging"
	"ainotes/internal/preflight"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Daemon process commands",
	}

	var (
		logLevel string
		dev      bool
	)
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ainotes daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel, Development: dev})
		},
	}
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	runCmd.Flags().BoolVar(&dev, "dev", false, "Include source locations in log output")
	daemonCmd.AddCommand(runCmd)
	return daemonCmd
}

func newDaemonControlCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the ainotes daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), c, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configPath(),
				LogLevel:   startLogLevel,
			}, 10*time.Second)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Override logging.level")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the ainotes daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cmd.Context(), cfg, 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			c, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status := buildStatusSnapshot(cmd.Context(), c, cfg)
			if statusJSON {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), status, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

// buildStatusSnapshot asks the daemon for its status and falls back to local
// checks and a direct store read when it is not reachable.
func buildStatusSnapshot(ctx context.Context, c *client.Client, cfg *config.Config) *api.DaemonStatus {
	if status, err := c.Status(ctx); err == nil {
		return status
	}

	status := &api.DaemonStatus{
		StoreDriver:  cfg.Store.Driver,
		LockFilePath: cfg.LockPath(),
		Model:        cfg.LLM.Model,
		Checks:       api.FromChecks(preflight.RunAll(ctx, cfg)),
		Dependencies: api.FromDependencies(preflight.CheckDependencies(cfg)),
	}
	if cfg.Inbox.Enabled {
		status.InboxDir = cfg.Inbox.Dir
	}

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	store, err := jobs.Open(queryCtx, cfg, logging.NewNop())
	if err != nil {
		status.StoreError = err.Error()
		return status
	}
	defer store.Close()
	stats, err := store.Stats(queryCtx)
	if err != nil {
		status.StoreError = err.Error()
		return status
	}
	status.StoreHealthy = true
	status.Workflow.JobStats = api.MergeJobStats(stats)
	return status
}

func renderStatus(out io.Writer, status *api.DaemonStatus, colorize bool) {
	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(out, line)
	}
	if status.Running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
		fmt.Fprintln(out, renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d (%d busy)", status.Workflow.Workers, status.Workflow.InFlight), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "Not running (run `ainotes start`)", colorize))
	}
	storeDetail := status.StoreDriver
	if status.StoreHealthy {
		fmt.Fprintln(out, renderStatusLine("Store", statusOK, storeDetail, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Store", statusError, strings.TrimSpace(storeDetail+" "+status.StoreError), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Model", statusInfo, status.Model, colorize))
	if status.InboxDir != "" {
		fmt.Fprintln(out, renderStatusLine("Inbox", statusInfo, status.InboxDir, colorize))
	}
	if status.Workflow.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, status.Workflow.LastError, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Checks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, check := range status.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	for _, line := range dependencyLines(status.Dependencies, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Jobs", colorize) {
		fmt.Fprintln(out, line)
	}
	rows := buildStatsRows(status.Workflow.JobStats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No jobs")
		return
	}
	fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps))
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail+" (optional: "+yesNo(dep.Optional)+")", colorize))
	}
	return lines
}
