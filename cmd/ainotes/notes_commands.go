package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ainotes/internal/api"
	"ainotes/internal/client"
	"ainotes/internal/config"
	"ainotes/internal/quality"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var title string
	var tier string
	var wait bool
	var waitTimeout time.Duration
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "submit <file.pdf>",
		Short: "Upload a PDF and queue note generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := quality.Parse(tier); !ok {
				return fmt.Errorf("invalid quality %q (want SIMPLE, BALANCED, or DETAILED)", tier)
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer file.Close()

			return ctx.withClient(func(c *client.Client) error {
				created, err := c.Submit(cmd.Context(), client.SubmitRequest{
					FileName: filepath.Base(path),
					Title:    title,
					Quality:  tier,
					Body:     file,
				})
				if err != nil {
					return err
				}
				if !wait {
					if jsonOut {
						return writeJSON(cmd, created)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s\n", created.ID)
					return nil
				}
				job, err := waitForJob(cmd, c, created.ID, waitTimeout)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, job)
				}
				return printJobResult(cmd, job)
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Job title (defaults to the file name)")
	cmd.Flags().StringVarP(&tier, "quality", "q", string(quality.Default), "Detail level: SIMPLE, BALANCED, or DETAILED")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish and print the notes")
	cmd.Flags().DurationVar(&waitTimeout, "timeout", 30*time.Minute, "Maximum time to wait with --wait")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func waitForJob(cmd *cobra.Command, c *client.Client, id string, timeout time.Duration) (*api.Job, error) {
	deadline := time.Now().Add(timeout)
	for {
		job, err := c.Get(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		if job.Status == "COMPLETED" || job.Status == "FAILED" {
			return job, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("job %s still %s after %s", id, strings.ToLower(job.Status), timeout)
		}
		select {
		case <-cmd.Context().Done():
			return nil, cmd.Context().Err()
		case <-time.After(time.Second):
		}
	}
}

func printJobResult(cmd *cobra.Command, job *api.Job) error {
	out := cmd.OutOrStdout()
	if job.Status == "FAILED" {
		msg := "unknown error"
		if job.ErrorMessage != nil {
			msg = *job.ErrorMessage
		}
		return fmt.Errorf("job %s failed: %s", job.ID, msg)
	}
	if job.Content != nil {
		fmt.Fprintln(out, *job.Content)
	}
	return nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				items, err := c.List(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, api.JobListResponse{Items: items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Status", "Quality", "Created"},
					buildJobRows(items),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var notesOnly bool
	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job and its generated notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				job, err := c.Get(cmd.Context(), strings.TrimSpace(args[0]))
				if client.IsNotFound(err) {
					return fmt.Errorf("job %s not found", args[0])
				}
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				if notesOnly {
					if job.Content == nil {
						return fmt.Errorf("job %s has no notes (status %s)", job.ID, formatStatusLabel(job.Status))
					}
					fmt.Fprintln(out, *job.Content)
					return nil
				}
				fmt.Fprintf(out, "ID:       %s\n", job.ID)
				fmt.Fprintf(out, "Title:    %s\n", job.Title)
				fmt.Fprintf(out, "Status:   %s\n", formatStatusLabel(job.Status))
				fmt.Fprintf(out, "Quality:  %s\n", formatStatusLabel(job.Quality))
				fmt.Fprintf(out, "Source:   %s (%s)\n", job.SourceFileName, formatBytes(job.SourceFileSize))
				fmt.Fprintf(out, "Created:  %s\n", formatDisplayTime(job.CreatedAt))
				fmt.Fprintf(out, "Updated:  %s (%s ago)\n", formatDisplayTime(job.UpdatedAt), formatAge(job.UpdatedAt, time.Now()))
				if job.ErrorMessage != nil {
					fmt.Fprintf(out, "Error:    %s\n", *job.ErrorMessage)
				}
				if job.Content != nil {
					fmt.Fprintln(out)
					fmt.Fprintln(out, *job.Content)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&notesOnly, "notes", false, "Print only the generated notes")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <job-id>...",
		Aliases: []string{"rm"},
		Short:   "Delete jobs (in-flight jobs are cancelled)",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *client.Client) error {
				out := cmd.OutOrStdout()
				var missing []string
				for _, id := range args {
					id = strings.TrimSpace(id)
					err := c.Delete(cmd.Context(), id)
					if client.IsNotFound(err) {
						fmt.Fprintf(out, "Job %s not found\n", id)
						missing = append(missing, id)
						continue
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Job %s deleted\n", id)
				}
				if len(missing) == len(args) {
					return errors.New("no jobs deleted")
				}
				return nil
			})
		},
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export your jobs to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(output)
			if target == "" {
				target = fmt.Sprintf("ainotes-%s.xlsx", time.Now().Format("20060102"))
			}
			path, err := config.ExpandPath(target)
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *client.Client) error {
				tmp, err := os.CreateTemp(filepath.Dir(path), ".ainotes-export-*")
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer os.Remove(tmp.Name())
				if err := c.Export(cmd.Context(), tmp); err != nil {
					tmp.Close()
					return err
				}
				if err := tmp.Close(); err != nil {
					return err
				}
				if err := os.Rename(tmp.Name(), path); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default ainotes-YYYYMMDD.xlsx)")
	return cmd
}
