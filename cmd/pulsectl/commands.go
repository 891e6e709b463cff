package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/campuspulse-backend/internal/app"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
)

type openFunc func(ctx context.Context) (*app.App, error)

func newRootCmd(open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "pulsectl",
		Short: "Operate the campus pulse store",
		Long: `pulsectl reads and updates the configured campus pulse store directly.

It uses the same environment and CONFIG_FILE as the server.`,
		SilenceUsage: true,
	}
	root.AddCommand(
		newStatsCmd(open),
		newReportsCmd(open),
		newAnalyzeCmd(open),
		newSyncCmd(open),
	)
	return root
}

// withApp opens the app for one command and closes it afterwards.
func withApp(cmd *cobra.Command, open openFunc, fn func(ctx context.Context, a *app.App) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	out, err := fn(ctx, a)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newStatsCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate statistics over all shared entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) (any, error) {
				return a.Services.Aggregation.ComputeStats(ctx)
			})
		},
	}
}

func newReportsCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "Print the stored weekly reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) (any, error) {
				return a.Services.Aggregation.ListReports(ctx)
			})
		},
	}
}

func newAnalyzeCmd(open openFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Run the campus analysis over the most recent entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) (any, error) {
				return a.Services.CampusReports.Summarize(ctx)
			})
		},
	}
}

func newSyncCmd(open openFunc) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Merge a personal history export into the shared store",
		Long: `Reads a JSON array of entries (as returned by GET /api/student/history)
and merges every entry whose timestamp is not already stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := readEntries(file)
			if err != nil {
				return err
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) (any, error) {
				return a.Services.Sync.Sync(ctx, entries)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to a JSON history export")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readEntries(path string) ([]pulse.Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var entries []pulse.Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	return entries, nil
}
