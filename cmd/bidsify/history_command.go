package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bidsify/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded materialize runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, runs)
			}
			stdout := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(stdout, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				mode := run.Method
				if run.DryRun {
					mode += " (dry)"
				}
				rows = append(rows, []string{
					shortID(run.ID),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Subject,
					mode,
					strconv.Itoa(run.Transfers),
					strconv.Itoa(run.Failures),
					strconv.Itoa(run.Warnings),
				})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"Run", "Started", "Subject", "Method", "Transfers", "Failures", "Warnings"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")

	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the transfers of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			records, err := store.Transfers(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Run:      %s\n", run.ID)
			fmt.Fprintf(stdout, "Started:  %s (%s)\n", run.StartedAt.Local().Format(time.RFC3339), run.Duration().Round(time.Millisecond))
			fmt.Fprintf(stdout, "Subject:  sub-%s ses-%s\n", run.Subject, run.Session)
			fmt.Fprintf(stdout, "Method:   %s (dry run: %s)\n", run.Method, yesNo(run.DryRun))
			fmt.Fprintf(stdout, "Source:   %s\n", run.SourceDir)
			fmt.Fprintf(stdout, "Dest:     %s\n", run.DestRoot)
			if run.MappingPath != "" {
				fmt.Fprintf(stdout, "Mapping:  %s\n", run.MappingPath)
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				detail := rec.Destination
				if rec.Error != "" {
					detail = rec.Error
				}
				rows = append(rows, []string{strconv.Itoa(rec.Seq), rec.SeriesID, rec.Kind, rec.Status, detail})
			}
			fmt.Fprintln(stdout, renderTable(
				[]string{"#", "Series", "Kind", "Status", "Destination / Error"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			store, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour, "Minimum age of runs to delete")
	return cmd
}

func openLedger(ctx *commandContext) (*ledger.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, errors.New("run history is disabled (history.enabled = false)")
	}
	return ledger.Open(cfg.HistoryPath())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
