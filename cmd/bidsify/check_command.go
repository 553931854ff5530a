package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bidsify/internal/config"
	"bidsify/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var source, dest, eventsDir string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify source, destination, and events directories before a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			inputs := preflight.Inputs{LogDir: cfg.Paths.LogDir, EventsDir: cfg.Transfer.EventsDir}
			for _, p := range []struct {
				value  string
				target *string
			}{
				{source, &inputs.SourceDir},
				{dest, &inputs.DestRoot},
				{eventsDir, &inputs.EventsDir},
			} {
				if p.value == "" {
					continue
				}
				expanded, err := config.ExpandPath(p.value)
				if err != nil {
					return err
				}
				*p.target = expanded
			}

			results := preflight.RunAll(inputs)
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(stdout, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			fmt.Fprintln(stdout, renderStatusLine("History", statusInfo, historyDetail(cfg), colorize))
			return preflight.Err(results)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Directory holding the NIfTI series (required)")
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "BIDS root directory")
	cmd.Flags().StringVar(&eventsDir, "events-dir", "", "Directory holding events files")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func historyDetail(cfg *config.Config) string {
	if !cfg.History.Enabled {
		return "disabled"
	}
	return "enabled (" + cfg.HistoryPath() + ")"
}
