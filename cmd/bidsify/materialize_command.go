package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"bidsify/internal/config"
	"bidsify/internal/ledger"
	"bidsify/internal/logging"
	"bidsify/internal/mapping"
	"bidsify/internal/materialize"
	"bidsify/internal/preflight"
)

type materializeFlags struct {
	source      string
	dest        string
	mappingPath string
	subject     string
	session     string
	method      string
	eventsDir   string
	dryRun      bool
	noOverwrite bool
	verify      bool
	jsonOutput  bool
}

func newMaterializeCommand(ctx *commandContext) *cobra.Command {
	var flags materializeFlags

	cmd := &cobra.Command{
		Use:     "materialize",
		Aliases: []string{"copy2bids"},
		Short:   "Copy or link series into a BIDS tree following a mapping document",
		Long: `Materialize resolves every series named in --mapping to files in --source
and places them under --dest/sub-<subject>/ses-<session>. Missing imaging files
and failed links are reported per entry; the remaining entries still run and
the command exits non-zero. Use --dry-run to print the same decisions without
touching the filesystem.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaterialize(cmd, ctx, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.source, "source", "s", "", "Directory holding the NIfTI series (required)")
	cmd.Flags().StringVarP(&flags.dest, "dest", "d", "", "BIDS root directory (required)")
	cmd.Flags().StringVarP(&flags.mappingPath, "mapping", "m", "", "Mapping document written by scan (required)")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "Subject label (default: source directory name)")
	cmd.Flags().StringVar(&flags.session, "session", "", "Session label override")
	cmd.Flags().StringVar(&flags.method, "method", "", "Transfer method: copy, link, or symlink")
	cmd.Flags().StringVar(&flags.eventsDir, "events-dir", "", "Directory holding <task>_<run>_events.tsv files")
	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "Print planned transfers without writing anything")
	cmd.Flags().BoolVar(&flags.dryRun, "dry", false, "Alias for --dry-run")
	cmd.Flags().BoolVar(&flags.noOverwrite, "no-overwrite", false, "Treat existing destination files as failures")
	cmd.Flags().BoolVar(&flags.verify, "verify", false, "Hash-verify copied files")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the run report as JSON")
	_ = cmd.Flags().MarkHidden("dry")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("dest")
	_ = cmd.MarkFlagRequired("mapping")

	return cmd
}

func runMaterialize(cmd *cobra.Command, ctx *commandContext, flags materializeFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger(cmd)
	if err != nil {
		return err
	}
	runCtx := stageContext(cmd, "materialize")

	mappingPath, err := config.ExpandPath(flags.mappingPath)
	if err != nil {
		return err
	}
	doc, err := mapping.Load(mappingPath)
	if err != nil {
		return err
	}

	opts, err := materializeOptions(cfg, flags)
	if err != nil {
		return err
	}

	inputs := preflight.Inputs{SourceDir: opts.SourceDir, EventsDir: opts.EventsDir}
	if !opts.DryRun {
		inputs.DestRoot = opts.DestRoot
	}
	if err := preflight.Err(preflight.RunAll(inputs)); err != nil {
		return err
	}

	report, err := materialize.New(logger).Run(runCtx, doc, opts)
	if err != nil {
		return err
	}

	if cfg.History.Enabled {
		recordHistory(runCtx, cfg, logger, report, opts, mappingPath)
	}

	stdout := cmd.OutOrStdout()
	if flags.jsonOutput {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
	} else {
		renderReport(stdout, report, shouldColorize(stdout))
	}
	return report.Err()
}

func materializeOptions(cfg *config.Config, flags materializeFlags) (materialize.Options, error) {
	methodValue := cfg.Transfer.Method
	if strings.TrimSpace(flags.method) != "" {
		methodValue = flags.method
	}
	method, err := materialize.ParseMethod(methodValue)
	if err != nil {
		return materialize.Options{}, err
	}

	source, err := config.ExpandPath(flags.source)
	if err != nil {
		return materialize.Options{}, err
	}
	dest, err := config.ExpandPath(flags.dest)
	if err != nil {
		return materialize.Options{}, err
	}
	eventsDir := cfg.Transfer.EventsDir
	if strings.TrimSpace(flags.eventsDir) != "" {
		if eventsDir, err = config.ExpandPath(flags.eventsDir); err != nil {
			return materialize.Options{}, err
		}
	}
	session := cfg.Transfer.Session
	if strings.TrimSpace(flags.session) != "" {
		session = flags.session
	}

	return materialize.Options{
		SourceDir:    source,
		DestRoot:     dest,
		Subject:      flags.subject,
		Session:      session,
		Method:       method,
		EventsDir:    eventsDir,
		DryRun:       flags.dryRun,
		Overwrite:    cfg.Transfer.Overwrite && !flags.noOverwrite,
		VerifyCopies: cfg.Transfer.VerifyCopies || flags.verify,
	}, nil
}

func renderReport(out io.Writer, report *materialize.Report, colorize bool) {
	failed := make(map[string]bool, len(report.Failures))
	for _, f := range report.Failures {
		if f.Destination != "" {
			failed[f.Destination] = true
		}
	}
	for _, t := range report.Transfers {
		kind := statusInfo
		if failed[t.Destination] {
			kind = statusError
		}
		fmt.Fprintln(out, paint(t.Line(report.DryRun), kind, colorize))
	}
	for _, w := range report.Warnings {
		fmt.Fprintln(out, paint("warning: "+w.String(), statusWarn, colorize))
	}
	for _, f := range report.Failures {
		fmt.Fprintln(out, paint("error: "+f.Error(), statusError, colorize))
	}

	summary := fmt.Sprintf("%d transfers, %d failures, %d warnings (run %s)",
		len(report.Transfers), len(report.Failures), len(report.Warnings), report.RunID)
	if report.DryRun {
		summary = "[DRY] " + summary
	}
	kind := statusOK
	switch {
	case len(report.Failures) > 0:
		kind = statusError
	case len(report.Warnings) > 0:
		kind = statusWarn
	}
	fmt.Fprintln(out, paint(summary, kind, colorize))
}

// recordHistory stores the run in the ledger. Ledger problems only warn.
func recordHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger, report *materialize.Report, opts materialize.Options, mappingPath string) {
	logger = logging.WithContext(logging.WithRunID(ctx, report.RunID), logging.NewComponentLogger(logger, "ledger"))
	store, err := ledger.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "ledger_open_failed",
			logging.String(logging.FieldImpact, "run not recorded in history"),
			logging.Error(err),
		)
		return
	}
	defer store.Close()

	run, records := ledgerEntries(report, opts, mappingPath)
	if err := store.RecordRun(ctx, run, records); err != nil {
		logging.WarnWithContext(logger, "history write failed", "ledger_write_failed",
			logging.String(logging.FieldImpact, "run not recorded in history"),
			logging.Error(err),
		)
	}
}

func ledgerEntries(report *materialize.Report, opts materialize.Options, mappingPath string) (ledger.Run, []ledger.TransferRecord) {
	run := ledger.Run{
		ID:          report.RunID,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Subject:     report.Subject,
		Session:     report.Session,
		Method:      string(report.Method),
		DryRun:      report.DryRun,
		SourceDir:   opts.SourceDir,
		DestRoot:    opts.DestRoot,
		MappingPath: mappingPath,
		Transfers:   len(report.Transfers),
		Failures:    len(report.Failures),
		Warnings:    len(report.Warnings),
	}

	failures := make(map[string]error, len(report.Failures))
	for _, f := range report.Failures {
		if f.Destination != "" {
			failures[f.Source+"\x00"+f.Destination] = f.Err
		}
	}
	records := make([]ledger.TransferRecord, 0, len(report.Transfers)+len(report.Failures))
	for _, t := range report.Transfers {
		rec := ledger.TransferRecord{
			SeriesID:    t.SeriesID,
			Kind:        string(t.Kind),
			Method:      string(t.Method),
			Source:      t.Source,
			Destination: t.Destination,
			Status:      ledger.StatusDone,
		}
		if report.DryRun {
			rec.Status = ledger.StatusPlanned
		}
		if err, ok := failures[t.Source+"\x00"+t.Destination]; ok {
			rec.Status = ledger.StatusFailed
			if err != nil {
				rec.Error = err.Error()
			}
		}
		records = append(records, rec)
	}
	for _, f := range report.Failures {
		if f.Destination != "" {
			continue
		}
		rec := ledger.TransferRecord{
			SeriesID: f.SeriesID,
			Kind:     string(materialize.KindImage),
			Method:   string(report.Method),
			Source:   f.Source,
			Status:   ledger.StatusFailed,
		}
		if f.Err != nil {
			rec.Error = f.Err.Error()
		}
		records = append(records, rec)
	}
	for i := range records {
		records[i].Seq = i + 1
	}
	return run, records
}
