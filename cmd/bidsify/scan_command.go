package main

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bidsify/internal/classify"
	"bidsify/internal/config"
	"bidsify/internal/logging"
	"bidsify/internal/mapping"
	"bidsify/internal/scan"
)

type scanFlags struct {
	source      string
	out         string
	forceTask   string
	taskRenames []string
	noPrompt    bool
	format      string
	jsonOutput  bool
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Classify series in a source directory and write a mapping document",
		Long: `Scan lists the imaging series in --source, classifies them with the
built-in rule table, prints the proposed mapping for review, and writes it to
--out after confirmation. Edit the mapping by hand before running materialize
if a series landed in the wrong place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, ctx, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.source, "source", "s", "", "Directory holding the NIfTI series (required)")
	cmd.Flags().StringVarP(&flags.out, "out", "o", "", "Mapping document path (default mapping.<format> in the current directory)")
	cmd.Flags().StringVar(&flags.forceTask, "force-task", "", "Use this task name for every functional series")
	cmd.Flags().StringArrayVar(&flags.taskRenames, "task-rename", nil, "Rename a detected task (OLD=NEW, repeatable)")
	cmd.Flags().BoolVarP(&flags.noPrompt, "no-prompt", "y", false, "Write the mapping without asking for confirmation")
	cmd.Flags().StringVar(&flags.format, "format", "", "Mapping format when --out has no extension (yaml or json)")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the classification as JSON instead of tables (implies --no-prompt)")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runScan(cmd *cobra.Command, ctx *commandContext, flags scanFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger(cmd)
	if err != nil {
		return err
	}
	runCtx := stageContext(cmd, "scan")

	format, out, err := resolveMappingOutput(cfg, flags)
	if err != nil {
		return err
	}

	series, err := scan.Discover(runCtx, flags.source, logger)
	if err != nil {
		return err
	}

	opts, err := classifyOptions(cfg, flags)
	if err != nil {
		return err
	}
	classifier, err := classify.New(opts, logger)
	if err != nil {
		return err
	}
	result := classifier.Classify(runCtx, scan.IDs(series))

	stdout := cmd.OutOrStdout()
	if flags.jsonOutput {
		if err := writeJSON(cmd, scanReport{Source: flags.source, Output: out, Decisions: result.Decisions, Warnings: result.Warnings, Mapping: result.Document}); err != nil {
			return err
		}
	} else {
		renderScanReview(stdout, result, shouldColorize(stdout))
		fmt.Fprintln(stdout, "Proposed mapping:")
		if err := mapping.Encode(stdout, format, result.Document); err != nil {
			return fmt.Errorf("render mapping: %w", err)
		}
	}

	prompt := cfg.Scan.Prompt && !flags.noPrompt && !flags.jsonOutput
	if prompt {
		ok, err := confirm(cmd.InOrStdin(), stdout, fmt.Sprintf("Write mapping to %s?", out))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "Mapping not written")
			return nil
		}
	}

	data, err := mapping.Marshal(format, result.Document)
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	if err := writeFileAtomic(out, data); err != nil {
		return err
	}
	logging.WithContext(runCtx, logger).Info(
		"mapping written",
		logging.String("path", out),
		logging.String("format", string(format)),
		logging.Int("series_count", len(series)),
	)
	if !flags.jsonOutput {
		fmt.Fprintf(stdout, "Wrote mapping to %s\n", out)
	}
	return nil
}

type scanReport struct {
	Source    string              `json:"source"`
	Output    string              `json:"output"`
	Decisions []classify.Decision `json:"decisions"`
	Warnings  []string            `json:"warnings,omitempty"`
	Mapping   *mapping.Document   `json:"mapping"`
}

func resolveMappingOutput(cfg *config.Config, flags scanFlags) (mapping.Format, string, error) {
	out := strings.TrimSpace(flags.out)
	formatValue := strings.TrimSpace(flags.format)
	if formatValue == "" {
		switch {
		case out != "" && filepath.Ext(out) != "":
			formatValue = string(mapping.FormatForPath(out))
		default:
			formatValue = cfg.Scan.MappingFormat
		}
	}
	format, err := mapping.ParseFormat(formatValue)
	if err != nil {
		return "", "", err
	}
	if out == "" {
		out = "mapping." + string(format)
	}
	expanded, err := config.ExpandPath(out)
	if err != nil {
		return "", "", err
	}
	return format, expanded, nil
}

func classifyOptions(cfg *config.Config, flags scanFlags) (classify.Options, error) {
	renames := make(map[string]string, len(cfg.Scan.TaskRenames))
	maps.Copy(renames, cfg.Scan.TaskRenames)
	extra, err := config.ParseTaskRenames(flags.taskRenames)
	if err != nil {
		return classify.Options{}, err
	}
	maps.Copy(renames, extra)

	forceTask := cfg.Scan.ForceTask
	if strings.TrimSpace(flags.forceTask) != "" {
		forceTask = flags.forceTask
	}
	return classify.Options{ForceTask: forceTask, TaskRenames: renames}, nil
}

func renderScanReview(out io.Writer, result classify.Result, colorize bool) {
	rows := make([][]string, 0, len(result.Decisions))
	for _, d := range result.Decisions {
		target := decisionTarget(d)
		rows = append(rows, []string{d.ID, string(d.Outcome), target, d.Note})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Series", "Outcome", "Target", "Note"}, rows, nil))
	} else {
		fmt.Fprintln(out, "No imaging series found")
	}
	for _, w := range result.Warnings {
		fmt.Fprintln(out, paint("warning: "+w, statusWarn, colorize))
	}
}

func decisionTarget(d classify.Decision) string {
	switch d.Outcome {
	case classify.OutcomeAnatomical:
		return "anat/" + d.Label
	case classify.OutcomeFunctional, classify.OutcomeReference:
		role := mapping.RoleBold
		if d.Reference {
			role = mapping.RoleSBRef
		}
		if d.Run == "" {
			return fmt.Sprintf("func/%s (%s)", d.Task, role)
		}
		return fmt.Sprintf("func/%s/%s (%s)", d.Task, d.Run, role)
	case classify.OutcomeFieldmap:
		return fmt.Sprintf("fmap/%s/%s", d.Label, d.Component)
	default:
		return "-"
	}
}

// confirm asks a yes/no question on out and reads the answer from in. An
// empty answer accepts; end of input without an answer declines.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [Y/n]: ", question)
	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	if line == "" {
		fmt.Fprintln(out)
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
