package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/subcalc/internal/compiler"
	"github.com/roach88/subcalc/internal/config"
	"github.com/roach88/subcalc/internal/diagnostic"
	"github.com/roach88/subcalc/internal/engine"
	"github.com/roach88/subcalc/internal/report"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Workers int // parallel files; 0 uses config

	// RunIDs generates report run IDs. Tests replace it with a fixed generator.
	RunIDs report.RunIDGenerator
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts, RunIDs: report.UUIDv7Generator{}}

	cmd := &cobra.Command{
		Use:   "check <program>...",
		Short: "Resolve programs and justify their invariants",
		Long: `Resolve every name of each program, then justify every invariant
the program relies on. A program is a .cue file or a directory whose
.cue files form one CUE package.

Programs are independent and are checked in parallel.

Exit codes:
  0 - Every program checked
  1 - Unresolved names or unjustified invariants
  2 - Command error (missing files, malformed programs, etc.)

Examples:
  subcalc check nat.cue
  subcalc check ./programs/list ./programs/nat.cue --workers 2
  subcalc check nat.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "programs checked in parallel (0 uses config)")

	return cmd
}

func runCheck(opts *CheckOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	workers := opts.Workers
	if workers <= 0 {
		workers = config.Workers()
	}

	checks := make([]report.Check, len(paths))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			c, err := checkProgram(opts, path)
			if err != nil {
				return err
			}
			checks[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return formatter.LoadFailure(err)
	}

	failed := 0
	for _, c := range checks {
		if c.Status() != report.StatusOK {
			failed++
		}
	}

	if formatter.JSON() {
		err := outputCheckJSON(formatter, checks, failed)
		if err != nil {
			return err
		}
	} else {
		outputCheckText(cmd.OutOrStdout(), checks, opts.Verbose)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d program(s) failed", failed))
	}
	return nil
}

// checkProgram loads, resolves and justifies one program. Justification
// only runs on programs that resolve.
func checkProgram(opts *CheckOptions, path string) (report.Check, error) {
	program, err := LoadProgram(path)
	if err != nil {
		return report.Check{}, err
	}

	e := opts.newEngine(program, path)
	diags := compiler.ResolveAll(e)
	if !diagnostic.HasErrors(diags) {
		found, err := e.JustifyAll(program.Root)
		if err != nil && !engine.IsUnjustified(err) {
			return report.Check{}, fmt.Errorf("%s: %w", path, err)
		}
		diags = append(diags, found...)
	}

	c := report.NewCheck(opts.RunIDs, path, program.Store, len(program.Items()), diags)
	opts.logger().Debug("checked program",
		slog.String("file", path),
		slog.String("run_id", c.RunID),
		slog.String("status", c.Status()),
		slog.Int("diagnostics", len(diags)),
	)
	return c, nil
}

func outputCheckJSON(f *OutputFormatter, checks []report.Check, failed int) error {
	programs := make(report.Array, len(checks))
	for i, c := range checks {
		digest, err := c.Digest()
		if err != nil {
			return err
		}
		v := c.Value()
		v["run_id"] = report.String(c.RunID)
		v["digest"] = report.String(digest)
		programs[i] = v
	}

	var failure *CLIError
	if failed > 0 {
		failure = &CLIError{
			Code:    "E_CHECK_FAILED",
			Message: fmt.Sprintf("%d program(s) failed", failed),
		}
	}
	return f.Data(report.Object{
		"programs": programs,
		"failed":   report.Int(failed),
		"total":    report.Int(len(checks)),
	}, failure)
}

func outputCheckText(w io.Writer, checks []report.Check, verbose bool) {
	failed := 0
	for _, c := range checks {
		status := c.Status()
		mark := "✓"
		if status != report.StatusOK {
			mark = "✗"
			failed++
		}
		fmt.Fprintf(w, "%s %s: %d item(s), %s\n", mark, c.File, c.Items, status)
		if verbose {
			fmt.Fprintf(w, "  run %s\n", c.RunID)
		}
		for i, d := range c.Diagnostics {
			if d.Level == diagnostic.LevelInfo && !verbose {
				continue
			}
			fmt.Fprintf(w, "  %s\n", d)
			if i < len(c.Rendered) && len(c.Rendered[i]) > 0 {
				fmt.Fprintf(w, "    %v\n", c.Rendered[i])
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Check Summary: %d passed, %d failed, %d total\n", len(checks)-failed, failed, len(checks))
}
