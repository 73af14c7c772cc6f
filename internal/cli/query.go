package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/subcalc/internal/compiler"
	"github.com/roach88/subcalc/internal/diagnostic"
	"github.com/roach88/subcalc/internal/engine"
	"github.com/roach88/subcalc/internal/report"
	"github.com/roach88/subcalc/internal/term"
)

// EqualOptions holds flags for the equal command.
type EqualOptions struct {
	*RootOptions
	Limit uint32
	Trim  bool
}

// NewEqualCommand creates the equal command.
func NewEqualCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EqualOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "equal <program> <left> <right>",
		Short: "Compare two items of a program",
		Long: `Compare two items of a program at a limit and print the answer:
yes (with the substitutions that make the items equal), no, unknown or
needs_higher_limit. Items are dotted paths from the program root.

Examples:
  subcalc equal nat.cue zero_plus_x x --limit 4
  subcalc equal nat.cue add.base zero --trim --format json`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEqual(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().Uint32Var(&opts.Limit, "limit", 4, "how many variables may be substituted")
	cmd.Flags().BoolVar(&opts.Trim, "trim", false, "drop substitutions that do not change the result")

	return cmd
}

func runEqual(opts *EqualOptions, path, left, right string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	q, err := openQuery(opts.RootOptions, formatter, path)
	if err != nil {
		return err
	}
	l, err := q.lookup(formatter, left)
	if err != nil {
		return err
	}
	r, err := q.lookup(formatter, right)
	if err != nil {
		return err
	}

	compare := q.engine.Equal
	if opts.Trim {
		compare = q.engine.TrimmedEqual
	}
	eq, err := compare(l, r, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "equal", err)
	}

	if formatter.JSON() {
		return formatter.Data(report.EqualValue(q.program.Store, eq), nil)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, eq.Kind)
	if eq.IsYes() {
		writeSubstitutions(w, "left", q.program.Store, eq.Left)
		writeSubstitutions(w, "right", q.program.Store, eq.Right)
	}
	return nil
}

func writeSubstitutions(w io.Writer, side string, s *term.Store, subs term.Substitutions) {
	if len(subs) == 0 {
		return
	}
	parts := make([]string, len(subs))
	for i, b := range subs {
		parts[i] = s.Label(b.Target.Item) + " IS " + report.Render(s, b.Value)
	}
	fmt.Fprintf(w, "  %s: %s\n", side, strings.Join(parts, ", "))
}

// NewDepsCommand creates the deps command.
func NewDepsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps <program> <item>",
		Short: "List the free variables of an item",
		Long: `List the variables an item depends on, in substitution order.
Eager dependencies are consumed where the item is used.

Examples:
  subcalc deps nat.cue add
  subcalc deps nat.cue add --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runDeps(opts *RootOptions, path, item string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout())

	q, err := openQuery(opts, formatter, path)
	if err != nil {
		return err
	}
	id, err := q.lookup(formatter, item)
	if err != nil {
		return err
	}

	deps := q.engine.Dependencies(id)
	if err := deps.Err(); err != nil {
		return WrapExitError(ExitCommandError, "dependencies", err)
	}

	if formatter.JSON() {
		return formatter.Data(report.DependenciesValue(q.program.Store, deps), nil)
	}
	w := cmd.OutOrStdout()
	all := deps.All()
	if len(all) == 0 {
		fmt.Fprintln(w, "No dependencies.")
		return nil
	}
	for _, dep := range all {
		mode := "lazy"
		if dep.Eager {
			mode = "eager"
		}
		fmt.Fprintf(w, "%s (%s)\n", q.program.Store.Label(dep.Var.Item), mode)
	}
	return nil
}

// query is a resolved program ready for queries.
type query struct {
	program *compiler.Program
	engine  *engine.Engine
}

// openQuery loads and resolves a program. A program that does not resolve
// cannot be queried; its diagnostics are reported and the command fails.
func openQuery(opts *RootOptions, formatter *OutputFormatter, path string) (*query, error) {
	program, err := LoadProgram(path)
	if err != nil {
		return nil, formatter.LoadFailure(err)
	}
	e := opts.newEngine(program, path)
	diags := compiler.ResolveAll(e)
	if !diagnostic.HasErrors(diags) {
		return &query{program: program, engine: e}, nil
	}

	first := diags[0]
	for _, d := range diags {
		if d.Level == diagnostic.LevelError {
			first = d
			break
		}
	}
	pos := ""
	if first.Pos.IsValid() {
		pos = first.Pos.String()
	}
	if err := formatter.Error(first.Code, first.Message, pos); err != nil {
		return nil, err
	}
	return nil, NewExitError(ExitFailure, fmt.Sprintf("%s does not resolve: %d error(s)", path, diagnostic.Count(diags, diagnostic.LevelError)))
}

func (q *query) lookup(formatter *OutputFormatter, path string) (term.ID, error) {
	id, ok := q.program.Lookup(path)
	if ok {
		return id, nil
	}
	msg := fmt.Sprintf("no item %q", path)
	if err := formatter.Error(ErrCodeNoItem, msg, ""); err != nil {
		return 0, err
	}
	return 0, NewExitError(ExitCommandError, msg)
}
