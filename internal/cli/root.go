package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/subcalc/internal/compiler"
	"github.com/roach88/subcalc/internal/config"
	"github.com/roach88/subcalc/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	LogLevel string // overrides SUBCALC_LOG_LEVEL
	MaxLimit uint32 // overrides SUBCALC_MAX_LIMIT

	// Logger is installed by the root command before any subcommand runs.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the subcalc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "subcalc",
		Short: "subcalc - substitution calculus checker",
		Long: `Check programs written in a dependently typed substitution calculus.

Programs are CUE files with an items struct. subcalc resolves names,
compares terms under substitution and justifies every invariant a
program relies on.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if err := config.Load(); err != nil {
				return WrapExitError(ExitCommandError, "loading config", err)
			}
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().Uint32Var(&opts.MaxLimit, "max-limit", 0, "cap of the justification fixpoint (0 uses config)")

	// Add subcommands
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewEqualCommand(opts))
	cmd.AddCommand(NewDepsCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup fills in settings left unset by flags from the config and installs
// the logger on w.
func (o *RootOptions) setup(w io.Writer) error {
	level := config.LogLevel()
	if o.LogLevel != "" {
		parsed, err := config.ParseLogLevel(o.LogLevel)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --log-level", err)
		}
		level = parsed
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	if o.MaxLimit == 0 {
		o.MaxLimit = config.MaxLimit()
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if o.Format == "json" {
		o.Logger = slog.New(slog.NewJSONHandler(w, handlerOpts))
	} else {
		o.Logger = slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return nil
}

// logger returns the installed logger, or one that discards everything
// when a subcommand runs without the root command.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// newEngine creates an engine over one program with the configured cap.
func (o *RootOptions) newEngine(program *compiler.Program, file string) *engine.Engine {
	return engine.New(program.Store,
		engine.WithLogger(o.logger().With(slog.String("file", file))),
		engine.WithMaxLimit(o.MaxLimit))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
