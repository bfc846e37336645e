// Package main is the entry point for deflint.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/donaldgifford/deflint/internal/report"
	_ "github.com/donaldgifford/deflint/internal/rules" // Register rules via init().
	"github.com/donaldgifford/deflint/internal/runner"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type flags struct {
	autocorrect bool
	diff        bool
	format      string
	config      string
	jobs        int
	failLevel   string
	color       string
	quiet       bool
	verbose     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// execute runs the root command and returns the process exit code.
func execute(ctx context.Context, args []string) int {
	var f flags
	code := runner.ExitOK

	cmd := &cobra.Command{
		Use:   "deflint [flags] [files...]",
		Short: "Check parentheses style of Ruby method definitions",
		Long: `deflint reports Ruby method definitions whose parameter lists use
parentheses inconsistently, and optionally corrects them in place.
Directories are searched for .rb, .rake and .gemspec files. With no
files, source is read from stdin.`,
		Version:       fmt.Sprintf("%s (%s) %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, files []string) error {
			format, err := report.ParseFormat(f.format)
			if err != nil {
				return err
			}
			logger := newLogger(f.verbose)
			code = runner.Run(cmd.Context(), &runner.Options{
				Files:       files,
				Autocorrect: f.autocorrect,
				Diff:        f.diff,
				Format:      format,
				ConfigPath:  f.config,
				Jobs:        f.jobs,
				FailLevel:   f.failLevel,
				Color:       f.color,
				Quiet:       f.quiet,
				Verbose:     f.verbose,
				Logger:      &logger,
			})
			return nil
		},
	}
	cmd.SetVersionTemplate("deflint {{.Version}}\n")

	fl := cmd.Flags()
	fl.BoolVarP(&f.autocorrect, "autocorrect", "a", false, "correct offences in place")
	fl.BoolVar(&f.diff, "diff", false, "print corrections as a unified diff instead of writing them")
	fl.StringVarP(&f.format, "format", "f", string(report.FormatText), "output format (text|json)")
	fl.StringVarP(&f.config, "config", "c", "", "path to config file")
	fl.IntVarP(&f.jobs, "jobs", "j", 0, "files inspected in parallel (0 = number of CPUs)")
	fl.StringVar(&f.failLevel, "fail-level", "", "minimum severity that fails the run (convention|warning|error)")
	fl.StringVar(&f.color, "color", "", "colorize output (auto|on|off)")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "suppress the summary and clean output")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "print files as they are processed")

	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "deflint: %v\n", err)
		return runner.ExitError
	}
	return code
}

// newLogger writes human-readable diagnostics to stderr. Only warnings pass
// unless verbose output was requested.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
		NoColor:    os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stderr.Fd())), //nolint:gosec // fd fits in int.
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
