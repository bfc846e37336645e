// Package runner orchestrates the parse -> inspect -> correct -> report
// pipeline over a set of files.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/donaldgifford/deflint/internal/config"
	"github.com/donaldgifford/deflint/internal/cop"
	"github.com/donaldgifford/deflint/internal/parser"
	"github.com/donaldgifford/deflint/internal/report"
	"github.com/donaldgifford/deflint/internal/rules"
	"github.com/donaldgifford/deflint/internal/source"
	"github.com/donaldgifford/deflint/pkg/diff"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitOffences = 1
	ExitError    = 2
)

// stdinPath names standard input in reports and diffs.
const stdinPath = "<stdin>"

// rubyExtensions selects files when a directory is given.
var rubyExtensions = map[string]bool{
	".rb":      true,
	".rake":    true,
	".gemspec": true,
}

// Options configures the runner behavior. Zero values defer to the config
// file.
type Options struct {
	Files       []string
	Autocorrect bool
	// Diff prints the corrections as a unified diff instead of writing them.
	Diff       bool
	Format     report.Format
	ConfigPath string
	Jobs       int
	FailLevel  string
	Color      string
	Quiet      bool
	Verbose    bool
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *zerolog.Logger
}

// fileResult is the outcome for one input, stored by index so output keeps
// the input order.
type fileResult struct {
	path   string
	buf    *source.Buffer
	result *cop.Result
	diff   string
	err    error
}

// Run executes the pipeline and returns an exit code.
func Run(ctx context.Context, opts *Options) int {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Format == "" {
		opts.Format = report.FormatText
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		writeErr(opts.Stderr, "deflint: %v\n", err)
		return ExitError
	}
	if err := applyOverrides(cfg, opts); err != nil {
		writeErr(opts.Stderr, "deflint: %v\n", err)
		return ExitError
	}
	failLevel, err := cfg.FailLevel()
	if err != nil {
		writeErr(opts.Stderr, "deflint: %v\n", err)
		return ExitError
	}

	settings, err := cfg.RuleSettings()
	if err != nil {
		writeErr(opts.Stderr, "deflint: %v\n", err)
		return ExitError
	}
	for _, name := range cfg.RuleNames() {
		if _, ok := rules.Lookup(name); !ok {
			log.Warn().Str("rule", name).Msg("configured rule is not registered")
		}
	}

	driver := cop.NewDriver(rules.Rules(), cop.Options{
		Autocorrect: opts.Autocorrect || opts.Diff,
		Settings:    settings,
		Logger:      &log,
	})

	p := &pipeline{opts: opts, driver: driver, log: log}

	var results []fileResult
	stdinMode := len(opts.Files) == 0
	if stdinMode {
		results = []fileResult{p.runStdin()}
	} else {
		paths, err := expand(opts.Files)
		if err != nil {
			writeErr(opts.Stderr, "deflint: %v\n", err)
			return ExitError
		}
		results, err = p.runFiles(ctx, paths, cfg.Run.Jobs)
		if err != nil {
			writeErr(opts.Stderr, "deflint: %v\n", err)
			return ExitError
		}
	}

	return p.finish(results, stdinMode, failLevel, useColor(cfg.Run.Color, opts.Stdout))
}

// applyOverrides lets command-line flags win over the config file.
func applyOverrides(cfg *config.Config, opts *Options) error {
	if opts.Jobs > 0 {
		cfg.Run.Jobs = opts.Jobs
	}
	if opts.FailLevel != "" {
		cfg.Run.FailLevel = opts.FailLevel
	}
	if opts.Color != "" {
		cfg.Run.Color = opts.Color
	}
	return cfg.Validate()
}

// expand replaces directories with the Ruby files below them.
func expand(paths []string) ([]string, error) {
	var out []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			// Missing files are reported per file later.
			out = append(out, path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if rubyExtensions[filepath.Ext(p)] {
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
	}
	return out, nil
}

type pipeline struct {
	opts   *Options
	driver *cop.Driver
	log    zerolog.Logger
}

// runFiles inspects files in parallel. Per-file failures are kept in the
// results; only cancellation aborts the run.
func (p *pipeline) runFiles(ctx context.Context, paths []string, jobs int) ([]fileResult, error) {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]fileResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = p.runFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *pipeline) runFile(path string) fileResult {
	p.log.Debug().Str("file", path).Msg("inspecting")

	buf, err := source.Load(path)
	if err != nil {
		return fileResult{path: path, err: err}
	}
	fr := p.inspect(buf)

	if p.opts.Autocorrect && !p.opts.Diff && fr.result.Changed() {
		if err := writeFile(path, fr.result.Output); err != nil {
			fr.err = fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return fr
}

func (p *pipeline) runStdin() fileResult {
	src, err := io.ReadAll(p.opts.Stdin)
	if err != nil {
		return fileResult{path: stdinPath, err: fmt.Errorf("reading stdin: %w", err)}
	}
	buf, err := source.NewBuffer(stdinPath, src)
	if err != nil {
		return fileResult{path: stdinPath, err: err}
	}
	return p.inspect(buf)
}

func (p *pipeline) inspect(buf *source.Buffer) fileResult {
	res := p.driver.Inspect(buf, parser.Parse(buf))
	fr := fileResult{path: buf.Path, buf: buf, result: res}

	if p.opts.Diff && res.Changed() {
		changes := make([]diff.Change, 0, len(res.Rewrite.Changes))
		for _, c := range res.Rewrite.Changes {
			changes = append(changes, diff.Change{
				OldStart: int(c.Old.Start), OldEnd: int(c.Old.End),
				NewStart: int(c.New.Start), NewEnd: int(c.New.End),
			})
		}
		fr.diff = diff.FromChanges(buf.Path, buf.Bytes(), res.Output, changes)
	}
	if res.Rewrite != nil {
		for _, d := range res.Rewrite.Dropped {
			p.log.Debug().Str("file", buf.Path).Str("rule", d.Owner).Err(d.Err).Msg("correction not applied")
		}
	}
	return fr
}

// finish prints results in input order and computes the exit code.
func (p *pipeline) finish(results []fileResult, stdinMode bool, failLevel cop.Severity, color bool) int {
	exitCode := ExitOK
	var files []report.File
	var diffs strings.Builder

	for _, fr := range results {
		if p.opts.Verbose {
			writeErr(p.opts.Stderr, "%s\n", fr.path)
		}
		if fr.err != nil {
			writeErr(p.opts.Stderr, "deflint: %v\n", fr.err)
			exitCode = ExitError
			continue
		}
		files = append(files, report.File{Buffer: fr.buf, Offences: fr.result.Offences})
		diffs.WriteString(fr.diff)
		if exitCode == ExitOK && failing(fr.result.Offences, failLevel) {
			exitCode = ExitOffences
		}
	}

	// With corrected stdin, stdout carries the source and the report moves
	// to stderr.
	reportOut := p.opts.Stdout
	if stdinMode && p.opts.Autocorrect && !p.opts.Diff {
		reportOut = p.opts.Stderr
		if len(files) == 1 {
			writeOut(p.opts.Stdout, string(results[0].result.Output))
		}
	}

	if p.opts.Diff {
		if diffs.Len() > 0 {
			writeOut(p.opts.Stdout, diffs.String())
			if exitCode == ExitOK {
				exitCode = ExitOffences
			}
		}
		return exitCode
	}

	var err error
	switch p.opts.Format {
	case report.FormatJSON:
		err = report.JSON(reportOut, files)
	default:
		if p.opts.Quiet && report.Summarize(files).Offences == 0 {
			return exitCode
		}
		err = report.Text(reportOut, files, report.TextOptions{Color: color, Summary: !p.opts.Quiet})
	}
	if err != nil {
		writeErr(p.opts.Stderr, "deflint: writing report: %v\n", err)
		return ExitError
	}
	return exitCode
}

// failing reports whether an uncorrected offence reaches the fail level.
func failing(offences []cop.Offence, level cop.Severity) bool {
	for _, o := range offences {
		if !o.Corrected && o.Severity >= level {
			return true
		}
	}
	return false
}

// useColor resolves the color mode against the output stream.
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorOn:
		return true
	case config.ColorOff:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int.
}

func writeFile(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, data, mode)
}

// writeOut writes to stdout.
func writeOut(w io.Writer, s string) {
	fmt.Fprint(w, s)
}

// writeErr formats and writes to stderr.
func writeErr(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}
