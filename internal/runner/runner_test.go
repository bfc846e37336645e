package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/donaldgifford/deflint/internal/report"
)

const (
	emptyParens = "def foo()\n  1\nend\n"
	noParens    = "def foo\n  1\nend\n"
	bareArgs    = "def bar a, b\n  a\nend\n"
	wrappedArgs = "def bar(a, b)\n  a\nend\n"
)

func writeRuby(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// run executes Run with captured output and no config file.
func run(t *testing.T, opts *Options) (code int, stdout, stderr string) {
	t.Helper()
	if opts.ConfigPath == "" {
		opts.ConfigPath = writeRuby(t, t.TempDir(), "deflint.yml", "")
	}
	var out, errOut bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = &errOut
	code = Run(context.Background(), opts)
	return code, out.String(), errOut.String()
}

func TestRunReportsOffences(t *testing.T) {
	path := writeRuby(t, t.TempDir(), "foo.rb", emptyParens)

	code, stdout, _ := run(t, &Options{Files: []string{path}, Color: "off"})

	if code != ExitOffences {
		t.Errorf("exit code: got %d, want %d", code, ExitOffences)
	}
	if !strings.Contains(stdout, "foo.rb:1:8: C: [Correctable] Style/DefWithParentheses:") {
		t.Errorf("missing offence line:\n%s", stdout)
	}
	if !strings.Contains(stdout, "1 file inspected, 1 offence detected") {
		t.Errorf("missing summary:\n%s", stdout)
	}
	if got := readFile(t, path); got != emptyParens {
		t.Errorf("lint mode must not modify the file, got %q", got)
	}
}

func TestRunClean(t *testing.T) {
	path := writeRuby(t, t.TempDir(), "clean.rb", noParens+wrappedArgs)

	code, stdout, _ := run(t, &Options{Files: []string{path}, Color: "off", Quiet: true})

	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
	if stdout != "" {
		t.Errorf("quiet clean run should print nothing, got %q", stdout)
	}
}

func TestRunAutocorrect(t *testing.T) {
	dir := t.TempDir()
	path := writeRuby(t, dir, "foo.rb", emptyParens+"\n"+bareArgs)
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}

	code, stdout, _ := run(t, &Options{Files: []string{path}, Autocorrect: true, Color: "off"})

	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
	if got, want := readFile(t, path), noParens+"\n"+wrappedArgs; got != want {
		t.Errorf("file content:\n got %q\nwant %q", got, want)
	}
	if strings.Count(stdout, "[Corrected]") != 2 {
		t.Errorf("expected two corrected offences:\n%s", stdout)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("file mode: got %v, want 0600", info.Mode().Perm())
	}
}

func TestRunDiff(t *testing.T) {
	path := writeRuby(t, t.TempDir(), "foo.rb", bareArgs)

	code, stdout, _ := run(t, &Options{Files: []string{path}, Diff: true})

	if code != ExitOffences {
		t.Errorf("exit code: got %d, want %d", code, ExitOffences)
	}
	// Should contain both old and new versions.
	if !strings.Contains(stdout, "-def bar a, b\n") || !strings.Contains(stdout, "+def bar(a, b)\n") {
		t.Errorf("unexpected diff:\n%s", stdout)
	}
	if got := readFile(t, path); got != bareArgs {
		t.Errorf("diff mode must not modify the file, got %q", got)
	}
}

func TestRunDiffNoChanges(t *testing.T) {
	path := writeRuby(t, t.TempDir(), "foo.rb", noParens)

	code, stdout, _ := run(t, &Options{Files: []string{path}, Diff: true})

	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
	if stdout != "" {
		t.Errorf("expected no diff output, got: %s", stdout)
	}
}

func TestRunStdin(t *testing.T) {
	t.Run("lint", func(t *testing.T) {
		code, stdout, _ := run(t, &Options{Stdin: strings.NewReader(bareArgs), Color: "off"})
		if code != ExitOffences {
			t.Errorf("exit code: got %d, want %d", code, ExitOffences)
		}
		if !strings.Contains(stdout, "<stdin>:1:9: C: [Correctable] Style/DefWithoutParentheses:") {
			t.Errorf("missing offence:\n%s", stdout)
		}
	})

	t.Run("autocorrect", func(t *testing.T) {
		code, stdout, stderr := run(t, &Options{Stdin: strings.NewReader(bareArgs), Autocorrect: true, Color: "off"})
		if code != ExitOK {
			t.Errorf("exit code: got %d, want %d", code, ExitOK)
		}
		if stdout != wrappedArgs {
			t.Errorf("stdout should carry the corrected source, got %q", stdout)
		}
		if !strings.Contains(stderr, "[Corrected] Style/DefWithoutParentheses") {
			t.Errorf("report should move to stderr:\n%s", stderr)
		}
	})
}

func TestRunJSON(t *testing.T) {
	path := writeRuby(t, t.TempDir(), "foo.rb", emptyParens)

	code, stdout, _ := run(t, &Options{Files: []string{path}, Format: report.FormatJSON})

	if code != ExitOffences {
		t.Errorf("exit code: got %d, want %d", code, ExitOffences)
	}
	var out report.Output
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(out.Files) != 1 || len(out.Files[0].Offences) != 1 {
		t.Fatalf("unexpected document: %+v", out)
	}
	if edits := out.Files[0].Offences[0].Edits; len(edits) != 2 {
		t.Errorf("expected the proposed correction in the output, got %+v", edits)
	}
}

func TestRunFailLevel(t *testing.T) {
	path := writeRuby(t, t.TempDir(), "foo.rb", emptyParens)

	code, _, _ := run(t, &Options{Files: []string{path}, FailLevel: "error"})
	if code != ExitOK {
		t.Errorf("convention offences below fail level: got %d, want %d", code, ExitOK)
	}

	cfg := writeRuby(t, t.TempDir(), "deflint.yml", "rules:\n  Style/DefWithParentheses:\n    severity: error\n")
	code, _, _ = run(t, &Options{Files: []string{path}, FailLevel: "error", ConfigPath: cfg})
	if code != ExitOffences {
		t.Errorf("error offence at fail level: got %d, want %d", code, ExitOffences)
	}
}

func TestRunConfigDisablesRule(t *testing.T) {
	dir := t.TempDir()
	path := writeRuby(t, dir, "foo.rb", emptyParens)
	cfg := writeRuby(t, dir, "deflint.toml", "[rules.\"Style/DefWithParentheses\"]\nenabled = false\n")

	code, _, _ := run(t, &Options{Files: []string{path}, ConfigPath: cfg})
	if code != ExitOK {
		t.Errorf("exit code: got %d, want %d", code, ExitOK)
	}
}

func TestRunDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRuby(t, dir, "lib/a.rb", emptyParens)
	writeRuby(t, dir, "lib/tasks/b.rake", bareArgs)
	writeRuby(t, dir, "README.md", bareArgs)
	writeRuby(t, dir, ".bundle/c.rb", bareArgs)

	code, _, stderr := run(t, &Options{Files: []string{dir}, Verbose: true, Quiet: true})

	if code != ExitOffences {
		t.Errorf("exit code: got %d, want %d", code, ExitOffences)
	}
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	want := []string{filepath.Join(dir, "lib", "a.rb"), filepath.Join(dir, "lib", "tasks", "b.rake")}
	if len(lines) != len(want) || lines[0] != want[0] || lines[1] != want[1] {
		t.Errorf("inspected files:\n got %q\nwant %q", lines, want)
	}
}

func TestRunPreservesInputOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := range 12 {
		paths = append(paths, writeRuby(t, dir, fmt.Sprintf("f%02d.rb", i), emptyParens))
	}

	_, stdout, _ := run(t, &Options{Files: paths, Jobs: 4, Color: "off"})

	last := -1
	for _, p := range paths {
		idx := strings.Index(stdout, p+":")
		if idx < 0 || idx < last {
			t.Fatalf("%s reported out of order:\n%s", p, stdout)
		}
		last = idx
	}
}

func TestRunErrors(t *testing.T) {
	path := writeRuby(t, t.TempDir(), "foo.rb", noParens)

	tests := []struct {
		name string
		opts *Options
	}{
		{"missing file", &Options{Files: []string{"/nonexistent/path/test.rb"}}},
		{"bad color", &Options{Files: []string{path}, Color: "sometimes"}},
		{"bad fail level", &Options{Files: []string{path}, FailLevel: "fatal"}},
		{"missing config", &Options{Files: []string{path}, ConfigPath: "/nonexistent/deflint.yml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := run(t, tt.opts)
			if code != ExitError {
				t.Errorf("exit code: got %d, want %d", code, ExitError)
			}
			if !strings.HasPrefix(stderr, "deflint: ") {
				t.Errorf("expected an error on stderr, got %q", stderr)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	path := writeRuby(t, t.TempDir(), "foo.rb", emptyParens)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	code := Run(ctx, &Options{
		Files:      []string{path},
		ConfigPath: writeRuby(t, t.TempDir(), "deflint.yml", ""),
		Stdout:     &stdout,
		Stderr:     &stderr,
	})

	if code != ExitError {
		t.Errorf("exit code: got %d, want %d", code, ExitError)
	}
	if !strings.Contains(stderr.String(), "context canceled") {
		t.Errorf("expected cancellation error, got %q", stderr.String())
	}
}
