package runner_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// binaryPath builds the deflint binary and returns its path.
func binaryPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	bin := filepath.Join(dir, "deflint")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}

	cmd := exec.CommandContext(t.Context(), "go", "build", "-o", bin, "../../cmd/deflint")
	cmd.Dir = filepath.Join(projectRoot(t), "internal", "runner")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build binary: %v\n%s", err, out)
	}
	return bin
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..")
}

// command runs the binary from an empty directory so no config file is
// discovered.
func command(t *testing.T, bin string, args ...string) *exec.Cmd {
	t.Helper()
	cmd := exec.CommandContext(t.Context(), bin, args...)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	return cmd
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("unexpected error: %v", err)
	}
	return exitErr.ExitCode()
}

func TestIntegrationStdinLint(t *testing.T) {
	bin := binaryPath(t)

	cmd := command(t, bin)
	cmd.Stdin = strings.NewReader("def foo()\nend\n")
	out, err := cmd.Output()
	if code := exitCode(t, err); code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(string(out), "<stdin>:1:8: C: [Correctable] Style/DefWithParentheses:") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestIntegrationStdinAutocorrect(t *testing.T) {
	bin := binaryPath(t)

	cmd := command(t, bin, "-a")
	cmd.Stdin = strings.NewReader("def foo a\n  a\nend\n")
	out, err := cmd.Output()
	if code := exitCode(t, err); code != 0 {
		t.Errorf("expected exit 0, got %d", code)
	}
	if string(out) != "def foo(a)\n  a\nend\n" {
		t.Errorf("stdin autocorrect: got %q", string(out))
	}
}

func TestIntegrationClean(t *testing.T) {
	bin := binaryPath(t)

	cmd := command(t, bin, "-q")
	cmd.Stdin = strings.NewReader("def foo(a)\n  a\nend\n")
	out, err := cmd.Output()
	if code := exitCode(t, err); code != 0 {
		t.Errorf("expected exit 0, got %d", code)
	}
	if len(out) != 0 {
		t.Errorf("expected no output, got %q", out)
	}
}

func TestIntegrationDiff(t *testing.T) {
	bin := binaryPath(t)

	cmd := command(t, bin, "--diff")
	cmd.Stdin = strings.NewReader("def foo()\nend\n")
	out, err := cmd.CombinedOutput()
	if code := exitCode(t, err); code != 1 {
		t.Errorf("diff with changes: expected exit 1, got %d", code)
	}

	output := string(out)
	if !strings.Contains(output, "-def foo()") {
		t.Errorf("diff missing old line: %s", output)
	}
	if !strings.Contains(output, "+def foo") {
		t.Errorf("diff missing new line: %s", output)
	}
}

func TestIntegrationAutocorrectFile(t *testing.T) {
	bin := binaryPath(t)
	path := filepath.Join(t.TempDir(), "test.rb")

	if err := os.WriteFile(path, []byte("def foo()\nend\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := command(t, bin, "--autocorrect", path).CombinedOutput()
	if err != nil {
		t.Fatalf("autocorrect: %v\n%s", err, out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "def foo\nend\n" {
		t.Errorf("file after autocorrect: got %q", string(data))
	}
}

func TestIntegrationVersion(t *testing.T) {
	bin := binaryPath(t)

	out, err := command(t, bin, "--version").Output()
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(string(out), "deflint ") {
		t.Errorf("version: got %q", string(out))
	}
}

func TestIntegrationMissingFile(t *testing.T) {
	bin := binaryPath(t)

	err := command(t, bin, "/nonexistent/file.rb").Run()
	if code := exitCode(t, err); code != 2 {
		t.Errorf("missing file: expected exit 2, got %d", code)
	}
}

func TestIntegrationBadFlag(t *testing.T) {
	bin := binaryPath(t)

	err := command(t, bin, "--format", "xml").Run()
	if code := exitCode(t, err); code != 2 {
		t.Errorf("bad format: expected exit 2, got %d", code)
	}
}

func TestIntegrationExplicitConfig(t *testing.T) {
	bin := binaryPath(t)
	dir := t.TempDir()

	configPath := filepath.Join(dir, "custom.yml")
	cfg := "rules:\n  Style/DefWithParentheses:\n    enabled: false\n"
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := command(t, bin, "--config", configPath)
	cmd.Stdin = strings.NewReader("def foo()\nend\n")
	if code := exitCode(t, cmd.Run()); code != 0 {
		t.Errorf("disabled rule: expected exit 0, got %d", code)
	}
}

func TestIntegrationMultipleFiles(t *testing.T) {
	bin := binaryPath(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.rb")
	bad := filepath.Join(dir, "bad.rb")
	if err := os.WriteFile(good, []byte("def foo(a)\nend\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("def foo a\nend\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if code := exitCode(t, command(t, bin, "--jobs", "2", good, bad).Run()); code != 1 {
		t.Errorf("mixed files: expected exit 1, got %d", code)
	}
}
