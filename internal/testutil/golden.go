// Package testutil provides shared test helpers for golden file testing.
package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/donaldgifford/deflint/pkg/diff"
)

// Update is a flag that, when set, regenerates golden files from current output.
// Usage: go test ./... -update
var Update = flag.Bool("update", false, "update golden files")

// CorrectFunc autocorrects Ruby source.
type CorrectFunc func(t *testing.T, input string) string

// RunGolden runs a single golden file test in the given directory.
// It reads input.rb, applies correctFn, and compares against expected.rb.
// A mismatch is shown as a diff from expected to actual.
func RunGolden(t *testing.T, dir string, correctFn CorrectFunc) {
	t.Helper()

	inputPath := filepath.Join(dir, "input.rb")
	expectedPath := filepath.Join(dir, "expected.rb")

	inputBytes, err := os.ReadFile(inputPath)
	if err != nil {
		t.Fatalf("failed to read %s: %v", inputPath, err)
	}

	actual := correctFn(t, string(inputBytes))

	if *Update {
		if err := os.WriteFile(expectedPath, []byte(actual), 0o644); err != nil {
			t.Fatalf("failed to update golden file %s: %v", expectedPath, err)
		}
		t.Logf("updated golden file: %s", expectedPath)
		return
	}

	expectedBytes, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("failed to read %s: %v", expectedPath, err)
	}

	if expected := string(expectedBytes); actual != expected {
		t.Errorf("output mismatch for %s:\n%s", dir, diff.Unified("expected.rb", expected, actual))
	}
	if again := correctFn(t, actual); again != actual {
		t.Errorf("correction is not idempotent for %s:\n%s", dir, diff.Unified("expected.rb", actual, again))
	}
}

// RunGoldenDir walks all subdirectories under testdataDir and runs
// RunGolden for each as a subtest.
func RunGoldenDir(t *testing.T, testdataDir string, correctFn CorrectFunc) {
	t.Helper()

	entries, err := os.ReadDir(testdataDir)
	if err != nil {
		t.Fatalf("failed to read testdata dir %s: %v", testdataDir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		t.Run(entry.Name(), func(t *testing.T) {
			dir := filepath.Join(testdataDir, entry.Name())
			RunGolden(t, dir, correctFn)
		})
	}
}
