package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testDatastandard has a two-level category chain and a category with a
// dangling attribute link.
const testDatastandard = `{
  "categories": [
    {"id": "root", "name": "Root", "attributeLinks": [{"id": "color", "optional": true}]},
    {"id": "leaf", "name": "Leaf", "parentId": "root", "attributeLinks": [{"id": "size"}]},
    {"id": "broken", "name": "Broken", "attributeLinks": [{"id": "missing"}]}
  ],
  "attributes": [
    {"id": "color", "name": "Color", "type": {"id": "string"}, "groupIds": []},
    {"id": "size", "name": "Size", "type": {"id": "int", "multiValue": true}, "groupIds": []}
  ],
  "attributeGroups": []
}`

// writeTestFile writes content to name inside a fresh temporary directory.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// emptyConfig returns the path of an empty configuration file so tests do
// not pick up a .dsreport of the developer.
func emptyConfig(t *testing.T) string {
	t.Helper()
	return writeTestFile(t, ".dsreport", "# empty\n")
}

// cmdResult is the captured outcome of a command execution.
type cmdResult struct {
	stdout string
	stderr string
	err    error
}

// execute runs the root command with args and the given stdin.
func execute(t *testing.T, stdin string, args ...string) cmdResult {
	t.Helper()
	return executeContext(t.Context(), t, stdin, args...)
}

// executeContext runs the root command under ctx.
func executeContext(ctx context.Context, t *testing.T, stdin string, args ...string) cmdResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	return cmdResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}
