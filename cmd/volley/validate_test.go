package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpalmerr/volley/config"
)

// executeValidateCmd runs the validate command with the given script path
// and extra args, returning captured stdout and any error.
func executeValidateCmd(t *testing.T, scriptPath string, extra ...string) (string, error) {
	t.Helper()
	stdout, _, err := executeCmd(t, append([]string{"validate", "-f", scriptPath}, extra...)...)
	return stdout, err
}

func writeTestScript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write script file: %v", err)
	}
	return path
}

func TestRunValidate_ValidScript(t *testing.T) {
	scriptPath := writeTestScript(t, "requests.txt", `# ITERATIONS|METHOD|ENDPOINT|HEADERS|SLEEP_MS
3|GET|https://example.com/a|Accept:application/json|100
2|POST|https://example.com/b||
|GET|https://example.com/c||
`)

	output, err := executeValidateCmd(t, scriptPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Script is valid!",
		"Entries:  3",
		"Requests: 6",
		"Methods:  GET=4, POST=2",
	}
	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_DefaultsApply(t *testing.T) {
	scriptPath := writeTestScript(t, "requests.yaml", `
- method: delete
- iterations: 2
  endpoint: https://example.com/other
`)

	output, err := executeValidateCmd(t, scriptPath, "-e", "https://example.com/default", "-n", "5")
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if !strings.Contains(output, "Requests: 7") {
		t.Errorf("output should count 5 + 2 requests\nGot: %s", output)
	}
	if !strings.Contains(output, "Methods:  DELETE=5, GET=2") {
		t.Errorf("output should list methods\nGot: %s", output)
	}
}

func TestRunValidate_InvalidScript(t *testing.T) {
	scriptPath := writeTestScript(t, "invalid.txt", "1|GET|https://example.com||\nGET|https://example.com\n")

	_, err := executeValidateCmd(t, scriptPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid script, got nil")
	}
	if !errors.Is(err, config.ErrInvalidScript) {
		t.Errorf("error should wrap ErrInvalidScript, got: %v", err)
	}
	if !strings.Contains(err.Error(), ":2:") {
		t.Errorf("error should name line 2, got: %v", err)
	}
}

func TestRunValidate_InvalidHeader(t *testing.T) {
	scriptPath := writeTestScript(t, "headers.txt", "1|GET|https://example.com|Accept:text/plain|\n1|GET|https://example.com|broken|\n")

	_, err := executeValidateCmd(t, scriptPath)
	if !errors.Is(err, config.ErrInvalidHeader) {
		t.Fatalf("validate error = %v, want ErrInvalidHeader", err)
	}
	if !strings.Contains(err.Error(), ":2:") {
		t.Errorf("error should name line 2, got: %v", err)
	}
}

func TestRunValidate_MissingEndpoint(t *testing.T) {
	scriptPath := writeTestScript(t, "requests.json", `[{"iterations": 2}]`)

	_, err := executeValidateCmd(t, scriptPath)
	if err == nil {
		t.Fatal("validate command expected error for entry without endpoint, got nil")
	}
	if !strings.Contains(err.Error(), "entry 1") {
		t.Errorf("error should name entry 1, got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, err := executeValidateCmd(t, "/nonexistent/path/requests.txt")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

func TestRunValidate_RequiresScript(t *testing.T) {
	_, _, err := executeCmd(t, "validate")
	if err == nil {
		t.Fatal("validate command expected error without -f, got nil")
	}
	if !strings.Contains(err.Error(), `"script" not set`) {
		t.Errorf("error should mention the required flag, got: %v", err)
	}
}
