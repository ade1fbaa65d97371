package config

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"testing"
)

func TestWriteExit(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if code := writeExit(&buf, "parse config: %s", "bad port"); code != 1 {
		t.Fatalf("code = %d, want 1", code)
	}
	if got := buf.String(); got != "sites: parse config: bad port\n" {
		t.Fatalf("output = %q", got)
	}
}

// Exitf terminates the process, so it runs in a subprocess.
func TestExitf_ExitsWithCode1(t *testing.T) {
	if os.Getenv("SITES_TEST_EXITF_SUBPROCESS") == "1" {
		Exitf("fatal: %s", "something broke")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitf_ExitsWithCode1$")
	cmd.Env = append(os.Environ(), "SITES_TEST_EXITF_SUBPROCESS=1")

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("exit code = %d, want 1", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "sites: fatal: something broke") {
		t.Fatalf("stderr = %q", string(out))
	}
}
