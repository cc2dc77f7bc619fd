// Package bundler wraps the Bundler CLI and Gemfile.lock for discovery, audit and update.
package bundler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// bundleBinary is the executable every command goes through.
const bundleBinary = "bundle"

// commandResult is the captured outcome of one subprocess.
type commandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// commandRunner executes bundle with args inside dir.
// A non-zero exit is reported in the result, not as an error.
type commandRunner func(ctx context.Context, dir string, args ...string) (commandResult, error)

// runBundle is the commandRunner used outside of tests.
func runBundle(ctx context.Context, dir string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, bundleBinary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := commandResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("failed to run %s %s: %w", bundleBinary, strings.Join(args, " "), err)
	}
	return res, nil
}

// describeFailure builds an error message from a failed command.
func describeFailure(args []string, res commandResult) error {
	msg := strings.TrimSpace(string(res.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(res.Stdout))
	}
	if msg == "" {
		msg = "no output"
	}
	return fmt.Errorf("%s %s exited with status %d: %s", bundleBinary, strings.Join(args, " "), res.ExitCode, msg)
}
