package voice

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// localePlaceholder in an argument is replaced with the session locale.
const localePlaceholder = "{locale}"

// CommandRecognizer runs an external program once per session and takes its
// stdout as the transcript.
type CommandRecognizer struct {
	Command string
	Args    []string
}

func (r CommandRecognizer) Recognize(ctx context.Context, locale string) (Result, error) {
	if r.Command == "" {
		return Result{}, ErrUnavailable
	}
	path, err := exec.LookPath(r.Command)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	args := make([]string, len(r.Args))
	for i, arg := range r.Args {
		args[i] = strings.ReplaceAll(arg, localePlaceholder, locale)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, fmt.Errorf("run %s: %w: %s", r.Command, err, strings.TrimSpace(stderr.String()))
	}
	return Result{Transcript: strings.TrimSpace(stdout.String())}, nil
}
