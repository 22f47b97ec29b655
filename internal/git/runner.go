package git

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
)

// Runner executes git with a hard wall-clock bound.
type Runner interface {
	Run(ctx context.Context, dir string, timeout time.Duration, args ...string) ([]byte, error)
}

// ExecRunner shells out to the git binary on PATH.
type ExecRunner struct {
	Binary string
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{Binary: "git"}
}

func (r *ExecRunner) Run(ctx context.Context, dir string, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	// * Children (e.g. remote helpers) must not outlive the deadline
	cmd.WaitDelay = 5 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	command := "git " + strings.Join(args, " ")
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, errors.New(
			errors.RefGitTimeout,
			"Git command timed out",
			fmt.Sprintf("%s did not finish within %s", command, timeout),
			ctx.Err(),
			errors.LevelError,
		)
	}

	return nil, errors.New(
		errors.RefGitCommand,
		"Git command failed",
		fmt.Sprintf("%s: %s", command, strings.TrimSpace(stderr.String())),
		err,
		errors.LevelError,
	)
}
