// Package gittest builds throwaway repositories with controlled commit dates.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type Repo struct {
	t   testing.TB
	Dir string
}

// New initialises an empty repository, skipping the test when git is missing.
func New(t testing.TB) *Repo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	r := &Repo{t: t, Dir: t.TempDir()}
	r.git(time.Now(), "init", "--quiet", "--initial-branch=main")
	r.git(time.Now(), "config", "user.name", "Test Author")
	r.git(time.Now(), "config", "user.email", "author@example.com")
	r.git(time.Now(), "config", "commit.gpgsign", "false")
	return r
}

// Commit writes files and records a commit dated at when. It returns the full hash.
func (r *Repo) Commit(when time.Time, subject string, files map[string]string) string {
	r.t.Helper()
	for name, content := range files {
		path := filepath.Join(r.Dir, name)
		require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
	}
	r.git(when, "add", "--all")
	r.git(when, "commit", "--quiet", "--allow-empty", "-m", subject)
	return r.git(when, "rev-parse", "HEAD")
}

func (r *Repo) git(when time.Time, args ...string) string {
	r.t.Helper()
	date := when.Format(time.RFC3339)

	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE="+date,
		"GIT_COMMITTER_DATE="+date,
		"GIT_CONFIG_NOSYSTEM=1",
		"HOME="+r.Dir,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(r.t, err, "git %v: %s", args, out)

	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return string(out)
}
