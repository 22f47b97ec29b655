package git

import (
	"context"
	"strings"
	"time"

	"github.com/KOFI-GYIMAH/gitsync/internal/models"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

const logFormat = "--pretty=format:%H|%an|%ae|%ai|%s"

// * git takes the same layout it prints for %ai
const gitDateLayout = models.DateLayout

type Timeline struct {
	runner  Runner
	timeout time.Duration
}

func NewTimeline(runner Runner, timeout time.Duration) *Timeline {
	return &Timeline{runner: runner, timeout: timeout}
}

// CommitsInWindow lists commits reachable from any ref whose commit date falls
// in w, most recent first. Failures are logged and yield an empty slice.
func (t *Timeline) CommitsInWindow(ctx context.Context, dir string, w models.Window) []models.Commit {
	args := append([]string{"log", "--all", logFormat}, windowArgs(w)...)

	out, err := t.runner.Run(ctx, dir, t.timeout, args...)
	if err != nil {
		logger.Warn("Could not list commits in %s: %v", dir, err)
		return nil
	}

	return parseLog(string(out))
}

// windowArgs maps (start, end] onto git's inclusive, second-resolution bounds.
func windowArgs(w models.Window) []string {
	var args []string
	if w.Start != nil {
		since := w.Start.UTC().Truncate(time.Second).Add(time.Second)
		args = append(args, "--since="+since.Format(gitDateLayout))
	}
	if !w.End.IsZero() {
		until := w.End.UTC().Truncate(time.Second)
		args = append(args, "--until="+until.Format(gitDateLayout))
	}
	return args
}

// * Lines that do not split into five fields are skipped
func parseLog(out string) []models.Commit {
	var commits []models.Commit
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "|", 5)
		if len(parts) != 5 {
			continue
		}

		date, err := time.Parse(gitDateLayout, parts[3])
		if err != nil {
			logger.Debug("Skipping history line with unparseable date %q", parts[3])
			continue
		}

		commits = append(commits, models.Commit{
			Hash:        parts[0],
			AuthorName:  parts[1],
			AuthorEmail: parts[2],
			AuthorDate:  date,
			Subject:     parts[4],
		})
	}
	return commits
}
