package git

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/KOFI-GYIMAH/gitsync/internal/models"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

type DiffStats struct {
	runner  Runner
	timeout time.Duration
}

func NewDiffStats(runner Runner, timeout time.Duration) *DiffStats {
	return &DiffStats{runner: runner, timeout: timeout}
}

// FileChanges returns the per-file numstat of one commit. A failure is logged
// and yields an empty slice so the enclosing window keeps going.
func (d *DiffStats) FileChanges(ctx context.Context, dir, hash, repoURL string) []models.FileChange {
	out, err := d.runner.Run(ctx, dir, d.timeout, "show", "--numstat", "--pretty=format:", hash)
	if err != nil {
		logger.Warn("Could not read diff stats for %s: %v", hash, err)
		return []models.FileChange{}
	}

	return parseNumstat(string(out), hash, repoURL)
}

func parseNumstat(out, hash, repoURL string) []models.FileChange {
	files := []models.FileChange{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 3 {
			continue
		}

		change := models.FileChange{
			Path: parts[2],
			Link: FileLink(repoURL, hash, parts[2]),
		}

		additions, addErr := strconv.Atoi(parts[0])
		deletions, delErr := strconv.Atoi(parts[1])
		if addErr != nil || delErr != nil {
			// * numstat prints "-" for binary files
			change.IsBinary = true
		} else {
			change.Additions = additions
			change.Deletions = deletions
		}

		files = append(files, change)
	}
	return files
}

// CommitLink points at the commit view of the hosting platform.
func CommitLink(repoURL, hash string) string {
	return fmt.Sprintf("%s/commit/%s", canonicalURL(repoURL), hash)
}

// FileLink adds a per-file fragment to the commit link. The fragment is a
// 32-bit FNV-1a of the path; collisions only affect navigation.
func FileLink(repoURL, hash, path string) string {
	h := fnv.New32a()
	h.Write([]byte(path))
	return fmt.Sprintf("%s#diff-%08x", CommitLink(repoURL, hash), h.Sum32())
}

func canonicalURL(repoURL string) string {
	return strings.TrimSuffix(strings.TrimSuffix(repoURL, "/"), ".git")
}
