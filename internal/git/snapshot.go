package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

// Snapshot is a blobless clone living in a private temporary directory.
type Snapshot struct {
	URL  string
	Dir  string
	root string
}

// Close removes the snapshot's temporary directory. It is safe to call twice.
func (s *Snapshot) Close() error {
	if s == nil || s.root == "" {
		return nil
	}
	root := s.root
	s.root = ""
	return os.RemoveAll(root)
}

type Cloner struct {
	runner  Runner
	timeout time.Duration
	tempDir string
}

func NewCloner(runner Runner, timeout time.Duration) *Cloner {
	return &Cloner{runner: runner, timeout: timeout}
}

// Clone fetches the full commit graph of every branch but defers blob content.
// On any failure the temporary directory is already gone when it returns.
func (c *Cloner) Clone(ctx context.Context, url string) (*Snapshot, error) {
	root, err := os.MkdirTemp(c.tempDir, "gitsync-")
	if err != nil {
		return nil, errors.New(
			errors.RefGitClone,
			"Failed to allocate clone directory",
			"Could not create a temporary directory for the clone",
			err,
			errors.LevelError,
		)
	}

	snap := &Snapshot{URL: url, Dir: filepath.Join(root, "repo"), root: root}

	logger.Info("Cloning %s (blobless)...", url)
	_, err = c.runner.Run(ctx, root, c.timeout, "clone", "--filter=blob:none", "--no-checkout", "--quiet", url, snap.Dir)
	if err != nil {
		if rmErr := snap.Close(); rmErr != nil {
			logger.Warn("Failed to remove clone directory %s: %v", root, rmErr)
		}
		return nil, errors.New(
			errors.RefGitClone,
			"Failed to clone repository",
			fmt.Sprintf("Could not clone %s", url),
			err,
			errors.LevelError,
		)
	}

	return snap, nil
}

// WithSnapshot clones url, hands the snapshot to fn and removes it on every
// exit path, panics included.
func (c *Cloner) WithSnapshot(ctx context.Context, url string, fn func(*Snapshot) error) error {
	snap, err := c.Clone(ctx, url)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := snap.Close(); rmErr != nil {
			logger.Warn("Failed to remove clone directory for %s: %v", url, rmErr)
		}
	}()

	return fn(snap)
}
