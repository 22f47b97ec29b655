package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/KOFI-GYIMAH/gitsync/internal/git"
	"github.com/KOFI-GYIMAH/gitsync/internal/models"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

// * Collaborators of the attribution engine; the git package provides all three
type SnapshotProvider interface {
	WithSnapshot(ctx context.Context, url string, fn func(*git.Snapshot) error) error
}

type CommitTimeline interface {
	CommitsInWindow(ctx context.Context, dir string, w models.Window) []models.Commit
}

type DiffStatReader interface {
	FileChanges(ctx context.Context, dir, hash, repoURL string) []models.FileChange
}

type AttributionService struct {
	snapshots SnapshotProvider
	timeline  CommitTimeline
	diffs     DiffStatReader
	workers   int
}

func NewAttributionService(snapshots SnapshotProvider, timeline CommitTimeline, diffs DiffStatReader, workers int) *AttributionService {
	if workers < 1 {
		workers = 1
	}
	return &AttributionService{
		snapshots: snapshots,
		timeline:  timeline,
		diffs:     diffs,
		workers:   workers,
	}
}

// DeriveWindows assigns each post the interval between the previous post's
// timestamp (exclusive) and its own (inclusive). posts must be sorted ascending.
func DeriveWindows(posts []models.Post) []models.Window {
	windows := make([]models.Window, len(posts))
	for i, post := range posts {
		windows[i].End = post.CreatedAt
		if i > 0 {
			start := posts[i-1].CreatedAt
			windows[i].Start = &start
		}
	}
	return windows
}

// ProcessGroup clones the group's repository once and computes a summary for
// every post. A clone failure returns the error and no summaries; failures
// inside one window only degrade that post's summary.
func (s *AttributionService) ProcessGroup(ctx context.Context, group models.RepositoryGroup) ([]models.PostChanges, error) {
	var results []models.PostChanges

	err := s.snapshots.WithSnapshot(ctx, group.URL, func(snap *git.Snapshot) error {
		windows := DeriveWindows(group.Posts)
		results = make([]models.PostChanges, 0, len(group.Posts))

		for i, post := range group.Posts {
			logger.Info("  Processing post %d/%d: %s", i+1, len(group.Posts), post.PostID)

			summary := s.summarizeWindow(ctx, snap.Dir, group.URL, windows[i])
			results = append(results, models.PostChanges{Post: post, Summary: summary})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

func (s *AttributionService) summarizeWindow(ctx context.Context, dir, repoURL string, w models.Window) *models.ChangeSummary {
	commits := s.timeline.CommitsInWindow(ctx, dir, w)
	if len(commits) == 0 {
		logger.Info("    No commits found in timerange")
		return models.EmptySummary()
	}

	logger.Info("    Found %d commits", len(commits))
	started := time.Now()

	// * Diff stats are independent per commit; results keep history order
	entries := make([]models.CommitChanges, len(commits))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, commit := range commits {
		g.Go(func() error {
			files := s.diffs.FileChanges(ctx, dir, commit.Hash, repoURL)
			entries[i] = models.NewCommitChanges(commit, git.CommitLink(repoURL, commit.Hash), files)
			return nil
		})
	}
	g.Wait()

	logger.Debug("    Diff stats for %d commits took %s", len(commits), time.Since(started))
	return models.NewChangeSummary(entries)
}
