package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KOFI-GYIMAH/gitsync/internal/git/gittest"
	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
)

func TestClone_FailureRemovesTempDir(t *testing.T) {
	runner := new(MockRunner)
	var cloneRoot string
	runner.On("Run", mock.Anything, 5*time.Minute, mock.Anything).
		Run(func(args mock.Arguments) { cloneRoot = args.String(0) }).
		Return(nil, errors.New(errors.RefGitTimeout, "Git command timed out", "", nil, errors.LevelError))

	cloner := NewCloner(runner, 5*time.Minute)
	cloner.tempDir = t.TempDir()

	snap, err := cloner.Clone(context.Background(), "https://example.com/a/b.git")

	require.Error(t, err)
	assert.Nil(t, snap)
	assert.True(t, errors.HasReference(err, errors.RefGitClone))
	assert.True(t, errors.HasReference(err, errors.RefGitTimeout))
	require.NotEmpty(t, cloneRoot)
	_, statErr := os.Stat(cloneRoot)
	assert.True(t, os.IsNotExist(statErr), "temporary directory must be removed")
}

func TestClone_PassesBloblessFlags(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, time.Minute, mock.MatchedBy(func(cmd string) bool {
		return assert.Contains(t, cmd, "clone --filter=blob:none --no-checkout --quiet https://example.com/a/b ")
	})).Return([]byte{}, nil)

	cloner := NewCloner(runner, time.Minute)
	cloner.tempDir = t.TempDir()

	snap, err := cloner.Clone(context.Background(), "https://example.com/a/b")
	require.NoError(t, err)
	assert.Equal(t, "repo", filepath.Base(snap.Dir))
	require.NoError(t, snap.Close())
	require.NoError(t, snap.Close())
	runner.AssertExpectations(t)
}

func TestWithSnapshot_CleansUpAfterPanic(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, time.Minute, mock.Anything).Return([]byte{}, nil)

	cloner := NewCloner(runner, time.Minute)
	cloner.tempDir = t.TempDir()

	var root string
	assert.Panics(t, func() {
		_ = cloner.WithSnapshot(context.Background(), "https://example.com/a/b", func(s *Snapshot) error {
			root = s.root
			panic("boom")
		})
	})

	_, err := os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}

func TestWithSnapshot_RealClone(t *testing.T) {
	src := gittest.New(t)
	src.Commit(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), "first", map[string]string{"a.txt": "a\n"})

	cloner := NewCloner(NewExecRunner(), time.Minute)
	cloner.tempDir = t.TempDir()

	var root string
	err := cloner.WithSnapshot(context.Background(), src.Dir, func(s *Snapshot) error {
		root = s.root
		_, statErr := os.Stat(filepath.Join(s.Dir, ".git"))
		return statErr
	})

	require.NoError(t, err)
	_, statErr := os.Stat(root)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecRunner_ReportsCommandFailure(t *testing.T) {
	gittest.New(t)

	_, err := NewExecRunner().Run(context.Background(), t.TempDir(), time.Minute, "log")

	require.Error(t, err)
	assert.True(t, errors.HasReference(err, errors.RefGitCommand))
}
