package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/KOFI-GYIMAH/gitsync/internal/models"
	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FetchPendingPosts(ctx context.Context) ([]models.Post, error) {
	args := m.Called(ctx)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *MockStore) UpdateGitChanges(ctx context.Context, recordID, changes string) error {
	args := m.Called(ctx, recordID, changes)
	return args.Error(0)
}

type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) ProcessGroup(ctx context.Context, group models.RepositoryGroup) ([]models.PostChanges, error) {
	args := m.Called(ctx, group.URL)
	changes, _ := args.Get(0).([]models.PostChanges)
	return changes, args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishSummaryUpdated(ctx context.Context, event models.SummaryEvent) error {
	args := m.Called(ctx, event.RecordID)
	return args.Error(0)
}

type countingReaper struct {
	mu    sync.Mutex
	calls int
}

func (r *countingReaper) Reap(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return 0
}

const (
	repoA = "https://github.com/acme/a"
	repoB = "https://github.com/acme/b"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func post(id, url string, hour int) models.Post {
	return models.Post{
		RecordID:      "rec" + id,
		PostID:        id,
		RepositoryURL: url,
		Username:      "dev",
		CreatedAt:     base.Add(time.Duration(hour) * time.Hour),
	}
}

func changesFor(posts ...models.Post) []models.PostChanges {
	out := make([]models.PostChanges, 0, len(posts))
	for _, p := range posts {
		out = append(out, models.PostChanges{Post: p, Summary: models.EmptySummary()})
	}
	return out
}

func newTestWorker(store *MockStore, processor *MockProcessor) *SyncWorker {
	return NewSyncWorker(store, processor, &countingReaper{}, Options{
		Interval:     20 * time.Millisecond,
		ErrorBackoff: 10 * time.Millisecond,
		Poll:         5 * time.Millisecond,
	})
}

func TestRunPass_NoPosts(t *testing.T) {
	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return([]models.Post{}, nil)

	w := newTestWorker(store, new(MockProcessor))
	result, err := w.RunPass(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "No posts to process", result.Message)
	assert.NotEmpty(t, result.RunID)

	status := w.Status()
	assert.Equal(t, "idle", status.State)
	assert.Equal(t, int64(1), status.RunCount)
	assert.NotNil(t, status.LastRunTime)
	assert.Same(t, result, status.LastResult)
}

func TestRunPass_GroupIsolation(t *testing.T) {
	a1, b1, b2 := post("a1", repoA, 1), post("b1", repoB, 2), post("b2", repoB, 3)

	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return([]models.Post{a1, b1, b2}, nil)
	store.On("UpdateGitChanges", mock.Anything, "recb1", mock.AnythingOfType("string")).Return(nil)
	store.On("UpdateGitChanges", mock.Anything, "recb2", mock.AnythingOfType("string")).Return(nil)

	processor := new(MockProcessor)
	processor.On("ProcessGroup", mock.Anything, repoA).Return(nil, fmt.Errorf("clone failed"))
	processor.On("ProcessGroup", mock.Anything, repoB).Return(changesFor(b1, b2), nil)

	w := newTestWorker(store, processor)
	result, err := w.RunPass(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.TotalPosts)
	assert.Equal(t, 1, result.ReposFailed)
	assert.Equal(t, 1, result.ReposProcessed)
	assert.Equal(t, 2, result.PostsUpdated)
	require.Len(t, result.Repositories, 2)
	assert.Equal(t, repoA, result.Repositories[0].URL)
	assert.Contains(t, result.Repositories[0].Error, "clone failed")

	store.AssertNotCalled(t, "UpdateGitChanges", mock.Anything, "reca1", mock.Anything)
	store.AssertExpectations(t)
	processor.AssertExpectations(t)
}

func TestRunPass_WritesEncodedSummary(t *testing.T) {
	p := post("p1", repoA, 1)

	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return([]models.Post{p}, nil)
	store.On("UpdateGitChanges", mock.Anything, "recp1", mock.MatchedBy(func(s string) bool {
		var decoded models.ChangeSummary
		return decoded.UnmarshalJSON([]byte(s)) == nil && decoded.Empty()
	})).Return(nil)

	processor := new(MockProcessor)
	processor.On("ProcessGroup", mock.Anything, repoA).Return(changesFor(p), nil)

	publisher := new(MockPublisher)
	publisher.On("PublishSummaryUpdated", mock.Anything, "recp1").Return(nil)

	w := newTestWorker(store, processor).WithPublisher(publisher)
	_, err := w.RunPass(context.Background())

	require.NoError(t, err)
	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRunPass_SkipsPostsWithoutSummary(t *testing.T) {
	p1, p2 := post("p1", repoA, 1), post("p2", repoA, 2)

	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return([]models.Post{p1, p2}, nil)
	store.On("UpdateGitChanges", mock.Anything, "recp2", mock.Anything).Return(nil)

	processor := new(MockProcessor)
	processor.On("ProcessGroup", mock.Anything, repoA).Return([]models.PostChanges{
		{Post: p1},
		{Post: p2, Summary: models.EmptySummary()},
	}, nil)

	w := newTestWorker(store, processor)
	result, err := w.RunPass(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.PostsUpdated)
	store.AssertNotCalled(t, "UpdateGitChanges", mock.Anything, "recp1", mock.Anything)
}

func TestRunPass_UpdateFailureDoesNotFailGroup(t *testing.T) {
	p1, p2 := post("p1", repoA, 1), post("p2", repoA, 2)

	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return([]models.Post{p1, p2}, nil)
	store.On("UpdateGitChanges", mock.Anything, "recp1", mock.Anything).Return(fmt.Errorf("422"))
	store.On("UpdateGitChanges", mock.Anything, "recp2", mock.Anything).Return(nil)

	processor := new(MockProcessor)
	processor.On("ProcessGroup", mock.Anything, repoA).Return(changesFor(p1, p2), nil)

	w := newTestWorker(store, processor)
	result, err := w.RunPass(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.ReposFailed)
	assert.Equal(t, 1, result.PostsUpdated)
	assert.Contains(t, result.Repositories[0].Error, "recp1")
}

func TestRunPass_FetchFailureEntersBackoff(t *testing.T) {
	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return(nil, fmt.Errorf("airtable down"))

	w := newTestWorker(store, new(MockProcessor))
	_, err := w.RunPass(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasReference(err, errors.RefSyncPassFailed))

	status := w.Status()
	assert.Equal(t, "backoff_after_error", status.State)
	assert.False(t, status.Running)
	assert.Contains(t, status.LastError, "airtable down")
	require.NotNil(t, status.LastResult)
	assert.False(t, status.LastResult.Success)
}

func TestRunPass_RecoversPanic(t *testing.T) {
	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(nil, nil)

	w := newTestWorker(store, new(MockProcessor))
	result, err := w.RunPass(context.Background())

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.HasReference(err, errors.RefSyncPassFailed))
	assert.Contains(t, w.Status().LastError, "boom")
	assert.False(t, w.Status().Running)
}

func TestTrigger_RejectedWhileRunning(t *testing.T) {
	p := post("p1", repoA, 1)
	release := make(chan struct{})
	entered := make(chan struct{})

	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return([]models.Post{p}, nil)
	store.On("UpdateGitChanges", mock.Anything, "recp1", mock.Anything).Return(nil)

	processor := new(MockProcessor)
	processor.On("ProcessGroup", mock.Anything, repoA).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return(changesFor(p), nil).Once()

	w := newTestWorker(store, processor)

	done := make(chan error, 1)
	go func() {
		_, err := w.RunPass(context.Background())
		done <- err
	}()
	<-entered

	status := w.Status()
	assert.True(t, status.Running)
	assert.Equal(t, "running", status.State)

	result, err := w.Trigger(context.Background())
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.HasReference(err, errors.RefSyncRunning))
	assert.Equal(t, int64(1), w.Status().RunCount)

	close(release)
	require.NoError(t, <-done)

	processor.AssertNumberOfCalls(t, "ProcessGroup", 1)
	assert.Equal(t, int64(1), w.Status().RunCount)
	assert.False(t, w.Status().Running)
}

func TestTrigger_RejectedDuringBackoff(t *testing.T) {
	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return(nil, fmt.Errorf("airtable down"))

	w := newTestWorker(store, new(MockProcessor))
	_, err := w.RunPass(context.Background())
	require.Error(t, err)
	require.Equal(t, StateBackoffAfterError, w.State())

	result, err := w.Trigger(context.Background())

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.HasReference(err, errors.RefSyncBackoff))
	assert.Equal(t, StateBackoffAfterError, w.State())
	assert.Equal(t, int64(1), w.Status().RunCount)
	assert.False(t, w.Status().Running)
	store.AssertNumberOfCalls(t, "FetchPendingPosts", 1)
}

func TestRun_TriggerCannotSkipBackoff(t *testing.T) {
	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return(nil, fmt.Errorf("airtable down"))

	w := NewSyncWorker(store, new(MockProcessor), &countingReaper{}, Options{
		Interval:     time.Hour,
		ErrorBackoff: time.Hour,
		Poll:         5 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return w.State() == StateBackoffAfterError && !w.Status().Running
	}, 2*time.Second, 5*time.Millisecond)

	_, err := w.Trigger(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasReference(err, errors.RefSyncBackoff))
	assert.Equal(t, "backoff_after_error", w.Status().State)
	assert.Equal(t, int64(1), w.Status().RunCount)
	store.AssertNumberOfCalls(t, "FetchPendingPosts", 1)
}

func TestTrigger_FailureLeavesIdle(t *testing.T) {
	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return(nil, fmt.Errorf("timeout"))

	w := newTestWorker(store, new(MockProcessor))
	_, err := w.Trigger(context.Background())

	require.Error(t, err)
	assert.Equal(t, StateIdle, w.State())
	assert.Contains(t, w.Status().LastError, "timeout")
}

func TestRun_RepeatsUntilCancelled(t *testing.T) {
	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return([]models.Post{}, nil)

	w := newTestWorker(store, new(MockProcessor))
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	assert.Eventually(t, func() bool {
		return w.Status().RunCount >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRun_BackoffReturnsToIdle(t *testing.T) {
	store := new(MockStore)
	store.On("FetchPendingPosts", mock.Anything).Return(nil, fmt.Errorf("down")).Once()
	store.On("FetchPendingPosts", mock.Anything).Return([]models.Post{}, nil)

	w := newTestWorker(store, new(MockProcessor))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	assert.Eventually(t, func() bool {
		s := w.Status()
		return s.RunCount >= 2 && s.LastError == "" && s.State == "idle"
	}, 2*time.Second, 5*time.Millisecond)
}
