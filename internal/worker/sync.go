package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/KOFI-GYIMAH/gitsync/internal/metrics"
	"github.com/KOFI-GYIMAH/gitsync/internal/models"
	"github.com/KOFI-GYIMAH/gitsync/internal/service"
	"github.com/KOFI-GYIMAH/gitsync/pkg/errors"
	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

type GroupProcessor interface {
	ProcessGroup(ctx context.Context, group models.RepositoryGroup) ([]models.PostChanges, error)
}

type StaleReaper interface {
	Reap(ctx context.Context) int
}

type SummaryPublisher interface {
	PublishSummaryUpdated(ctx context.Context, event models.SummaryEvent) error
}

type Options struct {
	// Interval is the quiescent period after a successful pass.
	Interval time.Duration
	// ErrorBackoff is the wait after a failed pass.
	ErrorBackoff time.Duration
	// Poll is how often the loop retries while a manual pass holds the token.
	Poll time.Duration
}

func DefaultOptions() Options {
	return Options{
		Interval:     60 * time.Second,
		ErrorBackoff: 30 * time.Second,
		Poll:         time.Second,
	}
}

// SyncWorker drives fetch → group → process → write passes. The running flag
// is the only guard: whoever wins the CAS owns the pass and is the sole writer
// of the status fields until it releases it.
type SyncWorker struct {
	store     models.RecordStore
	processor GroupProcessor
	reaper    StaleReaper
	publisher SummaryPublisher
	metrics   *metrics.Metrics
	opts      Options
	now       func() time.Time

	running atomic.Bool
	runs    atomic.Int64

	mu          sync.RWMutex
	state       State
	lastRunTime *time.Time
	lastResult  *models.PassResult
	lastError   string
}

func NewSyncWorker(store models.RecordStore, processor GroupProcessor, reaper StaleReaper, opts Options) *SyncWorker {
	def := DefaultOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = def.ErrorBackoff
	}
	if opts.Poll <= 0 {
		opts.Poll = def.Poll
	}
	return &SyncWorker{
		store:     store,
		processor: processor,
		reaper:    reaper,
		opts:      opts,
		now:       time.Now,
	}
}

// WithPublisher enables summary-updated events. A nil publisher disables them.
func (w *SyncWorker) WithPublisher(p SummaryPublisher) *SyncWorker {
	w.publisher = p
	return w
}

func (w *SyncWorker) WithMetrics(m *metrics.Metrics) *SyncWorker {
	w.metrics = m
	return w
}

func alreadyRunning() error {
	return errors.New(errors.RefSyncRunning, "Sync already in progress", "a pass is currently running; manual triggers are not queued", nil, errors.LevelWarning)
}

func backingOff() error {
	return errors.New(errors.RefSyncBackoff, "Sync is backing off after an error", "the last pass failed; the next one starts when the backoff period ends", nil, errors.LevelWarning)
}

// Run executes passes until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context) {
	logger.Info("🚀 Sync worker started (interval %s, error backoff %s)", w.opts.Interval, w.opts.ErrorBackoff)

	for {
		_, err := w.RunPass(ctx)

		wait := w.opts.Interval
		backoff := false
		switch {
		case errors.HasReference(err, errors.RefSyncRunning):
			logger.Debug("Manual sync in progress, waiting for it to finish")
			wait = w.opts.Poll
		case err != nil:
			logger.Error("Sync pass failed, retrying in %s: %v", w.opts.ErrorBackoff, err)
			wait = w.opts.ErrorBackoff
			backoff = true
		default:
			logger.Info("Next sync in %s", w.opts.Interval)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("stopping sync worker")
			return
		case <-timer.C:
		}

		if backoff {
			w.setState(StateBackoffAfterError, StateIdle)
		}
	}
}

// Trigger runs one pass on behalf of a caller and returns its result. It never
// waits: it fails with SYNC_ALREADY_RUNNING while a pass is in progress and
// with SYNC_BACKING_OFF while the loop waits out a failure.
func (w *SyncWorker) Trigger(ctx context.Context) (*models.PassResult, error) {
	logger.Info("Manual sync triggered")
	result, err := w.runPass(ctx, true)
	if err == nil || errors.HasReference(err, errors.RefSyncRunning) || errors.HasReference(err, errors.RefSyncBackoff) {
		return result, err
	}
	// * The loop owns backoff; a failed manual pass leaves the machine idle
	w.setState(StateBackoffAfterError, StateIdle)
	return result, err
}

// RunPass takes the running token and executes a single pass.
func (w *SyncWorker) RunPass(ctx context.Context) (*models.PassResult, error) {
	return w.runPass(ctx, false)
}

// * Only Idle moves to Running for a manual pass; the loop leaves backoff itself
func (w *SyncWorker) runPass(ctx context.Context, manual bool) (result *models.PassResult, err error) {
	if !w.running.CompareAndSwap(false, true) {
		return nil, alreadyRunning()
	}
	defer w.running.Store(false)

	w.mu.Lock()
	if manual && w.state == StateBackoffAfterError {
		w.mu.Unlock()
		return nil, backingOff()
	}
	w.state = StateRunning
	w.mu.Unlock()
	w.runs.Add(1)

	started := w.now()
	w.metrics.PassStarted()

	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.RefSyncPassFailed, "Sync pass panicked", fmt.Sprintf("%v", r), nil, errors.LevelFatal)
			result = nil
		}
		w.finish(started, result, err)
	}()

	result, err = w.pass(ctx, started)
	return result, err
}

func (w *SyncWorker) pass(ctx context.Context, started time.Time) (*models.PassResult, error) {
	runID := uuid.NewString()
	logger.Info("Sync pass %s started", runID)

	if w.reaper != nil {
		w.metrics.Reaped(w.reaper.Reap(ctx))
	}

	posts, err := w.store.FetchPendingPosts(ctx)
	if err != nil {
		return nil, errors.New(errors.RefSyncPassFailed, "Failed to fetch pending posts", "", err, errors.LevelFatal)
	}

	result := &models.PassResult{
		RunID:      runID,
		Success:    true,
		TotalPosts: len(posts),
		Timestamp:  started.UTC(),
	}
	if len(posts) == 0 {
		logger.Info("No posts to process")
		result.Message = "No posts to process"
		return result, nil
	}

	groups := service.GroupPosts(posts)
	logger.Info("Found %d posts across %d repositories", len(posts), len(groups))

	var failures *multierror.Error
	for i, group := range groups {
		logger.Info("Processing repository %d/%d: %s (%d posts)", i+1, len(groups), group.URL, len(group.Posts))

		outcome, failed := w.processGroup(ctx, group)
		result.Repositories = append(result.Repositories, outcome)
		result.PostsUpdated += outcome.Updated
		if failed {
			result.ReposFailed++
			failures = multierror.Append(failures, fmt.Errorf("%s: %s", group.URL, outcome.Error))
			continue
		}
		result.ReposProcessed++
	}

	if failures != nil {
		logger.Warn("%d of %d repositories failed this pass: %v", result.ReposFailed, len(groups), failures)
	}
	logger.Info("Sync pass %s finished: %d/%d posts updated", runID, result.PostsUpdated, result.TotalPosts)
	return result, nil
}

// processGroup isolates one repository: its failure is reported in the
// outcome and never propagates to the pass.
func (w *SyncWorker) processGroup(ctx context.Context, group models.RepositoryGroup) (outcome models.RepositoryOutcome, failed bool) {
	outcome = models.RepositoryOutcome{URL: group.URL, Posts: len(group.Posts)}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Repository %s panicked: %v", group.URL, r)
			outcome.Error = fmt.Sprint(r)
			failed = true
		}
	}()

	changes, err := w.processor.ProcessGroup(ctx, group)
	if err != nil {
		logger.Error("Failed to process repository %s: %v", group.URL, err)
		outcome.Error = err.Error()
		return outcome, true
	}

	var writeErrs *multierror.Error
	for _, pc := range changes {
		if pc.Summary == nil {
			continue
		}
		encoded, err := pc.Summary.Encode()
		if err != nil {
			writeErrs = multierror.Append(writeErrs, fmt.Errorf("encode %s: %w", pc.Post.RecordID, err))
			continue
		}
		if err := w.store.UpdateGitChanges(ctx, pc.Post.RecordID, encoded); err != nil {
			logger.Error("Failed to update post %s: %v", pc.Post.PostID, err)
			writeErrs = multierror.Append(writeErrs, fmt.Errorf("update %s: %w", pc.Post.RecordID, err))
			continue
		}
		outcome.Updated++
		logger.Info("  ✅ Updated post %s", pc.Post.PostID)
		w.publish(ctx, pc)
	}

	if writeErrs != nil {
		outcome.Error = writeErrs.Error()
	}
	return outcome, false
}

func (w *SyncWorker) publish(ctx context.Context, pc models.PostChanges) {
	if w.publisher == nil {
		return
	}
	event := models.SummaryEvent{
		RecordID:      pc.Post.RecordID,
		PostID:        pc.Post.PostID,
		RepositoryURL: pc.Post.RepositoryURL,
		TotalCommits:  len(pc.Summary.Commits),
		Timestamp:     w.now().UTC(),
	}
	if err := w.publisher.PublishSummaryUpdated(ctx, event); err != nil {
		logger.Warn("Failed to publish summary event for %s: %v", pc.Post.PostID, err)
	}
}

func (w *SyncWorker) finish(started time.Time, result *models.PassResult, err error) {
	now := w.now().UTC()

	w.mu.Lock()
	w.lastRunTime = &now
	if err != nil {
		w.state = StateBackoffAfterError
		w.lastError = err.Error()
		w.lastResult = &models.PassResult{Success: false, Message: err.Error(), Timestamp: now}
	} else {
		w.state = StateIdle
		w.lastError = ""
		w.lastResult = result
	}
	w.mu.Unlock()

	outcome := "success"
	failed, updated := 0, 0
	if err != nil {
		outcome = "error"
	} else if result != nil {
		failed, updated = result.ReposFailed, result.PostsUpdated
	}
	w.metrics.PassFinished(outcome, w.now().Sub(started), failed, updated)
}

// setState moves from one state to another only if the machine is still in from.
func (w *SyncWorker) setState(from, to State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == from {
		w.state = to
	}
}

func (w *SyncWorker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Status returns a copy; LastResult is replaced as a whole and never mutated.
func (w *SyncWorker) Status() models.SyncStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return models.SyncStatus{
		State:       w.state.String(),
		Running:     w.running.Load(),
		LastRunTime: w.lastRunTime,
		LastResult:  w.lastResult,
		LastError:   w.lastError,
		RunCount:    w.runs.Load(),
		Timestamp:   w.now().UTC(),
	}
}
