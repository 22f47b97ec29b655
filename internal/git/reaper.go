package git

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shirou/gopsutil/process"

	"github.com/KOFI-GYIMAH/gitsync/pkg/logger"
)

// proc is the slice of *process.Process the reaper relies on.
type proc interface {
	Name() (string, error)
	CmdlineSlice() ([]string, error)
	CreateTime() (int64, error)
	Terminate() error
	Kill() error
	IsRunning() (bool, error)
}

// Reaper terminates git clone processes left behind by earlier passes.
type Reaper struct {
	maxAge time.Duration
	grace  time.Duration
	now    func() time.Time
	list   func(ctx context.Context) ([]proc, error)
}

func NewReaper(maxAge time.Duration) *Reaper {
	return &Reaper{
		maxAge: maxAge,
		grace:  5 * time.Second,
		now:    time.Now,
		list:   listProcesses,
	}
}

func listProcesses(ctx context.Context) ([]proc, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]proc, 0, len(procs))
	for _, p := range procs {
		out = append(out, p)
	}
	return out, nil
}

// Reap is best effort: failures are logged, never returned. It reports how
// many processes were signalled.
func (r *Reaper) Reap(ctx context.Context) int {
	procs, err := r.list(ctx)
	if err != nil {
		logger.Warn("Could not list processes for stale clone cleanup: %v", err)
		return 0
	}

	cutoff := r.now().Add(-r.maxAge).UnixMilli()

	var errs *multierror.Error
	reaped := 0
	for _, p := range procs {
		if !isClone(p) {
			continue
		}
		created, err := p.CreateTime()
		if err != nil || created >= cutoff {
			continue
		}

		logger.Warn("Terminating stale git clone process started at %s", time.UnixMilli(created).Format(time.RFC3339))
		if err := r.terminate(ctx, p); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		reaped++
	}

	if err := errs.ErrorOrNil(); err != nil {
		logger.Warn("Stale clone cleanup was incomplete: %v", err)
	}
	return reaped
}

func isClone(p proc) bool {
	name, err := p.Name()
	if err != nil || name != "git" {
		return false
	}
	args, err := p.CmdlineSlice()
	if err != nil {
		return false
	}
	return slices.Contains(args, "clone")
}

func (r *Reaper) terminate(ctx context.Context, p proc) error {
	if err := p.Terminate(); err != nil {
		return fmt.Errorf("terminate: %w", err)
	}

	deadline := time.NewTimer(r.grace)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		if running, err := p.IsRunning(); err != nil || !running {
			return nil
		}
		select {
		case <-tick.C:
		case <-deadline.C:
			return p.Kill()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
