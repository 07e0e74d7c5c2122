// Package scheduler drives the day-rollover check on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tillledger/internal/domain"
)

type RolloverChecker interface {
	CheckRollover(ctx context.Context, previous domain.Date, current domain.Date) (domain.Date, error)
}

// Locker guards a check across processes. ok is false when another holder
// has the lock.
type Locker interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

type Options struct {
	Interval time.Duration
	Location *time.Location
	Now      func() time.Time
	Locker   Locker
	Logger   *logrus.Logger
}

type Runner struct {
	checker  RolloverChecker
	interval time.Duration
	loc      *time.Location
	now      func() time.Time
	locker   Locker
	log      *logrus.Entry

	// running is held for the whole of a check so ticks never overlap.
	running sync.Mutex
	mu      sync.Mutex
	last    domain.Date
}

func New(checker RolloverChecker, opts Options) *Runner {
	r := &Runner{
		checker:  checker,
		interval: opts.Interval,
		loc:      opts.Location,
		now:      opts.Now,
		locker:   opts.Locker,
	}
	if r.interval <= 0 {
		r.interval = time.Minute
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	if r.now == nil {
		r.now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r.log = logger.WithField("module", "scheduler")
	return r
}

// Run checks once immediately, which backfills a closing missed while the
// process was down, then once per interval until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	r.Tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info("rollover runner stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one check. It returns false when the check was skipped because
// another one is still running or another process holds the lock.
func (r *Runner) Tick(ctx context.Context) bool {
	if !r.running.TryLock() {
		r.log.Debug("rollover check still running, skipping tick")
		return false
	}
	defer r.running.Unlock()

	if r.locker != nil {
		release, ok, err := r.locker.Acquire(ctx)
		switch {
		case err != nil:
			r.log.WithError(err).Warn("rollover lock unavailable, checking without it")
		case !ok:
			r.log.Debug("rollover lock held elsewhere, skipping tick")
			return false
		default:
			defer release()
		}
	}

	current := domain.DateOf(r.now(), r.loc)
	previous := r.LastChecked()
	next, err := r.checker.CheckRollover(ctx, previous, current)
	if err != nil {
		r.log.WithError(err).WithField("date", current.String()).Error("rollover check failed")
	}

	r.mu.Lock()
	r.last = next
	r.mu.Unlock()
	return true
}

func (r *Runner) LastChecked() domain.Date {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
