package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Recomputer is the part of NetworkService the refresher drives.
type Recomputer interface {
	TrackedRoots() []string
	Recompute(ctx context.Context, rootID string) (Snapshot, error)
}

// Refresher periodically recomputes every tracked network.
type Refresher struct {
	logger  *slog.Logger
	svc     Recomputer
	cron    *cron.Cron
	timeout time.Duration
}

// NewRefresher schedules RunOnce according to a cron expression such as "@every 30s".
func NewRefresher(logger *slog.Logger, svc Recomputer, schedule string, timeout time.Duration) (*Refresher, error) {
	if svc == nil {
		return nil, errors.New("recomputer is required")
	}
	r := &Refresher{
		logger:  logger.With("component", "refresher"),
		svc:     svc,
		cron:    cron.New(),
		timeout: timeout,
	}
	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs the schedule in the background.
func (r *Refresher) Start() {
	r.cron.Start()
	r.logger.Info("network refresher started")
}

// Stop halts the schedule and waits for a running refresh to finish or ctx to expire.
func (r *Refresher) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Refresher) tick() {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	r.RunOnce(ctx)
}

// RunOnce recomputes each tracked root in turn and returns how many were applied.
// Failures are logged and do not stop the remaining roots.
func (r *Refresher) RunOnce(ctx context.Context) int {
	applied := 0
	for _, root := range r.svc.TrackedRoots() {
		if ctx.Err() != nil {
			break
		}
		_, err := r.svc.Recompute(ctx, root)
		switch {
		case err == nil:
			applied++
		case errors.Is(err, ErrSuperseded):
			r.logger.Debug("refresh superseded", "root", root)
		default:
			r.logger.Warn("refresh failed", "root", root, "error", err)
		}
	}
	return applied
}
