// Package broadcast delivers one message to the whole active audience,
// throttled so the Telegram flood limits are never hit. A single run is
// allowed at a time; per-user delivery failures are counted, logged and
// skipped, never fatal.
package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"
)

// ErrActive is returned when a run is requested while one is in flight.
var ErrActive = errors.New("broadcast: delivery already in progress")

// Audience enumerates the users a broadcast targets.
type Audience interface {
	ActiveUserIDs(ctx context.Context) ([]int64, error)
}

// Forwarder copies the source message to a single user.
type Forwarder interface {
	Forward(ctx context.Context, userID int64, msg any) error
}

// Options tunes delivery pacing and progress reporting.
type Options struct {
	// Delay is the pause between consecutive sends. Defaults to 50ms.
	Delay time.Duration
	// Batch is how many successful sends pass between progress
	// callbacks. Defaults to 10.
	Batch int
}

// Report is a delivery counter snapshot.
type Report struct {
	Total     int
	Succeeded int
	Failed    int
}

// Dispatcher runs throttled broadcasts.
type Dispatcher struct {
	audience  Audience
	forwarder Forwarder
	opts      Options
	log       *slog.Logger

	running atomic.Bool
}

// New builds a dispatcher. Zero option fields fall back to defaults.
func New(audience Audience, forwarder Forwarder, opts Options, log *slog.Logger) *Dispatcher {
	if opts.Delay <= 0 {
		opts.Delay = 50 * time.Millisecond
	}
	if opts.Batch <= 0 {
		opts.Batch = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{audience: audience, forwarder: forwarder, opts: opts, log: log}
}

// Active reports whether a run is currently in flight.
func (d *Dispatcher) Active() bool {
	return d.running.Load()
}

// Run delivers msg to every active user known at the moment the run
// starts. Users who register mid-run are not included. The progress
// callback fires after every Batch successful sends and once more with
// done=true when the run finishes; it may be nil.
//
// Only one run may be active; a concurrent call returns ErrActive.
func (d *Dispatcher) Run(ctx context.Context, msg any, progress func(Report, bool)) (Report, error) {
	if !d.running.CompareAndSwap(false, true) {
		return Report{}, ErrActive
	}
	defer d.running.Store(false)

	ids, err := d.audience.ActiveUserIDs(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Total: len(ids)}
	d.log.Info("broadcast started", "total", report.Total)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			d.finish(report, progress)
			return report, err
		}
		if err := d.forwarder.Forward(ctx, id, msg); err != nil {
			report.Failed++
			d.log.Error("broadcast delivery failed", "target_id", id, "error", err)
			continue
		}
		report.Succeeded++
		if progress != nil && report.Succeeded%d.opts.Batch == 0 {
			progress(report, false)
		}
		if err := sleep(ctx, d.opts.Delay); err != nil {
			d.finish(report, progress)
			return report, err
		}
	}

	d.finish(report, progress)
	return report, nil
}

func (d *Dispatcher) finish(report Report, progress func(Report, bool)) {
	d.log.Info("broadcast finished",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed)
	if progress != nil {
		progress(report, true)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
