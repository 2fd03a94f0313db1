package broadcast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAudience struct {
	ids []int64
	err error
}

func (a *staticAudience) ActiveUserIDs(_ context.Context) ([]int64, error) {
	return a.ids, a.err
}

type recordingForwarder struct {
	mu       sync.Mutex
	sent     []int64
	failWhen func(n int) bool
	block    chan struct{}
}

func (f *recordingForwarder) Forward(_ context.Context, userID int64, _ any) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.sent) + 1
	f.sent = append(f.sent, userID)
	if f.failWhen != nil && f.failWhen(n) {
		return errors.New("forbidden: bot was blocked by the user")
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDispatcher(a Audience, f Forwarder) *Dispatcher {
	return New(a, f, Options{Delay: time.Microsecond, Batch: 10}, testLogger())
}

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func TestRunCountsFailuresAndContinues(t *testing.T) {
	audience := &staticAudience{ids: ids(23)}
	forwarder := &recordingForwarder{failWhen: func(n int) bool { return n%3 == 0 }}
	d := testDispatcher(audience, forwarder)

	var reports []Report
	var doneFlags []bool
	report, err := d.Run(context.Background(), "ad", func(r Report, done bool) {
		reports = append(reports, r)
		doneFlags = append(doneFlags, done)
	})
	require.NoError(t, err)

	assert.Equal(t, 23, report.Total)
	assert.Equal(t, 16, report.Succeeded)
	assert.Equal(t, 7, report.Failed)
	assert.Equal(t, report.Total, report.Succeeded+report.Failed)
	assert.Len(t, forwarder.sent, 23)

	// One batch update at the 10th success plus the terminal report.
	require.Len(t, reports, 2)
	assert.Equal(t, []bool{false, true}, doneFlags)
	assert.Equal(t, 10, reports[0].Succeeded)
	assert.Equal(t, report, reports[1])
}

func TestRunEmptyAudience(t *testing.T) {
	d := testDispatcher(&staticAudience{}, &recordingForwarder{})

	var final *Report
	report, err := d.Run(context.Background(), "ad", func(r Report, done bool) {
		if done {
			final = &r
		}
	})
	require.NoError(t, err)
	assert.Equal(t, Report{}, report)
	require.NotNil(t, final)
	assert.Equal(t, Report{}, *final)
}

func TestRunAudienceError(t *testing.T) {
	d := testDispatcher(&staticAudience{err: errors.New("db down")}, &recordingForwarder{})

	_, err := d.Run(context.Background(), "ad", nil)
	require.Error(t, err)
	assert.False(t, d.Active())
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	forwarder := &recordingForwarder{block: make(chan struct{})}
	d := testDispatcher(&staticAudience{ids: ids(3)}, forwarder)

	started := make(chan struct{})
	finished := make(chan error, 1)
	go func() {
		close(started)
		_, err := d.Run(context.Background(), "ad", nil)
		finished <- err
	}()
	<-started
	for !d.Active() {
		time.Sleep(time.Millisecond)
	}

	_, err := d.Run(context.Background(), "ad", nil)
	require.ErrorIs(t, err, ErrActive)

	close(forwarder.block)
	require.NoError(t, <-finished)

	// The guard releases once the run completes.
	_, err = d.Run(context.Background(), "ad", nil)
	require.NoError(t, err)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	forwarder := &recordingForwarder{}
	d := New(&staticAudience{ids: ids(100)}, forwarder, Options{Delay: time.Millisecond, Batch: 10}, testLogger())

	var final *Report
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	report, err := d.Run(ctx, "ad", func(r Report, done bool) {
		if done {
			final = &r
		}
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, report.Succeeded, 100)
	require.NotNil(t, final)
	assert.False(t, d.Active())
}
