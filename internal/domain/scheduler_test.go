package domain_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigscan.dev/pkg/sigscan/internal/domain"
	m "sigscan.dev/pkg/sigscan/internal/model"
)

type matcherFunc func(ctx context.Context, path m.Path, timeout time.Duration) ([]m.RuleID, error)

func (f matcherFunc) Scan(ctx context.Context, path m.Path, timeout time.Duration) ([]m.RuleID, error) {
	return f(ctx, path, timeout)
}

func cleanMatcher() matcherFunc {
	return func(context.Context, m.Path, time.Duration) ([]m.RuleID, error) {
		return nil, nil
	}
}

func makeQueue(n int) []m.Path {
	queue := make([]m.Path, n)
	for i := range queue {
		queue[i] = m.Path(fmt.Sprintf("f%02d.php", i))
	}

	return queue
}

type eventLog struct {
	events []domain.Event
}

func (l *eventLog) record(ev domain.Event) {
	l.events = append(l.events, ev)
}

func (l *eventLog) progress() []m.Progress {
	var out []m.Progress

	for _, ev := range l.events {
		if p, ok := ev.(domain.ProgressEvent); ok {
			out = append(out, p.Progress)
		}
	}

	return out
}

func (l *eventLog) batchSizes() []int {
	var out []int

	for _, ev := range l.events {
		if b, ok := ev.(domain.BatchStartedEvent); ok {
			out = append(out, len(b.Files))
		}
	}

	return out
}

func defaultOptions(log *eventLog) domain.RunOptions {
	return domain.RunOptions{
		MaxConcurrency: domain.DefaultMaxConcurrency,
		Timeout:        domain.DefaultScanTimeout,
		OnEvent:        log.record,
	}
}

func TestScheduler_EmptyQueue(t *testing.T) {
	log := &eventLog{}

	var calls atomic.Int32

	matcher := matcherFunc(func(context.Context, m.Path, time.Duration) ([]m.RuleID, error) {
		calls.Add(1)
		return nil, nil
	})

	report, err := domain.NewScheduler().Run(context.Background(), nil, matcher, defaultOptions(log))
	require.NoError(t, err)

	assert.Equal(t, 0, report.FilesScanned)
	assert.Equal(t, 0, report.TotalFiles)
	assert.Equal(t, 0, report.TotalMatches)
	assert.False(t, report.Cancelled)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, []m.Progress{{Percent: 100}}, log.progress())
	assert.Empty(t, log.batchSizes())

	require.NotEmpty(t, log.events)
	assert.IsType(t, domain.RunStartedEvent{}, log.events[0])
	assert.Equal(t, domain.RunFinishedEvent{Progress: m.Progress{Percent: 100}}, log.events[len(log.events)-1])
}

func TestScheduler_TailBatch(t *testing.T) {
	log := &eventLog{}

	report, err := domain.NewScheduler().Run(context.Background(), makeQueue(13), cleanMatcher(), defaultOptions(log))
	require.NoError(t, err)

	assert.Equal(t, []int{5, 5, 3}, log.batchSizes())
	assert.Equal(t, []m.Progress{
		{FilesScanned: 5, TotalFiles: 13, Percent: 38},
		{FilesScanned: 10, TotalFiles: 13, Percent: 76},
		{FilesScanned: 13, TotalFiles: 13, Percent: 100},
	}, log.progress())

	assert.Equal(t, 13, report.FilesScanned)
	assert.Equal(t, 13, report.TotalFiles)
	require.Len(t, report.Files, 13)

	for i, file := range report.Files {
		assert.Equal(t, makeQueue(13)[i], file.Path, "outcomes are recorded in queue order")
	}
}

func TestScheduler_MixedOutcomes(t *testing.T) {
	matcher := matcherFunc(func(_ context.Context, path m.Path, _ time.Duration) ([]m.RuleID, error) {
		switch path {
		case "f1.php":
			return []m.RuleID{"R1"}, nil
		case "f2.php":
			return nil, nil
		default:
			return nil, &fs.PathError{Op: "open", Path: string(path), Err: fs.ErrPermission}
		}
	})

	log := &eventLog{}

	report, err := domain.NewScheduler().Run(context.Background(), []m.Path{"f1.php", "f2.php", "f3.php"}, matcher, defaultOptions(log))
	require.NoError(t, err)

	assert.Equal(t, 3, report.FilesScanned)
	assert.Equal(t, 1, report.TotalMatches)
	assert.Equal(t, 1, report.FailedFiles)
	assert.Equal(t, map[string]int{"io_error": 1}, report.FailuresByKind)
	assert.Equal(t, map[m.Path][]m.RuleID{"f1.php": {"R1"}}, report.PerFileMatches)
	assert.Equal(t, []m.Progress{{FilesScanned: 3, TotalFiles: 3, Percent: 100}}, log.progress())

	var scanned []domain.FileScannedEvent

	for _, ev := range log.events {
		if fe, ok := ev.(domain.FileScannedEvent); ok {
			scanned = append(scanned, fe)
		}
	}

	require.Len(t, scanned, 3)
	assert.Equal(t, m.FailureIO, scanned[2].Outcome.Failure)
}

// inFlightGauge tracks how many matcher calls are running and the peak.
type inFlightGauge struct {
	current atomic.Int32
	peak    atomic.Int32
}

func (g *inFlightGauge) enter() func() {
	current := g.current.Add(1)

	for {
		seen := g.peak.Load()
		if current <= seen || g.peak.CompareAndSwap(seen, current) {
			break
		}
	}

	return func() { g.current.Add(-1) }
}

func TestScheduler_TimeoutIsolation(t *testing.T) {
	gauge := &inFlightGauge{}

	matcher := matcherFunc(func(_ context.Context, path m.Path, _ time.Duration) ([]m.RuleID, error) {
		defer gauge.enter()()

		if path == "f01.php" {
			time.Sleep(200 * time.Millisecond)
			return nil, nil
		}

		return []m.RuleID{"R1"}, nil
	})

	opts := domain.RunOptions{MaxConcurrency: 2, Timeout: 50 * time.Millisecond}

	report, err := domain.NewScheduler().Run(context.Background(), makeQueue(4), matcher, opts)
	require.NoError(t, err)

	assert.Equal(t, 4, report.FilesScanned)
	assert.Equal(t, 3, report.TotalMatches)
	assert.Equal(t, map[string]int{"timeout": 1}, report.FailuresByKind)
	assert.Equal(t, m.FailureTimeout, report.Files[1].Failure)
	assert.LessOrEqual(t, gauge.peak.Load(), int32(2))
	assert.Equal(t, int32(0), gauge.current.Load(), "no matcher call outlives the run")
}

func TestScheduler_TimedOutScansHoldTheirSlot(t *testing.T) {
	const limit = 2

	gauge := &inFlightGauge{}

	// The matcher ignores its context, so every call overruns the deadline.
	matcher := matcherFunc(func(_ context.Context, path m.Path, _ time.Duration) ([]m.RuleID, error) {
		defer gauge.enter()()

		if path == "f00.php" || path == "f01.php" {
			time.Sleep(300 * time.Millisecond)
		} else {
			time.Sleep(80 * time.Millisecond)
		}

		return nil, nil
	})

	report, err := domain.NewScheduler().Run(context.Background(), makeQueue(6), matcher,
		domain.RunOptions{MaxConcurrency: limit, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, 6, report.FilesScanned)
	assert.Equal(t, map[string]int{"timeout": 6}, report.FailuresByKind)
	assert.LessOrEqual(t, gauge.peak.Load(), int32(limit))
	assert.Equal(t, int32(0), gauge.current.Load())
}

func TestScheduler_MatcherDeadlineErrorIsTimeout(t *testing.T) {
	matcher := matcherFunc(func(ctx context.Context, _ m.Path, _ time.Duration) ([]m.RuleID, error) {
		<-ctx.Done()
		return nil, fmt.Errorf("scan aborted: %w", ctx.Err())
	})

	report, err := domain.NewScheduler().Run(context.Background(), makeQueue(1), matcher,
		domain.RunOptions{MaxConcurrency: 1, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"timeout": 1}, report.FailuresByKind)
}

func TestScheduler_MatcherErrorAndPanic(t *testing.T) {
	matcher := matcherFunc(func(_ context.Context, path m.Path, _ time.Duration) ([]m.RuleID, error) {
		if path == "f00.php" {
			panic("corrupt rule state")
		}

		return nil, errors.New("engine failure")
	})

	report, err := domain.NewScheduler().Run(context.Background(), makeQueue(2), matcher,
		domain.RunOptions{MaxConcurrency: 2, Timeout: time.Second})
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesScanned)
	assert.Equal(t, map[string]int{"matcher_error": 2}, report.FailuresByKind)
	assert.Contains(t, report.Files[0].Err, "corrupt rule state")
}

func TestScheduler_ConcurrencyBoundAndBarrier(t *testing.T) {
	const (
		files = 23
		limit = 4
	)

	var (
		gauge     inFlightGauge
		completed atomic.Int32
		mu        sync.Mutex
		violation []string
	)

	index := make(map[m.Path]int, files)
	for i, path := range makeQueue(files) {
		index[path] = i
	}

	matcher := matcherFunc(func(_ context.Context, path m.Path, _ time.Duration) ([]m.RuleID, error) {
		defer gauge.enter()()

		batchStart := (index[path] / limit) * limit
		if done := int(completed.Load()); done < batchStart {
			mu.Lock()
			violation = append(violation, fmt.Sprintf("%s started with %d completed", path, done))
			mu.Unlock()
		}

		time.Sleep(2 * time.Millisecond)
		completed.Add(1)

		return nil, nil
	})

	report, err := domain.NewScheduler().Run(context.Background(), makeQueue(files), matcher,
		domain.RunOptions{MaxConcurrency: limit, Timeout: time.Second})
	require.NoError(t, err)

	assert.Equal(t, files, report.FilesScanned)
	assert.LessOrEqual(t, gauge.peak.Load(), int32(limit))
	assert.Empty(t, violation)
}

func TestScheduler_CancellationBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sawCancelled atomic.Bool

	matcher := matcherFunc(func(taskCtx context.Context, path m.Path, _ time.Duration) ([]m.RuleID, error) {
		if path == "f00.php" {
			cancel()
			time.Sleep(10 * time.Millisecond)
		}

		if taskCtx.Err() != nil {
			sawCancelled.Store(true)
		}

		return []m.RuleID{"R1"}, nil
	})

	log := &eventLog{}

	report, err := domain.NewScheduler().Run(ctx, makeQueue(12), matcher, defaultOptions(log))
	require.NoError(t, err)

	assert.True(t, report.Cancelled)
	assert.Equal(t, 5, report.FilesScanned)
	assert.Equal(t, 12, report.TotalFiles)
	assert.Equal(t, 5, report.TotalMatches)
	assert.Equal(t, 0, report.FailedFiles, "in-flight scans are not interrupted")
	assert.False(t, sawCancelled.Load())
	assert.Equal(t, []int{5}, log.batchSizes())
	assert.Equal(t, domain.RunFinishedEvent{
		Progress:  m.Progress{FilesScanned: 5, TotalFiles: 12, Percent: 41},
		Cancelled: true,
	}, log.events[len(log.events)-1])
}

func TestScheduler_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := domain.NewScheduler().Run(ctx, makeQueue(3), cleanMatcher(), defaultOptions(&eventLog{}))
	require.NoError(t, err)

	assert.True(t, report.Cancelled)
	assert.Equal(t, 0, report.FilesScanned)
	assert.Equal(t, 3, report.TotalFiles)
}

func TestScheduler_ProgressIsMonotonic(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 5, 8, 40} {
		log := &eventLog{}

		_, err := domain.NewScheduler().Run(context.Background(), makeQueue(37), cleanMatcher(),
			domain.RunOptions{MaxConcurrency: limit, Timeout: time.Second, OnEvent: log.record})
		require.NoError(t, err)

		progress := log.progress()
		require.NotEmpty(t, progress)

		for i := 1; i < len(progress); i++ {
			assert.GreaterOrEqual(t, progress[i].FilesScanned, progress[i-1].FilesScanned)
			assert.GreaterOrEqual(t, progress[i].Percent, progress[i-1].Percent)
		}

		for _, p := range progress[:len(progress)-1] {
			assert.Less(t, p.Percent, 100, "limit %d", limit)
		}

		assert.Equal(t, m.Progress{FilesScanned: 37, TotalFiles: 37, Percent: 100}, progress[len(progress)-1])
	}
}

func TestScheduler_DuplicatePathsScannedOnce(t *testing.T) {
	var calls atomic.Int32

	matcher := matcherFunc(func(context.Context, m.Path, time.Duration) ([]m.RuleID, error) {
		calls.Add(1)
		return nil, nil
	})

	report, err := domain.NewScheduler().Run(context.Background(), []m.Path{"a.php", "b.php", "a.php"}, matcher,
		domain.RunOptions{MaxConcurrency: 5, Timeout: time.Second})
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, report.FilesScanned)
	assert.Equal(t, 2, report.TotalFiles)
}

func TestScheduler_InvalidOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    domain.RunOptions
		wantErr error
	}{
		{"zero concurrency", domain.RunOptions{MaxConcurrency: 0, Timeout: time.Second}, domain.ErrInvalidConcurrency},
		{"negative concurrency", domain.RunOptions{MaxConcurrency: -2, Timeout: time.Second}, domain.ErrInvalidConcurrency},
		{"zero timeout", domain.RunOptions{MaxConcurrency: 1}, domain.ErrInvalidTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewScheduler().Run(context.Background(), makeQueue(1), cleanMatcher(), tt.opts)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := domain.NewScheduler().Run(context.Background(), makeQueue(1), nil,
		domain.RunOptions{MaxConcurrency: 1, Timeout: time.Second})
	require.ErrorIs(t, err, domain.ErrNoMatcher)
}
