package domain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"sigscan.dev/pkg/sigscan/internal/adapter"
	m "sigscan.dev/pkg/sigscan/internal/model"
)

const (
	// DefaultMaxConcurrency is the default number of files scanned per batch.
	DefaultMaxConcurrency = 5
	// DefaultScanTimeout bounds a single file scan.
	DefaultScanTimeout = 5 * time.Second
)

var (
	// ErrInvalidConcurrency is returned for a concurrency below one.
	ErrInvalidConcurrency = errors.New("max concurrency must be at least 1")
	// ErrInvalidTimeout is returned for a non-positive per-file timeout.
	ErrInvalidTimeout = errors.New("scan timeout must be positive")
	// ErrNoMatcher is returned when the scheduler is given no matcher.
	ErrNoMatcher = errors.New("matcher is required")
)

// RunOptions configures a scheduler run.
type RunOptions struct {
	MaxConcurrency int
	Timeout        time.Duration
	// OnEvent receives run events on the scheduler goroutine. It must not block for long.
	OnEvent func(Event)
}

// Validate reports whether the options can drive a run.
func (o RunOptions) Validate() error {
	if o.MaxConcurrency < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, o.MaxConcurrency)
	}

	if o.Timeout <= 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidTimeout, o.Timeout)
	}

	return nil
}

// Scheduler drains a work queue in bounded batches against a matcher.
type Scheduler interface {
	Run(ctx context.Context, queue []m.Path, matcher adapter.Matcher, opts RunOptions) (m.RunReport, error)
}

type scheduler struct {
	now func() time.Time
}

// NewScheduler creates a batch scheduler.
func NewScheduler() Scheduler {
	return &scheduler{now: time.Now}
}

// Run scans queue front to back in batches of at most opts.MaxConcurrency
// files and waits for every task of a batch before starting the next one.
// Per-file failures are recorded as outcomes and never abort the run.
// Cancelling ctx stops the run at the next batch boundary; files of the
// batch in flight are still scanned to completion and reported.
//
// No more than opts.MaxConcurrency matcher calls run at once, including
// calls whose file was already recorded as timed out. Run returns only
// after every matcher call has returned.
func (s *scheduler) Run(ctx context.Context, queue []m.Path, matcher adapter.Matcher, opts RunOptions) (m.RunReport, error) {
	if err := opts.Validate(); err != nil {
		return m.RunReport{}, err
	}

	if matcher == nil {
		return m.RunReport{}, ErrNoMatcher
	}

	emit := opts.OnEvent
	if emit == nil {
		emit = func(Event) {}
	}

	queue = uniquePaths(queue)
	total := len(queue)
	table := m.NewResultTable(total)
	started := s.now()

	emit(RunStartedEvent{TotalFiles: total, MaxConcurrency: opts.MaxConcurrency, Timeout: opts.Timeout})
	slog.Info("scan started", "files", total, "concurrency", opts.MaxConcurrency, "timeout", opts.Timeout)

	progress := ComputeProgress(0, total)
	if total == 0 {
		emit(ProgressEvent{Progress: progress})
	}

	slots := semaphore.NewWeighted(int64(opts.MaxConcurrency))
	defer waitIdle(slots, opts.MaxConcurrency)

	scanned := 0
	cancelled := false

	for batchIndex := 0; scanned < total; batchIndex++ {
		if ctx.Err() != nil {
			cancelled = true

			slog.Info("scan cancelled", "scanned", scanned, "total", total)

			break
		}

		end := scanned + opts.MaxConcurrency
		if end > total {
			end = total
		}

		batch := queue[scanned:end]

		emit(BatchStartedEvent{Index: batchIndex, Files: append([]m.Path(nil), batch...)})
		slog.Debug("batch started", "batch", batchIndex, "size", len(batch))

		outcomes := s.runBatch(ctx, slots, batch, matcher, opts.Timeout)

		for i, path := range batch {
			if err := table.Record(path, outcomes[i]); err != nil {
				return m.RunReport{}, err
			}

			emit(FileScannedEvent{Path: path, Outcome: outcomes[i]})
		}

		scanned = end
		progress = ComputeProgress(scanned, total)

		emit(ProgressEvent{Progress: progress})
	}

	report := Summarize(table, s.now().Sub(started))
	report.TotalFiles = total
	report.StartedAt = started
	report.Cancelled = cancelled

	emit(RunFinishedEvent{Progress: progress, Cancelled: cancelled})

	return report, nil
}

// runBatch scans every file of batch concurrently and returns the outcomes
// in batch order. Each task writes only its own slot.
func (s *scheduler) runBatch(
	ctx context.Context,
	slots *semaphore.Weighted,
	batch []m.Path,
	matcher adapter.Matcher,
	timeout time.Duration,
) []m.Outcome {
	outcomes := make([]m.Outcome, len(batch))

	// In-flight scans outlive a cancellation of the run; only the per-file
	// deadline stops them.
	taskCtx := context.WithoutCancel(ctx)

	var group errgroup.Group

	group.SetLimit(len(batch))

	for i, path := range batch {
		group.Go(func() error {
			outcomes[i] = scanFile(taskCtx, slots, matcher, path, timeout)
			return nil
		})
	}

	_ = group.Wait()

	return outcomes
}

type scanResult struct {
	rules []m.RuleID
	err   error
}

// scanFile runs one matcher call under a slot of slots. The deadline starts
// once the slot is held; the slot is released when the matcher returns,
// which may be after the file was recorded as timed out.
func scanFile(ctx context.Context, slots *semaphore.Weighted, matcher adapter.Matcher, path m.Path, timeout time.Duration) m.Outcome {
	if err := slots.Acquire(ctx, 1); err != nil {
		return m.Failed(m.FailureMatcher, fmt.Errorf("acquire scan slot: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan scanResult, 1)

	go func() {
		defer slots.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- scanResult{err: fmt.Errorf("matcher panic: %v", r)}
			}
		}()

		rules, err := matcher.Scan(ctx, path, timeout)
		done <- scanResult{rules: rules, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return m.Matched(res.rules...)
		}

		kind := classifyFailure(ctx, res.err)
		slog.Warn("scan failed", "path", path, "kind", kind, "error", res.err)

		return m.Failed(kind, res.err)
	case <-ctx.Done():
		slog.Warn("scan timed out", "path", path, "timeout", timeout)

		return m.Failed(m.FailureTimeout, ctx.Err())
	}
}

// waitIdle blocks until every slot is free, i.e. no matcher call is running.
func waitIdle(slots *semaphore.Weighted, size int) {
	if err := slots.Acquire(context.Background(), int64(size)); err != nil {
		return
	}

	slots.Release(int64(size))
}

func classifyFailure(ctx context.Context, err error) m.FailureKind {
	var pathErr *fs.PathError

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return m.FailureTimeout
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission), errors.As(err, &pathErr):
		return m.FailureIO
	default:
		return m.FailureMatcher
	}
}

func uniquePaths(queue []m.Path) []m.Path {
	seen := make(map[m.Path]struct{}, len(queue))
	unique := make([]m.Path, 0, len(queue))

	for _, path := range queue {
		if _, ok := seen[path]; ok {
			slog.Warn("duplicate path in work queue", "path", path)
			continue
		}

		seen[path] = struct{}{}
		unique = append(unique, path)
	}

	return unique
}
