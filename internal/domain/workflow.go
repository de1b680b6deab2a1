package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sigscan.dev/pkg/sigscan/internal/adapter"
	"sigscan.dev/pkg/sigscan/internal/controller"
	m "sigscan.dev/pkg/sigscan/internal/model"
)

// ScanArgs contains the arguments for a scan run.
type ScanArgs struct {
	Root           m.Path
	RulePaths      []m.Path
	Engine         string
	Discover       adapter.DiscoverOptions
	MaxConcurrency int
	Timeout        time.Duration
	// MaxFileSize is the largest file scanned, in bytes. Zero means no limit.
	MaxFileSize int64
	Reports     m.Path
	SaveReport  bool
}

// ListArgs contains the arguments for listing the files a scan would cover.
type ListArgs struct {
	Root     m.Path
	Discover adapter.DiscoverOptions
}

// ViewArgs contains the arguments for viewing the latest saved report.
type ViewArgs struct {
	Reports m.Path
}

// Workflow ties discovery, rule loading, scheduling and display together.
type Workflow interface {
	Scan(ctx context.Context, args ScanArgs) error
	List(ctx context.Context, args ListArgs) error
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.RuleLoader
	adapter.ReportStore
	controller.UI
	Scheduler
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	ruleLoader adapter.RuleLoader,
	reportStore adapter.ReportStore,
	ui controller.UI,
	scheduler Scheduler,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		RuleLoader:      ruleLoader,
		ReportStore:     reportStore,
		UI:              ui,
		Scheduler:       scheduler,
	}
}

// Scan loads rules, discovers the files under args.Root and scans them.
// Rule loading and discovery failures are fatal; per-file failures end up
// in the report. A run aborted by the user still yields a report.
func (w *workflow) Scan(ctx context.Context, args ScanArgs) error {
	rules, err := w.Load(ctx, args.Engine, args.RulePaths)
	if err != nil {
		slog.Error("Failed to load rules", "error", err)
		return fmt.Errorf("load rules: %w", err)
	}

	slog.Info("rules loaded", "source", rules.Source, "engine", rules.Engine)

	files, err := w.Discover(ctx, args.Root, args.Discover)
	if err != nil {
		slog.Error("Failed to discover files", "root", args.Root, "error", err)
		return fmt.Errorf("discover files: %w", err)
	}

	queue := make([]m.Path, 0, len(files))
	for _, file := range files {
		queue = append(queue, file.Path)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Display and persistence keep working after the run is aborted.
	outCtx := context.WithoutCancel(ctx)

	if err := w.Start(outCtx, controller.WithScanMode(), controller.WithCancel(cancel)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.Close(outCtx)

	w.DisplayRunInfo(outCtx, controller.RunInfo{
		Root:           args.Root,
		TotalFiles:     len(queue),
		MaxConcurrency: args.MaxConcurrency,
		Timeout:        args.Timeout,
		RuleSource:     rules.Source,
		Engine:         rules.Engine,
	})

	matcher := adapter.LimitFileSize(rules.Matcher, args.MaxFileSize)

	report, err := w.Run(runCtx, queue, matcher, RunOptions{
		MaxConcurrency: args.MaxConcurrency,
		Timeout:        args.Timeout,
		OnEvent:        w.displayEvent(outCtx),
	})
	if err != nil {
		slog.Error("Scan run failed", "error", err)
		return fmt.Errorf("run scan: %w", err)
	}

	report.RunID = uuid.NewString()
	report.Root = args.Root

	logFindings(report)

	if args.SaveReport {
		path, saveErr := w.SaveReport(outCtx, args.Reports, report)
		if saveErr != nil {
			slog.Error("Failed to save report", "dir", args.Reports, "error", saveErr)
		} else {
			slog.Info("report saved", "path", path)
		}
	}

	if err := w.DisplayReport(outCtx, report); err != nil {
		slog.Error("Failed to display report", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	return nil
}

func (w *workflow) displayEvent(ctx context.Context) func(Event) {
	return func(ev Event) {
		switch ev := ev.(type) {
		case BatchStartedEvent:
			for _, path := range ev.Files {
				w.DisplayScanStarted(ctx, path)
			}
		case FileScannedEvent:
			w.DisplayScanCompleted(ctx, ev.Path, ev.Outcome)
		case ProgressEvent:
			w.DisplayProgress(ctx, ev.Progress)
		}
	}
}

func logFindings(report m.RunReport) {
	for _, path := range report.MatchedPaths() {
		slog.Info("match found", "path", path, "rules", report.PerFileMatches[path])
	}

	slog.Info("scan finished",
		"run_id", report.RunID,
		"scanned", report.FilesScanned,
		"total", report.TotalFiles,
		"matches", report.TotalMatches,
		"failed", report.FailedFiles,
		"cancelled", report.Cancelled,
		"elapsed", report.Elapsed,
	)
}

// List displays the files a scan of args.Root would cover.
func (w *workflow) List(ctx context.Context, args ListArgs) error {
	files, err := w.Discover(ctx, args.Root, args.Discover)
	if err != nil {
		slog.Error("Failed to discover files", "root", args.Root, "error", err)
		return fmt.Errorf("discover files: %w", err)
	}

	if err := w.Start(ctx, controller.WithBrowseMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	if err := w.DisplayFiles(ctx, args.Root, files); err != nil {
		w.Close(ctx)
		slog.Error("Failed to display files", "error", err)

		return fmt.Errorf("display: %w", err)
	}

	// Wait for UI to be closed by user (press 'q')
	w.Wait(ctx)
	w.Close(ctx)

	return nil
}

// View displays the most recent report saved under args.Reports.
func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	report, err := w.LoadLatest(ctx, args.Reports)
	if err != nil {
		slog.Error("Failed to load report", "dir", args.Reports, "error", err)
		return fmt.Errorf("load report: %w", err)
	}

	if err := w.Start(ctx, controller.WithBrowseMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	if err := w.DisplayReport(ctx, report); err != nil {
		w.Close(ctx)
		slog.Error("Failed to display report", "error", err)

		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)
	w.Close(ctx)

	return nil
}
