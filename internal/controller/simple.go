package controller

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

// SimpleUI implements UI using cobra Command's output writer.
type SimpleUI struct {
	cmd *cobra.Command

	matchLabel func(a ...interface{}) string
	failLabel  func(a ...interface{}) string
	doneLabel  func(a ...interface{}) string
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{
		cmd:        cmd,
		matchLabel: color.New(color.FgRed, color.Bold).SprintFunc(),
		failLabel:  color.New(color.FgYellow).SprintFunc(),
		doneLabel:  color.New(color.FgGreen).SprintFunc(),
	}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplayRunInfo prints the run parameters.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Scanning %d file(s) in %s with %d worker(s), timeout %s\n",
		info.TotalFiles, info.Root, info.MaxConcurrency, info.Timeout)
	s.printf("Rules: %s (%s)\n", info.RuleSource, info.Engine)
}

// DisplayScanStarted prints the file about to be scanned.
func (s *SimpleUI) DisplayScanStarted(ctx context.Context, path m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Scanning file: %s\n", path)
}

// DisplayScanCompleted prints matches and failures. Clean files are silent.
func (s *SimpleUI) DisplayScanCompleted(ctx context.Context, path m.Path, outcome m.Outcome) {
	if err := ctx.Err(); err != nil {
		return
	}

	switch {
	case outcome.IsFailed():
		s.printf("%s %s: %s (%s)\n", s.failLabel("FAILED"), path, outcome.Failure, outcome.Err)
	case outcome.MatchCount() > 0:
		s.printf("%s %s: %s\n", s.matchLabel("MATCH"), path, joinRules(outcome.Rules))
	}
}

// DisplayProgress prints the percentage after each batch.
func (s *SimpleUI) DisplayProgress(ctx context.Context, progress m.Progress) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Progress: %d%% (%d/%d)\n", progress.Percent, progress.FilesScanned, progress.TotalFiles)
}

// DisplayReport prints the findings table and the run summary.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderReport(report))

	if !report.Cancelled {
		s.printf("%s\n", s.doneLabel("Done"))
	}

	return nil
}

// DisplayFiles prints the files a scan would cover.
func (s *SimpleUI) DisplayFiles(ctx context.Context, root m.Path, files []m.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Files to scan in %s:\n\n%s", root, renderFileTable(files))

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
