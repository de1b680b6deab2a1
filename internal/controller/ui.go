// Package controller renders scan runs for the console and the terminal UI.
package controller

import (
	"context"
	"time"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeScan StartMode = iota
	ModeBrowse
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode   StartMode
	cancel context.CancelFunc
}

// WithScanMode sets the UI to live scan mode.
func WithScanMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeScan
	}
}

// WithBrowseMode sets the UI to browse a static listing or report.
func WithBrowseMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeBrowse
	}
}

// WithCancel registers the function invoked when the user aborts a scan.
func WithCancel(cancel context.CancelFunc) StartOption {
	return func(c *StartConfig) {
		c.cancel = cancel
	}
}

func newStartConfig(options []StartOption) StartConfig {
	cfg := StartConfig{mode: ModeScan}
	for _, option := range options {
		option(&cfg)
	}

	return cfg
}

// RunInfo describes a scan before its first batch.
type RunInfo struct {
	Root           m.Path
	TotalFiles     int
	MaxConcurrency int
	Timeout        time.Duration
	RuleSource     m.Path
	Engine         string
}

// UI displays scan progress, findings and reports.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayRunInfo(ctx context.Context, info RunInfo)
	DisplayScanStarted(ctx context.Context, path m.Path)
	DisplayScanCompleted(ctx context.Context, path m.Path, outcome m.Outcome)
	DisplayProgress(ctx context.Context, progress m.Progress)
	DisplayReport(ctx context.Context, report m.RunReport) error
	DisplayFiles(ctx context.Context, root m.Path, files []m.File) error
}
