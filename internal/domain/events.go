package domain

import (
	"time"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

// Event is published by the scheduler while a run progresses. Events are
// values; subscribers never share state with the scheduler.
type Event interface {
	isEvent()
}

// RunStartedEvent is emitted once before the first batch.
type RunStartedEvent struct {
	TotalFiles     int
	MaxConcurrency int
	Timeout        time.Duration
}

// BatchStartedEvent is emitted when a batch is dispatched.
type BatchStartedEvent struct {
	Index int
	Files []m.Path
}

// FileScannedEvent is emitted for every file once its batch has joined.
type FileScannedEvent struct {
	Path    m.Path
	Outcome m.Outcome
}

// ProgressEvent carries the progress snapshot recomputed after a batch.
type ProgressEvent struct {
	Progress m.Progress
}

// RunFinishedEvent is emitted once after the last batch or on cancellation.
type RunFinishedEvent struct {
	Progress  m.Progress
	Cancelled bool
}

func (RunStartedEvent) isEvent()   {}
func (BatchStartedEvent) isEvent() {}
func (FileScannedEvent) isEvent()  {}
func (ProgressEvent) isEvent()     {}
func (RunFinishedEvent) isEvent()  {}
