package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateOutcome is returned when a file already has a recorded outcome.
var ErrDuplicateOutcome = errors.New("outcome already recorded")

// ResultTable maps each scanned file to exactly one outcome. Entries are
// append-only and iterate in insertion order.
type ResultTable struct {
	outcomes map[Path]Outcome
	order    []Path
}

// NewResultTable creates an empty table sized for capacity entries.
func NewResultTable(capacity int) *ResultTable {
	if capacity < 0 {
		capacity = 0
	}

	return &ResultTable{
		outcomes: make(map[Path]Outcome, capacity),
		order:    make([]Path, 0, capacity),
	}
}

// Record stores the outcome for path.
func (t *ResultTable) Record(path Path, outcome Outcome) error {
	if _, ok := t.outcomes[path]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOutcome, path)
	}

	t.outcomes[path] = outcome
	t.order = append(t.order, path)

	return nil
}

// Get returns the outcome recorded for path.
func (t *ResultTable) Get(path Path) (Outcome, bool) {
	outcome, ok := t.outcomes[path]
	return outcome, ok
}

// Len returns the number of recorded files.
func (t *ResultTable) Len() int {
	if t == nil {
		return 0
	}

	return len(t.order)
}

// Paths returns the recorded paths in insertion order.
func (t *ResultTable) Paths() []Path {
	paths := make([]Path, len(t.order))
	copy(paths, t.order)

	return paths
}

// Range calls fn for every entry in insertion order and stops at the first error.
func (t *ResultTable) Range(fn func(path Path, outcome Outcome) error) error {
	if t == nil {
		return nil
	}

	for _, path := range t.order {
		if err := fn(path, t.outcomes[path]); err != nil {
			return err
		}
	}

	return nil
}
