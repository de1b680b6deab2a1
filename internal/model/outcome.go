package model

import (
	"errors"
	"fmt"
	"sort"
)

// FailureKind classifies why a file could not be scanned.
type FailureKind int

const (
	// FailureNone marks a successfully scanned file.
	FailureNone FailureKind = iota
	// FailureTimeout means the scan did not finish within the per-file timeout.
	FailureTimeout
	// FailureIO means the file could not be read.
	FailureIO
	// FailureMatcher means the rule engine reported an error for the file.
	FailureMatcher
)

// FailureKinds lists every failure variant in display order.
var FailureKinds = []FailureKind{FailureTimeout, FailureIO, FailureMatcher}

var failureKindNames = map[FailureKind]string{
	FailureNone:    "none",
	FailureTimeout: "timeout",
	FailureIO:      "io_error",
	FailureMatcher: "matcher_error",
}

// ErrUnknownFailureKind is returned when decoding an unrecognised kind.
var ErrUnknownFailureKind = errors.New("unknown failure kind")

func (k FailureKind) String() string {
	if name, ok := failureKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k FailureKind) MarshalText() ([]byte, error) {
	if _, ok := failureKindNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFailureKind, int(k))
	}

	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FailureKind) UnmarshalText(text []byte) error {
	for kind, name := range failureKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrUnknownFailureKind, string(text))
}

// Outcome is the recorded result of scanning one file: either the set of
// matched rules (possibly empty) or a failure of a given kind.
type Outcome struct {
	Rules   []RuleID    `yaml:"rules,omitempty"`
	Failure FailureKind `yaml:"failure,omitempty"`
	Err     string      `yaml:"error,omitempty"`
}

// Matched builds a successful outcome. Rule IDs are deduplicated and sorted.
func Matched(rules ...RuleID) Outcome {
	if len(rules) == 0 {
		return Outcome{}
	}

	seen := make(map[RuleID]struct{}, len(rules))
	set := make([]RuleID, 0, len(rules))

	for _, rule := range rules {
		if _, ok := seen[rule]; ok {
			continue
		}

		seen[rule] = struct{}{}
		set = append(set, rule)
	}

	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })

	return Outcome{Rules: set}
}

// Failed builds a failure outcome. A FailureNone kind is treated as a matcher error.
func Failed(kind FailureKind, err error) Outcome {
	if kind == FailureNone {
		kind = FailureMatcher
	}

	outcome := Outcome{Failure: kind}
	if err != nil {
		outcome.Err = err.Error()
	}

	return outcome
}

// IsFailed reports whether the file could not be scanned.
func (o Outcome) IsFailed() bool {
	return o.Failure != FailureNone
}

// MatchCount returns the number of matched rules; failures count as zero.
func (o Outcome) MatchCount() int {
	if o.IsFailed() {
		return 0
	}

	return len(o.Rules)
}

func (o Outcome) String() string {
	if o.IsFailed() {
		return "failed(" + o.Failure.String() + ")"
	}

	if len(o.Rules) == 0 {
		return "clean"
	}

	return fmt.Sprintf("matched(%d)", len(o.Rules))
}
