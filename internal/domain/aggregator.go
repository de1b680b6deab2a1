package domain

import (
	"time"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

// Summarize folds a result table into a run report. Failed files contribute
// no matches and are counted per failure kind. TotalFiles defaults to the
// number of recorded files; the scheduler overrides it with the queue size.
func Summarize(table *m.ResultTable, elapsed time.Duration) m.RunReport {
	report := m.RunReport{
		FilesScanned:   table.Len(),
		TotalFiles:     table.Len(),
		FailuresByKind: map[string]int{},
		PerFileMatches: map[m.Path][]m.RuleID{},
		Files:          make([]m.FileResult, 0, table.Len()),
		Elapsed:        elapsed,
	}

	_ = table.Range(func(path m.Path, outcome m.Outcome) error {
		report.Files = append(report.Files, m.FileResult{Path: path, Outcome: outcome})

		if outcome.IsFailed() {
			report.FailedFiles++
			report.FailuresByKind[outcome.Failure.String()]++

			return nil
		}

		if len(outcome.Rules) > 0 {
			report.TotalMatches += len(outcome.Rules)
			report.PerFileMatches[path] = outcome.Rules
		}

		return nil
	})

	return report
}
