package model

import "time"

// Progress is a point-in-time snapshot of a scan run.
type Progress struct {
	FilesScanned int
	TotalFiles   int
	Percent      int
}

// Done reports whether every file has been scanned.
func (p Progress) Done() bool {
	return p.FilesScanned == p.TotalFiles
}

// FileResult pairs a scanned file with its outcome.
type FileResult struct {
	Path    Path `yaml:"path"`
	Outcome `yaml:",inline"`
}

// RunReport summarises a finished (or cancelled) scan run.
type RunReport struct {
	RunID          string            `yaml:"run_id"`
	Root           Path              `yaml:"root"`
	StartedAt      time.Time         `yaml:"started_at"`
	FilesScanned   int               `yaml:"files_scanned"`
	TotalFiles     int               `yaml:"total_files"`
	TotalMatches   int               `yaml:"total_matches"`
	FailedFiles    int               `yaml:"failed_files"`
	FailuresByKind map[string]int    `yaml:"failures_by_kind,omitempty"`
	Elapsed        time.Duration     `yaml:"elapsed"`
	PerFileMatches map[Path][]RuleID `yaml:"matches,omitempty"`
	Files          []FileResult      `yaml:"files,omitempty"`
	Cancelled      bool              `yaml:"cancelled,omitempty"`
}

// MatchedPaths returns the files with at least one match in scan order.
func (r RunReport) MatchedPaths() []Path {
	paths := make([]Path, 0, len(r.PerFileMatches))

	for _, file := range r.Files {
		if _, ok := r.PerFileMatches[file.Path]; ok {
			paths = append(paths, file.Path)
		}
	}

	return paths
}
