package domain

import m "sigscan.dev/pkg/sigscan/internal/model"

// ComputeProgress derives the progress snapshot for scanned of total files.
// Percent is floor(100*scanned/total), clamped to [0, 100]. It is exactly
// 100 when scanned equals total and below 100 otherwise; an empty run is
// complete.
func ComputeProgress(scanned, total int) m.Progress {
	if scanned < 0 {
		scanned = 0
	}

	if total <= 0 {
		return m.Progress{FilesScanned: scanned, TotalFiles: 0, Percent: 100}
	}

	if scanned >= total {
		return m.Progress{FilesScanned: total, TotalFiles: total, Percent: 100}
	}

	return m.Progress{FilesScanned: scanned, TotalFiles: total, Percent: scanned * 100 / total}
}
