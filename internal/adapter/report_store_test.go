package adapter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

func sampleReport(started time.Time, runID string) m.RunReport {
	return m.RunReport{
		RunID:          runID,
		Root:           "site",
		StartedAt:      started,
		FilesScanned:   3,
		TotalFiles:     3,
		TotalMatches:   1,
		FailedFiles:    1,
		FailuresByKind: map[string]int{m.FailureIO.String(): 1},
		Elapsed:        1500 * time.Millisecond,
		PerFileMatches: map[m.Path][]m.RuleID{"site/a.php": {"R1"}},
		Files: []m.FileResult{
			{Path: "site/a.php", Outcome: m.Matched("R1")},
			{Path: "site/b.php", Outcome: m.Matched()},
			{Path: "site/c.php", Outcome: m.Failed(m.FailureIO, os.ErrPermission)},
		},
	}
}

func TestLocalReportStore_SaveAndLoad(t *testing.T) {
	store := NewReportStore()
	dir := m.Path(filepath.Join(t.TempDir(), "reports"))

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report := sampleReport(started, "0123456789abcdef")

	path, err := store.SaveReport(context.Background(), dir, report)
	require.NoError(t, err)
	assert.Equal(t, "report-20260102-030405.000-01234567.yaml", filepath.Base(string(path)))

	loaded, err := store.LoadLatest(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, report.RunID, loaded.RunID)
	assert.Equal(t, report.Elapsed, loaded.Elapsed)
	assert.True(t, report.StartedAt.Equal(loaded.StartedAt))
	assert.Equal(t, report.FailuresByKind, loaded.FailuresByKind)
	assert.Equal(t, report.PerFileMatches, loaded.PerFileMatches)
	require.Len(t, loaded.Files, 3)
	assert.Equal(t, m.FailureIO, loaded.Files[2].Failure)
	assert.Equal(t, []m.RuleID{"R1"}, loaded.Files[0].Rules)

	entries, err := os.ReadDir(string(dir))
	require.NoError(t, err)

	for _, entry := range entries {
		assert.False(t, strings.HasPrefix(entry.Name(), ".tmp-"), "temp file left behind: %s", entry.Name())
	}
}

func TestLocalReportStore_LoadLatestPicksNewest(t *testing.T) {
	store := NewReportStore()
	dir := m.Path(t.TempDir())

	older := sampleReport(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "aaaaaaaa")
	newer := sampleReport(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "bbbbbbbb")

	_, err := store.SaveReport(context.Background(), dir, newer)
	require.NoError(t, err)
	_, err = store.SaveReport(context.Background(), dir, older)
	require.NoError(t, err)

	loaded, err := store.LoadLatest(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "bbbbbbbb", loaded.RunID)
}

func TestLocalReportStore_AssignsRunID(t *testing.T) {
	store := NewReportStore()
	dir := m.Path(t.TempDir())

	_, err := store.SaveReport(context.Background(), dir, m.RunReport{StartedAt: time.Now()})
	require.NoError(t, err)

	loaded, err := store.LoadLatest(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, loaded.RunID, 36)
}

func TestLocalReportStore_NoReports(t *testing.T) {
	_, err := NewReportStore().LoadLatest(context.Background(), m.Path(t.TempDir()))
	require.ErrorIs(t, err, ErrNoReports)
}

func TestLocalReportStore_CorruptReport(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report-1.yaml"), []byte("files: [unclosed"), 0o600))

	_, err := NewReportStore().LoadLatest(context.Background(), m.Path(dir))
	require.Error(t, err)
}
