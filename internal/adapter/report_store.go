package adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

// ErrNoReports is returned when a reports directory holds no saved report.
var ErrNoReports = errors.New("no reports found")

const (
	reportPrefix      = "report-"
	reportExt         = ".yaml"
	reportLockName    = ".lock"
	reportTimeLayout  = "20060102-150405.000"
	lockRetryInterval = 50 * time.Millisecond
)

// ReportStore persists run reports.
type ReportStore interface {
	SaveReport(ctx context.Context, dir m.Path, report m.RunReport) (m.Path, error)
	LoadLatest(ctx context.Context, dir m.Path) (m.RunReport, error)
}

// LocalReportStore writes reports as YAML files into a directory. Writes are
// serialised across processes with a lock file and land atomically.
type LocalReportStore struct{}

// NewReportStore constructs a LocalReportStore.
func NewReportStore() *LocalReportStore {
	return &LocalReportStore{}
}

// SaveReport writes report into dir and returns the created file path.
func (s *LocalReportStore) SaveReport(ctx context.Context, dir m.Path, report m.RunReport) (m.Path, error) {
	if err := os.MkdirAll(string(dir), 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	lock := flock.New(filepath.Join(string(dir), reportLockName))

	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return "", fmt.Errorf("lock reports dir: %w", err)
	}

	if !locked {
		return "", fmt.Errorf("lock reports dir: %s is busy", dir)
	}

	defer func() {
		_ = lock.Unlock()
	}()

	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	path := filepath.Join(string(dir), reportFileName(report))
	if err := atomicWrite(path, data); err != nil {
		return "", err
	}

	return m.Path(path), nil
}

// LoadLatest reads the most recently saved report in dir.
func (s *LocalReportStore) LoadLatest(ctx context.Context, dir m.Path) (m.RunReport, error) {
	if err := ctx.Err(); err != nil {
		return m.RunReport{}, err
	}

	matches, err := filepath.Glob(filepath.Join(string(dir), reportPrefix+"*"+reportExt))
	if err != nil {
		return m.RunReport{}, fmt.Errorf("list reports: %w", err)
	}

	if len(matches) == 0 {
		return m.RunReport{}, fmt.Errorf("%w in %s", ErrNoReports, dir)
	}

	sort.Strings(matches)
	latest := matches[len(matches)-1]

	data, err := os.ReadFile(latest)
	if err != nil {
		return m.RunReport{}, fmt.Errorf("read report: %w", err)
	}

	var report m.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return m.RunReport{}, fmt.Errorf("decode report %s: %w", latest, err)
	}

	return report, nil
}

func reportFileName(report m.RunReport) string {
	started := report.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	id := report.RunID
	if len(id) > 8 {
		id = id[:8]
	}

	return reportPrefix + started.UTC().Format(reportTimeLayout) + "-" + id + reportExt
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpPath := tmp.Name()

	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}

	tmp = nil

	return nil
}
