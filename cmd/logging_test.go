package cmd

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct {
	writes int
}

func (w *failingWriter) Write([]byte) (int, error) {
	w.writes++
	return 0, errors.New("disk full")
}

func TestFallbackWriter_UsesPrimary(t *testing.T) {
	var primary, secondary, stderr bytes.Buffer

	w := newFallbackWriter(&stderr, &primary, &secondary)

	n, err := w.Write([]byte("line\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "line\n", primary.String())
	assert.Empty(t, secondary.String())
	assert.Empty(t, stderr.String())
}

func TestFallbackWriter_SwitchesToSecondary(t *testing.T) {
	var secondary, stderr bytes.Buffer

	primary := &failingWriter{}
	w := newFallbackWriter(&stderr, primary, &secondary)

	_, _ = w.Write([]byte("one\n"))
	_, _ = w.Write([]byte("two\n"))

	assert.Equal(t, 1, primary.writes, "a failed sink is not retried")
	assert.Equal(t, "one\ntwo\n", secondary.String())
	assert.Empty(t, stderr.String())
}

func TestFallbackWriter_WarnsOnceWhenAllSinksFail(t *testing.T) {
	var stderr bytes.Buffer

	w := newFallbackWriter(&stderr, &failingWriter{}, &failingWriter{})

	for i := 0; i < 3; i++ {
		n, err := w.Write([]byte("dropped\n"))
		require.NoError(t, err)
		assert.Equal(t, 8, n)
	}

	assert.Equal(t, 1, strings.Count(stderr.String(), "logging disabled"))
	assert.Contains(t, stderr.String(), "disk full")
}

func TestConfigureLogger_FallsBackToSecondaryFile(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	dir := t.TempDir()

	// A regular file where the primary log directory should be.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	fallback := filepath.Join(dir, "fallback", "scan.log")
	viper.Set(logFallbackKey, fallback)
	t.Cleanup(func() { viper.Set(logFallbackKey, defaultLogFallback()) })

	configureLogger(filepath.Join(blocker, "scan.log"), true)
	slog.Debug("fallback check", "key", "value")

	contents, err := os.ReadFile(fallback)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "fallback check")
	assert.Contains(t, string(contents), "level=DEBUG")
}
