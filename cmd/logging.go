package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var errNoLogSink = errors.New("no log destination configured")

// fallbackWriter writes to the first sink that accepts the record. A sink
// that fails once is skipped from then on. When every sink has failed the
// records are dropped and a single warning is printed.
type fallbackWriter struct {
	mu     sync.Mutex
	sinks  []io.Writer
	active int
	warned bool
	stderr io.Writer
}

func newFallbackWriter(stderr io.Writer, sinks ...io.Writer) *fallbackWriter {
	return &fallbackWriter{sinks: sinks, stderr: stderr}
}

func (w *fallbackWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var lastErr error

	for w.active < len(w.sinks) {
		_, err := w.sinks[w.active].Write(p)
		if err == nil {
			return len(p), nil
		}

		lastErr = err
		w.active++
	}

	if !w.warned {
		w.warned = true

		if lastErr == nil {
			lastErr = errNoLogSink
		}

		_, _ = fmt.Fprintf(w.stderr, "warning: logging disabled: %v\n", lastErr)
	}

	return len(p), nil
}

func newRotatingLog(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug. Records go
// to logPath, or to the configured fallback file when logPath is unusable.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	fallbackPath := viper.GetString(logFallbackKey)
	if strings.TrimSpace(fallbackPath) == "" {
		fallbackPath = defaultLogFallback()
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	sinks := []io.Writer{newRotatingLog(logPath)}
	if fallbackPath != logPath {
		sinks = append(sinks, newRotatingLog(fallbackPath))
	}

	handler := slog.NewTextHandler(newFallbackWriter(os.Stderr, sinks...), &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
