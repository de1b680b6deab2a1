package adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

// ErrNoRules is returned when none of the configured rule paths produced a matcher.
var ErrNoRules = errors.New("no usable rule file")

// LoadedRules is the matcher compiled from the first usable rule path.
type LoadedRules struct {
	Matcher Matcher
	Source  m.Path
	Engine  string
}

// RuleLoader resolves the configured rule paths to a single matcher.
type RuleLoader interface {
	Load(ctx context.Context, engine string, paths []m.Path) (LoadedRules, error)
}

// LocalRuleLoader loads rule files from the local filesystem.
type LocalRuleLoader struct {
	newCompiler func(engine string) (RuleCompiler, error)
}

// NewLocalRuleLoader constructs a LocalRuleLoader backed by the engine registry.
func NewLocalRuleLoader() *LocalRuleLoader {
	return &LocalRuleLoader{newCompiler: NewRuleCompiler}
}

// Load tries each path in order. A missing file or a file that fails to
// compile falls through to the next path.
func (l *LocalRuleLoader) Load(ctx context.Context, engine string, paths []m.Path) (LoadedRules, error) {
	compiler, err := l.newCompiler(engine)
	if err != nil {
		return LoadedRules{}, err
	}

	if len(paths) == 0 {
		return LoadedRules{}, fmt.Errorf("%w: no rule paths configured", ErrNoRules)
	}

	errs := []error{ErrNoRules}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return LoadedRules{}, err
		}

		if _, err := os.Stat(string(path)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("rule file not found, trying next", "path", path)
			} else {
				slog.Warn("rule file not accessible, trying next", "path", path, "error", err)
			}

			errs = append(errs, err)

			continue
		}

		matcher, err := compiler.Compile(ctx, path)
		if err != nil {
			slog.Warn("rule file failed to compile, trying next", "path", path, "engine", engine, "error", err)
			errs = append(errs, fmt.Errorf("compile %s: %w", path, err))

			continue
		}

		slog.Info("loaded rules", "path", path, "engine", engineName(engine))

		return LoadedRules{Matcher: matcher, Source: path, Engine: engineName(engine)}, nil
	}

	return LoadedRules{}, errors.Join(errs...)
}

func engineName(engine string) string {
	if engine == "" {
		return EngineNative
	}

	return engine
}
