package adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	m "sigscan.dev/pkg/sigscan/internal/model"
	"sigscan.dev/pkg/sigscan/pkg/sigrules"
)

// EngineNative is the built-in rule engine.
const EngineNative = "native"

var (
	// ErrUnknownEngine is returned when no rule engine is registered under a name.
	ErrUnknownEngine = errors.New("unknown rule engine")
	// ErrFileTooLarge is returned for files above the scan size limit.
	ErrFileTooLarge = errors.New("file exceeds scan size limit")
)

// Matcher scans a single file against a compiled rule set. Implementations
// must be safe for concurrent use.
type Matcher interface {
	Scan(ctx context.Context, path m.Path, timeout time.Duration) ([]m.RuleID, error)
}

// RuleCompiler turns a rule file into a Matcher.
type RuleCompiler interface {
	Compile(ctx context.Context, source m.Path) (Matcher, error)
}

var (
	enginesMu sync.RWMutex
	engines   = map[string]func() RuleCompiler{
		EngineNative: func() RuleCompiler { return NewNativeRuleCompiler() },
	}
)

// RegisterEngine makes a rule engine available under name.
func RegisterEngine(name string, factory func() RuleCompiler) {
	enginesMu.Lock()
	defer enginesMu.Unlock()

	engines[name] = factory
}

// Engines returns the registered engine names in sorted order.
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()

	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// NewRuleCompiler returns the compiler registered under engine.
func NewRuleCompiler(engine string) (RuleCompiler, error) {
	if engine == "" {
		engine = EngineNative
	}

	enginesMu.RLock()
	factory, ok := engines[engine]
	enginesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownEngine, engine, Engines())
	}

	return factory(), nil
}

// NativeRuleCompiler compiles rules with the pure-Go sigrules engine.
type NativeRuleCompiler struct{}

// NewNativeRuleCompiler constructs a NativeRuleCompiler.
func NewNativeRuleCompiler() *NativeRuleCompiler {
	return &NativeRuleCompiler{}
}

// Compile reads and compiles the rule file at source.
func (c *NativeRuleCompiler) Compile(ctx context.Context, source m.Path) (Matcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rules, err := sigrules.CompileFile(string(source))
	if err != nil {
		return nil, err
	}

	return &nativeMatcher{rules: rules}, nil
}

type nativeMatcher struct {
	rules *sigrules.RuleSet
}

func (nm *nativeMatcher) Scan(ctx context.Context, path m.Path, timeout time.Duration) ([]m.RuleID, error) {
	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	matches, err := nm.rules.ScanFile(ctx, string(path))
	if err != nil {
		return nil, err
	}

	ids := make([]m.RuleID, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, m.RuleID(match.Rule))
	}

	return ids, nil
}

// LimitFileSize wraps matcher so that files larger than maxBytes fail with
// an *fs.PathError before any engine reads them. A maxBytes of zero or less
// returns matcher unchanged.
func LimitFileSize(matcher Matcher, maxBytes int64) Matcher {
	if maxBytes <= 0 {
		return matcher
	}

	return &sizeLimitedMatcher{next: matcher, maxBytes: maxBytes}
}

type sizeLimitedMatcher struct {
	next     Matcher
	maxBytes int64
}

func (sm *sizeLimitedMatcher) Scan(ctx context.Context, path m.Path, timeout time.Duration) ([]m.RuleID, error) {
	info, err := os.Stat(string(path))
	if err != nil {
		return nil, err
	}

	if info.Size() > sm.maxBytes {
		return nil, &fs.PathError{
			Op:   "scan",
			Path: string(path),
			Err:  fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, info.Size(), sm.maxBytes),
		}
	}

	return sm.next.Scan(ctx, path, timeout)
}
