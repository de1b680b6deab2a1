package adapter

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

type stubMatcher struct {
	source m.Path
}

func (s *stubMatcher) Scan(context.Context, m.Path, time.Duration) ([]m.RuleID, error) {
	return nil, nil
}

type stubCompiler struct {
	failures map[m.Path]error
	calls    []m.Path
}

func (s *stubCompiler) Compile(_ context.Context, source m.Path) (Matcher, error) {
	s.calls = append(s.calls, source)
	if err, ok := s.failures[source]; ok {
		return nil, err
	}

	return &stubMatcher{source: source}, nil
}

func TestLocalRuleLoader_Load(t *testing.T) {
	t.Run("primary path wins", func(t *testing.T) {
		dir := t.TempDir()
		primary := writeRules(t, dir, "php.yar", testRules)
		secondary := writeRules(t, dir, "fallback.yar", testRules)

		loaded, err := NewLocalRuleLoader().Load(context.Background(), "", []m.Path{primary, secondary})
		require.NoError(t, err)
		assert.Equal(t, primary, loaded.Source)
		assert.Equal(t, EngineNative, loaded.Engine)
		assert.NotNil(t, loaded.Matcher)
	})

	t.Run("missing primary falls back", func(t *testing.T) {
		dir := t.TempDir()
		secondary := writeRules(t, dir, "fallback.yar", testRules)

		loaded, err := NewLocalRuleLoader().Load(context.Background(), EngineNative, []m.Path{m.Path(filepath.Join(dir, "php.yar")), secondary})
		require.NoError(t, err)
		assert.Equal(t, secondary, loaded.Source)
	})

	t.Run("compile failure falls back", func(t *testing.T) {
		dir := t.TempDir()
		primary := writeRules(t, dir, "php.yar", "ignored")
		secondary := writeRules(t, dir, "fallback.yar", "ignored")

		compiler := &stubCompiler{failures: map[m.Path]error{primary: errors.New("syntax error")}}
		loader := &LocalRuleLoader{newCompiler: func(string) (RuleCompiler, error) { return compiler, nil }}

		loaded, err := loader.Load(context.Background(), "stub", []m.Path{primary, secondary})
		require.NoError(t, err)
		assert.Equal(t, secondary, loaded.Source)
		assert.Equal(t, "stub", loaded.Engine)
		assert.Equal(t, []m.Path{primary, secondary}, compiler.calls)
	})

	t.Run("all paths fail", func(t *testing.T) {
		dir := t.TempDir()
		bad := writeRules(t, dir, "bad.yar", "rule {")

		_, err := NewLocalRuleLoader().Load(context.Background(), "", []m.Path{m.Path(filepath.Join(dir, "missing.yar")), bad})
		require.ErrorIs(t, err, ErrNoRules)
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.Contains(t, err.Error(), "bad.yar")
	})

	t.Run("no paths", func(t *testing.T) {
		_, err := NewLocalRuleLoader().Load(context.Background(), "", nil)
		require.ErrorIs(t, err, ErrNoRules)
	})

	t.Run("unknown engine", func(t *testing.T) {
		_, err := NewLocalRuleLoader().Load(context.Background(), "nope", []m.Path{"php.yar"})
		require.ErrorIs(t, err, ErrUnknownEngine)
	})
}
