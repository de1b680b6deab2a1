//go:build yara

package adapter

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hillu/go-yara/v4"

	m "sigscan.dev/pkg/sigscan/internal/model"
)

// EngineYara scans with libyara. It is only available in builds tagged "yara".
const EngineYara = "yara"

func init() {
	RegisterEngine(EngineYara, func() RuleCompiler { return NewYaraRuleCompiler() })
}

// YaraRuleCompiler compiles rule files with libyara.
type YaraRuleCompiler struct{}

// NewYaraRuleCompiler constructs a YaraRuleCompiler.
func NewYaraRuleCompiler() *YaraRuleCompiler {
	return &YaraRuleCompiler{}
}

// Compile reads and compiles the rule file at source.
func (c *YaraRuleCompiler) Compile(ctx context.Context, source m.Path) (Matcher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(string(source))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	compiler, err := yara.NewCompiler()
	if err != nil {
		return nil, fmt.Errorf("create yara compiler: %w", err)
	}
	defer compiler.Destroy()

	if err := compiler.AddFile(f, ""); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	rules, err := compiler.GetRules()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	return &yaraMatcher{rules: rules}, nil
}

type yaraMatcher struct {
	rules *yara.Rules
}

func (ym *yaraMatcher) Scan(ctx context.Context, path m.Path, timeout time.Duration) ([]m.RuleID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(string(path)); err != nil {
		return nil, err
	}

	var matches yara.MatchRules
	if err := ym.rules.ScanFile(string(path), 0, timeout, &matches); err != nil {
		return nil, fmt.Errorf("yara scan %s: %w", path, err)
	}

	ids := make([]m.RuleID, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, m.RuleID(match.Rule))
	}

	return ids, nil
}
