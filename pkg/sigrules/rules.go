// Package sigrules compiles and evaluates signature rules written in the
// subset of the YARA rule language used by web-shell and malware signature
// packs: text, hex and regular-expression strings with the common modifiers,
// and boolean conditions over string matches, match counts and file size.
package sigrules

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxMatchData bounds the bytes copied into a StringMatch.
const maxMatchData = 64

// readChunkSize is the unit in which ScanFile reads, checking ctx in between.
const readChunkSize = 1 << 20

// CompileError reports a syntax or semantic error in a rule source.
type CompileError struct {
	Line int
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Rule describes a compiled rule.
type Rule struct {
	Name    string
	Tags    []string
	Meta    map[string]interface{}
	Private bool
	Global  bool
}

type compiledRule struct {
	Rule

	strings []*stringDef
	cond    node
}

// StringMatch is one occurrence of a rule string in the scanned data.
type StringMatch struct {
	ID     string
	Offset int
	Data   []byte
}

// Match is a rule that evaluated to true for the scanned data.
type Match struct {
	Rule    string
	Tags    []string
	Meta    map[string]interface{}
	Strings []StringMatch
}

// RuleSet is an immutable set of compiled rules. It is safe for concurrent use.
type RuleSet struct {
	rules []*compiledRule
}

// Compile parses rule source text.
func Compile(src []byte) (*RuleSet, error) {
	tokens, err := newLexer(string(src)).tokenize()
	if err != nil {
		return nil, err
	}

	p := &parser{toks: tokens, names: make(map[string]int)}
	if err := p.parseFile(); err != nil {
		return nil, err
	}

	if len(p.rules) == 0 {
		return nil, &CompileError{Line: 1, Msg: "no rules defined"}
	}

	return &RuleSet{rules: p.rules}, nil
}

// CompileFile reads and compiles the rule file at path.
func CompileFile(path string) (*RuleSet, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	rs, err := Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return rs, nil
}

// Rules returns the rules of the set in declaration order.
func (rs *RuleSet) Rules() []Rule {
	rules := make([]Rule, 0, len(rs.rules))
	for _, rule := range rs.rules {
		rules = append(rules, rule.Rule)
	}

	return rules
}

// Scan evaluates every rule against data and returns the public rules that matched.
func (rs *RuleSet) Scan(ctx context.Context, data []byte) ([]Match, error) {
	state := newScanState(ctx, data, len(rs.rules))
	globalFailed := false

	for i, rule := range rs.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		state.results[i] = rule.cond.eval(state) != 0
		if state.err != nil {
			return nil, state.err
		}

		if rule.Global && !state.results[i] {
			globalFailed = true
		}
	}

	if globalFailed {
		return nil, nil
	}

	var matches []Match

	for i, rule := range rs.rules {
		if !state.results[i] || rule.Private {
			continue
		}

		matches = append(matches, Match{
			Rule:    rule.Name,
			Tags:    rule.Tags,
			Meta:    rule.Meta,
			Strings: stringMatches(state, rule),
		})
	}

	return matches, nil
}

// ScanFile reads the file at path and scans its contents. The read stops
// with ctx.Err() once ctx is done.
func (rs *RuleSet) ScanFile(ctx context.Context, path string) ([]Match, error) {
	data, err := readFile(ctx, path)
	if err != nil {
		return nil, err
	}

	return rs.Scan(ctx, data)
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	var buf bytes.Buffer

	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		buf.Grow(int(info.Size()))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		_, err := io.CopyN(&buf, f, readChunkSize)
		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}

		if err != nil {
			return nil, err
		}
	}
}

func stringMatches(state *scanState, rule *compiledRule) []StringMatch {
	var out []StringMatch

	for _, def := range rule.strings {
		if def.private {
			continue
		}

		spans, ok := state.cache[def]
		if !ok {
			continue
		}

		for _, sp := range spans {
			n := sp.n
			if n > maxMatchData {
				n = maxMatchData
			}

			data := make([]byte, n)
			copy(data, state.data.raw[sp.off:sp.off+n])
			out = append(out, StringMatch{ID: def.id, Offset: sp.off, Data: data})
		}
	}

	return out
}
