package sigrules

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchedRules(t *testing.T, src, data string) []string {
	t.Helper()

	rs, err := Compile([]byte(src))
	require.NoError(t, err)

	matches, err := rs.Scan(context.Background(), []byte(data))
	require.NoError(t, err)

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.Rule)
	}

	return names
}

func TestScan_TextStrings(t *testing.T) {
	tests := []struct {
		name string
		src  string
		data string
		want bool
	}{
		{"plain hit", `rule r { strings: $a = "eval(" condition: $a }`, "<?php eval($_POST['x']);", true},
		{"plain miss", `rule r { strings: $a = "eval(" condition: $a }`, "<?php echo 1;", false},
		{"case sensitive", `rule r { strings: $a = "EVAL(" condition: $a }`, "eval(", false},
		{"nocase", `rule r { strings: $a = "EVAL(" nocase condition: $a }`, "eVaL(", true},
		{"fullword rejects prefix", `rule r { strings: $a = "exec" fullword condition: $a }`, "execute()", false},
		{"fullword accepts word", `rule r { strings: $a = "exec" fullword condition: $a }`, "shell_exec exec($c)", true},
		{"wide", `rule r { strings: $a = "cmd" wide condition: $a }`, "c\x00m\x00d\x00", true},
		{"wide only skips ascii", `rule r { strings: $a = "cmd" wide condition: $a }`, "cmd", false},
		{"wide ascii", `rule r { strings: $a = "cmd" wide ascii condition: $a }`, "cmd", true},
		{"escapes", `rule r { strings: $a = "a\x41\"b" condition: $a }`, `aA"b`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchedRules(t, tt.src, tt.data)
			if tt.want {
				assert.Equal(t, []string{"r"}, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestScan_HexStrings(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		data string
		want bool
	}{
		{"exact", "3C 3F 70 68 70", "<?php", true},
		{"wildcard byte", "3C 3F ?? 68", "<?ph", true},
		{"nibble wildcard", "4?", "A", true},
		{"nibble wildcard miss", "4?", "a", false},
		{"fixed jump", "61 [2] 64", "axxd", true},
		{"fixed jump miss", "61 [2] 64", "axd", false},
		{"range jump", "61 [0-3] 64", "ad", true},
		{"range jump upper", "61 [0-3] 64", "axxxd", true},
		{"range jump exceeded", "61 [0-3] 64", "axxxxd", false},
		{"open jump", "61 [2-] 64", "axxxxxxxd", true},
		{"alternation first", "61 ( 62 | 63 64 ) 65", "abe", true},
		{"alternation second", "61 ( 62 | 63 64 ) 65", "acde", true},
		{"alternation miss", "61 ( 62 | 63 64 ) 65", "ace", false},
		{"glued tokens", "61(62|63)[1]65", "acxe", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "rule r { strings: $h = { " + tt.hex + " } condition: $h }"
			got := matchedRules(t, src, tt.data)
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestScan_RegexStrings(t *testing.T) {
	src := `
rule decode { strings: $r = /base64_decode\s*\(/ condition: $r }
rule shout { strings: $r = /SYSTEM\(/i condition: $r }
rule dotall { strings: $r = /a.b/s condition: $r }
rule path { strings: $r = /\/etc\/passwd/ condition: $r }
`
	assert.Equal(t, []string{"decode"}, matchedRules(t, src, "base64_decode  ($x)"))
	assert.Equal(t, []string{"shout"}, matchedRules(t, src, "system($cmd)"))
	assert.Equal(t, []string{"dotall"}, matchedRules(t, src, "a\nb"))
	assert.Equal(t, []string{"path"}, matchedRules(t, src, "cat /etc/passwd"))
}

func TestScan_Conditions(t *testing.T) {
	strs := `strings: $a1 = "foo" $a2 = "bar" $b = "baz" `
	data := "foo foo bar"

	tests := []struct {
		cond string
		want bool
	}{
		{"$a1 and $a2", true},
		{"$a1 and $b", false},
		{"$b or $a2", true},
		{"not $b", true},
		{"not ($a1 or $b)", false},
		{"#a1 == 2", true},
		{"#a1 > 2", false},
		{"#b == 0", true},
		{"filesize == 11", true},
		{"filesize < 1KB", true},
		{"filesize > 1MB", false},
		{"any of them", true},
		{"all of them", false},
		{"all of ($a*)", true},
		{"none of ($b)", true},
		{"2 of them", true},
		{"3 of them", false},
		{"any of ($a2, $b)", true},
		{"$a1 at 0", true},
		{"$a1 at 1", false},
		{"$a2 in (0..8)", true},
		{"$a2 in (0..7)", false},
		{"true", true},
		{"false or $a1", true},
		{"#a1 == 2 and #a2 == 1 and not $b", true},
		{"0x0b == filesize", true},
	}

	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			src := "rule r { " + strs + "condition: " + tt.cond + " }"
			got := matchedRules(t, src, data)
			assert.Equal(t, tt.want, len(got) == 1)
		})
	}
}

func TestScan_RuleReferencesAndModifiers(t *testing.T) {
	src := `
private rule is_php { strings: $open = "<?php" condition: $open at 0 }
rule php_eval : webshell php {
	meta:
		author = "ops"
		severity = 3
		enabled = true
	strings:
		$e = "eval("
	condition:
		is_php and $e
}
`
	rs, err := Compile([]byte(src))
	require.NoError(t, err)

	matches, err := rs.Scan(context.Background(), []byte("<?php eval($x);"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	match := matches[0]
	assert.Equal(t, "php_eval", match.Rule)
	assert.Equal(t, []string{"webshell", "php"}, match.Tags)
	assert.Equal(t, "ops", match.Meta["author"])
	assert.Equal(t, int64(3), match.Meta["severity"])
	assert.Equal(t, true, match.Meta["enabled"])
	require.Len(t, match.Strings, 1)
	assert.Equal(t, "$e", match.Strings[0].ID)
	assert.Equal(t, 6, match.Strings[0].Offset)
	assert.Equal(t, []byte("eval("), match.Strings[0].Data)

	matches, err = rs.Scan(context.Background(), []byte("<html> eval("))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestScan_GlobalRule(t *testing.T) {
	src := `
global rule small { condition: filesize < 100 }
rule hit { strings: $a = "x" condition: $a }
`
	assert.Equal(t, []string{"small", "hit"}, matchedRules(t, src, "x"))

	big := make([]byte, 200)
	for i := range big {
		big[i] = 'x'
	}

	assert.Empty(t, matchedRules(t, src, string(big)))
}

func TestScan_PrivateStringHidden(t *testing.T) {
	src := `rule r { strings: $hidden = "secret" private $shown = "token" condition: all of them }`

	rs, err := Compile([]byte(src))
	require.NoError(t, err)

	matches, err := rs.Scan(context.Background(), []byte("secret token"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Len(t, matches[0].Strings, 1)
	assert.Equal(t, "$shown", matches[0].Strings[0].ID)
}

func TestScan_AnonymousStrings(t *testing.T) {
	src := `rule r { strings: $ = "one" $ = "two" condition: all of them }`

	assert.Equal(t, []string{"r"}, matchedRules(t, src, "one two"))
	assert.Empty(t, matchedRules(t, src, "one"))
}

func TestScan_Comments(t *testing.T) {
	src := `
import "pe"
// line comment
/* block
   comment */
rule r {
	strings:
		$a = "x" // trailing
	condition:
		$a /* inline */
}
`
	assert.Equal(t, []string{"r"}, matchedRules(t, src, "x"))
}

func TestScan_Cancelled(t *testing.T) {
	rs, err := Compile([]byte(`rule r { strings: $a = "x" condition: $a }`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = rs.Scan(ctx, []byte("x"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestScanFile(t *testing.T) {
	rs, err := Compile([]byte(`rule r { strings: $a = "shell" condition: $a }`))
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.php")
	require.NoError(t, os.WriteFile(path, []byte("<?php shell();"), 0o600))

	matches, err := rs.ScanFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	_, err = rs.ScanFile(context.Background(), filepath.Join(dir, "missing.php"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	var pathErr *fs.PathError
	assert.True(t, errors.As(err, &pathErr))
}

func TestScanFile_LargeFileAndCancellation(t *testing.T) {
	rs, err := Compile([]byte(`rule tail { strings: $a = "eval(" condition: $a and filesize > 2MB }`))
	require.NoError(t, err)

	data := make([]byte, 3*readChunkSize+17)
	for i := range data {
		data[i] = 'A'
	}

	copy(data[len(data)-5:], "eval(")

	path := filepath.Join(t.TempDir(), "big.php")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	matches, err := rs.ScanFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "tail", matches[0].Rule)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = rs.ScanFile(ctx, path)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"empty", "", 1},
		{"undefined string", "rule r {\n condition: $a\n}", 2},
		{"duplicate rule", "rule r { condition: true }\nrule r { condition: true }", 2},
		{"unterminated text", "rule r {\n strings:\n  $a = \"abc\n condition: $a }", 3},
		{"bad hex", "rule r { strings: $h = { 4G } condition: $h }", 1},
		{"hex starts with jump", "rule r { strings: $h = { [2] 41 } condition: $h }", 1},
		{"undefined rule", "rule r { condition: other }", 1},
		{"empty strings section", "rule r { strings: condition: true }", 1},
		{"bad regex", "rule r { strings: $r = /(/ condition: $r }", 1},
		{"type mismatch", "rule r { strings: $a = \"x\" condition: $a == 1 }", 1},
		{"include", "include \"other.yar\"", 1},
		{"missing condition", "rule r { strings: $a = \"x\" }", 1},
		{"keyword rule name", "rule them { condition: true }", 1},
		{"hex with nocase", "rule r { strings: $h = { 41 } nocase condition: $h }", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]byte(tt.src))
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.line, compileErr.Line)
		})
	}
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "php.yar")
	require.NoError(t, os.WriteFile(path, []byte("rule a { condition: true }\nprivate rule b { condition: a }"), 0o600))

	rs, err := CompileFile(path)
	require.NoError(t, err)

	rules := rs.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].Name)
	assert.True(t, rules[1].Private)

	_, err = CompileFile(filepath.Join(dir, "missing.yar"))
	require.ErrorIs(t, err, fs.ErrNotExist)

	bad := filepath.Join(dir, "bad.yar")
	require.NoError(t, os.WriteFile(bad, []byte("rule {"), 0o600))

	_, err = CompileFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yar")
}
