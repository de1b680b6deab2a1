package sigrules

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokStringID   // $name, $name*, $
	tokCountID    // #name
	tokNumber     // 12, 0x1f, 10KB
	tokText       // "..."
	tokHex        // { 4D 5A ?? }
	tokRegex      // /.../is
	tokPunct      // ( ) , : = { } ..
	tokComparison // == != < <= > >=
)

type token struct {
	kind  tokenKind
	text  string
	num   int64
	flags string
	line  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}

	return fmt.Sprintf("%q", t.text)
}

type lexer struct {
	src  string
	pos  int
	line int
	prev token
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) errorf(format string, args ...interface{}) error {
	return &CompileError{Line: l.line, Msg: fmt.Sprintf(format, args...)}
}

// tokenize splits the whole source up front; rule files are small.
func (l *lexer) tokenize() ([]token, error) {
	var tokens []token

	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)
		l.prev = tok

		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) skipSpaceAndComments() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]

		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "//"):
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return l.errorf("unterminated comment")
			}

			l.line += strings.Count(l.src[l.pos:l.pos+2+end], "\n")
			l.pos += end + 4
		default:
			return nil
		}
	}

	return nil
}

func (l *lexer) afterAssign() bool {
	return l.prev.kind == tokPunct && l.prev.text == "="
}

//nolint:cyclop // one branch per token class
func (l *lexer) next() (token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return token{}, err
	}

	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: l.line}, nil
	}

	c := l.src[l.pos]
	line := l.line

	switch {
	case c == '{' && l.afterAssign():
		return l.lexHex()
	case c == '/' && l.afterAssign():
		return l.lexRegex()
	case c == '"':
		return l.lexText()
	case c == '$' || c == '#':
		return l.lexStringID()
	case isDigit(c):
		return l.lexNumber()
	case isIdentStart(c):
		start := l.pos
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}

		return token{kind: tokIdent, text: l.src[start:l.pos], line: line}, nil
	case strings.HasPrefix(l.src[l.pos:], ".."):
		l.pos += 2
		return token{kind: tokPunct, text: "..", line: line}, nil
	}

	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			return token{kind: tokComparison, text: op, line: line}, nil
		}
	}

	if strings.ContainsRune("(),:={}-", rune(c)) {
		l.pos++
		return token{kind: tokPunct, text: string(c), line: line}, nil
	}

	return token{}, l.errorf("unexpected character %q", c)
}

func (l *lexer) lexStringID() (token, error) {
	start := l.pos
	sigil := l.src[l.pos]
	l.pos++

	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.pos++
	}

	if sigil == '$' && l.pos < len(l.src) && l.src[l.pos] == '*' {
		l.pos++
	}

	text := l.src[start:l.pos]
	if sigil == '#' {
		if len(text) == 1 {
			return token{}, l.errorf("missing identifier after '#'")
		}

		return token{kind: tokCountID, text: "$" + text[1:], line: l.line}, nil
	}

	return token{kind: tokStringID, text: text, line: l.line}, nil
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	digits, base := start, 10

	if strings.HasPrefix(l.src[l.pos:], "0x") || strings.HasPrefix(l.src[l.pos:], "0X") {
		l.pos += 2
		digits, base = l.pos, 16

		for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
			l.pos++
		}
	} else {
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}

	text := l.src[start:l.pos]

	n, err := strconv.ParseInt(l.src[digits:l.pos], base, 64)
	if err != nil {
		return token{}, l.errorf("invalid number %q", text)
	}

	switch {
	case strings.HasPrefix(l.src[l.pos:], "KB"):
		n *= 1024
		l.pos += 2
	case strings.HasPrefix(l.src[l.pos:], "MB"):
		n *= 1024 * 1024
		l.pos += 2
	}

	return token{kind: tokNumber, text: l.src[start:l.pos], num: n, line: l.line}, nil
}

func (l *lexer) lexText() (token, error) {
	line := l.line
	l.pos++

	var b strings.Builder

	for l.pos < len(l.src) {
		c := l.src[l.pos]

		switch c {
		case '"':
			l.pos++
			return token{kind: tokText, text: b.String(), line: line}, nil
		case '\n':
			return token{}, l.errorf("unterminated string")
		case '\\':
			if err := l.lexEscape(&b); err != nil {
				return token{}, err
			}
		default:
			b.WriteByte(c)
			l.pos++
		}
	}

	return token{}, l.errorf("unterminated string")
}

func (l *lexer) lexEscape(b *strings.Builder) error {
	if l.pos+1 >= len(l.src) {
		return l.errorf("unterminated escape sequence")
	}

	esc := l.src[l.pos+1]
	l.pos += 2

	switch esc {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case '\\', '"':
		b.WriteByte(esc)
	case 'x':
		if l.pos+2 > len(l.src) || !isHexDigit(l.src[l.pos]) || !isHexDigit(l.src[l.pos+1]) {
			return l.errorf("invalid \\x escape")
		}

		v, _ := strconv.ParseUint(l.src[l.pos:l.pos+2], 16, 8)
		b.WriteByte(byte(v))
		l.pos += 2
	default:
		return l.errorf("unknown escape sequence \\%c", esc)
	}

	return nil
}

func (l *lexer) lexHex() (token, error) {
	line := l.line

	end := strings.IndexByte(l.src[l.pos:], '}')
	if end < 0 {
		return token{}, l.errorf("unterminated hex string")
	}

	body := l.src[l.pos+1 : l.pos+end]
	l.line += strings.Count(body, "\n")
	l.pos += end + 1

	return token{kind: tokHex, text: body, line: line}, nil
}

func (l *lexer) lexRegex() (token, error) {
	line := l.line
	l.pos++

	var b strings.Builder

	for l.pos < len(l.src) {
		c := l.src[l.pos]

		switch {
		case c == '\n':
			return token{}, l.errorf("unterminated regular expression")
		case c == '\\' && l.pos+1 < len(l.src):
			if l.src[l.pos+1] == '/' {
				b.WriteByte('/')
			} else {
				b.WriteString(l.src[l.pos : l.pos+2])
			}

			l.pos += 2
		case c == '/':
			l.pos++

			start := l.pos
			for l.pos < len(l.src) && (l.src[l.pos] == 'i' || l.src[l.pos] == 's') {
				l.pos++
			}

			return token{kind: tokRegex, text: b.String(), flags: l.src[start:l.pos], line: line}, nil
		default:
			b.WriteByte(c)
			l.pos++
		}
	}

	return token{}, l.errorf("unterminated regular expression")
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
