package sigrules

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// maxMatchesPerString caps the recorded matches of a single string per scan.
const maxMatchesPerString = 1_000_000

const ctxCheckInterval = 1 << 14

type span struct {
	off int
	n   int
}

type pattern interface {
	find(ctx context.Context, data *scanData) ([]span, error)
}

type stringDef struct {
	id      string
	private bool
	pattern pattern
}

type modifiers struct {
	nocase   bool
	wide     bool
	ascii    bool
	fullword bool
	private  bool
}

func parseModifier(mods *modifiers, name string) bool {
	switch name {
	case "nocase":
		mods.nocase = true
	case "wide":
		mods.wide = true
	case "ascii":
		mods.ascii = true
	case "fullword":
		mods.fullword = true
	case "private":
		mods.private = true
	default:
		return false
	}

	return true
}

type textVariant struct {
	needle []byte
	wide   bool
}

type textPattern struct {
	variants []textVariant
	nocase   bool
	fullword bool
}

func newTextPattern(text string, mods modifiers) (*textPattern, error) {
	if text == "" {
		return nil, fmt.Errorf("empty string")
	}

	needle := []byte(text)
	if mods.nocase {
		needle = lowerASCII(needle)
	}

	p := &textPattern{nocase: mods.nocase, fullword: mods.fullword}

	if !mods.wide || mods.ascii {
		p.variants = append(p.variants, textVariant{needle: needle})
	}

	if mods.wide {
		wide := make([]byte, 0, len(needle)*2)
		for _, c := range needle {
			wide = append(wide, c, 0)
		}

		p.variants = append(p.variants, textVariant{needle: wide, wide: true})
	}

	return p, nil
}

func (p *textPattern) find(ctx context.Context, data *scanData) ([]span, error) {
	haystack := data.raw
	if p.nocase {
		haystack = data.lower()
	}

	var spans []span

	for _, variant := range p.variants {
		pos := 0

		for pos <= len(haystack)-len(variant.needle) {
			idx := bytes.Index(haystack[pos:], variant.needle)
			if idx < 0 {
				break
			}

			off := pos + idx
			pos = off + 1

			if p.fullword && !isWordBounded(data.raw, off, len(variant.needle), variant.wide) {
				continue
			}

			spans = append(spans, span{off: off, n: len(variant.needle)})
			if len(spans) >= maxMatchesPerString {
				return spans, nil
			}

			if len(spans)%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
		}
	}

	if len(p.variants) > 1 {
		sortSpans(spans)
	}

	return spans, nil
}

type hexKind int

const (
	hexByte hexKind = iota
	hexJump
	hexAlt
)

type hexElem struct {
	kind  hexKind
	value byte
	mask  byte
	min   int
	max   int // -1 means unbounded
	alts  [][]hexElem
}

type hexPattern struct {
	elems []hexElem
}

func newHexPattern(body string) (*hexPattern, error) {
	s := &hexScanner{src: body}

	elems, term, err := s.sequence(false)
	if err != nil {
		return nil, err
	}

	if term != 0 {
		return nil, fmt.Errorf("unexpected %q in hex string", term)
	}

	if len(elems) == 0 {
		return nil, fmt.Errorf("empty hex string")
	}

	if elems[0].kind == hexJump || elems[len(elems)-1].kind == hexJump {
		return nil, fmt.Errorf("hex string cannot start or end with a jump")
	}

	return &hexPattern{elems: elems}, nil
}

func (p *hexPattern) find(ctx context.Context, data *scanData) ([]span, error) {
	raw := data.raw

	var spans []span

	for off, step := 0, 0; off < len(raw); off, step = off+1, step+1 {
		if step%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		first := p.elems[0]
		if first.kind == hexByte && first.mask == 0xff {
			idx := bytes.IndexByte(raw[off:], first.value)
			if idx < 0 {
				break
			}

			off += idx
		}

		if end, ok := matchHex(raw, off, p.elems); ok {
			spans = append(spans, span{off: off, n: end - off})
			if len(spans) >= maxMatchesPerString {
				break
			}
		}
	}

	return spans, nil
}

func matchHex(data []byte, pos int, elems []hexElem) (int, bool) {
	for len(elems) > 0 && elems[0].kind == hexByte {
		if pos >= len(data) || data[pos]&elems[0].mask != elems[0].value {
			return 0, false
		}

		pos++
		elems = elems[1:]
	}

	if len(elems) == 0 {
		return pos, true
	}

	head, rest := elems[0], elems[1:]

	switch head.kind {
	case hexJump:
		limit := len(data) - pos
		if head.max >= 0 && head.max < limit {
			limit = head.max
		}

		for skip := head.min; skip <= limit; skip++ {
			if end, ok := matchHex(data, pos+skip, rest); ok {
				return end, true
			}
		}
	case hexAlt:
		for _, alt := range head.alts {
			seq := make([]hexElem, 0, len(alt)+len(rest))
			seq = append(seq, alt...)
			seq = append(seq, rest...)

			if end, ok := matchHex(data, pos, seq); ok {
				return end, true
			}
		}
	case hexByte:
	}

	return 0, false
}

type hexScanner struct {
	src string
	pos int
}

func (s *hexScanner) skipSpace() {
	for s.pos < len(s.src) && strings.ContainsRune(" \t\r\n", rune(s.src[s.pos])) {
		s.pos++
	}
}

// sequence parses elements until the end of input or, inside an
// alternation, until '|' or ')', which is returned as the terminator.
func (s *hexScanner) sequence(inAlt bool) ([]hexElem, byte, error) {
	var elems []hexElem

	for {
		s.skipSpace()

		if s.pos >= len(s.src) {
			if inAlt {
				return nil, 0, fmt.Errorf("unterminated alternation in hex string")
			}

			return elems, 0, nil
		}

		c := s.src[s.pos]

		switch {
		case c == '|' || c == ')':
			if !inAlt {
				return nil, 0, fmt.Errorf("unexpected %q in hex string", c)
			}

			s.pos++

			return elems, c, nil
		case c == '(':
			s.pos++

			alt, err := s.alternation()
			if err != nil {
				return nil, 0, err
			}

			elems = append(elems, alt)
		case c == '[':
			jump, err := s.jump()
			if err != nil {
				return nil, 0, err
			}

			elems = append(elems, jump)
		default:
			b, err := s.byteToken()
			if err != nil {
				return nil, 0, err
			}

			elems = append(elems, b)
		}
	}
}

func (s *hexScanner) alternation() (hexElem, error) {
	elem := hexElem{kind: hexAlt}

	for {
		seq, term, err := s.sequence(true)
		if err != nil {
			return hexElem{}, err
		}

		if len(seq) == 0 {
			return hexElem{}, fmt.Errorf("empty alternative in hex string")
		}

		elem.alts = append(elem.alts, seq)

		if term == ')' {
			return elem, nil
		}
	}
}

func (s *hexScanner) jump() (hexElem, error) {
	end := strings.IndexByte(s.src[s.pos:], ']')
	if end < 0 {
		return hexElem{}, fmt.Errorf("unterminated jump in hex string")
	}

	body := strings.TrimSpace(s.src[s.pos+1 : s.pos+end])
	s.pos += end + 1

	lo, hi, isRange := strings.Cut(body, "-")
	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)

	elem := hexElem{kind: hexJump, max: -1}

	if lo != "" {
		n, err := strconv.Atoi(lo)
		if err != nil || n < 0 {
			return hexElem{}, fmt.Errorf("invalid jump %q", body)
		}

		elem.min = n
	}

	switch {
	case !isRange:
		if lo == "" {
			return hexElem{}, fmt.Errorf("invalid jump %q", body)
		}

		elem.max = elem.min
	case hi != "":
		n, err := strconv.Atoi(hi)
		if err != nil || n < elem.min {
			return hexElem{}, fmt.Errorf("invalid jump %q", body)
		}

		elem.max = n
	}

	return elem, nil
}

func (s *hexScanner) byteToken() (hexElem, error) {
	if s.pos+2 > len(s.src) {
		return hexElem{}, fmt.Errorf("incomplete byte in hex string")
	}

	hi, lo := s.src[s.pos], s.src[s.pos+1]

	hiVal, hiMask, ok := nibble(hi)
	if !ok {
		return hexElem{}, fmt.Errorf("invalid character %q in hex string", hi)
	}

	loVal, loMask, ok := nibble(lo)
	if !ok {
		return hexElem{}, fmt.Errorf("invalid character %q in hex string", lo)
	}

	s.pos += 2

	return hexElem{kind: hexByte, value: hiVal<<4 | loVal, mask: hiMask<<4 | loMask}, nil
}

func nibble(c byte) (byte, byte, bool) {
	switch {
	case c == '?':
		return 0, 0, true
	case isDigit(c):
		return c - '0', 0xf, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, 0xf, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, 0xf, true
	}

	return 0, 0, false
}

type regexPattern struct {
	re       *regexp.Regexp
	fullword bool
}

func newRegexPattern(expr, flags string, mods modifiers) (*regexPattern, error) {
	if mods.wide {
		return nil, fmt.Errorf("wide modifier is not supported for regular expressions")
	}

	prefix := ""
	if mods.nocase || strings.Contains(flags, "i") {
		prefix += "i"
	}

	if strings.Contains(flags, "s") {
		prefix += "s"
	}

	if prefix != "" {
		expr = "(?" + prefix + ")" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression: %w", err)
	}

	return &regexPattern{re: re, fullword: mods.fullword}, nil
}

func (p *regexPattern) find(ctx context.Context, data *scanData) ([]span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found := p.re.FindAllIndex(data.raw, maxMatchesPerString)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spans := make([]span, 0, len(found))

	for _, loc := range found {
		if loc[1] == loc[0] {
			continue
		}

		if p.fullword && !isWordBounded(data.raw, loc[0], loc[1]-loc[0], false) {
			continue
		}

		spans = append(spans, span{off: loc[0], n: loc[1] - loc[0]})
	}

	return spans, nil
}

func isWordBounded(data []byte, off, n int, wide bool) bool {
	before := off - 1
	if wide && off >= 2 && data[off-1] == 0 {
		before = off - 2
	}

	if before >= 0 && isAlnum(data[before]) {
		return false
	}

	end := off + n

	return end >= len(data) || !isAlnum(data[end])
}

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func lowerASCII(b []byte) []byte {
	out := make([]byte, len(b))

	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}

		out[i] = c
	}

	return out
}

func sortSpans(spans []span) {
	sort.Slice(spans, func(i, j int) bool { return spans[i].off < spans[j].off })
}
