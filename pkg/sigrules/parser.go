package sigrules

import (
	"fmt"
	"strings"
)

type parser struct {
	toks  []token
	pos   int
	rules []*compiledRule
	names map[string]int

	// per-rule state
	strings   []*stringDef
	stringIDs map[string]*stringDef
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}

	return tok
}

func (p *parser) errorf(tok token, format string, args ...interface{}) error {
	return &CompileError{Line: tok.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isIdent(text string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && tok.text == text
}

func (p *parser) isPunct(text string) bool {
	tok := p.peek()
	return tok.kind == tokPunct && tok.text == text
}

func (p *parser) expectPunct(text string) error {
	tok := p.advance()
	if tok.kind != tokPunct || tok.text != text {
		return p.errorf(tok, "expected %q, got %s", text, tok)
	}

	return nil
}

func (p *parser) expectIdent(text string) error {
	tok := p.advance()
	if tok.kind != tokIdent || tok.text != text {
		return p.errorf(tok, "expected %q, got %s", text, tok)
	}

	return nil
}

func (p *parser) parseFile() error {
	for p.peek().kind != tokEOF {
		tok := p.peek()

		switch {
		case p.isIdent("import"):
			p.advance()

			if mod := p.advance(); mod.kind != tokText {
				return p.errorf(mod, "expected module name after import")
			}
		case p.isIdent("include"):
			return p.errorf(tok, "include directives are not supported")
		case tok.kind == tokIdent:
			if err := p.parseRule(); err != nil {
				return err
			}
		default:
			return p.errorf(tok, "unexpected %s", tok)
		}
	}

	return nil
}

func (p *parser) parseRule() error {
	rule := &compiledRule{}

	for {
		tok := p.advance()
		if tok.kind != tokIdent {
			return p.errorf(tok, "expected rule declaration, got %s", tok)
		}

		if tok.text == "private" {
			rule.Private = true
			continue
		}

		if tok.text == "global" {
			rule.Global = true
			continue
		}

		if tok.text != "rule" {
			return p.errorf(tok, "expected \"rule\", got %s", tok)
		}

		break
	}

	name := p.advance()
	if name.kind != tokIdent || isKeyword(name.text) {
		return p.errorf(name, "invalid rule name %s", name)
	}

	if _, ok := p.names[name.text]; ok {
		return p.errorf(name, "duplicate rule %q", name.text)
	}

	rule.Name = name.text

	if p.isPunct(":") {
		p.advance()

		for p.peek().kind == tokIdent {
			rule.Tags = append(rule.Tags, p.advance().text)
		}
	}

	if err := p.expectPunct("{"); err != nil {
		return err
	}

	p.strings = nil
	p.stringIDs = make(map[string]*stringDef)

	if err := p.parseSections(rule); err != nil {
		return err
	}

	if err := p.expectPunct("}"); err != nil {
		return err
	}

	rule.strings = p.strings
	p.names[rule.Name] = len(p.rules)
	p.rules = append(p.rules, rule)

	return nil
}

func (p *parser) parseSections(rule *compiledRule) error {
	if p.isIdent("meta") {
		p.advance()

		if err := p.expectPunct(":"); err != nil {
			return err
		}

		meta, err := p.parseMeta()
		if err != nil {
			return err
		}

		rule.Meta = meta
	}

	if p.isIdent("strings") {
		p.advance()

		if err := p.expectPunct(":"); err != nil {
			return err
		}

		if err := p.parseStrings(); err != nil {
			return err
		}
	}

	if err := p.expectIdent("condition"); err != nil {
		return err
	}

	if err := p.expectPunct(":"); err != nil {
		return err
	}

	cond, err := p.parseExpr()
	if err != nil {
		return err
	}

	rule.cond = cond

	return nil
}

func (p *parser) parseMeta() (map[string]interface{}, error) {
	meta := make(map[string]interface{})

	for p.peek().kind == tokIdent && !p.isIdent("strings") && !p.isIdent("condition") {
		key := p.advance()

		if err := p.expectPunct("="); err != nil {
			return nil, err
		}

		value := p.advance()

		switch {
		case value.kind == tokText:
			meta[key.text] = value.text
		case value.kind == tokNumber:
			meta[key.text] = value.num
		case value.kind == tokPunct && value.text == "-" && p.peek().kind == tokNumber:
			meta[key.text] = -p.advance().num
		case value.kind == tokIdent && (value.text == "true" || value.text == "false"):
			meta[key.text] = value.text == "true"
		default:
			return nil, p.errorf(value, "invalid meta value %s", value)
		}
	}

	return meta, nil
}

func (p *parser) parseStrings() error {
	anonymous := 0

	for p.peek().kind == tokStringID {
		idTok := p.advance()
		id := idTok.text

		if strings.HasSuffix(id, "*") {
			return p.errorf(idTok, "invalid string identifier %q", id)
		}

		if id == "$" {
			anonymous++
			id = fmt.Sprintf("$#%d", anonymous)
		} else if _, ok := p.stringIDs[id]; ok {
			return p.errorf(idTok, "duplicate string identifier %q", id)
		}

		if err := p.expectPunct("="); err != nil {
			return err
		}

		def, err := p.parseStringValue(id)
		if err != nil {
			return err
		}

		p.strings = append(p.strings, def)
		p.stringIDs[id] = def
	}

	if len(p.strings) == 0 {
		return p.errorf(p.peek(), "empty strings section")
	}

	return nil
}

func (p *parser) parseStringValue(id string) (*stringDef, error) {
	value := p.advance()

	var mods modifiers

	for p.peek().kind == tokIdent && parseModifier(&mods, p.peek().text) {
		p.advance()
	}

	var (
		pat pattern
		err error
	)

	switch value.kind {
	case tokText:
		pat, err = newTextPattern(value.text, mods)
	case tokHex:
		if mods != (modifiers{private: mods.private}) {
			return nil, p.errorf(value, "hex string %s only accepts the private modifier", id)
		}

		pat, err = newHexPattern(value.text)
	case tokRegex:
		pat, err = newRegexPattern(value.text, value.flags, mods)
	default:
		return nil, p.errorf(value, "expected string value for %s, got %s", id, value)
	}

	if err != nil {
		return nil, p.errorf(value, "%s: %v", id, err)
	}

	return &stringDef{id: id, private: mods.private, pattern: pat}, nil
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.isIdent("or") {
		p.advance()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		left = orNode{l: left, r: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.isIdent("and") {
		p.advance()

		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		left = andNode{l: left, r: right}
	}

	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.isIdent("not") {
		p.advance()

		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}

		return notNode{x: x}, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if p.peek().kind != tokComparison {
		return left, nil
	}

	op := p.advance()

	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if left.typ() != right.typ() {
		return nil, p.errorf(op, "mismatched operand types for %q", op.text)
	}

	if left.typ() == boolType && op.text != "==" && op.text != "!=" {
		return nil, p.errorf(op, "operator %q requires integer operands", op.text)
	}

	return cmpNode{op: op.text, l: left, r: right}, nil
}

//nolint:cyclop // one branch per primary form
func (p *parser) parsePrimary() (node, error) {
	tok := p.advance()

	switch tok.kind {
	case tokPunct:
		switch {
		case tok.text == "(":
			x, err := p.parseExpr()
			if err != nil {
				return nil, err
			}

			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}

			return x, nil
		case tok.text == "-" && p.peek().kind == tokNumber:
			return constNode{value: -p.advance().num, t: intType}, nil
		}
	case tokNumber:
		if p.isIdent("of") {
			return p.parseOf(quantN, constNode{value: tok.num, t: intType})
		}

		return constNode{value: tok.num, t: intType}, nil
	case tokStringID:
		return p.parseStringRef(tok)
	case tokCountID:
		def, ok := p.stringIDs[tok.text]
		if !ok {
			return nil, p.errorf(tok, "undefined string identifier %q", tok.text)
		}

		return countNode{def: def}, nil
	case tokIdent:
		return p.parseIdent(tok)
	case tokEOF, tokText, tokHex, tokRegex, tokComparison:
	}

	return nil, p.errorf(tok, "unexpected %s in condition", tok)
}

func (p *parser) parseIdent(tok token) (node, error) {
	switch tok.text {
	case "true":
		return constNode{value: 1, t: boolType}, nil
	case "false":
		return constNode{value: 0, t: boolType}, nil
	case "filesize":
		return filesizeNode{}, nil
	case "any":
		return p.parseOf(quantAny, nil)
	case "all":
		return p.parseOf(quantAll, nil)
	case "none":
		return p.parseOf(quantNone, nil)
	}

	index, ok := p.names[tok.text]
	if !ok {
		return nil, p.errorf(tok, "undefined identifier %q", tok.text)
	}

	return ruleRefNode{index: index}, nil
}

func (p *parser) parseStringRef(tok token) (node, error) {
	def, ok := p.stringIDs[tok.text]
	if !ok {
		return nil, p.errorf(tok, "undefined string identifier %q", tok.text)
	}

	switch {
	case p.isIdent("at"):
		p.advance()

		at, err := p.parseIntOperand()
		if err != nil {
			return nil, err
		}

		return stringAtNode{def: def, at: at}, nil
	case p.isIdent("in"):
		p.advance()

		if err := p.expectPunct("("); err != nil {
			return nil, err
		}

		lo, err := p.parseIntOperand()
		if err != nil {
			return nil, err
		}

		if err := p.expectPunct(".."); err != nil {
			return nil, err
		}

		hi, err := p.parseIntOperand()
		if err != nil {
			return nil, err
		}

		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}

		return stringInNode{def: def, lo: lo, hi: hi}, nil
	}

	return stringNode{def: def}, nil
}

func (p *parser) parseIntOperand() (node, error) {
	tok := p.peek()

	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if x.typ() != intType {
		return nil, p.errorf(tok, "expected integer expression, got %s", tok)
	}

	return x, nil
}

func (p *parser) parseOf(quant quantifier, n node) (node, error) {
	if err := p.expectIdent("of"); err != nil {
		return nil, err
	}

	var defs []*stringDef

	if p.isIdent("them") {
		p.advance()

		defs = p.strings
	} else {
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}

		for {
			tok := p.advance()
			if tok.kind != tokStringID {
				return nil, p.errorf(tok, "expected string identifier, got %s", tok)
			}

			matched, err := p.expandStringSet(tok)
			if err != nil {
				return nil, err
			}

			defs = append(defs, matched...)

			if p.isPunct(",") {
				p.advance()
				continue
			}

			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}

			break
		}
	}

	if len(defs) == 0 {
		return nil, p.errorf(p.peek(), "string set is empty")
	}

	return ofNode{quant: quant, n: n, defs: defs}, nil
}

func (p *parser) expandStringSet(tok token) ([]*stringDef, error) {
	if !strings.HasSuffix(tok.text, "*") {
		def, ok := p.stringIDs[tok.text]
		if !ok {
			return nil, p.errorf(tok, "undefined string identifier %q", tok.text)
		}

		return []*stringDef{def}, nil
	}

	prefix := strings.TrimSuffix(tok.text, "*")

	var defs []*stringDef

	for _, def := range p.strings {
		if strings.HasPrefix(def.id, prefix) {
			defs = append(defs, def)
		}
	}

	if len(defs) == 0 {
		return nil, p.errorf(tok, "no strings match %q", tok.text)
	}

	return defs, nil
}

func isKeyword(word string) bool {
	switch word {
	case "rule", "private", "global", "meta", "strings", "condition", "import", "include",
		"and", "or", "not", "any", "all", "none", "of", "them", "at", "in",
		"true", "false", "filesize":
		return true
	}

	return false
}
