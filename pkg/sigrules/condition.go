package sigrules

import "context"

type exprType int

const (
	boolType exprType = iota
	intType
)

type node interface {
	eval(s *scanState) int64
	typ() exprType
}

func truth(b bool) int64 {
	if b {
		return 1
	}

	return 0
}

type constNode struct {
	value int64
	t     exprType
}

func (n constNode) eval(*scanState) int64 { return n.value }
func (n constNode) typ() exprType         { return n.t }

type filesizeNode struct{}

func (filesizeNode) eval(s *scanState) int64 { return int64(len(s.data.raw)) }
func (filesizeNode) typ() exprType           { return intType }

type stringNode struct {
	def *stringDef
}

func (n stringNode) eval(s *scanState) int64 { return truth(len(s.matches(n.def)) > 0) }
func (stringNode) typ() exprType             { return boolType }

type stringAtNode struct {
	def *stringDef
	at  node
}

func (n stringAtNode) eval(s *scanState) int64 {
	at := n.at.eval(s)

	for _, m := range s.matches(n.def) {
		if int64(m.off) == at {
			return 1
		}
	}

	return 0
}

func (stringAtNode) typ() exprType { return boolType }

type stringInNode struct {
	def    *stringDef
	lo, hi node
}

func (n stringInNode) eval(s *scanState) int64 {
	lo, hi := n.lo.eval(s), n.hi.eval(s)

	for _, m := range s.matches(n.def) {
		if off := int64(m.off); off >= lo && off <= hi {
			return 1
		}
	}

	return 0
}

func (stringInNode) typ() exprType { return boolType }

type countNode struct {
	def *stringDef
}

func (n countNode) eval(s *scanState) int64 { return int64(len(s.matches(n.def))) }
func (countNode) typ() exprType             { return intType }

type cmpNode struct {
	op   string
	l, r node
}

func (n cmpNode) eval(s *scanState) int64 {
	l, r := n.l.eval(s), n.r.eval(s)

	switch n.op {
	case "==":
		return truth(l == r)
	case "!=":
		return truth(l != r)
	case "<":
		return truth(l < r)
	case "<=":
		return truth(l <= r)
	case ">":
		return truth(l > r)
	case ">=":
		return truth(l >= r)
	}

	return 0
}

func (cmpNode) typ() exprType { return boolType }

type andNode struct{ l, r node }

func (n andNode) eval(s *scanState) int64 { return truth(n.l.eval(s) != 0 && n.r.eval(s) != 0) }
func (andNode) typ() exprType             { return boolType }

type orNode struct{ l, r node }

func (n orNode) eval(s *scanState) int64 { return truth(n.l.eval(s) != 0 || n.r.eval(s) != 0) }
func (orNode) typ() exprType             { return boolType }

type notNode struct{ x node }

func (n notNode) eval(s *scanState) int64 { return truth(n.x.eval(s) == 0) }
func (notNode) typ() exprType             { return boolType }

type quantifier int

const (
	quantAny quantifier = iota
	quantAll
	quantNone
	quantN
)

type ofNode struct {
	quant quantifier
	n     node
	defs  []*stringDef
}

func (o ofNode) eval(s *scanState) int64 {
	hits := 0

	for _, def := range o.defs {
		if len(s.matches(def)) > 0 {
			hits++
		}
	}

	switch o.quant {
	case quantAny:
		return truth(hits > 0)
	case quantAll:
		return truth(hits == len(o.defs))
	case quantNone:
		return truth(hits == 0)
	case quantN:
		return truth(int64(hits) >= o.n.eval(s))
	}

	return 0
}

func (ofNode) typ() exprType { return boolType }

type ruleRefNode struct {
	index int
}

func (n ruleRefNode) eval(s *scanState) int64 { return truth(s.results[n.index]) }
func (ruleRefNode) typ() exprType             { return boolType }

type scanData struct {
	raw     []byte
	lowered []byte
}

func (d *scanData) lower() []byte {
	if d.lowered == nil {
		d.lowered = lowerASCII(d.raw)
	}

	return d.lowered
}

// scanState carries per-scan caches. String matches are computed on first
// use, so strings that a condition never reaches are never searched.
type scanState struct {
	ctx     context.Context
	data    *scanData
	cache   map[*stringDef][]span
	results []bool
	err     error
}

func newScanState(ctx context.Context, data []byte, rules int) *scanState {
	return &scanState{
		ctx:     ctx,
		data:    &scanData{raw: data},
		cache:   make(map[*stringDef][]span),
		results: make([]bool, rules),
	}
}

func (s *scanState) matches(def *stringDef) []span {
	if spans, ok := s.cache[def]; ok {
		return spans
	}

	if s.err != nil {
		return nil
	}

	spans, err := def.pattern.find(s.ctx, s.data)
	if err != nil {
		s.err = err
		return nil
	}

	s.cache[def] = spans

	return spans
}
