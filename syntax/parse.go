package syntax

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// MaxRepeat is the largest count accepted in a {n,m} repetition.
const MaxRepeat = 1000

// ErrorCode describes a parse failure.
type ErrorCode string

const (
	ErrMissingParen          ErrorCode = "missing closing )"
	ErrUnexpectedParen       ErrorCode = "unexpected )"
	ErrMissingRepeatArgument ErrorCode = "missing argument to repetition operator"
	ErrInvalidRepeatOp       ErrorCode = "invalid nested repetition operator"
	ErrInvalidRepeatSize     ErrorCode = "invalid repeat count"
	ErrInvalidNodeMatcher    ErrorCode = "invalid node matcher"
	ErrUnexpectedCharacter   ErrorCode = "unexpected character"
)

func (e ErrorCode) String() string {
	return string(e)
}

// Error describes a failure to parse a pattern.
type Error struct {
	Code ErrorCode
	Expr string
	Pos  int
}

func (e *Error) Error() string {
	return "error parsing pattern: " + e.Code.String() + " at offset " + strconv.Itoa(e.Pos) + ": `" + e.Expr + "`"
}

type parser struct {
	src string
	pos int
}

// Parse parses a pattern. Alternation at the top level produces a Group;
// a single sequence produces an Alternative.
func Parse(s string) (*Pattern, error) {
	p := &parser{src: s}
	m, err := p.parseAlternation()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		if p.src[p.pos] == ')' {
			return nil, p.errorf(ErrUnexpectedParen, p.pos)
		}
		return nil, p.errorf(ErrUnexpectedCharacter, p.pos)
	}
	return &Pattern{Matcher: m, Pos: 0}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *Pattern {
	p, err := Parse(s)
	if err != nil {
		panic(`syntax: Parse(` + strconv.Quote(s) + `): ` + err.Error())
	}
	return p
}

func (p *parser) errorf(code ErrorCode, pos int) *Error {
	return &Error{Code: code, Expr: p.src, Pos: pos}
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *parser) parseAlternation() (Node, error) {
	start := p.pos
	var alts []*Alternative
	for {
		alt, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
		p.skipSpace()
		if p.peek() != '|' {
			break
		}
		p.pos++
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &Group{Alternatives: alts, Pos: start}, nil
}

func (p *parser) parseSequence() (*Alternative, error) {
	p.skipSpace()
	alt := &Alternative{Pos: p.pos}
	for {
		p.skipSpace()
		switch c := p.peek(); c {
		case 0, '|', ')':
			return alt, nil
		case '*', '+', '?', '{':
			return nil, p.errorf(ErrMissingRepeatArgument, p.pos)
		}
		atom, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		elem, err := p.parseRepeat(atom)
		if err != nil {
			return nil, err
		}
		alt.Elements = append(alt.Elements, elem)
	}
}

func (p *parser) parseAtom() (Node, error) {
	start := p.pos
	switch p.peek() {
	case '<':
		return p.parseTag()
	case '(':
		p.pos++
		inner, err := p.parseAlternation()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return nil, p.errorf(ErrMissingParen, start)
		}
		p.pos++
		if g, ok := inner.(*Group); ok {
			g.Pos = start
			return g, nil
		}
		return &Group{Alternatives: []*Alternative{inner.(*Alternative)}, Pos: start}, nil
	default:
		return nil, p.errorf(ErrUnexpectedCharacter, start)
	}
}

// parseTag parses "<Type/>", "<? />" or "<//>".
func (p *parser) parseTag() (Node, error) {
	start := p.pos
	p.pos++ // '<'
	p.skipSpace()

	if p.hasPrefix("//>") {
		p.pos += 3
		return &Gap{Pos: start}, nil
	}

	var typ string
	if p.peek() == '?' {
		typ = Wildcard
		p.pos++
	} else {
		typ = p.scanIdentifier()
		if typ == "" {
			return nil, p.errorf(ErrInvalidNodeMatcher, start)
		}
	}

	p.skipSpace()
	if !p.hasPrefix("/>") {
		return nil, p.errorf(ErrInvalidNodeMatcher, start)
	}
	p.pos += 2
	return &NodeMatcher{Type: typ, Pos: start}, nil
}

func (p *parser) hasPrefix(s string) bool {
	return len(p.src)-p.pos >= len(s) && p.src[p.pos:p.pos+len(s)] == s
}

func (p *parser) scanIdentifier() string {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isTypeRune(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

func isTypeRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' || r == ':'
}

func (p *parser) parseRepeat(atom Node) (Node, error) {
	p.skipSpace()
	start := p.pos
	var min, max int
	switch p.peek() {
	case '*':
		min, max = 0, Unbounded
		p.pos++
	case '+':
		min, max = 1, Unbounded
		p.pos++
	case '?':
		min, max = 0, 1
		p.pos++
	case '{':
		var ok bool
		min, max, ok = p.parseRepeatCounts()
		if !ok {
			return nil, p.errorf(ErrInvalidRepeatSize, start)
		}
	default:
		return atom, nil
	}

	greedy := true
	if p.peek() == '?' {
		greedy = false
		p.pos++
	}

	p.skipSpace()
	switch p.peek() {
	case '*', '+', '?', '{':
		return nil, p.errorf(ErrInvalidRepeatOp, p.pos)
	}

	return &Quantifier{Element: atom, Min: min, Max: max, Greedy: greedy, Pos: start}, nil
}

// parseRepeatCounts parses {n}, {n,} or {n,m}. The order of n and m is not
// checked here: an inverted range is reported by the compiler.
func (p *parser) parseRepeatCounts() (min, max int, ok bool) {
	p.pos++ // '{'
	min, ok = p.scanCount()
	if !ok {
		return 0, 0, false
	}
	switch p.peek() {
	case '}':
		max = min
	case ',':
		p.pos++
		if p.peek() == '}' {
			max = Unbounded
		} else if max, ok = p.scanCount(); !ok {
			return 0, 0, false
		}
	default:
		return 0, 0, false
	}
	if p.peek() != '}' {
		return 0, 0, false
	}
	p.pos++
	return min, max, true
}

func (p *parser) scanCount() (int, bool) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start || p.pos-start > 4 {
		return 0, false
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil || n > MaxRepeat {
		return 0, false
	}
	return n, true
}
