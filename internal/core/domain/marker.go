package domain

import (
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.trai.ch/zerr"
)

// MarkerEnvironment maps PEP 508 marker variables to their values for a target.
type MarkerEnvironment map[string]string

// Marker variables.
const (
	MarkerPythonVersion        = "python_version"
	MarkerPythonFullVersion    = "python_full_version"
	MarkerOSName               = "os_name"
	MarkerSysPlatform          = "sys_platform"
	MarkerPlatformSystem       = "platform_system"
	MarkerPlatformMachine      = "platform_machine"
	MarkerPlatformRelease      = "platform_release"
	MarkerPlatformVersion      = "platform_version"
	MarkerImplementationName   = "implementation_name"
	MarkerImplementationVer    = "implementation_version"
	MarkerPythonImplementation = "platform_python_implementation"
	MarkerExtra                = "extra"
)

var markerVariables = map[string]struct{}{
	MarkerPythonVersion:        {},
	MarkerPythonFullVersion:    {},
	MarkerOSName:               {},
	MarkerSysPlatform:          {},
	MarkerPlatformSystem:       {},
	MarkerPlatformMachine:      {},
	MarkerPlatformRelease:      {},
	MarkerPlatformVersion:      {},
	MarkerImplementationName:   {},
	MarkerImplementationVer:    {},
	MarkerPythonImplementation: {},
	MarkerExtra:                {},
}

// Marker is a parsed PEP 508 environment marker.
// The zero value has no condition and always evaluates to true.
type Marker struct {
	root markerNode
}

type markerNode interface {
	eval(env MarkerEnvironment) bool
	write(b *strings.Builder, parentOr bool)
	extras(into map[string]struct{})
}

type markerBool struct {
	or          bool
	left, right markerNode
}

type markerValue struct {
	variable bool
	text     string
}

type markerCompare struct {
	lhs, rhs markerValue
	op       string
}

// ParseMarker parses a marker expression.
func ParseMarker(s string) (Marker, error) {
	if strings.TrimSpace(s) == "" {
		return Marker{}, nil
	}
	p := &markerParser{src: s}
	if err := p.tokenize(); err != nil {
		return Marker{}, err
	}
	node, err := p.parseOr()
	if err != nil {
		return Marker{}, err
	}
	if p.pos != len(p.toks) {
		return Marker{}, p.fail("unexpected " + strconv.Quote(p.toks[p.pos].text))
	}
	return Marker{root: node}, nil
}

// IsZero reports whether the marker is empty.
func (m Marker) IsZero() bool {
	return m.root == nil
}

// Evaluate reports whether the marker holds in env. When extras is
// non-empty the marker holds if it holds for any one of them.
func (m Marker) Evaluate(env MarkerEnvironment, extras ...string) bool {
	if m.root == nil {
		return true
	}
	scoped := make(MarkerEnvironment, len(env)+1)
	for k, v := range env {
		scoped[k] = v
	}
	scoped[MarkerExtra] = ""
	if m.root.eval(scoped) {
		return true
	}
	for _, extra := range extras {
		scoped[MarkerExtra] = NormalizeName(extra)
		if m.root.eval(scoped) {
			return true
		}
	}
	return false
}

// Extras returns the normalized extra names the marker compares against.
func (m Marker) Extras() []string {
	if m.root == nil {
		return nil
	}
	set := map[string]struct{}{}
	m.root.extras(set)
	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}

// String renders the marker with canonical spacing and double quotes.
func (m Marker) String() string {
	if m.root == nil {
		return ""
	}
	var b strings.Builder
	m.root.write(&b, true)
	return b.String()
}

func (n markerBool) eval(env MarkerEnvironment) bool {
	if n.or {
		return n.left.eval(env) || n.right.eval(env)
	}
	return n.left.eval(env) && n.right.eval(env)
}

func (n markerBool) write(b *strings.Builder, parentOr bool) {
	// "and" binds tighter, so only an "or" nested under "and" needs parentheses.
	paren := n.or && !parentOr
	if paren {
		b.WriteByte('(')
	}
	n.left.write(b, n.or)
	if n.or {
		b.WriteString(" or ")
	} else {
		b.WriteString(" and ")
	}
	n.right.write(b, n.or)
	if paren {
		b.WriteByte(')')
	}
}

func (n markerBool) extras(into map[string]struct{}) {
	n.left.extras(into)
	n.right.extras(into)
}

func (v markerValue) resolve(env MarkerEnvironment) string {
	if v.variable {
		return env[v.text]
	}
	return v.text
}

func (v markerValue) String() string {
	if v.variable {
		return v.text
	}
	return strconv.Quote(v.text)
}

func (n markerCompare) eval(env MarkerEnvironment) bool {
	lhs := n.lhs.resolve(env)
	rhs := n.rhs.resolve(env)
	if (n.lhs.variable && n.lhs.text == MarkerExtra) || (n.rhs.variable && n.rhs.text == MarkerExtra) {
		lhs, rhs = NormalizeName(lhs), NormalizeName(rhs)
	}

	switch n.op {
	case "in":
		return strings.Contains(rhs, lhs)
	case "not in":
		return !strings.Contains(rhs, lhs)
	}

	// Version comparison when both sides are versions, string comparison otherwise.
	if spec, err := ParseSpecifier(n.op + rhs); err == nil {
		if v, err := ParseVersion(lhs); err == nil {
			return spec.Matches(v)
		}
	}
	switch n.op {
	case "==", "===":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case "<":
		return lhs < rhs
	case "<=":
		return lhs <= rhs
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	}
	return false
}

func (n markerCompare) write(b *strings.Builder, _ bool) {
	b.WriteString(n.lhs.String())
	b.WriteByte(' ')
	b.WriteString(n.op)
	b.WriteByte(' ')
	b.WriteString(n.rhs.String())
}

func (n markerCompare) extras(into map[string]struct{}) {
	switch {
	case n.lhs.variable && n.lhs.text == MarkerExtra && !n.rhs.variable:
		into[NormalizeName(n.rhs.text)] = struct{}{}
	case n.rhs.variable && n.rhs.text == MarkerExtra && !n.lhs.variable:
		into[NormalizeName(n.lhs.text)] = struct{}{}
	}
}

type markerTokenKind int

const (
	tokIdent markerTokenKind = iota
	tokString
	tokOp
	tokLParen
	tokRParen
)

type markerToken struct {
	kind markerTokenKind
	text string
}

type markerParser struct {
	src  string
	toks []markerToken
	pos  int
}

func (p *markerParser) fail(msg string) error {
	return zerr.With(zerr.Wrap(ErrInvalidMarker, msg), "marker", p.src)
}

func (p *markerParser) tokenize() error {
	s := p.src
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			p.toks = append(p.toks, markerToken{kind: tokLParen, text: "("})
			i++
		case c == ')':
			p.toks = append(p.toks, markerToken{kind: tokRParen, text: ")"})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return p.fail("unterminated string")
			}
			p.toks = append(p.toks, markerToken{kind: tokString, text: s[i+1 : i+1+end]})
			i += end + 2
		case strings.ContainsRune("<>=!~", rune(c)):
			j := i
			for j < len(s) && strings.ContainsRune("<>=!~", rune(s[j])) {
				j++
			}
			op := s[i:j]
			switch op {
			case "==", "!=", "<", "<=", ">", ">=", "~=", "===":
			default:
				return p.fail("unknown operator " + strconv.Quote(op))
			}
			p.toks = append(p.toks, markerToken{kind: tokOp, text: op})
			i = j
		case c == '_' || unicode.IsLetter(rune(c)):
			j := i
			for j < len(s) && (s[j] == '_' || s[j] == '.' || unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j]))) {
				j++
			}
			word := s[i:j]
			switch word {
			case "in":
				p.toks = append(p.toks, markerToken{kind: tokOp, text: "in"})
			case "not":
				p.toks = append(p.toks, markerToken{kind: tokOp, text: "not"})
			default:
				// Legacy dotted spellings such as os.name.
				word = strings.ReplaceAll(word, ".", "_")
				p.toks = append(p.toks, markerToken{kind: tokIdent, text: word})
			}
			i = j
		default:
			return p.fail("unexpected character " + strconv.QuoteRune(rune(c)))
		}
	}
	return nil
}

func (p *markerParser) peek() (markerToken, bool) {
	if p.pos >= len(p.toks) {
		return markerToken{}, false
	}
	return p.toks[p.pos], true
}

func (p *markerParser) peekWord(word string) bool {
	t, ok := p.peek()
	return ok && t.kind == tokIdent && t.text == word
}

func (p *markerParser) parseOr() (markerNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekWord("or") {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = markerBool{or: true, left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (markerNode, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.peekWord("and") {
		p.pos++
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = markerBool{left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAtom() (markerNode, error) {
	t, ok := p.peek()
	if !ok {
		return nil, p.fail("unexpected end of marker")
	}
	if t.kind == tokLParen {
		p.pos++
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t, ok := p.peek(); !ok || t.kind != tokRParen {
			return nil, p.fail("missing closing parenthesis")
		}
		p.pos++
		return node, nil
	}

	lhs, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if !lhs.variable && !rhs.variable {
		return nil, p.fail("comparison between two literals")
	}
	return markerCompare{lhs: lhs, op: op, rhs: rhs}, nil
}

func (p *markerParser) parseValue() (markerValue, error) {
	t, ok := p.peek()
	if !ok {
		return markerValue{}, p.fail("expected a value")
	}
	switch t.kind {
	case tokString:
		p.pos++
		return markerValue{text: t.text}, nil
	case tokIdent:
		if _, known := markerVariables[t.text]; !known {
			return markerValue{}, p.fail("unknown variable " + strconv.Quote(t.text))
		}
		p.pos++
		return markerValue{variable: true, text: t.text}, nil
	default:
		return markerValue{}, p.fail("expected a value, got " + strconv.Quote(t.text))
	}
}

func (p *markerParser) parseOp() (string, error) {
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		return "", p.fail("expected an operator")
	}
	p.pos++
	if t.text != "not" {
		return t.text, nil
	}
	next, ok := p.peek()
	if !ok || next.kind != tokOp || next.text != "in" {
		return "", p.fail(`expected "in" after "not"`)
	}
	p.pos++
	return "not in", nil
}
