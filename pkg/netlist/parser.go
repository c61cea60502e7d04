// Package netlist parses the .gpac circuit specification format: a
// sequence of circuit definitions, each either a list of named gates or an
// expression over previously defined and builtin circuits.
package netlist

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/flebeau/GPAClib/internal/consts"
	"github.com/flebeau/GPAClib/pkg/blocks"
	"github.com/flebeau/GPAClib/pkg/circuit"
	"github.com/flebeau/GPAClib/pkg/gate"
	"github.com/flebeau/GPAClib/pkg/util"
)

/* ===== Lexer ===== */

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokSymbol
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	val  float64
	line int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of input"
	}
	return strconv.Quote(t.text)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func tokenize(input string) ([]token, error) {
	var toks []token
	line := 1
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#': // line comment
			for i < len(input) && input[i] != '\n' {
				i++
			}
		case isIdentStart(c):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: input[start:i], line: line})
		case isDigit(c) || c == '.' || (c == '-' && i+1 < len(input) && (isDigit(input[i+1]) || input[i+1] == '.')):
			start := i
			if c == '-' {
				i++
			}
			for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
				i++
			}
			text := input[start:i]
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, errors.Errorf("line %d: invalid number %q", line, text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, val: v, line: line})
		case strings.IndexByte(":;,|()[]=+-*/@", c) >= 0:
			toks = append(toks, token{kind: tokSymbol, text: string(c), line: line})
			i++
		default:
			return nil, errors.Errorf("line %d: unexpected character %q", line, string(c))
		}
	}
	toks = append(toks, token{kind: tokEOF, line: line})
	return toks, nil
}

/* ===== Parser ===== */

// Parser consumes circuit definitions. The circuit table starts out
// populated with the builtin blocks, so definitions can reference them by
// name; every later definition can reference the earlier ones.
type Parser struct {
	toks     []token
	pos      int
	circuits map[string]*circuit.Circuit
	current  string
}

func NewParser() (*Parser, error) {
	p := &Parser{circuits: make(map[string]*circuit.Circuit)}
	if err := p.registerBuiltins(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) registerBuiltins() error {
	p.circuits["Exp"] = blocks.Exp()
	p.circuits["Exp2"] = blocks.Exp2()
	p.circuits["Sin"] = blocks.Sin()
	p.circuits["Cos"] = blocks.Cos()
	p.circuits["Tan"] = blocks.Tan()
	p.circuits["Arctan"] = blocks.Arctan()
	p.circuits["Tanh"] = blocks.Tanh()
	p.circuits["Id"] = blocks.Identity()
	p.circuits["t"] = blocks.Identity()
	p.circuits["Inverse"] = blocks.Inverse()
	p.circuits["Sqrt"] = blocks.Sqrt()
	p.circuits["L2"] = blocks.L2(consts.DefaultSwitch)
	p.circuits["Abs"] = blocks.Abs(consts.DefaultSmoothing)

	composite := []struct {
		name  string
		build func() (*circuit.Circuit, error)
	}{
		{"Round", blocks.Round},
		{"Mod10", blocks.Mod10},
		{"Upsilon", blocks.Upsilon},
		{"Sgn", func() (*circuit.Circuit, error) { return blocks.Sgn(consts.DefaultSharpness) }},
		{"Ip1", func() (*circuit.Circuit, error) { return blocks.Ip1(consts.DefaultSharpness) }},
		{"Lxh", func() (*circuit.Circuit, error) { return blocks.Lxh(consts.DefaultSharpness) }},
	}
	for _, b := range composite {
		c, err := b.build()
		if err != nil {
			return errors.Wrapf(err, "building builtin circuit %s", b.name)
		}
		p.circuits[b.name] = c
	}
	return nil
}

func (p *Parser) peek() token { return p.toks[p.pos] }

func (p *Parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *Parser) expectSymbol(sym string) error {
	t := p.next()
	if t.kind != tokSymbol || t.text != sym {
		return errors.Errorf("line %d: expected %q, got %s", t.line, sym, t)
	}
	return nil
}

func (p *Parser) expectIdent() (token, error) {
	t := p.next()
	if t.kind != tokIdent {
		return t, errors.Errorf("line %d: expected identifier, got %s", t.line, t)
	}
	return t, nil
}

func (p *Parser) expectNumber() (token, error) {
	t := p.next()
	if t.kind != tokNumber {
		return t, errors.Errorf("line %d: expected number, got %s", t.line, t)
	}
	return t, nil
}

func (p *Parser) atSymbol(sym string) bool {
	t := p.peek()
	return t.kind == tokSymbol && t.text == sym
}

func (p *Parser) lookup(name string, line int) (*circuit.Circuit, error) {
	c, ok := p.circuits[name]
	if !ok {
		return nil, errors.Errorf("line %d: unknown circuit %q", line, name)
	}
	return c, nil
}

// Parse consumes the whole input and returns the last circuit defined.
func Parse(input string) (*circuit.Circuit, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	toks, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p.toks = toks
	for p.peek().kind != tokEOF {
		if err := p.parseDefinition(); err != nil {
			return nil, err
		}
	}
	if p.current == "" {
		return nil, errors.New("no circuit definition found")
	}
	return p.circuits[p.current], nil
}

// Circuits exposes the definition table, builtins included.
func (p *Parser) Circuits() map[string]*circuit.Circuit { return p.circuits }

func (p *Parser) parseDefinition() error {
	kw, err := p.expectIdent()
	if err != nil {
		return err
	}
	if kw.text != "Circuit" {
		return errors.Errorf("line %d: expected \"Circuit\", got %s", kw.line, kw)
	}
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	sep := p.next()
	switch {
	case sep.kind == tokSymbol && sep.text == ":":
		if err := p.parseGateList(name.text); err != nil {
			return err
		}
	case sep.kind == tokSymbol && sep.text == "=":
		c, err := p.parseExpr()
		if err != nil {
			return err
		}
		c.Rename(name.text)
		p.circuits[name.text] = c
	default:
		return errors.Errorf("line %d: expected \":\" or \"=\" after circuit name, got %s", sep.line, sep)
	}
	p.current = name.text
	return p.expectSymbol(";")
}

/* ===== Gate-list form ===== */

// parseGateList reads gate declarations until the terminating semicolon.
// The last declared gate becomes the output. Loaded circuits are created
// with insertion-time validation off, so generated "_k" names round-trip;
// Validate applies the relaxed rules later.
func (p *Parser) parseGateList(name string) error {
	ckt := circuit.NewWithOptions(name, false, false)
	lastGate := ""
	for !p.atSymbol(";") {
		gateName, err := p.expectIdent()
		if err != nil {
			return err
		}
		if err := p.expectSymbol(":"); err != nil {
			return err
		}
		if err := p.parseGateSpec(ckt, gateName.text); err != nil {
			return err
		}
		lastGate = gateName.text
	}
	if lastGate == "" {
		return errors.Errorf("circuit %q has no gates", name)
	}
	ckt.SetOutput(lastGate)
	p.circuits[name] = ckt
	return nil
}

func (p *Parser) parseGateSpec(ckt *circuit.Circuit, gateName string) error {
	t := p.peek()
	switch {
	case t.kind == tokNumber:
		p.next()
		_, err := ckt.AddConstantGate(gateName, t.val)
		return err

	case t.kind == tokIdent && t.text == "int":
		p.next()
		x, err := p.expectIdent()
		if err != nil {
			return err
		}
		d, err := p.expectIdent()
		if err != nil {
			return err
		}
		if d.text != "d" {
			return errors.Errorf("line %d: expected \"d\" in integration gate, got %s", d.line, d)
		}
		if err := p.expectSymbol("("); err != nil {
			return err
		}
		y, err := p.expectIdent()
		if err != nil {
			return err
		}
		if err := p.expectSymbol(")"); err != nil {
			return err
		}
		if err := p.expectSymbol("|"); err != nil {
			return err
		}
		v, err := p.expectNumber()
		if err != nil {
			return err
		}
		if _, err := ckt.AddIntGate(gateName, x.text, y.text); err != nil {
			return err
		}
		return ckt.SetInitValue(gateName, v.val)

	case t.kind == tokIdent:
		first := p.next()
		if p.atSymbol("+") || p.atSymbol("*") {
			op := p.next()
			second, err := p.expectIdent()
			if err != nil {
				return err
			}
			if op.text == "+" {
				_, err = ckt.AddAddGate(gateName, first.text, second.text)
			} else {
				_, err = ckt.AddProdGate(gateName, first.text, second.text)
			}
			return err
		}
		return p.spliceCircuitRef(ckt, gateName, first)

	default:
		return errors.Errorf("line %d: invalid gate specification, got %s", t.line, t)
	}
}

// spliceCircuitRef copies a previously defined circuit into ckt, renaming
// its output gate to gateName so following gates can reference it.
func (p *Parser) spliceCircuitRef(ckt *circuit.Circuit, gateName string, ref token) error {
	src, err := p.lookup(ref.text, ref.line)
	if err != nil {
		return err
	}
	if src.Output() == gate.Time {
		return errors.Errorf("line %d: cannot splice identity circuit %q as a gate", ref.line, ref.text)
	}
	tmp := src.Clone()
	tmp.EnsureUniqueNames(ckt)
	ckt.CopyFrom(tmp)
	if err := ckt.RenameGate(tmp.Output(), gateName); err != nil {
		return err
	}
	ckt.RenameInputs(tmp.Output(), gateName)
	return nil
}

/* ===== Expression form ===== */

// parseExpr parses one expression of the grammar
//
//	expr ::= value | ident | ident[n] | (expr op expr) | (expr op expr)[n]
//	       | (int expr d(expr) | value) | max(expr, expr)
//	       | select(value, value, value, value)
//
// with op one of + - * / @ (@ is composition).
func (p *Parser) parseExpr() (*circuit.Circuit, error) {
	t := p.peek()
	switch {
	case t.kind == tokNumber:
		p.next()
		c := blocks.Constant(t.val)
		c.Rename(t.text)
		return c, nil

	case t.kind == tokIdent && t.text == "max":
		p.next()
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(","); err != nil {
			return nil, err
		}
		b, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return blocks.Max(a, b, consts.DefaultSmoothing)

	case t.kind == tokIdent && t.text == "select":
		p.next()
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		var vals [4]float64
		for i := 0; i < 4; i++ {
			if i > 0 {
				if err := p.expectSymbol(","); err != nil {
					return nil, err
				}
			}
			v, err := p.expectNumber()
			if err != nil {
				return nil, err
			}
			vals[i] = v.val
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return blocks.Select(vals[0], vals[1], consts.DefaultSmoothing, vals[2], vals[3])

	case t.kind == tokIdent:
		p.next()
		src, err := p.lookup(t.text, t.line)
		if err != nil {
			return nil, err
		}
		return p.maybeIterate(src.Clone())

	case t.kind == tokSymbol && t.text == "(":
		p.next()
		c, err := p.parseParenOp()
		if err != nil {
			return nil, err
		}
		return p.maybeIterate(c)

	default:
		return nil, errors.Errorf("line %d: invalid expression, got %s", t.line, t)
	}
}

// maybeIterate applies the [n] iteration suffix when present.
func (p *Parser) maybeIterate(c *circuit.Circuit) (*circuit.Circuit, error) {
	if !p.atSymbol("[") {
		return c, nil
	}
	p.next()
	n, err := p.expectNumber()
	if err != nil {
		return nil, err
	}
	if n.val != float64(int(n.val)) || n.val < 0 {
		return nil, errors.Errorf("line %d: iteration count must be a non-negative integer, got %s", n.line, n)
	}
	if err := p.expectSymbol("]"); err != nil {
		return nil, err
	}
	return c.Iterate(uint(n.val))
}

// parseParenOp parses what follows an opening parenthesis: either an
// integration (int e d(e) | v) or a binary operation (e op e). The closing
// parenthesis is consumed.
func (p *Parser) parseParenOp() (*circuit.Circuit, error) {
	if t := p.peek(); t.kind == tokIdent && t.text == "int" {
		p.next()
		integrand, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		d, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if d.text != "d" {
			return nil, errors.Errorf("line %d: expected \"d\" in integration expression, got %s", d.line, d)
		}
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		variable, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		if err := p.expectSymbol("|"); err != nil {
			return nil, err
		}
		v, err := p.expectNumber()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return integrand.Integrate(variable, v.val)
	}

	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	op := p.next()
	if op.kind != tokSymbol {
		return nil, errors.Errorf("line %d: expected operator, got %s", op.line, op)
	}
	right, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	switch op.text {
	case "+":
		return left.Plus(right)
	case "-":
		return left.Minus(right)
	case "*":
		return left.Times(right)
	case "/":
		return left.DividedBy(right)
	case "@":
		return left.Compose(right)
	default:
		util.Warnf("parser", "line %d: %q is not a valid operation, it is skipped", op.line, op.text)
		return left, nil
	}
}
