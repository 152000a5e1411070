package interp

import (
	"fmt"
	"strconv"
	"strings"
)

// OpKind enumerates expr's operators (§4.4). Precedence follows Tcl's expr
// table: || lowest, then &&, then bitwise |, ^, &, then equality,
// relational, shift, additive, multiplicative, **, with unary operators
// binding tighter than any binary operator.
type OpKind int

const (
	OpAdd OpKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpUnaryMinus
	OpUnaryPlus
	OpNot
	OpBitNot
	OpBitAnd
	OpBitOr
	OpBitXor
	OpShl
	OpShr
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpStrEq
	OpStrNe
	OpIn
	OpNi
	OpLAnd
	OpLOr
)

func (o OpKind) String() string {
	names := map[OpKind]string{
		OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpPow: "**",
		OpUnaryMinus: "-", OpUnaryPlus: "+", OpNot: "!", OpBitNot: "~",
		OpBitAnd: "&", OpBitOr: "|", OpBitXor: "^", OpShl: "<<", OpShr: ">>",
		OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=", OpEq: "==", OpNe: "!=",
		OpStrEq: "eq", OpStrNe: "ne", OpIn: "in", OpNi: "ni",
		OpLAnd: "&&", OpLOr: "||",
	}
	return names[o]
}

var binPrec = map[OpKind]int{
	OpLOr:   1,
	OpLAnd:  2,
	OpBitOr: 3, OpBitXor: 4, OpBitAnd: 5,
	OpEq: 6, OpNe: 6, OpStrEq: 6, OpStrNe: 6, OpIn: 6, OpNi: 6,
	OpLt: 7, OpLe: 7, OpGt: 7, OpGe: 7,
	OpShl: 8, OpShr: 8,
	OpAdd: 9, OpSub: 9,
	OpMul: 10, OpDiv: 10, OpMod: 10,
	OpPow: 12,
}

var rightAssoc = map[OpKind]bool{OpPow: true}

// exprOpCode is one VM instruction's opcode (§4.5, executed by exprvm.go).
type exprOpCode int

const (
	eoPush exprOpCode = iota
	eoLoadVar
	eoLoadCmd
	eoUnary
	eoBinary
	eoDup
	eoPop
	eoToBool
	eoJumpIfFalse // pop; if falsy, jump to Target
	eoJumpIfTrue  // pop; if truthy, jump to Target
	eoJump
	eoCall
)

// ExprInstr is one instruction of a compiled expression program.
type ExprInstr struct {
	Op     exprOpCode
	Val    *Value
	Name   string // var name, function name, or cmd source text
	Kind   OpKind
	Target int
	Argc   int
}

// ExprProgram is the compiled, shimmerable form of an expr string, cached
// as a Value's internal representation the same way ScriptShape is (§4.3,
// §4.4: "compiles once, evaluated by a small stack machine").
type ExprProgram struct {
	instrs []ExprInstr
	inUse  int
}

func (*ExprProgram) Name() string           { return "expr" }
func (p *ExprProgram) Dup() Rep             { return p }
func (p *ExprProgram) UpdateString() string { return "" }

type exprParser struct {
	toks []Token
	pos  int
	file string
}

func (p *exprParser) peek() Token {
	if p.pos >= len(p.toks) {
		return Token{Type: TokEOF}
	}
	return p.toks[p.pos]
}
func (p *exprParser) next() Token { t := p.peek(); p.pos++; return t }

// CompileExpr lexes and compiles an expr string into a stack-machine
// program (§4.4).
func CompileExpr(src, file string) (*ExprProgram, error) {
	toks, err := lexExpr(src, file)
	if err != nil {
		return nil, err
	}
	ep := &exprParser{toks: toks, file: file}
	prog := &ExprProgram{}
	if err := ep.parseTernary(prog); err != nil {
		return nil, err
	}
	if ep.peek().Type != TokEOF {
		return nil, NewError("syntax error in expression %q: extra tokens after expression", src)
	}
	return prog, nil
}

func (ep *exprParser) emit(prog *ExprProgram, in ExprInstr) int {
	prog.instrs = append(prog.instrs, in)
	return len(prog.instrs) - 1
}

// parseTernary implements `a ? b : c`, right-associative so that
// `a?b:c?d:e` parses as `a?b:(c?d:e)` (§4.4 "ternary re-association").
func (ep *exprParser) parseTernary(prog *ExprProgram) error {
	if err := ep.parseBinary(prog, 1); err != nil {
		return err
	}
	if ep.peek().Type == TokOperator && ep.peek().Text == "?" {
		ep.next()
		jf := ep.emit(prog, ExprInstr{Op: eoJumpIfFalse})
		if err := ep.parseTernary(prog); err != nil {
			return err
		}
		if !(ep.peek().Type == TokOperator && ep.peek().Text == ":") {
			return NewError("syntax error in expression: expected ':'")
		}
		ep.next()
		jend := ep.emit(prog, ExprInstr{Op: eoJump})
		prog.instrs[jf].Target = len(prog.instrs)
		if err := ep.parseTernary(prog); err != nil {
			return err
		}
		prog.instrs[jend].Target = len(prog.instrs)
	}
	return nil
}

// parseBinary is a precedence-climbing (shunting-yard family) parser:
// minPrec bounds which operators may be consumed at this recursion level.
func (ep *exprParser) parseBinary(prog *ExprProgram, minPrec int) error {
	if err := ep.parseUnary(prog); err != nil {
		return err
	}
	for {
		t := ep.peek()
		if t.Type != TokOperator {
			return nil
		}
		op, ok := binOpFor(t)
		if !ok {
			return nil
		}
		prec := binPrec[op]
		if prec < minPrec {
			return nil
		}
		ep.next()

		if op == OpLAnd || op == OpLOr {
			if err := ep.emitShortCircuit(prog, op, prec); err != nil {
				return err
			}
			continue
		}

		nextMin := prec + 1
		if rightAssoc[op] {
			nextMin = prec
		}
		if err := ep.parseBinary(prog, nextMin); err != nil {
			return err
		}
		ep.emit(prog, ExprInstr{Op: eoBinary, Kind: op})
	}
}

// emitShortCircuit lowers && / || into jump code so the right operand is
// never evaluated once the left side already determines the result
// (§4.4's lazy-operator rewrite).
func (ep *exprParser) emitShortCircuit(prog *ExprProgram, op OpKind, prec int) error {
	ep.emit(prog, ExprInstr{Op: eoToBool})
	ep.emit(prog, ExprInstr{Op: eoDup})
	var jmp int
	if op == OpLAnd {
		jmp = ep.emit(prog, ExprInstr{Op: eoJumpIfFalse})
	} else {
		jmp = ep.emit(prog, ExprInstr{Op: eoJumpIfTrue})
	}
	ep.emit(prog, ExprInstr{Op: eoPop})
	nextMin := prec + 1
	if err := ep.parseBinary(prog, nextMin); err != nil {
		return err
	}
	ep.emit(prog, ExprInstr{Op: eoToBool})
	prog.instrs[jmp].Target = len(prog.instrs)
	return nil
}

func (ep *exprParser) parseUnary(prog *ExprProgram) error {
	t := ep.peek()
	if t.Type == TokOperator {
		switch t.Text {
		case "-":
			ep.next()
			if err := ep.parseUnary(prog); err != nil {
				return err
			}
			ep.emit(prog, ExprInstr{Op: eoUnary, Kind: OpUnaryMinus})
			return nil
		case "+":
			ep.next()
			if err := ep.parseUnary(prog); err != nil {
				return err
			}
			ep.emit(prog, ExprInstr{Op: eoUnary, Kind: OpUnaryPlus})
			return nil
		case "!":
			ep.next()
			if err := ep.parseUnary(prog); err != nil {
				return err
			}
			ep.emit(prog, ExprInstr{Op: eoUnary, Kind: OpNot})
			return nil
		case "~":
			ep.next()
			if err := ep.parseUnary(prog); err != nil {
				return err
			}
			ep.emit(prog, ExprInstr{Op: eoUnary, Kind: OpBitNot})
			return nil
		}
	}
	return ep.parsePrimary(prog)
}

func (ep *exprParser) parsePrimary(prog *ExprProgram) error {
	t := ep.next()
	switch t.Type {
	case TokExprInt, TokExprDouble, TokStr:
		var v *Value
		switch t.Type {
		case TokExprInt:
			n, err := parseInt(t.Text)
			if err != nil {
				return err
			}
			v = NewRep(IntRep(n))
		case TokExprDouble:
			f, ok := parseSpecialDouble(t.Text)
			if !ok {
				var err error
				f, err = parseFloatStrict(t.Text)
				if err != nil {
					return err
				}
			}
			v = NewRep(DoubleRep(f))
		default:
			v = NewString(t.Text)
		}
		ep.emit(prog, ExprInstr{Op: eoPush, Val: v})
		return nil
	case TokVar:
		ep.emit(prog, ExprInstr{Op: eoLoadVar, Name: t.Text})
		return nil
	case TokDictSugar:
		parts := strings.SplitN(t.Text, "\x00", 2)
		name := parts[0]
		if len(parts) > 1 {
			name += "(" + parts[1] + ")"
		}
		ep.emit(prog, ExprInstr{Op: eoLoadVar, Name: name})
		return nil
	case TokCmd:
		ep.emit(prog, ExprInstr{Op: eoLoadCmd, Name: t.Text})
		return nil
	case TokSubExprStart:
		if err := ep.parseTernary(prog); err != nil {
			return err
		}
		if ep.peek().Type != TokSubExprEnd {
			return NewError("syntax error in expression: expected ')'")
		}
		ep.next()
		return nil
	case TokOperator:
		if fn, ok := mathFuncAliases[t.Text]; ok && ep.peek().Type == TokSubExprStart {
			ep.next()
			argc := 0
			if ep.peek().Type != TokSubExprEnd {
				for {
					if err := ep.parseTernary(prog); err != nil {
						return err
					}
					argc++
					if ep.peek().Type == TokOperator && ep.peek().Text == "," {
						ep.next()
						continue
					}
					break
				}
			}
			if ep.peek().Type != TokSubExprEnd {
				return NewError("syntax error in expression: expected ')' closing call to %q", fn)
			}
			ep.next()
			ep.emit(prog, ExprInstr{Op: eoCall, Name: fn, Argc: argc})
			return nil
		}
		return NewError("syntax error in expression: unexpected operator %q", t.Text)
	}
	return NewError("syntax error in expression: unexpected token")
}

// mathFuncAliases recognises the bareword math-function names that may
// precede a "(" in an expr (§4.4 "math function calls").
var mathFuncAliases = map[string]string{
	"abs": "abs", "sqrt": "sqrt", "pow": "pow", "sin": "sin", "cos": "cos",
	"tan": "tan", "floor": "floor", "ceil": "ceil", "round": "round",
	"int": "int", "double": "double", "min": "min", "max": "max", "log": "log", "exp": "exp",
}

func binOpFor(t Token) (OpKind, bool) {
	switch t.Text {
	case "+":
		return OpAdd, true
	case "-":
		return OpSub, true
	case "*":
		return OpMul, true
	case "/":
		return OpDiv, true
	case "%":
		return OpMod, true
	case "**":
		return OpPow, true
	case "&":
		return OpBitAnd, true
	case "|":
		return OpBitOr, true
	case "^":
		return OpBitXor, true
	case "<<":
		return OpShl, true
	case ">>":
		return OpShr, true
	case "<":
		return OpLt, true
	case "<=":
		return OpLe, true
	case ">":
		return OpGt, true
	case ">=":
		return OpGe, true
	case "==":
		return OpEq, true
	case "!=":
		return OpNe, true
	case "eq":
		return OpStrEq, true
	case "ne":
		return OpStrNe, true
	case "in":
		return OpIn, true
	case "ni":
		return OpNi, true
	case "&&":
		return OpLAnd, true
	case "||":
		return OpLOr, true
	}
	return 0, false
}

// lexExpr tokenises an expr string (§4.1 expr context): numbers, operators,
// $var / $(...) / [cmd] substitutions, "..." literals, and parens.
func lexExpr(src, file string) (tokens []Token, err error) {
	p := newParserAt(src, file, 1)
	for !p.eof() {
		c := p.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			p.advance()
		case c >= '0' && c <= '9' || (c == '.' && p.hasDigitNext()):
			tok := p.lexNumber()
			tokens = append(tokens, tok)
		case c == '$':
			tok, err := p.parseDollar()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		case c == '[':
			text, err := p.parseBracketBody()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Type: TokCmd, Text: text, Line: p.line})
		case c == '"':
			p.advance()
			start := p.pos
			for !p.eof() && p.peek() != '"' {
				if p.peek() == '\\' {
					p.advance()
				}
				p.advance()
			}
			if p.eof() {
				return nil, &ParseError{Missing: '"', MissingLine: p.line}
			}
			text := escapeSubst(p.text[start:p.pos])
			p.advance()
			tokens = append(tokens, Token{Type: TokStr, Text: text, Line: p.line})
		case c == '{':
			text, err := p.parseBraceGroup()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, Token{Type: TokStr, Text: text, Line: p.line})
		case c == '(':
			p.advance()
			tokens = append(tokens, Token{Type: TokSubExprStart, Line: p.line})
		case c == ')':
			p.advance()
			tokens = append(tokens, Token{Type: TokSubExprEnd, Line: p.line})
		case c == ',' || c == '?' || c == ':':
			p.advance()
			tokens = append(tokens, Token{Type: TokOperator, Text: string(c), Line: p.line})
		case isOperatorByte(c):
			tokens = append(tokens, p.lexOperator())
		case isVarNameStart(c):
			tok := p.lexIdent()
			tokens = append(tokens, tok)
		default:
			return nil, NewError("syntax error in expression: unexpected character %q", string(c))
		}
	}
	tokens = append(tokens, Token{Type: TokEOF, Line: p.line})
	return tokens, nil
}

func (p *parser) hasDigitNext() bool {
	b, ok := p.peekAt(1)
	return ok && b >= '0' && b <= '9'
}

func (p *parser) lexNumber() Token {
	start := p.pos
	isDouble := false
	if p.at2("0x") || p.at2("0X") {
		p.advance()
		p.advance()
		for !p.eof() && isHexDigit(p.peek()) {
			p.advance()
		}
		return Token{Type: TokExprInt, Text: p.text[start:p.pos], Line: p.line}
	}
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		p.advance()
	}
	if !p.eof() && p.peek() == '.' {
		isDouble = true
		p.advance()
		for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
			p.advance()
		}
	}
	if !p.eof() && (p.peek() == 'e' || p.peek() == 'E') {
		save := p.pos
		p.advance()
		if !p.eof() && (p.peek() == '+' || p.peek() == '-') {
			p.advance()
		}
		if !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
			isDouble = true
			for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
				p.advance()
			}
		} else {
			p.pos = save
		}
	}
	typ := TokExprInt
	if isDouble {
		typ = TokExprDouble
	}
	return Token{Type: typ, Text: p.text[start:p.pos], Line: p.line}
}

func isOperatorByte(c byte) bool {
	switch c {
	case '+', '-', '*', '/', '%', '&', '|', '^', '~', '!', '<', '>', '=':
		return true
	}
	return false
}

func (p *parser) lexOperator() Token {
	start := p.pos
	two := p.text[p.pos:min(p.pos+2, len(p.text))]
	switch two {
	case "**", "&&", "||", "<<", ">>", "<=", ">=", "==", "!=":
		p.advance()
		p.advance()
		return Token{Type: TokOperator, Text: p.text[start:p.pos], Line: p.line}
	}
	p.advance()
	return Token{Type: TokOperator, Text: p.text[start:p.pos], Line: p.line}
}

func (p *parser) lexIdent() Token {
	start := p.pos
	for !p.eof() && isVarNameByte(p.peek()) {
		p.advance()
	}
	return Token{Type: TokOperator, Text: p.text[start:p.pos], Line: p.line}
}

func parseFloatStrict(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("expected floating-point number but got %q", s)
	}
	return f, nil
}
