package interp

// TokType enumerates the token kinds the parser emits (§4.1).
type TokType int

const (
	TokStr     TokType = iota // verbatim literal, no escape processing (braced text)
	TokEsc                    // literal requiring backslash-escape substitution
	TokVar                    // $name / ${name}
	TokDictSugar              // $v(k)
	TokExprSugar              // $(...)
	TokCmd                    // [...]
	TokSep                    // inter-word whitespace
	TokEOL                    // command separator: newline or ;
	TokEOF

	// expression-only token kinds (§4.1, expression parser)
	TokSubExprStart
	TokSubExprEnd
	TokExprInt
	TokExprDouble
	TokOperator
)

func (t TokType) String() string {
	switch t {
	case TokStr:
		return "STR"
	case TokEsc:
		return "ESC"
	case TokVar:
		return "VAR"
	case TokDictSugar:
		return "DICTSUGAR"
	case TokExprSugar:
		return "EXPRSUGAR"
	case TokCmd:
		return "CMD"
	case TokSep:
		return "SEP"
	case TokEOL:
		return "EOL"
	case TokEOF:
		return "EOF"
	case TokSubExprStart:
		return "SUBEXPR_START"
	case TokSubExprEnd:
		return "SUBEXPR_END"
	case TokExprInt:
		return "EXPR_INT"
	case TokExprDouble:
		return "EXPR_DOUBLE"
	case TokOperator:
		return "OP"
	}
	return "?"
}

// Token is one entry of the append-only parse-token list (§4.2): a pointer
// into the source (represented here as the extracted text, since Go slices
// of a string are already cheap views rather than raw pointers), its type,
// and the line it started on.
type Token struct {
	Type TokType
	Text string
	Line int
	Op   OpKind // not set by the lexer; operators are identified by Text
}

// TokenList is the append-only vector produced by one parse pass. It
// starts with small inline capacity and grows geometrically via Go's
// built-in append, which already satisfies §4.2's growth requirement.
type TokenList struct {
	toks []Token
}

func newTokenList() *TokenList { return &TokenList{toks: make([]Token, 0, 8)} }

func (l *TokenList) append(t Token) { l.toks = append(l.toks, t) }

func (l *TokenList) Len() int         { return len(l.toks) }
func (l *TokenList) At(i int) Token   { return l.toks[i] }
func (l *TokenList) All() []Token     { return l.toks }
