package interp

import "strings"

// InstrKind tags one entry of a compiled script-shape (§4.3).
type InstrKind int

const (
	InstrLine InstrKind = iota // command boundary marker
	InstrWord                  // multi-token (or expand-marked) word marker
	InstrTok                   // one parser token's compiled value
)

// Instr is one flat record of a script-shape.
type Instr struct {
	Kind InstrKind

	// InstrLine fields
	Argc int
	Line int

	// InstrWord fields: Count is the (possibly negative, for {*}) number
	// of InstrTok records that make up this word.
	Count int

	// InstrTok fields
	TokType TokType
	Val     *Value
}

// ScriptShape is the compiled, flat representation of a script cached as a
// value's internal representation (§4.3). Re-executing a script walks this
// array instead of re-tokenising.
type ScriptShape struct {
	instrs []Instr
	file   string
	line   int
	inUse  int // shimmering guard (§4.3, §5 reentrancy rules)
}

func (*ScriptShape) Name() string { return "script" }
func (s *ScriptShape) Dup() Rep   { return s } // compiled shapes are immutable once built; sharing is safe
func (s *ScriptShape) UpdateString() string {
	// Regenerating exact source text from a compiled shape is not attempted;
	// callers that need the original text keep the source Value's string rep
	// around (the shape is installed without clearing v.bytes).
	return ""
}

// CompileScript tokenises src and lowers the token list into a ScriptShape.
func CompileScript(src, file string) (*ScriptShape, error) {
	tl, err := parseScript(src, file)
	if err != nil {
		return nil, err
	}
	return compileTokens(tl, file)
}

func compileTokens(tl *TokenList, file string) (*ScriptShape, error) {
	shape := &ScriptShape{file: file, line: 1}
	toks := tl.All()

	type word struct {
		toks []Token
	}

	i := 0
	for i < len(toks) && (toks[i].Type == TokSep || toks[i].Type == TokEOL) {
		i++
	}
	if len(toks) > 0 {
		shape.line = toks[0].Line
	}

	for i < len(toks) && toks[i].Type != TokEOF {
		var words []word
		for i < len(toks) && toks[i].Type != TokEOL && toks[i].Type != TokEOF {
			if toks[i].Type == TokSep {
				i++
				continue
			}
			var w word
			for i < len(toks) && toks[i].Type != TokSep && toks[i].Type != TokEOL && toks[i].Type != TokEOF {
				w.toks = append(w.toks, toks[i])
				i++
			}
			words = append(words, w)
		}
		if i < len(toks) && toks[i].Type == TokEOL {
			i++
		}

		// Recognise a leading {*}/expand prefix token (followed by more
		// tokens of the same word) and fold it into that word's expand flag.
		var effective []word
		var expandFlags []bool
		for wi := 0; wi < len(words); wi++ {
			w := words[wi]
			expand := false
			if len(w.toks) > 1 && w.toks[0].Type == TokStr &&
				(w.toks[0].Text == "*" || w.toks[0].Text == "expand") {
				w.toks = w.toks[1:]
				expand = true
			}
			effective = append(effective, w)
			expandFlags = append(expandFlags, expand)
		}

		if len(effective) == 0 {
			continue
		}

		lineRec := Instr{Kind: InstrLine, Argc: len(effective), Line: effective[0].toks[0].Line}
		shape.instrs = append(shape.instrs, lineRec)

		for wi, w := range effective {
			count := len(w.toks)
			if expandFlags[wi] {
				if count == 1 {
					shape.instrs = append(shape.instrs, Instr{Kind: InstrWord, Count: -1})
					shape.instrs = append(shape.instrs, compileToken(w.toks[0]))
				} else {
					shape.instrs = append(shape.instrs, Instr{Kind: InstrWord, Count: -count})
					for _, t := range w.toks {
						shape.instrs = append(shape.instrs, compileToken(t))
					}
				}
				continue
			}
			if count == 1 {
				shape.instrs = append(shape.instrs, compileToken(w.toks[0]))
				continue
			}
			shape.instrs = append(shape.instrs, Instr{Kind: InstrWord, Count: count})
			for _, t := range w.toks {
				shape.instrs = append(shape.instrs, compileToken(t))
			}
		}
	}

	return shape, nil
}

func compileToken(t Token) Instr {
	var val *Value
	switch t.Type {
	case TokEsc:
		if strings.IndexByte(t.Text, '\\') >= 0 {
			val = NewString(escapeSubst(t.Text))
		} else {
			val = NewString(t.Text)
		}
	case TokDictSugar:
		parts := strings.SplitN(t.Text, "\x00", 2)
		name, key := parts[0], ""
		if len(parts) > 1 {
			key = parts[1]
		}
		val = NewRep(DictSubstRep{VarName: NewString(name), Index: NewString(key)})
	default:
		val = NewString(t.Text)
	}
	return Instr{Kind: InstrTok, TokType: t.Type, Val: val, Line: t.Line}
}
