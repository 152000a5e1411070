package interp

import "strings"

// substString implements the three independently-togglable substitution
// passes of `subst`/word-interpolation (§4.2 "subst context"): variable,
// command, and backslash substitution, scanned left to right over raw with
// no word splitting.
func (i *Interp) substString(cf *CallFrame, raw string, noVar, noCmd, noEsc bool) (*Value, error) {
	var b strings.Builder
	p := newParserAt(raw, "", 1)
	for !p.eof() {
		c := p.peek()
		switch {
		case c == '$' && !noVar:
			tok, err := p.parseDollar()
			if err != nil {
				return nil, err
			}
			v, err := i.evalToken(cf, compileToken(tok))
			if err != nil {
				return nil, err
			}
			b.WriteString(v.String())
		case c == '[' && !noCmd:
			text, err := p.parseBracketBody()
			if err != nil {
				return nil, err
			}
			v, err := i.evalCmdSubstSrc(cf, text)
			if err != nil {
				return nil, err
			}
			b.WriteString(v.String())
		case c == '\\' && !noEsc:
			start := p.pos
			p.advance()
			max, digit := 1, isHexDigit
			if !p.eof() {
				switch e := p.peek(); {
				case e == 'x':
					max = 3
				case e == 'u':
					max = 5
				case e >= '0' && e <= '7':
					max, digit = 3, func(d byte) bool { return d >= '0' && d <= '7' }
				}
				p.advance()
			}
			for k := 1; k < max && !p.eof() && digit(p.peek()); k++ {
				p.advance()
			}
			b.WriteString(escapeSubst(p.text[start:p.pos]))
		default:
			b.WriteByte(c)
			p.advance()
		}
	}
	return NewString(b.String()), nil
}

// substWord evaluates raw with all three substitutions active, the form
// needed for a dict-sugar `v(key)` index (§4.6.1) where key may itself
// contain $ and [ substitutions.
func (i *Interp) substWord(cf *CallFrame, raw string) (*Value, error) {
	return i.substString(cf, raw, false, false, false)
}
