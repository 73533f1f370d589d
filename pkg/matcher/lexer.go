package matcher

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  Position
}

// lexer turns a matcher source string into a stream of tokens. It tracks
// 0-indexed line/column positions so compile errors can point at the exact
// offending rune, and recognizes the full operator set from spec §4.2.1:
// numbers, double-quoted strings (no escapes, may span lines), identifiers,
// dotted access, function-call punctuation, and all unary/binary operators.
type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (lx *lexer) peekRune() (rune, bool) {
	if lx.pos >= len(lx.src) {
		return 0, false
	}
	return lx.src[lx.pos], true
}

func (lx *lexer) advance() (rune, bool) {
	r, ok := lx.peekRune()
	if !ok {
		return 0, false
	}
	lx.pos++
	if r == '\n' {
		lx.line++
		lx.col = 0
	} else {
		lx.col++
	}
	return r, true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || isDigit(r) || r == '_' || r == '?'
}

func (lx *lexer) skipWhitespace() {
	for {
		r, ok := lx.peekRune()
		if !ok || !(r == ' ' || r == '\t' || r == '\r' || r == '\n') {
			return
		}
		lx.advance()
	}
}

// next returns the next token, or a tokEOF token once input is exhausted.
func (lx *lexer) next() (token, error) {
	lx.skipWhitespace()

	startLine, startCol := lx.line, lx.col
	r, ok := lx.peekRune()
	if !ok {
		return token{kind: tokEOF, pos: Position{startLine, startCol}}, nil
	}

	switch {
	case isDigit(r):
		return lx.lexNumber(startLine, startCol)
	case r == '"':
		return lx.lexString(startLine, startCol)
	case isIdentStart(r):
		return lx.lexIdent(startLine, startCol)
	case r == '(':
		lx.advance()
		return token{kind: tokLParen, text: "(", pos: Position{startLine, startCol}}, nil
	case r == ')':
		lx.advance()
		return token{kind: tokRParen, text: ")", pos: Position{startLine, startCol}}, nil
	case r == ',':
		lx.advance()
		return token{kind: tokComma, text: ",", pos: Position{startLine, startCol}}, nil
	default:
		return lx.lexOperator(startLine, startCol)
	}
}

func (lx *lexer) lexNumber(line, col int) (token, error) {
	var b strings.Builder
	for {
		r, ok := lx.peekRune()
		if !ok || !isDigit(r) {
			break
		}
		b.WriteRune(r)
		lx.advance()
	}
	if r, ok := lx.peekRune(); ok && r == '.' {
		// Only consume the dot as a decimal point if followed by a digit;
		// otherwise it's the attribute-access operator (e.g. "1.sub" never
		// occurs in practice, but "r.sub" must not be mis-lexed as "r" "."
		// only when r starts with a digit, which it can't, so this check
		// only matters for literals like "1.5").
		if lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1]) {
			b.WriteRune(r)
			lx.advance()
			for {
				r, ok := lx.peekRune()
				if !ok || !isDigit(r) {
					break
				}
				b.WriteRune(r)
				lx.advance()
			}
		}
	}
	n, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return token{}, &UnexpectedTokenError{Pos: Position{line, col}, Token: b.String()}
	}
	return token{kind: tokNumber, text: b.String(), num: n, pos: Position{line, col}}, nil
}

func (lx *lexer) lexString(line, col int) (token, error) {
	lx.advance() // opening quote
	var b strings.Builder
	for {
		r, ok := lx.peekRune()
		if !ok {
			return token{}, &UnterminatedStringError{Pos: Position{line, col}}
		}
		if r == '"' {
			lx.advance()
			return token{kind: tokString, text: b.String(), pos: Position{line, col}}, nil
		}
		b.WriteRune(r)
		lx.advance()
	}
}

func (lx *lexer) lexIdent(line, col int) (token, error) {
	var b strings.Builder
	for {
		r, ok := lx.peekRune()
		if !ok || !isIdentPart(r) {
			break
		}
		b.WriteRune(r)
		lx.advance()
	}
	return token{kind: tokIdent, text: b.String(), pos: Position{line, col}}, nil
}

var twoCharOps = map[string]bool{
	"<=": true, ">=": true, "==": true, "!=": true, "&&": true, "||": true,
}

func (lx *lexer) lexOperator(line, col int) (token, error) {
	r, _ := lx.advance()
	first := string(r)

	if r2, ok := lx.peekRune(); ok {
		combined := first + string(r2)
		if twoCharOps[combined] {
			lx.advance()
			return token{kind: tokOp, text: combined, pos: Position{line, col}}, nil
		}
	}

	switch first {
	case "!", "+", "-", "*", "/", "<", ">", ".":
		return token{kind: tokOp, text: first, pos: Position{line, col}}, nil
	default:
		return token{}, &UnexpectedTokenError{Pos: Position{line, col}, Token: first}
	}
}
