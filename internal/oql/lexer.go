package oql

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes OQL source text.
type Lexer struct {
	input  string
	pos    int // current byte position
	tokens []Token
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the entire input. The returned slice does not include an
// end-of-input token. Characters that cannot start a token are emitted as
// TokenNone so that the parser reports them in context.
func (l *Lexer) Tokenize() []Token {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return l.tokens
		}
		l.tokens = append(l.tokens, l.next())
	}
}

// Tokenize is shorthand for NewLexer(input).Tokenize().
func Tokenize(input string) []Token {
	return NewLexer(input).Tokenize()
}

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	return l.peekAt(0)
}

// peekAt returns the rune at offset from current position.
func (l *Lexer) peekAt(offset int) rune {
	p := l.pos + offset
	if p >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[p:])
	return r
}

// advance moves forward by one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// next scans one token starting at a non-space character.
func (l *Lexer) next() Token {
	start := l.pos
	r := l.peek()

	switch {
	case r == '\'':
		return l.scanString(start)
	case isDigit(r):
		return l.scanNumber(start)
	case isIdentStart(r):
		return l.scanIdent(start)
	case r == ':' && isIdentStart(l.peekAt(1)) && l.peekAt(1) != '\\':
		return l.scanNamedParameter(start)
	case r == '?':
		return l.scanPositionalParameter(start)
	}

	l.advance()
	tok := Token{Type: TokenNone, Value: l.input[start:l.pos], Pos: start}
	switch r {
	case '.':
		tok.Type = TokenDot
	case ',':
		tok.Type = TokenComma
	case '(':
		tok.Type = TokenOpenParenthesis
	case ')':
		tok.Type = TokenCloseParenthesis
	case '=':
		tok.Type = TokenEquals
	case '>':
		tok.Type = TokenGreaterThan
	case '<':
		tok.Type = TokenLowerThan
	case '+':
		tok.Type = TokenPlus
	case '-':
		tok.Type = TokenMinus
	case '*':
		tok.Type = TokenMultiply
	case '/':
		tok.Type = TokenDivide
	case '!':
		tok.Type = TokenNegate
	case '{':
		tok.Type = TokenOpenCurlyBrace
	case '}':
		tok.Type = TokenCloseCurlyBrace
	}
	return tok
}

// scanString reads a single-quoted literal. A doubled quote is an escaped
// quote. An unterminated literal becomes a single TokenNone for the quote.
func (l *Lexer) scanString(start int) Token {
	l.advance() // opening quote
	var b strings.Builder
	for l.pos < len(l.input) {
		r := l.advance()
		if r == '\'' {
			if l.peek() == '\'' {
				l.advance()
				b.WriteRune('\'')
				continue
			}
			return Token{Type: TokenString, Value: b.String(), Pos: start}
		}
		b.WriteRune(r)
	}
	l.pos = start + 1
	return Token{Type: TokenNone, Value: "'", Pos: start}
}

// scanNumber reads an integer or float literal, including an exponent.
func (l *Lexer) scanNumber(start int) Token {
	isFloat := false
	l.scanDigits()
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		isFloat = true
		l.advance()
		l.scanDigits()
	}
	if r := l.peek(); r == 'e' || r == 'E' {
		off := 1
		if s := l.peekAt(1); s == '+' || s == '-' {
			off = 2
		}
		if isDigit(l.peekAt(off)) {
			isFloat = true
			for range off {
				l.advance()
			}
			l.scanDigits()
		}
	}
	lit := l.input[start:l.pos]
	if isFloat {
		return Token{Type: TokenFloat, Value: lit, Pos: start}
	}
	return Token{Type: TokenInteger, Value: lit, Pos: start}
}

func (l *Lexer) scanDigits() {
	for isDigit(l.peek()) {
		l.advance()
	}
}

// scanIdent reads an identifier or keyword. Identifiers may contain
// namespace separators and alias colons, but never end with one.
func (l *Lexer) scanIdent(start int) Token {
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	for l.pos > start+1 {
		last := l.input[l.pos-1]
		if last != ':' && last != '\\' {
			break
		}
		l.pos--
	}
	lit := l.input[start:l.pos]
	if lit == "\\" {
		return Token{Type: TokenNone, Value: lit, Pos: start}
	}
	return Token{Type: LookupKeyword(lit), Value: lit, Pos: start}
}

func (l *Lexer) scanNamedParameter(start int) Token {
	l.advance() // ':'
	for l.pos < len(l.input) {
		r := l.peek()
		if r != '_' && !unicode.IsLetter(r) && !isDigit(r) {
			break
		}
		l.advance()
	}
	return Token{Type: TokenInputParameter, Value: l.input[start:l.pos], Pos: start}
}

func (l *Lexer) scanPositionalParameter(start int) Token {
	l.advance() // '?'
	l.scanDigits()
	return Token{Type: TokenInputParameter, Value: l.input[start:l.pos], Pos: start}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '\\' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '\\' || r == ':' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
