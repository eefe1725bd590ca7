package oql

// Stream is a cursor over a token slice with one token of lookahead and an
// independent peek pointer for scanning further ahead without consuming.
//
// Token is the most recently consumed token and Lookahead the next one to be
// consumed. Peek walks forward from the token after Lookahead; every
// MoveNext, Glimpse and ResetPeek rewinds the peek pointer.
type Stream struct {
	tokens   []Token
	position int // index of the token after Lookahead
	peek     int

	Token     Token
	Lookahead Token

	eof Token
}

// NewStream wraps tokens. The stream starts before the first token; call
// MoveNext once to load the lookahead.
func NewStream(tokens []Token) *Stream {
	eof := Token{Type: TokenEOF, Pos: -1}
	return &Stream{tokens: tokens, Token: eof, Lookahead: eof, eof: eof}
}

// MoveNext consumes the lookahead. It reports whether a new lookahead is
// available.
func (s *Stream) MoveNext() bool {
	s.peek = 0
	s.Token = s.Lookahead
	if s.position < len(s.tokens) {
		s.Lookahead = s.tokens[s.position]
		s.position++
	} else {
		s.Lookahead = s.eof
	}
	return !s.Lookahead.IsEOF()
}

// Peek returns the next token beyond the peek pointer and advances it.
func (s *Stream) Peek() Token {
	i := s.position + s.peek
	if i < len(s.tokens) {
		s.peek++
		return s.tokens[i]
	}
	return s.eof
}

// Glimpse returns the token right after the lookahead and resets peeking.
func (s *Stream) Glimpse() Token {
	t := s.Peek()
	s.peek = 0
	return t
}

// ResetPeek rewinds the peek pointer to the lookahead.
func (s *Stream) ResetPeek() { s.peek = 0 }

// IsNextToken reports whether the lookahead has the given type.
func (s *Stream) IsNextToken(t TokenType) bool {
	return !s.Lookahead.IsEOF() && s.Lookahead.Type == t
}

// IsNextTokenAny reports whether the lookahead has any of the given types.
func (s *Stream) IsNextTokenAny(types ...TokenType) bool {
	for _, t := range types {
		if s.IsNextToken(t) {
			return true
		}
	}
	return false
}
