package oql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Keywords(t *testing.T) {
	tokens := Tokenize("SELECT u FROM User u WHERE u.age > 10")

	expected := []struct {
		typ TokenType
		val string
		pos int
	}{
		{TokenSelect, "SELECT", 0},
		{TokenIdentifier, "u", 7},
		{TokenFrom, "FROM", 9},
		{TokenIdentifier, "User", 14},
		{TokenIdentifier, "u", 19},
		{TokenWhere, "WHERE", 21},
		{TokenIdentifier, "u", 27},
		{TokenDot, ".", 28},
		{TokenIdentifier, "age", 29},
		{TokenGreaterThan, ">", 33},
		{TokenInteger, "10", 35},
	}

	require.Len(t, tokens, len(expected))
	for i, exp := range expected {
		assert.Equal(t, exp.typ, tokens[i].Type, "token %d type", i)
		assert.Equal(t, exp.val, tokens[i].Value, "token %d value", i)
		assert.Equal(t, exp.pos, tokens[i].Pos, "token %d pos", i)
	}
}

func TestLexer_CaseInsensitiveKeywords(t *testing.T) {
	tokens := Tokenize("select Distinct u from")
	require.Len(t, tokens, 4)
	assert.Equal(t, TokenSelect, tokens[0].Type)
	assert.Equal(t, TokenDistinct, tokens[1].Type)
	assert.Equal(t, TokenIdentifier, tokens[2].Type)
	assert.Equal(t, TokenFrom, tokens[3].Type)
	assert.True(t, tokens[3].Type.IsKeyword())
	assert.False(t, tokens[2].Type.IsKeyword())
}

func TestLexer_Strings(t *testing.T) {
	tokens := Tokenize(`'it''s' 'plain'`)
	require.Len(t, tokens, 2)
	assert.Equal(t, TokenString, tokens[0].Type)
	assert.Equal(t, "it's", tokens[0].Value)
	assert.Equal(t, "plain", tokens[1].Value)
	assert.Equal(t, 8, tokens[1].Pos)
}

func TestLexer_UnterminatedString(t *testing.T) {
	tokens := Tokenize(`'abc`)
	require.NotEmpty(t, tokens)
	assert.Equal(t, TokenNone, tokens[0].Type)
	assert.Equal(t, "'", tokens[0].Value)
}

func TestLexer_Numbers(t *testing.T) {
	tokens := Tokenize("42 3.14 1e10 2.5E-3 7.")
	require.Len(t, tokens, 6)
	assert.Equal(t, TokenInteger, tokens[0].Type)
	assert.Equal(t, TokenFloat, tokens[1].Type)
	assert.Equal(t, "3.14", tokens[1].Value)
	assert.Equal(t, TokenFloat, tokens[2].Type)
	assert.Equal(t, TokenFloat, tokens[3].Type)
	assert.Equal(t, "2.5E-3", tokens[3].Value)
	assert.Equal(t, TokenInteger, tokens[4].Type)
	assert.Equal(t, TokenDot, tokens[5].Type)
}

func TestLexer_Parameters(t *testing.T) {
	tokens := Tokenize("= :minAge AND ?1 ?")
	require.Len(t, tokens, 5)
	assert.Equal(t, TokenInputParameter, tokens[1].Type)
	assert.Equal(t, ":minAge", tokens[1].Value)
	assert.Equal(t, TokenInputParameter, tokens[3].Type)
	assert.Equal(t, "?1", tokens[3].Value)
	assert.Equal(t, "?", tokens[4].Value)
}

func TestLexer_QualifiedNames(t *testing.T) {
	tokens := Tokenize(`\App\Entity\User App:User Foo\`)
	require.Len(t, tokens, 4)
	assert.Equal(t, `\App\Entity\User`, tokens[0].Value)
	assert.Equal(t, TokenIdentifier, tokens[0].Type)
	assert.Equal(t, "App:User", tokens[1].Value)
	assert.Equal(t, "Foo", tokens[2].Value)
	assert.Equal(t, TokenNone, tokens[3].Type)
}

func TestLexer_Operators(t *testing.T) {
	tokens := Tokenize("( ) , . = > < + - * / ! { }")
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	assert.Equal(t, []TokenType{
		TokenOpenParenthesis, TokenCloseParenthesis, TokenComma, TokenDot, TokenEquals,
		TokenGreaterThan, TokenLowerThan, TokenPlus, TokenMinus, TokenMultiply, TokenDivide,
		TokenNegate, TokenOpenCurlyBrace, TokenCloseCurlyBrace,
	}, types)
}

func TestLexer_UnknownCharacter(t *testing.T) {
	tokens := Tokenize("u # v")
	require.Len(t, tokens, 3)
	assert.Equal(t, TokenNone, tokens[1].Type)
	assert.Equal(t, "#", tokens[1].Value)
	assert.Equal(t, 2, tokens[1].Pos)
}

func TestTokenType_String(t *testing.T) {
	assert.Equal(t, "')'", TokenCloseParenthesis.String())
	assert.Equal(t, "end of string", TokenEOF.String())
	assert.Equal(t, "identifier", TokenIdentifier.String())
	assert.Equal(t, "SELECT", TokenSelect.String())
	assert.Contains(t, Keywords(), "NULLIF")
}

func TestStream_LookaheadAndPeek(t *testing.T) {
	s := NewStream(Tokenize("a . b c"))
	assert.True(t, s.Lookahead.IsEOF())

	require.True(t, s.MoveNext())
	assert.Equal(t, "a", s.Lookahead.Value)
	assert.Equal(t, TokenDot, s.Glimpse().Type)
	assert.Equal(t, TokenDot, s.Glimpse().Type, "Glimpse does not advance")

	assert.Equal(t, TokenDot, s.Peek().Type)
	assert.Equal(t, "b", s.Peek().Value)
	assert.Equal(t, "c", s.Peek().Value)
	assert.True(t, s.Peek().IsEOF())
	s.ResetPeek()
	assert.Equal(t, TokenDot, s.Peek().Type)

	s.MoveNext()
	assert.Equal(t, "a", s.Token.Value)
	assert.True(t, s.IsNextToken(TokenDot))
	assert.True(t, s.IsNextTokenAny(TokenComma, TokenDot))

	s.MoveNext()
	s.MoveNext()
	assert.False(t, s.MoveNext())
	assert.True(t, s.Lookahead.IsEOF())
	assert.Equal(t, -1, s.Lookahead.Pos)
	assert.False(t, s.IsNextToken(TokenEOF))
}
