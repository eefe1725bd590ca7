// Package oql implements the lexer, parser, AST, and semantic validation for
// OQL, an object query language written against entity names and their
// properties rather than tables and columns.
package oql

import (
	"slices"
	"strings"
)

// TokenType identifies the kind of lexical token.
//
// Types are banded: punctuation, operators, and literals sort below
// TokenIdentifier and keywords sort above it. Match relies on the ordering
// to accept a keyword wherever an identifier is grammatically valid.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNone

	// Literals
	TokenInteger
	TokenString
	TokenInputParameter
	TokenFloat

	// Punctuation and operators
	TokenCloseParenthesis
	TokenOpenParenthesis
	TokenComma
	TokenDivide
	TokenDot
	TokenEquals
	TokenGreaterThan
	TokenLowerThan
	TokenMinus
	TokenMultiply
	TokenNegate
	TokenPlus
	TokenOpenCurlyBrace
	TokenCloseCurlyBrace
)

// TokenIdentifier is the boundary between symbols and keywords.
const TokenIdentifier TokenType = 100

// Keywords
const (
	TokenAll TokenType = iota + TokenIdentifier + 1
	TokenAnd
	TokenAny
	TokenAs
	TokenAsc
	TokenAvg
	TokenBetween
	TokenBoth
	TokenBy
	TokenCase
	TokenCoalesce
	TokenCount
	TokenDelete
	TokenDesc
	TokenDistinct
	TokenElse
	TokenEmpty
	TokenEnd
	TokenEscape
	TokenExists
	TokenFalse
	TokenFrom
	TokenGroup
	TokenHaving
	TokenHidden
	TokenIn
	TokenIndex
	TokenInner
	TokenInstance
	TokenIs
	TokenJoin
	TokenLeading
	TokenLeft
	TokenLike
	TokenMax
	TokenMember
	TokenMin
	TokenNew
	TokenNot
	TokenNull
	TokenNullif
	TokenOf
	TokenOr
	TokenOrder
	TokenOuter
	TokenPartial
	TokenSelect
	TokenSet
	TokenSome
	TokenSum
	TokenThen
	TokenTrailing
	TokenTrue
	TokenUpdate
	TokenWhen
	TokenWhere
	TokenWith
)

var symbolNames = map[TokenType]string{
	TokenEOF:              "end of string",
	TokenNone:             "NONE",
	TokenInteger:          "integer",
	TokenString:           "string",
	TokenInputParameter:   "input parameter",
	TokenFloat:            "float",
	TokenCloseParenthesis: "')'",
	TokenOpenParenthesis:  "'('",
	TokenComma:            "','",
	TokenDivide:           "'/'",
	TokenDot:              "'.'",
	TokenEquals:           "'='",
	TokenGreaterThan:      "'>'",
	TokenLowerThan:        "'<'",
	TokenMinus:            "'-'",
	TokenMultiply:         "'*'",
	TokenNegate:           "'!'",
	TokenPlus:             "'+'",
	TokenOpenCurlyBrace:   "'{'",
	TokenCloseCurlyBrace:  "'}'",
	TokenIdentifier:       "identifier",
}

var keywords = map[string]TokenType{
	"ALL":      TokenAll,
	"AND":      TokenAnd,
	"ANY":      TokenAny,
	"AS":       TokenAs,
	"ASC":      TokenAsc,
	"AVG":      TokenAvg,
	"BETWEEN":  TokenBetween,
	"BOTH":     TokenBoth,
	"BY":       TokenBy,
	"CASE":     TokenCase,
	"COALESCE": TokenCoalesce,
	"COUNT":    TokenCount,
	"DELETE":   TokenDelete,
	"DESC":     TokenDesc,
	"DISTINCT": TokenDistinct,
	"ELSE":     TokenElse,
	"EMPTY":    TokenEmpty,
	"END":      TokenEnd,
	"ESCAPE":   TokenEscape,
	"EXISTS":   TokenExists,
	"FALSE":    TokenFalse,
	"FROM":     TokenFrom,
	"GROUP":    TokenGroup,
	"HAVING":   TokenHaving,
	"HIDDEN":   TokenHidden,
	"IN":       TokenIn,
	"INDEX":    TokenIndex,
	"INNER":    TokenInner,
	"INSTANCE": TokenInstance,
	"IS":       TokenIs,
	"JOIN":     TokenJoin,
	"LEADING":  TokenLeading,
	"LEFT":     TokenLeft,
	"LIKE":     TokenLike,
	"MAX":      TokenMax,
	"MEMBER":   TokenMember,
	"MIN":      TokenMin,
	"NEW":      TokenNew,
	"NOT":      TokenNot,
	"NULL":     TokenNull,
	"NULLIF":   TokenNullif,
	"OF":       TokenOf,
	"OR":       TokenOr,
	"ORDER":    TokenOrder,
	"OUTER":    TokenOuter,
	"PARTIAL":  TokenPartial,
	"SELECT":   TokenSelect,
	"SET":      TokenSet,
	"SOME":     TokenSome,
	"SUM":      TokenSum,
	"THEN":     TokenThen,
	"TRAILING": TokenTrailing,
	"TRUE":     TokenTrue,
	"UPDATE":   TokenUpdate,
	"WHEN":     TokenWhen,
	"WHERE":    TokenWhere,
	"WITH":     TokenWith,
}

var keywordNames = func() map[TokenType]string {
	m := make(map[TokenType]string, len(keywords))
	for name, t := range keywords {
		m[t] = name
	}
	return m
}()

// String returns the name used for the token type in error messages.
func (t TokenType) String() string {
	if name, ok := symbolNames[t]; ok {
		return name
	}
	if name, ok := keywordNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsKeyword reports whether the type is in the keyword band.
func (t TokenType) IsKeyword() bool { return t > TokenIdentifier }

// LookupKeyword returns the keyword token type for an identifier, or
// TokenIdentifier if it is not a keyword. Lookup is case-insensitive.
func LookupKeyword(ident string) TokenType {
	if t, ok := keywords[strings.ToUpper(ident)]; ok {
		return t
	}
	return TokenIdentifier
}

// Keywords returns all keyword spellings in upper case, sorted.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for name := range keywords {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Token is a single lexical token. Pos is the byte offset in the query.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// IsEOF reports whether the token marks the end of input.
func (t Token) IsEOF() bool { return t.Type == TokenEOF }
