package oql

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxDepth bounds expression nesting when Query.MaxDepth is zero.
const DefaultMaxDepth = 256

// Hints recognised in Query.Hints. They are recorded in the Result for the
// caller's walkers; the parser does not run them.
const (
	HintCustomTreeWalkers  = "oql.custom_tree_walkers"  // []string
	HintCustomOutputWalker = "oql.custom_output_walker" // string
)

// Query is the input to a parse.
type Query struct {
	Text string
	// Parameters, when non-nil, are checked against the parameters the
	// query uses once parsing succeeds; see Result.CheckParameters.
	Parameters map[string]any
	Hints      map[string]any
	MaxDepth   int
}

// NewQuery returns a Query for text with no parameters or hints.
func NewQuery(text string) *Query {
	return &Query{Text: text}
}

type deferredItem[T any] struct {
	Expr         T
	NestingLevel int
	Token        Token
}

// Parser is a single-use recursive-descent parser. Each grammar production
// is an exported method of the same name so that custom functions can parse
// their own arguments.
type Parser struct {
	ctx        context.Context
	query      *Query
	metadata   MetadataProvider
	stream     *Stream
	components *ComponentTable

	nestingLevel int
	depth        int
	maxDepth     int

	deferredIdentVariables  []deferredItem[string]
	deferredPartialObjects  []deferredItem[*PartialObjectExpression]
	deferredPathExpressions []deferredItem[*PathExpression]
	deferredResultVariables []deferredItem[string]
	deferredNewObjects      []deferredItem[*NewObjectExpression]

	// selected holds SELECT items that are bare or partial entity aliases.
	selected      map[string]*SelectExpression
	selectedToken Token

	indexBys   []*IndexBy
	parameters []*InputParameter
}

// NewParser creates a parser for q using md to resolve entities, classes,
// and custom functions.
func NewParser(q *Query, md MetadataProvider) *Parser {
	maxDepth := q.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Parser{
		ctx:        context.Background(),
		query:      q,
		metadata:   md,
		stream:     NewStream(Tokenize(q.Text)),
		components: NewComponentTable(),
		maxDepth:   maxDepth,
		selected:   make(map[string]*SelectExpression),
	}
}

// Parse parses and validates q. The error is a *SyntaxError, a
// *SemanticError, a *ParameterError when q.Parameters is set, or a wrapped
// metadata error.
func Parse(q *Query, md MetadataProvider) (*Result, error) {
	return NewParser(q, md).Parse()
}

// ParseContext is Parse bounded by ctx. The parser checks ctx as it
// descends, so a cancelled or expired context stops the parse early with
// ctx.Err().
func ParseContext(ctx context.Context, q *Query, md MetadataProvider) (*Result, error) {
	p := NewParser(q, md)
	p.ctx = ctx
	return p.Parse()
}

// Parse runs the grammar over the whole query, then the deferred
// validation passes.
func (p *Parser) Parse() (*Result, error) {
	stmt, err := p.QueryLanguage()
	if err != nil {
		return nil, err
	}
	if err := p.validate(stmt); err != nil {
		return nil, err
	}
	if err := p.ctx.Err(); err != nil {
		return nil, err
	}
	res := p.result(stmt)
	if p.query.Parameters != nil {
		if err := res.CheckParameters(p.query.Parameters); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Query returns the query being parsed.
func (p *Parser) Query() *Query { return p.query }

// Stream exposes the token stream to custom functions.
func (p *Parser) Stream() *Stream { return p.stream }

// Lookahead returns the next token to be consumed.
func (p *Parser) Lookahead() Token { return p.stream.Lookahead }

// Components returns the query component table built so far.
func (p *Parser) Components() *ComponentTable { return p.components }

// NestingLevel returns the current subselect depth, 0 at the top level.
func (p *Parser) NestingLevel() int { return p.nestingLevel }

// Metadata returns the parser's metadata provider.
func (p *Parser) Metadata() MetadataProvider { return p.metadata }

// ── Token helpers ───────────────────────────────────────────────────────────

// Match consumes the lookahead if it has type t. Matching TokenIdentifier
// also accepts any keyword.
func (p *Parser) Match(t TokenType) error {
	la := p.stream.Lookahead.Type
	if la != t && (t != TokenIdentifier || la <= TokenIdentifier) {
		return p.SyntaxError(t.String())
	}
	p.stream.MoveNext()
	return nil
}

// skip consumes the lookahead if it has type t and reports whether it did.
func (p *Parser) skip(t TokenType) bool {
	if p.stream.IsNextToken(t) {
		p.stream.MoveNext()
		return true
	}
	return false
}

// isFunction reports whether the lookahead starts a function call: a word
// followed by an opening parenthesis.
func (p *Parser) isFunction() bool {
	la := p.stream.Lookahead.Type
	peek := p.stream.Glimpse()
	return la >= TokenIdentifier && peek.Type == TokenOpenParenthesis
}

func isMathOperator(t Token) bool {
	switch t.Type {
	case TokenPlus, TokenMinus, TokenMultiply, TokenDivide:
		return true
	}
	return false
}

func isComparisonOperator(t Token) bool {
	switch t.Type {
	case TokenEquals, TokenLowerThan, TokenGreaterThan, TokenNegate:
		return true
	}
	return false
}

func isAggregateFunction(t TokenType) bool {
	switch t {
	case TokenAvg, TokenMin, TokenMax, TokenSum, TokenCount:
		return true
	}
	return false
}

func (p *Parser) isNextAllAnySome() bool {
	return p.stream.IsNextTokenAny(TokenAll, TokenAny, TokenSome)
}

// peekBeyondClosingParenthesis assumes the peek pointer sits just before
// the first token inside an open parenthesis and returns the token after
// the matching close.
func (p *Parser) peekBeyondClosingParenthesis(reset bool) Token {
	tok := p.stream.Peek()
	unmatched := 1
	for unmatched > 0 && !tok.IsEOF() {
		switch tok.Type {
		case TokenOpenParenthesis:
			unmatched++
		case TokenCloseParenthesis:
			unmatched--
		}
		tok = p.stream.Peek()
	}
	if reset {
		p.stream.ResetPeek()
	}
	return tok
}

// enter guards recursive productions against unbounded nesting.
func (p *Parser) enter() error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	if p.depth >= p.maxDepth {
		tok := p.stream.Lookahead
		return &SyntaxError{
			Message: fmt.Sprintf("line 0, col %d: Error: Query nested too deeply (limit %d).", tok.Pos, p.maxDepth),
			Got:     tok,
			Query:   p.query.Text,
		}
	}
	p.depth++
	return nil
}

func (p *Parser) leave() { p.depth-- }

// ── Errors ──────────────────────────────────────────────────────────────────

// SyntaxError returns a syntax error at the lookahead.
func (p *Parser) SyntaxError(expected string) error {
	return newSyntaxError(p.query.Text, expected, p.stream.Lookahead)
}

// SyntaxErrorAt returns a syntax error at tok.
func (p *Parser) SyntaxErrorAt(expected string, tok Token) error {
	return newSyntaxError(p.query.Text, expected, tok)
}

// SemanticError returns a semantic error near tok.
func (p *Parser) SemanticError(msg string, tok Token) error {
	return newSemanticError(p.query.Text, msg, tok)
}

func (p *Parser) semanticErrorf(tok Token, format string, args ...any) error {
	return newSemanticError(p.query.Text, fmt.Sprintf(format, args...), tok)
}

// semanticErrorSuggest adds a "did you mean" hint for input among candidates.
func (p *Parser) semanticErrorSuggest(tok Token, input string, candidates []string, format string, args ...any) error {
	err := newSemanticError(p.query.Text, fmt.Sprintf(format, args...), tok)
	err.Suggestion = SuggestFrom(input, candidates, 2)
	return err
}

// EntityLister is optionally implemented by a MetadataProvider to improve
// error suggestions.
type EntityLister interface {
	EntityNames() []string
}

// entityMetadata resolves name, turning a not-found error into a semantic
// error at tok.
func (p *Parser) entityMetadata(name string, tok Token) (*EntityMetadata, error) {
	md, err := p.metadata.EntityMetadata(name)
	if err == nil {
		return md, nil
	}
	if errors.Is(err, ErrEntityNotFound) {
		var candidates []string
		if l, ok := p.metadata.(EntityLister); ok {
			candidates = l.EntityNames()
		}
		return nil, p.semanticErrorSuggest(tok, name, candidates, "Class '%s' is not defined.", name)
	}
	return nil, fmt.Errorf("oql: loading metadata for %s: %w", name, err)
}

// ── Entry point ─────────────────────────────────────────────────────────────

// QueryLanguage ::= SelectStatement | UpdateStatement | DeleteStatement
func (p *Parser) QueryLanguage() (Statement, error) {
	p.stream.MoveNext()

	var stmt Statement
	var err error
	switch p.stream.Lookahead.Type {
	case TokenSelect:
		stmt, err = p.SelectStatement()
	case TokenUpdate:
		stmt, err = p.UpdateStatement()
	case TokenDelete:
		stmt, err = p.DeleteStatement()
	default:
		return nil, p.SyntaxError("SELECT, UPDATE or DELETE")
	}
	if err != nil {
		return nil, err
	}

	if !p.stream.Lookahead.IsEOF() {
		return nil, p.SyntaxError("end of string")
	}
	return stmt, nil
}

// AbstractSchemaName ::= identifier
//
// A leading backslash is dropped and "Alias:Entity" is expanded through the
// provider's namespace aliases.
func (p *Parser) AbstractSchemaName() (string, error) {
	name, _, err := p.abstractSchemaName()
	return name, err
}

func (p *Parser) abstractSchemaName() (string, *EntityMetadata, error) {
	if err := p.Match(TokenIdentifier); err != nil {
		return "", nil, err
	}
	tok := p.stream.Token
	name := strings.TrimLeft(tok.Value, "\\")

	if alias, short, ok := strings.Cut(name, ":"); ok {
		ns, err := p.metadata.ResolveNamespaceAlias(alias)
		if err != nil {
			if errors.Is(err, ErrUnknownNamespaceAlias) {
				return "", nil, p.semanticErrorf(tok, "Unknown entity namespace alias '%s'.", alias)
			}
			return "", nil, fmt.Errorf("oql: resolving namespace alias %s: %w", alias, err)
		}
		name = ns + "\\" + short
	}

	md, err := p.entityMetadata(name, tok)
	if err != nil {
		return "", nil, err
	}
	return md.Name, md, nil
}
