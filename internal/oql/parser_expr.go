package oql

import (
	"fmt"
	"strings"
)

// ── Scalar expressions ──────────────────────────────────────────────────────

// ScalarExpression ::= SimpleArithmeticExpression | StringPrimary | Literal | InputParameter |
//
//	CaseExpression | FunctionDeclaration | AggregateExpression | StateFieldPathExpression | boolean
func (p *Parser) ScalarExpression() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	la := p.stream.Lookahead
	peek := p.stream.Glimpse()

	switch {
	case la.Type == TokenInteger, la.Type == TokenFloat, la.Type == TokenMinus, la.Type == TokenPlus:
		return p.SimpleArithmeticExpression()

	case la.Type == TokenString:
		return p.StringPrimary()

	case la.Type == TokenTrue, la.Type == TokenFalse:
		p.stream.MoveNext()
		return &Literal{TokenPos: la.Pos, Kind: LiteralBoolean, Value: strings.ToUpper(la.Value)}, nil

	case la.Type == TokenInputParameter:
		if isMathOperator(peek) {
			// :param + u.value
			return p.SimpleArithmeticExpression()
		}
		return p.InputParameter()

	case la.Type == TokenCase, la.Type == TokenCoalesce, la.Type == TokenNullif:
		// COALESCE and NULLIF look like functions, so check them first.
		return p.CaseExpression()

	case la.Type == TokenOpenParenthesis:
		return p.SimpleArithmeticExpression()

	case p.isFunction():
		p.stream.Peek() // "("
		switch {
		case isMathOperator(p.peekBeyondClosingParenthesis(true)):
			// SUM(u.id) + COUNT(u.id)
			return p.SimpleArithmeticExpression()
		case isAggregateFunction(la.Type):
			return p.AggregateExpression()
		default:
			return p.FunctionDeclaration()
		}

	case la.Type == TokenIdentifier:
		p.stream.Peek()          // "."
		p.stream.Peek()          // field
		after := p.stream.Peek() // token after alias.field
		p.stream.ResetPeek()
		if isMathOperator(after) || isMathOperator(peek) {
			return p.SimpleArithmeticExpression()
		}
		if peek.Type != TokenDot {
			if comp, ok := p.components.Lookup(la.Value); ok && comp.IsResultVariable() {
				return p.ResultVariable()
			}
		}
		return p.StateFieldPathExpression()
	}
	return nil, p.SyntaxError("")
}

// ── Arithmetic ──────────────────────────────────────────────────────────────

// ArithmeticExpression ::= SimpleArithmeticExpression | "(" Subselect ")"
func (p *Parser) ArithmeticExpression() (*ArithmeticExpression, error) {
	pos := p.stream.Lookahead.Pos
	if p.stream.IsNextToken(TokenOpenParenthesis) && p.stream.Glimpse().Type == TokenSelect {
		sub, err := p.parenthesizedSubselect()
		if err != nil {
			return nil, err
		}
		return &ArithmeticExpression{TokenPos: pos, Expr: sub}, nil
	}
	expr, err := p.SimpleArithmeticExpression()
	if err != nil {
		return nil, err
	}
	return &ArithmeticExpression{TokenPos: pos, Expr: expr}, nil
}

// SimpleArithmeticExpression ::= ArithmeticTerm {("+" | "-") ArithmeticTerm}*
//
// A single term is returned unwrapped.
func (p *Parser) SimpleArithmeticExpression() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	pos := p.stream.Lookahead.Pos
	term, err := p.ArithmeticTerm()
	if err != nil {
		return nil, err
	}
	expr := &SimpleArithmeticExpression{TokenPos: pos, Terms: []Expr{term}}
	for p.stream.IsNextTokenAny(TokenPlus, TokenMinus) {
		p.stream.MoveNext()
		expr.Operators = append(expr.Operators, p.stream.Token.Value)
		term, err := p.ArithmeticTerm()
		if err != nil {
			return nil, err
		}
		expr.Terms = append(expr.Terms, term)
	}
	if len(expr.Terms) == 1 {
		return expr.Terms[0], nil
	}
	return expr, nil
}

// ArithmeticTerm ::= ArithmeticFactor {("*" | "/") ArithmeticFactor}*
//
// A single factor is returned unwrapped.
func (p *Parser) ArithmeticTerm() (Expr, error) {
	pos := p.stream.Lookahead.Pos
	factor, err := p.ArithmeticFactor()
	if err != nil {
		return nil, err
	}
	term := &ArithmeticTerm{TokenPos: pos, Factors: []Expr{factor}}
	for p.stream.IsNextTokenAny(TokenMultiply, TokenDivide) {
		p.stream.MoveNext()
		term.Operators = append(term.Operators, p.stream.Token.Value)
		factor, err := p.ArithmeticFactor()
		if err != nil {
			return nil, err
		}
		term.Factors = append(term.Factors, factor)
	}
	if len(term.Factors) == 1 {
		return term.Factors[0], nil
	}
	return term, nil
}

// ArithmeticFactor ::= [("+" | "-")] ArithmeticPrimary
//
// An unsigned primary is returned unwrapped.
func (p *Parser) ArithmeticFactor() (Expr, error) {
	pos := p.stream.Lookahead.Pos
	sign := ""
	if p.stream.IsNextTokenAny(TokenPlus, TokenMinus) {
		p.stream.MoveNext()
		sign = p.stream.Token.Value
	}
	primary, err := p.ArithmeticPrimary()
	if err != nil {
		return nil, err
	}
	if sign == "" {
		return primary, nil
	}
	return &ArithmeticFactor{TokenPos: pos, Primary: primary, Sign: sign}, nil
}

// ArithmeticPrimary ::= SingleValuedPathExpression | Literal | "(" SimpleArithmeticExpression ")" |
//
//	FunctionDeclaration | AggregateExpression | InputParameter | CaseExpression | ResultVariable
func (p *Parser) ArithmeticPrimary() (Expr, error) {
	la := p.stream.Lookahead
	if la.Type == TokenOpenParenthesis {
		p.stream.MoveNext()
		expr, err := p.SimpleArithmeticExpression()
		if err != nil {
			return nil, err
		}
		if err := p.Match(TokenCloseParenthesis); err != nil {
			return nil, err
		}
		return &ParenthesisExpression{TokenPos: la.Pos, Expr: expr}, nil
	}

	switch la.Type {
	case TokenCoalesce, TokenNullif, TokenCase:
		return p.CaseExpression()

	case TokenIdentifier:
		switch p.stream.Glimpse().Type {
		case TokenOpenParenthesis:
			return p.FunctionDeclaration()
		case TokenDot:
			return p.SingleValuedPathExpression()
		}
		if comp, ok := p.components.Lookup(la.Value); ok && comp.IsResultVariable() {
			return p.ResultVariable()
		}
		return p.StateFieldPathExpression()

	case TokenInputParameter:
		return p.InputParameter()
	}

	if p.stream.Glimpse().Type == TokenOpenParenthesis {
		if isAggregateFunction(la.Type) {
			return p.AggregateExpression()
		}
		return p.FunctionDeclaration()
	}
	return p.Literal()
}

// ── Strings ─────────────────────────────────────────────────────────────────

// StringExpression ::= StringPrimary | ResultVariable | "(" Subselect ")"
func (p *Parser) StringExpression() (Expr, error) {
	if p.stream.IsNextToken(TokenOpenParenthesis) && p.stream.Glimpse().Type == TokenSelect {
		return p.parenthesizedSubselect()
	}
	la := p.stream.Lookahead
	if la.Type == TokenIdentifier {
		if comp, ok := p.components.Lookup(la.Value); ok && comp.IsResultVariable() {
			return p.ResultVariable()
		}
	}
	return p.StringPrimary()
}

// StringPrimary ::= StateFieldPathExpression | string | InputParameter | FunctionDeclaration |
//
//	AggregateExpression | CaseExpression
func (p *Parser) StringPrimary() (Expr, error) {
	la := p.stream.Lookahead
	switch la.Type {
	case TokenIdentifier:
		switch p.stream.Glimpse().Type {
		case TokenDot:
			return p.StateFieldPathExpression()
		case TokenOpenParenthesis:
			return p.FunctionDeclaration()
		}
		return nil, p.SyntaxErrorAt("'.' or '('", p.stream.Glimpse())

	case TokenString:
		p.stream.MoveNext()
		return &Literal{TokenPos: la.Pos, Kind: LiteralString, Value: la.Value}, nil

	case TokenInputParameter:
		return p.InputParameter()

	case TokenCase, TokenCoalesce, TokenNullif:
		return p.CaseExpression()
	}

	if isAggregateFunction(la.Type) {
		return p.AggregateExpression()
	}
	if p.isFunction() {
		return p.FunctionDeclaration()
	}
	return nil, p.SyntaxError("StateFieldPathExpression | string | InputParameter | FunctionsReturningStrings | AggregateExpression")
}

// ── Literals and parameters ─────────────────────────────────────────────────

// Literal ::= string | number | boolean
func (p *Parser) Literal() (*Literal, error) {
	la := p.stream.Lookahead
	lit := &Literal{TokenPos: la.Pos, Value: la.Value}
	switch la.Type {
	case TokenString:
		lit.Kind = LiteralString
	case TokenInteger, TokenFloat:
		lit.Kind = LiteralNumeric
	case TokenTrue, TokenFalse:
		lit.Kind = LiteralBoolean
		lit.Value = strings.ToUpper(la.Value)
	default:
		return nil, p.SyntaxError("Literal")
	}
	p.stream.MoveNext()
	return lit, nil
}

// InputParameter ::= ":" name | "?" number
func (p *Parser) InputParameter() (*InputParameter, error) {
	if err := p.Match(TokenInputParameter); err != nil {
		return nil, err
	}
	tok := p.stream.Token
	if len(tok.Value) < 2 {
		return nil, &SyntaxError{
			Message: fmt.Sprintf("line 0, col %d: Error: Invalid parameter format, %s given, but :<name> or ?<num> expected.", tok.Pos, tok.Value),
			Got:     tok,
			Query:   p.query.Text,
		}
	}
	param := &InputParameter{TokenPos: tok.Pos, Name: tok.Value[1:], Positional: tok.Value[0] == '?'}
	p.parameters = append(p.parameters, param)
	return param, nil
}

// ── Aggregates and CASE ─────────────────────────────────────────────────────

// AggregateExpression ::= ("AVG" | "MAX" | "MIN" | "SUM" | "COUNT") "(" ["DISTINCT"] SimpleArithmeticExpression ")"
//
// COUNT takes a SingleValuedPathExpression instead.
func (p *Parser) AggregateExpression() (*AggregateExpression, error) {
	la := p.stream.Lookahead
	if !isAggregateFunction(la.Type) {
		return nil, p.SyntaxError("One of: MAX, MIN, AVG, SUM, COUNT")
	}
	p.stream.MoveNext()
	if err := p.Match(TokenOpenParenthesis); err != nil {
		return nil, err
	}
	agg := &AggregateExpression{
		TokenPos: la.Pos,
		Function: strings.ToUpper(la.Value),
		Distinct: p.skip(TokenDistinct),
	}
	var err error
	if la.Type == TokenCount {
		agg.Expr, err = p.SingleValuedPathExpression()
	} else {
		agg.Expr, err = p.SimpleArithmeticExpression()
	}
	if err != nil {
		return nil, err
	}
	if err := p.Match(TokenCloseParenthesis); err != nil {
		return nil, err
	}
	return agg, nil
}

// CaseExpression ::= GeneralCaseExpression | SimpleCaseExpression | CoalesceExpression | NullifExpression
func (p *Parser) CaseExpression() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	switch p.stream.Lookahead.Type {
	case TokenNullif:
		return p.NullIfExpression()
	case TokenCoalesce:
		return p.CoalesceExpression()
	case TokenCase:
		p.stream.ResetPeek()
		if p.stream.Peek().Type == TokenWhen {
			p.stream.ResetPeek()
			return p.GeneralCaseExpression()
		}
		p.stream.ResetPeek()
		return p.SimpleCaseExpression()
	}
	return nil, p.SyntaxError("")
}

// GeneralCaseExpression ::= "CASE" WhenClause {WhenClause}* "ELSE" ScalarExpression "END"
func (p *Parser) GeneralCaseExpression() (*GeneralCaseExpression, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenCase); err != nil {
		return nil, err
	}
	expr := &GeneralCaseExpression{TokenPos: pos}
	for {
		when, err := p.WhenClause()
		if err != nil {
			return nil, err
		}
		expr.When = append(expr.When, when)
		if !p.stream.IsNextToken(TokenWhen) {
			break
		}
	}
	if err := p.Match(TokenElse); err != nil {
		return nil, err
	}
	var err error
	if expr.Else, err = p.ScalarExpression(); err != nil {
		return nil, err
	}
	if err := p.Match(TokenEnd); err != nil {
		return nil, err
	}
	return expr, nil
}

// SimpleCaseExpression ::= "CASE" StateFieldPathExpression SimpleWhenClause {SimpleWhenClause}* "ELSE" ScalarExpression "END"
func (p *Parser) SimpleCaseExpression() (*SimpleCaseExpression, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenCase); err != nil {
		return nil, err
	}
	operand, err := p.StateFieldPathExpression()
	if err != nil {
		return nil, err
	}
	expr := &SimpleCaseExpression{TokenPos: pos, Operand: operand}
	for {
		when, err := p.SimpleWhenClause()
		if err != nil {
			return nil, err
		}
		expr.When = append(expr.When, when)
		if !p.stream.IsNextToken(TokenWhen) {
			break
		}
	}
	if err := p.Match(TokenElse); err != nil {
		return nil, err
	}
	if expr.Else, err = p.ScalarExpression(); err != nil {
		return nil, err
	}
	if err := p.Match(TokenEnd); err != nil {
		return nil, err
	}
	return expr, nil
}

// WhenClause ::= "WHEN" ConditionalExpression "THEN" ScalarExpression
func (p *Parser) WhenClause() (*WhenClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenWhen); err != nil {
		return nil, err
	}
	cond, err := p.ConditionalExpression()
	if err != nil {
		return nil, err
	}
	if err := p.Match(TokenThen); err != nil {
		return nil, err
	}
	result, err := p.ScalarExpression()
	if err != nil {
		return nil, err
	}
	return &WhenClause{TokenPos: pos, Condition: cond, Result: result}, nil
}

// SimpleWhenClause ::= "WHEN" ScalarExpression "THEN" ScalarExpression
func (p *Parser) SimpleWhenClause() (*SimpleWhenClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenWhen); err != nil {
		return nil, err
	}
	value, err := p.ScalarExpression()
	if err != nil {
		return nil, err
	}
	if err := p.Match(TokenThen); err != nil {
		return nil, err
	}
	result, err := p.ScalarExpression()
	if err != nil {
		return nil, err
	}
	return &SimpleWhenClause{TokenPos: pos, Value: value, Result: result}, nil
}

// CoalesceExpression ::= "COALESCE" "(" ScalarExpression {"," ScalarExpression}* ")"
func (p *Parser) CoalesceExpression() (*CoalesceExpression, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenCoalesce); err != nil {
		return nil, err
	}
	if err := p.Match(TokenOpenParenthesis); err != nil {
		return nil, err
	}
	expr := &CoalesceExpression{TokenPos: pos}
	for {
		e, err := p.ScalarExpression()
		if err != nil {
			return nil, err
		}
		expr.Exprs = append(expr.Exprs, e)
		if !p.skip(TokenComma) {
			break
		}
	}
	if err := p.Match(TokenCloseParenthesis); err != nil {
		return nil, err
	}
	return expr, nil
}

// NullIfExpression ::= "NULLIF" "(" ScalarExpression "," ScalarExpression ")"
func (p *Parser) NullIfExpression() (*NullIfExpression, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenNullif); err != nil {
		return nil, err
	}
	if err := p.Match(TokenOpenParenthesis); err != nil {
		return nil, err
	}
	first, err := p.ScalarExpression()
	if err != nil {
		return nil, err
	}
	if err := p.Match(TokenComma); err != nil {
		return nil, err
	}
	second, err := p.ScalarExpression()
	if err != nil {
		return nil, err
	}
	if err := p.Match(TokenCloseParenthesis); err != nil {
		return nil, err
	}
	return &NullIfExpression{TokenPos: pos, First: first, Second: second}, nil
}

// ── Path expressions ────────────────────────────────────────────────────────

// PathExpression ::= IdentificationVariable {"." identifier}*
//
// The path is resolved against entity metadata after parsing; expected
// restricts what it may resolve to.
func (p *Parser) PathExpression(expected PathType) (*PathExpression, error) {
	pos := p.stream.Lookahead.Pos
	ident, err := p.IdentificationVariable()
	if err != nil {
		return nil, err
	}
	var field []string
	for p.skip(TokenDot) {
		if err := p.Match(TokenIdentifier); err != nil {
			return nil, err
		}
		field = append(field, p.stream.Token.Value)
	}
	path := &PathExpression{
		TokenPos:               pos,
		ExpectedType:           expected,
		IdentificationVariable: ident,
		Field:                  strings.Join(field, "."),
	}
	p.deferredPathExpressions = append(p.deferredPathExpressions, deferredItem[*PathExpression]{
		Expr: path, NestingLevel: p.nestingLevel, Token: p.stream.Token,
	})
	return path, nil
}

// AssociationPathExpression ::= SingleValuedAssociationPathExpression | CollectionValuedPathExpression
func (p *Parser) AssociationPathExpression() (*PathExpression, error) {
	return p.PathExpression(PathSingleValuedAssociation | PathCollectionValuedAssociation)
}

// SingleValuedPathExpression ::= StateFieldPathExpression | SingleValuedAssociationPathExpression
func (p *Parser) SingleValuedPathExpression() (*PathExpression, error) {
	return p.PathExpression(PathStateField | PathSingleValuedAssociation)
}

// StateFieldPathExpression ::= IdentificationVariable "." StateField
func (p *Parser) StateFieldPathExpression() (*PathExpression, error) {
	return p.PathExpression(PathStateField)
}

// SingleValuedAssociationPathExpression ::= IdentificationVariable "." SingleValuedAssociationField
func (p *Parser) SingleValuedAssociationPathExpression() (*PathExpression, error) {
	return p.PathExpression(PathSingleValuedAssociation)
}

// CollectionValuedPathExpression ::= IdentificationVariable "." CollectionValuedAssociationField
func (p *Parser) CollectionValuedPathExpression() (*PathExpression, error) {
	return p.PathExpression(PathCollectionValuedAssociation)
}

// EntityExpression ::= SingleValuedAssociationPathExpression | SimpleEntityExpression
func (p *Parser) EntityExpression() (Expr, error) {
	if p.stream.IsNextToken(TokenIdentifier) && p.stream.Glimpse().Type == TokenDot {
		return p.SingleValuedAssociationPathExpression()
	}
	return p.SimpleEntityExpression()
}

// SimpleEntityExpression ::= IdentificationVariable | InputParameter
func (p *Parser) SimpleEntityExpression() (Expr, error) {
	if p.stream.IsNextToken(TokenInputParameter) {
		return p.InputParameter()
	}
	return p.StateFieldPathExpression()
}
