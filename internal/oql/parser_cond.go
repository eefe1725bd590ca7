package oql

import "strings"

// ConditionalExpression ::= ConditionalTerm {"OR" ConditionalTerm}*
//
// A single term is returned unwrapped.
func (p *Parser) ConditionalExpression() (Condition, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	pos := p.stream.Lookahead.Pos
	term, err := p.ConditionalTerm()
	if err != nil {
		return nil, err
	}
	terms := []Condition{term}
	for p.skip(TokenOr) {
		term, err := p.ConditionalTerm()
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &ConditionalExpression{TokenPos: pos, Terms: terms}, nil
}

// ConditionalTerm ::= ConditionalFactor {"AND" ConditionalFactor}*
//
// A single factor is returned unwrapped.
func (p *Parser) ConditionalTerm() (Condition, error) {
	pos := p.stream.Lookahead.Pos
	factor, err := p.ConditionalFactor()
	if err != nil {
		return nil, err
	}
	factors := []Condition{factor}
	for p.skip(TokenAnd) {
		factor, err := p.ConditionalFactor()
		if err != nil {
			return nil, err
		}
		factors = append(factors, factor)
	}
	if len(factors) == 1 {
		return factors[0], nil
	}
	return &ConditionalTerm{TokenPos: pos, Factors: factors}, nil
}

// ConditionalFactor ::= ["NOT"] ConditionalPrimary
//
// An unnegated primary is returned unwrapped.
func (p *Parser) ConditionalFactor() (Condition, error) {
	pos := p.stream.Lookahead.Pos
	not := p.skip(TokenNot)
	primary, err := p.ConditionalPrimary()
	if err != nil {
		return nil, err
	}
	if !not {
		return primary, nil
	}
	return &ConditionalFactor{TokenPos: pos, Primary: primary}, nil
}

// ConditionalPrimary ::= SimpleConditionalExpression | "(" ConditionalExpression ")"
//
// A leading parenthesis belongs to the simple condition when the token after
// the matching close is an operator, as in "(u.a + 1) > 2".
func (p *Parser) ConditionalPrimary() (*ConditionalPrimary, error) {
	pos := p.stream.Lookahead.Pos
	if p.stream.IsNextToken(TokenOpenParenthesis) {
		p.stream.ResetPeek()
		peek := p.peekBeyondClosingParenthesis(true)
		switch {
		case isComparisonOperator(peek), isMathOperator(peek):
		case peek.Type == TokenNot, peek.Type == TokenBetween, peek.Type == TokenLike,
			peek.Type == TokenIn, peek.Type == TokenIs, peek.Type == TokenExists:
		default:
			p.stream.MoveNext()
			cond, err := p.ConditionalExpression()
			if err != nil {
				return nil, err
			}
			if err := p.Match(TokenCloseParenthesis); err != nil {
				return nil, err
			}
			return &ConditionalPrimary{TokenPos: pos, Condition: cond, Grouped: true}, nil
		}
	}

	cond, err := p.SimpleConditionalExpression()
	if err != nil {
		return nil, err
	}
	return &ConditionalPrimary{TokenPos: pos, Condition: cond}, nil
}

// SimpleConditionalExpression ::= ComparisonExpression | BetweenExpression | LikeExpression |
//
//	InExpression | NullComparisonExpression | ExistsExpression | EmptyCollectionComparisonExpression |
//	CollectionMemberExpression | InstanceOfExpression
func (p *Parser) SimpleConditionalExpression() (Condition, error) {
	if p.stream.IsNextTokenAny(TokenExists) ||
		(p.stream.IsNextToken(TokenNot) && p.stream.Glimpse().Type == TokenExists) {
		return p.ExistsExpression()
	}

	op, next := p.conditionOperator()
	switch op.Type {
	case TokenBetween:
		return p.BetweenExpression()
	case TokenLike:
		return p.LikeExpression()
	case TokenIn:
		return p.InExpression()
	case TokenInstance:
		return p.InstanceOfExpression()
	case TokenMember:
		return p.CollectionMemberExpression()
	case TokenIs:
		switch next.Type {
		case TokenNull:
			return p.NullComparisonExpression()
		case TokenEmpty:
			return p.EmptyCollectionComparisonExpression()
		}
	}
	return p.ComparisonExpression()
}

// conditionOperator scans past the left operand of a simple condition and
// returns the operator token, skipping a NOT. For IS it also returns the
// token after IS [NOT]. Parentheses and CASE...END are skipped as units.
func (p *Parser) conditionOperator() (op, next Token) {
	p.stream.ResetPeek()
	defer p.stream.ResetPeek()

	depth := 0
	for tok := p.stream.Lookahead; !tok.IsEOF(); tok = p.stream.Peek() {
		switch tok.Type {
		case TokenOpenParenthesis, TokenCase:
			depth++
			continue
		case TokenCloseParenthesis, TokenEnd:
			depth--
			if depth < 0 {
				return tok, tok
			}
			continue
		}
		if depth > 0 {
			continue
		}

		switch tok.Type {
		case TokenNot:
			tok = p.stream.Peek()
			return tok, p.stream.Peek()
		case TokenIs:
			next := p.stream.Peek()
			if next.Type == TokenNot {
				next = p.stream.Peek()
			}
			return tok, next
		case TokenBetween, TokenLike, TokenIn, TokenInstance, TokenMember,
			TokenAnd, TokenOr, TokenThen, TokenWhen, TokenElse:
			return tok, p.stream.Peek()
		}
		if isComparisonOperator(tok) {
			return tok, p.stream.Peek()
		}
	}
	return p.stream.eof, p.stream.eof
}

// ComparisonExpression ::= ArithmeticExpression ComparisonOperator (QuantifiedExpression | ArithmeticExpression)
func (p *Parser) ComparisonExpression() (*ComparisonExpression, error) {
	pos := p.stream.Lookahead.Pos
	left, err := p.ArithmeticExpression()
	if err != nil {
		return nil, err
	}
	op, err := p.ComparisonOperator()
	if err != nil {
		return nil, err
	}
	expr := &ComparisonExpression{TokenPos: pos, Left: left, Operator: op}
	if p.isNextAllAnySome() {
		expr.Right, err = p.QuantifiedExpression()
	} else {
		expr.Right, err = p.ArithmeticExpression()
	}
	if err != nil {
		return nil, err
	}
	return expr, nil
}

// ComparisonOperator ::= "=" | "<" | "<=" | "<>" | ">" | ">=" | "!="
//
// "!=" is normalized to "<>".
func (p *Parser) ComparisonOperator() (string, error) {
	switch p.stream.Lookahead.Type {
	case TokenEquals:
		p.stream.MoveNext()
		return "=", nil
	case TokenLowerThan:
		p.stream.MoveNext()
		switch {
		case p.skip(TokenEquals):
			return "<=", nil
		case p.skip(TokenGreaterThan):
			return "<>", nil
		}
		return "<", nil
	case TokenGreaterThan:
		p.stream.MoveNext()
		if p.skip(TokenEquals) {
			return ">=", nil
		}
		return ">", nil
	case TokenNegate:
		p.stream.MoveNext()
		if err := p.Match(TokenEquals); err != nil {
			return "", err
		}
		return "<>", nil
	}
	return "", p.SyntaxError("=, <, <=, <>, >, >=, !=")
}

// QuantifiedExpression ::= ("ALL" | "ANY" | "SOME") "(" Subselect ")"
func (p *Parser) QuantifiedExpression() (*QuantifiedExpression, error) {
	la := p.stream.Lookahead
	if !p.isNextAllAnySome() {
		return nil, p.SyntaxError("ALL, ANY or SOME")
	}
	p.stream.MoveNext()
	sub, err := p.parenthesizedSubselect()
	if err != nil {
		return nil, err
	}
	return &QuantifiedExpression{TokenPos: la.Pos, Quantifier: strings.ToUpper(la.Value), Subselect: sub}, nil
}

// BetweenExpression ::= ArithmeticExpression ["NOT"] "BETWEEN" ArithmeticExpression "AND" ArithmeticExpression
func (p *Parser) BetweenExpression() (*BetweenExpression, error) {
	pos := p.stream.Lookahead.Pos
	expr, err := p.ArithmeticExpression()
	if err != nil {
		return nil, err
	}
	not := p.skip(TokenNot)
	if err := p.Match(TokenBetween); err != nil {
		return nil, err
	}
	low, err := p.ArithmeticExpression()
	if err != nil {
		return nil, err
	}
	if err := p.Match(TokenAnd); err != nil {
		return nil, err
	}
	high, err := p.ArithmeticExpression()
	if err != nil {
		return nil, err
	}
	return &BetweenExpression{TokenPos: pos, Expr: expr, Low: low, High: high, Not: not}, nil
}

// LikeExpression ::= StringExpression ["NOT"] "LIKE" StringPrimary ["ESCAPE" string]
func (p *Parser) LikeExpression() (*LikeExpression, error) {
	pos := p.stream.Lookahead.Pos
	str, err := p.StringExpression()
	if err != nil {
		return nil, err
	}
	expr := &LikeExpression{TokenPos: pos, Expr: str, Not: p.skip(TokenNot)}
	if err := p.Match(TokenLike); err != nil {
		return nil, err
	}
	if expr.Pattern, err = p.StringPrimary(); err != nil {
		return nil, err
	}
	if p.skip(TokenEscape) {
		if err := p.Match(TokenString); err != nil {
			return nil, err
		}
		tok := p.stream.Token
		expr.Escape = &Literal{TokenPos: tok.Pos, Kind: LiteralString, Value: tok.Value}
	}
	return expr, nil
}

// InExpression ::= ArithmeticExpression ["NOT"] "IN" "(" (InParameter {"," InParameter}* | Subselect) ")"
func (p *Parser) InExpression() (*InExpression, error) {
	pos := p.stream.Lookahead.Pos
	left, err := p.ArithmeticExpression()
	if err != nil {
		return nil, err
	}
	expr := &InExpression{TokenPos: pos, Expr: left, Not: p.skip(TokenNot)}
	if err := p.Match(TokenIn); err != nil {
		return nil, err
	}
	if err := p.Match(TokenOpenParenthesis); err != nil {
		return nil, err
	}
	if p.stream.IsNextToken(TokenSelect) {
		if expr.Subselect, err = p.Subselect(); err != nil {
			return nil, err
		}
	} else {
		for {
			item, err := p.InParameter()
			if err != nil {
				return nil, err
			}
			expr.Items = append(expr.Items, item)
			if !p.skip(TokenComma) {
				break
			}
		}
	}
	if err := p.Match(TokenCloseParenthesis); err != nil {
		return nil, err
	}
	return expr, nil
}

// InParameter ::= Literal | InputParameter
func (p *Parser) InParameter() (Expr, error) {
	if p.stream.IsNextToken(TokenInputParameter) {
		return p.InputParameter()
	}
	return p.ArithmeticExpression()
}

// InstanceOfExpression ::= IdentificationVariable ["NOT"] "INSTANCE" ["OF"]
//
//	(InstanceOfParameter | "(" InstanceOfParameter {"," InstanceOfParameter}* ")")
func (p *Parser) InstanceOfExpression() (*InstanceOfExpression, error) {
	pos := p.stream.Lookahead.Pos
	ident, err := p.IdentificationVariable()
	if err != nil {
		return nil, err
	}
	expr := &InstanceOfExpression{TokenPos: pos, IdentificationVariable: ident, Not: p.skip(TokenNot)}
	if err := p.Match(TokenInstance); err != nil {
		return nil, err
	}
	p.skip(TokenOf)

	if !p.skip(TokenOpenParenthesis) {
		param, err := p.InstanceOfParameter()
		if err != nil {
			return nil, err
		}
		expr.Types = []Expr{param}
		return expr, nil
	}
	for {
		param, err := p.InstanceOfParameter()
		if err != nil {
			return nil, err
		}
		expr.Types = append(expr.Types, param)
		if !p.skip(TokenComma) {
			break
		}
	}
	if err := p.Match(TokenCloseParenthesis); err != nil {
		return nil, err
	}
	return expr, nil
}

// InstanceOfParameter ::= AbstractSchemaName | InputParameter
func (p *Parser) InstanceOfParameter() (Expr, error) {
	if p.stream.IsNextToken(TokenInputParameter) {
		return p.InputParameter()
	}
	pos := p.stream.Lookahead.Pos
	name, err := p.AbstractSchemaName()
	if err != nil {
		return nil, err
	}
	return &SchemaName{TokenPos: pos, Name: name}, nil
}

// NullComparisonExpression ::= (InputParameter | NullIfExpression | CoalesceExpression | CaseExpression |
//
//	FunctionDeclaration | SingleValuedPathExpression | IdentificationVariable | ResultVariable) "IS" ["NOT"] "NULL"
func (p *Parser) NullComparisonExpression() (*NullComparisonExpression, error) {
	pos := p.stream.Lookahead.Pos

	var expr Expr
	var err error
	switch {
	case p.stream.IsNextToken(TokenInputParameter):
		expr, err = p.InputParameter()
	case p.stream.IsNextTokenAny(TokenNullif, TokenCoalesce, TokenCase):
		expr, err = p.CaseExpression()
	case p.isFunction():
		expr, err = p.FunctionDeclaration()
	case p.stream.Glimpse().Type == TokenDot:
		expr, err = p.SingleValuedPathExpression()
	default:
		tok := p.stream.Lookahead
		comp, ok := p.components.Lookup(tok.Value)
		switch {
		case !ok:
			err = p.SemanticError("Cannot add null comparison on undefined identification or result variable.", tok)
		case comp.IsEntity():
			expr, err = p.SingleValuedPathExpression()
		default:
			expr, err = p.ResultVariable()
		}
	}
	if err != nil {
		return nil, err
	}

	if err := p.Match(TokenIs); err != nil {
		return nil, err
	}
	not := p.skip(TokenNot)
	if err := p.Match(TokenNull); err != nil {
		return nil, err
	}
	return &NullComparisonExpression{TokenPos: pos, Expr: expr, Not: not}, nil
}

// EmptyCollectionComparisonExpression ::= CollectionValuedPathExpression "IS" ["NOT"] "EMPTY"
func (p *Parser) EmptyCollectionComparisonExpression() (*EmptyCollectionComparisonExpression, error) {
	pos := p.stream.Lookahead.Pos
	path, err := p.CollectionValuedPathExpression()
	if err != nil {
		return nil, err
	}
	if err := p.Match(TokenIs); err != nil {
		return nil, err
	}
	not := p.skip(TokenNot)
	if err := p.Match(TokenEmpty); err != nil {
		return nil, err
	}
	return &EmptyCollectionComparisonExpression{TokenPos: pos, Path: path, Not: not}, nil
}

// CollectionMemberExpression ::= EntityExpression ["NOT"] "MEMBER" ["OF"] CollectionValuedPathExpression
func (p *Parser) CollectionMemberExpression() (*CollectionMemberExpression, error) {
	pos := p.stream.Lookahead.Pos
	entity, err := p.EntityExpression()
	if err != nil {
		return nil, err
	}
	not := p.skip(TokenNot)
	if err := p.Match(TokenMember); err != nil {
		return nil, err
	}
	p.skip(TokenOf)
	coll, err := p.CollectionValuedPathExpression()
	if err != nil {
		return nil, err
	}
	return &CollectionMemberExpression{TokenPos: pos, Entity: entity, Collection: coll, Not: not}, nil
}

// ExistsExpression ::= ["NOT"] "EXISTS" "(" Subselect ")"
func (p *Parser) ExistsExpression() (*ExistsExpression, error) {
	pos := p.stream.Lookahead.Pos
	not := p.skip(TokenNot)
	if err := p.Match(TokenExists); err != nil {
		return nil, err
	}
	sub, err := p.parenthesizedSubselect()
	if err != nil {
		return nil, err
	}
	return &ExistsExpression{TokenPos: pos, Subselect: sub, Not: not}, nil
}
