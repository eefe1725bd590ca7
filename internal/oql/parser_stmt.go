package oql

import "strings"

// ── Statements ──────────────────────────────────────────────────────────────

// SelectStatement ::= SelectClause FromClause [WhereClause] [GroupByClause] [HavingClause] [OrderByClause]
func (p *Parser) SelectStatement() (*SelectStatement, error) {
	pos := p.stream.Lookahead.Pos
	sel, err := p.SelectClause()
	if err != nil {
		return nil, err
	}
	from, err := p.FromClause()
	if err != nil {
		return nil, err
	}
	stmt := &SelectStatement{TokenPos: pos, Select: sel, From: from}

	if p.stream.IsNextToken(TokenWhere) {
		if stmt.Where, err = p.WhereClause(); err != nil {
			return nil, err
		}
	}
	if p.stream.IsNextToken(TokenGroup) {
		if stmt.GroupBy, err = p.GroupByClause(); err != nil {
			return nil, err
		}
	}
	if p.stream.IsNextToken(TokenHaving) {
		if stmt.Having, err = p.HavingClause(); err != nil {
			return nil, err
		}
	}
	if p.stream.IsNextToken(TokenOrder) {
		if stmt.OrderBy, err = p.OrderByClause(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// UpdateStatement ::= UpdateClause [WhereClause]
func (p *Parser) UpdateStatement() (*UpdateStatement, error) {
	pos := p.stream.Lookahead.Pos
	upd, err := p.UpdateClause()
	if err != nil {
		return nil, err
	}
	stmt := &UpdateStatement{TokenPos: pos, Update: upd}
	if p.stream.IsNextToken(TokenWhere) {
		if stmt.Where, err = p.WhereClause(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// DeleteStatement ::= DeleteClause [WhereClause]
func (p *Parser) DeleteStatement() (*DeleteStatement, error) {
	pos := p.stream.Lookahead.Pos
	del, err := p.DeleteClause()
	if err != nil {
		return nil, err
	}
	stmt := &DeleteStatement{TokenPos: pos, Delete: del}
	if p.stream.IsNextToken(TokenWhere) {
		if stmt.Where, err = p.WhereClause(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// ── Aliases ─────────────────────────────────────────────────────────────────

// IdentificationVariable ::= identifier
//
// The reference is checked once the whole statement has been parsed.
func (p *Parser) IdentificationVariable() (string, error) {
	if err := p.Match(TokenIdentifier); err != nil {
		return "", err
	}
	tok := p.stream.Token
	p.deferredIdentVariables = append(p.deferredIdentVariables, deferredItem[string]{
		Expr: tok.Value, NestingLevel: p.nestingLevel, Token: tok,
	})
	return tok.Value, nil
}

// AliasIdentificationVariable ::= identifier, declaring a new alias.
func (p *Parser) AliasIdentificationVariable() (string, error) {
	return p.newAlias()
}

// AliasResultVariable ::= identifier, declaring a new result variable.
func (p *Parser) AliasResultVariable() (string, error) {
	return p.newAlias()
}

func (p *Parser) newAlias() (string, error) {
	if err := p.Match(TokenIdentifier); err != nil {
		return "", err
	}
	tok := p.stream.Token
	if p.components.Has(tok.Value) {
		return "", p.semanticErrorf(tok, "'%s' is already defined.", tok.Value)
	}
	return tok.Value, nil
}

// ResultVariable ::= identifier
//
// The reference is checked once the whole statement has been parsed.
func (p *Parser) ResultVariable() (*ResultVariable, error) {
	if err := p.Match(TokenIdentifier); err != nil {
		return nil, err
	}
	tok := p.stream.Token
	p.deferredResultVariables = append(p.deferredResultVariables, deferredItem[string]{
		Expr: tok.Value, NestingLevel: p.nestingLevel, Token: tok,
	})
	return &ResultVariable{TokenPos: tok.Pos, Name: tok.Value}, nil
}

// ── UPDATE / DELETE ─────────────────────────────────────────────────────────

// UpdateClause ::= "UPDATE" AbstractSchemaName ["AS"] AliasIdentificationVariable "SET" UpdateItem {"," UpdateItem}*
func (p *Parser) UpdateClause() (*UpdateClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenUpdate); err != nil {
		return nil, err
	}
	name, md, err := p.abstractSchemaName()
	if err != nil {
		return nil, err
	}
	p.skip(TokenAs)
	tok := p.stream.Lookahead
	alias, err := p.AliasIdentificationVariable()
	if err != nil {
		return nil, err
	}
	p.components.declare(&QueryComponent{
		Alias: alias, Metadata: md, NestingLevel: p.nestingLevel, Token: tok,
	})

	if err := p.Match(TokenSet); err != nil {
		return nil, err
	}
	clause := &UpdateClause{TokenPos: pos, SchemaName: name, Alias: alias}
	for {
		item, err := p.UpdateItem()
		if err != nil {
			return nil, err
		}
		clause.Items = append(clause.Items, item)
		if !p.skip(TokenComma) {
			break
		}
	}
	return clause, nil
}

// UpdateItem ::= SingleValuedPathExpression "=" NewValue
func (p *Parser) UpdateItem() (*UpdateItem, error) {
	pos := p.stream.Lookahead.Pos
	path, err := p.SingleValuedPathExpression()
	if err != nil {
		return nil, err
	}
	if err := p.Match(TokenEquals); err != nil {
		return nil, err
	}
	value, err := p.NewValue()
	if err != nil {
		return nil, err
	}
	return &UpdateItem{TokenPos: pos, Path: path, Value: value}, nil
}

// NewValue ::= ArithmeticExpression | "NULL" | InputParameter
//
// NULL yields a nil Expr.
func (p *Parser) NewValue() (Expr, error) {
	if p.skip(TokenNull) {
		return nil, nil
	}
	if p.stream.IsNextToken(TokenInputParameter) {
		return p.InputParameter()
	}
	return p.ArithmeticExpression()
}

// DeleteClause ::= "DELETE" ["FROM"] AbstractSchemaName ["AS"] AliasIdentificationVariable
func (p *Parser) DeleteClause() (*DeleteClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenDelete); err != nil {
		return nil, err
	}
	p.skip(TokenFrom)
	name, md, err := p.abstractSchemaName()
	if err != nil {
		return nil, err
	}
	p.skip(TokenAs)
	tok := p.stream.Lookahead
	alias, err := p.AliasIdentificationVariable()
	if err != nil {
		return nil, err
	}
	p.components.declare(&QueryComponent{
		Alias: alias, Metadata: md, NestingLevel: p.nestingLevel, Token: tok,
	})
	return &DeleteClause{TokenPos: pos, SchemaName: name, Alias: alias}, nil
}

// ── SELECT ──────────────────────────────────────────────────────────────────

// SelectClause ::= "SELECT" ["DISTINCT"] SelectExpression {"," SelectExpression}*
func (p *Parser) SelectClause() (*SelectClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenSelect); err != nil {
		return nil, err
	}
	clause := &SelectClause{TokenPos: pos, Distinct: p.skip(TokenDistinct)}
	for {
		expr, err := p.SelectExpression()
		if err != nil {
			return nil, err
		}
		clause.Expressions = append(clause.Expressions, expr)
		if !p.skip(TokenComma) {
			break
		}
	}
	return clause, nil
}

// SimpleSelectClause ::= "SELECT" ["DISTINCT"] SimpleSelectExpression
func (p *Parser) SimpleSelectClause() (*SimpleSelectClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenSelect); err != nil {
		return nil, err
	}
	distinct := p.skip(TokenDistinct)
	expr, err := p.SimpleSelectExpression()
	if err != nil {
		return nil, err
	}
	return &SimpleSelectClause{TokenPos: pos, Distinct: distinct, Expression: expr}, nil
}

// SelectExpression ::= (IdentificationVariable | ScalarExpression | AggregateExpression | FunctionDeclaration |
//
//	PartialObjectExpression | "(" Subselect ")" | CaseExpression | NewObjectExpression)
//	[["AS"] ["HIDDEN"] AliasResultVariable]
func (p *Parser) SelectExpression() (*SelectExpression, error) {
	start := p.stream.Lookahead
	la := start.Type
	peek := p.stream.Glimpse()

	var expr Expr
	var identVariable string
	var err error

	switch {
	case la == TokenIdentifier && peek.Type == TokenDot:
		// u.name
		expr, err = p.ScalarExpression()

	case la == TokenIdentifier && peek.Type != TokenOpenParenthesis:
		// u
		var name string
		if name, err = p.IdentificationVariable(); err == nil {
			expr = &IdentificationVariable{TokenPos: start.Pos, Name: name}
			identVariable = name
		}

	case la == TokenCase, la == TokenCoalesce, la == TokenNullif:
		expr, err = p.CaseExpression()

	case p.isFunction():
		p.stream.Peek() // "("
		switch {
		case isMathOperator(p.peekBeyondClosingParenthesis(true)):
			// SUM(u.id) + COUNT(u.id)
			expr, err = p.ScalarExpression()
		case isAggregateFunction(la):
			expr, err = p.AggregateExpression()
		default:
			expr, err = p.FunctionDeclaration()
		}

	case la == TokenPartial:
		var partial *PartialObjectExpression
		if partial, err = p.PartialObjectExpression(); err == nil {
			expr = partial
			identVariable = partial.IdentificationVariable
		}

	case la == TokenOpenParenthesis && peek.Type == TokenSelect:
		expr, err = p.parenthesizedSubselect()

	case la == TokenOpenParenthesis, la == TokenInteger, la == TokenString,
		la == TokenFloat, la == TokenMinus, la == TokenPlus, la == TokenInputParameter:
		expr, err = p.SimpleArithmeticExpression()

	case la == TokenTrue, la == TokenFalse:
		expr, err = p.ScalarExpression()

	case la == TokenNew:
		expr, err = p.NewObjectExpression()

	default:
		err = p.SyntaxError(`IdentificationVariable | ScalarExpression | AggregateExpression | FunctionDeclaration | PartialObjectExpression | "(" Subselect ")" | CaseExpression`)
	}
	if err != nil {
		return nil, err
	}

	se := &SelectExpression{TokenPos: start.Pos, Expression: expr}
	mustHaveAlias := p.skip(TokenAs)
	se.Hidden = p.skip(TokenHidden)

	if mustHaveAlias || p.stream.IsNextToken(TokenIdentifier) {
		tok := p.stream.Lookahead
		alias, err := p.AliasResultVariable()
		if err != nil {
			return nil, err
		}
		se.ResultVariable = alias
		p.components.declare(&QueryComponent{
			Alias: alias, ResultVariable: expr, NestingLevel: p.nestingLevel, Token: tok,
		})
	}

	if identVariable != "" {
		if len(p.selected) == 0 {
			p.selectedToken = start
		}
		p.selected[identVariable] = se
	}
	return se, nil
}

// SimpleSelectExpression ::= (StateFieldPathExpression | IdentificationVariable | FunctionDeclaration |
//
//	AggregateExpression | "(" Subselect ")" | ScalarExpression) [["AS"] AliasResultVariable]
func (p *Parser) SimpleSelectExpression() (*SimpleSelectExpression, error) {
	start := p.stream.Lookahead
	peek := p.stream.Glimpse()

	var expr Expr
	var err error

	switch {
	case start.Type == TokenIdentifier && peek.Type == TokenDot:
		expr, err = p.StateFieldPathExpression()
	case start.Type == TokenIdentifier && peek.Type != TokenOpenParenthesis:
		var name string
		if name, err = p.IdentificationVariable(); err == nil {
			expr = &IdentificationVariable{TokenPos: start.Pos, Name: name}
		}
	case start.Type == TokenOpenParenthesis && peek.Type == TokenSelect:
		expr, err = p.parenthesizedSubselect()
	case start.Type == TokenOpenParenthesis:
		expr, err = p.SimpleArithmeticExpression()
	default:
		expr, err = p.ScalarExpression()
	}
	if err != nil {
		return nil, err
	}

	se := &SimpleSelectExpression{TokenPos: start.Pos, Expression: expr}
	mustHaveAlias := p.skip(TokenAs)
	if mustHaveAlias || p.stream.IsNextToken(TokenIdentifier) {
		tok := p.stream.Lookahead
		alias, err := p.AliasResultVariable()
		if err != nil {
			return nil, err
		}
		se.ResultVariable = alias
		p.components.declare(&QueryComponent{
			Alias: alias, ResultVariable: expr, NestingLevel: p.nestingLevel, Token: tok,
		})
	}
	return se, nil
}

// PartialObjectExpression ::= "PARTIAL" IdentificationVariable "." "{" field {"," field}* "}"
func (p *Parser) PartialObjectExpression() (*PartialObjectExpression, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenPartial); err != nil {
		return nil, err
	}
	ident, err := p.IdentificationVariable()
	if err != nil {
		return nil, err
	}
	if err := p.Match(TokenDot); err != nil {
		return nil, err
	}
	if err := p.Match(TokenOpenCurlyBrace); err != nil {
		return nil, err
	}

	expr := &PartialObjectExpression{TokenPos: pos, IdentificationVariable: ident}
	for {
		if err := p.Match(TokenIdentifier); err != nil {
			return nil, err
		}
		expr.Fields = append(expr.Fields, p.stream.Token.Value)
		if !p.skip(TokenComma) {
			break
		}
	}
	if err := p.Match(TokenCloseCurlyBrace); err != nil {
		return nil, err
	}

	p.deferredPartialObjects = append(p.deferredPartialObjects, deferredItem[*PartialObjectExpression]{
		Expr: expr, NestingLevel: p.nestingLevel, Token: p.stream.Token,
	})
	return expr, nil
}

// NewObjectExpression ::= "NEW" identifier "(" [NewObjectArg {"," NewObjectArg}*] ")"
func (p *Parser) NewObjectExpression() (*NewObjectExpression, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenNew); err != nil {
		return nil, err
	}
	if err := p.Match(TokenIdentifier); err != nil {
		return nil, err
	}
	tok := p.stream.Token
	expr := &NewObjectExpression{TokenPos: pos, ClassName: strings.TrimLeft(tok.Value, "\\")}

	if err := p.Match(TokenOpenParenthesis); err != nil {
		return nil, err
	}
	if !p.stream.IsNextToken(TokenCloseParenthesis) {
		for {
			arg, err := p.NewObjectArg()
			if err != nil {
				return nil, err
			}
			expr.Args = append(expr.Args, arg)
			if !p.skip(TokenComma) {
				break
			}
		}
	}
	if err := p.Match(TokenCloseParenthesis); err != nil {
		return nil, err
	}

	p.deferredNewObjects = append(p.deferredNewObjects, deferredItem[*NewObjectExpression]{
		Expr: expr, NestingLevel: p.nestingLevel, Token: tok,
	})
	return expr, nil
}

// NewObjectArg ::= ScalarExpression | "(" Subselect ")"
func (p *Parser) NewObjectArg() (Expr, error) {
	if p.stream.IsNextToken(TokenOpenParenthesis) && p.stream.Glimpse().Type == TokenSelect {
		return p.parenthesizedSubselect()
	}
	return p.ScalarExpression()
}

// ── FROM ────────────────────────────────────────────────────────────────────

// FromClause ::= "FROM" IdentificationVariableDeclaration {"," IdentificationVariableDeclaration}*
func (p *Parser) FromClause() (*FromClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenFrom); err != nil {
		return nil, err
	}
	clause := &FromClause{TokenPos: pos}
	for {
		decl, err := p.IdentificationVariableDeclaration()
		if err != nil {
			return nil, err
		}
		clause.Declarations = append(clause.Declarations, decl)
		if !p.skip(TokenComma) {
			break
		}
	}
	return clause, nil
}

// SubselectFromClause ::= "FROM" SubselectIdentificationVariableDeclaration {"," SubselectIdentificationVariableDeclaration}*
func (p *Parser) SubselectFromClause() (*SubselectFromClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenFrom); err != nil {
		return nil, err
	}
	clause := &SubselectFromClause{TokenPos: pos}
	for {
		decl, err := p.SubselectIdentificationVariableDeclaration()
		if err != nil {
			return nil, err
		}
		clause.Declarations = append(clause.Declarations, decl)
		if !p.skip(TokenComma) {
			break
		}
	}
	return clause, nil
}

// SubselectIdentificationVariableDeclaration ::= IdentificationVariableDeclaration
//
//	| JoinAssociationPathExpression ["AS"] AliasIdentificationVariable
func (p *Parser) SubselectIdentificationVariableDeclaration() (Declaration, error) {
	if !p.stream.IsNextToken(TokenIdentifier) || p.stream.Glimpse().Type != TokenDot {
		return p.IdentificationVariableDeclaration()
	}

	pos := p.stream.Lookahead.Pos
	path, err := p.JoinAssociationPathExpression()
	if err != nil {
		return nil, err
	}
	p.skip(TokenAs)
	alias, err := p.declareJoinedAlias(path)
	if err != nil {
		return nil, err
	}
	return &AssociationDeclaration{TokenPos: pos, Path: path, Alias: alias}, nil
}

// IdentificationVariableDeclaration ::= RangeVariableDeclaration [IndexBy] {Join}*
func (p *Parser) IdentificationVariableDeclaration() (*IdentificationVariableDeclaration, error) {
	pos := p.stream.Lookahead.Pos
	rv, err := p.RangeVariableDeclaration()
	if err != nil {
		return nil, err
	}
	rv.IsRoot = true
	decl := &IdentificationVariableDeclaration{TokenPos: pos, Range: rv}

	if p.stream.IsNextToken(TokenIndex) {
		if decl.IndexBy, err = p.IndexBy(); err != nil {
			return nil, err
		}
	}
	for p.stream.IsNextTokenAny(TokenLeft, TokenInner, TokenJoin) {
		join, err := p.Join()
		if err != nil {
			return nil, err
		}
		decl.Joins = append(decl.Joins, join)
	}
	return decl, nil
}

// RangeVariableDeclaration ::= AbstractSchemaName ["AS"] AliasIdentificationVariable
func (p *Parser) RangeVariableDeclaration() (*RangeVariableDeclaration, error) {
	pos := p.stream.Lookahead.Pos
	name, md, err := p.abstractSchemaName()
	if err != nil {
		return nil, err
	}
	p.skip(TokenAs)
	tok := p.stream.Lookahead
	alias, err := p.AliasIdentificationVariable()
	if err != nil {
		return nil, err
	}
	p.components.declare(&QueryComponent{
		Alias: alias, Metadata: md, NestingLevel: p.nestingLevel, Token: tok,
	})
	return &RangeVariableDeclaration{TokenPos: pos, SchemaName: name, Alias: alias}, nil
}

// IndexBy ::= "INDEX" "BY" StateFieldPathExpression
func (p *Parser) IndexBy() (*IndexBy, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenIndex); err != nil {
		return nil, err
	}
	if err := p.Match(TokenBy); err != nil {
		return nil, err
	}
	path, err := p.StateFieldPathExpression()
	if err != nil {
		return nil, err
	}
	ib := &IndexBy{TokenPos: pos, Path: path}
	p.indexBys = append(p.indexBys, ib)
	return ib, nil
}

// Join ::= ["LEFT" ["OUTER"] | "INNER"] "JOIN" (JoinAssociationDeclaration | RangeVariableDeclaration) ["WITH" ConditionalExpression]
func (p *Parser) Join() (*Join, error) {
	pos := p.stream.Lookahead.Pos
	join := &Join{TokenPos: pos, Type: JoinInner}
	switch {
	case p.skip(TokenLeft):
		join.Type = JoinLeft
		if p.skip(TokenOuter) {
			join.Type = JoinLeftOuter
		}
	case p.skip(TokenInner):
	}
	if err := p.Match(TokenJoin); err != nil {
		return nil, err
	}

	if p.stream.Glimpse().Type == TokenDot {
		decl, err := p.JoinAssociationDeclaration()
		if err != nil {
			return nil, err
		}
		join.Declaration = decl
	} else {
		rv, err := p.RangeVariableDeclaration()
		if err != nil {
			return nil, err
		}
		rv.IsRoot = false
		join.Declaration = rv
	}

	if p.skip(TokenWith) {
		cond, err := p.ConditionalExpression()
		if err != nil {
			return nil, err
		}
		join.Condition = cond
	}
	return join, nil
}

// JoinAssociationDeclaration ::= JoinAssociationPathExpression ["AS"] AliasIdentificationVariable [IndexBy]
func (p *Parser) JoinAssociationDeclaration() (*JoinAssociationDeclaration, error) {
	pos := p.stream.Lookahead.Pos
	path, err := p.JoinAssociationPathExpression()
	if err != nil {
		return nil, err
	}
	p.skip(TokenAs)
	alias, err := p.declareJoinedAlias(path)
	if err != nil {
		return nil, err
	}
	decl := &JoinAssociationDeclaration{TokenPos: pos, Path: path, Alias: alias}
	if p.stream.IsNextToken(TokenIndex) {
		if decl.IndexBy, err = p.IndexBy(); err != nil {
			return nil, err
		}
	}
	return decl, nil
}

// declareJoinedAlias reads a new alias and declares it as the target of the
// association named by path.
func (p *Parser) declareJoinedAlias(path *JoinAssociationPathExpression) (string, error) {
	tok := p.stream.Lookahead
	alias, err := p.AliasIdentificationVariable()
	if err != nil {
		return "", err
	}
	parent, _ := p.components.Lookup(path.IdentificationVariable)
	assoc, _ := parent.Metadata.Association(path.Field)
	target, err := p.entityMetadata(assoc.TargetEntity, tok)
	if err != nil {
		return "", err
	}
	p.components.declare(&QueryComponent{
		Alias:        alias,
		Metadata:     target,
		Parent:       path.IdentificationVariable,
		Relation:     assoc,
		NestingLevel: p.nestingLevel,
		Token:        tok,
	})
	return alias, nil
}

// JoinAssociationPathExpression ::= IdentificationVariable "." association
//
// Validated immediately: the joined alias needs the target entity.
func (p *Parser) JoinAssociationPathExpression() (*JoinAssociationPathExpression, error) {
	pos := p.stream.Lookahead.Pos
	ident, err := p.IdentificationVariable()
	if err != nil {
		return nil, err
	}
	identTok := p.stream.Token
	comp, ok := p.components.Lookup(ident)
	if !ok {
		return nil, p.semanticErrorf(identTok, "Identification Variable %s used in join path expression but was not defined before.", ident)
	}
	if !comp.IsEntity() {
		return nil, p.semanticErrorf(identTok, "'%s' does not point to a Class.", ident)
	}

	if err := p.Match(TokenDot); err != nil {
		return nil, err
	}
	if err := p.Match(TokenIdentifier); err != nil {
		return nil, err
	}
	fieldTok := p.stream.Token
	if _, ok := comp.Metadata.Association(fieldTok.Value); !ok {
		return nil, p.semanticErrorSuggest(fieldTok, fieldTok.Value, comp.Metadata.AssociationOrder,
			"Class %s has no association named %s", comp.Metadata.Name, fieldTok.Value)
	}
	return &JoinAssociationPathExpression{TokenPos: pos, IdentificationVariable: ident, Field: fieldTok.Value}, nil
}

// ── WHERE / GROUP BY / HAVING / ORDER BY ────────────────────────────────────

// WhereClause ::= "WHERE" ConditionalExpression
func (p *Parser) WhereClause() (*WhereClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenWhere); err != nil {
		return nil, err
	}
	cond, err := p.ConditionalExpression()
	if err != nil {
		return nil, err
	}
	return &WhereClause{TokenPos: pos, Condition: cond}, nil
}

// HavingClause ::= "HAVING" ConditionalExpression
func (p *Parser) HavingClause() (*HavingClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenHaving); err != nil {
		return nil, err
	}
	cond, err := p.ConditionalExpression()
	if err != nil {
		return nil, err
	}
	return &HavingClause{TokenPos: pos, Condition: cond}, nil
}

// GroupByClause ::= "GROUP" "BY" GroupByItem {"," GroupByItem}*
func (p *Parser) GroupByClause() (*GroupByClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenGroup); err != nil {
		return nil, err
	}
	if err := p.Match(TokenBy); err != nil {
		return nil, err
	}
	clause := &GroupByClause{TokenPos: pos}
	for {
		item, err := p.GroupByItem()
		if err != nil {
			return nil, err
		}
		clause.Items = append(clause.Items, item)
		if !p.skip(TokenComma) {
			break
		}
	}
	return clause, nil
}

// GroupByItem ::= IdentificationVariable | ResultVariable | SingleValuedPathExpression
func (p *Parser) GroupByItem() (Expr, error) {
	if p.stream.Glimpse().Type == TokenDot {
		return p.SingleValuedPathExpression()
	}

	tok := p.stream.Lookahead
	comp, ok := p.components.Lookup(tok.Value)
	if !ok {
		return nil, p.SemanticError("Cannot group by undefined identification or result variable.", tok)
	}
	if comp.IsEntity() {
		name, err := p.IdentificationVariable()
		if err != nil {
			return nil, err
		}
		return &IdentificationVariable{TokenPos: tok.Pos, Name: name}, nil
	}
	return p.ResultVariable()
}

// OrderByClause ::= "ORDER" "BY" OrderByItem {"," OrderByItem}*
func (p *Parser) OrderByClause() (*OrderByClause, error) {
	pos := p.stream.Lookahead.Pos
	if err := p.Match(TokenOrder); err != nil {
		return nil, err
	}
	if err := p.Match(TokenBy); err != nil {
		return nil, err
	}
	clause := &OrderByClause{TokenPos: pos}
	for {
		item, err := p.OrderByItem()
		if err != nil {
			return nil, err
		}
		clause.Items = append(clause.Items, item)
		if !p.skip(TokenComma) {
			break
		}
	}
	return clause, nil
}

// OrderByItem ::= (SimpleArithmeticExpression | SingleValuedPathExpression | ScalarExpression | ResultVariable) ["ASC" | "DESC"]
func (p *Parser) OrderByItem() (*OrderByItem, error) {
	pos := p.stream.Lookahead.Pos

	p.stream.Peek()         // "."
	p.stream.Peek()         // field
	peek := p.stream.Peek() // token after alias.field
	p.stream.ResetPeek()
	glimpse := p.stream.Glimpse()

	var expr Expr
	var err error
	switch {
	case isMathOperator(peek):
		expr, err = p.SimpleArithmeticExpression()
	case glimpse.Type == TokenDot:
		expr, err = p.SingleValuedPathExpression()
	case p.stream.IsNextTokenAny(TokenCase, TokenCoalesce, TokenNullif, TokenOpenParenthesis):
		// CASE ... END, (u.age + 1) * 2; a lone operand collapses back to itself
		expr, err = p.SimpleArithmeticExpression()
	case p.isFunction():
		expr, err = p.ScalarExpression()
	default:
		expr, err = p.ResultVariable()
	}
	if err != nil {
		return nil, err
	}

	item := &OrderByItem{TokenPos: pos, Expression: expr}
	switch {
	case p.skip(TokenDesc):
		item.Descending = true
	case p.skip(TokenAsc):
	}
	return item, nil
}

// ── Subselect ───────────────────────────────────────────────────────────────

// Subselect ::= SimpleSelectClause SubselectFromClause [WhereClause] [GroupByClause] [HavingClause] [OrderByClause]
func (p *Parser) Subselect() (*Subselect, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	p.nestingLevel++
	defer func() { p.nestingLevel-- }()

	pos := p.stream.Lookahead.Pos
	sel, err := p.SimpleSelectClause()
	if err != nil {
		return nil, err
	}
	from, err := p.SubselectFromClause()
	if err != nil {
		return nil, err
	}
	sub := &Subselect{TokenPos: pos, Select: sel, From: from}

	if p.stream.IsNextToken(TokenWhere) {
		if sub.Where, err = p.WhereClause(); err != nil {
			return nil, err
		}
	}
	if p.stream.IsNextToken(TokenGroup) {
		if sub.GroupBy, err = p.GroupByClause(); err != nil {
			return nil, err
		}
	}
	if p.stream.IsNextToken(TokenHaving) {
		if sub.Having, err = p.HavingClause(); err != nil {
			return nil, err
		}
	}
	if p.stream.IsNextToken(TokenOrder) {
		if sub.OrderBy, err = p.OrderByClause(); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// parenthesizedSubselect parses "(" Subselect ")".
func (p *Parser) parenthesizedSubselect() (*Subselect, error) {
	if err := p.Match(TokenOpenParenthesis); err != nil {
		return nil, err
	}
	sub, err := p.Subselect()
	if err != nil {
		return nil, err
	}
	if err := p.Match(TokenCloseParenthesis); err != nil {
		return nil, err
	}
	return sub, nil
}
