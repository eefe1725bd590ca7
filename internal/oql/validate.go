package oql

import (
	"slices"
	"strings"
)

// validate runs the deferred checks in a fixed order, then the checks that
// need the whole select list.
func (p *Parser) validate(stmt Statement) error {
	passes := []func(Statement) error{
		p.validateIdentificationVariables,
		p.validatePartialObjects,
		p.validatePathExpressions,
		p.validateResultVariables,
		p.validateNewObjects,
		p.validateRootAliasSelected,
	}
	for _, pass := range passes {
		if err := pass(stmt); err != nil {
			return err
		}
	}
	p.fixIdentificationVariableOrder(stmt)
	return nil
}

func (p *Parser) validateIdentificationVariables(Statement) error {
	for _, item := range p.deferredIdentVariables {
		comp, ok := p.components.Lookup(item.Expr)
		if !ok {
			return p.semanticErrorSuggest(item.Token, item.Expr, p.components.Aliases(), "'%s' is not defined.", item.Expr)
		}
		if !comp.IsEntity() {
			return p.semanticErrorf(item.Token, "'%s' does not point to a Class.", item.Expr)
		}
		if comp.NestingLevel > item.NestingLevel {
			return p.semanticErrorf(item.Token, "'%s' is used outside the scope of its declaration.", item.Expr)
		}
	}
	return nil
}

// validatePartialObjects checks that every selected field is mapped and that
// the identifier is always part of the selection. An owning to-one
// association counts as a field because its foreign key lives on the row.
func (p *Parser) validatePartialObjects(Statement) error {
	for _, item := range p.deferredPartialObjects {
		expr := item.Expr
		comp, _ := p.components.Lookup(expr.IdentificationVariable)
		md := comp.Metadata

		for _, field := range expr.Fields {
			if md.HasField(field) {
				continue
			}
			if assoc, ok := md.Association(field); ok && assoc.Owning && assoc.IsToOne() {
				continue
			}
			return p.semanticErrorSuggest(item.Token, field, md.Properties(),
				"There is no mapped field named '%s' on class %s.", field, md.Name)
		}

		for _, id := range md.Identifier {
			if !slices.Contains(expr.Fields, id) {
				return p.semanticErrorf(item.Token,
					"The partial field selection of class %s must contain the identifier.", md.Name)
			}
		}
	}
	return nil
}

var pathTypeNames = []struct {
	typ  PathType
	name string
}{
	{PathStateField, "StateFieldPathExpression"},
	{PathSingleValuedAssociation, "SingleValuedAssociationField"},
	{PathCollectionValuedAssociation, "CollectionValuedAssociationField"},
}

// validatePathExpressions resolves every path to a field kind, defaulting a
// bare alias to the entity's first identifier field.
func (p *Parser) validatePathExpressions(Statement) error {
	for _, item := range p.deferredPathExpressions {
		path := item.Expr
		comp, _ := p.components.Lookup(path.IdentificationVariable)
		md := comp.Metadata

		if path.Field == "" {
			if len(md.Identifier) == 0 {
				return p.semanticErrorf(item.Token, "Class %s has no identifier.", md.Name)
			}
			path.Field = md.Identifier[0]
		}

		fieldType := PathStateField
		if assoc, ok := md.Association(path.Field); ok {
			fieldType = PathCollectionValuedAssociation
			if assoc.IsToOne() {
				fieldType = PathSingleValuedAssociation
			}
		} else if !md.HasField(path.Field) {
			return p.semanticErrorSuggest(item.Token, path.Field, md.Properties(),
				"Class %s has no field or association named %s", md.Name, path.Field)
		}

		if path.ExpectedType&fieldType == 0 {
			var expected []string
			for _, t := range pathTypeNames {
				if path.ExpectedType&t.typ != 0 {
					expected = append(expected, t.name)
				}
			}
			msg := "Invalid PathExpression. Must be a " + expected[0] + "."
			if len(expected) > 1 {
				msg = "Invalid PathExpression. " + strings.Join(expected, " or ") + " expected."
			}
			return p.SemanticError(msg, item.Token)
		}
		path.Type = fieldType
	}

	for _, ib := range p.indexBys {
		if comp, ok := p.components.Lookup(ib.Path.IdentificationVariable); ok {
			comp.IndexBy = ib.Path.Field
		}
	}
	return nil
}

func (p *Parser) validateResultVariables(Statement) error {
	for _, item := range p.deferredResultVariables {
		comp, ok := p.components.Lookup(item.Expr)
		if !ok {
			return p.semanticErrorSuggest(item.Token, item.Expr, p.components.Aliases(), "'%s' is not defined.", item.Expr)
		}
		if !comp.IsResultVariable() {
			return p.semanticErrorf(item.Token, "'%s' does not point to a ResultVariable.", item.Expr)
		}
		if comp.NestingLevel > item.NestingLevel {
			return p.semanticErrorf(item.Token, "'%s' is used outside the scope of its declaration.", item.Expr)
		}
	}
	return nil
}

// validateNewObjects resolves each NEW class, relative to the namespace of
// the first root entity when unqualified, and checks its constructor.
func (p *Parser) validateNewObjects(stmt Statement) error {
	for _, item := range p.deferredNewObjects {
		expr := item.Expr
		class, ok := p.metadata.Class(expr.ClassName)
		if !ok && !strings.Contains(expr.ClassName, "\\") {
			if ns := p.rootNamespace(stmt); ns != "" {
				class, ok = p.metadata.Class(ns + "\\" + expr.ClassName)
			}
		}
		if !ok {
			return p.semanticErrorf(item.Token, "Class \"%s\" is not defined.", expr.ClassName)
		}
		expr.ClassName = class.Name

		if class.Abstract {
			return p.semanticErrorf(item.Token, "Class \"%s\" can not be instantiated.", class.Name)
		}
		ctor := class.Constructor
		if ctor == nil {
			return p.semanticErrorf(item.Token, "Class \"%s\" has not a valid constructor.", class.Name)
		}
		n := len(expr.Args)
		if n < ctor.Required() || (!ctor.Variadic && n > len(ctor.Params)) {
			return p.semanticErrorf(item.Token, "Number of arguments does not match with \"%s\" constructor declaration.", class.Name)
		}
	}
	return nil
}

func (p *Parser) rootNamespace(stmt Statement) string {
	sel, ok := stmt.(*SelectStatement)
	if !ok || sel.From == nil || len(sel.From.Declarations) == 0 {
		return ""
	}
	comp, ok := p.components.Lookup(sel.From.Declarations[0].Range.Alias)
	if !ok || !comp.IsEntity() {
		return ""
	}
	return comp.Metadata.Namespace()
}

func (p *Parser) validateRootAliasSelected(Statement) error {
	if len(p.selected) == 0 {
		return nil
	}
	for alias := range p.selected {
		if comp, ok := p.components.Lookup(alias); ok && comp.IsRoot() {
			return nil
		}
	}
	return p.SemanticError("Cannot select entity through identification variables without choosing at least one root entity alias.", p.selectedToken)
}

// fixIdentificationVariableOrder moves selected entity aliases to the end of
// the select list in declaration order.
func (p *Parser) fixIdentificationVariableOrder(stmt Statement) {
	sel, ok := stmt.(*SelectStatement)
	if !ok || len(p.selected) <= 1 {
		return
	}
	exprs := sel.Select.Expressions
	for _, alias := range p.components.Aliases() {
		se, ok := p.selected[alias]
		if !ok {
			continue
		}
		for i, e := range exprs {
			if e == se {
				exprs = append(append(exprs[:i:i], exprs[i+1:]...), se)
				break
			}
		}
	}
	sel.Select.Expressions = exprs
}
