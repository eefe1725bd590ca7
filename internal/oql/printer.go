package oql

import (
	"fmt"
	"strings"
)

// Printer renders AST nodes back to canonical OQL. Keywords are upper-cased,
// entity and class names are printed fully qualified, and ORDER BY items
// always carry a direction. Printing a parsed statement and parsing the
// output again yields the same text.
type Printer struct{}

// Format renders n with a zero Printer.
func Format(n Node) string {
	var pr Printer
	return pr.Format(n)
}

// Format renders n.
func (pr *Printer) Format(n Node) string {
	switch n := n.(type) {
	case nil:
		return ""

	// Statements
	case *SelectStatement:
		var b strings.Builder
		b.WriteString(pr.Format(n.Select))
		b.WriteString(" " + pr.Format(n.From))
		pr.tail(&b, n.Where, n.GroupBy, n.Having, n.OrderBy)
		return b.String()
	case *UpdateStatement:
		s := pr.Format(n.Update)
		if n.Where != nil {
			s += " " + pr.Format(n.Where)
		}
		return s
	case *DeleteStatement:
		s := pr.Format(n.Delete)
		if n.Where != nil {
			s += " " + pr.Format(n.Where)
		}
		return s

	// SELECT
	case *SelectClause:
		items := make([]string, len(n.Expressions))
		for i, e := range n.Expressions {
			items[i] = pr.Format(e)
		}
		return "SELECT " + distinct(n.Distinct) + strings.Join(items, ", ")
	case *SelectExpression:
		s := pr.expr(n.Expression)
		if n.ResultVariable != "" {
			s += " AS "
			if n.Hidden {
				s += "HIDDEN "
			}
			s += n.ResultVariable
		}
		return s
	case *SimpleSelectClause:
		return "SELECT " + distinct(n.Distinct) + pr.Format(n.Expression)
	case *SimpleSelectExpression:
		s := pr.expr(n.Expression)
		if n.ResultVariable != "" {
			s += " AS " + n.ResultVariable
		}
		return s
	case *PartialObjectExpression:
		return fmt.Sprintf("PARTIAL %s.{%s}", n.IdentificationVariable, strings.Join(n.Fields, ", "))
	case *NewObjectExpression:
		return "NEW " + n.ClassName + "(" + pr.list(n.Args) + ")"

	// FROM
	case *FromClause:
		decls := make([]string, len(n.Declarations))
		for i, d := range n.Declarations {
			decls[i] = pr.Format(d)
		}
		return "FROM " + strings.Join(decls, ", ")
	case *SubselectFromClause:
		decls := make([]string, len(n.Declarations))
		for i, d := range n.Declarations {
			decls[i] = pr.Format(d)
		}
		return "FROM " + strings.Join(decls, ", ")
	case *IdentificationVariableDeclaration:
		s := pr.Format(n.Range)
		if n.IndexBy != nil {
			s += " " + pr.Format(n.IndexBy)
		}
		for _, j := range n.Joins {
			s += " " + pr.Format(j)
		}
		return s
	case *RangeVariableDeclaration:
		return n.SchemaName + " " + n.Alias
	case *AssociationDeclaration:
		return pr.Format(n.Path) + " " + n.Alias
	case *Join:
		s := n.Type.String() + " JOIN " + pr.Format(n.Declaration)
		if n.Condition != nil {
			s += " WITH " + pr.Format(n.Condition)
		}
		return s
	case *JoinAssociationDeclaration:
		s := pr.Format(n.Path) + " " + n.Alias
		if n.IndexBy != nil {
			s += " " + pr.Format(n.IndexBy)
		}
		return s
	case *JoinAssociationPathExpression:
		return n.IdentificationVariable + "." + n.Field
	case *IndexBy:
		return "INDEX BY " + pr.Format(n.Path)

	// UPDATE / DELETE
	case *UpdateClause:
		items := make([]string, len(n.Items))
		for i, it := range n.Items {
			items[i] = pr.Format(it)
		}
		return fmt.Sprintf("UPDATE %s %s SET %s", n.SchemaName, n.Alias, strings.Join(items, ", "))
	case *UpdateItem:
		value := "NULL"
		if n.Value != nil {
			value = pr.expr(n.Value)
		}
		return pr.Format(n.Path) + " = " + value
	case *DeleteClause:
		return fmt.Sprintf("DELETE FROM %s %s", n.SchemaName, n.Alias)

	// Clauses
	case *WhereClause:
		return "WHERE " + pr.Format(n.Condition)
	case *HavingClause:
		return "HAVING " + pr.Format(n.Condition)
	case *GroupByClause:
		return "GROUP BY " + pr.list(n.Items)
	case *OrderByClause:
		items := make([]string, len(n.Items))
		for i, it := range n.Items {
			items[i] = pr.Format(it)
		}
		return "ORDER BY " + strings.Join(items, ", ")
	case *OrderByItem:
		if n.Descending {
			return pr.expr(n.Expression) + " DESC"
		}
		return pr.expr(n.Expression) + " ASC"
	case *Subselect:
		var b strings.Builder
		b.WriteString(pr.Format(n.Select))
		b.WriteString(" " + pr.Format(n.From))
		pr.tail(&b, n.Where, n.GroupBy, n.Having, n.OrderBy)
		return b.String()

	// Conditions
	case *ConditionalExpression:
		terms := make([]string, len(n.Terms))
		for i, t := range n.Terms {
			terms[i] = pr.Format(t)
		}
		return strings.Join(terms, " OR ")
	case *ConditionalTerm:
		factors := make([]string, len(n.Factors))
		for i, f := range n.Factors {
			factors[i] = pr.Format(f)
		}
		return strings.Join(factors, " AND ")
	case *ConditionalFactor:
		return "NOT " + pr.Format(n.Primary)
	case *ConditionalPrimary:
		if n.Grouped {
			return "(" + pr.Format(n.Condition) + ")"
		}
		return pr.Format(n.Condition)
	case *ComparisonExpression:
		return pr.expr(n.Left) + " " + n.Operator + " " + pr.expr(n.Right)
	case *BetweenExpression:
		return fmt.Sprintf("%s %sBETWEEN %s AND %s", pr.expr(n.Expr), not(n.Not), pr.expr(n.Low), pr.expr(n.High))
	case *LikeExpression:
		s := fmt.Sprintf("%s %sLIKE %s", pr.expr(n.Expr), not(n.Not), pr.expr(n.Pattern))
		if n.Escape != nil {
			s += " ESCAPE " + pr.Format(n.Escape)
		}
		return s
	case *InExpression:
		inner := pr.list(n.Items)
		if n.Subselect != nil {
			inner = pr.Format(n.Subselect)
		}
		return fmt.Sprintf("%s %sIN (%s)", pr.expr(n.Expr), not(n.Not), inner)
	case *InstanceOfExpression:
		types := pr.list(n.Types)
		if len(n.Types) > 1 {
			types = "(" + types + ")"
		}
		return fmt.Sprintf("%s %sINSTANCE OF %s", n.IdentificationVariable, not(n.Not), types)
	case *NullComparisonExpression:
		return fmt.Sprintf("%s IS %sNULL", pr.expr(n.Expr), not(n.Not))
	case *EmptyCollectionComparisonExpression:
		return fmt.Sprintf("%s IS %sEMPTY", pr.Format(n.Path), not(n.Not))
	case *CollectionMemberExpression:
		return fmt.Sprintf("%s %sMEMBER OF %s", pr.expr(n.Entity), not(n.Not), pr.Format(n.Collection))
	case *ExistsExpression:
		return fmt.Sprintf("%sEXISTS (%s)", not(n.Not), pr.Format(n.Subselect))

	// Expressions
	case *QuantifiedExpression:
		return n.Quantifier + " (" + pr.Format(n.Subselect) + ")"
	case *ArithmeticExpression:
		return pr.expr(n.Expr)
	case *SimpleArithmeticExpression:
		return pr.chain(n.Terms, n.Operators)
	case *ArithmeticTerm:
		return pr.chain(n.Factors, n.Operators)
	case *ArithmeticFactor:
		return n.Sign + pr.expr(n.Primary)
	case *ParenthesisExpression:
		return "(" + pr.expr(n.Expr) + ")"
	case *Literal:
		switch n.Kind {
		case LiteralString:
			return "'" + strings.ReplaceAll(n.Value, "'", "''") + "'"
		default:
			return n.Value
		}
	case *InputParameter:
		if n.Positional {
			return "?" + n.Name
		}
		return ":" + n.Name
	case *PathExpression:
		if n.Field == "" {
			return n.IdentificationVariable
		}
		return n.IdentificationVariable + "." + n.Field
	case *IdentificationVariable:
		return n.Name
	case *ResultVariable:
		return n.Name
	case *SchemaName:
		return n.Name
	case *AggregateExpression:
		return n.Function + "(" + distinct(n.Distinct) + pr.expr(n.Expr) + ")"
	case *GeneralCaseExpression:
		var b strings.Builder
		b.WriteString("CASE")
		for _, w := range n.When {
			b.WriteString(" " + pr.Format(w))
		}
		b.WriteString(" ELSE " + pr.expr(n.Else) + " END")
		return b.String()
	case *SimpleCaseExpression:
		var b strings.Builder
		b.WriteString("CASE " + pr.Format(n.Operand))
		for _, w := range n.When {
			b.WriteString(" " + pr.Format(w))
		}
		b.WriteString(" ELSE " + pr.expr(n.Else) + " END")
		return b.String()
	case *WhenClause:
		return "WHEN " + pr.Format(n.Condition) + " THEN " + pr.expr(n.Result)
	case *SimpleWhenClause:
		return "WHEN " + pr.expr(n.Value) + " THEN " + pr.expr(n.Result)
	case *CoalesceExpression:
		return "COALESCE(" + pr.list(n.Exprs) + ")"
	case *NullIfExpression:
		return "NULLIF(" + pr.expr(n.First) + ", " + pr.expr(n.Second) + ")"
	case Function:
		return n.Format(pr)
	}
	return fmt.Sprintf("<%T>", n)
}

// expr formats e, parenthesizing a subselect used as a value.
func (pr *Printer) expr(e Expr) string {
	if sub, ok := e.(*Subselect); ok {
		return "(" + pr.Format(sub) + ")"
	}
	return pr.Format(e)
}

// list formats comma-separated expressions.
func (pr *Printer) list(exprs []Expr) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = pr.expr(e)
	}
	return strings.Join(parts, ", ")
}

func (pr *Printer) chain(operands []Expr, ops []string) string {
	var b strings.Builder
	for i, e := range operands {
		if i > 0 {
			b.WriteString(" " + ops[i-1] + " ")
		}
		b.WriteString(pr.expr(e))
	}
	return b.String()
}

func (pr *Printer) tail(b *strings.Builder, where *WhereClause, groupBy *GroupByClause, having *HavingClause, orderBy *OrderByClause) {
	if where != nil {
		b.WriteString(" " + pr.Format(where))
	}
	if groupBy != nil {
		b.WriteString(" " + pr.Format(groupBy))
	}
	if having != nil {
		b.WriteString(" " + pr.Format(having))
	}
	if orderBy != nil {
		b.WriteString(" " + pr.Format(orderBy))
	}
}

func distinct(d bool) string {
	if d {
		return "DISTINCT "
	}
	return ""
}

func not(n bool) string {
	if n {
		return "NOT "
	}
	return ""
}
