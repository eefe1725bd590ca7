package oql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			"result variable used as entity",
			"SELECT u.age AS a FROM User u WHERE a.name = 'x'",
			"'a' does not point to a Class.",
		},
		{
			"unknown field",
			"SELECT u.nmae FROM User u",
			"Class App\\Entity\\User has no field or association named nmae",
		},
		{
			"partial with unknown field",
			"SELECT PARTIAL u.{id, nope} FROM User u",
			"There is no mapped field named 'nope' on class App\\Entity\\User.",
		},
		{
			"partial with inverse association",
			"SELECT PARTIAL u.{id, posts} FROM User u",
			"There is no mapped field named 'posts' on class App\\Entity\\User.",
		},
		{
			"partial without identifier",
			"SELECT PARTIAL u.{name} FROM User u",
			"The partial field selection of class App\\Entity\\User must contain the identifier.",
		},
		{
			"collection where single valued expected",
			"SELECT u FROM User u WHERE u.posts IS NULL",
			"Invalid PathExpression. StateFieldPathExpression or SingleValuedAssociationField expected.",
		},
		{
			"single valued where collection expected",
			"SELECT u FROM User u WHERE u.manager IS EMPTY",
			"Invalid PathExpression. Must be a CollectionValuedAssociationField.",
		},
		{
			"undefined result variable",
			"SELECT u FROM User u ORDER BY nope",
			"'nope' is not defined.",
		},
		{
			"entity alias used as result variable",
			"SELECT u FROM User u ORDER BY u",
			"'u' does not point to a ResultVariable.",
		},
		{
			"unknown class",
			"SELECT NEW Missing(u.id) FROM User u",
			`Class "Missing" is not defined.`,
		},
		{
			"abstract class",
			`SELECT NEW App\Base(u.id) FROM User u`,
			`Class "App\Base" can not be instantiated.`,
		},
		{
			"class without constructor",
			`SELECT NEW App\NoCtor(u.id) FROM User u`,
			`Class "App\NoCtor" has not a valid constructor.`,
		},
		{
			"only joined aliases selected",
			"SELECT p FROM User u JOIN u.posts p",
			"Cannot select entity through identification variables without choosing at least one root entity alias.",
		},
		{
			"custom function arity",
			"SELECT GREATEST(u.age) FROM User u",
			"Function GREATEST expects at least 2 arguments, 1 given.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseErr(t, tt.query)
			require.True(t, IsSemanticError(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_FieldSuggestion(t *testing.T) {
	err := parseErr(t, "SELECT u.nmae FROM User u")
	var se *SemanticError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "did you mean 'name'?", se.Suggestion)
	assert.Equal(t, 9, se.Pos)
}

func TestValidate_PathTypeWrittenBack(t *testing.T) {
	res := parseQuery(t, "SELECT u FROM User u WHERE u.manager = :m AND u.name = 'x' AND u = :self")
	stmt := res.Statement.(*SelectStatement)
	and := stmt.Where.Condition.(*ConditionalTerm)

	path := func(i int) *PathExpression {
		comp := and.Factors[i].(*ConditionalPrimary).Condition.(*ComparisonExpression)
		return comp.Left.(*ArithmeticExpression).Expr.(*PathExpression)
	}
	assert.Equal(t, PathSingleValuedAssociation, path(0).Type)
	assert.Equal(t, PathStateField, path(1).Type)

	self := path(2)
	assert.Equal(t, "id", self.Field, "bare alias defaults to the identifier")
	assert.Equal(t, PathStateField, self.Type)
}

func TestValidate_NewObjectNamespaceResolution(t *testing.T) {
	stmt := selectStmt(t, "SELECT NEW UserView(u.id) FROM User u")
	obj := stmt.Select.Expressions[0].Expression.(*NewObjectExpression)
	assert.Equal(t, `App\Entity\UserView`, obj.ClassName)

	selectStmt(t, "SELECT NEW UserView(u.id, u.name) FROM User u")
	err := parseErr(t, "SELECT NEW UserView(u.id, u.name, u.email) FROM User u")
	assert.Contains(t, err.Error(), "constructor declaration")

	selectStmt(t, `SELECT NEW App\Listing(u.name, u.email, u.age, u.id) FROM User u`)
	err = parseErr(t, `SELECT NEW App\Listing() FROM User u`)
	assert.Contains(t, err.Error(), "constructor declaration")
}

func TestValidate_IdentificationVariableOrder(t *testing.T) {
	stmt := selectStmt(t, "SELECT p, u.name, u FROM User u JOIN u.posts p")
	exprs := stmt.Select.Expressions
	require.Len(t, exprs, 3)

	_, ok := exprs[0].Expression.(*PathExpression)
	assert.True(t, ok)
	assert.Equal(t, "u", exprs[1].Expression.(*IdentificationVariable).Name)
	assert.Equal(t, "p", exprs[2].Expression.(*IdentificationVariable).Name)
}

func TestValidate_SingleSelectedAliasKeepsOrder(t *testing.T) {
	stmt := selectStmt(t, "SELECT u, u.name FROM User u")
	_, ok := stmt.Select.Expressions[0].Expression.(*IdentificationVariable)
	assert.True(t, ok)
}

func TestValidate_PartialAndJoinedAliasWithRoot(t *testing.T) {
	stmt := selectStmt(t, "SELECT PARTIAL p.{id, title, author}, PARTIAL u.{id} FROM User u JOIN u.posts p")
	exprs := stmt.Select.Expressions
	assert.Equal(t, "u", exprs[0].Expression.(*PartialObjectExpression).IdentificationVariable)
	assert.Equal(t, "p", exprs[1].Expression.(*PartialObjectExpression).IdentificationVariable)
}
