package schema

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/oql/internal/oql"
)

func entity(name string, fields []string, assocs ...*oql.Association) *oql.EntityMetadata {
	md := &oql.EntityMetadata{
		Name:         name,
		Identifier:   []string{"id"},
		Fields:       make(map[string]*oql.FieldMapping),
		Associations: make(map[string]*oql.Association),
	}
	for _, f := range fields {
		md.Fields[f] = &oql.FieldMapping{Name: f, Type: "string"}
		md.FieldOrder = append(md.FieldOrder, f)
	}
	for _, a := range assocs {
		md.Associations[a.Field] = a
		md.AssociationOrder = append(md.AssociationOrder, a.Field)
	}
	return md
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(`Shop\Entity`)
	require.NoError(t, reg.Register(entity("Customer", []string{"id", "name"},
		&oql.Association{Field: "orders", TargetEntity: "Purchase", Kind: oql.OneToMany, MappedBy: "customer"},
	)))
	require.NoError(t, reg.Register(entity(`Shop\Entity\Purchase`, []string{"id", "total"},
		&oql.Association{Field: "customer", TargetEntity: "Customer", Kind: oql.ManyToOne, Owning: true, InversedBy: "orders"},
	)))
	reg.RegisterNamespace("Shop", `\Shop\Entity\`)
	reg.RegisterClass(&oql.ClassDescriptor{Name: `\Shop\View\Summary`, Constructor: &oql.Constructor{
		Params: []oql.Param{{Name: "name"}, {Name: "total", Optional: true}},
	}})
	require.NoError(t, reg.RegisterFunction(FunctionDef{Name: "round_to", Category: oql.NumericFunction, MinArgs: 2, MaxArgs: 2}))
	require.NoError(t, reg.Validate())
	return reg
}

func TestRegistry_Lookup(t *testing.T) {
	reg := testRegistry(t)

	md, err := reg.EntityMetadata("Customer")
	require.NoError(t, err)
	assert.Equal(t, `Shop\Entity\Customer`, md.Name)

	md, err = reg.EntityMetadata(`\Shop\Entity\Purchase`)
	require.NoError(t, err)
	assert.Equal(t, `Shop\Entity\Customer`, md.Associations["customer"].TargetEntity)

	_, err = reg.EntityMetadata("Invoice")
	assert.True(t, errors.Is(err, oql.ErrEntityNotFound))

	assert.Equal(t, []string{"Customer", "Purchase"}, reg.EntityNames())
	assert.Len(t, reg.Entities(), 2)
}

func TestRegistry_NamespacesAndClasses(t *testing.T) {
	reg := testRegistry(t)

	ns, err := reg.ResolveNamespaceAlias("Shop")
	require.NoError(t, err)
	assert.Equal(t, `Shop\Entity`, ns)

	_, err = reg.ResolveNamespaceAlias("Nope")
	assert.True(t, errors.Is(err, oql.ErrUnknownNamespaceAlias))

	c, ok := reg.Class(`Shop\View\Summary`)
	require.True(t, ok)
	assert.Equal(t, 1, c.Constructor.Required())
	_, ok = reg.Class(`\Shop\View\Summary`)
	assert.True(t, ok)
}

func TestRegistry_CustomFunction(t *testing.T) {
	reg := testRegistry(t)

	_, ok := reg.CustomFunction("ROUND_TO", oql.NumericFunction)
	assert.True(t, ok)
	_, ok = reg.CustomFunction("round_to", oql.StringFunction)
	assert.False(t, ok)

	fns := reg.Functions()
	require.Len(t, fns, 1)
	assert.Equal(t, "ROUND_TO", fns[0].Name)

	err := reg.RegisterFunction(FunctionDef{Name: "bad", MinArgs: 3, MaxArgs: 1})
	assert.Error(t, err)
}

func TestRegistry_Duplicate(t *testing.T) {
	reg := testRegistry(t)
	err := reg.Register(entity(`Shop\Entity\Customer`, []string{"id"}))
	assert.ErrorContains(t, err, "registered twice")
}

func TestRegistry_ValidateDanglingAssociation(t *testing.T) {
	reg := NewRegistry("App")
	require.NoError(t, reg.Register(entity("A", []string{"id"},
		&oql.Association{Field: "b", TargetEntity: "B", Kind: oql.ManyToOne, Owning: true},
	)))
	assert.ErrorContains(t, reg.Validate(), `A.b targets unknown entity App\B`)

	require.NoError(t, reg.Register(entity("B", []string{"id"},
		&oql.Association{Field: "as", TargetEntity: "A", Kind: oql.OneToMany, MappedBy: "missing"},
	)))
	assert.ErrorContains(t, reg.Validate(), "B.as refers to missing association A.missing")
}

func TestRegistry_Parse(t *testing.T) {
	reg := testRegistry(t)

	res, err := oql.Parse(oql.NewQuery(
		`SELECT NEW Shop\View\Summary(c.name, ROUND_TO(SUM(o.total), 2)) FROM Shop:Customer c JOIN c.orders o GROUP BY c.name`), reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "o"}, res.Components.Aliases())

	_, err = oql.Parse(oql.NewQuery("SELECT c FROM Custmer c"), reg)
	var se *oql.SemanticError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "did you mean 'Customer'?", se.Suggestion)
}

func TestRegistry_ConcurrentReads(t *testing.T) {
	reg := testRegistry(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := oql.Parse(oql.NewQuery("SELECT o FROM Purchase o JOIN o.customer c WHERE c.name = :n"), reg)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestView(t *testing.T) {
	reg := NewRegistry(`Shop\Entity`)
	require.NoError(t, LoadCUESource(reg, "shop.cue", []byte(`
entities: Customer: {
	fields: {
		id: type:    "int"
		email: {type: "string", nullable: true}
	}
	associations: orders: {target: "Customer", kind: "O2M", mapped_by: "referrer"}
	associations: referrer: {target: "Customer", kind: "M2O", inversed_by: "orders"}
}
`)))

	v := View(reg.Entity("Customer"))
	assert.Equal(t, `Shop\Entity\Customer`, v.Name)
	assert.Equal(t, "Customer", v.ShortName)
	assert.Equal(t, []FieldView{{Name: "id", Type: "int"}, {Name: "email", Type: "string", Nullable: true}}, v.Fields)
	require.Len(t, v.Associations, 2)
	assert.Equal(t, AssociationView{
		Field: "orders", Target: `Shop\Entity\Customer`, Kind: "O2M", MappedBy: "referrer",
	}, v.Associations[0])
	assert.True(t, v.Associations[1].Owning)
}

func TestFunctionCatalog(t *testing.T) {
	reg := NewRegistry("App")
	require.NoError(t, reg.RegisterFunction(FunctionDef{Name: "slugify", Category: oql.StringFunction, MaxArgs: -1}))

	cat := FunctionCatalog(reg)
	require.NotEmpty(t, cat)

	byName := make(map[string]FunctionView, len(cat))
	for _, f := range cat {
		byName[f.Name] = f
	}
	assert.Equal(t, "string", byName["CONCAT"].Category)
	assert.Equal(t, "numeric", byName["LENGTH"].Category)
	assert.Equal(t, "aggregate", byName["COUNT"].Category)
	assert.Equal(t, FunctionView{Name: "SLUGIFY", Category: "string", Custom: true, MaxArgs: -1}, byName["SLUGIFY"])
	assert.Equal(t, "SLUGIFY", cat[len(cat)-1].Name)
}
