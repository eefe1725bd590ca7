package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	entschema "github.com/matthewbaird/oql/ent/schema"
	"github.com/matthewbaird/oql/internal/oql"
	"github.com/matthewbaird/oql/internal/schema"
)

// EntRegistry returns a registry loaded from the bundled ent schemas in the
// App\Entity namespace, with the App alias, a LEVENSHTEIN numeric function,
// and an App\Dto\UserCard class taking a name and an optional email.
func EntRegistry(t testing.TB) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry(`App\Entity`)
	require.NoError(t, schema.LoadEnt(reg, entschema.Entities()...))
	reg.RegisterNamespace("App", `App\Entity`)
	require.NoError(t, reg.RegisterFunction(schema.FunctionDef{
		Name: "LEVENSHTEIN", Category: oql.NumericFunction, MinArgs: 2, MaxArgs: 2,
	}))
	reg.RegisterClass(&oql.ClassDescriptor{
		Name: `App\Dto\UserCard`,
		Constructor: &oql.Constructor{Params: []oql.Param{
			{Name: "name"}, {Name: "email", Optional: true},
		}},
	})
	return reg
}
