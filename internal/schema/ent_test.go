package schema

import (
	"testing"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entschema "github.com/matthewbaird/oql/ent/schema"
	"github.com/matthewbaird/oql/internal/oql"
)

func entRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(`App\Entity`)
	require.NoError(t, LoadEnt(reg, entschema.Entities()...))
	return reg
}

func TestLoadEnt_Fields(t *testing.T) {
	reg := entRegistry(t)

	user := reg.Entity("User")
	require.NotNil(t, user)
	assert.Equal(t, `App\Entity\User`, user.Name)
	assert.Equal(t, []string{"id"}, user.Identifier)
	assert.Equal(t,
		[]string{"id", "created_at", "updated_at", "created_by", "source", "name", "email", "age"},
		user.FieldOrder)
	assert.Equal(t, "int", user.Fields["id"].Type)
	assert.Equal(t, "time", user.Fields["created_at"].Type)
	assert.Equal(t, "enum", user.Fields["source"].Type)
	assert.True(t, user.Fields["age"].Nullable)
	assert.False(t, user.Fields["name"].Nullable)

	post := reg.Entity("Post")
	require.NotNil(t, post)
	assert.Equal(t, "uuid", post.Fields["id"].Type)
	assert.Equal(t, "bool", post.Fields["published"].Type)
	assert.Equal(t, "float", post.Fields["score"].Type)
	assert.Len(t, post.FieldOrder, len(post.Fields), "declared id is not added twice")
}

func TestLoadEnt_Associations(t *testing.T) {
	reg := entRegistry(t)

	tests := []struct {
		entity, field string
		target        string
		kind          oql.AssociationKind
		owning        bool
		mappedBy      string
		inversedBy    string
	}{
		{"User", "profile", "Profile", oql.OneToOne, false, "user", ""},
		{"Profile", "user", "User", oql.OneToOne, true, "", "profile"},
		{"User", "posts", "Post", oql.OneToMany, false, "author", ""},
		{"Post", "author", "User", oql.ManyToOne, true, "", "posts"},
		{"User", "friends", "User", oql.ManyToMany, true, "", ""},
		{"User", "reports", "User", oql.OneToMany, false, "manager", ""},
		{"User", "manager", "User", oql.ManyToOne, true, "", "reports"},
		{"Post", "tags", "Tag", oql.ManyToMany, true, "", "posts"},
		{"Tag", "posts", "Post", oql.ManyToMany, false, "tags", ""},
		{"Comment", "author", "User", oql.ManyToOne, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.entity+"."+tt.field, func(t *testing.T) {
			md := reg.Entity(tt.entity)
			require.NotNil(t, md)
			a, ok := md.Association(tt.field)
			require.True(t, ok)
			assert.Equal(t, `App\Entity\`+tt.target, a.TargetEntity)
			assert.Equal(t, tt.kind, a.Kind)
			assert.Equal(t, tt.owning, a.Owning)
			assert.Equal(t, tt.mappedBy, a.MappedBy)
			assert.Equal(t, tt.inversedBy, a.InversedBy)
		})
	}
}

func TestLoadEnt_Parse(t *testing.T) {
	reg := entRegistry(t)

	_, err := oql.Parse(oql.NewQuery(
		"SELECT u, p FROM User u JOIN u.posts p LEFT JOIN p.tags t WHERE p.published = TRUE AND u.manager IS NULL AND t.name LIKE 'go%'"), reg)
	require.NoError(t, err)

	_, err = oql.Parse(oql.NewQuery("SELECT t FROM Tag t WHERE t.posts IS EMPTY"), reg)
	require.NoError(t, err)

	_, err = oql.Parse(oql.NewQuery("SELECT u FROM User u WHERE u.reports IS NULL"), reg)
	assert.True(t, oql.IsSemanticError(err))
}

type ghost struct{ ent.Schema }

type orphan struct{ ent.Schema }

func (orphan) Edges() []ent.Edge {
	return []ent.Edge{edge.To("ghost", ghost.Type)}
}

type owner struct{ ent.Schema }

type thing struct{ ent.Schema }

func (thing) Edges() []ent.Edge {
	return []ent.Edge{edge.From("owner", owner.Type).Ref("things").Unique()}
}

func TestLoadEnt_Errors(t *testing.T) {
	err := LoadEnt(NewRegistry("App"), orphan{})
	assert.ErrorContains(t, err, "orphan.ghost targets unknown schema ghost")

	err = LoadEnt(NewRegistry("App"), owner{}, thing{})
	assert.ErrorContains(t, err, "thing.owner references missing edge owner.things")

	err = LoadEnt(NewRegistry("App"), ghost{}, ghost{})
	assert.ErrorContains(t, err, "loaded twice")
}
