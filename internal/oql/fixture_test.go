package oql

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testMetadata is a small in-memory provider: users with a profile, posts
// and friends.
type testMetadata struct {
	entities  map[string]*EntityMetadata
	classes   map[string]*ClassDescriptor
	aliases   map[string]string
	functions map[string]FunctionFactory
	defaultNS string
}

func (m *testMetadata) EntityMetadata(name string) (*EntityMetadata, error) {
	if md, ok := m.entities[name]; ok {
		return md, nil
	}
	if !strings.Contains(name, "\\") {
		if md, ok := m.entities[m.defaultNS+"\\"+name]; ok {
			return md, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, name)
}

func (m *testMetadata) ResolveNamespaceAlias(alias string) (string, error) {
	if ns, ok := m.aliases[alias]; ok {
		return ns, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownNamespaceAlias, alias)
}

func (m *testMetadata) CustomFunction(name string, category FunctionCategory) (FunctionFactory, bool) {
	if category != NumericFunction {
		return nil, false
	}
	f, ok := m.functions[name]
	return f, ok
}

func (m *testMetadata) Class(name string) (*ClassDescriptor, bool) {
	c, ok := m.classes[name]
	return c, ok
}

func (m *testMetadata) EntityNames() []string {
	names := make([]string, 0, len(m.entities))
	for _, md := range m.entities {
		names = append(names, md.Name[strings.LastIndexByte(md.Name, '\\')+1:])
	}
	return names
}

func entity(name string, fields []string, assocs ...*Association) *EntityMetadata {
	md := &EntityMetadata{
		Name:         name,
		Identifier:   []string{"id"},
		Fields:       make(map[string]*FieldMapping),
		Associations: make(map[string]*Association),
	}
	for _, f := range fields {
		md.Fields[f] = &FieldMapping{Name: f, Type: "string"}
		md.FieldOrder = append(md.FieldOrder, f)
	}
	for _, a := range assocs {
		md.Associations[a.Field] = a
		md.AssociationOrder = append(md.AssociationOrder, a.Field)
	}
	return md
}

func newTestMetadata() *testMetadata {
	user := entity(`App\Entity\User`, []string{"id", "name", "email", "age"},
		&Association{Field: "profile", TargetEntity: `App\Entity\Profile`, Kind: OneToOne, Owning: true, InversedBy: "user"},
		&Association{Field: "manager", TargetEntity: `App\Entity\User`, Kind: ManyToOne, Owning: true},
		&Association{Field: "posts", TargetEntity: `App\Entity\Post`, Kind: OneToMany, MappedBy: "author"},
		&Association{Field: "friends", TargetEntity: `App\Entity\User`, Kind: ManyToMany, Owning: true},
	)
	profile := entity(`App\Entity\Profile`, []string{"id", "bio"},
		&Association{Field: "user", TargetEntity: `App\Entity\User`, Kind: OneToOne, MappedBy: "profile"},
	)
	post := entity(`App\Entity\Post`, []string{"id", "title", "body", "createdAt"},
		&Association{Field: "author", TargetEntity: `App\Entity\User`, Kind: ManyToOne, Owning: true, InversedBy: "posts"},
	)

	return &testMetadata{
		entities: map[string]*EntityMetadata{
			user.Name:    user,
			profile.Name: profile,
			post.Name:    post,
		},
		classes: map[string]*ClassDescriptor{
			`App\Dto`: {Name: `App\Dto`, Constructor: &Constructor{Params: []Param{{Name: "id"}, {Name: "name"}}}},
			`App\Entity\UserView`: {Name: `App\Entity\UserView`, Constructor: &Constructor{
				Params: []Param{{Name: "id"}, {Name: "name", Optional: true}},
			}},
			`App\Listing`: {Name: `App\Listing`, Constructor: &Constructor{Params: []Param{{Name: "title"}}, Variadic: true}},
			`App\Base`:    {Name: `App\Base`, Abstract: true, Constructor: &Constructor{}},
			`App\NoCtor`:  {Name: `App\NoCtor`},
		},
		aliases:   map[string]string{"App": `App\Entity`},
		functions: map[string]FunctionFactory{"greatest": GenericFunctionFactory(2, -1)},
		defaultNS: `App\Entity`,
	}
}

func parseQuery(t *testing.T, text string) *Result {
	t.Helper()
	res, err := Parse(NewQuery(text), newTestMetadata())
	require.NoError(t, err, "query: %s", text)
	return res
}

func parseErr(t *testing.T, text string) error {
	t.Helper()
	_, err := Parse(NewQuery(text), newTestMetadata())
	require.Error(t, err, "query: %s", text)
	return err
}

func selectStmt(t *testing.T, text string) *SelectStatement {
	t.Helper()
	stmt, ok := parseQuery(t, text).Statement.(*SelectStatement)
	require.True(t, ok)
	return stmt
}

// whereCondition returns the WHERE condition with its primary unwrapped.
func whereCondition(t *testing.T, stmt *SelectStatement) Condition {
	t.Helper()
	require.NotNil(t, stmt.Where)
	primary, ok := stmt.Where.Condition.(*ConditionalPrimary)
	require.True(t, ok, "got %T", stmt.Where.Condition)
	return primary.Condition
}
