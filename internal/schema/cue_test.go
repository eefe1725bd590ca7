package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/oql/internal/oql"
)

func TestLoadCUE_File(t *testing.T) {
	reg := NewRegistry("")
	require.NoError(t, LoadCUE(reg, "testdata/blog.cue"))

	assert.Equal(t, `Blog\Model`, reg.DefaultNamespace())
	assert.Equal(t, []string{"Author", "Article", "Label"}, reg.EntityNames())

	author := reg.Entity("Author")
	require.NotNil(t, author)
	assert.Equal(t, []string{"id", "name", "email", "born"}, author.FieldOrder)
	assert.Equal(t, "string", author.Fields["name"].Type)
	assert.True(t, author.Fields["born"].Nullable)

	articles, ok := author.Association("articles")
	require.True(t, ok)
	assert.Equal(t, oql.OneToMany, articles.Kind)
	assert.False(t, articles.Owning)
	assert.Equal(t, `Blog\Model\Article`, articles.TargetEntity)

	mentor, _ := author.Association("mentor")
	assert.True(t, mentor.Owning)

	label := reg.Entity(`Blog\Model\Label`)
	require.NotNil(t, label)
	assert.Equal(t, []string{"code"}, label.Identifier)

	card, ok := reg.Class(`Blog\View\Card`)
	require.True(t, ok)
	require.NotNil(t, card.Constructor)
	assert.Equal(t, 1, card.Constructor.Required())
	base, _ := reg.Class(`Blog\View\Base`)
	assert.True(t, base.Abstract)
	assert.Nil(t, base.Constructor)

	fns := reg.Functions()
	require.Len(t, fns, 2)
	assert.Equal(t, FunctionDef{Name: "SLUGIFY", Category: oql.StringFunction, MinArgs: 0, MaxArgs: -1}, fns[0])
	assert.Equal(t, FunctionDef{Name: "WORD_COUNT", Category: oql.NumericFunction, MinArgs: 1, MaxArgs: 1}, fns[1])
}

func TestLoadCUE_Parse(t *testing.T) {
	reg := NewRegistry("")
	require.NoError(t, LoadCUE(reg, "testdata/blog.cue"))

	res, err := oql.Parse(oql.NewQuery(
		`SELECT NEW Blog\View\Card(a.title, w.name) FROM Blog:Article a JOIN a.writer w WHERE WORD_COUNT(a.title) > 3`), reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "w"}, res.Components.Aliases())

	_, err = oql.Parse(oql.NewQuery("SELECT PARTIAL l.{name} FROM Label l"), reg)
	assert.True(t, oql.IsSemanticError(err))
}

func TestLoadCUE_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			"unknown kind",
			`entities: A: {fields: id: {}, associations: b: {target: "A", kind: "1:N"}}`,
			"validating CUE model",
		},
		{
			"unknown key",
			`entities: A: {fields: id: {}, columns: {}}`,
			"validating CUE model",
		},
		{
			"missing identifier field",
			`entities: A: {fields: name: {}}`,
			"identifier id is not a field",
		},
		{
			"dangling target",
			`entities: A: {fields: id: {}, associations: b: {target: "B", kind: "M2O"}}`,
			"targets unknown entity",
		},
		{
			"syntax",
			`entities: {`,
			"building CUE model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := LoadCUESource(NewRegistry("App"), "model.cue", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
