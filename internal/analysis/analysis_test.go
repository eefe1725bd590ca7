package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/oql/internal/history"
	"github.com/matthewbaird/oql/internal/oql"
	"github.com/matthewbaird/oql/internal/testutil"
)

type recorder struct {
	entries []history.Entry
}

func (r *recorder) Publish(_ context.Context, e history.Entry) { r.entries = append(r.entries, e) }

func newAnalyzer(t *testing.T) (*Analyzer, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(testutil.EntRegistry(t), 0, rec, testutil.NewTestLogger(t)), rec
}

func TestAnalyze_Select(t *testing.T) {
	a, rec := newAnalyzer(t)

	rep, err := a.Analyze(context.Background(), Request{
		Query:     "SELECT u, p FROM User u JOIN u.posts p WHERE u.age > :min",
		Source:    "http",
		SessionID: "s1",
	})
	require.NoError(t, err)

	assert.Equal(t, "select", rep.Kind)
	assert.NotEmpty(t, rep.Formatted)
	require.Len(t, rep.Components, 2)
	assert.Equal(t, Component{Alias: "u", Entity: `App\Entity\User`, Position: 22}, rep.Components[0])
	assert.Equal(t, "p", rep.Components[1].Alias)
	assert.Equal(t, "u", rep.Components[1].Parent)
	assert.Equal(t, "posts", rep.Components[1].Relation)
	assert.Equal(t, "O2M", rep.Components[1].RelationKind)
	assert.Equal(t, []Parameter{{Name: "min", Positions: []int{53}}}, rep.Parameters)
	assert.Equal(t, []string{"min"}, rep.Unbound(nil))
	assert.Empty(t, rep.Unbound(map[string]string{"min": "3"}))

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, history.StatusOK, e.Status)
	assert.Equal(t, "select", e.Kind)
	assert.Equal(t, "http", e.Source)
	assert.Equal(t, "s1", e.SessionID)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		code   string
		status string
	}{
		{
			name:   "syntax",
			req:    Request{Query: "SELECT u FROM User u WHERE"},
			code:   CodeSyntax,
			status: history.StatusSyntaxError,
		},
		{
			name:   "semantic",
			req:    Request{Query: "SELECT u FROM User u WHERE u.nmae = 'x'"},
			code:   CodeSemantic,
			status: history.StatusSemanticError,
		},
		{
			name:   "parameters",
			req:    Request{Query: "SELECT u FROM User u WHERE u.age > :min", Parameters: map[string]any{}},
			code:   CodeParameter,
			status: history.StatusParameterError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, rec := newAnalyzer(t)
			_, err := a.Analyze(context.Background(), tt.req)
			require.Error(t, err)

			d := Describe(err)
			assert.Equal(t, tt.code, d.Code)
			assert.Equal(t, err.Error(), d.Message)
			assert.True(t, IsClientError(err))

			require.Len(t, rec.entries, 1)
			assert.Equal(t, tt.status, rec.entries[0].Status)
		})
	}
}

func TestAnalyze_SemanticDetail(t *testing.T) {
	a, _ := newAnalyzer(t)
	_, err := a.Analyze(context.Background(), Request{Query: "SELECT u FROM Usr u"})
	require.Error(t, err)

	d := Describe(err)
	assert.Equal(t, CodeSemantic, d.Code)
	require.NotNil(t, d.Position)
	assert.Equal(t, 14, *d.Position)
	assert.Equal(t, "did you mean 'User'?", d.Suggestion)
}

func TestAnalyze_Cancelled(t *testing.T) {
	a, rec := newAnalyzer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, Request{Query: "SELECT u FROM User u"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, CodeTimeout, Describe(err).Code)
	assert.False(t, IsClientError(err))
	assert.Empty(t, rec.entries)
}

type expiringMetadata struct {
	oql.MetadataProvider
	cancel context.CancelFunc
}

func (m expiringMetadata) EntityMetadata(name string) (*oql.EntityMetadata, error) {
	m.cancel()
	return m.MetadataProvider.EntityMetadata(name)
}

func TestAnalyze_DeadlineDuringParse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}
	a := New(expiringMetadata{MetadataProvider: testutil.EntRegistry(t), cancel: cancel}, 0, rec, testutil.NewTestLogger(t))

	_, err := a.Analyze(ctx, Request{Query: "SELECT u FROM User u WHERE u.age > 18", Source: "http"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, CodeTimeout, Describe(err).Code)

	require.Len(t, rec.entries, 1, "timed-out parses are recorded")
	assert.Equal(t, history.StatusTimeout, rec.entries[0].Status)
}

func TestAnalyze_NilPublisher(t *testing.T) {
	a := New(testutil.EntRegistry(t), 0, nil, nil)
	rep, err := a.Analyze(context.Background(), Request{Query: "DELETE FROM User u WHERE u.id = 1"})
	require.NoError(t, err)
	assert.Equal(t, "delete", rep.Kind)
}
