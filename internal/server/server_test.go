package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/oql/internal/analysis"
	"github.com/matthewbaird/oql/internal/history"
	"github.com/matthewbaird/oql/internal/repl/session"
	"github.com/matthewbaird/oql/internal/schema"
	"github.com/matthewbaird/oql/internal/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, history.Store) {
	t.Helper()
	reg := testutil.EntRegistry(t)
	logger := testutil.NewTestLogger(t)
	store := history.NewMemoryStore()
	publish := analysis.PublisherFunc(func(ctx context.Context, e history.Entry) {
		_ = store.Write(ctx, e)
	})

	srv := httptest.NewServer(NewRouter(Config{
		Registry: reg,
		Analyzer: analysis.New(reg, 0, publish, logger),
		Sessions: session.NewManager(time.Hour, time.Hour),
		Store:    store,
		Logger:   logger,
	}))
	t.Cleanup(srv.Close)
	return srv, store
}

func postParse(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/parse", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestParse_OK(t *testing.T) {
	srv, store := newTestServer(t)

	resp := postParse(t, srv, `{
		"query": "SELECT u FROM User u WHERE u.id = :id",
		"parameters": {"id": 7},
		"tree_walkers": ["App\\Walker\\Tenant"],
		"session_id": "abc"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rep := decode[analysis.Report](t, resp)
	assert.Equal(t, "select", rep.Kind)
	require.Len(t, rep.Components, 1)
	assert.Equal(t, `App\Entity\User`, rep.Components[0].Entity)
	assert.Equal(t, []string{`App\Walker\Tenant`}, rep.TreeWalkers)
	require.Len(t, rep.Parameters, 1)
	assert.Equal(t, "id", rep.Parameters[0].Name)

	entries, _, total, err := store.List(context.Background(), history.QueryOptions{SessionID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "http", entries[0].Source)
	assert.Equal(t, history.StatusOK, entries[0].Status)
}

func TestParse_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{"query":`, http.StatusBadRequest, "invalid_request"},
		{"unknown field", `{"query":"SELECT u FROM User u","limit":3}`, http.StatusBadRequest, "invalid_request"},
		{"empty query", `{"query":""}`, http.StatusBadRequest, "invalid_request"},
		{"syntax", `{"query":"SELECT FROM"}`, http.StatusBadRequest, analysis.CodeSyntax},
		{"semantic", `{"query":"SELECT u FROM Usr u"}`, http.StatusBadRequest, analysis.CodeSemantic},
		{"parameters", `{"query":"SELECT u FROM User u WHERE u.id = :id","parameters":{}}`, http.StatusBadRequest, analysis.CodeParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postParse(t, srv, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			d := decode[analysis.ErrorDetail](t, resp)
			assert.Equal(t, tt.code, d.Code)
			assert.NotEmpty(t, d.Message)
		})
	}

	resp := postParse(t, srv, `{"query":"SELECT u FROM Usr u"}`)
	d := decode[analysis.ErrorDetail](t, resp)
	require.NotNil(t, d.Position)
	assert.Equal(t, 14, *d.Position)
	assert.Equal(t, "did you mean 'User'?", d.Suggestion)
}

func TestSchemaRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/schema")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[struct {
		Namespace string              `json:"namespace"`
		Entities  []schema.EntityView `json:"entities"`
	}](t, resp)
	assert.Equal(t, `App\Entity`, all.Namespace)
	require.Len(t, all.Entities, 5)
	assert.Equal(t, "User", all.Entities[0].ShortName)

	resp, err = http.Get(srv.URL + "/api/schema/Post")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	post := decode[schema.EntityView](t, resp)
	assert.Equal(t, `App\Entity\Post`, post.Name)
	assert.Equal(t, "author", post.Associations[0].Field)

	resp, err = http.Get(srv.URL + "/api/schema/Pots")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	d := decode[analysis.ErrorDetail](t, resp)
	assert.Equal(t, "did you mean 'Post'?", d.Suggestion)
}

func TestFunctions(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/functions")
	require.NoError(t, err)
	defer resp.Body.Close()

	body := decode[struct {
		Functions []schema.FunctionView `json:"functions"`
	}](t, resp)
	var custom []string
	for _, f := range body.Functions {
		if f.Custom {
			custom = append(custom, f.Name)
		}
	}
	assert.Equal(t, []string{"LEVENSHTEIN"}, custom)
}

func TestHistoryRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, q := range []string{
		`{"query":"SELECT u FROM User u","session_id":"s1"}`,
		`{"query":"SELECT p FROM Post p","session_id":"s1"}`,
		`{"query":"SELECT FROM","session_id":"s2"}`,
	} {
		postParse(t, srv, q)
	}

	resp, err := http.Get(srv.URL + "/api/history?session=s1&limit=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	page := decode[historyPage](t, resp)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Entries, 1)
	assert.NotEmpty(t, page.NextCursor)

	resp, err = http.Get(srv.URL + "/api/history?status=syntax_error")
	require.NoError(t, err)
	defer resp.Body.Close()
	page = decode[historyPage](t, resp)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "s2", page.Entries[0].SessionID)

	resp, err = http.Get(srv.URL + "/api/history?since=yesterday")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/history/search?q=post")
	require.NoError(t, err)
	defer resp.Body.Close()
	found := decode[struct {
		Entries []history.Entry `json:"entries"`
	}](t, resp)
	require.Len(t, found.Entries, 1)
	assert.Equal(t, "SELECT p FROM Post p", found.Entries[0].Query)

	resp, err = http.Get(srv.URL + "/api/history/search")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReplRoutesMounted(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/repl/session", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestRun_Shutdown(t *testing.T) {
	reg := testutil.EntRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Port:     0,
			Registry: reg,
			Analyzer: analysis.New(reg, 0, nil, nil),
			Sessions: session.NewManager(time.Hour, time.Hour),
			Store:    history.NewMemoryStore(),
			Logger:   testutil.NewTestLogger(t),
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
