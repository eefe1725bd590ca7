package wire

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/oql/internal/analysis"
	"github.com/matthewbaird/oql/internal/history"
	"github.com/matthewbaird/oql/internal/repl/autocomplete"
	"github.com/matthewbaird/oql/internal/repl/meta"
	"github.com/matthewbaird/oql/internal/repl/session"
	"github.com/matthewbaird/oql/internal/testutil"
)

type received struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type client struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

func (c *client) send(typ, id string, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, wsjson.Write(c.ctx, c.conn, ClientMessage{Type: typ, ID: id, Data: raw}))
}

func (c *client) read() received {
	c.t.Helper()
	var msg received
	require.NoError(c.t, wsjson.Read(c.ctx, c.conn, &msg))
	return msg
}

func setup(t *testing.T, configure ...func(*Handler)) (*client, *session.Manager, *history.MemoryStore) {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	reg := testutil.EntRegistry(t)
	store := history.NewMemoryStore()
	sessions := session.NewManager(time.Hour, time.Hour)

	publish := analysis.PublisherFunc(func(ctx context.Context, e history.Entry) {
		_ = store.Write(ctx, e)
	})
	h := NewHandler(sessions,
		analysis.New(reg, 0, publish, logger),
		autocomplete.New(reg),
		meta.New(reg, store),
		logger)
	for _, fn := range configure {
		fn(h)
	}

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	return &client{t: t, ctx: ctx, conn: conn}, sessions, store
}

func TestHandler_Session(t *testing.T) {
	c, sessions, _ := setup(t)

	msg := c.read()
	assert.Equal(t, TypeSession, msg.Type)
	var data SessionData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.NotNil(t, sessions.Get(data.SessionID))
}

func TestHandler_Parse(t *testing.T) {
	c, _, store := setup(t)
	c.read() // session

	c.send(TypeParse, "1", ParseData{Query: "SELECT u FROM User u WHERE u.age > :min"})
	msg := c.read()
	require.Equal(t, TypeAST, msg.Type, string(msg.Data))
	assert.Equal(t, "1", msg.RequestID)

	var ast struct {
		Kind       string               `json:"kind"`
		Formatted  string               `json:"formatted"`
		Components []analysis.Component `json:"components"`
		Unbound    []string             `json:"unbound"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &ast))
	assert.Equal(t, "select", ast.Kind)
	assert.NotEmpty(t, ast.Formatted)
	require.Len(t, ast.Components, 1)
	assert.Equal(t, `App\Entity\User`, ast.Components[0].Entity)
	assert.Equal(t, []string{"min"}, ast.Unbound)

	// :set binds the parameter for later parses.
	c.send(TypeParse, "2", ParseData{Query: ":set min 18"})
	assert.Equal(t, TypeMeta, c.read().Type)

	c.send(TypeParse, "3", ParseData{Query: "SELECT u FROM User u WHERE u.age > :min"})
	msg = c.read()
	require.Equal(t, TypeAST, msg.Type)
	ast.Unbound = nil
	require.NoError(t, json.Unmarshal(msg.Data, &ast))
	assert.Empty(t, ast.Unbound)

	entries, _, _, err := store.List(context.Background(), history.DefaultQueryOptions())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "meta-commands are not recorded")
	assert.Equal(t, "repl", entries[0].Source)
}

func TestHandler_ParseError(t *testing.T) {
	c, _, _ := setup(t)
	c.read()

	query := "SELECT u FROM User u WHERE u.nmae = 1"
	c.send(TypeParse, "e", ParseData{Query: query})
	msg := c.read()
	require.Equal(t, TypeError, msg.Type)

	var d analysis.ErrorDetail
	require.NoError(t, json.Unmarshal(msg.Data, &d))
	assert.Equal(t, analysis.CodeSemantic, d.Code)
	assert.Equal(t, "did you mean 'name'?", d.Suggestion)
	require.NotNil(t, d.Position)
	assert.Equal(t, strings.Index(query, "nmae"), *d.Position, "points at the unknown field")

	c.send(TypeParse, "x", ParseData{Query: "   "})
	require.NoError(t, json.Unmarshal(c.read().Data, &d))
	assert.Equal(t, "empty_query", d.Code)

	c.send(TypeParse, "m", ParseData{Query: ":nope"})
	require.NoError(t, json.Unmarshal(c.read().Data, &d))
	assert.Equal(t, "meta_error", d.Code)
}

func TestHandler_ParseTimeout(t *testing.T) {
	c, _, _ := setup(t, func(h *Handler) { h.ParseTimeout = time.Nanosecond })
	c.read()

	c.send(TypeParse, "t", ParseData{Query: "SELECT u FROM User u WHERE u.age > 18"})
	msg := c.read()
	require.Equal(t, TypeError, msg.Type)

	var d analysis.ErrorDetail
	require.NoError(t, json.Unmarshal(msg.Data, &d))
	assert.Equal(t, analysis.CodeTimeout, d.Code)

	// the session survives and later parses still work
	c.send(TypeParse, "u", ParseData{Query: ":params"})
	assert.Equal(t, TypeMeta, c.read().Type)
}

func TestHandler_Autocomplete(t *testing.T) {
	c, _, _ := setup(t)
	c.read()

	c.send(TypeAutocomplete, "a", AutocompleteData{Query: "SELECT u FROM Us", Cursor: 16})
	msg := c.read()
	require.Equal(t, TypeCompletions, msg.Type)

	var data CompletionsData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	require.Len(t, data.Items, 1)
	assert.Equal(t, "User", data.Items[0].Label)
}

func TestHandler_PingAndUnknown(t *testing.T) {
	c, _, _ := setup(t)
	c.read()

	c.send(TypePing, "p", nil)
	msg := c.read()
	assert.Equal(t, TypePong, msg.Type)
	assert.Equal(t, "p", msg.RequestID)

	c.send("execute", "u", nil)
	msg = c.read()
	assert.Equal(t, TypeError, msg.Type)
	assert.Contains(t, string(msg.Data), "unknown message type: execute")
}
