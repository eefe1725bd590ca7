package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/oql/internal/oql"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func entry(id, query, session, status string, offset time.Duration) Entry {
	return Entry{
		ID:         id,
		Query:      query,
		Kind:       "select",
		Status:     status,
		SessionID:  session,
		Source:     "repl",
		Duration:   3 * time.Millisecond,
		OccurredAt: base.Add(offset),
	}
}

func seedEntries() []Entry {
	return []Entry{
		entry("e1", "SELECT u FROM User u", "s1", StatusOK, 0),
		entry("e2", "SELECT p FROM Post p", "s1", StatusOK, time.Minute),
		entry("e3", "SELECT u FROM Usr u", "s2", StatusSemanticError, 2*time.Minute),
		entry("e4", "SELECT u.name FROM User u", "s1", StatusOK, 3*time.Minute),
	}
}

// stores runs each test against both implementations.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sq,
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Write(ctx, seedEntries()...))

			entries, cursor, total, err := s.List(ctx, DefaultQueryOptions())
			require.NoError(t, err)
			assert.Equal(t, 4, total)
			assert.Empty(t, cursor)
			require.Len(t, entries, 4)
			assert.Equal(t, "e4", entries[0].ID, "newest first")
			assert.Equal(t, 3*time.Millisecond, entries[0].Duration)
			assert.True(t, base.Add(3*time.Minute).Equal(entries[0].OccurredAt))

			entries, _, total, err = s.List(ctx, QueryOptions{SessionID: "s1"})
			require.NoError(t, err)
			assert.Equal(t, 3, total)
			assert.Len(t, entries, 3)

			entries, _, _, err = s.List(ctx, QueryOptions{Status: StatusSemanticError})
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "e3", entries[0].ID)

			since := base.Add(90 * time.Second)
			entries, _, _, err = s.List(ctx, QueryOptions{Since: &since})
			require.NoError(t, err)
			assert.Len(t, entries, 2)
		})
	}
}

func TestStore_Pagination(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Write(ctx, seedEntries()...))

			page, cursor, total, err := s.List(ctx, QueryOptions{Limit: 3})
			require.NoError(t, err)
			assert.Equal(t, 4, total)
			require.Len(t, page, 3)
			require.NotEmpty(t, cursor)

			page, cursor, _, err = s.List(ctx, QueryOptions{Limit: 3, Cursor: cursor})
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, "e1", page[0].ID)
			assert.Empty(t, cursor)
		})
	}
}

func TestStore_PaginationSharedTimestamp(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var batch []Entry
			for _, id := range []string{"a", "b", "c", "d", "e"} {
				batch = append(batch, entry(id, "SELECT u FROM User u", "s1", StatusOK, 0))
			}
			batch = append(batch, entry("z", "SELECT p FROM Post p", "s1", StatusOK, -time.Minute))
			require.NoError(t, s.Write(ctx, batch...))

			var ids []string
			cursor := ""
			for range 10 {
				page, next, _, err := s.List(ctx, QueryOptions{Limit: 2, Cursor: cursor})
				require.NoError(t, err)
				for _, e := range page {
					ids = append(ids, e.ID)
				}
				if next == "" {
					break
				}
				cursor = next
			}
			assert.Equal(t, []string{"e", "d", "c", "b", "a", "z"}, ids)
		})
	}
}

func TestStore_DuplicateWrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			e := entry("dup", "SELECT u FROM User u", "", StatusOK, 0)
			require.NoError(t, s.Write(ctx, e))
			require.NoError(t, s.Write(ctx, e))

			_, _, total, err := s.List(ctx, DefaultQueryOptions())
			require.NoError(t, err)
			assert.Equal(t, 1, total)
		})
	}
}

func TestStore_Search(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Write(ctx, seedEntries()...))

			found, err := s.Search(ctx, "from user", 0)
			require.NoError(t, err)
			require.Len(t, found, 2)
			assert.Equal(t, "e4", found[0].ID)
			assert.Equal(t, "e1", found[1].ID)

			found, err = s.Search(ctx, "User", 1)
			require.NoError(t, err)
			assert.Len(t, found, 1)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Write(ctx, seedEntries()...))

			require.NoError(t, s.Clear(ctx, "s1"))
			entries, _, _, err := s.List(ctx, DefaultQueryOptions())
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "s2", entries[0].SessionID)

			require.NoError(t, s.Clear(ctx, ""))
			entries, _, _, err = s.List(ctx, DefaultQueryOptions())
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, seedEntries()...))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	_, _, total, err := s.List(ctx, DefaultQueryOptions())
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}

func TestOpen_EmptyPathIsMemory(t *testing.T) {
	s, closeFn, err := Open(context.Background(), "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	assert.NoError(t, closeFn())
}

func TestNewEntry(t *testing.T) {
	res := &oql.Result{Statement: &oql.DeleteStatement{}}
	e := NewEntry("cli", "", "DELETE FROM User u", res, nil, time.Millisecond)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "delete", e.Kind)
	assert.Equal(t, StatusOK, e.Status)
	assert.Empty(t, e.Error)
	assert.Equal(t, "cli", e.Source)

	tests := []struct {
		err  error
		want string
	}{
		{&oql.SyntaxError{Message: "line 0, col 7: Error: Unexpected 'x'"}, StatusSyntaxError},
		{fmt.Errorf("wrapped: %w", &oql.SemanticError{Message: "'x' is not defined."}), StatusSemanticError},
		{&oql.ParameterError{Message: "Too few parameters"}, StatusParameterError},
		{context.DeadlineExceeded, StatusTimeout},
		{errors.New("boom"), StatusError},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			e := NewEntry("http", "sess", "SELECT", nil, tt.err, 0)
			assert.Equal(t, tt.want, e.Status)
			assert.Equal(t, tt.err.Error(), e.Error)
			assert.Empty(t, e.Kind)
		})
	}
}
