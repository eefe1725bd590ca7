package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so occurred_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is the interface for reading and writing parse history.
type Store interface {
	// Write appends entries.
	Write(ctx context.Context, entries ...Entry) error

	// List returns entries newest first, with a cursor for the next page
	// and the total number of matches.
	List(ctx context.Context, opts QueryOptions) (entries []Entry, nextCursor string, totalCount int, err error)

	// Search returns the newest entries whose query text contains text.
	Search(ctx context.Context, text string, limit int) ([]Entry, error)

	// Clear removes all entries of a session, or everything when
	// sessionID is "".
	Clear(ctx context.Context, sessionID string) error
}

// SQLiteStore implements Store on a sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the sqlite database at path and
// makes sure the history table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// sqlite allows one writer; serialise through a single connection.
	db.SetMaxOpenConns(1)

	s := NewSQLiteStore(db)
	if err := s.CreateTable(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating history table: %w", err)
	}
	return s, nil
}

// NewSQLiteStore wraps an open database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// CreateTable creates the parse_history table and its indexes.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS parse_history (
			id          TEXT PRIMARY KEY,
			query       TEXT NOT NULL,
			kind        TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			error       TEXT NOT NULL DEFAULT '',
			session_id  TEXT NOT NULL DEFAULT '',
			source      TEXT NOT NULL,
			duration_ns INTEGER NOT NULL DEFAULT 0,
			occurred_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_parse_history_time
			ON parse_history (occurred_at DESC);

		CREATE INDEX IF NOT EXISTS idx_parse_history_session_time
			ON parse_history (session_id, occurred_at DESC);
	`)
	return err
}

// Write inserts entries in one statement.
func (s *SQLiteStore) Write(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO parse_history (
		id, query, kind, status, error, session_id, source, duration_ns, occurred_at
	) VALUES `)

	args := make([]interface{}, 0, len(entries)*9)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			e.ID, e.Query, e.Kind, e.Status, e.Error, e.SessionID, e.Source,
			int64(e.Duration), e.OccurredAt.UTC().Format(timeLayout),
		)
	}

	b.WriteString(" ON CONFLICT (id) DO NOTHING")
	if _, err := s.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("writing parse history: %w", err)
	}
	return nil
}

// List returns entries newest first with filtering and pagination.
func (s *SQLiteStore) List(ctx context.Context, opts QueryOptions) ([]Entry, string, int, error) {
	limit := opts.limit()

	var conditions []string
	var args []interface{}

	if opts.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, opts.SessionID)
	}
	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, opts.Status)
	}
	if opts.Since != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, opts.Since.UTC().Format(timeLayout))
	}

	// The count ignores the cursor so it reports all matches.
	where := "1 = 1"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}
	var totalCount int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM parse_history WHERE "+where, args...).Scan(&totalCount); err != nil {
		return nil, "", 0, fmt.Errorf("counting parse history: %w", err)
	}

	if c, ok := parseCursor(opts.Cursor); ok {
		at := c.at.UTC().Format(timeLayout)
		conditions = append(conditions, "(occurred_at < ? OR (occurred_at = ? AND id < ?))")
		args = append(args, at, at, c.id)
		where = strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT id, query, kind, status, error, session_id, source, duration_ns, occurred_at
		FROM parse_history
		WHERE %s
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, where)
	args = append(args, limit+1) // fetch one extra for cursor

	entries, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, "", 0, err
	}

	var nextCursor string
	if len(entries) > limit {
		entries = entries[:limit]
		nextCursor = cursorFor(entries[len(entries)-1])
	}
	return entries, nextCursor, totalCount, nil
}

// Search returns the newest entries whose query contains text, ignoring case.
func (s *SQLiteStore) Search(ctx context.Context, text string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.query(ctx, `SELECT id, query, kind, status, error, session_id, source, duration_ns, occurred_at
		FROM parse_history
		WHERE instr(lower(query), lower(?)) > 0
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?`, text, limit)
}

// Clear deletes a session's entries, or all entries for "".
func (s *SQLiteStore) Clear(ctx context.Context, sessionID string) error {
	var err error
	if sessionID == "" {
		_, err = s.db.ExecContext(ctx, "DELETE FROM parse_history")
	} else {
		_, err = s.db.ExecContext(ctx, "DELETE FROM parse_history WHERE session_id = ?", sessionID)
	}
	if err != nil {
		return fmt.Errorf("clearing parse history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying parse history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationNS int64
		var occurredAt string
		if err := rows.Scan(
			&e.ID, &e.Query, &e.Kind, &e.Status, &e.Error, &e.SessionID, &e.Source, &durationNS, &occurredAt,
		); err != nil {
			return nil, fmt.Errorf("scanning parse history: %w", err)
		}
		e.Duration = time.Duration(durationNS)
		e.OccurredAt, err = time.Parse(timeLayout, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing occurred_at %q: %w", occurredAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
