package history

import (
	"strings"
	"time"
)

// QueryOptions controls filtering and pagination for List.
type QueryOptions struct {
	SessionID string     // only entries from this session
	Status    string     // only entries with this status
	Since     *time.Time // inclusive
	Limit     int        // max results (default: 50, max: 500)
	Cursor    string     // NextCursor of the previous page
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 50}
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 500 {
		return 50
	}
	return o.Limit
}

// cursor marks the last entry of a page. Entries are ordered by
// (occurred_at, id) descending, so entries sharing a timestamp are not
// skipped at a page boundary.
type cursor struct {
	at time.Time
	id string
}

func cursorFor(e Entry) string {
	return e.OccurredAt.UTC().Format(time.RFC3339Nano) + "|" + e.ID
}

// parseCursor also accepts a bare timestamp.
func parseCursor(s string) (cursor, bool) {
	at, id, _ := strings.Cut(s, "|")
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return cursor{}, false
	}
	return cursor{at: t, id: id}, true
}

// after reports whether e sorts after the cursor, newest first.
func (c cursor) after(e Entry) bool {
	if e.OccurredAt.Equal(c.at) {
		return e.ID < c.id
	}
	return e.OccurredAt.Before(c.at)
}
