package history

import "context"

// Open returns a sqlite-backed store for path, or a MemoryStore when path
// is empty. The returned close function releases the store.
func Open(ctx context.Context, path string) (Store, func() error, error) {
	if path == "" {
		return NewMemoryStore(), func() error { return nil }, nil
	}
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}
