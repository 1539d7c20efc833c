package momoscript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements PackStorage in a single embedded SQLite file.
// It suits the CLI and single-host deployments where PostgreSQL is too heavy.
type SQLiteStorage struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// SQLiteStorageDriver is the driver for creating SQLiteStorage instances.
type SQLiteStorageDriver struct{}

func init() {
	RegisterStorageDriver(StorageDriverNameSQLite, &SQLiteStorageDriver{})
}

// Open creates a new SQLiteStorage. The connection string is a database
// file path; "" or ":memory:" opens a private in-memory database.
func (d *SQLiteStorageDriver) Open(connectionString string) (PackStorage, error) {
	return NewSQLiteStorage(connectionString)
}

var sqliteMemoryCounter atomic.Int64

// sqliteDSN builds the driver DSN for path.
func sqliteDSN(path string) string {
	if path == "" || path == SQLiteMemoryPath {
		n := sqliteMemoryCounter.Add(1)
		return fmt.Sprintf(SQLiteMemoryDSNFormat, n)
	}
	return fmt.Sprintf(SQLiteDSNFormat, filepath.ToSlash(path))
}

// NewSQLiteStorage opens (and if needed creates) the pack database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open(SQLiteDriverName, sqliteDSN(path))
	if err != nil {
		return nil, &StorageError{Message: ErrMsgSQLiteOpenFailed, Name: path, Cause: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), SQLiteDefaultQueryTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, &StorageError{Message: ErrMsgSQLiteOpenFailed, Name: path, Cause: err}
	}

	storage := &SQLiteStorage{db: db}
	if err := storage.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return storage, nil
}

func (s *SQLiteStorage) ensureSchema(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS packs (
		name          TEXT PRIMARY KEY,
		root          TEXT NOT NULL DEFAULT '',
		char_ids      TEXT NOT NULL DEFAULT '{}',
		asset_mapping TEXT NOT NULL,
		metadata      TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return &StorageError{Message: ErrMsgSQLiteSchemaFailed, Cause: err}
	}
	return nil
}

// Get retrieves a pack by name.
func (s *SQLiteStorage) Get(ctx context.Context, name string) (*StoredPack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, SQLiteDefaultQueryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `
		SELECT name, root, char_ids, asset_mapping, metadata, created_at, updated_at
		FROM packs WHERE name = ?`, name)
	pack, err := scanSQLitePack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewPackNotFoundError(name)
		}
		return nil, &StorageError{Message: ErrMsgSQLiteQueryFailed, Name: name, Cause: err}
	}
	return pack, nil
}

// Save inserts or replaces a pack.
func (s *SQLiteStorage) Save(ctx context.Context, pack *StoredPack) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validatePackForSave(pack); err != nil {
		return err
	}

	metadata, err := marshalMetadata(pack.Metadata)
	if err != nil {
		return &StorageError{Message: ErrMsgMarshalMetadata, Name: pack.Name, Cause: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, SQLiteDefaultQueryTimeout)
	defer cancel()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var created, updated string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO packs (name, root, char_ids, asset_mapping, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			root          = excluded.root,
			char_ids      = excluded.char_ids,
			asset_mapping = excluded.asset_mapping,
			metadata      = excluded.metadata,
			updated_at    = excluded.updated_at
		RETURNING created_at, updated_at`,
		pack.Name, pack.Root,
		string(orEmptyObject(pack.CharIDJSON)), string(pack.AssetMappingJSON),
		metadata, now, now,
	).Scan(&created, &updated)
	if err != nil {
		return &StorageError{Message: ErrMsgSQLiteQueryFailed, Name: pack.Name, Cause: err}
	}

	pack.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	pack.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return nil
}

// Delete removes a pack by name.
func (s *SQLiteStorage) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, SQLiteDefaultQueryTimeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM packs WHERE name = ?`, name)
	if err != nil {
		return &StorageError{Message: ErrMsgSQLiteQueryFailed, Name: name, Cause: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &StorageError{Message: ErrMsgSQLiteQueryFailed, Name: name, Cause: err}
	}
	if affected == 0 {
		return NewPackNotFoundError(name)
	}
	return nil
}

// List returns packs matching the query ordered by name.
func (s *SQLiteStorage) List(ctx context.Context, query *PackQuery) ([]*StoredPack, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewStorageClosedError()
	}
	if query == nil {
		query = &PackQuery{}
	}

	ctx, cancel := context.WithTimeout(ctx, SQLiteDefaultQueryTimeout)
	defer cancel()

	var b strings.Builder
	b.WriteString(`
		SELECT name, root, char_ids, asset_mapping, metadata, created_at, updated_at
		FROM packs
		WHERE substr(name, 1, length(?)) = ?
		ORDER BY name`)
	args := []any{query.NamePrefix, query.NamePrefix}
	if query.Limit > 0 || query.Offset > 0 {
		limit := query.Limit
		if limit <= 0 {
			limit = -1
		}
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, limit, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, &StorageError{Message: ErrMsgSQLiteQueryFailed, Cause: err}
	}
	defer rows.Close()

	results := []*StoredPack{}
	for rows.Next() {
		pack, err := scanSQLitePack(rows)
		if err != nil {
			return nil, &StorageError{Message: ErrMsgSQLiteQueryFailed, Cause: err}
		}
		results = append(results, pack)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Message: ErrMsgSQLiteQueryFailed, Cause: err}
	}
	return results, nil
}

// Exists checks if a pack with the given name exists.
func (s *SQLiteStorage) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, NewStorageClosedError()
	}

	ctx, cancel := context.WithTimeout(ctx, SQLiteDefaultQueryTimeout)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM packs WHERE name = ?`, name).Scan(&n); err != nil {
		return false, &StorageError{Message: ErrMsgSQLiteQueryFailed, Name: name, Cause: err}
	}
	return n > 0, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func scanSQLitePack(row rowScanner) (*StoredPack, error) {
	var (
		pack     StoredPack
		charIDs  string
		mapping  string
		metadata sql.NullString
		created  string
		updated  string
	)
	if err := row.Scan(&pack.Name, &pack.Root, &charIDs, &mapping, &metadata, &created, &updated); err != nil {
		return nil, err
	}

	pack.CharIDJSON = []byte(charIDs)
	pack.AssetMappingJSON = []byte(mapping)
	if metadata.Valid {
		m, err := unmarshalMetadata([]byte(metadata.String))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgUnmarshalMetadata, err)
		}
		pack.Metadata = m
	}
	pack.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	pack.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &pack, nil
}

// SQLite storage error messages
const (
	ErrMsgSQLiteOpenFailed   = "failed to open SQLite database"
	ErrMsgSQLiteSchemaFailed = "failed to create SQLite schema"
	ErrMsgSQLiteQueryFailed  = "SQLite query failed"
)
