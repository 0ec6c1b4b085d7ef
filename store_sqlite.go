package folio

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one row per post in an embedded SQLite database. It
// honours the same whole-collection contract as FileStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path, ensures the
// data directory exists, and creates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them. WAL lets
	// readers proceed while a WriteAll transaction is open; the busy timeout
	// makes a second writer wait instead of failing with SQLITE_BUSY.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    position INTEGER NOT NULL,
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    doc TEXT NOT NULL
);
`)
	return err
}

// ReadAll returns every post in the order it was written.
func (s *SQLiteStore) ReadAll(ctx context.Context) ([]BlogPost, error) {
	defer observeStore("read", "sqlite", time.Now())
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc FROM posts ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []BlogPost{}
	for rows.Next() {
		var id, doc string
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		var p BlogPost
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("%w: post %s: %v", ErrStorageCorruption, id, err)
		}
		if p.Tags == nil {
			p.Tags = []string{}
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// WriteAll replaces the table contents inside a single transaction.
func (s *SQLiteStore) WriteAll(ctx context.Context, posts []BlogPost) error {
	defer observeStore("write", "sqlite", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO posts (position, id, slug, doc) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	defer stmt.Close()
	for i, p := range posts {
		if p.Tags == nil {
			p.Tags = []string{}
		}
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("%w: encode post %s: %v", ErrStorageWrite, p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, i, p.ID, p.Slug, string(doc)); err != nil {
			return fmt.Errorf("%w: post %s: %v", ErrStorageWrite, p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	return nil
}
