package folio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Store persists the whole post collection as one unit. Implementations read
// and write everything at once; there is no partial access.
type Store interface {
	// ReadAll returns every stored post. A store that has never been written
	// returns an empty slice. Undecodable data yields ErrStorageCorruption.
	ReadAll(ctx context.Context) ([]BlogPost, error)
	// WriteAll replaces the stored collection. Failures wrap ErrStorageWrite.
	WriteAll(ctx context.Context, posts []BlogPost) error
	// Close releases any resources held by the store.
	Close() error
}

// OpenStore opens the store selected by cfg.StoreDriver.
func OpenStore(cfg SiteConfig) (Store, error) {
	switch cfg.StoreDriver {
	case "", "json":
		return NewFileStore(cfg.DataPath), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// FileStore keeps the collection in a single JSON document on disk.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the JSON document at path. The file
// and its directory are created on the first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// ReadAll loads and decodes the document.
func (s *FileStore) ReadAll(ctx context.Context) ([]BlogPost, error) {
	defer observeStore("read", "json", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []BlogPost{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return decodePosts(data)
}

// WriteAll encodes posts and swaps them in place of the current document.
// The new document is written to a temporary file next to the old one and
// renamed over it, so concurrent readers never observe a partial write.
func (s *FileStore) WriteAll(ctx context.Context, posts []BlogPost) error {
	defer observeStore("write", "json", time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodePosts(posts)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStorageWrite, err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}
	committed = true
	return nil
}

// Close is a no-op; the file is opened per operation.
func (s *FileStore) Close() error {
	return nil
}

func decodePosts(data []byte) ([]BlogPost, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrStorageCorruption)
	}
	var posts []BlogPost
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageCorruption, err)
	}
	if posts == nil {
		posts = []BlogPost{}
	}
	for i := range posts {
		if posts[i].Tags == nil {
			posts[i].Tags = []string{}
		}
	}
	return posts, nil
}

// encodePosts produces the on-disk representation, which is also the backup
// file format.
func encodePosts(posts []BlogPost) ([]byte, error) {
	if posts == nil {
		posts = []BlogPost{}
	}
	out := make([]BlogPost, len(posts))
	for i, p := range posts {
		if p.Tags == nil {
			p.Tags = []string{}
		}
		out[i] = p
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
