package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/lox/pokerface/internal/fileutil"
)

// document is the on-disk layout of a FileStore.
type document struct {
	Tables []TableRecord `toml:"table"`
}

// FileStore keeps records in a TOML file. Every change rewrites the file
// atomically.
type FileStore struct {
	path string

	mu      sync.Mutex
	records *MemoryStore
}

// Open loads the store at path, creating an empty one if the file is
// missing. Occupancy counts are reset to zero and written back, since no
// session survives a restart.
func Open(path string) (*FileStore, error) {
	data, err := fileutil.ReadFileIfExists(path)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	var doc document
	if len(data) > 0 {
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode store %s: %w", path, err)
		}
	}
	seen := make(map[int]bool, len(doc.Tables))
	for _, r := range doc.Tables {
		if r.ID <= 0 || seen[r.ID] {
			return nil, fmt.Errorf("%w: bad or duplicate id %d in %s", ErrInvalidRecord, r.ID, path)
		}
		seen[r.ID] = true
	}

	s := &FileStore{path: path, records: NewMemoryStore(doc.Tables...)}
	if err := s.write(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) List(ctx context.Context) ([]TableRecord, error) {
	return s.records.List(ctx)
}

func (s *FileStore) Get(ctx context.Context, id int) (TableRecord, error) {
	return s.records.Get(ctx, id)
}

func (s *FileStore) Save(ctx context.Context, rec TableRecord) (TableRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.records.Save(ctx, rec)
	if err != nil {
		return TableRecord{}, err
	}
	return rec, s.write()
}

func (s *FileStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.records.Delete(ctx, id); err != nil {
		return err
	}
	return s.write()
}

func (s *FileStore) SetOccupancy(ctx context.Context, id, players int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.records.SetOccupancy(ctx, id, players); err != nil {
		return err
	}
	return s.write()
}

// write must be called with s.mu held (or before s is shared).
func (s *FileStore) write() error {
	records, err := s.records.List(context.Background())
	if err != nil {
		return err
	}
	doc := document{Tables: records}
	err = fileutil.WriteAtomic(s.path, 0o644, func(w io.Writer) error {
		enc := toml.NewEncoder(w)
		enc.Indent = "\t"
		return enc.Encode(doc)
	})
	if err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}
