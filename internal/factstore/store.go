// Package factstore persists parsed source facts in BadgerDB so unchanged
// files are not re-parsed between runs. Entries are keyed by file path and
// validated by the SHA-256 of the content they were parsed from.
package factstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/imyousuf/CallEagle/internal/index"
)

// SchemaVersion is bumped whenever the stored fact layout or the parser's
// lowering changes, invalidating every entry.
const SchemaVersion = 1

const prefixFile = "f:"

func fileKey(path string) []byte { return []byte(prefixFile + path) }

// entry is the stored value for one file.
type entry struct {
	Version int         `json:"v"`
	Hash    string      `json:"h"`
	File    *index.File `json:"f"`
}

// Stats summarizes the store contents.
type Stats struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// Store is a BadgerDB-backed fact cache. It is safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open fact store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory fact store: %w", err)
	}
	return &Store{db: db}, nil
}

// Hash returns the content digest entries are validated against.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Get returns the facts stored for path if they were parsed from content.
// A stale or missing entry reports false.
func (s *Store) Get(path string, content []byte) (*index.File, bool, error) {
	var e entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fileKey(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get facts %s: %w", path, err)
	}
	if e.Version != SchemaVersion || e.Hash != Hash(content) || e.File == nil {
		return nil, false, nil
	}
	e.File.Link()
	return e.File, true, nil
}

// Put stores the facts parsed from content.
func (s *Store) Put(path string, content []byte, f *index.File) error {
	data, err := json.Marshal(entry{Version: SchemaVersion, Hash: Hash(content), File: f})
	if err != nil {
		return fmt.Errorf("marshal facts %s: %w", path, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fileKey(path), data)
	})
}

// Delete removes the entry for path.
func (s *Store) Delete(path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(fileKey(path))
	})
}

// Paths returns the stored file paths in order.
func (s *Store) Paths() ([]string, error) {
	var paths []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixFile)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			paths = append(paths, strings.TrimPrefix(string(it.Item().Key()), prefixFile))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Prune deletes every entry whose path keep rejects and returns how many
// were removed.
func (s *Store) Prune(keep func(path string) bool) (int, error) {
	paths, err := s.Paths()
	if err != nil {
		return 0, err
	}
	var stale [][]byte
	for _, p := range paths {
		if !keep(p) {
			stale = append(stale, fileKey(p))
		}
	}

	// Delete in batches to avoid transaction size limits.
	const batchSize = 1000
	for i := 0; i < len(stale); i += batchSize {
		batch := stale[i:min(i+batchSize, len(stale))]
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, key := range batch {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("prune facts: %w", err)
		}
	}
	return len(stale), nil
}

// Stats counts entries and their encoded size.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixFile)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			st.Files++
			st.Bytes += it.Item().ValueSize()
		}
		return nil
	})
	return st, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
