// Package cache memoizes diagram conversions. Re-running a batch over an
// unchanged workspace should cost file fingerprints, not full re-parses:
// entries are keyed by source path plus content fingerprint, held in an
// in-memory LRU, and persisted between runs with msgpack.
package cache

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/archsight/diagast/pkg/ast"
)

// DefaultMaxEntries bounds the in-memory cache when the caller does not.
const DefaultMaxEntries = 512

// Entry is one cached conversion result.
type Entry struct {
	Path        string    `msgpack:"path"`
	Fingerprint string    `msgpack:"fingerprint"`
	AST         *ast.AST  `msgpack:"ast"`
	CreatedAt   time.Time `msgpack:"created_at"`
}

// Key builds the cache key for a source file at a given content version.
// A changed file gets a new fingerprint and therefore a clean miss.
func Key(path, fingerprint string) string {
	return path + "@" + fingerprint
}

// Stats reports cache effectiveness for one process lifetime.
type Stats struct {
	Entries   int   `json:"entries"`
	HitCount  int64 `json:"hit_count"`
	MissCount int64 `json:"miss_count"`
}

// Store is a bounded LRU of conversion results, safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, Entry]
	hits   int64
	misses int64
}

// New creates a Store holding at most maxEntries results. maxEntries <= 0
// selects DefaultMaxEntries.
func New(maxEntries int) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	l, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Store{lru: l}, nil
}

// Get returns a copy of the cached AST for path at fingerprint. The copy
// keeps callers from mutating the cached entry through the shared pointer.
func (s *Store) Get(path, fingerprint string) (*ast.AST, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lru.Get(Key(path, fingerprint))
	if !ok || e.AST == nil {
		s.misses++
		return nil, false
	}
	s.hits++
	return e.AST.Clone(), true
}

// Put stores a conversion result. A nil AST is ignored: failed conversions
// are retried, not cached.
func (s *Store) Put(path, fingerprint string, a *ast.AST) {
	if a == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lru.Add(Key(path, fingerprint), Entry{
		Path:        path,
		Fingerprint: fingerprint,
		AST:         a.Clone(),
		CreatedAt:   time.Now(),
	})
}

// GetOrConvert returns the cached AST for (path, fingerprint) or runs
// convert and caches its result. Errors from convert are never cached.
func (s *Store) GetOrConvert(path, fingerprint string, convert func() (*ast.AST, error)) (*ast.AST, error) {
	if a, ok := s.Get(path, fingerprint); ok {
		return a, nil
	}
	a, err := convert()
	if err != nil {
		return nil, err
	}
	s.Put(path, fingerprint, a)
	return a, nil
}

// Delete removes one exact (path, fingerprint) version. Other versions of
// the same path age out of the LRU on their own.
func (s *Store) Delete(path, fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Remove(Key(path, fingerprint))
}

// Purge drops every entry.
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Purge()
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Stats returns current counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Entries: s.lru.Len(), HitCount: s.hits, MissCount: s.misses}
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s *Store) HitRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.hits + s.misses
	if total == 0 {
		return 0
	}
	return float64(s.hits) / float64(total)
}

// Save writes all entries in LRU order (oldest first) using msgpack.
func (s *Store) Save(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.lru.Keys()
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := s.lru.Peek(k); ok {
			entries = append(entries, e)
		}
	}
	return msgpack.NewEncoder(w).Encode(entries)
}

// Load replaces the cache contents from a msgpack stream written by Save.
func (s *Store) Load(r io.Reader) error {
	var entries []Entry
	if err := msgpack.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("decode cache: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Purge()
	for _, e := range entries {
		if e.AST == nil {
			continue
		}
		s.lru.Add(Key(e.Path, e.Fingerprint), e)
	}
	return nil
}

// SaveFile persists the cache to path, replacing any previous snapshot.
func (s *Store) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer f.Close()
	return s.Save(f)
}

// LoadFile restores the cache from path. A missing file is not an error;
// the cache simply starts cold.
func (s *Store) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()
	return s.Load(f)
}
