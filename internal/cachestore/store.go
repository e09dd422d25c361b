// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cachestore persists completed search payloads in a local SQLite
// database with a 24-hour TTL and a bounded entry count. Entries outlive the
// process; every read path re-validates the TTL so stale data is never
// returned.
package cachestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/AutoJunjie/async-paper-retriever/internal/backend"
	"github.com/AutoJunjie/async-paper-retriever/pkg/types"
)

const (
	dbFile = "search_cache.db"

	// keyPrefix namespaces this store's entries. Every key derived by Key
	// carries it, and bulk operations only touch rows under it.
	keyPrefix = "search_cache:"

	defaultTTL        = 24 * time.Hour
	defaultMaxEntries = 200
)

// ErrQuotaExceeded signals that a save was dropped because the store was at
// capacity. The oldest half of the namespace has been evicted; the caller may
// retry the write.
var ErrQuotaExceeded = errors.New("cache capacity exceeded")

// Payload is the cached snapshot of one completed search.
type Payload struct {
	Results        []backend.ResultRecord `json:"results"`
	Total          int                    `json:"total"`
	RewrittenTerms []string               `json:"rewritten_terms,omitempty"`

	// SearchTimeMS is the measured end-to-end search latency.
	SearchTimeMS int64 `json:"search_time_ms"`
}

// Entry is a payload plus its write timestamp. The timestamp is stored
// inside the JSON blob as well so entries self-describe their age.
type Entry struct {
	Payload
	Timestamp time.Time `json:"timestamp"`
}

// Store manages the cache database.
type Store struct {
	db         *sql.DB
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger

	// now is injected by tests to control TTL evaluation.
	now func() time.Time
}

// Open opens or creates the cache database at cfg.Dir/search_cache.db,
// creating the schema if it does not exist.
func Open(cfg types.CacheConfig, logger *slog.Logger) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = ".cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		db:         db,
		ttl:        ttl,
		maxEntries: maxEntries,
		logger:     logger.With("component", "cachestore"),
		now:        time.Now,
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key derives the deterministic cache key for a search. The query text is
// percent-escaped before joining so user input cannot collide with another
// key's separators.
func Key(query string, searchType types.SearchType, llmEnabled bool) string {
	return fmt.Sprintf("%s%s|%s|llm=%t", keyPrefix, url.QueryEscape(query), searchType, llmEnabled)
}

// Load returns the entry for key if present and younger than the TTL.
// An expired entry is deleted and reported as absent.
func (s *Store) Load(ctx context.Context, key string) (*Entry, bool, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM entries WHERE key = ?`, key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(blob), &entry); err != nil {
		return nil, false, fmt.Errorf("parsing cache entry: %w", err)
	}

	if s.now().Sub(entry.Timestamp) >= s.ttl {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
			s.logger.Warn("purging expired cache entry failed", "key", key, "error", err)
		}
		return nil, false, nil
	}

	return &entry, true, nil
}

// Save writes payload under key with the current timestamp. When the store
// is at capacity and key is new, Save evicts the oldest half of the
// namespace, drops the write, and returns ErrQuotaExceeded.
func (s *Store) Save(ctx context.Context, key string, payload Payload) error {
	wrote := s.now()

	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM entries WHERE key = ?`, key).Scan(&exists); err != nil {
		return fmt.Errorf("checking cache entry: %w", err)
	}

	if exists == 0 {
		count, err := s.countNamespace(ctx)
		if err != nil {
			return err
		}
		if count >= s.maxEntries {
			evicted, evictErr := s.EvictOldestHalf(ctx)
			if evictErr != nil {
				return fmt.Errorf("evicting after quota hit: %w", evictErr)
			}
			s.logger.Warn("cache at capacity, write dropped",
				"key", key, "evicted", evicted)
			return ErrQuotaExceeded
		}
	}

	blob, err := json.Marshal(Entry{Payload: payload, Timestamp: wrote})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (key, payload, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		key, string(blob), wrote.UnixMilli()); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// EvictOldestHalf deletes the oldest floor(N/2) entries in the namespace,
// by write timestamp ascending, and returns how many were removed. This is
// an unconditional bulk eviction, not per-access LRU.
func (s *Store) EvictOldestHalf(ctx context.Context) (int, error) {
	count, err := s.countNamespace(ctx)
	if err != nil {
		return 0, err
	}
	half := count / 2
	if half == 0 {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE key IN (
			SELECT key FROM entries WHERE key LIKE ? ORDER BY created_at ASC, key ASC LIMIT ?
		)`, keyPrefix+"%", half)
	if err != nil {
		return 0, fmt.Errorf("evicting cache entries: %w", err)
	}

	n, _ := res.RowsAffected()
	return int(n), nil
}

// ClearAll removes every entry in the namespace.
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE key LIKE ?`, keyPrefix+"%"); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Len reports how many entries the namespace currently holds, expired or not.
func (s *Store) Len(ctx context.Context) (int, error) {
	return s.countNamespace(ctx)
}

func (s *Store) countNamespace(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM entries WHERE key LIKE ?`, keyPrefix+"%").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting cache entries: %w", err)
	}
	return count, nil
}
