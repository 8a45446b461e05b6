// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists aggregation results per query with a TTL, so
// repeated searches within the freshness window skip the full pipeline.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/shopmate/pkg/types"
)

const dbFile = "cache.db"

const defaultTTL = 5 * time.Minute

// Store manages the result cache SQLite database.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// Stats summarizes cache occupancy.
type Stats struct {
	Entries int   `json:"entries"`
	Fresh   int   `json:"fresh"`
	Expired int   `json:"expired"`
	SizeKB  int64 `json:"sizeKB"`
}

// NewStore opens or creates the cache database at cfg.Dir/cache.db,
// creating the directory and schema as needed.
func NewStore(cfg types.CacheConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = ".shopmate"
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

	s := &Store{db: db, ttl: ttl}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS results (
		query TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// normalizeQuery folds case and whitespace so trivially different
// spellings share an entry.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Get returns the cached result for the query when a fresh entry
// exists. The second return is false on a miss or an expired entry;
// expired entries are removed on the way out.
func (s *Store) Get(query string) (*types.AggregationResult, bool, error) {
	key := normalizeQuery(query)

	var payload string
	var createdAt int64
	err := s.db.QueryRow(`SELECT payload, created_at FROM results WHERE query = ?`, key).
		Scan(&payload, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	if time.Since(time.Unix(createdAt, 0)) > s.ttl {
		if _, err := s.db.Exec(`DELETE FROM results WHERE query = ?`, key); err != nil {
			return nil, false, fmt.Errorf("evicting expired entry: %w", err)
		}
		return nil, false, nil
	}

	var result types.AggregationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, false, fmt.Errorf("decoding cached result: %w", err)
	}
	return &result, true, nil
}

// Put stores the result for the query, replacing any previous entry.
func (s *Store) Put(query string, result *types.AggregationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO results (query, payload, created_at) VALUES (?, ?, ?)`,
		normalizeQuery(query), string(payload), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Stats reports entry counts and the total payload size.
func (s *Store) Stats() (Stats, error) {
	cutoff := time.Now().Add(-s.ttl).Unix()

	var st Stats
	var bytes sql.NullInt64
	err := s.db.QueryRow(`SELECT
		COUNT(*),
		COALESCE(SUM(created_at >= ?), 0),
		COALESCE(SUM(LENGTH(payload)), 0)
		FROM results`, cutoff).
		Scan(&st.Entries, &st.Fresh, &bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	st.Expired = st.Entries - st.Fresh
	st.SizeKB = bytes.Int64 / 1024
	return st, nil
}

// Clear removes every entry and returns how many were dropped.
func (s *Store) Clear() (int, error) {
	res, err := s.db.Exec(`DELETE FROM results`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
