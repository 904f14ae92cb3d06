package checkcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/langcheck/internal/match"
)

// Logger defines the logging interface for the cache.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Store is a SQLite-backed check-result cache.
//
// Lookup failures are logged and reported as misses; a broken cache never
// fails a check.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time

	loggerMu sync.RWMutex
	logger   Logger
}

// New creates a store on db. A ttl of zero keeps entries forever.
func New(db *sql.DB, ttl time.Duration) *Store {
	return &Store{
		db:     db,
		ttl:    ttl,
		now:    time.Now,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for cache failures.
func (s *Store) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Store) log() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Get returns the cached matches for key and counts the hit.
func (s *Store) Get(ctx context.Context, key string) ([]match.Match, bool) {
	var (
		raw       string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT matches, created_at FROM check_cache WHERE key = ?", key,
	).Scan(&raw, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.log().Warn("check cache lookup failed", "error", err)
		return nil, false
	}

	if s.expired(createdAt) {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM check_cache WHERE key = ?", key); err != nil {
			s.log().Warn("removing expired cache entry failed", "error", err)
		}
		return nil, false
	}

	var matches []match.Match
	if err := json.Unmarshal([]byte(raw), &matches); err != nil {
		s.log().Warn("corrupt cache entry", "key", key, "error", err)
		return nil, false
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE check_cache SET hits = hits + 1 WHERE key = ?", key); err != nil {
		s.log().Warn("counting cache hit failed", "error", err)
	}
	return matches, true
}

// Put stores matches under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key, language string, matches []match.Match) {
	if err := s.put(ctx, key, language, matches); err != nil {
		s.log().Warn("check cache write failed", "error", err)
	}
}

func (s *Store) put(ctx context.Context, key, language string, matches []match.Match) error {
	if matches == nil {
		matches = []match.Match{}
	}
	data, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("marshalling matches: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO check_cache (key, language, matches, match_count, created_at, hits)
		 VALUES (?, ?, ?, ?, ?, 0)
		 ON CONFLICT(key) DO UPDATE SET
		     language = excluded.language,
		     matches = excluded.matches,
		     match_count = excluded.match_count,
		     created_at = excluded.created_at,
		     hits = 0`,
		key, language, string(data), len(matches), s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("inserting cache entry: %w", err)
	}
	s.log().Debug("check cached", "language", language, "matches", len(matches))
	return nil
}

func (s *Store) expired(createdAt int64) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(time.Unix(createdAt, 0)) >= s.ttl
}

// Prune deletes expired entries and returns how many were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).Unix()
	res, err := s.db.ExecContext(ctx, "DELETE FROM check_cache WHERE created_at <= ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning check cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning check cache: %w", err)
	}
	return n, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM check_cache"); err != nil {
		return fmt.Errorf("clearing check cache: %w", err)
	}
	return nil
}

// Stats summarises the cache contents.
type Stats struct {
	Entries int64            `json:"entries"`
	Hits    int64            `json:"hits"`
	Matches int64            `json:"matches"`
	ByLang  map[string]int64 `json:"by_language,omitempty"`
}

// Stats returns entry and hit counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(hits), 0), COALESCE(SUM(match_count), 0) FROM check_cache",
	).Scan(&st.Entries, &st.Hits, &st.Matches)
	if err != nil {
		return Stats{}, fmt.Errorf("querying cache stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT language, COUNT(*) FROM check_cache GROUP BY language")
	if err != nil {
		return Stats{}, fmt.Errorf("querying cache languages: %w", err)
	}
	defer rows.Close()

	st.ByLang = make(map[string]int64)
	for rows.Next() {
		var (
			lang  string
			count int64
		)
		if err := rows.Scan(&lang, &count); err != nil {
			return Stats{}, fmt.Errorf("scanning cache languages: %w", err)
		}
		st.ByLang[lang] = count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterating cache languages: %w", err)
	}
	return st, nil
}
