// Package store is the sqlite-backed persistence layer for Murph: a
// key/value table of remembered personal facts and an append-only
// conversation log. It is the only component that touches the database
// file; everything else goes through its operations.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "log/slog"

	sqlite "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

var (
	// ErrCorrupt means the database failed its integrity check on open.
	ErrCorrupt = errors.New("store: integrity check failed")
	// ErrWrite wraps write failures that survived the retry policy.
	ErrWrite = errors.New("store: write failed")
	// ErrInvalidRole is returned for turns with a role outside user/assistant.
	ErrInvalidRole = errors.New("store: invalid role")
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// DefaultHistoryLimit bounds how many turns RecentTurns returns when the
	// caller passes a non-positive limit.
	DefaultHistoryLimit = 10
)

// Turn is one message in the conversation log.
type Turn struct {
	ID      int64
	Role    string
	Content string
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    role       TEXT NOT NULL CHECK(role IN ('user', 'assistant')),
    content    TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS personal_info (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    key        TEXT NOT NULL UNIQUE,
    value      TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);
CREATE INDEX IF NOT EXISTS idx_conversations_role    ON conversations(role);
CREATE INDEX IF NOT EXISTS idx_personal_info_key     ON personal_info(key);
`

// Store owns the two tables. Writes serialize through one process-wide
// mutex; the sqlite busy timeout covers contention from other processes
// sharing the file.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	retry RetryPolicy
	hooks storeHooks
}

// storeHooks let tests fault-inject the write path.
type storeHooks struct {
	execTurn func(query string, args ...any) (sql.Result, error)
}

// Open creates the database file (and parent directories) if needed,
// applies the schema and verifies integrity. A failed integrity check
// returns an error wrapping ErrCorrupt and must abort startup.
func Open(path string, retry RetryPolicy) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := openDB("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	var verdict string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&verdict); err != nil {
		db.Close()
		return nil, fmt.Errorf("integrity check: %w", err)
	}
	if verdict != "ok" {
		db.Close()
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, verdict)
	}

	return &Store{db: db, retry: retry}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertFact writes or replaces the fact under the normalized (lowercase)
// key. At most one row per key exists.
func (s *Store) UpsertFact(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO personal_info (key, value) VALUES (?, ?)`,
		strings.ToLower(key), value,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert fact %q: %v", ErrWrite, key, err)
	}
	return nil
}

// Fact looks up a fact by normalized key. Absence is not an error; read
// failures are logged and reported as absent.
func (s *Store) Fact(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM personal_info WHERE key = ?`,
		strings.ToLower(key),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		log.Error("fact lookup failed", "key", key, "err", err)
		return "", false
	}
	return value, true
}

// AppendTurn inserts one conversation row. Busy/locked conditions are
// retried under the store's retry policy; a bad role fails immediately
// without touching the database.
func (s *Store) AppendTurn(role, content string) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exec := s.hooks.execTurn
	if exec == nil {
		exec = s.db.Exec
	}

	var last error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			s.retry.sleep()
		}
		_, err := exec(
			`INSERT INTO conversations (role, content) VALUES (?, ?)`,
			role, content,
		)
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return fmt.Errorf("%w: append turn: %v", ErrWrite, err)
		}
		last = err
	}
	return fmt.Errorf("%w: append turn: gave up after %d attempts: %v",
		ErrWrite, s.retry.MaxAttempts, last)
}

// RecentTurns returns the most recent limit turns in chronological order,
// oldest first. Read failures degrade to an empty result.
func (s *Store) RecentTurns(limit int) []Turn {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.Query(`
		SELECT id, role, content FROM (
			SELECT id, role, content, created_at
			FROM conversations
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		) ORDER BY created_at ASC, id ASC`, limit)
	if err != nil {
		log.Error("failed to load conversation history", "err", err)
		return nil
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.Role, &t.Content); err != nil {
			log.Error("failed to scan conversation row", "err", err)
			return nil
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		log.Error("failed to load conversation history", "err", err)
		return nil
	}
	return turns
}

// FindCachedAnswer returns the most recent assistant turn whose content
// contains substr (case-sensitive), or absent when nothing matches or the
// read fails.
func (s *Store) FindCachedAnswer(substr string) (string, bool) {
	if substr == "" {
		return "", false
	}

	var content string
	err := s.db.QueryRow(`
		SELECT content FROM conversations
		WHERE role = 'assistant' AND instr(content, ?) > 0
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, substr).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		log.Error("cached answer lookup failed", "err", err)
		return "", false
	}
	return content, true
}

// sqlite primary result codes for contention.
const (
	codeBusy   = 5 // SQLITE_BUSY
	codeLocked = 6 // SQLITE_LOCKED
)

func isBusy(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == codeBusy || code == codeLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
