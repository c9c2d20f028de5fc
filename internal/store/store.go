// Package store implements the persistent knowledge and relationship stores
// on SQLite. Knowledge inserts are deduplicated by content hash; the second
// insert of identical content reports ErrDuplicate, which callers treat as a
// non-fatal signal. Relationship upserts keep at most one row per unordered
// (topic pair, type) key, always the highest strength seen.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"noesis/internal/logging"
	"noesis/internal/types"
)

// ErrDuplicate signals that an insert lost to an existing row with the same
// uniqueness key. Not an error condition for the caller.
var ErrDuplicate = errors.New("duplicate entry")

// Store wraps one SQLite database holding both knowledge items and topic
// relationships. Reads are concurrent; writes serialize on the mutex plus
// the uniqueness constraints, so a losing concurrent insert simply reports
// duplicate.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at path, creating directories and
// schema as needed. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Debugf(logging.CategoryStore, "failed to set busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Debugf(logging.CategoryStore, "failed to set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.Debugf(logging.CategoryStore, "failed to set synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Infof(logging.CategoryStore, "store opened at %s", path)
	return s, nil
}

func (s *Store) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS knowledge_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 1.0,
			quality_score REAL NOT NULL DEFAULT 0.5,
			content_hash TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_knowledge_topic ON knowledge_items(topic)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic1 TEXT NOT NULL,
			topic2 TEXT NOT NULL,
			relationship_type TEXT NOT NULL,
			strength REAL NOT NULL,
			confidence REAL NOT NULL,
			evidence TEXT NOT NULL DEFAULT '',
			pair_key TEXT NOT NULL UNIQUE,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rel_topic1 ON relationships(topic1)`,
		`CREATE INDEX IF NOT EXISTS idx_rel_topic2 ON relationships(topic2)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ComputeContentHash derives the dedup key for a knowledge item's content.
func ComputeContentHash(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(strings.ToLower(content))))
	return hex.EncodeToString(sum[:])
}

// =============================================================================
// KNOWLEDGE STORE
// =============================================================================

// Add inserts a knowledge item. Returns the row id, or ErrDuplicate when an
// item with identical content already exists.
func (s *Store) Add(ctx context.Context, item types.KnowledgeItem) (int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Add")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	hash := ComputeContentHash(item.Content)
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge_items (topic, title, content, source, url, confidence, quality_score, content_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Topic, item.Title, item.Content, item.Source, item.URL,
		item.Confidence, item.QualityScore, hash, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			logging.Debugf(logging.CategoryStore, "duplicate knowledge content for topic=%q", item.Topic)
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to insert knowledge item: %w", err)
	}
	return res.LastInsertId()
}

// Search finds knowledge items by case-insensitive substring match over
// topic, title, and content. topic narrows the search when non-empty;
// minConfidence filters low-confidence items; limit <= 0 means 20.
func (s *Store) Search(ctx context.Context, query, topic string, limit int, minConfidence float64) ([]types.KnowledgeItem, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Search")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	like := "%" + strings.ToLower(query) + "%"

	var (
		rows *sql.Rows
		err  error
	)
	if topic != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT topic, title, content, source, url, confidence, quality_score, created_at
			 FROM knowledge_items
			 WHERE lower(topic) LIKE ? AND (lower(title) LIKE ? OR lower(content) LIKE ? OR lower(topic) LIKE ?)
			   AND confidence >= ?
			 ORDER BY confidence DESC, id ASC LIMIT ?`,
			"%"+strings.ToLower(topic)+"%", like, like, like, minConfidence, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT topic, title, content, source, url, confidence, quality_score, created_at
			 FROM knowledge_items
			 WHERE (lower(title) LIKE ? OR lower(content) LIKE ? OR lower(topic) LIKE ?)
			   AND confidence >= ?
			 ORDER BY confidence DESC, id ASC LIMIT ?`,
			like, like, like, minConfidence, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("knowledge search failed: %w", err)
	}
	defer rows.Close()

	var items []types.KnowledgeItem
	for rows.Next() {
		var it types.KnowledgeItem
		if err := rows.Scan(&it.Topic, &it.Title, &it.Content, &it.Source, &it.URL,
			&it.Confidence, &it.QualityScore, &it.CreatedAt); err != nil {
			logging.Warnf(logging.CategoryStore, "knowledge row scan failed: %v", err)
			continue
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Count returns the number of stored knowledge items.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM knowledge_items`).Scan(&n)
	return n, err
}

// Recent returns the most recently added knowledge items.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.KnowledgeItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic, title, content, source, url, confidence, quality_score, created_at
		 FROM knowledge_items ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []types.KnowledgeItem
	for rows.Next() {
		var it types.KnowledgeItem
		if err := rows.Scan(&it.Topic, &it.Title, &it.Content, &it.Source, &it.URL,
			&it.Confidence, &it.QualityScore, &it.CreatedAt); err != nil {
			continue
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// =============================================================================
// RELATIONSHIP STORE
// =============================================================================

// Upsert stores a relationship keyed by the unordered topic pair plus type.
// An existing row is only replaced when the new strength is higher.
func (s *Store) Upsert(ctx context.Context, rel types.Relationship) error {
	timer := logging.StartTimer(logging.CategoryStore, "Upsert")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relationships (topic1, topic2, relationship_type, strength, confidence, evidence, pair_key, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(pair_key) DO UPDATE SET
			topic1 = excluded.topic1,
			topic2 = excluded.topic2,
			strength = excluded.strength,
			confidence = excluded.confidence,
			evidence = excluded.evidence,
			updated_at = CURRENT_TIMESTAMP
		 WHERE excluded.strength > relationships.strength`,
		rel.Topic1, rel.Topic2, string(rel.Type), rel.Strength, rel.Confidence, rel.Evidence, rel.PairKey(),
	)
	if err != nil {
		return fmt.Errorf("relationship upsert failed: %w", err)
	}
	return nil
}

// Get returns stored relationships touching topic, optionally filtered by
// type (empty rtype means all types).
func (s *Store) Get(ctx context.Context, topic string, rtype types.RelationshipType) ([]types.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := `SELECT topic1, topic2, relationship_type, strength, confidence, evidence
	      FROM relationships WHERE (lower(topic1) = ? OR lower(topic2) = ?)`
	args := []interface{}{strings.ToLower(topic), strings.ToLower(topic)}
	if rtype != "" {
		q += ` AND relationship_type = ?`
		args = append(args, string(rtype))
	}
	q += ` ORDER BY strength DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("relationship query failed: %w", err)
	}
	defer rows.Close()

	var rels []types.Relationship
	for rows.Next() {
		var r types.Relationship
		var rt string
		if err := rows.Scan(&r.Topic1, &r.Topic2, &rt, &r.Strength, &r.Confidence, &r.Evidence); err != nil {
			logging.Warnf(logging.CategoryStore, "relationship row scan failed: %v", err)
			continue
		}
		r.Type = types.RelationshipType(rt)
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
