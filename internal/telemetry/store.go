package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// zeroResultRetention is the number of zero-result keywords kept on disk.
const zeroResultRetention = 100

// SQLiteMetricsStore implements QueryMetricsStore using SQLite.
// Writes take an exclusive file lock so a CLI run and a server sharing one
// database do not interleave transactions.
type SQLiteMetricsStore struct {
	db   *sql.DB
	lock *flock.Flock
	owns bool
}

// OpenSQLiteMetricsStore opens (creating if needed) the database at path and
// initialises its schema.
func OpenSQLiteMetricsStore(path string) (*SQLiteMetricsStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create telemetry directory: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := InitTelemetrySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteMetricsStore{db: db, lock: flock.New(path + ".lock"), owns: true}, nil
}

// NewSQLiteMetricsStore wraps an existing connection. The caller keeps
// ownership of db.
func NewSQLiteMetricsStore(db *sql.DB) (*SQLiteMetricsStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLiteMetricsStore{db: db}, nil
}

// InitTelemetrySchema creates the telemetry tables if they don't exist.
func InitTelemetrySchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS operation_stats (
		date TEXT NOT NULL,
		operation TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, operation)
	);

	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// withLock runs fn holding the cross-process write lock, if any.
func (s *SQLiteMetricsStore) withLock(fn func() error) error {
	if s.lock == nil {
		return fn()
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire telemetry lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

// upsert runs one statement per row inside a transaction.
func (s *SQLiteMetricsStore) upsert(query string, rows func(tx *sql.Tx, stmt *sql.Stmt) error) error {
	return s.withLock(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.Prepare(query)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		if err := rows(tx, stmt); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// SaveOperationCounts adds daily operation counts.
func (s *SQLiteMetricsStore) SaveOperationCounts(date string, counts map[Operation]int64) error {
	return s.upsert(`
		INSERT INTO operation_stats (date, operation, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, operation) DO UPDATE SET count = count + excluded.count
	`, func(_ *sql.Tx, stmt *sql.Stmt) error {
		for op, count := range counts {
			if _, err := stmt.Exec(date, string(op), count); err != nil {
				return fmt.Errorf("insert operation count: %w", err)
			}
		}
		return nil
	})
}

// GetOperationCounts sums counts over [from, to].
func (s *SQLiteMetricsStore) GetOperationCounts(from, to string) (map[Operation]int64, error) {
	rows, err := s.db.Query(`
		SELECT operation, SUM(count) AS total
		FROM operation_stats
		WHERE date >= ? AND date <= ?
		GROUP BY operation
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query operation counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Operation]int64)
	for rows.Next() {
		var op string
		var count int64
		if err := rows.Scan(&op, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[Operation(op)] = count
	}
	return counts, rows.Err()
}

// UpsertTermCounts adds to term frequency counts.
func (s *SQLiteMetricsStore) UpsertTermCounts(terms map[string]int64) error {
	if len(terms) == 0 {
		return nil
	}
	return s.upsert(`
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = CURRENT_TIMESTAMP
	`, func(_ *sql.Tx, stmt *sql.Stmt) error {
		for term, count := range terms {
			if _, err := stmt.Exec(term, count); err != nil {
				return fmt.Errorf("upsert term count: %w", err)
			}
		}
		return nil
	})
}

// GetTopTerms retrieves the top N terms by frequency.
func (s *SQLiteMetricsStore) GetTopTerms(limit int) ([]TermCount, error) {
	rows, err := s.db.Query(`
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC, term ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// AddZeroResultQueries appends keywords and trims the table to the most
// recent entries.
func (s *SQLiteMetricsStore) AddZeroResultQueries(queries []string, timestamp time.Time) error {
	if len(queries) == 0 {
		return nil
	}
	return s.upsert(`INSERT INTO zero_result_queries (query, timestamp) VALUES (?, ?)`,
		func(tx *sql.Tx, stmt *sql.Stmt) error {
			for _, q := range queries {
				if _, err := stmt.Exec(q, timestamp); err != nil {
					return fmt.Errorf("insert zero-result query: %w", err)
				}
			}
			if _, err := tx.Exec(`
				DELETE FROM zero_result_queries
				WHERE id NOT IN (
					SELECT id FROM zero_result_queries
					ORDER BY id DESC
					LIMIT ?
				)
			`, zeroResultRetention); err != nil {
				return fmt.Errorf("trim zero-result queries: %w", err)
			}
			return nil
		})
}

// GetZeroResultQueries retrieves recent zero-result keywords, newest first.
func (s *SQLiteMetricsStore) GetZeroResultQueries(limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT query
		FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// SaveLatencyCounts adds daily latency histogram counts.
func (s *SQLiteMetricsStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	return s.upsert(`
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
	`, func(_ *sql.Tx, stmt *sql.Stmt) error {
		for bucket, count := range counts {
			if _, err := stmt.Exec(date, string(bucket), count); err != nil {
				return fmt.Errorf("insert latency count: %w", err)
			}
		}
		return nil
	})
}

// GetLatencyCounts sums the latency distribution over [from, to].
func (s *SQLiteMetricsStore) GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	rows, err := s.db.Query(`
		SELECT bucket, SUM(count) AS total
		FROM query_latency_stats
		WHERE date >= ? AND date <= ?
		GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query latency counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[LatencyBucket]int64)
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[LatencyBucket(bucket)] = count
	}
	return counts, rows.Err()
}

// Close closes the database when the store opened it.
func (s *SQLiteMetricsStore) Close() error {
	if !s.owns {
		return nil
	}
	return s.db.Close()
}
