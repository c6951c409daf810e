package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteJournal persists records in a single SQLite database.
// WAL mode keeps session loops from blocking each other on append.
type SQLiteJournal struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the journal database and initializes the schema.
func OpenSQLite(path string) (*SQLiteJournal, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	j := &SQLiteJournal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commits (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id   TEXT NOT NULL,
		version      INTEGER NOT NULL,
		piece_id     TEXT NOT NULL,
		kind         TEXT NOT NULL,
		result       TEXT NOT NULL,
		committed_at INTEGER NOT NULL,
		UNIQUE (session_id, version)
	);

	CREATE INDEX IF NOT EXISTS idx_commits_session ON commits(session_id, version);
	`
	_, err := j.db.Exec(schema)
	return err
}

func (j *SQLiteJournal) Append(ctx context.Context, rec Record) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO commits (session_id, version, piece_id, kind, result, committed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Version, rec.PieceID, rec.Kind, rec.Result, rec.CommittedAt,
	)
	if err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Tail(ctx context.Context, sessionID string, n int) ([]Record, error) {
	if n <= 0 {
		n = -1 // no LIMIT
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT session_id, version, piece_id, kind, result, committed_at
		 FROM (SELECT * FROM commits WHERE session_id = ? ORDER BY version DESC LIMIT ?)
		 ORDER BY version ASC`,
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: tail: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.SessionID, &rec.Version, &rec.PieceID, &rec.Kind, &rec.Result, &rec.CommittedAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Len(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM commits WHERE session_id = ?`, sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("journal: len: %w", err)
	}
	return n, nil
}

func (j *SQLiteJournal) Close() error { return j.db.Close() }

var _ Journal = (*SQLiteJournal)(nil)
