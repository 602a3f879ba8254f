package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/switchboard-dev/switchboard/pkg/models"
)

// SQLiteStore persists conversations in an SQLite database. WAL mode is
// enabled for concurrent reads; append+trim runs in one transaction so the
// per-triple serialization contract holds across processes.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// sqliteDSN builds the connection string. Pragmas ride the DSN so every
// pooled connection carries them. Transactions start immediate: the
// append transaction reads MAX(seq) before writing, and a deferred
// transaction's read snapshot cannot upgrade to a write lock under WAL,
// so concurrent same-triple appends would fail with SQLITE_BUSY instead
// of queueing on the busy timeout.
func sqliteDSN(path string) string {
	return "file:" + path +
		"?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)"
}

// OpenSQLite opens (creating if needed) the history database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *SQLiteStore) Path() string {
	return s.path
}

// migrate applies all pending schema migrations.
func (s *SQLiteStore) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Exchanges},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Exchanges = `
CREATE TABLE IF NOT EXISTS exchanges (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	agent_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	user_message TEXT NOT NULL,
	agent_message TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_exchanges_triple
	ON exchanges(user_id, session_id, agent_id, seq);
`

// LoadRecent implements Store.
func (s *SQLiteStore) LoadRecent(ctx context.Context, userID, sessionID, agentID string, maxPairs int) ([]models.Message, error) {
	maxPairs = normalizeMaxPairs(maxPairs)

	rows, err := s.conn.QueryContext(ctx, `
		SELECT user_message, agent_message FROM (
			SELECT seq, user_message, agent_message
			FROM exchanges
			WHERE user_id = ? AND session_id = ? AND agent_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`, userID, sessionID, agentID, maxPairs)
	if err != nil {
		return nil, fmt.Errorf("%w: load recent: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var userJSON, agentJSON string
		if err := rows.Scan(&userJSON, &agentJSON); err != nil {
			return nil, fmt.Errorf("%w: scan exchange: %v", ErrStorageUnavailable, err)
		}
		userMsg, err := decodeMessage(userJSON)
		if err != nil {
			return nil, err
		}
		agentMsg, err := decodeMessage(agentJSON)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, userMsg, agentMsg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate exchanges: %v", ErrStorageUnavailable, err)
	}
	return msgs, nil
}

// AppendExchange implements Store.
func (s *SQLiteStore) AppendExchange(ctx context.Context, userID, sessionID, agentID string, userMsg, agentMsg models.Message, maxPairs int) error {
	if err := validatePair(userMsg, agentMsg); err != nil {
		return err
	}
	maxPairs = normalizeMaxPairs(maxPairs)

	userJSON, err := json.Marshal(userMsg)
	if err != nil {
		return fmt.Errorf("encode user message: %w", err)
	}
	agentJSON, err := json.Marshal(agentMsg)
	if err != nil {
		return fmt.Errorf("encode agent message: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrStorageUnavailable, err)
	}
	defer tx.Rollback()

	var nextSeq int64
	row := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) + 1 FROM exchanges
		WHERE user_id = ? AND session_id = ? AND agent_id = ?
	`, userID, sessionID, agentID)
	if err := row.Scan(&nextSeq); err != nil {
		return fmt.Errorf("%w: next sequence: %v", ErrStorageUnavailable, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO exchanges (id, user_id, session_id, agent_id, seq, user_message, agent_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), userID, sessionID, agentID, nextSeq, string(userJSON), string(agentJSON))
	if err != nil {
		return fmt.Errorf("%w: insert exchange: %v", ErrStorageUnavailable, err)
	}

	// Trim to the newest maxPairs pairs.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM exchanges
		WHERE user_id = ? AND session_id = ? AND agent_id = ?
		AND seq <= ? - ?
	`, userID, sessionID, agentID, nextSeq, maxPairs)
	if err != nil {
		return fmt.Errorf("%w: trim exchanges: %v", ErrStorageUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit exchange: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func decodeMessage(raw string) (models.Message, error) {
	var m models.Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return models.Message{}, fmt.Errorf("%w: decode message: %v", ErrStorageUnavailable, err)
	}
	return m, nil
}
