package storage

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"upsse/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  store TEXT NOT NULL,
  batchDate TEXT,
  countsJson TEXT NOT NULL,
  outputRef TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_store ON runs(store);
CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);

CREATE TABLE IF NOT EXISTS warnings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  sourceRow INTEGER NOT NULL,
  field TEXT NOT NULL,
  message TEXT NOT NULL,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_warnings_runId ON warnings(runId);
`

	_, err := d.conn.Exec(schema)
	return err
}

// InsertRun journals one processing run and its extraction warnings,
// returning the generated run id.
func (d *DB) InsertRun(kind, store, batchDate string, counts map[string]int, outputRef string, warnings []internal.Warning) (string, error) {
	countsJSON, _ := json.Marshal(counts)
	runID := uuid.NewString()

	tx, err := d.conn.Begin()
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO runs (id, kind, store, batchDate, countsJson, outputRef)
VALUES (?, ?, ?, ?, ?, ?)
`, runID, kind, store, batchDate, string(countsJSON), outputRef); err != nil {
		return "", err
	}

	if len(warnings) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO warnings (runId, sourceRow, field, message) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return "", err
		}
		defer stmt.Close()
		for _, w := range warnings {
			if _, err := stmt.Exec(runID, w.Row, w.Field, w.Message); err != nil {
				return "", err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, kind, store, batchDate, countsJson, outputRef, createdAt
FROM runs ORDER BY createdAt DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var countsJSON string
		var batchDate, outputRef sql.NullString
		if err := rows.Scan(&row.ID, &row.Kind, &row.Store, &batchDate, &countsJSON, &outputRef, &row.CreatedAt); err != nil {
			return nil, err
		}
		row.BatchDate = batchDate.String
		row.OutputRef = outputRef.String
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		out = append(out, row)
	}

	return out, rows.Err()
}

func (d *DB) GetWarnings(runID string) ([]internal.Warning, error) {
	rows, err := d.conn.Query(`
SELECT sourceRow, field, message FROM warnings WHERE runId = ? ORDER BY sourceRow ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Warning
	for rows.Next() {
		var w internal.Warning
		if err := rows.Scan(&w.Row, &w.Field, &w.Message); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
