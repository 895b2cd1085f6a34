package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"ptrun/internal/config"
)

const createTableQuery = "CREATE TABLE IF NOT EXISTS test_runs (" +
	"id CHAR(36) NOT NULL PRIMARY KEY, " +
	"started_at DATETIME(3) NOT NULL, " +
	"finished_at DATETIME(3) NOT NULL, " +
	"transport VARCHAR(32) NOT NULL, " +
	"run_status VARCHAR(16) NOT NULL, " +
	"snapshot JSON NOT NULL, " +
	"log MEDIUMTEXT NOT NULL, " +
	"KEY idx_test_runs_started_at (started_at))"

const (
	databaseExistsQuery = "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
	insertRunQuery      = "INSERT INTO test_runs (id, started_at, finished_at, transport, run_status, snapshot, log) VALUES (?, ?, ?, ?, ?, ?, ?)"
	pruneRunsQuery      = "DELETE FROM test_runs WHERE id NOT IN (SELECT id FROM (SELECT id FROM test_runs ORDER BY started_at DESC LIMIT ?) AS keep_runs)"
	listRunsQuery       = "SELECT id, started_at, finished_at, transport, snapshot, log FROM test_runs ORDER BY started_at DESC LIMIT ?"
)

// MySQLStorage keeps the run history in a MySQL table
type MySQLStorage struct {
	db    *sql.DB
	limit int
}

// NewMySQLStorage connects to the configured server, creating the
// database and the test_runs table when they are missing.
func NewMySQLStorage(cfg *config.Config) (*MySQLStorage, error) {
	name := cfg.Database.Name
	if !isValidDatabaseName(name) {
		return nil, fmt.Errorf("invalid database name: %s", name)
	}

	server, err := sql.Open("mysql", cfg.GetDSN(false))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database server: %w", err)
	}
	defer server.Close()

	if err := server.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database server: %w", err)
	}
	if err := ensureDatabase(server, name); err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", cfg.GetDSN(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", name, err)
	}
	s := newMySQLStorage(db, cfg.HistoryLimit)
	if err := s.ensureTable(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newMySQLStorage(db *sql.DB, limit int) *MySQLStorage {
	return &MySQLStorage{db: db, limit: limit}
}

// Save inserts record and drops runs beyond the history limit
func (s *MySQLStorage) Save(record RunRecord) error {
	snapshot, err := json.Marshal(record.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.Exec(insertRunQuery,
		record.ID.String(),
		record.StartedAt.UTC(),
		record.FinishedAt.UTC(),
		record.Transport,
		string(record.Snapshot.RunStatus),
		snapshot,
		record.Log,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", record.ID, err)
	}

	if s.limit > 0 {
		if _, err := s.db.Exec(pruneRunsQuery, s.limit); err != nil {
			return fmt.Errorf("prune runs: %w", err)
		}
	}
	return nil
}

func (s *MySQLStorage) Latest() (*RunRecord, error) {
	runs, err := s.List(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[0], nil
}

// List returns up to limit runs; limit <= 0 falls back to the history limit.
func (s *MySQLStorage) List(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = s.limit
	}
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}

	rows, err := s.db.Query(listRunsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			rec      RunRecord
			id       string
			snapshot []byte
		)
		if err := rows.Scan(&id, &rec.StartedAt, &rec.FinishedAt, &rec.Transport, &snapshot, &rec.Log); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse run id %q: %w", id, err)
		}
		if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("parse snapshot of run %s: %w", id, err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

func (s *MySQLStorage) Close() error {
	return s.db.Close()
}

func (s *MySQLStorage) ensureTable() error {
	if _, err := s.db.Exec(createTableQuery); err != nil {
		return fmt.Errorf("create test_runs table: %w", err)
	}
	return nil
}

func ensureDatabase(db *sql.DB, name string) error {
	var exists bool
	if err := db.QueryRow(databaseExistsQuery, name).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check database %s: %w", name, err)
	}
	if exists {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}
	return nil
}

// isValidDatabaseName rejects names that could break out of the quoted identifier
func isValidDatabaseName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	invalid := []string{"'", "\"", "`", ";", "--", "/*", "*/", "DROP", "DELETE", "TRUNCATE"}
	upper := strings.ToUpper(name)
	for _, s := range invalid {
		if strings.Contains(upper, s) {
			return false
		}
	}
	return true
}
