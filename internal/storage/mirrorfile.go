// Copyright 2025 MediaMirror Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	_ "github.com/tursodatabase/go-libsql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Store is the SQLite-backed change-tracking store for one mirror.
// Construction failures (connection, schema init) are fatal; per-record
// write failures propagate to the caller.
type Store struct {
	path string
	db   *sql.DB
	bun  *bun.DB
}

// execPragma runs a PRAGMA statement using Query (not Exec) because libsql
// returns rows for PRAGMA statements. The result rows are drained and closed.
func execPragma(db *sql.DB, pragma string) error {
	rows, err := db.Query(pragma)
	if err != nil {
		return err
	}
	rows.Close()
	return nil
}

// applyPragmas sets essential PRAGMAs after opening a libsql connection.
// libsql ignores DSN-based _pragma=value parameters, so all PRAGMAs must be
// set explicitly via SQL statements after the connection is opened.
func applyPragmas(db *sql.DB) error {
	// Busy timeout MUST be set first — all subsequent PRAGMAs (especially
	// journal_mode=WAL which needs exclusive access) will wait for locks
	// instead of failing immediately with "database is locked".
	if err := execPragma(db, fmt.Sprintf("PRAGMA busy_timeout = %d", GetBusyTimeout())); err != nil {
		return fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	// WAL mode: enables concurrent readers during writes.
	if err := execPragma(db, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to set journal_mode=WAL: %w", err)
	}

	// synchronous=NORMAL: WAL mode with NORMAL sync is safe against process
	// crashes. Avoids fsync on every commit.
	if err := execPragma(db, "PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous=NORMAL: %w", err)
	}

	// Foreign keys hold at every commit boundary (asset_file -> asset/file,
	// album -> album_folder).
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return nil
}

// Create creates a new mirror database at path.
func Create(path string) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("file already exists: %s", path)
	}

	db, err := sql.Open("libsql", BuildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		os.Remove(path)
		return nil, err
	}

	// Create schema (execute statements individually for libsql compatibility)
	if err := execStatements(db, mirrorSchema); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// Seed enums, schema info and the synthetic root folder
	if err := execStatements(db, initMirror, SchemaVersion); err != nil {
		db.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to seed schema: %w", err)
	}

	return &Store{
		path: path,
		db:   db,
		bun:  bun.NewDB(db, sqlitedialect.New()),
	}, nil
}

// Open opens an existing mirror database.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	db, err := sql.Open("libsql", BuildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	// Re-run schema + seeds: every statement is IF NOT EXISTS / OR IGNORE,
	// which doubles as the migration path for additive schema changes.
	if err := execStatements(db, mirrorSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := execStatements(db, initMirror, SchemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed schema: %w", err)
	}

	s := &Store{
		path: path,
		db:   db,
		bun:  bun.NewDB(db, sqlitedialect.New()),
	}

	// Verify it's a mirror database
	fileType, err := s.getSchemaInfo(context.Background(), "type")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to read schema info: %w", err)
	}
	if fileType != "mirror" {
		db.Close()
		return nil, fmt.Errorf("not a mirror database (type=%s)", fileType)
	}

	return s, nil
}

// OpenOrCreate opens path, creating the database on first use.
func OpenOrCreate(path string) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Create(path)
	}
	return Open(path)
}

// Close closes the database connection and cleans up WAL files.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	// Checkpoint WAL to merge all transactions into the main database.
	// PRAGMA wal_checkpoint returns rows, so Query() not Exec().
	rows, err := s.db.Query("PRAGMA wal_checkpoint(TRUNCATE)")
	if err != nil {
		log.Warnf("[store] WAL checkpoint failed: %v", err)
	} else {
		rows.Close()
	}

	if err := s.db.Close(); err != nil {
		return err
	}

	os.Remove(s.path + "-wal") // Ignore errors - files may not exist
	os.Remove(s.path + "-shm")
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying sql.DB (used by tests)
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) getSchemaInfo(ctx context.Context, key string) (string, error) {
	var info SchemaInfoModel
	err := s.bun.NewSelect().Model(&info).Where("key = ?", key).Scan(ctx)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return info.Value, nil
}
