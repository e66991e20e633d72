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
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const SchemaVersion = "1"

// Default busy_timeout in milliseconds (30 seconds)
const DefaultBusyTimeout = 30000

// EnvBusyTimeout overrides the SQLite busy_timeout for all connections.
const EnvBusyTimeout = "MEDIAMIRROR_BUSY_TIMEOUT"

// GetBusyTimeout returns the busy_timeout value in milliseconds.
// Priority: env var > default.
func GetBusyTimeout() int {
	if val := os.Getenv(EnvBusyTimeout); val != "" {
		if timeout, err := strconv.Atoi(val); err == nil && timeout > 0 {
			return timeout
		}
	}
	return DefaultBusyTimeout
}

// BuildDSN builds the SQLite DSN for the mirror database.
func BuildDSN(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=%d", path, GetBusyTimeout())
}

// Schema SQL for the mirror database
const mirrorSchema = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Fixed enumerations (seeded below, append-only)
CREATE TABLE IF NOT EXISTS asset_type (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS library_type (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS file_type (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS album_type (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

-- Append-only name -> surrogate-id lookup tables
CREATE TABLE IF NOT EXISTS country (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS city (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

-- One logical media item; soft-deleted when no longer observed upstream
CREATE TABLE IF NOT EXISTS asset (
    id TEXT PRIMARY KEY,
    asset_type_id INTEGER NOT NULL REFERENCES asset_type(id),
    asset_library_id INTEGER NOT NULL REFERENCES library_type(id),
    created_at INTEGER,
    updated_at INTEGER,
    imported_at INTEGER NOT NULL,
    is_favourite INTEGER NOT NULL DEFAULT 0,
    geo_lat REAL,
    geo_long REAL,
    score REAL,
    country_id INTEGER REFERENCES country(id),
    city_id INTEGER REFERENCES city(id),
    is_deleted INTEGER NOT NULL DEFAULT 0,
    deleted_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_asset_deleted ON asset(is_deleted, deleted_at);

-- One physical resource; identity string is deterministic (see sync package)
CREATE TABLE IF NOT EXISTS file (
    id TEXT PRIMARY KEY,
    file_type_id INTEGER NOT NULL REFERENCES file_type(id),
    original_file_name TEXT NOT NULL,
    file_size INTEGER NOT NULL,
    imported_at INTEGER NOT NULL,
    imported_file_dir TEXT NOT NULL,
    imported_file_name TEXT NOT NULL,
    was_copied INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_file_copied ON file(was_copied);

-- Many-to-many link with its own tombstone lifecycle
CREATE TABLE IF NOT EXISTS asset_file (
    asset_id TEXT NOT NULL REFERENCES asset(id),
    file_id TEXT NOT NULL REFERENCES file(id),
    is_deleted INTEGER NOT NULL DEFAULT 0,
    deleted_at INTEGER,
    PRIMARY KEY (asset_id, file_id)
);

CREATE INDEX IF NOT EXISTS idx_asset_file_file ON asset_file(file_id, is_deleted);

-- Folder tree; the synthetic root row has parent_id NULL
CREATE TABLE IF NOT EXISTS album_folder (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    parent_id TEXT REFERENCES album_folder(id)
);

CREATE INDEX IF NOT EXISTS idx_album_folder_parent ON album_folder(parent_id);

-- Album membership is a denormalized JSON array of asset ids
CREATE TABLE IF NOT EXISTS album (
    id TEXT PRIMARY KEY,
    album_type_id INTEGER NOT NULL REFERENCES album_type(id),
    album_folder_id TEXT NOT NULL REFERENCES album_folder(id),
    name TEXT NOT NULL,
    asset_ids TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_album_folder ON album(album_folder_id);

-- Append-only run history; rows are never mutated after insert
CREATE TABLE IF NOT EXISTS export_result_history (
    id TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    export_result TEXT NOT NULL,
    asset_count INTEGER NOT NULL DEFAULT 0,
    file_count INTEGER NOT NULL DEFAULT 0,
    album_count INTEGER NOT NULL DEFAULT 0,
    folder_count INTEGER NOT NULL DEFAULT 0,
    file_size_total INTEGER NOT NULL DEFAULT 0,
    run_time INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_history_created ON export_result_history(created_at DESC);
`

// RootFolderID is the id of the synthetic root folder row. It matches
// source.RootFolderID so the collection walk and the store agree.
const RootFolderID = "root"

// Initial data: schema info, enum seeds and the synthetic root folder
const initMirror = `
INSERT OR IGNORE INTO schema_info (key, value) VALUES ('version', ?);
INSERT OR IGNORE INTO schema_info (key, value) VALUES ('type', 'mirror');
INSERT OR IGNORE INTO schema_info (key, value) VALUES ('created_at', datetime('now'));

INSERT OR IGNORE INTO asset_type (id, name) VALUES (1, 'image');
INSERT OR IGNORE INTO asset_type (id, name) VALUES (2, 'video');
INSERT OR IGNORE INTO asset_type (id, name) VALUES (3, 'audio');

INSERT OR IGNORE INTO library_type (id, name) VALUES (1, 'personal');
INSERT OR IGNORE INTO library_type (id, name) VALUES (2, 'shared-library');
INSERT OR IGNORE INTO library_type (id, name) VALUES (3, 'shared-album');

INSERT OR IGNORE INTO file_type (id, name) VALUES (1, 'original-image');
INSERT OR IGNORE INTO file_type (id, name) VALUES (2, 'edited-image');
INSERT OR IGNORE INTO file_type (id, name) VALUES (3, 'original-video');
INSERT OR IGNORE INTO file_type (id, name) VALUES (4, 'edited-video');
INSERT OR IGNORE INTO file_type (id, name) VALUES (5, 'original-audio');
INSERT OR IGNORE INTO file_type (id, name) VALUES (6, 'edited-audio');
INSERT OR IGNORE INTO file_type (id, name) VALUES (7, 'live-video');

INSERT OR IGNORE INTO album_type (id, name) VALUES (1, 'user');
INSERT OR IGNORE INTO album_type (id, name) VALUES (2, 'shared');

INSERT OR IGNORE INTO album_folder (id, name, parent_id) VALUES ('root', '', NULL);
`

// execStatements executes multiple SQL statements separated by semicolons.
// libsql driver doesn't support multi-statement Exec, so we split and execute individually.
func execStatements(db *sql.DB, sqlScript string, args ...interface{}) error {
	statements := splitStatements(sqlScript)
	argIdx := 0
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		// Count placeholders in this statement
		placeholders := strings.Count(stmt, "?")
		stmtArgs := args[argIdx : argIdx+placeholders]
		argIdx += placeholders
		if _, err := db.Exec(stmt, stmtArgs...); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements splits a SQL script into individual statements
func splitStatements(script string) []string {
	var statements []string
	var current strings.Builder

	lines := strings.Split(script, "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		// Skip comments and empty lines
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	// Handle any remaining content
	if current.Len() > 0 {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
