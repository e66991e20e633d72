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
	"time"

	"github.com/google/uuid"

	"mediamirror/internal/common"
)

// InsertHistoryEntry appends one run record. The id is assigned here and
// the row is never mutated afterwards.
func (s *Store) InsertHistoryEntry(ctx context.Context, e *HistoryEntry) (string, error) {
	id := uuid.NewString()
	m := &HistoryModel{
		ID:            id,
		CreatedAt:     e.CreatedAt.Unix(),
		ExportResult:  e.ExportResult,
		AssetCount:    e.AssetCount,
		FileCount:     e.FileCount,
		AlbumCount:    e.AlbumCount,
		FolderCount:   e.FolderCount,
		FileSizeTotal: e.FileSizeTotal,
		RunTimeMillis: e.RunTime.Milliseconds(),
	}
	if _, err := s.bun.NewInsert().Model(m).Exec(ctx); err != nil {
		return "", fmt.Errorf("insert history entry: %w", err)
	}
	return id, nil
}

// LatestHistoryEntry returns the most recent run record, or
// common.ErrNotFound when no run has completed yet.
func (s *Store) LatestHistoryEntry(ctx context.Context) (*HistoryEntry, error) {
	m := new(HistoryModel)
	err := s.bun.NewSelect().Model(m).
		Order("created_at DESC").
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest history entry: %w", err)
	}
	return m.ToHistoryEntry(), nil
}

// ListHistoryEntries returns run records newest-first.
func (s *Store) ListHistoryEntries(ctx context.Context, limit, offset int) ([]*HistoryEntry, error) {
	var models []HistoryModel
	q := s.bun.NewSelect().Model(&models).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	entries := make([]*HistoryEntry, len(models))
	for i := range models {
		entries[i] = models[i].ToHistoryEntry()
	}
	return entries, nil
}

// NewHistoryEntry builds an unsaved entry stamped with now.
func NewHistoryEntry(resultJSON string, counts MirrorCounts, runTime time.Duration, now time.Time) *HistoryEntry {
	return &HistoryEntry{
		CreatedAt:     now,
		ExportResult:  resultJSON,
		AssetCount:    counts.Assets,
		FileCount:     counts.Files,
		AlbumCount:    counts.Albums,
		FolderCount:   counts.Folders,
		FileSizeTotal: counts.FileSizeTotal,
		RunTime:       runTime,
	}
}
