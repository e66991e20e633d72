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

	"github.com/uptrace/bun"

	"mediamirror/internal/common"
)

// --- Id-set snapshots (reconciliation baselines) ---

// LiveAssetIDs returns the set of non-deleted asset ids.
func (s *Store) LiveAssetIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	err := s.bun.NewSelect().Model((*AssetModel)(nil)).
		Column("id").
		Where("is_deleted = 0").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("live asset ids: %w", err)
	}
	return toSet(ids), nil
}

// LiveFileIDs returns the set of file ids that still have at least one
// live asset_file link.
func (s *Store) LiveFileIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	err := s.bun.NewSelect().Model((*AssetFileModel)(nil)).
		ColumnExpr("DISTINCT file_id").
		Where("is_deleted = 0").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("live file ids: %w", err)
	}
	return toSet(ids), nil
}

// AllFolderIDs returns every folder id, including the synthetic root.
func (s *Store) AllFolderIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	err := s.bun.NewSelect().Model((*FolderModel)(nil)).Column("id").Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("folder ids: %w", err)
	}
	return toSet(ids), nil
}

// AllAlbumIDs returns every album id.
func (s *Store) AllAlbumIDs(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	err := s.bun.NewSelect().Model((*AlbumModel)(nil)).Column("id").Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("album ids: %w", err)
	}
	return toSet(ids), nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// --- Single-row getters ---

// GetAsset returns one asset or common.ErrNotFound.
func (s *Store) GetAsset(ctx context.Context, id string) (*Asset, error) {
	m := new(AssetModel)
	err := s.bun.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	return m.ToAsset(), nil
}

// GetFile returns one file or common.ErrNotFound.
func (s *Store) GetFile(ctx context.Context, id string) (*File, error) {
	m := new(FileModel)
	err := s.bun.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return m.ToFile(), nil
}

// GetAssetFile returns one link or common.ErrNotFound.
func (s *Store) GetAssetFile(ctx context.Context, assetID, fileID string) (*AssetFile, error) {
	m := new(AssetFileModel)
	err := s.bun.NewSelect().Model(m).
		Where("asset_id = ?", assetID).
		Where("file_id = ?", fileID).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get asset_file %s/%s: %w", assetID, fileID, err)
	}
	return m.ToAssetFile(), nil
}

// GetFolder returns one folder or common.ErrNotFound.
func (s *Store) GetFolder(ctx context.Context, id string) (*Folder, error) {
	m := new(FolderModel)
	err := s.bun.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get folder %s: %w", id, err)
	}
	return m.ToFolder(), nil
}

// GetAlbum returns one album or common.ErrNotFound.
func (s *Store) GetAlbum(ctx context.Context, id string) (*Album, error) {
	m := new(AlbumModel)
	err := s.bun.NewSelect().Model(m).Where("id = ?", id).Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get album %s: %w", id, err)
	}
	return m.ToAlbum(), nil
}

// --- Tree navigation ---

// FoldersByParent returns the child folders of parentID, name-ordered.
func (s *Store) FoldersByParent(ctx context.Context, parentID string) ([]*Folder, error) {
	var models []FolderModel
	err := s.bun.NewSelect().Model(&models).
		Where("parent_id = ?", parentID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("folders by parent %s: %w", parentID, err)
	}
	folders := make([]*Folder, len(models))
	for i := range models {
		folders[i] = models[i].ToFolder()
	}
	return folders, nil
}

// AlbumsInFolder returns the albums owned by folderID, name-ordered.
func (s *Store) AlbumsInFolder(ctx context.Context, folderID string) ([]*Album, error) {
	var models []AlbumModel
	err := s.bun.NewSelect().Model(&models).
		Where("album_folder_id = ?", folderID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("albums in folder %s: %w", folderID, err)
	}
	albums := make([]*Album, len(models))
	for i := range models {
		albums[i] = models[i].ToAlbum()
	}
	return albums, nil
}

// FilesForAlbum returns the distinct files referenced by the album's
// member assets through live links.
func (s *Store) FilesForAlbum(ctx context.Context, albumID string) ([]*File, error) {
	album, err := s.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}
	if len(album.AssetIDs) == 0 {
		return nil, nil
	}

	var models []FileModel
	err = s.bun.NewSelect().Model(&models).
		Where("id IN (SELECT DISTINCT file_id FROM asset_file WHERE is_deleted = 0 AND asset_id IN (?))", bun.In(album.AssetIDs)).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("files for album %s: %w", albumID, err)
	}
	files := make([]*File, len(models))
	for i := range models {
		files[i] = models[i].ToFile()
	}
	return files, nil
}

// --- Materializer queries ---

// FileNeedingCopy carries one uncopied file plus the asset ids still
// referencing it through live links.
type FileNeedingCopy struct {
	File     *File
	AssetIDs []string
}

// FilesNeedingCopy returns all uncopied files joined with their live
// links, grouped per file.
func (s *Store) FilesNeedingCopy(ctx context.Context) ([]*FileNeedingCopy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.file_type_id, f.original_file_name, f.file_size,
		       f.imported_at, f.imported_file_dir, f.imported_file_name, f.was_copied,
		       af.asset_id
		FROM file f
		JOIN asset_file af ON af.file_id = f.id AND af.is_deleted = 0
		WHERE f.was_copied = 0
		ORDER BY f.id, af.asset_id`)
	if err != nil {
		return nil, fmt.Errorf("files needing copy: %w", err)
	}
	defer rows.Close()

	var out []*FileNeedingCopy
	var cur *FileNeedingCopy
	for rows.Next() {
		var m FileModel
		var assetID string
		if err := rows.Scan(&m.ID, &m.FileTypeID, &m.OriginalFileName, &m.FileSize,
			&m.ImportedAt, &m.ImportedFileDir, &m.ImportedFileName, &m.WasCopied,
			&assetID); err != nil {
			return nil, fmt.Errorf("scan file needing copy: %w", err)
		}
		if cur == nil || cur.File.ID != m.ID {
			cur = &FileNeedingCopy{File: m.ToFile()}
			out = append(out, cur)
		}
		cur.AssetIDs = append(cur.AssetIDs, assetID)
	}
	return out, rows.Err()
}

// OrphanedFiles returns files with zero asset_file rows of any kind,
// live or tombstoned. Tombstoned links keep a file out of this set until
// the expiry purge removes them.
func (s *Store) OrphanedFiles(ctx context.Context) ([]*File, error) {
	var models []FileModel
	// bun aliases the outer table as file_model.
	err := s.bun.NewSelect().Model(&models).
		Where("NOT EXISTS (SELECT 1 FROM asset_file af WHERE af.file_id = file_model.id)").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("orphaned files: %w", err)
	}
	files := make([]*File, len(models))
	for i := range models {
		files[i] = models[i].ToFile()
	}
	return files, nil
}

// SetFileCopied marks one file as materialized.
func (s *Store) SetFileCopied(ctx context.Context, id string) error {
	_, err := s.bun.NewUpdate().Model((*FileModel)(nil)).
		Set("was_copied = 1").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set file %s copied: %w", id, err)
	}
	return nil
}

// --- Hard deletes ---

// DeleteFile removes one file row. Links must already be gone (FK).
func (s *Store) DeleteFile(ctx context.Context, id string) error {
	_, err := s.bun.NewDelete().Model((*FileModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", id, err)
	}
	return nil
}

// DeleteAlbum removes one album row.
func (s *Store) DeleteAlbum(ctx context.Context, id string) error {
	_, err := s.bun.NewDelete().Model((*AlbumModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete album %s: %w", id, err)
	}
	return nil
}

// DeleteFolders removes the given folder rows, children before parents
// so the self-referencing foreign key holds at each statement.
func (s *Store) DeleteFolders(ctx context.Context, ids []string) error {
	remaining := append([]string(nil), ids...)
	for len(remaining) > 0 {
		var kept []string
		progressed := false
		for _, id := range remaining {
			// bun aliases the outer table as folder_model.
			res, err := s.bun.NewDelete().Model((*FolderModel)(nil)).
				Where("id = ?", id).
				Where("NOT EXISTS (SELECT 1 FROM album_folder c WHERE c.parent_id = folder_model.id)").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("delete folder %s: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				progressed = true
			} else {
				kept = append(kept, id)
			}
		}
		if !progressed {
			return fmt.Errorf("delete folders: %d folders still referenced", len(kept))
		}
		remaining = kept
	}
	return nil
}

// --- Derived-view queries ---

// LocatedFile is one copied file with the creation date and resolved
// location of its earliest-referencing asset.
type LocatedFile struct {
	FileID           string
	ImportedFileDir  string
	ImportedFileName string
	TakenAt          time.Time
	Country          string
	City             string
}

// FilesWithLocation returns copied files whose earliest live referencing
// asset has a creation date and a resolved country and city.
func (s *Store) FilesWithLocation(ctx context.Context) ([]*LocatedFile, error) {
	// SQLite resolves the bare columns against the row that produced
	// MIN(a.created_at), so country/city belong to the earliest asset.
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.imported_file_dir, f.imported_file_name,
		       MIN(a.created_at) AS taken_at, c.name, ci.name
		FROM file f
		JOIN asset_file af ON af.file_id = f.id AND af.is_deleted = 0
		JOIN asset a ON a.id = af.asset_id AND a.is_deleted = 0
		JOIN country c ON c.id = a.country_id
		JOIN city ci ON ci.id = a.city_id
		WHERE f.was_copied = 1 AND a.created_at IS NOT NULL
		GROUP BY f.id
		ORDER BY f.id`)
	if err != nil {
		return nil, fmt.Errorf("files with location: %w", err)
	}
	defer rows.Close()

	var out []*LocatedFile
	for rows.Next() {
		var lf LocatedFile
		var takenAt int64
		if err := rows.Scan(&lf.FileID, &lf.ImportedFileDir, &lf.ImportedFileName,
			&takenAt, &lf.Country, &lf.City); err != nil {
			return nil, fmt.Errorf("scan located file: %w", err)
		}
		lf.TakenAt = time.Unix(takenAt, 0).UTC()
		out = append(out, &lf)
	}
	return out, rows.Err()
}

// ScoredFile is one copied file with the maximum quality score across
// its live referencing assets.
type ScoredFile struct {
	FileID           string
	ImportedFileDir  string
	ImportedFileName string
	Score            float64
}

// FilesAboveScore returns copied files whose best referencing-asset
// score meets the threshold.
func (s *Store) FilesAboveScore(ctx context.Context, threshold float64) ([]*ScoredFile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.imported_file_dir, f.imported_file_name, MAX(a.score) AS score
		FROM file f
		JOIN asset_file af ON af.file_id = f.id AND af.is_deleted = 0
		JOIN asset a ON a.id = af.asset_id AND a.is_deleted = 0
		WHERE f.was_copied = 1 AND a.score IS NOT NULL
		GROUP BY f.id
		HAVING MAX(a.score) >= ?
		ORDER BY score DESC, f.id`, threshold)
	if err != nil {
		return nil, fmt.Errorf("files above score: %w", err)
	}
	defer rows.Close()

	var out []*ScoredFile
	for rows.Next() {
		var sf ScoredFile
		if err := rows.Scan(&sf.FileID, &sf.ImportedFileDir, &sf.ImportedFileName, &sf.Score); err != nil {
			return nil, fmt.Errorf("scan scored file: %w", err)
		}
		out = append(out, &sf)
	}
	return out, rows.Err()
}

// --- Lookup tables ---

// GetOrInsertCountry resolves a country name to its surrogate id,
// inserting on first sight. The table is append-only.
func (s *Store) GetOrInsertCountry(ctx context.Context, name string) (int64, error) {
	return s.getOrInsertLookup(ctx, "country", name)
}

// GetOrInsertCity resolves a city name to its surrogate id, inserting on
// first sight.
func (s *Store) GetOrInsertCity(ctx context.Context, name string) (int64, error) {
	return s.getOrInsertLookup(ctx, "city", name)
}

func (s *Store) getOrInsertLookup(ctx context.Context, table, name string) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT OR IGNORE INTO %s (name) VALUES (?)", table), name); err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", table, name, err)
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table), name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup %s %q: %w", table, name, err)
	}
	return id, nil
}

// --- Aggregate counts (history entries) ---

// MirrorCounts summarizes the live contents of the mirror.
type MirrorCounts struct {
	Assets        int64
	Files         int64
	Albums        int64
	Folders       int64
	FileSizeTotal int64
}

// CountMirror returns the live row counts and total file size.
func (s *Store) CountMirror(ctx context.Context) (MirrorCounts, error) {
	var c MirrorCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM asset WHERE is_deleted = 0),
			(SELECT COUNT(*) FROM file),
			(SELECT COUNT(*) FROM album),
			(SELECT COUNT(*) FROM album_folder WHERE parent_id IS NOT NULL),
			(SELECT COALESCE(SUM(file_size), 0) FROM file)`).
		Scan(&c.Assets, &c.Files, &c.Albums, &c.Folders, &c.FileSizeTotal)
	if err != nil {
		return MirrorCounts{}, fmt.Errorf("count mirror: %w", err)
	}
	return c, nil
}
