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

	"mediamirror/internal/util"
)

// UpsertResult reports what an upsert actually did. Unchanged means no
// write occurred; callers must not assume any field was touched.
type UpsertResult int

const (
	Inserted UpsertResult = iota
	Updated
	Unchanged
)

func (r UpsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	}
	return "unknown"
}

func ptrEq[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// --- Asset ---

// mergeAsset computes the updated row field-by-field. The incoming record
// comes from "this item exists upstream", so the tombstone is always
// cleared; optional fields the caller doesn't know keep their old value.
func mergeAsset(ex, in *AssetModel) *AssetModel {
	m := *in
	m.ImportedAt = ex.ImportedAt // first-import time never changes
	if m.CreatedAt == nil {
		m.CreatedAt = ex.CreatedAt
	}
	if m.UpdatedAt == nil {
		m.UpdatedAt = ex.UpdatedAt
	}
	if m.Latitude == nil {
		m.Latitude = ex.Latitude
	}
	if m.Longitude == nil {
		m.Longitude = ex.Longitude
	}
	if m.Score == nil {
		m.Score = ex.Score
	}
	if m.CountryID == nil {
		m.CountryID = ex.CountryID
	}
	if m.CityID == nil {
		m.CityID = ex.CityID
	}
	m.Deleted = false
	m.DeletedAt = nil
	return &m
}

func assetModelEqual(a, b *AssetModel) bool {
	return a.ID == b.ID &&
		a.AssetTypeID == b.AssetTypeID &&
		a.LibraryID == b.LibraryID &&
		ptrEq(a.CreatedAt, b.CreatedAt) &&
		ptrEq(a.UpdatedAt, b.UpdatedAt) &&
		a.ImportedAt == b.ImportedAt &&
		a.Favourite == b.Favourite &&
		ptrEq(a.Latitude, b.Latitude) &&
		ptrEq(a.Longitude, b.Longitude) &&
		ptrEq(a.Score, b.Score) &&
		ptrEq(a.CountryID, b.CountryID) &&
		ptrEq(a.CityID, b.CityID) &&
		a.Deleted == b.Deleted &&
		ptrEq(a.DeletedAt, b.DeletedAt)
}

// UpsertAsset inserts or field-merges one asset observed upstream.
func (s *Store) UpsertAsset(ctx context.Context, a *Asset) (UpsertResult, error) {
	return util.RetryWithResult(ctx, func() (UpsertResult, error) {
		return s.upsertAsset(ctx, a)
	}, util.DatabaseRetryOptions(ctx)...)
}

func (s *Store) upsertAsset(ctx context.Context, a *Asset) (UpsertResult, error) {
	in := AssetModelFromAsset(a)
	in.Deleted = false
	in.DeletedAt = nil

	ex := new(AssetModel)
	err := s.bun.NewSelect().Model(ex).Where("id = ?", in.ID).Scan(ctx)
	if err == sql.ErrNoRows {
		if _, err := s.bun.NewInsert().Model(in).Exec(ctx); err != nil {
			return Unchanged, fmt.Errorf("insert asset %s: %w", in.ID, err)
		}
		return Inserted, nil
	}
	if err != nil {
		return Unchanged, fmt.Errorf("read asset %s: %w", in.ID, err)
	}

	merged := mergeAsset(ex, in)
	if assetModelEqual(ex, merged) {
		return Unchanged, nil
	}
	if _, err := s.bun.NewUpdate().Model(merged).WherePK().Exec(ctx); err != nil {
		return Unchanged, fmt.Errorf("update asset %s: %w", in.ID, err)
	}
	return Updated, nil
}

// --- File ---

// mergeFile applies the import-directory recompute rule: a changed
// directory forces was_copied back to false (the one sanctioned
// true->false transition); an unchanged directory ORs old and new.
func mergeFile(ex, in *FileModel) *FileModel {
	m := *in
	m.ImportedAt = ex.ImportedAt
	if m.ImportedFileDir != ex.ImportedFileDir {
		m.WasCopied = false
	} else {
		m.WasCopied = ex.WasCopied || in.WasCopied
	}
	return &m
}

func fileModelEqual(a, b *FileModel) bool {
	return a.ID == b.ID &&
		a.FileTypeID == b.FileTypeID &&
		a.OriginalFileName == b.OriginalFileName &&
		a.FileSize == b.FileSize &&
		a.ImportedAt == b.ImportedAt &&
		a.ImportedFileDir == b.ImportedFileDir &&
		a.ImportedFileName == b.ImportedFileName &&
		a.WasCopied == b.WasCopied
}

// UpsertFile inserts or field-merges one file record.
func (s *Store) UpsertFile(ctx context.Context, f *File) (UpsertResult, error) {
	return util.RetryWithResult(ctx, func() (UpsertResult, error) {
		return s.upsertFile(ctx, f)
	}, util.DatabaseRetryOptions(ctx)...)
}

func (s *Store) upsertFile(ctx context.Context, f *File) (UpsertResult, error) {
	in := FileModelFromFile(f)

	ex := new(FileModel)
	err := s.bun.NewSelect().Model(ex).Where("id = ?", in.ID).Scan(ctx)
	if err == sql.ErrNoRows {
		if _, err := s.bun.NewInsert().Model(in).Exec(ctx); err != nil {
			return Unchanged, fmt.Errorf("insert file %s: %w", in.ID, err)
		}
		return Inserted, nil
	}
	if err != nil {
		return Unchanged, fmt.Errorf("read file %s: %w", in.ID, err)
	}

	merged := mergeFile(ex, in)
	if fileModelEqual(ex, merged) {
		return Unchanged, nil
	}
	if _, err := s.bun.NewUpdate().Model(merged).WherePK().Exec(ctx); err != nil {
		return Unchanged, fmt.Errorf("update file %s: %w", in.ID, err)
	}
	return Updated, nil
}

// --- AssetFile ---

// UpsertAssetFile inserts or revives one asset-file link. Observing the
// link upstream always clears its tombstone.
func (s *Store) UpsertAssetFile(ctx context.Context, assetID, fileID string) (UpsertResult, error) {
	return util.RetryWithResult(ctx, func() (UpsertResult, error) {
		return s.upsertAssetFile(ctx, assetID, fileID)
	}, util.DatabaseRetryOptions(ctx)...)
}

func (s *Store) upsertAssetFile(ctx context.Context, assetID, fileID string) (UpsertResult, error) {
	in := &AssetFileModel{AssetID: assetID, FileID: fileID}

	ex := new(AssetFileModel)
	err := s.bun.NewSelect().Model(ex).
		Where("asset_id = ?", assetID).
		Where("file_id = ?", fileID).
		Scan(ctx)
	if err == sql.ErrNoRows {
		if _, err := s.bun.NewInsert().Model(in).Exec(ctx); err != nil {
			return Unchanged, fmt.Errorf("insert asset_file %s/%s: %w", assetID, fileID, err)
		}
		return Inserted, nil
	}
	if err != nil {
		return Unchanged, fmt.Errorf("read asset_file %s/%s: %w", assetID, fileID, err)
	}

	if !ex.Deleted && ex.DeletedAt == nil {
		return Unchanged, nil
	}
	if _, err := s.bun.NewUpdate().Model(in).WherePK().Exec(ctx); err != nil {
		return Unchanged, fmt.Errorf("update asset_file %s/%s: %w", assetID, fileID, err)
	}
	return Updated, nil
}

// --- Folder / Album ---

// UpsertFolder inserts or updates one folder node.
func (s *Store) UpsertFolder(ctx context.Context, f *Folder) (UpsertResult, error) {
	return util.RetryWithResult(ctx, func() (UpsertResult, error) {
		return s.upsertFolder(ctx, f)
	}, util.DatabaseRetryOptions(ctx)...)
}

func (s *Store) upsertFolder(ctx context.Context, f *Folder) (UpsertResult, error) {
	in := &FolderModel{ID: f.ID, Name: f.Name, ParentID: f.ParentID}

	ex := new(FolderModel)
	err := s.bun.NewSelect().Model(ex).Where("id = ?", in.ID).Scan(ctx)
	if err == sql.ErrNoRows {
		if _, err := s.bun.NewInsert().Model(in).Exec(ctx); err != nil {
			return Unchanged, fmt.Errorf("insert folder %s: %w", in.ID, err)
		}
		return Inserted, nil
	}
	if err != nil {
		return Unchanged, fmt.Errorf("read folder %s: %w", in.ID, err)
	}

	if ex.Name == in.Name && ptrEq(ex.ParentID, in.ParentID) {
		return Unchanged, nil
	}
	if _, err := s.bun.NewUpdate().Model(in).WherePK().Exec(ctx); err != nil {
		return Unchanged, fmt.Errorf("update folder %s: %w", in.ID, err)
	}
	return Updated, nil
}

// UpsertAlbum inserts or updates one album. Membership is compared as a
// set: a reordered but equal asset-id list is Unchanged.
func (s *Store) UpsertAlbum(ctx context.Context, a *Album) (UpsertResult, error) {
	return util.RetryWithResult(ctx, func() (UpsertResult, error) {
		return s.upsertAlbum(ctx, a)
	}, util.DatabaseRetryOptions(ctx)...)
}

func (s *Store) upsertAlbum(ctx context.Context, a *Album) (UpsertResult, error) {
	// AlbumModelFromAlbum sorts membership, so JSON equality below is
	// set equality.
	in := AlbumModelFromAlbum(a)

	ex := new(AlbumModel)
	err := s.bun.NewSelect().Model(ex).Where("id = ?", in.ID).Scan(ctx)
	if err == sql.ErrNoRows {
		if _, err := s.bun.NewInsert().Model(in).Exec(ctx); err != nil {
			return Unchanged, fmt.Errorf("insert album %s: %w", in.ID, err)
		}
		return Inserted, nil
	}
	if err != nil {
		return Unchanged, fmt.Errorf("read album %s: %w", in.ID, err)
	}

	if ex.AlbumTypeID == in.AlbumTypeID && ex.FolderID == in.FolderID &&
		ex.Name == in.Name && ex.AssetIDs == in.AssetIDs {
		return Unchanged, nil
	}
	if _, err := s.bun.NewUpdate().Model(in).WherePK().Exec(ctx); err != nil {
		return Unchanged, fmt.Errorf("update album %s: %w", in.ID, err)
	}
	return Updated, nil
}

// --- Tombstones ---

// MarkAssetDeleted tombstones one asset. Already-tombstoned rows keep
// their original deleted_at so the expiry clock never resets.
func (s *Store) MarkAssetDeleted(ctx context.Context, id string, now time.Time) error {
	_, err := s.bun.NewUpdate().Model((*AssetModel)(nil)).
		Set("is_deleted = 1").
		Set("deleted_at = ?", now.Unix()).
		Where("id = ?", id).
		Where("is_deleted = 0").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark asset %s deleted: %w", id, err)
	}
	return nil
}

// MarkFileDeleted tombstones every live link of the given file. The file
// row itself carries no tombstone; it is hard-deleted by the materializer
// once all its links have been purged.
func (s *Store) MarkFileDeleted(ctx context.Context, fileID string, now time.Time) error {
	_, err := s.bun.NewUpdate().Model((*AssetFileModel)(nil)).
		Set("is_deleted = 1").
		Set("deleted_at = ?", now.Unix()).
		Where("file_id = ?", fileID).
		Where("is_deleted = 0").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark file %s deleted: %w", fileID, err)
	}
	return nil
}

// MarkAssetFileDeleted tombstones one specific link.
func (s *Store) MarkAssetFileDeleted(ctx context.Context, assetID, fileID string, now time.Time) error {
	_, err := s.bun.NewUpdate().Model((*AssetFileModel)(nil)).
		Set("is_deleted = 1").
		Set("deleted_at = ?", now.Unix()).
		Where("asset_id = ?", assetID).
		Where("file_id = ?", fileID).
		Where("is_deleted = 0").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark asset_file %s/%s deleted: %w", assetID, fileID, err)
	}
	return nil
}

// --- Expiry purge ---

// PurgeCounts reports how many rows PurgeExpired removed per entity.
type PurgeCounts struct {
	Assets int64
	Links  int64
}

// PurgeExpired hard-deletes rows tombstoned before cutoff. Dependent
// asset_file rows go in the same transaction before their parent asset
// rows to keep referential integrity at every commit boundary.
func (s *Store) PurgeExpired(ctx context.Context, cutoff time.Time) (PurgeCounts, error) {
	return util.RetryWithResult(ctx, func() (PurgeCounts, error) {
		return s.purgeExpired(ctx, cutoff)
	}, util.DatabaseRetryOptions(ctx)...)
}

func (s *Store) purgeExpired(ctx context.Context, cutoff time.Time) (PurgeCounts, error) {
	var counts PurgeCounts
	cut := cutoff.Unix()

	err := s.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*AssetFileModel)(nil)).
			Where("(is_deleted = 1 AND deleted_at < ?) OR asset_id IN (SELECT id FROM asset WHERE is_deleted = 1 AND deleted_at < ?)", cut, cut).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("purge asset_file rows: %w", err)
		}
		counts.Links, _ = res.RowsAffected()

		res, err = tx.NewDelete().Model((*AssetModel)(nil)).
			Where("is_deleted = 1").
			Where("deleted_at < ?", cut).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("purge asset rows: %w", err)
		}
		counts.Assets, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return PurgeCounts{}, err
	}
	return counts, nil
}
