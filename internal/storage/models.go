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
	"encoding/json"
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// Bun ORM models for the mirror database tables. Times are stored as
// Unix timestamps; nullable times are pointer fields.

// SchemaInfoModel represents the schema_info table
type SchemaInfoModel struct {
	bun.BaseModel `bun:"table:schema_info"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// AssetModel represents the asset table
type AssetModel struct {
	bun.BaseModel `bun:"table:asset"`

	ID          string   `bun:"id,pk"`
	AssetTypeID int      `bun:"asset_type_id,notnull"`
	LibraryID   int      `bun:"asset_library_id,notnull"`
	CreatedAt   *int64   `bun:"created_at"`
	UpdatedAt   *int64   `bun:"updated_at"`
	ImportedAt  int64    `bun:"imported_at,notnull"`
	Favourite   bool     `bun:"is_favourite,notnull"`
	Latitude    *float64 `bun:"geo_lat"`
	Longitude   *float64 `bun:"geo_long"`
	Score       *float64 `bun:"score"`
	CountryID   *int64   `bun:"country_id"`
	CityID      *int64   `bun:"city_id"`
	Deleted     bool     `bun:"is_deleted,notnull"`
	DeletedAt   *int64   `bun:"deleted_at"`
}

// FileModel represents the file table
type FileModel struct {
	bun.BaseModel `bun:"table:file"`

	ID               string `bun:"id,pk"`
	FileTypeID       int    `bun:"file_type_id,notnull"`
	OriginalFileName string `bun:"original_file_name,notnull"`
	FileSize         int64  `bun:"file_size,notnull"`
	ImportedAt       int64  `bun:"imported_at,notnull"`
	ImportedFileDir  string `bun:"imported_file_dir,notnull"`
	ImportedFileName string `bun:"imported_file_name,notnull"`
	WasCopied        bool   `bun:"was_copied,notnull"`
}

// AssetFileModel represents the asset_file link table
type AssetFileModel struct {
	bun.BaseModel `bun:"table:asset_file"`

	AssetID   string `bun:"asset_id,pk"`
	FileID    string `bun:"file_id,pk"`
	Deleted   bool   `bun:"is_deleted,notnull"`
	DeletedAt *int64 `bun:"deleted_at"`
}

// FolderModel represents the album_folder table
type FolderModel struct {
	bun.BaseModel `bun:"table:album_folder"`

	ID       string  `bun:"id,pk"`
	Name     string  `bun:"name,notnull"`
	ParentID *string `bun:"parent_id"`
}

// AlbumModel represents the album table. Membership is stored as a JSON
// array of asset ids in canonical (sorted) order.
type AlbumModel struct {
	bun.BaseModel `bun:"table:album"`

	ID          string `bun:"id,pk"`
	AlbumTypeID int    `bun:"album_type_id,notnull"`
	FolderID    string `bun:"album_folder_id,notnull"`
	Name        string `bun:"name,notnull"`
	AssetIDs    string `bun:"asset_ids,notnull"`
}

// HistoryModel represents the export_result_history table
type HistoryModel struct {
	bun.BaseModel `bun:"table:export_result_history"`

	ID            string `bun:"id,pk"`
	CreatedAt     int64  `bun:"created_at,notnull"`
	ExportResult  string `bun:"export_result,notnull"`
	AssetCount    int64  `bun:"asset_count,notnull"`
	FileCount     int64  `bun:"file_count,notnull"`
	AlbumCount    int64  `bun:"album_count,notnull"`
	FolderCount   int64  `bun:"folder_count,notnull"`
	FileSizeTotal int64  `bun:"file_size_total,notnull"`
	RunTimeMillis int64  `bun:"run_time,notnull"`
}

// CountryModel represents the country lookup table
type CountryModel struct {
	bun.BaseModel `bun:"table:country"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

// CityModel represents the city lookup table
type CityModel struct {
	bun.BaseModel `bun:"table:city"`

	ID   int64  `bun:"id,pk,autoincrement"`
	Name string `bun:"name,notnull,unique"`
}

// --- Domain structs ---

// Asset is one logical media item in the mirror.
type Asset struct {
	ID          string
	AssetTypeID int
	LibraryID   int
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
	ImportedAt  time.Time
	Favourite   bool
	Latitude    *float64
	Longitude   *float64
	Score       *float64
	CountryID   *int64
	CityID      *int64
	Deleted     bool
	DeletedAt   *time.Time
}

// File is one physical resource in the mirror. WasCopied is monotonic:
// once true it only flips back when the import directory changes.
type File struct {
	ID               string
	FileTypeID       int
	OriginalFileName string
	FileSize         int64
	ImportedAt       time.Time
	ImportedFileDir  string
	ImportedFileName string
	WasCopied        bool
}

// AssetFile links an asset to a file, with its own tombstone lifecycle.
type AssetFile struct {
	AssetID   string
	FileID    string
	Deleted   bool
	DeletedAt *time.Time
}

// Folder is a node in the album folder tree.
type Folder struct {
	ID       string
	Name     string
	ParentID *string
}

// Album is a leaf collection under exactly one folder.
type Album struct {
	ID          string
	AlbumTypeID int
	FolderID    string
	Name        string
	AssetIDs    []string
}

// HistoryEntry is the immutable record of one completed run.
type HistoryEntry struct {
	ID            string
	CreatedAt     time.Time
	ExportResult  string
	AssetCount    int64
	FileCount     int64
	AlbumCount    int64
	FolderCount   int64
	FileSizeTotal int64
	RunTime       time.Duration
}

// --- Conversions ---

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	u := t.Unix()
	return &u
}

func timePtr(u *int64) *time.Time {
	if u == nil {
		return nil
	}
	t := time.Unix(*u, 0).UTC()
	return &t
}

// ToAsset converts an AssetModel to the domain Asset
func (m *AssetModel) ToAsset() *Asset {
	return &Asset{
		ID:          m.ID,
		AssetTypeID: m.AssetTypeID,
		LibraryID:   m.LibraryID,
		CreatedAt:   timePtr(m.CreatedAt),
		UpdatedAt:   timePtr(m.UpdatedAt),
		ImportedAt:  time.Unix(m.ImportedAt, 0).UTC(),
		Favourite:   m.Favourite,
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		Score:       m.Score,
		CountryID:   m.CountryID,
		CityID:      m.CityID,
		Deleted:     m.Deleted,
		DeletedAt:   timePtr(m.DeletedAt),
	}
}

// AssetModelFromAsset converts a domain Asset to its model
func AssetModelFromAsset(a *Asset) *AssetModel {
	return &AssetModel{
		ID:          a.ID,
		AssetTypeID: a.AssetTypeID,
		LibraryID:   a.LibraryID,
		CreatedAt:   unixPtr(a.CreatedAt),
		UpdatedAt:   unixPtr(a.UpdatedAt),
		ImportedAt:  a.ImportedAt.Unix(),
		Favourite:   a.Favourite,
		Latitude:    a.Latitude,
		Longitude:   a.Longitude,
		Score:       a.Score,
		CountryID:   a.CountryID,
		CityID:      a.CityID,
		Deleted:     a.Deleted,
		DeletedAt:   unixPtr(a.DeletedAt),
	}
}

// ToFile converts a FileModel to the domain File
func (m *FileModel) ToFile() *File {
	return &File{
		ID:               m.ID,
		FileTypeID:       m.FileTypeID,
		OriginalFileName: m.OriginalFileName,
		FileSize:         m.FileSize,
		ImportedAt:       time.Unix(m.ImportedAt, 0).UTC(),
		ImportedFileDir:  m.ImportedFileDir,
		ImportedFileName: m.ImportedFileName,
		WasCopied:        m.WasCopied,
	}
}

// FileModelFromFile converts a domain File to its model
func FileModelFromFile(f *File) *FileModel {
	return &FileModel{
		ID:               f.ID,
		FileTypeID:       f.FileTypeID,
		OriginalFileName: f.OriginalFileName,
		FileSize:         f.FileSize,
		ImportedAt:       f.ImportedAt.Unix(),
		ImportedFileDir:  f.ImportedFileDir,
		ImportedFileName: f.ImportedFileName,
		WasCopied:        f.WasCopied,
	}
}

// ToAssetFile converts an AssetFileModel to the domain AssetFile
func (m *AssetFileModel) ToAssetFile() *AssetFile {
	return &AssetFile{
		AssetID:   m.AssetID,
		FileID:    m.FileID,
		Deleted:   m.Deleted,
		DeletedAt: timePtr(m.DeletedAt),
	}
}

// ToFolder converts a FolderModel to the domain Folder
func (m *FolderModel) ToFolder() *Folder {
	return &Folder{ID: m.ID, Name: m.Name, ParentID: m.ParentID}
}

// ToAlbum converts an AlbumModel to the domain Album
func (m *AlbumModel) ToAlbum() *Album {
	var ids []string
	// Invalid JSON degrades to empty membership rather than failing reads.
	_ = json.Unmarshal([]byte(m.AssetIDs), &ids)
	return &Album{
		ID:          m.ID,
		AlbumTypeID: m.AlbumTypeID,
		FolderID:    m.FolderID,
		Name:        m.Name,
		AssetIDs:    ids,
	}
}

// AlbumModelFromAlbum converts a domain Album to its model. Membership is
// sorted before marshalling so set-equal albums produce identical rows.
func AlbumModelFromAlbum(a *Album) *AlbumModel {
	ids := append([]string(nil), a.AssetIDs...)
	sort.Strings(ids)
	raw, _ := json.Marshal(ids)
	return &AlbumModel{
		ID:          a.ID,
		AlbumTypeID: a.AlbumTypeID,
		FolderID:    a.FolderID,
		Name:        a.Name,
		AssetIDs:    string(raw),
	}
}

// ToHistoryEntry converts a HistoryModel to the domain HistoryEntry
func (m *HistoryModel) ToHistoryEntry() *HistoryEntry {
	return &HistoryEntry{
		ID:            m.ID,
		CreatedAt:     time.Unix(m.CreatedAt, 0).UTC(),
		ExportResult:  m.ExportResult,
		AssetCount:    m.AssetCount,
		FileCount:     m.FileCount,
		AlbumCount:    m.AlbumCount,
		FolderCount:   m.FolderCount,
		FileSizeTotal: m.FileSizeTotal,
		RunTime:       time.Duration(m.RunTimeMillis) * time.Millisecond,
	}
}
