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

package materialize

import (
	"context"
	"testing"
	"time"

	billyutil "github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediamirror/internal/common"
	"mediamirror/internal/fsops"
	"mediamirror/internal/storage"
)

// seedCopiedAsset inserts an already-materialized file linked to one
// asset, with optional creation time, location and score.
func seedCopiedAsset(t *testing.T, store *storage.Store, assetID, fileID, dir string,
	createdAt *time.Time, score *float64, country, city string) {

	t.Helper()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	a := &storage.Asset{ID: assetID, AssetTypeID: 1, LibraryID: 1, ImportedAt: now, CreatedAt: createdAt, Score: score}
	if country != "" {
		id, err := store.GetOrInsertCountry(ctx, country)
		require.NoError(t, err)
		a.CountryID = &id
	}
	if city != "" {
		id, err := store.GetOrInsertCity(ctx, city)
		require.NoError(t, err)
		a.CityID = &id
	}
	_, err := store.UpsertAsset(ctx, a)
	require.NoError(t, err)

	_, err = store.UpsertFile(ctx, &storage.File{
		ID:               fileID,
		FileTypeID:       1,
		OriginalFileName: "IMG001.jpg",
		FileSize:         7,
		ImportedAt:       now,
		ImportedFileDir:  dir,
		ImportedFileName: fileID,
	})
	require.NoError(t, err)
	_, err = store.UpsertAssetFile(ctx, assetID, fileID)
	require.NoError(t, err)
	require.NoError(t, store.SetFileCopied(ctx, fileID))
}

func seedAlbum(t *testing.T, store *storage.Store, id, folderID, name string, assetIDs []string) {
	t.Helper()
	_, err := store.UpsertAlbum(context.Background(), &storage.Album{
		ID: id, AlbumTypeID: 1, FolderID: folderID, Name: name, AssetIDs: assetIDs,
	})
	require.NoError(t, err)
}

func TestAlbumTreeLinksCopiedFiles(t *testing.T) {
	store := createTestStore(t)
	fs := fsops.NewMem()
	ctx := context.Background()

	taken := time.Date(2025, 4, 15, 10, 30, 5, 0, time.UTC)
	seedCopiedAsset(t, store, "a1", "f1", "2025/04", &taken, nil, "", "")

	parent := storage.RootFolderID
	_, err := store.UpsertFolder(ctx, &storage.Folder{ID: "fo1", Name: "Travel", ParentID: &parent})
	require.NoError(t, err)
	seedAlbum(t, store, "al1", "fo1", "Beach", []string{"a1"})

	res, err := NewViewBuilder(store, fs, exportRoot, 0.9).Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlbumLinks)

	link := common.JoinPath(exportRoot, AlbumsDir, "Travel", "Beach", "f1")
	target, err := fs.Billy().Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "../../../files/2025/04/f1", target)
}

func TestAlbumTreeExcludesUncopiedFiles(t *testing.T) {
	store := createTestStore(t)
	fs := fsops.NewMem()
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	_, err := store.UpsertAsset(ctx, &storage.Asset{ID: "a1", AssetTypeID: 1, LibraryID: 1, ImportedAt: now})
	require.NoError(t, err)
	_, err = store.UpsertFile(ctx, &storage.File{
		ID: "f1", FileTypeID: 1, OriginalFileName: "IMG001.jpg", FileSize: 7,
		ImportedAt: now, ImportedFileDir: "2025/04", ImportedFileName: "f1",
	})
	require.NoError(t, err)
	_, err = store.UpsertAssetFile(ctx, "a1", "f1")
	require.NoError(t, err)
	seedAlbum(t, store, "al1", storage.RootFolderID, "Beach", []string{"a1"})

	res, err := NewViewBuilder(store, fs, exportRoot, 0.9).Run(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, res.AlbumLinks)
}

func TestAlbumTreeRebuildDropsStaleLinks(t *testing.T) {
	store := createTestStore(t)
	fs := fsops.NewMem()
	ctx := context.Background()

	stale := common.JoinPath(exportRoot, AlbumsDir, "Old", "gone")
	require.NoError(t, billyutil.WriteFile(fs.Billy(), stale, []byte("x"), 0644))

	_, err := NewViewBuilder(store, fs, exportRoot, 0.9).Run(ctx, nil)
	require.NoError(t, err)

	exists, err := fs.PathExists(stale)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAlbumTreeSkipsUnsafeNames(t *testing.T) {
	store := createTestStore(t)
	fs := fsops.NewMem()
	ctx := context.Background()

	taken := time.Date(2025, 4, 15, 10, 30, 5, 0, time.UTC)
	seedCopiedAsset(t, store, "a1", "f1", "2025/04", &taken, nil, "", "")
	seedAlbum(t, store, "al1", storage.RootFolderID, "///", []string{"a1"})

	res, err := NewViewBuilder(store, fs, exportRoot, 0.9).Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkippedNodes)
	assert.Zero(t, res.AlbumLinks)
}

func TestLocationTree(t *testing.T) {
	store := createTestStore(t)
	fs := fsops.NewMem()
	ctx := context.Background()

	taken := time.Date(2025, 4, 15, 10, 30, 5, 0, time.UTC)
	seedCopiedAsset(t, store, "a1", "f1", "2025/04_france_paris", &taken, nil, "France", "Paris")

	builder := NewViewBuilder(store, fs, exportRoot, 0.9)
	res, err := builder.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.LocationLinks)

	link := common.JoinPath(exportRoot, LocationsDir, "2025", "France", "Paris", "f1")
	exists, err := fs.PathExists(link)
	require.NoError(t, err)
	assert.True(t, exists)

	// Append-only: a second pass recreates nothing.
	res, err = builder.Run(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, res.LocationLinks)
}

func TestScoreTree(t *testing.T) {
	store := createTestStore(t)
	fs := fsops.NewMem()
	ctx := context.Background()

	taken := time.Date(2025, 4, 15, 10, 30, 5, 0, time.UTC)
	seedCopiedAsset(t, store, "a1", "f1", "2025/04", &taken, floatPtr(0.85), "", "")
	seedCopiedAsset(t, store, "a2", "f2", "2025/04", &taken, floatPtr(0.42), "", "")

	res, err := NewViewBuilder(store, fs, exportRoot, 0.8).Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ScoreLinks)

	link := common.JoinPath(exportRoot, ScoredDir, "0850_f1")
	exists, err := fs.PathExists(link)
	require.NoError(t, err)
	assert.True(t, exists)

	low := common.JoinPath(exportRoot, ScoredDir, "0420_f2")
	exists, err = fs.PathExists(low)
	require.NoError(t, err)
	assert.False(t, exists)
}

func floatPtr(v float64) *float64 { return &v }
