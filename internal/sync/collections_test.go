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

package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediamirror/internal/common"
	"mediamirror/internal/source"
	"mediamirror/internal/storage"
)

// treeFixture builds root -> {Travel -> [Summer], Family} with one album
// per folder and one shared album.
func treeFixture() *fakeSource {
	src := newFakeSource()
	src.folders[source.RootFolderID] = []source.Folder{
		{ID: "f-travel", Name: "Travel"},
		{ID: "f-family", Name: "Family"},
	}
	src.folders["f-travel"] = []source.Folder{{ID: "f-summer", Name: "Summer"}}
	src.albums["f-summer"] = []source.Album{
		{ID: "al-beach", Name: "Beach", Kind: source.AlbumUser, AssetIDs: []string{"a2", "a1"}},
	}
	src.albums["f-family"] = []source.Album{
		{ID: "al-kids", Name: "Kids", Kind: source.AlbumUser, AssetIDs: []string{"a3"}},
	}
	src.shared = []source.Album{
		{ID: "al-shared", Name: "Holiday Swap", Kind: source.AlbumShared, AssetIDs: []string{"a1"}},
	}
	return src
}

func TestTreeSyncInsertsTree(t *testing.T) {
	store := createTestStore(t)
	src := treeFixture()

	res, err := NewTreeSyncer(store, src).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Folders.Inserted)
	assert.Equal(t, 3, res.Albums.Inserted)

	f, err := store.GetFolder(context.Background(), "f-summer")
	require.NoError(t, err)
	require.NotNil(t, f.ParentID)
	assert.Equal(t, "f-travel", *f.ParentID)

	shared, err := store.GetAlbum(context.Background(), "al-shared")
	require.NoError(t, err)
	assert.Equal(t, storage.RootFolderID, shared.FolderID)
	assert.Equal(t, int(source.AlbumShared), shared.AlbumTypeID)
}

func TestTreeSyncSecondRunUnchanged(t *testing.T) {
	store := createTestStore(t)
	src := treeFixture()
	syncer := NewTreeSyncer(store, src)

	_, err := syncer.Run(context.Background(), nil)
	require.NoError(t, err)

	res, err := syncer.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Folders.Unchanged)
	assert.Equal(t, 3, res.Albums.Unchanged)
	assert.Zero(t, res.FoldersDeleted)
	assert.Zero(t, res.AlbumsDeleted)
}

func TestTreeSyncMembershipReorderIsUnchanged(t *testing.T) {
	store := createTestStore(t)
	src := treeFixture()
	syncer := NewTreeSyncer(store, src)

	_, err := syncer.Run(context.Background(), nil)
	require.NoError(t, err)

	src.albums["f-summer"][0].AssetIDs = []string{"a1", "a2"}
	res, err := syncer.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Albums.Unchanged)
}

func TestTreeSyncRename(t *testing.T) {
	store := createTestStore(t)
	src := treeFixture()
	syncer := NewTreeSyncer(store, src)

	_, err := syncer.Run(context.Background(), nil)
	require.NoError(t, err)

	src.folders[source.RootFolderID][0].Name = "Trips"
	res, err := syncer.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Folders.Updated)

	f, err := store.GetFolder(context.Background(), "f-travel")
	require.NoError(t, err)
	assert.Equal(t, "Trips", f.Name)
}

func TestTreeSyncDeletesVanishedBranch(t *testing.T) {
	store := createTestStore(t)
	src := treeFixture()
	syncer := NewTreeSyncer(store, src)

	_, err := syncer.Run(context.Background(), nil)
	require.NoError(t, err)

	// Drop the whole Travel branch: folder, child folder, child album.
	src.folders[source.RootFolderID] = src.folders[source.RootFolderID][1:]
	delete(src.folders, "f-travel")
	delete(src.albums, "f-summer")

	res, err := syncer.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FoldersDeleted)
	assert.Equal(t, 1, res.AlbumsDeleted)

	_, err = store.GetFolder(context.Background(), "f-summer")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = store.GetAlbum(context.Background(), "al-beach")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTreeSyncNeverDeletesRoot(t *testing.T) {
	store := createTestStore(t)
	src := newFakeSource() // a completely empty upstream

	res, err := NewTreeSyncer(store, src).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.FoldersDeleted)

	_, err = store.GetFolder(context.Background(), storage.RootFolderID)
	require.NoError(t, err)
}
