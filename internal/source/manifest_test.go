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

package source

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	billyutil "github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, m *Manifest) *ManifestSource {
	t.Helper()
	fs := memfs.New()
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, billyutil.WriteFile(fs, "drop/manifest.json", raw, 0644))

	src, err := OpenManifest(fs, "drop")
	require.NoError(t, err)
	return src
}

func testManifest() *Manifest {
	return &Manifest{
		Assets: []ManifestAsset{
			{
				ID: "a1", Kind: MediaImage, Library: LibraryPersonal,
				Resources: []ManifestResource{
					{Kind: ResourceOriginalImage, OriginalFileName: "IMG001.jpg", Size: 7, Payload: "a1/IMG001.jpg"},
				},
			},
			{
				ID: "a2", Kind: MediaVideo, Library: LibrarySharedLibrary,
				Resources: []ManifestResource{
					{Kind: ResourceOriginalVideo, OriginalFileName: "clip.mov", Size: 9, Payload: "a2/clip.mov"},
				},
			},
		},
		Folders: []ManifestFolder{
			{ID: "f1", Name: "Travel"},
			{ID: "f2", Name: "Summer", ParentID: "f1"},
		},
		Albums: []ManifestAlbum{
			{ID: "al1", Name: "Beach", Kind: AlbumUser, FolderID: "f2", AssetIDs: []string{"a1"}},
			{ID: "al2", Name: "Swap", Kind: AlbumShared, AssetIDs: []string{"a2"}},
		},
		Locations: map[string]PostalAddress{
			"a1": {Country: "France", City: "Paris"},
		},
	}
}

func TestManifestForEachAsset(t *testing.T) {
	src := writeManifest(t, testManifest())

	var ids []string
	err := src.ForEachAsset(context.Background(), func(a *Asset) error {
		ids = append(ids, a.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, ids)
}

func TestManifestCollections(t *testing.T) {
	src := writeManifest(t, testManifest())
	ctx := context.Background()

	top, err := src.ChildFolders(ctx, RootFolderID)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Travel", top[0].Name)

	sub, err := src.ChildFolders(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, sub, 1)
	assert.Equal(t, "f2", sub[0].ID)

	albums, err := src.ChildAlbums(ctx, "f2")
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "al1", albums[0].ID)

	shared, err := src.SharedAlbums(ctx)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "al2", shared[0].ID)
}

func TestManifestReverseLookup(t *testing.T) {
	src := writeManifest(t, testManifest())
	ctx := context.Background()

	addr, err := src.ReverseLookup(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, addr)
	assert.Equal(t, "France", addr.Country)

	addr, err = src.ReverseLookup(ctx, "a2")
	require.NoError(t, err)
	assert.Nil(t, addr)
}

func TestManifestCopyResource(t *testing.T) {
	fs := memfs.New()
	m := testManifest()
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, billyutil.WriteFile(fs, "drop/manifest.json", raw, 0644))
	require.NoError(t, billyutil.WriteFile(fs, "drop/payloads/a1/IMG001.jpg", []byte("payload"), 0644))

	src, err := OpenManifest(fs, "drop")
	require.NoError(t, err)
	ctx := context.Background()

	outcome, err := src.CopyResource(ctx, "a1", ResourceOriginalImage, "IMG001.jpg", "out/f1")
	require.NoError(t, err)
	assert.Equal(t, Copied, outcome)

	got, err := billyutil.ReadFile(fs, "out/f1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	// Destination already materialized.
	outcome, err = src.CopyResource(ctx, "a1", ResourceOriginalImage, "IMG001.jpg", "out/f1")
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, outcome)

	// Payload bytes missing upstream.
	outcome, err = src.CopyResource(ctx, "a2", ResourceOriginalVideo, "clip.mov", "out/f2")
	require.NoError(t, err)
	assert.Equal(t, SourceGone, outcome)

	// Unknown asset.
	outcome, err = src.CopyResource(ctx, "nope", ResourceOriginalImage, "IMG001.jpg", "out/f3")
	require.NoError(t, err)
	assert.Equal(t, SourceGone, outcome)
}
