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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediamirror/internal/source"
	"mediamirror/internal/storage"
)

// fakeSource is an in-memory provider for all three source interfaces.
type fakeSource struct {
	assets    []*source.Asset
	folders   map[string][]source.Folder // parent id -> children
	albums    map[string][]source.Album  // folder id -> albums
	shared    []source.Album
	locations map[string]source.PostalAddress

	// copyFn overrides CopyResource; default reports Copied.
	copyFn func(assetID string, kind source.ResourceKind, originalName, destPath string) (source.CopyOutcome, error)

	locationErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		folders:   map[string][]source.Folder{},
		albums:    map[string][]source.Album{},
		locations: map[string]source.PostalAddress{},
	}
}

func (f *fakeSource) ForEachAsset(ctx context.Context, fn func(*source.Asset) error) error {
	for _, a := range f.assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSource) CopyResource(ctx context.Context, assetID string, kind source.ResourceKind, originalName, destPath string) (source.CopyOutcome, error) {
	if f.copyFn != nil {
		return f.copyFn(assetID, kind, originalName, destPath)
	}
	return source.Copied, nil
}

func (f *fakeSource) ChildFolders(ctx context.Context, parentID string) ([]source.Folder, error) {
	return f.folders[parentID], nil
}

func (f *fakeSource) ChildAlbums(ctx context.Context, folderID string) ([]source.Album, error) {
	return f.albums[folderID], nil
}

func (f *fakeSource) SharedAlbums(ctx context.Context) ([]source.Album, error) {
	return f.shared, nil
}

func (f *fakeSource) ReverseLookup(ctx context.Context, assetID string) (*source.PostalAddress, error) {
	if f.locationErr != nil {
		return nil, f.locationErr
	}
	addr, ok := f.locations[assetID]
	if !ok {
		return nil, nil
	}
	return &addr, nil
}

// removeAsset drops one asset from the fake without touching the store,
// simulating an upstream deletion between runs.
func (f *fakeSource) removeAsset(id string) {
	kept := f.assets[:0]
	for _, a := range f.assets {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.assets = kept
}

func createTestStore(t *testing.T) *storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirror.db")
	s, err := storage.Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	parsed = parsed.UTC()
	return &parsed
}

func ptr[T any](v T) *T { return &v }

// imageAsset builds a minimal personal-library image asset with one
// original resource.
func imageAsset(id, fileName string, size int64, createdAt *time.Time) *source.Asset {
	return &source.Asset{
		ID:        id,
		Kind:      source.MediaImage,
		Library:   source.LibraryPersonal,
		CreatedAt: createdAt,
		Resources: []source.Resource{
			{Kind: source.ResourceOriginalImage, OriginalFileName: fileName, Size: size},
		},
	}
}
