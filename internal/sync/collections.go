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

	log "github.com/sirupsen/logrus"

	"mediamirror/internal/source"
	"mediamirror/internal/status"
	"mediamirror/internal/storage"
)

// TreeSyncer mirrors the upstream folder/album tree into the store.
// Collections carry no tombstones: anything absent upstream is deleted
// outright, albums first, then folders children-before-parents.
type TreeSyncer struct {
	store *storage.Store
	src   source.CollectionSource
}

func NewTreeSyncer(store *storage.Store, src source.CollectionSource) *TreeSyncer {
	return &TreeSyncer{store: store, src: src}
}

// Run executes one collection synchronization pass.
func (s *TreeSyncer) Run(ctx context.Context, tracker *status.Tracker) (*CollectionSyncResult, error) {
	baselineFolders, err := s.store.AllFolderIDs(ctx)
	if err != nil {
		return nil, err
	}
	baselineAlbums, err := s.store.AllAlbumIDs(ctx)
	if err != nil {
		return nil, err
	}
	// The root row is part of the schema, never a deletion candidate.
	delete(baselineFolders, storage.RootFolderID)

	tracker.Start(0)
	res := &CollectionSyncResult{}

	if err := s.syncBranch(ctx, source.RootFolderID, res, baselineFolders, baselineAlbums, tracker); err != nil {
		return nil, err
	}

	// Shared albums have no upstream folder; they live under root.
	shared, err := s.src.SharedAlbums(ctx)
	if err != nil {
		return nil, err
	}
	for i := range shared {
		if err := s.syncAlbum(ctx, &shared[i], storage.RootFolderID, res, baselineAlbums, tracker); err != nil {
			return nil, err
		}
	}

	// Reconcile: whatever the walk did not visit is gone upstream.
	for id := range baselineAlbums {
		if err := s.store.DeleteAlbum(ctx, id); err != nil {
			return nil, err
		}
		res.AlbumsDeleted++
	}
	if len(baselineFolders) > 0 {
		ids := make([]string, 0, len(baselineFolders))
		for id := range baselineFolders {
			ids = append(ids, id)
		}
		if err := s.store.DeleteFolders(ctx, ids); err != nil {
			return nil, err
		}
		res.FoldersDeleted = len(ids)
	}

	log.WithFields(log.Fields{
		"folders":        res.Folders.Total(),
		"albums":         res.Albums.Total(),
		"foldersDeleted": res.FoldersDeleted,
		"albumsDeleted":  res.AlbumsDeleted,
	}).Debug("[sync] collection pass done")
	return res, nil
}

// syncBranch upserts one folder's albums, then recurses into its child
// folders. The root node itself is never upserted here.
func (s *TreeSyncer) syncBranch(ctx context.Context, folderID string,
	res *CollectionSyncResult, baselineFolders, baselineAlbums map[string]struct{}, tracker *status.Tracker) error {

	if err := ctx.Err(); err != nil {
		return err
	}

	albums, err := s.src.ChildAlbums(ctx, folderID)
	if err != nil {
		return err
	}
	for i := range albums {
		if err := s.syncAlbum(ctx, &albums[i], folderID, res, baselineAlbums, tracker); err != nil {
			return err
		}
	}

	children, err := s.src.ChildFolders(ctx, folderID)
	if err != nil {
		return err
	}
	for _, child := range children {
		parent := folderID
		upres, err := s.store.UpsertFolder(ctx, &storage.Folder{
			ID:       child.ID,
			Name:     child.Name,
			ParentID: &parent,
		})
		if err != nil {
			return err
		}
		res.Folders.Add(upres)
		delete(baselineFolders, child.ID)
		tracker.Advance(1)

		if err := s.syncBranch(ctx, child.ID, res, baselineFolders, baselineAlbums, tracker); err != nil {
			return err
		}
	}
	return nil
}

func (s *TreeSyncer) syncAlbum(ctx context.Context, a *source.Album, folderID string,
	res *CollectionSyncResult, baselineAlbums map[string]struct{}, tracker *status.Tracker) error {

	upres, err := s.store.UpsertAlbum(ctx, &storage.Album{
		ID:          a.ID,
		AlbumTypeID: int(a.Kind),
		FolderID:    folderID,
		Name:        a.Name,
		AssetIDs:    a.AssetIDs,
	})
	if err != nil {
		return err
	}
	res.Albums.Add(upres)
	delete(baselineAlbums, a.ID)
	tracker.Advance(1)
	return nil
}
