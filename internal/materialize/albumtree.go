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

	log "github.com/sirupsen/logrus"

	"mediamirror/internal/common"
	"mediamirror/internal/storage"
)

// buildAlbumTree wipes the album view and renders it again from the
// mirrored folder/album tree. Renames and membership changes therefore
// never leave stale links behind.
func (v *ViewBuilder) buildAlbumTree(ctx context.Context, res *ViewsResult) error {
	base := common.JoinPath(v.root, AlbumsDir)
	if err := v.fs.Remove(base); err != nil {
		return err
	}
	if err := v.fs.CreateDirectory(base); err != nil {
		return err
	}
	return v.renderFolder(ctx, storage.RootFolderID, base, res)
}

// renderFolder writes one folder's albums, then recurses. A node whose
// display name has no path-safe form is skipped with its subtree.
func (v *ViewBuilder) renderFolder(ctx context.Context, folderID, dir string, res *ViewsResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	albums, err := v.store.AlbumsInFolder(ctx, folderID)
	if err != nil {
		return err
	}
	for _, album := range albums {
		name := common.PathSafeName(album.Name)
		if name == "" {
			log.Warnf("[views] album %s has no path-safe name, skipping", album.ID)
			res.SkippedNodes++
			continue
		}
		if err := v.renderAlbum(ctx, album.ID, common.JoinPath(dir, name), res); err != nil {
			return err
		}
	}

	children, err := v.store.FoldersByParent(ctx, folderID)
	if err != nil {
		return err
	}
	for _, child := range children {
		name := common.PathSafeName(child.Name)
		if name == "" {
			log.Warnf("[views] folder %s has no path-safe name, skipping subtree", child.ID)
			res.SkippedNodes++
			continue
		}
		sub := common.JoinPath(dir, name)
		if err := v.fs.CreateDirectory(sub); err != nil {
			return err
		}
		if err := v.renderFolder(ctx, child.ID, sub, res); err != nil {
			return err
		}
	}
	return nil
}

func (v *ViewBuilder) renderAlbum(ctx context.Context, albumID, dir string, res *ViewsResult) error {
	files, err := v.store.FilesForAlbum(ctx, albumID)
	if err != nil {
		return err
	}
	if err := v.fs.CreateDirectory(dir); err != nil {
		return err
	}
	for _, f := range files {
		if !f.WasCopied {
			continue
		}
		target := relTarget(dir, FilePath(v.root, f.ImportedFileDir, f.ImportedFileName))
		created, err := v.fs.CreateSymlink(target, common.JoinPath(dir, f.ImportedFileName))
		if err != nil {
			return err
		}
		if created {
			res.AlbumLinks++
		}
	}
	return nil
}
