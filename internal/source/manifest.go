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
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	billyutil "github.com/go-git/go-billy/v5/util"

	"mediamirror/internal/common"
)

// Manifest is the on-disk description of an export drop: a manifest.json
// at the drop root plus payload files under payloads/.
type Manifest struct {
	Assets  []ManifestAsset  `json:"assets"`
	Folders []ManifestFolder `json:"folders"`
	Albums  []ManifestAlbum  `json:"albums"`

	// Locations maps asset ids to resolved postal addresses.
	Locations map[string]PostalAddress `json:"locations,omitempty"`
}

// ManifestAsset mirrors Asset with one extra field per resource: the
// payload path relative to the drop's payloads/ directory.
type ManifestAsset struct {
	ID         string             `json:"id"`
	Kind       MediaKind          `json:"kind"`
	Library    Library            `json:"library"`
	CreatedAt  *time.Time         `json:"createdAt,omitempty"`
	ModifiedAt *time.Time         `json:"modifiedAt,omitempty"`
	Favourite  bool               `json:"favourite,omitempty"`
	Latitude   *float64           `json:"latitude,omitempty"`
	Longitude  *float64           `json:"longitude,omitempty"`
	Score      *float64           `json:"score,omitempty"`
	Resources  []ManifestResource `json:"resources"`
}

type ManifestResource struct {
	Kind             ResourceKind `json:"kind"`
	OriginalFileName string       `json:"originalFileName"`
	Size             int64        `json:"size"`
	Payload          string       `json:"payload"`
}

type ManifestFolder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId"` // empty means the root folder
}

type ManifestAlbum struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     AlbumKind `json:"kind"`
	FolderID string    `json:"folderId"` // ignored for shared albums
	AssetIDs []string  `json:"assetIds"`
}

// PayloadsDir is the directory under the drop root holding resource bytes.
const PayloadsDir = "payloads"

// ManifestSource serves all three source interfaces from one export
// drop. It never mutates the drop.
type ManifestSource struct {
	fs   billy.Filesystem
	dir  string
	m    *Manifest
	byID map[string]*ManifestAsset
}

var (
	_ AssetSource      = (*ManifestSource)(nil)
	_ CollectionSource = (*ManifestSource)(nil)
	_ LocationSource   = (*ManifestSource)(nil)
)

// OpenManifest reads <dir>/manifest.json from fs and indexes it.
func OpenManifest(fs billy.Filesystem, dir string) (*ManifestSource, error) {
	raw, err := billyutil.ReadFile(fs, common.JoinPath(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m := new(Manifest)
	if err := json.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	s := &ManifestSource{fs: fs, dir: dir, m: m, byID: make(map[string]*ManifestAsset, len(m.Assets))}
	for i := range m.Assets {
		s.byID[m.Assets[i].ID] = &m.Assets[i]
	}
	return s, nil
}

// ForEachAsset streams the manifest's assets in declaration order.
func (s *ManifestSource) ForEachAsset(ctx context.Context, fn func(*Asset) error) error {
	for i := range s.m.Assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		ma := &s.m.Assets[i]
		a := &Asset{
			ID:         ma.ID,
			Kind:       ma.Kind,
			Library:    ma.Library,
			CreatedAt:  ma.CreatedAt,
			ModifiedAt: ma.ModifiedAt,
			Favourite:  ma.Favourite,
			Latitude:   ma.Latitude,
			Longitude:  ma.Longitude,
			Score:      ma.Score,
		}
		for _, r := range ma.Resources {
			a.Resources = append(a.Resources, Resource{
				Kind:             r.Kind,
				OriginalFileName: r.OriginalFileName,
				Size:             r.Size,
			})
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return nil
}

// CopyResource copies one payload to destPath. A missing payload file or
// an unknown asset/resource reports SourceGone rather than an error: the
// drop may legitimately have moved on since the mirror pass.
func (s *ManifestSource) CopyResource(ctx context.Context, assetID string, kind ResourceKind, originalName, destPath string) (CopyOutcome, error) {
	if err := ctx.Err(); err != nil {
		return SourceGone, err
	}

	ma, ok := s.byID[assetID]
	if !ok {
		return SourceGone, nil
	}
	var res *ManifestResource
	for i := range ma.Resources {
		r := &ma.Resources[i]
		if r.Kind == kind && r.OriginalFileName == originalName {
			res = r
			break
		}
	}
	if res == nil {
		return SourceGone, nil
	}

	if _, err := s.fs.Lstat(destPath); err == nil {
		return AlreadyExists, nil
	}

	raw, err := billyutil.ReadFile(s.fs, common.JoinPath(s.dir, PayloadsDir, res.Payload))
	if err != nil {
		if os.IsNotExist(err) {
			return SourceGone, nil
		}
		return SourceGone, fmt.Errorf("read payload %s: %w", res.Payload, err)
	}
	if err := billyutil.WriteFile(s.fs, destPath, raw, 0644); err != nil {
		return SourceGone, fmt.Errorf("write %s: %w", destPath, err)
	}
	return Copied, nil
}

// ChildFolders lists folders whose parent is parentID. Manifest folders
// with an empty parent hang off the synthetic root.
func (s *ManifestSource) ChildFolders(ctx context.Context, parentID string) ([]Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Folder
	for _, f := range s.m.Folders {
		p := f.ParentID
		if p == "" {
			p = RootFolderID
		}
		if p == parentID {
			out = append(out, Folder{ID: f.ID, Name: f.Name})
		}
	}
	return out, nil
}

// ChildAlbums lists the non-shared albums owned by folderID.
func (s *ManifestSource) ChildAlbums(ctx context.Context, folderID string) ([]Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Album
	for _, a := range s.m.Albums {
		if a.Kind == AlbumShared {
			continue
		}
		f := a.FolderID
		if f == "" {
			f = RootFolderID
		}
		if f == folderID {
			out = append(out, Album{ID: a.ID, Name: a.Name, Kind: a.Kind, AssetIDs: a.AssetIDs})
		}
	}
	return out, nil
}

// SharedAlbums lists the drop's shared albums.
func (s *ManifestSource) SharedAlbums(ctx context.Context) ([]Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []Album
	for _, a := range s.m.Albums {
		if a.Kind == AlbumShared {
			out = append(out, Album{ID: a.ID, Name: a.Name, Kind: a.Kind, AssetIDs: a.AssetIDs})
		}
	}
	return out, nil
}

// ReverseLookup returns the manifest's address for an asset, or nil when
// none was recorded.
func (s *ManifestSource) ReverseLookup(ctx context.Context, assetID string) (*PostalAddress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr, ok := s.m.Locations[assetID]
	if !ok {
		return nil, nil
	}
	return &addr, nil
}
