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

// Package source defines the capability interfaces the sync engine
// consumes: an asset provider, a folder/album tree provider, and a
// location resolver. The engine never depends on a concrete provider.
package source

import (
	"context"
	"time"
)

// MediaKind classifies an asset. Values double as the surrogate ids
// seeded into the asset_type lookup table.
type MediaKind int

const (
	MediaUnknown MediaKind = 0
	MediaImage   MediaKind = 1
	MediaVideo   MediaKind = 2
	MediaAudio   MediaKind = 3
)

// Library identifies which upstream library an asset came from. Values
// double as the surrogate ids seeded into the library_type table.
type Library int

const (
	LibraryUnknown       Library = 0
	LibraryPersonal      Library = 1
	LibrarySharedLibrary Library = 2
	LibrarySharedAlbum   Library = 3
)

// ResourceKind classifies a physical resource attached to an asset.
// Values double as the surrogate ids seeded into the file_type table.
type ResourceKind int

const (
	ResourceUnknown       ResourceKind = 0
	ResourceOriginalImage ResourceKind = 1
	ResourceEditedImage   ResourceKind = 2
	ResourceOriginalVideo ResourceKind = 3
	ResourceEditedVideo   ResourceKind = 4
	ResourceOriginalAudio ResourceKind = 5
	ResourceEditedAudio   ResourceKind = 6
	ResourceLiveVideo     ResourceKind = 7
)

// Edited reports whether the resource is an edited variant of an
// original. Edited variants get an "_edited" suffix in file identities.
func (k ResourceKind) Edited() bool {
	switch k {
	case ResourceEditedImage, ResourceEditedVideo, ResourceEditedAudio:
		return true
	}
	return false
}

// Recognized reports whether the kind maps to a file_type row.
func (k ResourceKind) Recognized() bool {
	return k >= ResourceOriginalImage && k <= ResourceLiveVideo
}

// AlbumKind classifies an album. Values double as the surrogate ids
// seeded into the album_type table.
type AlbumKind int

const (
	AlbumUser   AlbumKind = 1
	AlbumShared AlbumKind = 2
)

// Resource is one physical payload of an asset as reported upstream.
type Resource struct {
	Kind             ResourceKind
	OriginalFileName string
	Size             int64
}

// Asset is one logical media item as reported upstream.
type Asset struct {
	ID         string
	Kind       MediaKind
	Library    Library
	CreatedAt  *time.Time
	ModifiedAt *time.Time
	Favourite  bool
	Latitude   *float64
	Longitude  *float64
	Score      *float64
	Resources  []Resource
}

// Folder is one node of the upstream folder tree.
type Folder struct {
	ID   string
	Name string
}

// Album is a leaf collection of asset ids under one folder.
type Album struct {
	ID       string
	Name     string
	Kind     AlbumKind
	AssetIDs []string
}

// PostalAddress carries the resolved location fields for an asset.
type PostalAddress struct {
	Country string
	City    string
}

// CopyOutcome is the result of a resource copy request.
type CopyOutcome int

const (
	// Copied means bytes were written to the destination.
	Copied CopyOutcome = iota
	// AlreadyExists means the destination already held the resource.
	// Treated as success by the materializer.
	AlreadyExists
	// SourceGone means the upstream resource no longer exists.
	SourceGone
)

func (o CopyOutcome) String() string {
	switch o {
	case Copied:
		return "copied"
	case AlreadyExists:
		return "already-exists"
	case SourceGone:
		return "source-gone"
	}
	return "unknown"
}

// AssetSource enumerates upstream assets and copies their resources.
// ForEachAsset must present a lazy, finite, restartable sequence; a
// second call re-enumerates from the start.
type AssetSource interface {
	// ForEachAsset calls fn once per asset. A non-nil error from fn
	// stops the enumeration and is returned as-is.
	ForEachAsset(ctx context.Context, fn func(a *Asset) error) error

	// CopyResource copies one resource of the given asset to destPath.
	// The returned outcome distinguishes the idempotent success variants
	// from a real copy; provider I/O failures are returned as errors.
	CopyResource(ctx context.Context, assetID string, kind ResourceKind, originalName, destPath string) (CopyOutcome, error)
}

// RootFolderID is the synthetic id the collection walk starts from.
// Providers must report their top-level folders as children of it.
const RootFolderID = "root"

// CollectionSource exposes the upstream folder/album tree.
type CollectionSource interface {
	ChildFolders(ctx context.Context, parentID string) ([]Folder, error)
	ChildAlbums(ctx context.Context, folderID string) ([]Album, error)

	// SharedAlbums lists cross-library albums that have no real folder
	// ownership upstream. They are attached under RootFolderID.
	SharedAlbums(ctx context.Context) ([]Album, error)
}

// LocationSource resolves asset ids to postal address fields.
// A nil address with nil error means "no location known".
type LocationSource interface {
	ReverseLookup(ctx context.Context, assetID string) (*PostalAddress, error)
}
