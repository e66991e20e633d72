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
	"errors"
	"fmt"
	"path/filepath"
	"time"

	ignore "github.com/sabhiram/go-gitignore"
	log "github.com/sirupsen/logrus"

	"mediamirror/internal/cache"
	"mediamirror/internal/common"
	"mediamirror/internal/source"
	"mediamirror/internal/status"
	"mediamirror/internal/storage"
)

// AssetSyncer walks the external asset source once per run and
// reconciles the store against it: upserts for everything observed,
// tombstones for everything that vanished, expiry purge at the end.
type AssetSyncer struct {
	store     *storage.Store
	src       source.AssetSource
	locations source.LocationSource
	countries *cache.Lookup
	cities    *cache.Lookup
	exclude   *ignore.GitIgnore
	expiry    time.Duration
}

// NewAssetSyncer wires one syncer for one run. The lookup caches are
// owned by the run, never shared across runs.
func NewAssetSyncer(store *storage.Store, src source.AssetSource, locations source.LocationSource,
	countries, cities *cache.Lookup, expiryDays int, excludePatterns []string) *AssetSyncer {

	var exclude *ignore.GitIgnore
	if len(excludePatterns) > 0 {
		exclude = ignore.CompileIgnoreLines(excludePatterns...)
	}
	return &AssetSyncer{
		store:     store,
		src:       src,
		locations: locations,
		countries: countries,
		cities:    cities,
		exclude:   exclude,
		expiry:    time.Duration(expiryDays) * 24 * time.Hour,
	}
}

// Run executes one asset/file synchronization pass. Conversion failures
// skip the one item; store write failures abort the whole run.
// Cancellation is checked between assets only.
func (s *AssetSyncer) Run(ctx context.Context, now time.Time, tracker *status.Tracker) (*AssetSyncResult, error) {
	// Baselines snapshot the store before touching the external source;
	// whatever survives the walk is no longer present upstream.
	baselineAssets, err := s.store.LiveAssetIDs(ctx)
	if err != nil {
		return nil, err
	}
	baselineFiles, err := s.store.LiveFileIDs(ctx)
	if err != nil {
		return nil, err
	}

	res := &AssetSyncResult{}
	tracker.Start(0)

	err = s.src.ForEachAsset(ctx, func(a *source.Asset) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.syncOne(ctx, a, now, res, baselineAssets, baselineFiles); err != nil {
			return err
		}
		tracker.Advance(1)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reconcile deletions: tombstone what the walk did not observe.
	for id := range baselineAssets {
		if err := s.store.MarkAssetDeleted(ctx, id, now); err != nil {
			return nil, err
		}
		res.AssetsDeleted++
	}
	for id := range baselineFiles {
		if err := s.store.MarkFileDeleted(ctx, id, now); err != nil {
			return nil, err
		}
		res.FilesDeleted++
	}

	counts, err := s.store.PurgeExpired(ctx, now.Add(-s.expiry))
	if err != nil {
		return nil, err
	}
	res.PurgedAssets = counts.Assets
	res.PurgedLinks = counts.Links

	log.WithFields(log.Fields{
		"assets":  res.Assets.Total(),
		"files":   res.Files.Total(),
		"deleted": res.AssetsDeleted,
		"purged":  res.PurgedAssets,
	}).Debug("[sync] asset pass done")
	return res, nil
}

func (s *AssetSyncer) syncOne(ctx context.Context, a *source.Asset, now time.Time,
	res *AssetSyncResult, baselineAssets, baselineFiles map[string]struct{}) error {

	rec, country, city, err := s.convertAsset(ctx, a, now)
	if err != nil {
		if isStoreError(err) {
			return err
		}
		log.Warnf("[sync] skipping asset %s: %v", a.ID, err)
		res.SkippedAssets++
		return nil
	}

	upres, err := s.store.UpsertAsset(ctx, rec)
	if err != nil {
		return err
	}
	res.Assets.Add(upres)
	delete(baselineAssets, rec.ID)

	dir := ImportDir(a.CreatedAt, country, city)
	for _, r := range a.Resources {
		if !r.Kind.Recognized() {
			log.Warnf("[sync] skipping resource %q of asset %s: %v", r.OriginalFileName, a.ID, common.ErrInvalidKind)
			res.SkippedFiles++
			continue
		}
		if s.exclude != nil && s.exclude.MatchesPath(r.OriginalFileName) {
			log.Debugf("[sync] resource %q excluded by pattern", r.OriginalFileName)
			res.SkippedFiles++
			continue
		}

		fileID := FileIdentity(a.CreatedAt, r.Size, r.Kind, r.OriginalFileName)
		file := &storage.File{
			ID:               fileID,
			FileTypeID:       int(r.Kind),
			OriginalFileName: filepath.Base(r.OriginalFileName),
			FileSize:         r.Size,
			ImportedAt:       now,
			ImportedFileDir:  dir,
			ImportedFileName: fileID,
		}
		upres, err := s.store.UpsertFile(ctx, file)
		if err != nil {
			return err
		}
		res.Files.Add(upres)
		delete(baselineFiles, fileID)

		upres, err = s.store.UpsertAssetFile(ctx, rec.ID, fileID)
		if err != nil {
			return err
		}
		res.Links.Add(upres)
	}
	return nil
}

// convertAsset maps one upstream asset to a store record, resolving its
// location through the per-run lookup caches. Returns the resolved
// country and city names for import-directory derivation.
func (s *AssetSyncer) convertAsset(ctx context.Context, a *source.Asset, now time.Time) (*storage.Asset, string, string, error) {
	if a.ID == "" {
		return nil, "", "", fmt.Errorf("%w: empty id", common.ErrInvalidAsset)
	}
	if a.Kind < source.MediaImage || a.Kind > source.MediaAudio {
		return nil, "", "", fmt.Errorf("%w: media kind %d", common.ErrInvalidAsset, a.Kind)
	}
	if a.Library < source.LibraryPersonal || a.Library > source.LibrarySharedAlbum {
		return nil, "", "", fmt.Errorf("%w: library %d", common.ErrInvalidAsset, a.Library)
	}

	rec := &storage.Asset{
		ID:          a.ID,
		AssetTypeID: int(a.Kind),
		LibraryID:   int(a.Library),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.ModifiedAt,
		ImportedAt:  now,
		Favourite:   a.Favourite,
		Latitude:    a.Latitude,
		Longitude:   a.Longitude,
		Score:       a.Score,
	}

	var country, city string
	if a.Latitude != nil && a.Longitude != nil && s.locations != nil {
		addr, err := s.locations.ReverseLookup(ctx, a.ID)
		if err != nil {
			// Location is an enrichment; a provider hiccup must not drop
			// the asset.
			log.Warnf("[sync] location lookup for asset %s failed: %v", a.ID, err)
		} else if addr != nil {
			if addr.Country != "" {
				id, err := s.countries.ID(ctx, addr.Country)
				if err != nil {
					return nil, "", "", wrapStoreError(err)
				}
				rec.CountryID = &id
				country = addr.Country
			}
			if addr.City != "" {
				id, err := s.cities.ID(ctx, addr.City)
				if err != nil {
					return nil, "", "", wrapStoreError(err)
				}
				rec.CityID = &id
				city = addr.City
			}
		}
	}
	return rec, country, city, nil
}

// storeError marks failures that must abort the run instead of skipping
// the current item.
type storeError struct{ err error }

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func wrapStoreError(err error) error {
	return &storeError{err: err}
}

func isStoreError(err error) bool {
	var se *storeError
	return errors.As(err, &se)
}
