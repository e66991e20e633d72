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
	"time"

	"github.com/gofrs/flock"
	log "github.com/sirupsen/logrus"

	"mediamirror/internal/cache"
	"mediamirror/internal/common"
	"mediamirror/internal/config"
	"mediamirror/internal/fsops"
	"mediamirror/internal/materialize"
	"mediamirror/internal/source"
	"mediamirror/internal/status"
	"mediamirror/internal/storage"
)

// Stage names reported through the status protocol.
const (
	StageAssets      = "assets"
	StageCollections = "collections"
	StageMaterialize = "materialize"
	StageViews       = "views"
)

// Engine runs the full mirror pipeline in fixed stage order. It is
// embeddable: callers may pass a nil status run and observe nothing.
type Engine struct {
	cfg         *config.Config
	store       *storage.Store
	assets      source.AssetSource
	collections source.CollectionSource
	locations   source.LocationSource
	fs          *fsops.FS
	lockPath    string
}

// NewEngine wires an engine over an open store and its sources.
// lockPath guards against concurrent runs; empty disables locking.
func NewEngine(cfg *config.Config, store *storage.Store, assets source.AssetSource,
	collections source.CollectionSource, locations source.LocationSource,
	fs *fsops.FS, lockPath string) *Engine {

	return &Engine{
		cfg:         cfg,
		store:       store,
		assets:      assets,
		collections: collections,
		locations:   locations,
		fs:          fs,
		lockPath:    lockPath,
	}
}

// NewRun returns a status run pre-declared with the engine's stages, for
// callers that want progress updates.
func (e *Engine) NewRun() *status.Run {
	return status.NewRun(StageAssets, StageCollections, StageMaterialize, StageViews)
}

// Run executes one full pass. Disabled stages report Skipped; a stage
// failure aborts the pipeline. run may be nil.
func (e *Engine) Run(ctx context.Context, run *status.Run) (*Result, error) {
	if e.lockPath != "" {
		lock := flock.New(e.lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("%w: another run holds %s", common.ErrLocked, e.lockPath)
		}
		defer lock.Unlock()
	}

	enabled := func(flag *bool) bool { return flag == nil || *flag }

	started := time.Now()
	now := started
	res := &Result{StartedAt: started}

	if enabled(e.cfg.Stages.Assets) {
		countries := cache.NewLookup(e.store.GetOrInsertCountry)
		cities := cache.NewLookup(e.store.GetOrInsertCity)
		syncer := NewAssetSyncer(e.store, e.assets, e.locations, countries, cities, e.cfg.ExpiryDays, e.cfg.Exclude)

		tracker := run.Stage(StageAssets)
		out, err := syncer.Run(ctx, now, tracker)
		if err != nil {
			finishTracker(tracker, err)
			return nil, err
		}
		finishTracker(tracker, nil)
		res.Assets = out
	} else {
		run.Stage(StageAssets).Skip()
	}

	if enabled(e.cfg.Stages.Collections) {
		tracker := run.Stage(StageCollections)
		out, err := NewTreeSyncer(e.store, e.collections).Run(ctx, tracker)
		if err != nil {
			finishTracker(tracker, err)
			return nil, err
		}
		finishTracker(tracker, nil)
		res.Collections = out
	} else {
		run.Stage(StageCollections).Skip()
	}

	if enabled(e.cfg.Stages.Materialize) {
		tracker := run.Stage(StageMaterialize)
		out, err := materialize.NewMaterializer(e.store, e.assets, e.fs, e.cfg.ExportRoot).Run(ctx, now, tracker)
		if err != nil {
			finishTracker(tracker, err)
			return nil, err
		}
		finishTracker(tracker, nil)
		res.Materialize = out
	} else {
		run.Stage(StageMaterialize).Skip()
	}

	if enabled(e.cfg.Stages.Views) {
		tracker := run.Stage(StageViews)
		out, err := materialize.NewViewBuilder(e.store, e.fs, e.cfg.ExportRoot, e.cfg.ScoreThreshold).Run(ctx, tracker)
		if err != nil {
			finishTracker(tracker, err)
			return nil, err
		}
		finishTracker(tracker, nil)
		res.Views = out
	} else {
		run.Stage(StageViews).Skip()
	}

	res.Duration = time.Since(started)

	counts, err := e.store.CountMirror(ctx)
	if err != nil {
		return nil, err
	}
	id, err := e.store.InsertHistoryEntry(ctx, storage.NewHistoryEntry(res.JSON(), counts, res.Duration, time.Now()))
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"history": id, "duration": res.Duration}).Info("[sync] run complete")
	return res, nil
}

// finishTracker maps a stage outcome to its terminal status state.
func finishTracker(t *status.Tracker, err error) {
	switch {
	case err == nil:
		t.Complete()
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		t.Cancel()
	default:
		t.Fail(err)
	}
}
