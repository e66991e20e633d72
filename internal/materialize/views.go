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
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"mediamirror/internal/fsops"
	"mediamirror/internal/status"
	"mediamirror/internal/storage"
)

// Directories of the derived views below the export root.
const (
	AlbumsDir    = "albums"
	LocationsDir = "locations"
	ScoredDir    = "scored"
)

// ViewsResult summarizes one derived-view stage.
type ViewsResult struct {
	AlbumLinks    int `json:"albumLinks"`
	LocationLinks int `json:"locationLinks"`
	ScoreLinks    int `json:"scoreLinks"`
	SkippedNodes  int `json:"skippedNodes"`
}

// relTarget rewrites a link target relative to the directory holding
// the link, so the export tree stays valid when relocated or mounted
// under a different root.
func relTarget(linkDir, target string) string {
	rel, err := filepath.Rel(linkDir, target)
	if err != nil {
		return target
	}
	return rel
}

// ViewBuilder renders the symlink-farm views over the materialized
// files. The album view is wiped and rebuilt each run; the location and
// score views are append-only and idempotent.
type ViewBuilder struct {
	store          *storage.Store
	fs             *fsops.FS
	root           string
	scoreThreshold float64
}

func NewViewBuilder(store *storage.Store, fs *fsops.FS, exportRoot string, scoreThreshold float64) *ViewBuilder {
	return &ViewBuilder{store: store, fs: fs, root: exportRoot, scoreThreshold: scoreThreshold}
}

// Run rebuilds all derived views.
func (v *ViewBuilder) Run(ctx context.Context, tracker *status.Tracker) (*ViewsResult, error) {
	tracker.Start(3)
	res := &ViewsResult{}

	if err := v.buildAlbumTree(ctx, res); err != nil {
		return nil, err
	}
	tracker.Advance(1)

	if err := v.buildLocationTree(ctx, res); err != nil {
		return nil, err
	}
	tracker.Advance(1)

	if err := v.buildScoreTree(ctx, res); err != nil {
		return nil, err
	}
	tracker.Advance(1)

	log.WithFields(log.Fields{
		"albumLinks":    res.AlbumLinks,
		"locationLinks": res.LocationLinks,
		"scoreLinks":    res.ScoreLinks,
		"skipped":       res.SkippedNodes,
	}).Debug("[materialize] views done")
	return res, nil
}
