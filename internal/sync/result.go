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
	"encoding/json"
	"time"

	"mediamirror/internal/materialize"
	"mediamirror/internal/storage"
)

// Tally counts upsert outcomes for one entity class.
type Tally struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// Add folds one upsert result into the tally.
func (t *Tally) Add(res storage.UpsertResult) {
	switch res {
	case storage.Inserted:
		t.Inserted++
	case storage.Updated:
		t.Updated++
	case storage.Unchanged:
		t.Unchanged++
	}
}

// Total returns the number of counted upserts.
func (t *Tally) Total() int {
	return t.Inserted + t.Updated + t.Unchanged
}

// AssetSyncResult summarizes one asset/file synchronization stage.
type AssetSyncResult struct {
	Assets        Tally `json:"assets"`
	Files         Tally `json:"files"`
	Links         Tally `json:"links"`
	SkippedAssets int   `json:"skippedAssets"`
	SkippedFiles  int   `json:"skippedFiles"`
	AssetsDeleted int   `json:"assetsDeleted"`
	FilesDeleted  int   `json:"filesDeleted"`
	PurgedAssets  int64 `json:"purgedAssets"`
	PurgedLinks   int64 `json:"purgedLinks"`
}

// CollectionSyncResult summarizes one collection-tree stage.
type CollectionSyncResult struct {
	Folders        Tally `json:"folders"`
	Albums         Tally `json:"albums"`
	FoldersDeleted int   `json:"foldersDeleted"`
	AlbumsDeleted  int   `json:"albumsDeleted"`
}

// Result is the aggregated outcome of one full run, persisted as a
// history entry.
type Result struct {
	StartedAt   time.Time                `json:"startedAt"`
	Duration    time.Duration            `json:"duration"`
	Assets      *AssetSyncResult         `json:"assets,omitempty"`
	Collections *CollectionSyncResult    `json:"collections,omitempty"`
	Materialize *materialize.CopyResult  `json:"materialize,omitempty"`
	Views       *materialize.ViewsResult `json:"views,omitempty"`
}

// JSON renders the result for the history row.
func (r *Result) JSON() string {
	raw, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
