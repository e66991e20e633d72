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

// Package materialize turns mirror state into bytes on disk: it copies
// pending file payloads under the export root and removes files no
// mirror row references anymore.
package materialize

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"mediamirror/internal/common"
	"mediamirror/internal/fsops"
	"mediamirror/internal/source"
	"mediamirror/internal/status"
	"mediamirror/internal/storage"
	"mediamirror/internal/util"
)

// FilesDir is the directory under the export root that holds the
// materialized payloads. The derived views symlink into it.
const FilesDir = "files"

// CopyResult summarizes one materializer stage.
type CopyResult struct {
	Copied         int `json:"copied"`
	AlreadyExisted int `json:"alreadyExisted"`
	SourceGone     int `json:"sourceGone"`
	OrphansDeleted int `json:"orphansDeleted"`
}

// Materializer copies pending payloads and deletes orphaned files.
type Materializer struct {
	store *storage.Store
	src   source.AssetSource
	fs    *fsops.FS
	root  string
}

func NewMaterializer(store *storage.Store, src source.AssetSource, fs *fsops.FS, exportRoot string) *Materializer {
	return &Materializer{store: store, src: src, fs: fs, root: exportRoot}
}

// FilePath returns the materialized path of a file below the export root.
func FilePath(root, dir, name string) string {
	return common.JoinPath(root, FilesDir, dir, name)
}

// Run executes one materialization pass: copy everything pending, then
// delete orphans. Cancellation is checked between files.
func (m *Materializer) Run(ctx context.Context, now time.Time, tracker *status.Tracker) (*CopyResult, error) {
	pending, err := m.store.FilesNeedingCopy(ctx)
	if err != nil {
		return nil, err
	}
	orphans, err := m.store.OrphanedFiles(ctx)
	if err != nil {
		return nil, err
	}
	tracker.Start(len(pending) + len(orphans))

	res := &CopyResult{}
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.copyOne(ctx, p, now, res); err != nil {
			return nil, err
		}
		tracker.Advance(1)
	}

	for _, f := range orphans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := FilePath(m.root, f.ImportedFileDir, f.ImportedFileName)
		if err := m.fs.Remove(path); err != nil {
			return nil, err
		}
		if err := m.store.DeleteFile(ctx, f.ID); err != nil {
			return nil, err
		}
		res.OrphansDeleted++
		tracker.Advance(1)
	}

	log.WithFields(log.Fields{
		"copied":  res.Copied,
		"existed": res.AlreadyExisted,
		"gone":    res.SourceGone,
		"orphans": res.OrphansDeleted,
	}).Debug("[materialize] pass done")
	return res, nil
}

// copyOne tries each live referencing asset in turn until one of them
// still holds the payload. Vanished references are tombstoned so the
// file can age out through the orphan path.
func (m *Materializer) copyOne(ctx context.Context, p *storage.FileNeedingCopy, now time.Time, res *CopyResult) error {
	f := p.File
	dest := FilePath(m.root, f.ImportedFileDir, f.ImportedFileName)
	if err := m.fs.CreateDirectory(common.JoinPath(m.root, FilesDir, f.ImportedFileDir)); err != nil {
		return err
	}

	for _, assetID := range p.AssetIDs {
		outcome, err := util.RetryWithResult(ctx, func() (source.CopyOutcome, error) {
			return m.src.CopyResource(ctx, assetID, source.ResourceKind(f.FileTypeID), f.OriginalFileName, dest)
		}, util.DefaultRetryOptions(ctx)...)
		if err != nil {
			return err
		}

		switch outcome {
		case source.Copied:
			res.Copied++
		case source.AlreadyExists:
			log.Warnf("[materialize] %s already present, adopting", dest)
			res.AlreadyExisted++
		case source.SourceGone:
			log.Warnf("[materialize] asset %s no longer holds %s", assetID, f.ID)
			if err := m.store.MarkAssetFileDeleted(ctx, assetID, f.ID, now); err != nil {
				return err
			}
			res.SourceGone++
			continue
		}
		return m.store.SetFileCopied(ctx, f.ID)
	}

	// All referencing assets lost the payload; the file stays uncopied
	// and its links age out toward the orphan path.
	return nil
}
