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
	"fmt"
	"math"

	"mediamirror/internal/common"
)

// buildScoreTree renders a flat scored/ directory of links for every
// copied file whose best referencing-asset score meets the threshold.
// Link names carry a zero-padded permille prefix so a plain directory
// listing sorts best-first. Append-only like the location view.
func (v *ViewBuilder) buildScoreTree(ctx context.Context, res *ViewsResult) error {
	scored, err := v.store.FilesAboveScore(ctx, v.scoreThreshold)
	if err != nil {
		return err
	}
	if len(scored) == 0 {
		return nil
	}

	dir := common.JoinPath(v.root, ScoredDir)
	if err := v.fs.CreateDirectory(dir); err != nil {
		return err
	}
	for _, f := range scored {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := fmt.Sprintf("%04d_%s", int(math.Round(f.Score*1000)), f.ImportedFileName)
		target := relTarget(dir, FilePath(v.root, f.ImportedFileDir, f.ImportedFileName))
		created, err := v.fs.CreateSymlink(target, common.JoinPath(dir, name))
		if err != nil {
			return err
		}
		if created {
			res.ScoreLinks++
		}
	}
	return nil
}
