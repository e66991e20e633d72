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

	log "github.com/sirupsen/logrus"

	"mediamirror/internal/common"
)

// buildLocationTree renders locations/<year>/<country>/<city>/ links for
// every copied file whose earliest referencing asset carries a resolved
// location. The view is append-only; existing links are left alone.
func (v *ViewBuilder) buildLocationTree(ctx context.Context, res *ViewsResult) error {
	located, err := v.store.FilesWithLocation(ctx)
	if err != nil {
		return err
	}

	for _, f := range located {
		if err := ctx.Err(); err != nil {
			return err
		}
		country := common.PathSafeName(f.Country)
		city := common.PathSafeName(f.City)
		if country == "" || city == "" {
			log.Warnf("[views] file %s has no path-safe location, skipping", f.FileID)
			res.SkippedNodes++
			continue
		}

		dir := common.JoinPath(v.root, LocationsDir, fmt.Sprintf("%04d", f.TakenAt.Year()), country, city)
		if err := v.fs.CreateDirectory(dir); err != nil {
			return err
		}
		target := relTarget(dir, FilePath(v.root, f.ImportedFileDir, f.ImportedFileName))
		created, err := v.fs.CreateSymlink(target, common.JoinPath(dir, f.ImportedFileName))
		if err != nil {
			return err
		}
		if created {
			res.LocationLinks++
		}
	}
	return nil
}
