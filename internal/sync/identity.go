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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"mediamirror/internal/common"
	"mediamirror/internal/source"
)

// identityTimeLayout is the creation-time prefix of a file identity.
const identityTimeLayout = "20060102150405"

// zeroIdentityTime replaces the prefix when the creation time is unknown.
const zeroIdentityTime = "00000000000000"

// FileIdentity derives the deterministic identity string of one
// resource. It must be bit-exact across runs: stable when the file
// relocates (directory is not part of it), different when the filename
// or size changes.
//
//	20250415103005-2059074-img004.jpg
//	20250415103005-2059074-img004_edited.jpg
//	00000000000000-2059074-img004.jpg (unknown creation time)
func FileIdentity(createdAt *time.Time, size int64, kind source.ResourceKind, originalName string) string {
	prefix := zeroIdentityTime
	if createdAt != nil {
		prefix = createdAt.UTC().Format(identityTimeLayout)
	}

	base := filepath.Base(originalName)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = strings.ToLower(common.FoldDiacritics(stem))
	ext = strings.ToLower(ext)

	suffix := ""
	if kind.Edited() {
		suffix = "_edited"
	}
	return fmt.Sprintf("%s-%d-%s%s%s", prefix, size, stem, suffix, ext)
}

// ImportDir computes the import directory of a file from its asset's
// creation date and resolved location: "YYYY/MM_country_city" with
// slug-normalized segments, empty segments dropped. An unknown creation
// date maps to "0000/00".
func ImportDir(createdAt *time.Time, country, city string) string {
	year, month := 0, 0
	if createdAt != nil {
		t := createdAt.UTC()
		year, month = t.Year(), int(t.Month())
	}

	leaf := fmt.Sprintf("%02d", month)
	if c := common.SlugSegment(country); c != "" {
		leaf += "_" + c
	}
	if c := common.SlugSegment(city); c != "" {
		leaf += "_" + c
	}
	return fmt.Sprintf("%04d/%s", year, leaf)
}
