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

package common

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizePath cleans and normalizes a path, removing leading/trailing slashes
func NormalizePath(path string) string {
	path = filepath.Clean(path)
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "." {
		return ""
	}
	return path
}

// JoinPath joins path components
func JoinPath(parts ...string) string {
	return NormalizePath(filepath.Join(parts...))
}

// stripDiacritics removes combining marks after NFD decomposition, so
// "Café" folds to "Cafe". Characters that do not decompose pass through.
var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// FoldDiacritics returns s with diacritic marks removed.
func FoldDiacritics(s string) string {
	folded, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		return s
	}
	return folded
}

// PathSafeName converts an external display name (folder, album) into a
// name safe to use as a single directory component. Path separators and
// control characters become underscores, surrounding whitespace is
// trimmed. Returns "" when nothing printable is left; callers must treat
// an empty result as "skip this node".
func PathSafeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), " .")
	if strings.Trim(out, "_") == "" {
		return ""
	}
	return out
}

// SlugSegment normalizes a free-form name (country, city) into a compact
// lowercase segment for import directory paths: diacritics folded, then
// everything outside [a-z0-9] dropped. "United Kingdom" -> "unitedkingdom".
func SlugSegment(name string) string {
	name = strings.ToLower(FoldDiacritics(name))
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
