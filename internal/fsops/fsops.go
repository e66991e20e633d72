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

// Package fsops wraps a billy filesystem with the small set of
// primitives the materializer and view builders need. Production code
// uses osfs; tests run the same code against memfs.
package fsops

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"mediamirror/internal/common"
)

// FS exposes idempotent filesystem primitives over a billy backend.
type FS struct {
	fs billy.Filesystem
}

// New wraps an arbitrary billy filesystem.
func New(fs billy.Filesystem) *FS {
	return &FS{fs: fs}
}

// NewOS returns an FS rooted at the OS filesystem root.
func NewOS() *FS {
	return New(osfs.New("/"))
}

// NewMem returns an in-memory FS for tests.
func NewMem() *FS {
	return New(memfs.New())
}

// Billy returns the underlying filesystem.
func (f *FS) Billy() billy.Filesystem {
	return f.fs
}

// PathExists reports whether path exists (file, dir, or symlink).
func (f *FS) PathExists(path string) (bool, error) {
	if _, err := f.fs.Lstat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateDirectory creates path and any missing parents. Creating an
// existing directory is a no-op; a plain file occupying path or any
// parent is an error. The component walk is needed because memfs's
// MkdirAll returns nil over an existing file.
func (f *FS) CreateDirectory(path string) error {
	var prefix string
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}
		if prefix == "" {
			prefix = seg
		} else {
			prefix = prefix + "/" + seg
		}
		fi, err := f.fs.Lstat(prefix)
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
		if fi.Mode().IsRegular() {
			return fmt.Errorf("create directory %s: %w: %s", path, common.ErrNotADirectory, prefix)
		}
	}
	if err := f.fs.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// CreateSymlink links link -> target. Returns true if the link was
// created, false if a path already existed there ("already exists" is a
// success, never an error).
func (f *FS) CreateSymlink(target, link string) (bool, error) {
	err := f.fs.Symlink(target, link)
	if err == nil {
		return true, nil
	}
	if os.IsExist(err) || errors.Is(err, os.ErrExist) {
		return false, nil
	}
	return false, fmt.Errorf("create symlink %s: %w", link, err)
}

// Remove deletes path recursively. Removing a missing path is a no-op.
func (f *FS) Remove(path string) error {
	if err := util.RemoveAll(f.fs, path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
