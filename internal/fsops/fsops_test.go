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

package fsops

import (
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediamirror/internal/common"
)

func TestCreateDirectoryIdempotent(t *testing.T) {
	fs := NewMem()

	require.NoError(t, fs.CreateDirectory("a/b/c"))
	require.NoError(t, fs.CreateDirectory("a/b/c"))

	exists, err := fs.PathExists("a/b/c")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateDirectoryOverFile(t *testing.T) {
	fs := NewMem()
	require.NoError(t, util.WriteFile(fs.Billy(), "occupied", []byte("x"), 0644))

	err := fs.CreateDirectory("occupied/sub")
	assert.ErrorIs(t, err, common.ErrNotADirectory)

	err = fs.CreateDirectory("occupied")
	assert.ErrorIs(t, err, common.ErrNotADirectory)
}

func TestCreateSymlinkIdempotent(t *testing.T) {
	fs := NewMem()
	require.NoError(t, fs.CreateDirectory("links"))

	created, err := fs.CreateSymlink("/target/file.jpg", "links/file.jpg")
	require.NoError(t, err)
	assert.True(t, created)

	// Second call reports "already exists" as success, not error.
	created, err = fs.CreateSymlink("/target/file.jpg", "links/file.jpg")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRemoveMissingPath(t *testing.T) {
	fs := NewMem()
	assert.NoError(t, fs.Remove("never/created"))
}

func TestRemoveRecursive(t *testing.T) {
	fs := NewMem()
	require.NoError(t, fs.CreateDirectory("tree/sub"))
	require.NoError(t, util.WriteFile(fs.Billy(), "tree/sub/f.txt", []byte("x"), 0644))

	require.NoError(t, fs.Remove("tree"))

	exists, err := fs.PathExists("tree")
	require.NoError(t, err)
	assert.False(t, exists)
}
