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

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")

	s, err := Create(path)
	require.NoError(t, err)

	// Root folder row is seeded.
	folder, err := s.GetFolder(context.Background(), RootFolderID)
	require.NoError(t, err)
	assert.Nil(t, folder.ParentID)

	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetFolder(context.Background(), RootFolderID)
	assert.NoError(t, err)
}

func TestCreateRefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")
	require.NoError(t, os.WriteFile(path, []byte("not a db"), 0644))

	_, err := Create(path)
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

func TestOpenOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.db")

	s, err := OpenOrCreate(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenOrCreate(path)
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}
