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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediamirror/internal/common"
)

func TestHistoryEmpty(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LatestHistoryEntry(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)

	entries, err := s.ListHistoryEntries(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryInsertAndRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	for i := 0; i < 3; i++ {
		entry := NewHistoryEntry(`{"assets":{"inserted":1}}`,
			MirrorCounts{Assets: int64(i + 1), FileSizeTotal: 2048},
			90*time.Second, base.Add(time.Duration(i)*time.Hour))
		id, err := s.InsertHistoryEntry(ctx, entry)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}

	latest, err := s.LatestHistoryEntry(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), latest.AssetCount)
	assert.Equal(t, 90*time.Second, latest.RunTime)
	assert.Equal(t, base.Add(2*time.Hour), latest.CreatedAt)

	page, err := s.ListHistoryEntries(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].AssetCount)
	assert.Equal(t, int64(2), page[1].AssetCount)

	rest, err := s.ListHistoryEntries(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, int64(1), rest[0].AssetCount)
}
