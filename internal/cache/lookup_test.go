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

package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupWriteThrough(t *testing.T) {
	calls := 0
	l := NewLookup(func(ctx context.Context, name string) (int64, error) {
		calls++
		return int64(len(name)), nil
	})
	ctx := context.Background()

	id, err := l.ID(ctx, "London")
	require.NoError(t, err)
	assert.Equal(t, int64(6), id)
	assert.Equal(t, 1, calls)

	// Second resolution of the same name is a cache hit.
	id, err = l.ID(ctx, "London")
	require.NoError(t, err)
	assert.Equal(t, int64(6), id)
	assert.Equal(t, 1, calls)

	_, err = l.ID(ctx, "Paris")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, l.Len())
}

func TestLookupErrorNotCached(t *testing.T) {
	boom := errors.New("boom")
	fail := true
	l := NewLookup(func(ctx context.Context, name string) (int64, error) {
		if fail {
			return 0, boom
		}
		return 42, nil
	})
	ctx := context.Background()

	_, err := l.ID(ctx, "London")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, l.Len())

	fail = false
	id, err := l.ID(ctx, "London")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}
