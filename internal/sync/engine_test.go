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
	"context"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediamirror/internal/common"
	"mediamirror/internal/config"
	"mediamirror/internal/fsops"
	"mediamirror/internal/source"
	"mediamirror/internal/status"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Database:   "unused.db",
		ExportRoot: "export",
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestEngineFullRun(t *testing.T) {
	store := createTestStore(t)
	src := treeFixture()
	src.assets = []*source.Asset{
		imageAsset("a1", "IMG001.jpg", 1024, ts(t, "2025-04-15T10:30:05Z")),
		imageAsset("a2", "IMG002.jpg", 2048, ts(t, "2025-04-15T10:30:05Z")),
	}

	cfg := testConfig()
	engine := NewEngine(cfg, store, src, src, src, fsops.NewMem(), "")
	run := engine.NewRun()

	res, err := engine.Run(context.Background(), run)
	require.NoError(t, err)
	require.NotNil(t, res.Assets)
	require.NotNil(t, res.Collections)
	require.NotNil(t, res.Materialize)
	require.NotNil(t, res.Views)

	state, rerr := run.State()
	assert.Equal(t, status.Complete, state)
	assert.NoError(t, rerr)

	entry, err := store.LatestHistoryEntry(context.Background())
	require.NoError(t, err)
	assert.Contains(t, entry.ExportResult, "\"assets\"")
	assert.Greater(t, entry.AssetCount, int64(0))
}

func TestEngineSkipsDisabledStages(t *testing.T) {
	store := createTestStore(t)
	src := treeFixture()

	off := false
	cfg := testConfig()
	cfg.Stages.Materialize = &off
	cfg.Stages.Views = &off

	engine := NewEngine(cfg, store, src, src, src, fsops.NewMem(), "")
	run := engine.NewRun()

	res, err := engine.Run(context.Background(), run)
	require.NoError(t, err)
	assert.NotNil(t, res.Assets)
	assert.Nil(t, res.Materialize)
	assert.Nil(t, res.Views)

	assert.Equal(t, status.Skipped, run.Stage(StageMaterialize).Snapshot().State)
	assert.Equal(t, status.Skipped, run.Stage(StageViews).Snapshot().State)

	state, _ := run.State()
	assert.Equal(t, status.Complete, state)
}

func TestEngineNilRunIsValid(t *testing.T) {
	store := createTestStore(t)
	src := treeFixture()

	engine := NewEngine(testConfig(), store, src, src, src, fsops.NewMem(), "")
	_, err := engine.Run(context.Background(), nil)
	require.NoError(t, err)
}

func TestEngineRefusesConcurrentRun(t *testing.T) {
	store := createTestStore(t)
	src := newFakeSource()
	lockPath := filepath.Join(t.TempDir(), "run.lock")

	held := flock.New(lockPath)
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	engine := NewEngine(testConfig(), store, src, src, src, fsops.NewMem(), lockPath)
	_, err = engine.Run(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrLocked)
}

func TestEngineCancellationMarksStage(t *testing.T) {
	store := createTestStore(t)
	src := treeFixture()
	src.assets = []*source.Asset{imageAsset("a1", "IMG001.jpg", 1024, nil)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(testConfig(), store, src, src, src, fsops.NewMem(), "")
	run := engine.NewRun()
	_, err := engine.Run(ctx, run)
	// Callers tell cancellation apart from failure by the cause chain.
	require.ErrorIs(t, err, context.Canceled)

	state, _ := run.State()
	assert.Equal(t, status.Cancelled, state)
}
