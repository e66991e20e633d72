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

package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"mediamirror/internal/config"
	"mediamirror/internal/fsops"
	"mediamirror/internal/source"
	"mediamirror/internal/storage"
	"mediamirror/internal/sync"
)

var (
	flagExportRoot  string
	flagExpiryDays  int
	flagSkipAssets  bool
	flagSkipTree    bool
	flagSkipCopy    bool
	flagSkipViews   bool
	flagProgress    bool
)

var syncCmd = &cobra.Command{
	Use:   "sync <drop-dir>",
	Short: "Run one synchronization pass against an export drop",
	Long: `Run a full mirror pass against the export drop at <drop-dir>: asset and
file synchronization, collection tree synchronization, file
materialization and derived view rebuild. Interrupting with Ctrl-C stops
between items and leaves the mirror consistent.`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&flagExportRoot, "export-root", "", "override the configured export root")
	syncCmd.Flags().IntVar(&flagExpiryDays, "expiry-days", 0, "override the tombstone expiry window")
	syncCmd.Flags().BoolVar(&flagSkipAssets, "skip-assets", false, "skip the asset/file stage")
	syncCmd.Flags().BoolVar(&flagSkipTree, "skip-collections", false, "skip the collection tree stage")
	syncCmd.Flags().BoolVar(&flagSkipCopy, "skip-materialize", false, "skip the materializer stage")
	syncCmd.Flags().BoolVar(&flagSkipViews, "skip-views", false, "skip the derived view stage")
	syncCmd.Flags().BoolVar(&flagProgress, "progress", true, "log per-stage progress")
}

func runSync(cmd *cobra.Command, args []string) error {
	dropDir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve drop directory: %w", err)
	}

	if flagExportRoot != "" {
		cfg.ExportRoot = flagExportRoot
	}
	if flagExpiryDays > 0 {
		cfg.ExpiryDays = flagExpiryDays
	}
	if cfg.ExportRoot == "" {
		return fmt.Errorf("no export root configured; set export-root in config or pass --export-root")
	}
	off := false
	if flagSkipAssets {
		cfg.Stages.Assets = &off
	}
	if flagSkipTree {
		cfg.Stages.Collections = &off
	}
	if flagSkipCopy {
		cfg.Stages.Materialize = &off
	}
	if flagSkipViews {
		cfg.Stages.Views = &off
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	store, err := storage.OpenOrCreate(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open mirror database: %w", err)
	}
	defer store.Close()

	fs := fsops.NewOS()
	drop, err := source.OpenManifest(fs.Billy(), dropDir)
	if err != nil {
		return fmt.Errorf("failed to open export drop: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := sync.NewEngine(cfg, store, drop, drop, drop, fs, config.LockPath())
	run := engine.NewRun()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range run.Updates() {
			if !flagProgress {
				continue
			}
			fields := log.Fields{"stage": snap.Stage, "state": snap.State}
			if snap.Progress != nil {
				fields["done"] = snap.Progress.Done
				if snap.Progress.Total > 0 {
					fields["total"] = snap.Progress.Total
				}
			}
			log.WithFields(fields).Info("progress")
		}
	}()

	res, err := engine.Run(ctx, run)
	run.Close()
	<-done
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Cancellation is a clean stop, not a failure. Everything synced
		// before the interrupt is committed and kept.
		fmt.Println("Sync cancelled; work committed so far is kept.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	printSummary(res)
	return nil
}

func printSummary(res *sync.Result) {
	fmt.Printf("Sync finished in %s\n", res.Duration.Round(time.Millisecond))
	if res.Assets != nil {
		fmt.Printf("  assets:      %d inserted, %d updated, %d unchanged, %d skipped, %d deleted, %d purged\n",
			res.Assets.Assets.Inserted, res.Assets.Assets.Updated, res.Assets.Assets.Unchanged,
			res.Assets.SkippedAssets, res.Assets.AssetsDeleted, res.Assets.PurgedAssets)
		fmt.Printf("  files:       %d inserted, %d updated, %d unchanged, %d skipped, %d deleted\n",
			res.Assets.Files.Inserted, res.Assets.Files.Updated, res.Assets.Files.Unchanged,
			res.Assets.SkippedFiles, res.Assets.FilesDeleted)
	}
	if res.Collections != nil {
		fmt.Printf("  folders:     %d inserted, %d updated, %d deleted\n",
			res.Collections.Folders.Inserted, res.Collections.Folders.Updated, res.Collections.FoldersDeleted)
		fmt.Printf("  albums:      %d inserted, %d updated, %d deleted\n",
			res.Collections.Albums.Inserted, res.Collections.Albums.Updated, res.Collections.AlbumsDeleted)
	}
	if res.Materialize != nil {
		fmt.Printf("  materialize: %d copied, %d adopted, %d source-gone, %d orphans deleted\n",
			res.Materialize.Copied, res.Materialize.AlreadyExisted, res.Materialize.SourceGone,
			res.Materialize.OrphansDeleted)
	}
	if res.Views != nil {
		fmt.Printf("  views:       %d album links, %d location links, %d score links, %d skipped\n",
			res.Views.AlbumLinks, res.Views.LocationLinks, res.Views.ScoreLinks, res.Views.SkippedNodes)
	}
}
