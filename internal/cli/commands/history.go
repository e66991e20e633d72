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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mediamirror/internal/storage"
)

var (
	flagHistoryLimit int
	flagHistoryJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past synchronization runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 10, "number of runs to show")
	historyCmd.Flags().BoolVar(&flagHistoryJSON, "json", false, "print raw per-run result JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := storage.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open mirror database: %w", err)
	}
	defer store.Close()

	entries, err := store.ListHistoryEntries(context.Background(), flagHistoryLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, e := range entries {
		fmt.Printf("%s  %s  assets=%d files=%d albums=%d folders=%d size=%d runtime=%s\n",
			e.CreatedAt.UTC().Format(time.RFC3339), e.ID,
			e.AssetCount, e.FileCount, e.AlbumCount, e.FolderCount,
			e.FileSizeTotal, e.RunTime.Round(time.Millisecond))
		if flagHistoryJSON {
			fmt.Printf("  %s\n", e.ExportResult)
		}
	}
	return nil
}
