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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mediamirror/internal/config"
	"mediamirror/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the mirror database and configuration",
	Long: `Create the mediamirror configuration directory, write a default
config.yaml (unless one exists) and create an empty mirror database.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	path := flagConfig
	if path == "" {
		path = config.Path()
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  config.yaml already exists (not modified)\n")
	} else {
		if err := cfg.Save(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Printf("  created %s\n", path)
	}

	store, err := storage.OpenOrCreate(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create mirror database: %w", err)
	}
	defer store.Close()

	fmt.Printf("Initialized mirror database at %s\n", store.Path())
	return nil
}
