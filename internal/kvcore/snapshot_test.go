// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package kvcore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestEnforceRetention_UnboundedKeepsEverything(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"20260101-000000.snapshot", "20260101-000001.snapshot", "20260101-000002.snapshot"} {
		writeEmptyFile(t, filepath.Join(dir, name))
	}

	if err := enforceRetention(dir, 0, zerolog.Nop()); err != nil {
		t.Fatalf("enforceRetention failed: %v", err)
	}
	files, err := listSnapshots(dir)
	if err != nil {
		t.Fatalf("listSnapshots failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected all 3 files retained, got %d", len(files))
	}
}

func TestEnforceRetention_EvictsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	names := []string{"20260101-000000.snapshot", "20260101-000001.snapshot", "20260101-000002.snapshot"}
	for _, name := range names {
		writeEmptyFile(t, filepath.Join(dir, name))
	}

	if err := enforceRetention(dir, 2, zerolog.Nop()); err != nil {
		t.Fatalf("enforceRetention failed: %v", err)
	}
	files, err := listSnapshots(dir)
	if err != nil {
		t.Fatalf("listSnapshots failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files retained, got %d: %v", len(files), files)
	}
	if files[0] != "20260101-000001.snapshot" || files[1] != "20260101-000002.snapshot" {
		t.Fatalf("expected the oldest file to be evicted, got %v", files)
	}
}

func TestMksnap_WritesAFileAndEnforcesRetention(t *testing.T) {
	dir := t.TempDir()
	table := NewTable()
	table.Set("k", NewValue([]byte("v")))

	var writes int
	flush := func(path string, tbl *Table) error {
		writes++
		return os.WriteFile(path, []byte("snapshot-bytes"), 0o644)
	}

	if err := mksnap(dir, table, 0, flush, zerolog.Nop()); err != nil {
		t.Fatalf("mksnap failed: %v", err)
	}
	if writes != 1 {
		t.Fatalf("expected exactly one flush call, got %d", writes)
	}
	files, err := listSnapshots(dir)
	if err != nil {
		t.Fatalf("listSnapshots failed: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected one snapshot file, got %d", len(files))
	}
}

func TestListSnapshots_MissingDirReturnsEmpty(t *testing.T) {
	files, err := listSnapshots(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("expected no error for a missing directory, got %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no files, got %v", files)
	}
}

func writeEmptyFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to write fixture file %s: %v", path, err)
	}
}
