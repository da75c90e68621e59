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
	"path/filepath"
	"testing"
)

func TestEncodeTableToFile_RoundTripsThroughLoadTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")

	table := NewTable()
	table.Set("a", NewValue([]byte("1")))
	table.Set("b", NewValue([]byte("2")))

	if err := EncodeTableToFile(path, table); err != nil {
		t.Fatalf("EncodeTableToFile failed: %v", err)
	}

	loaded, err := LoadTableFromFile(path)
	if err != nil {
		t.Fatalf("LoadTableFromFile failed: %v", err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", loaded.Size())
	}
	v, ok := loaded.Get("a")
	if !ok || string(v.Bytes()) != "1" {
		t.Fatalf("expected a=1 after round trip, got ok=%v v=%v", ok, v)
	}
}

func TestLoadTableFromFile_MissingFileIsEmptyNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.bin")
	table, err := LoadTableFromFile(path)
	if err != nil {
		t.Fatalf("expected no error for a missing data file, got %v", err)
	}
	if table.Size() != 0 {
		t.Fatalf("expected an empty table, got size %d", table.Size())
	}
}
