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
	"iter"

	"corekv/internal/encoding"
)

// EncodeTableToFile is the concrete FlushFunc both background services use.
// It takes a point-in-time read-locked view of table and writes it to path
// via internal/encoding. encoding.Flush runs inside WithReadView, so the
// read lock is held for the whole file write: readers proceed, writers
// wait until the file is written and closed.
func EncodeTableToFile(path string, table *Table) error {
	var innerErr error
	table.WithReadView(func(_ bool, count int, entries iter.Seq2[string, *Value]) {
		innerErr = encoding.Flush(path, entries, count)
	})
	return innerErr
}

// LoadTableFromFile reads path (via internal/encoding) and returns a Table
// seeded with its contents. A missing file yields an empty table, not an
// error.
func LoadTableFromFile(path string) (*Table, error) {
	entries, err := encoding.Load(path)
	if err != nil {
		return nil, err
	}
	return NewTableFrom(entries), nil
}
