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

// Package kvcore provides the coordination core of the database: the
// shared in-memory table, the command handlers that act on it, the two
// background persistence services, and the shared state that ties them to
// the network acceptor.
package kvcore

import (
	"iter"
	"sync"

	"corekv/internal/kvvalue"
)

// Value is re-exported for callers that only need the table's notion of a
// value without importing kvvalue directly.
type Value = kvvalue.Value

// Table is a mapping from string keys to Value blobs, guarded by a single
// reader/writer lock. Many concurrent readers (GET, DBSIZE, a point-in-time
// flush or snapshot) may proceed together; SET, UPDATE, and FLUSHDB take
// the lock exclusively. terminate is protected by the same lock: once set
// it never becomes false again.
type Table struct {
	mu        sync.RWMutex
	entries   map[string]*Value
	terminate bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*Value)}
}

// NewTableFrom creates a table pre-populated with entries, used when
// loading a persisted snapshot at startup.
func NewTableFrom(entries map[string]*Value) *Table {
	if entries == nil {
		entries = make(map[string]*Value)
	}
	return &Table{entries: entries}
}

// Get looks up key under a read lock.
func (t *Table) Get(key string) (*Value, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[key]
	return v, ok
}

// Set inserts key/value only if key is absent. Returns false (no change)
// if the key already exists.
func (t *Table) Set(key string, val *Value) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[key]; exists {
		return false
	}
	t.entries[key] = val
	return true
}

// Update overwrites key's value only if key is already present. Returns
// false if the key is absent.
func (t *Table) Update(key string, val *Value) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[key]; !exists {
		return false
	}
	t.entries[key] = val
	return true
}

// Flushdb removes all entries.
func (t *Table) Flushdb() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]*Value)
}

// Size returns the number of entries under a read lock.
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Terminated reports whether the terminate flag has been set.
func (t *Table) Terminated() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.terminate
}

// SetTerminate sets the terminate flag. Monotonic: calling it after it is
// already true is a no-op.
func (t *Table) SetTerminate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.terminate = true
}

// WithReadView runs f under the table's read lock, passing the terminate
// flag and entry count observed at the moment the lock was taken, plus an
// iterator over the live entries. f must not retain the iterated Values'
// backing map beyond the call and must not block on I/O other than what
// the caller (the encoder) needs to serialize bytes; it should not hold
// the lock across anything that could itself block indefinitely.
func (t *Table) WithReadView(f func(terminated bool, count int, entries iter.Seq2[string, *Value])) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f(t.terminate, len(t.entries), func(yield func(string, *Value) bool) {
		for k, v := range t.entries {
			if !yield(k, v) {
				return
			}
		}
	})
}
