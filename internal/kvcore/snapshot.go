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
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// snapshotSuffix is the fixed filename suffix every snapshot carries, so
// listSnapshots can tell snapshot files apart from anything else an
// operator might drop in the snapshot directory.
const snapshotSuffix = ".snapshot"

// snapshotTimeLayout produces lexicographically-sortable, second-precision
// UTC filenames. A snapshot interval of one second or less can produce a
// same-second collision; config validation rejects intervals that short
// rather than changing the filename format.
const snapshotTimeLayout = "20060102-150405"

// RunSnapshot is the snapshot engine. Its shape mirrors RunBGSave exactly:
// disabled mode parks on the snapshot notifier and returns; enabled mode
// loops snapshot-then-wait, re-checking terminate each time around.
func RunSnapshot(shared *SharedState, dir string, enabled bool, interval time.Duration, maxKept int, flush FlushFunc, log zerolog.Logger) {
	if !enabled {
		<-shared.SnapshotNotify.C()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if shared.Table.Terminated() {
			return
		}
		runOneSnapshot(shared, dir, maxKept, flush, log)

		select {
		case <-ticker.C:
		case <-shared.SnapshotNotify.C():
		}

		if shared.Table.Terminated() {
			return
		}
	}
}

// runOneSnapshot performs one mksnap pass: write a new timestamped
// snapshot, then evict the oldest files down to maxKept (maxKept <= 0
// means retain every snapshot; an operator prunes out-of-band).
func runOneSnapshot(shared *SharedState, dir string, maxKept int, flush FlushFunc, log zerolog.Logger) {
	if shared.Table.Terminated() {
		return
	}
	if err := mksnap(dir, shared.Table, maxKept, flush, log); err != nil {
		RecordFlushError("snapshot")
		log.Warn().Err(err).Str("dir", dir).Msg("snapshot failed, will retry next interval")
	}
}

// mksnap writes a new snapshot file into dir and then enforces the
// retention policy.
func mksnap(dir string, table *Table, maxKept int, flush FlushFunc, log zerolog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	name := time.Now().UTC().Format(snapshotTimeLayout) + snapshotSuffix
	path := filepath.Join(dir, name)

	start := time.Now()
	if err := flush(path, table); err != nil {
		return err
	}
	RecordFlushDuration(time.Since(start))

	return enforceRetention(dir, maxKept, log)
}

// enforceRetention deletes the oldest snapshot files until at most maxKept
// remain. maxKept <= 0 disables eviction entirely.
func enforceRetention(dir string, maxKept int, log zerolog.Logger) error {
	files, err := listSnapshots(dir)
	if err != nil {
		return err
	}
	RecordSnapshotQueueDepth(len(files))

	if maxKept <= 0 || len(files) <= maxKept {
		return nil
	}

	evict := files[:len(files)-maxKept]
	for _, name := range evict {
		p := filepath.Join(dir, name)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", p).Msg("failed to evict old snapshot")
			continue
		}
	}
	RecordSnapshotQueueDepth(len(files) - len(evict))
	return nil
}

// listSnapshots returns the snapshot filenames in dir, oldest first. The
// fixed-width timestamp layout makes lexicographic and chronological order
// coincide, so a plain string sort is sufficient.
func listSnapshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), snapshotSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
