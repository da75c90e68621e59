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
	"time"

	"github.com/rs/zerolog"
)

// FlushFunc persists entries to path; it is the seam kvcore depends on
// instead of importing internal/encoding directly, so kvcore never needs
// to know the on-disk format.
type FlushFunc func(path string, table *Table) error

// RunBGSave is the persistence scheduler. Disabled mode parks on the
// shared flush notifier (which also carries the shutdown wakeup) and
// returns without doing anything. Enabled mode loops: flush, then wait
// for the interval to elapse or the notifier to fire, whichever comes
// first, re-checking terminate each time around.
func RunBGSave(shared *SharedState, path string, enabled bool, interval time.Duration, flush FlushFunc, log zerolog.Logger) {
	if !enabled {
		<-shared.FlushNotify.C()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if shared.Table.Terminated() {
			return
		}
		runOneFlush(shared, path, flush, log)

		select {
		case <-ticker.C:
		case <-shared.FlushNotify.C():
		}

		if shared.Table.Terminated() {
			return
		}
	}
}

// runOneFlush performs a single BGSAVE pass. It skips the flush (but does
// not error) if terminate is already observed, and logs rather than
// propagates an encode/write failure, so the next interval simply tries
// again.
func runOneFlush(shared *SharedState, path string, flush FlushFunc, log zerolog.Logger) {
	if shared.Table.Terminated() {
		return
	}
	RecordTableSize(shared.Table.Size())
	start := time.Now()
	if err := flush(path, shared.Table); err != nil {
		RecordFlushError("bgsave")
		log.Warn().Err(err).Str("path", path).Msg("bgsave flush failed, will retry next interval")
		return
	}
	RecordFlushDuration(time.Since(start))
}
