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

// Notifier is a one-slot wakeup channel: Notify is non-blocking and
// coalesces (a pending, un-consumed wakeup is not duplicated), and C
// exposes the channel to select against a timer. Used to wake the two
// background services early, and doubles as the shutdown signal:
// Terminate always fires both notifiers so an in-progress sleep unblocks
// immediately.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier returns a ready-to-use Notifier.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify wakes a waiter. Safe to call from any goroutine, any number of
// times; excess wakeups are dropped rather than queued.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// C returns the channel to select on.
func (n *Notifier) C() <-chan struct{} { return n.ch }

// SharedState is the process-wide state the acceptor, every per-connection
// task, and the two background services all read from.
//
// Shutdown is owned explicitly by internal/server.Shutdown, whose signal
// the acceptor and every connection select on and whose drain tracks the
// background services too; Terminate is called
// exactly once, by whoever decided to shut down, and exists here only as
// a belt-and-braces fast path the Table already needs for its own
// read/write exclusion. Never inferred from a reference count.
type SharedState struct {
	Table          *Table
	FlushNotify    *Notifier
	SnapshotNotify *Notifier
}

// NewSharedState constructs shared state around table.
func NewSharedState(table *Table) *SharedState {
	return &SharedState{
		Table:          table,
		FlushNotify:    NewNotifier(),
		SnapshotNotify: NewNotifier(),
	}
}

// Terminate sets the table's terminate flag and wakes both background
// notifiers so an in-progress sleep in either service unblocks promptly.
// Idempotent: Table.SetTerminate is itself monotonic, and waking an
// already-fired Notifier is harmless.
func (s *SharedState) Terminate() {
	s.Table.SetTerminate()
	s.FlushNotify.Notify()
	s.SnapshotNotify.Notify()
}
