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

package server

import "sync"

// Shutdown is a broadcast-plus-drain pair: one signal the acceptor and
// every connection select on, and a counter the main goroutine waits on to
// know every tracked task (connections, the acceptor and the background
// services) has actually exited. The background services do not select on
// the signal; they stop when kvcore.SharedState.Terminate fires. A closed channel
// gives cheap fan-out for the broadcast half; a sync.WaitGroup handles the
// drain half.
type Shutdown struct {
	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

// NewShutdown returns a ready-to-use Shutdown.
func NewShutdown() *Shutdown {
	return &Shutdown{done: make(chan struct{})}
}

// Done returns the broadcast channel; it is closed exactly once, by
// Trigger, and every receiver observes the close.
func (s *Shutdown) Done() <-chan struct{} { return s.done }

// Trigger fires the broadcast signal. Safe to call more than once or
// concurrently; only the first call has any effect.
func (s *Shutdown) Trigger() {
	s.once.Do(func() { close(s.done) })
}

// Track registers one more goroutine that must exit before Wait returns.
// Call once per accepted connection and per background service.
func (s *Shutdown) Track() { s.wg.Add(1) }

// Untrack marks a tracked goroutine as exited.
func (s *Shutdown) Untrack() { s.wg.Done() }

// Wait blocks until every tracked goroutine has called Untrack.
func (s *Shutdown) Wait() { s.wg.Wait() }
