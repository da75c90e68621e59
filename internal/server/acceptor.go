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

// Package server is the network acceptor and per-connection handler that
// sit above internal/kvcore: a bounded-concurrency TCP listener with
// Ethernet-style backoff on accept errors, and a graceful shutdown bus
// every accepted connection and background service participates in.
package server

import (
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"corekv/internal/kvcore"
	"corekv/internal/kverrors"
)

const (
	minBackoff = 1 * time.Second
	maxBackoff = 64 * time.Second
)

// Acceptor owns the listening socket and the connection-limit semaphore.
// climit is a buffered channel used as a counting semaphore: acquiring a
// permit is a blocking send, and it is only returned (a deferred receive
// in the spawned goroutine) once the connection it was taken for has
// fully torn down.
type Acceptor struct {
	listener net.Listener
	shared   *kvcore.SharedState
	shutdown *Shutdown
	climit   chan struct{}
	log      zerolog.Logger
}

// NewAcceptor constructs an Acceptor bound to listener, enforcing at most
// connLimit concurrently open connections.
func NewAcceptor(listener net.Listener, shared *kvcore.SharedState, shutdown *Shutdown, connLimit int, log zerolog.Logger) *Acceptor {
	return &Acceptor{
		listener: listener,
		shared:   shared,
		shutdown: shutdown,
		climit:   make(chan struct{}, connLimit),
		log:      log,
	}
}

// Run accepts connections until the listener is closed (which happens
// when shutdown fires, via the goroutine Run spawns to watch for it) or
// accept errors exhaust the backoff budget. It never returns an error for
// the ordinary "closed during shutdown" case.
func (a *Acceptor) Run() error {
	a.shutdown.Track()
	defer a.shutdown.Untrack()

	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-a.shutdown.Done():
			_ = a.listener.Close()
		case <-stopWatch:
		}
	}()

	for {
		select {
		case a.climit <- struct{}{}:
		case <-a.shutdown.Done():
			return nil
		}

		conn, err := a.accept()
		if err != nil {
			<-a.climit
			if isShutdownClose(err, a.shutdown) {
				return nil
			}
			return err
		}

		a.shutdown.Track()
		go func() {
			defer a.shutdown.Untrack()
			defer func() { <-a.climit }()
			handleConnection(conn, a.shared, a.shutdown, a.log)
		}()
	}
}

// accept retries transient errors with exponential backoff capped at
// maxBackoff, Ethernet-style. Giving up (backoff exceeding maxBackoff,
// i.e. more than seven consecutive failures) returns kverrors.ErrAcceptExhausted.
func (a *Acceptor) accept() (net.Conn, error) {
	backoff := minBackoff
	for {
		conn, err := a.listener.Accept()
		if err == nil {
			return conn, nil
		}
		if isShutdownClose(err, a.shutdown) {
			return nil, err
		}
		if backoff > maxBackoff {
			return nil, errors.Join(kverrors.ErrAcceptExhausted, err)
		}
		a.log.Warn().Err(err).Dur("backoff", backoff).Msg("accept failed, retrying")
		time.Sleep(backoff)
		backoff *= 2
	}
}

// isShutdownClose reports whether err is the listener-closed error that
// results from shutdown having closed the socket out from under Accept,
// as opposed to a genuine transient accept failure.
func isShutdownClose(err error, shutdown *Shutdown) bool {
	if !errors.Is(err, net.ErrClosed) {
		return false
	}
	select {
	case <-shutdown.Done():
		return true
	default:
		return false
	}
}
