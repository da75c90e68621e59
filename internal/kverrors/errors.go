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

// Package kverrors collects the sentinel error kinds shared across the
// database core, the persistence layer, and the network acceptor.
package kverrors

import "errors"

// Sentinel errors a caller can match with errors.Is. Per-command outcomes
// that are always surfaced to the client as a wire token (ACTION_ERR,
// OVERWRITE_ERR, NIL) never need a Go error value of their own; only
// failures that escalate to process- or connection-level handling do.
var (
	// ErrCorruptStore is returned by decode when on-disk bytes are malformed.
	ErrCorruptStore = errors.New("kverrors: corrupt store")

	// ErrAcceptExhausted marks an accept loop giving up after sustained backoff.
	ErrAcceptExhausted = errors.New("kverrors: accept backoff exhausted")
)

// PersistenceError wraps an encode, decode or file I/O failure. From BGSAVE
// or the snapshot engine it is not fatal: callers log it and continue. From
// loading the data file at startup (a decode failure also wraps
// ErrCorruptStore) it aborts startup.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return "kverrors: persistence: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DecodeError wraps a wire-protocol parse failure on a client connection.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "kverrors: decode: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }
