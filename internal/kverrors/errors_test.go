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

package kverrors

import (
	"errors"
	"testing"
)

func TestPersistenceError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("disk full")
	err := &PersistenceError{Op: "flush", Path: "/tmp/data.bin", Err: cause}

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected a non-empty error message")
	}
}

func TestDecodeError_UnwrapsToCause(t *testing.T) {
	cause := errors.New("bad frame")
	err := &DecodeError{Err: cause}

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected a non-empty error message")
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrCorruptStore,
		ErrAcceptExhausted,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Fatalf("expected sentinel %d and %d to be distinct, both matched", i, j)
			}
		}
	}
}

func TestPersistenceError_WrapsCorruptStoreViaJoin(t *testing.T) {
	joined := errors.Join(ErrCorruptStore, errors.New("truncated"))
	err := &PersistenceError{Op: "decode", Path: "", Err: joined}

	if !errors.Is(err, ErrCorruptStore) {
		t.Fatalf("expected errors.Is to reach ErrCorruptStore through the joined cause")
	}
}
