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

package kvvalue

import "testing"

func TestNewValue_CopiesInput(t *testing.T) {
	b := []byte("hello")
	v := NewValue(b)
	b[0] = 'X'
	if string(v.Bytes()) != "hello" {
		t.Fatalf("expected NewValue to copy its input, got %q after mutating the source", v.Bytes())
	}
}

func TestValue_LenMatchesBytes(t *testing.T) {
	v := NewValue([]byte("abcde"))
	if v.Len() != 5 {
		t.Fatalf("expected Len 5, got %d", v.Len())
	}
}

func TestValue_CloneSharesBytes(t *testing.T) {
	v := NewValue([]byte("hello"))
	clone := v.Clone()
	if string(clone.Bytes()) != "hello" {
		t.Fatalf("expected clone to carry the same bytes, got %q", clone.Bytes())
	}
	if &v.bytes[0] != &clone.bytes[0] {
		t.Fatalf("expected Clone to share the backing array")
	}
}

func TestValue_NilSafe(t *testing.T) {
	var v *Value
	if v.Len() != 0 {
		t.Fatalf("expected nil Value Len to be 0")
	}
	if v.Bytes() != nil {
		t.Fatalf("expected nil Value Bytes to be nil")
	}
	if v.Clone() != nil {
		t.Fatalf("expected nil Value Clone to be nil")
	}
}
