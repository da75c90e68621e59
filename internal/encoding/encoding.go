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

// Package encoding serializes and deserializes the whole table to a single
// byte file: a magic tag, the entry count, then one length-prefixed key
// followed by its length-prefixed value for each entry. Keys and values are
// interleaved entry by entry, not stored as two separate sequences. The
// format favors simplicity and a compact representation over
// self-description beyond length prefixes; it is not portable across
// implementations.
package encoding

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"iter"
	"os"

	"corekv/internal/kverrors"
	"corekv/internal/kvvalue"
)

// magic tags the start of the file so a handful of classes of garbage are
// rejected immediately instead of partially decoding into nonsense.
const magic uint32 = 0x4b56_4442 // "KVDB"

// Encode writes entries (as produced by Table.WithReadView's iterator) to w
// in the on-disk format: magic, entry count, then for each entry
// a length-prefixed key followed by a length-prefixed value.
func Encode(w io.Writer, entries iter.Seq2[string, *kvvalue.Value], count int) error {
	bw := bufio.NewWriterSize(w, 1<<20)

	if err := binary.Write(bw, binary.LittleEndian, magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(count)); err != nil {
		return err
	}

	written := 0
	for key, val := range entries {
		if err := writeBytes(bw, []byte(key)); err != nil {
			return err
		}
		if err := writeBytes(bw, val.Bytes()); err != nil {
			return err
		}
		written++
	}
	if written != count {
		return errCountMismatch
	}
	return bw.Flush()
}

func writeBytes(w *bufio.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

var errCountMismatch = errors.New("encoding: entry count changed while iterating")

// Decode reads the format Encode writes from r and returns a complete
// key/value map. It fails with kverrors.ErrCorruptStore on any malformed
// input. The format stores the entry count once and reads that many
// (key, value) pairs, so a truncated or corrupted count deterministically
// produces a read failure rather than a silent length mismatch.
func Decode(r io.Reader) (map[string]*kvvalue.Value, error) {
	br := bufio.NewReaderSize(r, 1<<20)

	var gotMagic uint32
	if err := binary.Read(br, binary.LittleEndian, &gotMagic); err != nil {
		return nil, corrupt(err)
	}
	if gotMagic != magic {
		return nil, corrupt(errors.New("bad magic"))
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, corrupt(err)
	}

	entries := make(map[string]*kvvalue.Value, count)
	for i := uint64(0); i < count; i++ {
		key, err := readBytes(br)
		if err != nil {
			return nil, corrupt(err)
		}
		val, err := readBytes(br)
		if err != nil {
			return nil, corrupt(err)
		}
		entries[string(key)] = kvvalue.NewValue(val)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, corrupt(errors.New("unexpected data after the last entry"))
	}
	return entries, nil
}

func readBytes(r *bufio.Reader) ([]byte, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	const maxReasonable = 1 << 34 // guard against a corrupted length exhausting memory
	if n > maxReasonable {
		return nil, errors.New("length prefix implausibly large")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func corrupt(cause error) error {
	return &kverrors.PersistenceError{Op: "decode", Path: "", Err: errors.Join(kverrors.ErrCorruptStore, cause)}
}

// Load reads and decodes path. A missing file is not an error: it returns
// an empty map so the caller starts with a fresh table.
func Load(path string) (map[string]*kvvalue.Value, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]*kvvalue.Value), nil
		}
		return nil, &kverrors.PersistenceError{Op: "load", Path: path, Err: err}
	}
	defer f.Close()

	entries, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Flush writes the full encoding of entries to path, creating it if
// necessary and truncating any existing contents. No fsync, no temp-file
// rename: it is atomic enough for single-machine use, not crash-safe
// against a write landing mid-flush.
func Flush(path string, entries iter.Seq2[string, *kvvalue.Value], count int) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return &kverrors.PersistenceError{Op: "flush", Path: path, Err: err}
	}
	defer f.Close()

	if err := Encode(f, entries, count); err != nil {
		return &kverrors.PersistenceError{Op: "flush", Path: path, Err: err}
	}
	return nil
}
