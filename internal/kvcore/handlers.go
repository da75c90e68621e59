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

// Token identifies a canned response the sink understands without the
// handler constructing a value for it.
type Token int

const (
	TokenOK Token = iota
	TokenNilValue
	TokenNilGroup
	TokenActionErr
	TokenOverwriteErr
)

// ArgGroup exposes an already-parsed command's arity and positional
// argument access. Arity is assumed pre-validated by the decoder in the
// sense that Arg never panics for i < N(); handlers still check N()
// against the command's expected arity before indexing, so a handler
// never indexes out of range.
type ArgGroup interface {
	N() int
	Arg(i int) []byte
}

// ResponseSink is the seam handlers write results through. It is
// polymorphic over the shapes a response can take; GroupBegin must be
// emitted before any response that is itself a group of more than one
// item, and FlushStream must be called once the command is complete.
type ResponseSink interface {
	WriteBytes(b []byte)
	WriteInt(n int)
	WriteToken(t Token)
	GroupBegin(k int)
	FlushStream() error
}

// Dispatch runs the named command against table, writing the result to
// sink. Wrong arity always yields ACTION_ERR regardless of command.
// SET/UPDATE/FLUSHDB take the table's write lock; GET/DBSIZE take its
// read lock; the lock is released before FlushStream is called so a slow
// client write never blocks other commands.
func Dispatch(table *Table, sink ResponseSink, cmd string, args ArgGroup) error {
	var outcome string
	switch cmd {
	case "GET":
		outcome = handleGet(table, sink, args)
	case "SET":
		outcome = handleSet(table, sink, args)
	case "UPDATE":
		outcome = handleUpdate(table, sink, args)
	case "FLUSHDB":
		outcome = handleFlushdb(table, sink, args)
	case "DBSIZE":
		outcome = handleDbsize(table, sink, args)
	default:
		sink.WriteToken(TokenActionErr)
		outcome = "ACTION_ERR"
	}
	recordCommand(cmd, outcome)
	return sink.FlushStream()
}

func handleGet(table *Table, sink ResponseSink, args ArgGroup) string {
	if args.N() != 1 {
		sink.WriteToken(TokenActionErr)
		return "ACTION_ERR"
	}
	val, ok := table.Get(string(args.Arg(0)))
	sink.GroupBegin(1)
	if !ok {
		sink.WriteToken(TokenNilGroup)
		return "NIL"
	}
	sink.WriteBytes(val.Bytes())
	return "VALUE"
}

func handleSet(table *Table, sink ResponseSink, args ArgGroup) string {
	if args.N() != 2 {
		sink.WriteToken(TokenActionErr)
		return "ACTION_ERR"
	}
	key := string(args.Arg(0))
	val := NewValue(args.Arg(1))
	if table.Set(key, val) {
		sink.WriteToken(TokenOK)
		return "OK"
	}
	sink.WriteToken(TokenOverwriteErr)
	return "OVERWRITE_ERR"
}

func handleUpdate(table *Table, sink ResponseSink, args ArgGroup) string {
	if args.N() != 2 {
		sink.WriteToken(TokenActionErr)
		return "ACTION_ERR"
	}
	key := string(args.Arg(0))
	val := NewValue(args.Arg(1))
	if table.Update(key, val) {
		sink.WriteToken(TokenOK)
		return "OK"
	}
	sink.WriteToken(TokenNilValue)
	return "NIL"
}

func handleFlushdb(table *Table, sink ResponseSink, args ArgGroup) string {
	if args.N() != 0 {
		sink.WriteToken(TokenActionErr)
		return "ACTION_ERR"
	}
	table.Flushdb()
	sink.WriteToken(TokenOK)
	RecordTableSize(0)
	return "OK"
}

func handleDbsize(table *Table, sink ResponseSink, args ArgGroup) string {
	if args.N() != 0 {
		sink.WriteToken(TokenActionErr)
		return "ACTION_ERR"
	}
	n := table.Size()
	sink.GroupBegin(1)
	sink.WriteInt(n)
	return "INT"
}
