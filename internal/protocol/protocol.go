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

// Package protocol is the external wire-format collaborator the core
// treats as opaque: it turns bytes read off a connection into a Query,
// and turns a command's response into bytes written back. Neither
// internal/kvcore nor internal/server import each other through this
// package's internals; they only depend on the Query and
// kvcore.ResponseSink interfaces it satisfies.
//
// The wire format is a RESP-inspired framed text protocol. A query is an
// array of bulk strings: the command name followed by its arguments.
//
//	*<n>\r\n
//	$<len>\r\n<bytes>\r\n   (command name)
//	$<len>\r\n<bytes>\r\n   (arg 1)
//	...
//
// A top-level array whose first element is itself an array (rather than a
// bulk string) is a pipelined batch of queries; the core rejects these
// with ACTION_ERR rather than executing them.
package protocol

import (
	"bufio"
	"errors"
	"io"
	"strconv"

	"corekv/internal/kverrors"
	"corekv/internal/kvcore"
)

// Query is the decoded unit the core dispatches. A Simple query carries a
// command name and its arguments; a Pipelined query is reserved and always
// rejected by the caller.
type Query struct {
	Pipelined bool
	Cmd       string
	args      [][]byte
}

// N implements kvcore.ArgGroup.
func (q *Query) N() int { return len(q.args) }

// Arg implements kvcore.ArgGroup.
func (q *Query) Arg(i int) []byte { return q.args[i] }

var (
	errEmptyArray  = errors.New("protocol: empty top-level array")
	errExpectedArr = errors.New("protocol: expected array header")
	errExpectedBlk = errors.New("protocol: expected bulk string header")
	errNegativeLen = errors.New("protocol: negative length")
	errBadCRLF     = errors.New("protocol: malformed line terminator")
)

// Decoder reads Query values off a buffered byte stream.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder wraps r (typically a net.Conn) for reading.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 4096)}
}

// ReadQuery reads and parses one query frame. Any malformed input is
// reported as *kverrors.DecodeError so the caller can close the
// connection with a framed error.
func (d *Decoder) ReadQuery() (*Query, error) {
	n, err := d.readArrayHeader()
	if err != nil {
		return nil, wrapDecode(err)
	}
	if n <= 0 {
		return nil, wrapDecode(errEmptyArray)
	}

	peeked, err := d.r.Peek(1)
	if err != nil {
		return nil, wrapDecode(err)
	}
	if peeked[0] == '*' {
		if err := d.skipPipelined(n); err != nil {
			return nil, wrapDecode(err)
		}
		return &Query{Pipelined: true}, nil
	}

	cmd, err := d.readBulkString()
	if err != nil {
		return nil, wrapDecode(err)
	}
	args := make([][]byte, 0, n-1)
	for i := 1; i < n; i++ {
		arg, err := d.readBulkString()
		if err != nil {
			return nil, wrapDecode(err)
		}
		args = append(args, arg)
	}
	return &Query{Cmd: string(cmd), args: args}, nil
}

// skipPipelined discards n nested array frames without interpreting them;
// the caller already knows to reject the batch wholesale.
func (d *Decoder) skipPipelined(n int) error {
	for i := 0; i < n; i++ {
		m, err := d.readArrayHeader()
		if err != nil {
			return err
		}
		for j := 0; j < m; j++ {
			if _, err := d.readBulkString(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Decoder) readArrayHeader() (int, error) {
	line, err := d.readLine()
	if err != nil {
		return 0, err
	}
	if len(line) == 0 || line[0] != '*' {
		return 0, errExpectedArr
	}
	n, err := strconv.Atoi(string(line[1:]))
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (d *Decoder) readBulkString() ([]byte, error) {
	line, err := d.readLine()
	if err != nil {
		return nil, err
	}
	if len(line) == 0 || line[0] != '$' {
		return nil, errExpectedBlk
	}
	n, err := strconv.Atoi(string(line[1:]))
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errNegativeLen
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, err
	}
	if err := d.expectCRLF(); err != nil {
		return nil, err
	}
	return buf, nil
}

// readLine reads up to and including "\r\n", returning the line without
// the terminator.
func (d *Decoder) readLine() ([]byte, error) {
	line, err := d.r.ReadSlice('\n')
	if err != nil {
		return nil, err
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, errBadCRLF
	}
	out := make([]byte, len(line)-2)
	copy(out, line[:len(line)-2])
	return out, nil
}

func (d *Decoder) expectCRLF() error {
	var crlf [2]byte
	if _, err := io.ReadFull(d.r, crlf[:]); err != nil {
		return err
	}
	if crlf[0] != '\r' || crlf[1] != '\n' {
		return errBadCRLF
	}
	return nil
}

func wrapDecode(err error) error {
	return &kverrors.DecodeError{Err: err}
}

// Encoder implements kvcore.ResponseSink, writing the RESP-inspired
// framing described in the package doc comment.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder wraps w (typically a net.Conn) for writing.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriterSize(w, 4096)}
}

// WriteBytes writes b as a bulk string.
func (e *Encoder) WriteBytes(b []byte) {
	e.w.WriteByte('$')
	e.w.WriteString(strconv.Itoa(len(b)))
	e.w.WriteString("\r\n")
	e.w.Write(b)
	e.w.WriteString("\r\n")
}

// WriteInt writes n as an integer reply.
func (e *Encoder) WriteInt(n int) {
	e.w.WriteByte(':')
	e.w.WriteString(strconv.Itoa(n))
	e.w.WriteString("\r\n")
}

// GroupBegin announces the next k writes form one response group.
func (e *Encoder) GroupBegin(k int) {
	e.w.WriteByte('*')
	e.w.WriteString(strconv.Itoa(k))
	e.w.WriteString("\r\n")
}

var tokenWire = map[kvcore.Token]string{
	kvcore.TokenOK:           "+OK\r\n",
	kvcore.TokenNilValue:     "$-1\r\n",
	kvcore.TokenNilGroup:     "*-1\r\n",
	kvcore.TokenActionErr:    "-ACTION_ERR\r\n",
	kvcore.TokenOverwriteErr: "-OVERWRITE_ERR\r\n",
}

// WriteToken writes one of the canned single-line responses.
func (e *Encoder) WriteToken(t kvcore.Token) {
	e.w.WriteString(tokenWire[t])
}

// FlushStream flushes buffered output to the underlying writer. Called
// exactly once per completed command.
func (e *Encoder) FlushStream() error {
	return e.w.Flush()
}

// WriteError writes a framed error line and flushes, for the decoder
// failure path: close the connection with the decoded error.
func (e *Encoder) WriteError(err error) error {
	e.w.WriteByte('-')
	e.w.WriteString(err.Error())
	e.w.WriteString("\r\n")
	return e.w.Flush()
}
