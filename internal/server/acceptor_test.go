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

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"corekv/internal/kvcore"
)

func newTestAcceptor(t *testing.T, connLimit int) (*Acceptor, *Shutdown, net.Listener) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	table := kvcore.NewTable()
	shared := kvcore.NewSharedState(table)
	shutdown := NewShutdown()
	acc := NewAcceptor(ln, shared, shutdown, connLimit, zerolog.Nop())
	return acc, shutdown, ln
}

func TestAcceptor_ServesASetThenGetRoundTrip(t *testing.T) {
	acc, shutdown, ln := newTestAcceptor(t, 10)

	runErr := make(chan error, 1)
	go func() { runErr <- acc.Run() }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n"))
	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read reply failed: %v", err)
	}
	if line != "+OK\r\n" {
		t.Fatalf("expected +OK, got %q", line)
	}

	conn.Write([]byte("*2\r\n$3\r\nGET\r\n$1\r\nk\r\n"))
	group, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read group header failed: %v", err)
	}
	if group != "*1\r\n" {
		t.Fatalf("expected group header *1, got %q", group)
	}
	header, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read bulk header failed: %v", err)
	}
	if header != "$1\r\n" {
		t.Fatalf("expected bulk header $1, got %q", header)
	}

	shutdown.Trigger()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("expected Run to return nil on shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected Run to return after shutdown fires")
	}
}

func TestAcceptor_EnforcesConnectionLimit(t *testing.T) {
	acc, shutdown, ln := newTestAcceptor(t, 1)
	defer shutdown.Trigger()

	runErr := make(chan error, 1)
	go func() { runErr <- acc.Run() }()

	first, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("first dial failed: %v", err)
	}
	defer first.Close()

	// Give the acceptor a moment to actually Accept the first connection
	// and occupy the single permit.
	time.Sleep(20 * time.Millisecond)

	second, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("second dial failed: %v", err)
	}
	defer second.Close()

	second.Write([]byte("*1\r\n$6\r\nDBSIZE\r\n"))
	second.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 1)
	if _, err := second.Read(buf); err == nil {
		t.Fatalf("expected no response on the second connection while the limit is held")
	}

	first.Close()

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(second)
	group, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("expected the second connection to be served once the first closes: %v", err)
	}
	if group != "*1\r\n" {
		t.Fatalf("expected a one-item group header once admitted, got %q", group)
	}
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read int reply failed: %v", err)
	}
	if len(line) == 0 || line[0] != ':' {
		t.Fatalf("expected an integer reply once admitted, got %q", line)
	}
}

func TestAcceptor_StopsAcceptingOnceShutdownFires(t *testing.T) {
	acc, shutdown, _ := newTestAcceptor(t, 10)

	runErr := make(chan error, 1)
	go func() { runErr <- acc.Run() }()

	shutdown.Trigger()

	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("expected Run to return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected Run to return promptly after shutdown")
	}
}
