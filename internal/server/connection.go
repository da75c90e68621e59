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
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"corekv/internal/kvcore"
	"corekv/internal/protocol"
)

// queryResult carries a decoded query or decode error back from the
// goroutine handleConnection races against the shutdown signal.
type queryResult struct {
	query *protocol.Query
	err   error
}

// handleConnection runs one client connection until it errors, the peer
// closes it, or shutdown fires. It owns conn and always closes it before
// returning.
func handleConnection(conn net.Conn, shared *kvcore.SharedState, shutdown *Shutdown, log zerolog.Logger) {
	defer conn.Close()

	connID := uuid.New().String()
	clog := log.With().Str("conn_id", connID).Str("remote", conn.RemoteAddr().String()).Logger()
	clog.Debug().Msg("connection opened")

	kvcore.ConnectionOpened()
	defer kvcore.ConnectionClosed()
	defer clog.Debug().Msg("connection closed")

	dec := protocol.NewDecoder(conn)
	enc := protocol.NewEncoder(conn)

	for !shared.Table.Terminated() {
		q, err := readWithShutdown(conn, dec, shutdown)
		if errors.Is(err, errShuttingDown) {
			return
		}
		if err != nil {
			if !isPeerClosed(err) {
				clog.Debug().Err(err).Msg("decode failed, closing with framed error")
				_ = enc.WriteError(err)
			}
			return
		}

		if q.Pipelined {
			enc.WriteToken(kvcore.TokenActionErr)
			if err := enc.FlushStream(); err != nil {
				return
			}
			continue
		}

		if err := kvcore.Dispatch(shared.Table, enc, q.Cmd, q); err != nil {
			clog.Debug().Err(err).Msg("write failed, closing connection")
			return
		}
	}
}

var errShuttingDown = errors.New("server: shutting down")

// readWithShutdown races a blocking ReadQuery against the shutdown signal.
// A net.Conn's Read has no context support, so an in-flight read is
// cancelled by forcing its deadline into the past, which unblocks the
// goroutine with an os.ErrDeadlineExceeded-wrapped error that this
// function discards in favor of errShuttingDown.
func readWithShutdown(conn net.Conn, dec *protocol.Decoder, shutdown *Shutdown) (*protocol.Query, error) {
	resultCh := make(chan queryResult, 1)
	go func() {
		q, err := dec.ReadQuery()
		resultCh <- queryResult{query: q, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.query, res.err
	case <-shutdown.Done():
		_ = conn.SetReadDeadline(time.Now())
		<-resultCh // avoid leaking the reader goroutine
		return nil, errShuttingDown
	}
}

// isPeerClosed reports whether err is the ordinary "client hung up"
// condition, which should close quietly rather than write a framed error
// back down a connection the peer has already abandoned.
func isPeerClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
