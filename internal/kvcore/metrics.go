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

// Metrics are pure observability: no command's behavior depends on them,
// and the admin endpoint they're exposed on (StartMetricsEndpoint) is a
// second, separate HTTP listener from the command protocol's TCP port.
package kvcore

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvdb_commands_total",
		Help: "Total commands processed, by verb and outcome token.",
	}, []string{"command", "token"})

	tableSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvdb_table_size",
		Help: "Current number of entries in the table.",
	})

	snapshotQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvdb_snapshot_queue_depth",
		Help: "Current number of retained snapshot files.",
	})

	flushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kvdb_flush_duration_seconds",
		Help:    "Wall-clock duration of a full-table flush (BGSAVE or snapshot).",
		Buckets: prometheus.DefBuckets,
	})

	flushErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvdb_flush_errors_total",
		Help: "Persistence failures, by service (bgsave or snapshot).",
	}, []string{"service"})

	connectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kvdb_connections_active",
		Help: "Currently open client connections.",
	})
)

func init() {
	prometheus.MustRegister(commandsTotal, tableSize, snapshotQueueDepth, flushDuration, flushErrorsTotal, connectionsActive)
}

// recordCommand is called once per dispatched command with the token the
// sink ultimately received (or "VALUE"/"INT" when the response carried
// data rather than a canned token).
func recordCommand(cmd, tokenLabel string) {
	commandsTotal.WithLabelValues(cmd, tokenLabel).Inc()
}

// RecordTableSize updates the table-size gauge. Called after FLUSHDB and
// periodically by the flush scheduler; deliberately not called on every
// GET/SET to avoid a Size() read-lock scan on the hot path.
func RecordTableSize(n int) { tableSize.Set(float64(n)) }

// RecordSnapshotQueueDepth updates the snapshot queue depth gauge.
func RecordSnapshotQueueDepth(n int) { snapshotQueueDepth.Set(float64(n)) }

// RecordFlushDuration observes how long a flush took.
func RecordFlushDuration(d time.Duration) { flushDuration.Observe(d.Seconds()) }

// RecordFlushError increments the non-fatal persistence-error counter for
// the named service ("bgsave" or "snapshot").
func RecordFlushError(service string) { flushErrorsTotal.WithLabelValues(service).Inc() }

// ConnectionOpened/ConnectionClosed track the live-connection gauge.
func ConnectionOpened() { connectionsActive.Inc() }
func ConnectionClosed() { connectionsActive.Dec() }

// StartMetricsEndpoint serves Prometheus exposition format on addr in a
// background goroutine, opt-in and best-effort: there is no shutdown
// hook, the process exiting tears it down along with everything else.
func StartMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
