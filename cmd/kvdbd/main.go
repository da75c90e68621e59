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

// Package main provides the entry point for kvdbd, the key/value database
// daemon: it wires a Table, the two background persistence services, and
// the TCP acceptor together, then blocks until an OS signal (or the
// acceptor itself) asks for shutdown.
package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"corekv/internal/config"
	"corekv/internal/kvcore"
	"corekv/internal/server"
)

func main() {
	cfg := config.DefaultConfig()

	root := &cobra.Command{
		Use:   "kvdbd",
		Short: "kvdbd serves the key/value database's TCP command protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.ListenAddr, "listen_addr", cfg.ListenAddr, "TCP address to accept command connections on")
	flags.StringVar(&cfg.DataFile, "data_file", cfg.DataFile, "Path to the BGSAVE data file, loaded at startup and overwritten on every flush")
	flags.StringVar(&cfg.SnapshotDir, "snapshot_dir", cfg.SnapshotDir, "Directory rotating timestamped snapshots are written into")
	flags.IntVar(&cfg.ConnectionLimit, "connection_limit", cfg.ConnectionLimit, "Maximum number of concurrently open client connections")
	flags.StringVar(&cfg.MetricsAddr, "metrics_addr", cfg.MetricsAddr, "If non-empty, expose Prometheus /metrics on this address (e.g., :9090)")
	flags.BoolVar(&cfg.BGSaveEnabled, "bgsave_enabled", cfg.BGSaveEnabled, "Enable the periodic full-state flush to data_file")
	flags.DurationVar(&cfg.BGSaveInterval, "bgsave_interval", cfg.BGSaveInterval, "How often BGSAVE flushes the table to data_file")
	flags.BoolVar(&cfg.SnapshotEnabled, "snapshot_enabled", cfg.SnapshotEnabled, "Enable the periodic rotating snapshot engine")
	flags.DurationVar(&cfg.SnapshotInterval, "snapshot_interval", cfg.SnapshotInterval, "How often a new rotating snapshot is captured (must be > 1s)")
	flags.IntVar(&cfg.SnapshotMax, "snapshot_max", cfg.SnapshotMax, "Maximum snapshots retained in snapshot_dir; 0 means unbounded (config.Unbounded)")

	if err := root.Execute(); err != nil {
		zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Fatal().Err(err).Msg("kvdbd exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("service", "kvdbd").Logger()

	table, err := kvcore.LoadTableFromFile(cfg.DataFile)
	if err != nil {
		log.Error().Err(err).Str("data_file", cfg.DataFile).Msg("failed to load data file at startup")
		return err
	}
	log.Info().Int("loaded_entries", table.Size()).Str("data_file", cfg.DataFile).Msg("table loaded")

	shared := kvcore.NewSharedState(table)

	if cfg.MetricsAddr != "" {
		kvcore.StartMetricsEndpoint(cfg.MetricsAddr)
		log.Info().Str("metrics_addr", cfg.MetricsAddr).Msg("metrics endpoint started")
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		log.Error().Err(err).Str("listen_addr", cfg.ListenAddr).Msg("failed to bind listener")
		return err
	}
	log.Info().Str("listen_addr", cfg.ListenAddr).Int("connection_limit", cfg.ConnectionLimit).Msg("accepting connections")

	shutdown := server.NewShutdown()

	shutdown.Track()
	go func() {
		defer shutdown.Untrack()
		kvcore.RunBGSave(shared, cfg.DataFile, cfg.BGSaveEnabled, cfg.BGSaveInterval, kvcore.EncodeTableToFile, log.With().Str("component", "bgsave").Logger())
	}()

	shutdown.Track()
	go func() {
		defer shutdown.Untrack()
		kvcore.RunSnapshot(shared, cfg.SnapshotDir, cfg.SnapshotEnabled, cfg.SnapshotInterval, cfg.SnapshotMax, kvcore.EncodeTableToFile, log.With().Str("component", "snapshot").Logger())
	}()

	acceptor := server.NewAcceptor(listener, shared, shutdown, cfg.ConnectionLimit, log.With().Str("component", "acceptor").Logger())

	runErr := make(chan error, 1)
	go func() { runErr <- acceptor.Run() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-runErr:
		if err != nil {
			log.Error().Err(err).Msg("acceptor exited with error")
		}
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	}

	shutdown.Trigger()
	shared.Terminate()
	shutdown.Wait()

	log.Info().Msg("kvdbd stopped")
	return nil
}
