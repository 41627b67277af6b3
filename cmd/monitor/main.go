// Package main implements the dtstail monitor service.
// The monitor tails a device's rawdata stream, decodes DTS command frames
// into temperature profiles, and serves the latest profile via HTTP API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HatiCode/dtstail/cmd/monitor/config"
	"github.com/HatiCode/dtstail/cmd/monitor/emitter"
	"github.com/HatiCode/dtstail/cmd/monitor/logger"
	"github.com/HatiCode/dtstail/cmd/monitor/metrics"
	"github.com/HatiCode/dtstail/cmd/monitor/router"
	"github.com/HatiCode/dtstail/pkg/httpx"
	"github.com/HatiCode/dtstail/pkg/onc"
	"github.com/HatiCode/dtstail/pkg/storage"
	"github.com/HatiCode/dtstail/pkg/tail"
	"github.com/HatiCode/dtstail/pkg/xt"
)

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	logger.Info("starting dtstail monitor",
		"version", "v0.1.0",
		"device", cfg.Device,
		"api_url", cfg.APIURL,
	)

	m := metrics.New(cfg.Device)

	oncClient, err := onc.NewClientWithTimeout(cfg.APIURL, cfg.Device, cfg.Token, cfg.FetchTimeout)
	if err != nil {
		logger.Error("invalid rawdata service config", "error", err)
		os.Exit(1)
	}

	tailer := &tail.Tailer{
		Source:   oncClient,
		Start:    cfg.StartTime,
		RowLimit: cfg.RowLimit,
		Backoff:  cfg.Backoff,
		Logger:   logger,
		Hooks: tail.Hooks{
			OnPage:        m.RecordPage,
			OnFetchError:  func(error) { m.RecordFetchError() },
			OnCursorReset: m.RecordCursorReset,
			OnWait:        m.RecordWait,
		},
	}

	opts := xt.Options{
		ChannelPoints: cfg.ChannelPoints,
		IncludeRaw:    cfg.IncludeRaw,
		Trim:          cfg.Trim,
	}

	store := storage.NewMemoryStore()

	var em *emitter.Emitter
	var publisher framePublisher
	if cfg.MQTTBroker != "" {
		e, err := emitter.New(emitter.Options{
			Broker:   cfg.MQTTBroker,
			Topic:    cfg.MQTTTopic,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			ClientID: "dtstail-" + cfg.Device,
		}, logger)
		if err != nil {
			logger.Error("invalid mqtt config", "error", err)
			os.Exit(1)
		}
		if err := e.Connect(); err != nil {
			logger.Error("mqtt connect failed", "broker", cfg.MQTTBroker, "error", err)
			os.Exit(1)
		}
		em = e
		publisher = e
	}

	mon := New(cfg.Device, tailer, opts, store, m, publisher, logger)

	mux := router.SetupRoutes(store, cfg.StaleAfter, logger)
	httpServer := httpx.NewServer(cfg.Listen, mux, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := mon.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("tail loop failed", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-serverErr:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	logger.Info("shutting down")
	cancel()

	if err := httpServer.Stop(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "error", err)
		os.Exit(1)
	}

	if em != nil {
		em.Disconnect()
	}

	logger.Info("shutdown complete")
}
