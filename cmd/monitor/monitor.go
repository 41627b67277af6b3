// Package main implements the dtstail monitor service.
// The monitor tails a device's rawdata stream, decodes DTS command frames
// into temperature profiles, and serves the latest profile via HTTP API.
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/HatiCode/dtstail/cmd/monitor/metrics"
	"github.com/HatiCode/dtstail/pkg/profile"
	"github.com/HatiCode/dtstail/pkg/storage"
	"github.com/HatiCode/dtstail/pkg/tail"
	"github.com/HatiCode/dtstail/pkg/xt"
)

// framePublisher publishes decoded frame summaries downstream. Nil means
// publishing is disabled.
type framePublisher interface {
	Publish(storage.Snapshot) error
}

// Monitor orchestrates the tail loop: fetch → decode → summarize → store.
type Monitor struct {
	device    string
	tailer    *tail.Tailer
	opts      xt.Options
	store     storage.Store
	metrics   *metrics.Metrics
	publisher framePublisher
	logger    *slog.Logger
}

// New creates a new Monitor.
func New(
	device string,
	tailer *tail.Tailer,
	opts xt.Options,
	store storage.Store,
	m *metrics.Metrics,
	publisher framePublisher,
	logger *slog.Logger,
) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Source = device

	return &Monitor{
		device:    device,
		tailer:    tailer,
		opts:      opts,
		store:     store,
		metrics:   m,
		publisher: publisher,
		logger:    logger,
	}
}

// Run consumes frames from the tailer until the context is canceled.
// Blocks; returns the tailer's terminal error.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("starting tail loop", "device", m.device)

	for {
		payload, err := m.tailer.Next(ctx)
		if err != nil {
			m.logger.Info("tail loop stopped", "reason", err)
			return err
		}
		m.HandleFrame(payload)
	}
}

// HandleFrame decodes one frame, stores its summary, and publishes it.
// Decode failures are counted and logged, never fatal.
// Exported for testing purposes.
func (m *Monitor) HandleFrame(payload *tail.Payload) {
	start := time.Now()

	parsed, err := xt.Parse(payload.Frame, m.opts)
	if err != nil {
		m.metrics.RecordDecodeError()
		m.logger.Warn("frame decode failed", "sample_time", payload.SampleTime, "error", err)
		return
	}

	summary, err := profile.Summarize(parsed)
	if err != nil {
		m.metrics.RecordDecodeError()
		m.logger.Warn("frame has no usable samples", "sample_time", payload.SampleTime, "error", err)
		return
	}

	snapshot := storage.Snapshot{
		DeviceCode: m.device,
		SampleTime: payload.SampleTime,
		ReceivedAt: time.Now(),
		Summary:    summary,
	}

	if err := m.store.Put(snapshot); err != nil {
		m.logger.Error("failed to store snapshot", "sample_time", payload.SampleTime, "error", err)
		return
	}

	m.metrics.RecordFrameDecoded()
	m.metrics.SetFramePoints(summary.Points)
	m.metrics.SetFrameTemperature(summary.MinC, summary.MaxC, summary.MeanC)
	if ts, err := time.Parse(time.RFC3339, payload.SampleTime); err == nil {
		m.metrics.SetLastFrameTimestamp(float64(ts.Unix()))
	}

	if m.publisher != nil {
		if err := m.publisher.Publish(snapshot); err != nil {
			m.metrics.RecordPublishError()
			m.logger.Warn("failed to publish frame summary", "sample_time", payload.SampleTime, "error", err)
		}
	}

	m.logger.Info("frame decoded",
		"device", m.device,
		"sample_time", payload.SampleTime,
		"channel", summary.Channel,
		"points", summary.Points,
		"min_c", summary.MinC,
		"max_c", summary.MaxC,
		"mean_c", summary.MeanC,
		"decode_ms", time.Since(start).Milliseconds(),
	)
}

// GetStore returns the underlying store for HTTP handlers.
func (m *Monitor) GetStore() storage.Store {
	return m.store
}
