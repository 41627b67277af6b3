// Package metrics provides Prometheus metrics instrumentation for the monitor.
//
// It exposes operational metrics about the tail loop, frame decoding, and
// downstream publishing. All metrics are exposed via the /metrics HTTP
// endpoint for Prometheus scraping and carry a "device" const label so that
// several monitors can share a scrape target.
//
// Metrics exposed:
//   - dtstail_pages_fetched_total: Counter of rawdata pages fetched
//   - dtstail_records_scanned_total: Counter of records scanned across pages
//   - dtstail_frames_matched_total: Counter of records matched as command frames
//   - dtstail_fetch_errors_total: Counter of failed page fetches
//   - dtstail_frames_decoded_total: Counter of frames decoded into profiles
//   - dtstail_decode_errors_total: Counter of frames that failed to decode
//   - dtstail_cursor_resets_total: Counter of cursor degradations forcing a re-probe
//   - dtstail_waits_total: Counter of backoff pauses taken by the tail loop
//   - dtstail_publish_errors_total: Counter of failed MQTT publishes
//   - dtstail_last_frame_timestamp_seconds: Gauge of the newest decoded frame's sample time
//   - dtstail_frame_points: Gauge of points in the newest decoded frame
//   - dtstail_frame_temperature_celsius: Gauge of frame temperature by stat (min, max, mean)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PagesFetched       prometheus.Counter
	RecordsScanned     prometheus.Counter
	FramesMatched      prometheus.Counter
	FetchErrors        prometheus.Counter
	FramesDecoded      prometheus.Counter
	DecodeErrors       prometheus.Counter
	CursorResets       prometheus.Counter
	Waits              prometheus.Counter
	PublishErrors      prometheus.Counter
	LastFrameTimestamp prometheus.Gauge
	FramePoints        prometheus.Gauge
	FrameTemperature   *prometheus.GaugeVec
}

func New(device string) *Metrics {
	labels := prometheus.Labels{"device": device}

	return &Metrics{
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "dtstail_pages_fetched_total",
			Help:        "Total number of rawdata pages fetched",
			ConstLabels: labels,
		}),

		RecordsScanned: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "dtstail_records_scanned_total",
			Help:        "Total number of records scanned across fetched pages",
			ConstLabels: labels,
		}),

		FramesMatched: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "dtstail_frames_matched_total",
			Help:        "Total number of records matched as getData command frames",
			ConstLabels: labels,
		}),

		FetchErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "dtstail_fetch_errors_total",
			Help:        "Total number of failed page fetches",
			ConstLabels: labels,
		}),

		FramesDecoded: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "dtstail_frames_decoded_total",
			Help:        "Total number of frames decoded into temperature profiles",
			ConstLabels: labels,
		}),

		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "dtstail_decode_errors_total",
			Help:        "Total number of frames that failed to decode",
			ConstLabels: labels,
		}),

		CursorResets: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "dtstail_cursor_resets_total",
			Help:        "Total number of cursor degradations forcing a re-probe",
			ConstLabels: labels,
		}),

		Waits: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "dtstail_waits_total",
			Help:        "Total number of backoff pauses taken by the tail loop",
			ConstLabels: labels,
		}),

		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name:        "dtstail_publish_errors_total",
			Help:        "Total number of failed frame summary publishes",
			ConstLabels: labels,
		}),

		LastFrameTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "dtstail_last_frame_timestamp_seconds",
			Help:        "Sample time of the newest decoded frame as a Unix timestamp",
			ConstLabels: labels,
		}),

		FramePoints: promauto.NewGauge(prometheus.GaugeOpts{
			Name:        "dtstail_frame_points",
			Help:        "Number of temperature points in the newest decoded frame",
			ConstLabels: labels,
		}),

		FrameTemperature: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "dtstail_frame_temperature_celsius",
			Help:        "Temperature of the newest decoded frame by stat",
			ConstLabels: labels,
		}, []string{"stat"}),
	}
}

func (m *Metrics) RecordPage(records, matched int) {
	m.PagesFetched.Inc()
	m.RecordsScanned.Add(float64(records))
	m.FramesMatched.Add(float64(matched))
}

func (m *Metrics) RecordFetchError() {
	m.FetchErrors.Inc()
}

func (m *Metrics) RecordFrameDecoded() {
	m.FramesDecoded.Inc()
}

func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

func (m *Metrics) RecordCursorReset() {
	m.CursorResets.Inc()
}

func (m *Metrics) RecordWait() {
	m.Waits.Inc()
}

func (m *Metrics) RecordPublishError() {
	m.PublishErrors.Inc()
}

func (m *Metrics) SetLastFrameTimestamp(epochSeconds float64) {
	m.LastFrameTimestamp.Set(epochSeconds)
}

func (m *Metrics) SetFramePoints(points int) {
	m.FramePoints.Set(float64(points))
}

func (m *Metrics) SetFrameTemperature(minC, maxC, meanC float64) {
	m.FrameTemperature.WithLabelValues("min").Set(minC)
	m.FrameTemperature.WithLabelValues("max").Set(maxC)
	m.FrameTemperature.WithLabelValues("mean").Set(meanC)
}
