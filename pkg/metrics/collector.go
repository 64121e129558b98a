package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	sensorMetricPrefix = "pcm_sensor_"
)

// Reading is one sensor sample pushed by a plant gateway.
type Reading struct {
	Timestamp   int64   `json:"timestamp"`
	EquipmentID string  `json:"equipment_id"`
	PlantID     string  `json:"plant_id"`
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
}

type readingBatch struct {
	Readings []Reading `json:"readings"`
}

// ReadingHook is invoked for every accepted reading. The alerting service
// hangs off this to match readings against active rules.
type ReadingHook func(ctx context.Context, reading Reading)

type sensorMetric struct {
	gauge *prometheus.GaugeVec
}

// Collector ingests sensor reading batches over HTTP and exposes the last
// value of each metric as a prometheus gauge labelled by equipment and plant.
// Gauges are registered lazily since the metric set is operator-defined.
type Collector struct {
	logger *zap.Logger
	hook   ReadingHook

	mu      sync.RWMutex
	sensors map[string]*sensorMetric

	ingestRequests      *prometheus.CounterVec
	ingestSamples       prometheus.Counter
	ingestBatchSize     prometheus.Histogram
	ingestLatency       prometheus.Histogram
	ingestInvalid       *prometheus.CounterVec
	lastIngestTimestamp *prometheus.GaugeVec
}

func NewCollector(logger *zap.Logger, hook ReadingHook) *Collector {
	collector := &Collector{
		logger:  logger,
		hook:    hook,
		sensors: make(map[string]*sensorMetric),
		ingestRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcm_readings_ingest_requests_total",
				Help: "Total number of sensor reading ingest requests.",
			},
			[]string{"status"},
		),
		ingestSamples: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pcm_readings_ingest_samples_total",
				Help: "Total number of sensor readings ingested.",
			},
		),
		ingestBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pcm_readings_ingest_batch_size",
				Help:    "Batch size of sensor reading ingest requests.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		ingestLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pcm_readings_ingest_latency_seconds",
				Help:    "Latency for processing sensor reading ingest requests.",
				Buckets: prometheus.DefBuckets,
			},
		),
		ingestInvalid: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcm_readings_ingest_invalid_total",
				Help: "Total number of invalid sensor readings received.",
			},
			[]string{"reason"},
		),
		lastIngestTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pcm_readings_last_ingest_timestamp_ms",
				Help: "Last ingest timestamp (ms since epoch) by plant.",
			},
			[]string{"plant_id"},
		),
	}

	prometheus.MustRegister(
		collector.ingestRequests,
		collector.ingestSamples,
		collector.ingestBatchSize,
		collector.ingestLatency,
		collector.ingestInvalid,
		collector.lastIngestTimestamp,
	)

	return collector
}

func (c *Collector) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	defer func() {
		c.ingestLatency.Observe(time.Since(start).Seconds())
	}()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 5<<20))

	var payload readingBatch
	if err := decoder.Decode(&payload); err != nil {
		c.ingestRequests.WithLabelValues("error").Inc()
		c.ingestInvalid.WithLabelValues("invalid_json").Inc()
		c.logger.Warn("failed to decode readings payload", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if len(payload.Readings) == 0 {
		c.ingestRequests.WithLabelValues("empty").Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	}

	c.ingestBatchSize.Observe(float64(len(payload.Readings)))

	var invalidCount int
	for _, reading := range payload.Readings {
		if err := c.applyReading(r.Context(), reading); err != nil {
			invalidCount++
			c.ingestInvalid.WithLabelValues(err.Error()).Inc()
		} else {
			c.ingestSamples.Inc()
		}
	}

	if invalidCount > 0 {
		c.ingestRequests.WithLabelValues("partial").Inc()
	} else {
		c.ingestRequests.WithLabelValues("ok").Inc()
	}

	w.WriteHeader(http.StatusAccepted)
}

func (c *Collector) applyReading(ctx context.Context, reading Reading) error {
	if reading.Metric == "" {
		return errors.New("missing_metric")
	}
	if reading.EquipmentID == "" {
		return errors.New("missing_equipment")
	}
	if reading.Value != reading.Value {
		return errors.New("invalid_value")
	}

	metricName := sensorMetricPrefix + sanitizeMetricName(reading.Metric)
	sensor := c.getOrCreateSensor(metricName)
	sensor.gauge.WithLabelValues(reading.EquipmentID, reading.PlantID).Set(reading.Value)

	if reading.PlantID != "" {
		timestamp := reading.Timestamp
		if timestamp == 0 {
			timestamp = time.Now().UnixMilli()
		}
		c.lastIngestTimestamp.WithLabelValues(reading.PlantID).Set(float64(timestamp))
	}

	if c.hook != nil {
		c.hook(ctx, reading)
	}

	return nil
}

func (c *Collector) getOrCreateSensor(name string) *sensorMetric {
	c.mu.RLock()
	if sensor, ok := c.sensors[name]; ok {
		c.mu.RUnlock()
		return sensor
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if sensor, ok := c.sensors[name]; ok {
		return sensor
	}

	sensor := &sensorMetric{
		gauge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name,
				Help: "Last sensor value reported by plant gateways.",
			},
			[]string{"equipment_id", "plant_id"},
		),
	}
	prometheus.MustRegister(sensor.gauge)

	c.sensors[name] = sensor
	return sensor
}

func sanitizeMetricName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}

	var b strings.Builder
	for i, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == ':' || (r >= '0' && r <= '9' && i > 0) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	sanitized := strings.ToLower(b.String())
	if sanitized == "" {
		return "unknown"
	}
	if sanitized[0] >= '0' && sanitized[0] <= '9' {
		return "_" + sanitized
	}
	return sanitized
}
