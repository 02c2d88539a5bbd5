/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics exposes Prometheus collectors for junction repository
// operations and the database connection pool.
package metrics

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace = "crm_junction"

	StatusSuccess = "success"
	StatusError   = "error"

	// duration buckets: 1ms to ~16s
	bucketStart  = 0.001
	bucketFactor = 2
	bucketCount  = 15
)

// JunctionMetrics records junction operations. A nil *JunctionMetrics is
// valid and records nothing.
type JunctionMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	retriesTotal      *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewJunctionMetrics creates the junction collectors and registers them with
// registerer.
func NewJunctionMetrics(registerer prometheus.Registerer) (*JunctionMetrics, error) {
	m := &JunctionMetrics{}
	m.initMetrics()
	if err := registerer.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *JunctionMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of junction repository operations",
		},
		[]string{"operation", "table", "status"},
	)
	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time taken by junction repository operations, retries included",
			Buckets:   prometheus.ExponentialBuckets(bucketStart, bucketFactor, bucketCount),
		},
		[]string{"operation", "table"},
	)
	m.retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "retries_total",
			Help:      "Total number of retried junction operation attempts",
		},
		[]string{"operation", "table"},
	)
	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of failed junction operations by error type",
		},
		[]string{"operation", "table", "error_type"},
	)
	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.retriesTotal,
		m.errorsTotal,
	}
}

// Describe implements prometheus.Collector.
func (m *JunctionMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *JunctionMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

func (m *JunctionMetrics) RecordOperation(operation, table, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, table, status).Inc()
	m.operationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func (m *JunctionMetrics) RecordRetry(operation, table string) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(operation, table).Inc()
}

func (m *JunctionMetrics) RecordError(operation, table, errorType string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(operation, table, errorType).Inc()
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RegisterDBStats exports the database/sql pool statistics of db labelled
// with dbName.
func RegisterDBStats(registerer prometheus.Registerer, db *sql.DB, dbName string) error {
	return registerer.Register(collectors.NewDBStatsCollector(db, dbName))
}

// Handler serves the metrics gathered by reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
