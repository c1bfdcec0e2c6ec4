package vektor

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operation metrics from a Collection.
type MetricsCollector interface {
	// RecordInsert records a single-vector insertion.
	RecordInsert(elapsed time.Duration, err error)

	// RecordBatchInsert records a batch insertion of count vectors.
	RecordBatchInsert(count int, elapsed time.Duration, err error)

	// RecordSearch records a query for k neighbors.
	RecordSearch(k int, elapsed time.Duration, err error)

	// RecordMigration records a flat-to-graph migration of count vectors.
	RecordMigration(count int, elapsed time.Duration)
}

// NoopMetricsCollector discards all metrics.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)           {}
func (NoopMetricsCollector) RecordBatchInsert(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordMigration(int, time.Duration)          {}

// BasicMetricsCollector keeps atomic counters, suitable for tests and as a
// template for exporting to a real metrics backend.
type BasicMetricsCollector struct {
	inserts       atomic.Int64
	insertErrors  atomic.Int64
	batchInserts  atomic.Int64
	batchVectors  atomic.Int64
	searches      atomic.Int64
	searchErrors  atomic.Int64
	migrations    atomic.Int64
	insertNanos   atomic.Int64
	searchNanos   atomic.Int64
}

// NewBasicMetricsCollector creates a zeroed collector.
func NewBasicMetricsCollector() *BasicMetricsCollector {
	return &BasicMetricsCollector{}
}

func (m *BasicMetricsCollector) RecordInsert(elapsed time.Duration, err error) {
	if err != nil {
		m.insertErrors.Add(1)
		return
	}
	m.inserts.Add(1)
	m.insertNanos.Add(int64(elapsed))
}

func (m *BasicMetricsCollector) RecordBatchInsert(count int, elapsed time.Duration, err error) {
	if err != nil {
		m.insertErrors.Add(1)
		return
	}
	m.batchInserts.Add(1)
	m.batchVectors.Add(int64(count))
}

func (m *BasicMetricsCollector) RecordSearch(k int, elapsed time.Duration, err error) {
	if err != nil {
		m.searchErrors.Add(1)
		return
	}
	m.searches.Add(1)
	m.searchNanos.Add(int64(elapsed))
}

func (m *BasicMetricsCollector) RecordMigration(count int, elapsed time.Duration) {
	m.migrations.Add(1)
}

// MetricsSnapshot is a point-in-time view of a BasicMetricsCollector.
type MetricsSnapshot struct {
	Inserts      int64
	InsertErrors int64
	BatchInserts int64
	BatchVectors int64
	Searches     int64
	SearchErrors int64
	Migrations   int64

	AvgInsertLatency time.Duration
	AvgSearchLatency time.Duration
}

// Snapshot returns the current counter values.
func (m *BasicMetricsCollector) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Inserts:      m.inserts.Load(),
		InsertErrors: m.insertErrors.Load(),
		BatchInserts: m.batchInserts.Load(),
		BatchVectors: m.batchVectors.Load(),
		Searches:     m.searches.Load(),
		SearchErrors: m.searchErrors.Load(),
		Migrations:   m.migrations.Load(),
	}
	if s.Inserts > 0 {
		s.AvgInsertLatency = time.Duration(m.insertNanos.Load() / s.Inserts)
	}
	if s.Searches > 0 {
		s.AvgSearchLatency = time.Duration(m.searchNanos.Load() / s.Searches)
	}
	return s
}
