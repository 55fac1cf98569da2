package kvstore

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type storeMetrics struct {
	sets            prometheus.Counter
	gets            prometheus.Counter
	getMisses       prometheus.Counter
	appendedBytes   prometheus.Counter
	replayedRecords prometheus.Counter
	keys            prometheus.Gauge
}

// register registers c or, if an equal collector is already registered,
// returns the existing one
func register[T prometheus.Collector](registerer prometheus.Registerer, c T) T {
	err := registerer.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}

// newStoreMetrics creates metrics labeled with path and registers them
// if registerer is not nil. Stores with the same path share metrics.
func newStoreMetrics(registerer prometheus.Registerer, path string) *storeMetrics {
	m := &storeMetrics{}
	labels := prometheus.Labels{"path": path}

	m.sets = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "sets_total",
		ConstLabels: labels,
		Help:        "Total number of records appended by Set.",
	})
	m.gets = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "gets_total",
		ConstLabels: labels,
		Help:        "Total number of Get calls.",
	})
	m.getMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "get_misses_total",
		ConstLabels: labels,
		Help:        "Total number of Get calls for keys not in the index.",
	})
	m.appendedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "appended_bytes_total",
		ConstLabels: labels,
		Help:        "Total number of bytes appended to the store file.",
	})
	m.replayedRecords = prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "replayed_records_total",
		ConstLabels: labels,
		Help:        "Total number of records read from the store file on open.",
	})
	m.keys = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "keys",
		ConstLabels: labels,
		Help:        "Number of distinct keys in the index.",
	})

	if registerer != nil {
		registerer = prometheus.WrapRegistererWithPrefix("kvstore_", registerer)
		m.sets = register(registerer, m.sets)
		m.gets = register(registerer, m.gets)
		m.getMisses = register(registerer, m.getMisses)
		m.appendedBytes = register(registerer, m.appendedBytes)
		m.replayedRecords = register(registerer, m.replayedRecords)
		m.keys = register(registerer, m.keys)
	}
	return m
}
