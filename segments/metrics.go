package segments

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type managerMetrics struct {
	rolls    prometheus.Counter
	segments prometheus.Gauge
}

// register registers c or returns an equal, already registered collector
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

func newManagerMetrics(registerer prometheus.Registerer, dir string) *managerMetrics {
	labels := prometheus.Labels{"dir": dir}
	m := &managerMetrics{
		rolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "rolls_total",
			ConstLabels: labels,
			Help:        "Total number of sealed segments.",
		}),
		segments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "segments",
			ConstLabels: labels,
			Help:        "Number of open segments.",
		}),
	}
	if registerer != nil {
		registerer = prometheus.WrapRegistererWithPrefix("segments_", registerer)
		m.rolls = register(registerer, m.rolls)
		m.segments = register(registerer, m.segments)
	}
	return m
}
