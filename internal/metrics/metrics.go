// Package metrics exposes per-outcome counters and transcode timings.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NFT-com/image-resizer/internal/entities"
)

const namespace = "image_resizer"

type Metrics struct {
	registry  *prometheus.Registry
	outcomes  *prometheus.CounterVec
	transcode *prometheus.HistogramVec
}

func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Transcode requests by terminal outcome",
			},
			[]string{"outcome"},
		),
		transcode: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transcode_duration_seconds",
				Help:      "Wall-clock time of decode, resize and encode",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
			[]string{"animated"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.outcomes,
		m.transcode,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) Outcome(o entities.Outcome) {
	m.outcomes.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) Transcode(d time.Duration, animated bool) {
	label := "false"
	if animated {
		label = "true"
	}
	m.transcode.WithLabelValues(label).Observe(d.Seconds())
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
