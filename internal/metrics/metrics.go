// Package metrics exposes Prometheus counters for received messages.
package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"soundchat/pkg/modem"
)

// Metrics contains the soundchat collectors. A nil *Metrics is valid and
// records nothing, so callers do not need to check whether metrics are on.
type Metrics struct {
	MessagesReceived prometheus.Counter
	DecodeFailures   *prometheus.CounterVec
	Warnings         *prometheus.CounterVec
	DecodeDuration   prometheus.Histogram
	SamplesRecorded  prometheus.Counter
	registry         *prometheus.Registry
}

func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.MessagesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "soundchat_messages_received_total",
		Help: "Total number of messages decoded",
	})
	m.DecodeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soundchat_decode_failures_total",
		Help: "Total number of recordings that could not be decoded",
	}, []string{"kind"})
	m.Warnings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soundchat_decode_warnings_total",
		Help: "Total number of warnings raised while decoding",
	}, []string{"kind"})
	m.DecodeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "soundchat_decode_duration_seconds",
		Help:    "Time spent demodulating a recording",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	m.SamplesRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "soundchat_samples_recorded_total",
		Help: "Total number of samples captured for decoding",
	})
}

func label(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

func (m *Metrics) ObserveRecording(samples int) {
	if m == nil {
		return
	}
	m.SamplesRecorded.Add(float64(samples))
}

// ObserveDecode records the outcome of one Demodulate call that took elapsed.
func (m *Metrics) ObserveDecode(res *modem.Result, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DecodeDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.DecodeFailures.WithLabelValues(label(modem.KindOf(err).String())).Inc()
		return
	}
	m.MessagesReceived.Inc()
	for _, w := range res.Warnings {
		m.Warnings.WithLabelValues(label(w.Kind.String())).Inc()
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.MessagesReceived.Describe(ch)
	m.DecodeFailures.Describe(ch)
	m.Warnings.Describe(ch)
	m.DecodeDuration.Describe(ch)
	m.SamplesRecorded.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.MessagesReceived.Collect(ch)
	m.DecodeFailures.Collect(ch)
	m.Warnings.Collect(ch)
	m.DecodeDuration.Collect(ch)
	m.SamplesRecorded.Collect(ch)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		<-errc
		return nil
	}
}
