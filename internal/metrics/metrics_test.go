package metrics

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"soundchat/pkg/modem"
)

func newMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestObserveRecording(t *testing.T) {
	m := newMetrics(t)
	m.ObserveRecording(44100)
	m.ObserveRecording(100)

	assert.Equal(t, float64(44200), testutil.ToFloat64(m.SamplesRecorded))
}

func TestObserveDecode(t *testing.T) {
	m := newMetrics(t)

	res := &modem.Result{Warnings: []modem.Warning{
		{Kind: modem.AmbiguousBit, Chunk: 4},
		{Kind: modem.AmbiguousBit, Chunk: 9},
		{Kind: modem.TruncatedFrame, Chunk: 2},
	}}
	m.ObserveDecode(res, nil, 10*time.Millisecond)
	m.ObserveDecode(nil, modem.ErrNoStartSignal, time.Millisecond)
	m.ObserveDecode(nil, modem.ErrNoStartSignal, time.Millisecond)
	m.ObserveDecode(nil, modem.ErrEmptyPayload, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.MessagesReceived))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DecodeDuration))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Warnings.WithLabelValues("ambiguous_bit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Warnings.WithLabelValues("truncated_frame")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.DecodeFailures.WithLabelValues("no_start_signal")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecodeFailures.WithLabelValues("empty_payload")))
}

func TestNilMetricsIgnored(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRecording(10)
		m.ObserveDecode(nil, modem.ErrNoStartSignal, 0)
	})
}

func TestDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New(registry)
	require.NoError(t, err)
	_, err = New(registry)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	m := newMetrics(t)
	m.MessagesReceived.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "soundchat_messages_received_total 1")
}

func TestServe(t *testing.T) {
	m := newMetrics(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, addr, zap.NewNop()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
