package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	"github.com/xerra-oss/go-sio/pkg/buffer"
)

func collectOne(t *testing.T, c prometheus.Collector, wantDescs int) []dto.Metric {
	t.Helper()
	descs := make(chan *prometheus.Desc, 64)
	c.Describe(descs)
	close(descs)
	n := 0
	for range descs {
		n++
	}
	if n != wantDescs {
		t.Fatalf("Describe emitted %d descriptors, want %d", n, wantDescs)
	}

	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)

	var out []dto.Metric
	for m := range ch {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			t.Fatalf("Write: %v", err)
		}
		out = append(out, pb)
	}
	return out
}

func TestPoolCollectorReportsOccupancy(t *testing.T) {
	pool, err := buffer.NewPool(4, 256)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	defer pool.Destroy()

	if _, _, err := pool.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	c := NewPoolCollector("sio_test_pool", pool)
	metrics := collectOne(t, c, 2)
	if len(metrics) != 2 {
		t.Fatalf("Collect emitted %d metrics, want 2", len(metrics))
	}

	var capacity, inUse float64
	for _, m := range metrics {
		if m.Gauge == nil {
			continue
		}
		switch *m.Gauge.Value {
		case 4:
			capacity = *m.Gauge.Value
		case 1:
			inUse = *m.Gauge.Value
		}
	}
	if capacity != 4 {
		t.Errorf("capacity gauge = %v, want 4", capacity)
	}
	if inUse != 1 {
		t.Errorf("in-use gauge = %v, want 1", inUse)
	}
}

func TestStreamCounterIncDec(t *testing.T) {
	c := NewStreamCounter("sio_test_open_streams")
	c.Inc("file")
	c.Inc("file")
	c.Inc("socket")
	c.Dec("file")

	metrics := collectOne(t, c, 1)
	got := map[string]float64{}
	for _, m := range metrics {
		if m.Gauge == nil || len(m.Label) == 0 {
			continue
		}
		got[*m.Label[0].Value] = *m.Gauge.Value
	}
	if got["file"] != 1 {
		t.Errorf("file count = %v, want 1", got["file"])
	}
	if got["socket"] != 1 {
		t.Errorf("socket count = %v, want 1", got["socket"])
	}
}

func TestStreamCounterDecBelowZeroStaysZero(t *testing.T) {
	c := NewStreamCounter("sio_test_open_streams_floor")
	c.Dec("timer")
	metrics := collectOne(t, c, 1)
	if len(metrics) != 0 {
		t.Fatalf("Collect emitted %d metrics for a never-incremented kind, want 0", len(metrics))
	}
}

func TestTCPInfoCollectorRemovesConnOnSampleFailure(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	c := NewTCPInfoCollector("sio_test_tcp", []string{"remote"}, nil, logger)
	c.Add("127.0.0.1:9", -1, []string{"127.0.0.1:9"})

	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)
	for range ch {
	}

	if len(hook.Entries) == 0 || hook.LastEntry().Level != logrus.ErrorLevel {
		t.Fatal("expected an error to be logged for an invalid fd")
	}
	c.mu.Lock()
	_, stillPresent := c.conns["127.0.0.1:9"]
	c.mu.Unlock()
	if stillPresent {
		t.Fatal("failed conn should have been removed from the collector")
	}
}

func TestTCPInfoCollectorNilLoggerFallsBackToStandardLogger(t *testing.T) {
	c := NewTCPInfoCollector("sio_test_tcp_nil_logger", []string{"remote"}, nil, nil)
	if c.logger == nil {
		t.Fatal("nil logger should fall back to logrus.StandardLogger()")
	}
}
