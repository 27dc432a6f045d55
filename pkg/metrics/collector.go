// Package metrics exports prometheus.Collector implementations over
// socket TCP_INFO samples, buffer pool occupancy, and open-stream
// counts (domain stack enrichment beyond spec.md's own scope).
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/xerra-oss/go-sio/pkg/buffer"
	"github.com/xerra-oss/go-sio/pkg/socket"
)

type tcpInfoField struct {
	description *prometheus.Desc
	valueType   prometheus.ValueType
	supplier    func(info *socket.TCPInfo) float64
}

type connEntry struct {
	fd     int
	labels []string
}

// TCPInfoCollector samples TCP_INFO for a registered set of file
// descriptors on every Collect call, adapted from a TCPInfoCollector
// that sampled net.Conn directly; here the caller registers a raw fd
// obtained via a socket stream's OptNativeHandle so any SIO stream
// backend can be sourced, not just stdlib net.Conn.
type TCPInfoCollector struct {
	mu     sync.Mutex
	conns  map[string]connEntry
	logger logrus.FieldLogger
	fields []tcpInfoField
}

// NewTCPInfoCollector mirrors the teacher's constructor shape: a
// metric name prefix, a set of per-connection variable label names,
// process-wide const labels, and a logger invoked (instead of
// panicking) when a registered fd's TCP_INFO sample fails. A nil
// logger falls back to logrus.StandardLogger(), generalizing the
// teacher's plain logger func(error) field into the richer
// logrus.FieldLogger interface.
func NewTCPInfoCollector(prefix string, variableLabels []string, constLabels prometheus.Labels, logger logrus.FieldLogger) *TCPInfoCollector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(fmt.Sprintf("%s_%s", prefix, name), help, variableLabels, constLabels)
	}

	fields := []tcpInfoField{
		{desc("state", "Connection state, see include/net/tcp_states.h."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.State) }},
		{desc("ca_state", "Loss recovery state machine, see include/net/tcp.h."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.CAState) }},
		{desc("retransmits", "Number of RTO-based retransmissions at this sequence."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.Retransmits) }},
		{desc("rtt", "Smoothed round trip time, in microseconds."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.RTT) }},
		{desc("rttvar", "Round trip time variance, in microseconds."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.RTTVar) }},
		{desc("snd_cwnd", "Congestion window, controlled by congestion control."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.SndCWnd) }},
		{desc("snd_ssthresh", "Slow start threshold."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.SndSSThresh) }},
		{desc("rcv_space", "Space reserved for the receive queue."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.RcvSpace) }},
		{desc("total_retrans", "Total number of segments containing retransmitted data."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.TotalRetrans) }},
		{desc("pacing_rate", "Current pacing rate, in bytes per second."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.PacingRate) }},
		{desc("bytes_acked", "Cumulative data bytes acknowledged."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.BytesAcked) }},
		{desc("bytes_received", "Cumulative data bytes acknowledged as received."), prometheus.CounterValue, func(i *socket.TCPInfo) float64 { return float64(i.BytesReceived) }},
		{desc("segs_out", "Segments transmitted, including pure ACKs."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.SegsOut) }},
		{desc("segs_in", "Segments received, including pure ACKs."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.SegsIn) }},
		{desc("min_rtt", "Minimum observed round trip time, in microseconds."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 { return float64(i.MinRTT) }},
		{desc("delivery_rate_app_limited", "1 if rate measurements reflect non-network bottlenecks."), prometheus.GaugeValue, func(i *socket.TCPInfo) float64 {
			if i.DeliveryRateAppLimited {
				return 1
			}
			return 0
		}},
	}

	collector := &TCPInfoCollector{
		conns:  make(map[string]connEntry),
		logger: logger,
		fields: fields,
	}

	collector.fields = append(collector.fields, tcpInfoField{
		description: desc("fastopen_client_fail", "Reason TCP fastopen failed, when known for this kernel."),
		valueType:   prometheus.GaugeValue,
		supplier: func(i *socket.TCPInfo) float64 {
			if !i.FastOpenClientFailKnown {
				return -1
			}
			return float64(i.FastOpenClientFail)
		},
	})

	return collector
}

func (c *TCPInfoCollector) Describe(descs chan<- *prometheus.Desc) {
	for _, f := range c.fields {
		descs <- f.description
	}
}

func (c *TCPInfoCollector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.conns {
		info, err := socket.GetTCPInfo(entry.fd)
		if err != nil {
			c.logger.WithField("key", key).WithError(err).Error("tcpinfo sample failed, removing connection")
			delete(c.conns, key)
			continue
		}
		for _, f := range c.fields {
			metrics <- prometheus.MustNewConstMetric(f.description, f.valueType, f.supplier(info), entry.labels...)
		}
	}
}

// Add registers fd under key (caller-chosen, typically a remote
// address string) with the given variable label values.
func (c *TCPInfoCollector) Add(key string, fd int, labels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[key] = connEntry{fd: fd, labels: labels}
}

func (c *TCPInfoCollector) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, key)
}

// PoolCollector exports a buffer.Pool's occupancy as gauges; this has
// no teacher analogue (the pack's exporter only ever sampled
// TCP_INFO) and is grounded directly on spec.md §4.C's Pool
// accounting fields.
type PoolCollector struct {
	pool       *buffer.Pool
	countDesc  *prometheus.Desc
	inUseDesc  *prometheus.Desc
}

func NewPoolCollector(name string, pool *buffer.Pool) *PoolCollector {
	return &PoolCollector{
		pool:      pool,
		countDesc: prometheus.NewDesc(fmt.Sprintf("%s_capacity", name), "Total number of buffer slots in the pool.", nil, nil),
		inUseDesc: prometheus.NewDesc(fmt.Sprintf("%s_in_use", name), "Number of buffer slots currently acquired.", nil, nil),
	}
}

func (c *PoolCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.countDesc
	descs <- c.inUseDesc
}

func (c *PoolCollector) Collect(metrics chan<- prometheus.Metric) {
	metrics <- prometheus.MustNewConstMetric(c.countDesc, prometheus.GaugeValue, float64(c.pool.Count()))
	metrics <- prometheus.MustNewConstMetric(c.inUseDesc, prometheus.GaugeValue, float64(c.pool.InUse()))
}

// StreamCounter tracks open-stream counts per stream.Kind, incremented
// and decremented explicitly by callers around their own Open/Close
// calls (the core stream package never learns about metrics, keeping
// pkg/stream free of a pkg/metrics import cycle).
type StreamCounter struct {
	mu     sync.Mutex
	counts map[string]int
	desc   *prometheus.Desc
}

func NewStreamCounter(name string) *StreamCounter {
	return &StreamCounter{
		counts: make(map[string]int),
		desc:   prometheus.NewDesc(name, "Number of currently open streams, by kind.", []string{"kind"}, nil),
	}
}

func (c *StreamCounter) Inc(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[kind]++
}

func (c *StreamCounter) Dec(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts[kind] > 0 {
		c.counts[kind]--
	}
}

func (c *StreamCounter) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.desc
}

func (c *StreamCounter) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for kind, n := range c.counts {
		metrics <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), kind)
	}
}
