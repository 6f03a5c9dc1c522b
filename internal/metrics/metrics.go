// Package metrics counts what the orchestrator does: network switches,
// broker launches, poll attempts and connect outcomes.  Counters are
// exported through a Prometheus registry and mirrored in atomics so a
// JSON snapshot is available without scraping.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "headsetctl"

// Switch outcomes used as the "outcome" label.
const (
	OutcomeOK               = "ok"
	OutcomeNotInNetwork     = "not_in_network"
	OutcomeNotInSameNetwork = "not_in_same_network"
	OutcomeError            = "error"
)

// Collector tracks runtime metrics for a headsetctl process.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	registry *prometheus.Registry

	switches       *prometheus.CounterVec
	switchDuration prometheus.Histogram
	activeSwitches prometheus.Gauge
	brokerLaunches prometheus.Counter
	modeRequests   prometheus.Counter
	pollAttempts   prometheus.Counter
	connects       *prometheus.CounterVec
	devices        prometheus.Gauge
	errors         prometheus.Counter

	switchesTotal  atomic.Int64
	switchesOK     atomic.Int64
	active         atomic.Int64
	launchesTotal  atomic.Int64
	modeTotal      atomic.Int64
	pollTotal      atomic.Int64
	connectsTotal  atomic.Int64
	devicesCurrent atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with its own registry and the start time set
// to now.
func New() *Collector {
	c := &Collector{
		registry:  prometheus.NewRegistry(),
		startTime: time.Now(),
		switches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_switches_total",
			Help:      "USB to network switch attempts by outcome",
		}, []string{"outcome"}),
		switchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "network_switch_duration_seconds",
			Help:      "Wall time of a USB to network switch",
			Buckets:   []float64{0.1, 0.5, 1, 2, 4, 6, 8, 12, 20},
		}),
		activeSwitches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "network_switches_active",
			Help:      "Switches currently in progress",
		}),
		brokerLaunches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_launches_total",
			Help:      "Times the ADB server had to be started",
		}),
		modeRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tcpip_requests_total",
			Help:      "Times a device was asked to restart its daemon in TCP mode",
		}),
		pollAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_attempts_total",
			Help:      "Device listing polls made while waiting for reappearance",
		}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Network connect requests by result",
		}, []string{"result"}),
		devices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices",
			Help:      "Devices in the most recent listing",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors surfaced to callers",
		}),
	}
	c.registry.MustRegister(
		c.switches, c.switchDuration, c.activeSwitches, c.brokerLaunches,
		c.modeRequests, c.pollAttempts, c.connects, c.devices, c.errors,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ── Switch metrics ───────────────────────────────────────────────────

// SwitchStarted marks a switch as in progress.  The returned function
// records its outcome and duration.
func (c *Collector) SwitchStarted() (done func(outcome string)) {
	if c == nil {
		return func(string) {}
	}
	start := time.Now()
	c.active.Add(1)
	c.activeSwitches.Inc()
	return func(outcome string) {
		c.active.Add(-1)
		c.activeSwitches.Dec()
		c.switchesTotal.Add(1)
		if outcome == OutcomeOK {
			c.switchesOK.Add(1)
		}
		c.switches.WithLabelValues(outcome).Inc()
		c.switchDuration.Observe(time.Since(start).Seconds())
	}
}

// BrokerLaunched counts a supervisor launch.
func (c *Collector) BrokerLaunched() {
	if c == nil {
		return
	}
	c.launchesTotal.Add(1)
	c.brokerLaunches.Inc()
}

// ModeSwitchRequested counts a tcpip request.
func (c *Collector) ModeSwitchRequested() {
	if c == nil {
		return
	}
	c.modeTotal.Add(1)
	c.modeRequests.Inc()
}

// PollAttempt counts one reappearance check.
func (c *Collector) PollAttempt() {
	if c == nil {
		return
	}
	c.pollTotal.Add(1)
	c.pollAttempts.Inc()
}

// Connected counts a connect request by result
// ("connected", "already connected", "failed").
func (c *Collector) Connected(result string) {
	if c == nil {
		return
	}
	c.connectsTotal.Add(1)
	c.connects.WithLabelValues(result).Inc()
}

// DevicesSeen records the size of the latest listing.
func (c *Collector) DevicesSeen(n int) {
	if c == nil {
		return
	}
	c.devicesCurrent.Store(int64(n))
	c.devices.Set(float64(n))
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.errors.Inc()
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of recorded errors.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SwitchesTotal    int64  `json:"switches_total"`
	SwitchesOK       int64  `json:"switches_ok"`
	SwitchesActive   int64  `json:"switches_active"`
	BrokerLaunches   int64  `json:"broker_launches"`
	TCPIPRequests    int64  `json:"tcpip_requests"`
	PollAttempts     int64  `json:"poll_attempts"`
	Connects         int64  `json:"connects"`
	Devices          int64  `json:"devices"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:         time.Since(c.startTime).Truncate(time.Second).String(),
		SwitchesTotal:  c.switchesTotal.Load(),
		SwitchesOK:     c.switchesOK.Load(),
		SwitchesActive: c.active.Load(),
		BrokerLaunches: c.launchesTotal.Load(),
		TCPIPRequests:  c.modeTotal.Load(),
		PollAttempts:   c.pollTotal.Load(),
		Connects:       c.connectsTotal.Load(),
		Devices:        c.devicesCurrent.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
