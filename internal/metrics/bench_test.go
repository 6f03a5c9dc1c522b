package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
)

// One full switch as the orchestrator records it.
func BenchmarkCollector_SwitchRecord(b *testing.B) {
	c := New()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		done := c.SwitchStarted()
		c.ModeSwitchRequested()
		for p := 0; p < 5; p++ {
			c.PollAttempt()
		}
		c.Connected("connected")
		done(OutcomeOK)
	}
}

// Watch mode reports the device count on every listing.
func BenchmarkCollector_DevicesSeen(b *testing.B) {
	c := New()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.DevicesSeen(i % 4)
	}
}

// A /metrics scrape with every family populated.
func BenchmarkCollector_Scrape(b *testing.B) {
	c := New()
	c.SwitchStarted()(OutcomeNotInSameNetwork)
	c.BrokerLaunched()
	c.RecordError("adb server unavailable")
	h := c.Handler()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		io.Copy(io.Discard, rec.Body) //nolint:errcheck
	}
}

// Components built without metrics pass a nil collector.
func BenchmarkCollector_Nil(b *testing.B) {
	var c *Collector
	for i := 0; i < b.N; i++ {
		c.PollAttempt()
		c.Connected("connected")
		c.RecordError("x")
	}
}
