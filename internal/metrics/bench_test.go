package metrics

import "testing"

// BenchmarkFanoutCounters charges the counters the output fan-out
// updates for every unit mirrored to four clients.
func BenchmarkFanoutCounters(b *testing.B) {
	c := New()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.UnitsFromProcess(1)
		c.BytesToClients(4)
	}
}

// BenchmarkFaninCounters runs the input counter from many clients at
// once, as concurrent forwarders do.
func BenchmarkFaninCounters(b *testing.B) {
	c := New()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.UnitsToProcess(1)
		}
	})
}

func BenchmarkSummary(b *testing.B) {
	c := New()
	for i := 0; i < 8; i++ {
		c.ClientConnected()
	}
	c.ClientWriteFailed()
	c.RecordError("client write: broken pipe")

	b.Run("snapshot", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = c.Snapshot()
		}
	})
	b.Run("json", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = c.JSON()
		}
	})
}

// BenchmarkDisabled is the cost when no collector is configured.
func BenchmarkDisabled(b *testing.B) {
	var c *Collector
	for i := 0; i < b.N; i++ {
		c.UnitsFromProcess(1)
		c.BytesToClients(4)
	}
}
