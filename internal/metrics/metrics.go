// Package metrics provides lightweight, lock-free counters for tracking
// runtime statistics of a stdio-socket session.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one session.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	clientsActive     atomic.Int64
	clientsTotal      atomic.Int64
	unitsOut          atomic.Int64 // process output units
	unitsIn           atomic.Int64 // units written to process input
	clientBytes       atomic.Int64 // bytes delivered to clients
	clientWriteErrors atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Client metrics ───────────────────────────────────────────────────

// ClientConnected increments both the active and total counters.
func (c *Collector) ClientConnected() {
	if c == nil {
		return
	}
	c.clientsActive.Add(1)
	c.clientsTotal.Add(1)
}

// ClientDisconnected decrements the active client counter.
func (c *Collector) ClientDisconnected() {
	if c == nil {
		return
	}
	c.clientsActive.Add(-1)
}

// ActiveClients returns the current number of attached clients.
func (c *Collector) ActiveClients() int64 {
	if c == nil {
		return 0
	}
	return c.clientsActive.Load()
}

// TotalClients returns the lifetime client count.
func (c *Collector) TotalClients() int64 {
	if c == nil {
		return 0
	}
	return c.clientsTotal.Load()
}

// ClientWriteFailed records a client sink dropped after a failed write.
func (c *Collector) ClientWriteFailed() {
	if c == nil {
		return
	}
	c.clientWriteErrors.Add(1)
}

// ClientWriteErrors returns the number of failed client writes.
func (c *Collector) ClientWriteErrors() int64 {
	if c == nil {
		return 0
	}
	return c.clientWriteErrors.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// UnitsFromProcess records n units read from the process output.
func (c *Collector) UnitsFromProcess(n int64) {
	if c == nil {
		return
	}
	c.unitsOut.Add(n)
}

// UnitsToProcess records n units written to the process input.
func (c *Collector) UnitsToProcess(n int64) {
	if c == nil {
		return
	}
	c.unitsIn.Add(n)
}

// BytesToClients records n bytes delivered to a client sink.
func (c *Collector) BytesToClients(n int64) {
	if c == nil {
		return
	}
	c.clientBytes.Add(n)
}

// TotalUnitsOut returns the units read from the process.
func (c *Collector) TotalUnitsOut() int64 {
	if c == nil {
		return 0
	}
	return c.unitsOut.Load()
}

// TotalUnitsIn returns the units written to the process.
func (c *Collector) TotalUnitsIn() int64 {
	if c == nil {
		return 0
	}
	return c.unitsIn.Load()
}

// TotalClientBytes returns the bytes delivered to clients.
func (c *Collector) TotalClientBytes() int64 {
	if c == nil {
		return 0
	}
	return c.clientBytes.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	ClientsActive     int64  `json:"clients_active"`
	ClientsTotal      int64  `json:"clients_total"`
	UnitsFromProcess  int64  `json:"units_from_process"`
	UnitsToProcess    int64  `json:"units_to_process"`
	BytesToClients    int64  `json:"bytes_to_clients"`
	ClientWriteErrors int64  `json:"client_write_errors"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ClientsActive:     c.clientsActive.Load(),
		ClientsTotal:      c.clientsTotal.Load(),
		UnitsFromProcess:  c.unitsOut.Load(),
		UnitsToProcess:    c.unitsIn.Load(),
		BytesToClients:    c.clientBytes.Load(),
		ClientWriteErrors: c.clientWriteErrors.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
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
