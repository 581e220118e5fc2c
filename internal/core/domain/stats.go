package domain

import "sync/atomic"

// ConnectionStats holds process-wide atomic counters updated by the server
// as connections and requests are handled.
type ConnectionStats struct {
	ActiveConnections atomic.Int64
	TotalConnections  atomic.Uint64
	TotalRequests     atomic.Uint64
	TotalTunnels      atomic.Uint64
	TotalErrors       atomic.Uint64
}

// StatsSnapshot is a point-in-time, non-atomic copy suitable for reporting.
type StatsSnapshot struct {
	ActiveConnections int64
	TotalConnections  uint64
	TotalRequests     uint64
	TotalTunnels      uint64
	TotalErrors       uint64
}

func (c *ConnectionStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		ActiveConnections: c.ActiveConnections.Load(),
		TotalConnections:  c.TotalConnections.Load(),
		TotalRequests:     c.TotalRequests.Load(),
		TotalTunnels:      c.TotalTunnels.Load(),
		TotalErrors:       c.TotalErrors.Load(),
	}
}
