package observability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMonitor_Connection_Gauge(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor()

	// Given two connections, one of which closes
	monitor.ConnOpened()
	monitor.ConnOpened()
	monitor.ConnClosed()

	req.Equal(int64(1), monitor.Snapshot().ActiveConnections)

	// Closing the last one brings the gauge back to zero, not a wraparound
	monitor.ConnClosed()
	req.Zero(monitor.Snapshot().ActiveConnections)
}

func TestMonitor_Broadcast_Counts_Drops_Separately(t *testing.T) {
	req := require.New(t)
	monitor := NewMonitor()

	// When a fan-out delivers to two members and drops one
	monitor.AddBroadcast(2, 1)
	monitor.AddBroadcast(1, 0)

	stats := monitor.Snapshot()
	req.Equal(uint64(3), stats.EventsBroadcast)
	req.Equal(uint64(1), stats.DeliveriesDropped)
}
