// Package observability aggregates runtime telemetry for the health endpoint.
// It only observes; nothing in here may influence message delivery.
package observability

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ChannelStat is the latest sampled depth of one internal channel.
type ChannelStat struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Length   int    `json:"length"`
}

// Stats aggregates all metrics served by /api/health.
type Stats struct {
	// --- GATEWAY METRICS ---
	ActiveConnections int64  `json:"active_connections"`
	MessagesPersisted uint64 `json:"messages_persisted"`
	EventsBroadcast   uint64 `json:"events_broadcast"`
	DeliveriesDropped uint64 `json:"deliveries_dropped"`
	ModerationHits    uint64 `json:"moderation_hits"`

	// --- PROCESS METRICS ---
	PID        int     `json:"pid"`
	PidStatus  string  `json:"pid_status"`
	CPUPercent float64 `json:"cpu_percent"`
	RAMPercent float32 `json:"ram_percent"`

	// --- SYSTEM METRICS ---
	AllocMemMb uint64        `json:"alloc_mem_mb"`
	NumGC      uint32        `json:"num_gc"`
	Channels   []ChannelStat `json:"channels"`
	SampledAt  time.Time     `json:"sampled_at"`
}

// Monitor collects counters from the gateway and the telemetry workers.
type Monitor struct {
	mu sync.RWMutex

	// Atomic counters for the hot path; connections is a gauge.
	connections atomic.Int64
	messages    uint64
	broadcasts  uint64
	dropped     uint64
	moderation  uint64

	pid        int
	pidStatus  string
	cpuPercent float64
	ramPercent float32
	channels   []ChannelStat
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) ConnOpened() { m.connections.Add(1) }

func (m *Monitor) ConnClosed() { m.connections.Add(-1) }

func (m *Monitor) AddMessage() { atomic.AddUint64(&m.messages, 1) }

func (m *Monitor) AddBroadcast(delivered, dropped int) {
	if delivered > 0 {
		atomic.AddUint64(&m.broadcasts, uint64(delivered))
	}
	if dropped > 0 {
		atomic.AddUint64(&m.dropped, uint64(dropped))
	}
}

func (m *Monitor) AddModerationHit() { atomic.AddUint64(&m.moderation, 1) }

func (m *Monitor) SetProcessStats(pid int, status string, cpu float64, ram float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pid = pid
	m.pidStatus = status
	m.cpuPercent = cpu
	m.ramPercent = ram
}

func (m *Monitor) SetChannelStat(stat ChannelStat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.channels {
		if c.Name == stat.Name {
			m.channels[i] = stat
			return
		}
	}
	m.channels = append(m.channels, stat)
}

// Snapshot builds the current Stats. Reading runtime.MemStats here keeps the
// GC pressure on the caller (the health endpoint), not on the samplers.
func (m *Monitor) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m.mu.RLock()
	defer m.mu.RUnlock()

	channels := make([]ChannelStat, len(m.channels))
	copy(channels, m.channels)

	return Stats{
		ActiveConnections: m.connections.Load(),
		MessagesPersisted: atomic.LoadUint64(&m.messages),
		EventsBroadcast:   atomic.LoadUint64(&m.broadcasts),
		DeliveriesDropped: atomic.LoadUint64(&m.dropped),
		ModerationHits:    atomic.LoadUint64(&m.moderation),
		PID:               m.pid,
		PidStatus:         m.pidStatus,
		CPUPercent:        m.cpuPercent,
		RAMPercent:        m.ramPercent,
		AllocMemMb:        mem.Alloc / 1024 / 1024,
		NumGC:             mem.NumGC,
		Channels:          channels,
		SampledAt:         time.Now().UTC(),
	}
}
