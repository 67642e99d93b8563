package observability

import (
	"chat-backend/domain/event"
)

// ChannelCapacityHandler feeds sampled channel depths into the monitor.
type ChannelCapacityHandler struct {
	Monitor *Monitor
}

func (h ChannelCapacityHandler) Handle(e event.Event) {
	if e.Type != event.ChannelCapacityType {
		return
	}
	payload, ok := e.Payload.(event.ChannelCapacity)
	if !ok {
		return
	}
	h.Monitor.SetChannelStat(ChannelStat{
		Name:     payload.ChannelName,
		Capacity: payload.Capacity,
		Length:   payload.Length,
	})
}

// ProcessHealthHandler feeds self-process samples into the monitor.
type ProcessHealthHandler struct {
	Monitor *Monitor
}

func (h ProcessHealthHandler) Handle(e event.Event) {
	if e.Type != event.ProcessHealthType {
		return
	}
	payload, ok := e.Payload.(event.ProcessHealth)
	if !ok {
		return
	}
	h.Monitor.SetProcessStats(payload.PID, payload.Status, payload.CPUPercent, payload.RAMPercent)
}
