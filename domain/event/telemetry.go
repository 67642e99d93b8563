package event

import "time"

type Type string

const (
	DomainType          Type = "DOMAIN"
	ChannelCapacityType Type = "CHANNEL_CAPACITY"
	ProcessHealthType   Type = "PROCESS_HEALTH"
)

// Event is the telemetry envelope flowing on the observability channel.
// Delivery is best-effort; losing a sample is acceptable.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

type ProcessHealth struct {
	PID        int
	Status     string
	CPUPercent float64
	RAMPercent float32
}

// Handler reacts to a telemetry event. Handlers must not block.
type Handler interface {
	Handle(e Event)
}
