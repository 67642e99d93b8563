package workers

import (
	"context"
	"log/slog"
	"os"
	"time"

	"chat-backend/domain/event"

	"github.com/shirou/gopsutil/process"
)

// ProcessHealthWorker samples the server's own CPU, RAM, and status and ships
// them to the telemetry channel every metricInterval.
type ProcessHealthWorker struct {
	log            *slog.Logger
	telemetryChan  chan event.Event
	metricInterval time.Duration
}

func NewProcessHealthWorker(log *slog.Logger, telemetryChan chan event.Event,
	metricInterval time.Duration) *ProcessHealthWorker {
	return &ProcessHealthWorker{
		log:            log,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
	}
}

func (w *ProcessHealthWorker) Run(ctx context.Context) error {
	pid := os.Getpid()
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health sampling")
			return nil
		case <-ticker.C:
			status, err := p.Status()
			if err != nil {
				w.log.Error("Error while finding process status", "err", err)
				continue
			}
			cpu, err := p.CPUPercent()
			if err != nil {
				w.log.Error("Error while finding process cpu usage", "err", err)
				continue
			}
			ram, err := p.MemoryPercent()
			if err != nil {
				w.log.Error("Error while finding process ram usage", "err", err)
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case w.telemetryChan <- toHealthEvent(pid, status, cpu, ram):
			default:
				w.log.Debug("Observability telemetry event lost")
			}
		}
	}
}

func toHealthEvent(pid int, status string, cpu float64, ram float32) event.Event {
	return event.Event{
		Type:      event.ProcessHealthType,
		CreatedAt: time.Now().UTC(),
		Payload: event.ProcessHealth{
			PID:        pid,
			Status:     status,
			CPUPercent: cpu,
			RAMPercent: ram,
		},
	}
}
