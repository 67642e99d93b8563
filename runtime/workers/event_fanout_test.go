package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-backend/domain/event"
	"chat-backend/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_Delivers_To_All_Sinks(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	timelineSink := mocks.NewMockEventSink(ctrl)
	searchSink := mocks.NewMockEventSink(ctrl)

	domainChan := make(chan event.DomainEvent, 10)
	telemetryChan := make(chan event.Event, 10)
	worker := NewEventFanout(log, domainChan, telemetryChan, timelineSink, searchSink)

	done := make(chan struct{})
	// Given both sinks consume the event
	timelineSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	searchSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Do(
		func(ctx context.Context, evt event.DomainEvent) {
			close(done)
		}).Return(nil).
		Times(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = worker.Run(ctx)
	}()

	// When an event enters the pipeline
	domainChan <- event.MessageReceived{Room: 1, UserID: "alice", Content: "hi"}

	// Then both sinks saw it and a telemetry copy was teed
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Sinks were not consumed in time")
	}

	select {
	case tele := <-telemetryChan:
		req.Equal(event.DomainType, tele.Type)
	case <-time.After(1 * time.Second):
		req.Fail("Telemetry copy was not emitted")
	}
}

func TestEventFanout_Failing_Sink_Does_Not_Stop_Others(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	failingSink := mocks.NewMockEventSink(ctrl)
	healthySink := mocks.NewMockEventSink(ctrl)

	domainChan := make(chan event.DomainEvent, 10)
	telemetryChan := make(chan event.Event, 10)
	worker := NewEventFanout(log, domainChan, telemetryChan, failingSink, healthySink)

	failingSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		Return(context.DeadlineExceeded).Times(1)

	consumed := make(chan struct{})
	healthySink.EXPECT().Consume(gomock.Any(), gomock.Any()).Do(
		func(ctx context.Context, evt event.DomainEvent) {
			close(consumed)
		}).Return(nil).
		Times(1)

	// When fanning out directly
	worker.Fanout(context.Background(), event.UserJoined{UserID: "alice", Room: 1})

	select {
	case <-consumed:
	case <-time.After(1 * time.Second):
		req.Fail("Healthy sink should have been consumed despite the failure")
	}
}
