package sse

import (
	"testing"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_NotifyProgressReachesRunSubscribers(t *testing.T) {
	// Arrange
	hub := NewHub()
	events, cleanup := hub.Subscribe("run-1")
	defer cleanup()
	other, cleanupOther := hub.Subscribe("run-2")
	defer cleanupOther()

	// Act
	hub.NotifyProgress(payroll.PayrollRunProgress{
		RunID:          "run-1",
		Status:         payroll.ProgressStatusProcessing,
		TotalEmployees: 4,
		ProcessedCount: 1,
	})

	// Assert
	require.Len(t, events, 1)
	ev := <-events
	assert.Equal(t, EventProgress, ev.Event)
	assert.Equal(t, "run-1", ev.RunID)
	resp, ok := ev.Data.(payroll.ProgressResponse)
	require.True(t, ok)
	assert.Equal(t, 25.0, resp.PercentComplete)
	assert.NotNil(t, resp.Errors)
	assert.Len(t, other, 0)
}

func TestHub_PublishDoesNotBlockOnFullChannel(t *testing.T) {
	hub := NewHub()
	events, cleanup := hub.Subscribe("run-1")
	defer cleanup()

	for i := 0; i < 25; i++ {
		hub.Publish("run-1", Event{RunID: "run-1", Event: EventProgress})
	}

	assert.Len(t, events, cap(events))
}

func TestHub_CleanupRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	_, cleanup1 := hub.Subscribe("run-1")
	_, cleanup2 := hub.Subscribe("run-1")
	assert.Equal(t, 2, hub.SubscriberCount("run-1"))
	assert.Equal(t, 2, hub.TotalSubscribers())

	cleanup1()
	cleanup1()
	assert.Equal(t, 1, hub.SubscriberCount("run-1"))

	cleanup2()
	assert.Equal(t, 0, hub.SubscriberCount("run-1"))
	assert.Equal(t, 0, hub.TotalSubscribers())
}
