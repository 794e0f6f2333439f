package sse

import (
	"sync"

	"github.com/cmlabs-hris/payroll-engine-go/internal/domain/payroll"
)

// EventProgress is the event name used for run progress snapshots.
const EventProgress = "progress"

// Event represents an SSE event to be sent to subscribers
type Event struct {
	RunID string
	Event string
	Data  interface{}
}

// Hub manages SSE subscribers keyed by payroll run ID
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber for a run and returns the event channel and cleanup function
func (h *Hub) Subscribe(runID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)

	if h.subscribers[runID] == nil {
		h.subscribers[runID] = make(map[chan Event]struct{})
	}
	h.subscribers[runID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[runID], ch)
			close(ch)
			if len(h.subscribers[runID]) == 0 {
				delete(h.subscribers, runID)
			}
		})
	}

	return ch, cleanup
}

// Publish sends an event to all subscribers of a specific run
func (h *Hub) Publish(runID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[runID]; ok {
		for ch := range subs {
			select {
			case ch <- event:
			default:
				// Skip if channel is full (non-blocking to prevent deadlock)
			}
		}
	}
}

// NotifyProgress publishes a progress snapshot to the run's subscribers.
func (h *Hub) NotifyProgress(progress payroll.PayrollRunProgress) {
	h.Publish(progress.RunID, Event{
		RunID: progress.RunID,
		Event: EventProgress,
		Data:  payroll.NewProgressResponse(progress),
	})
}

// SubscriberCount returns the number of active subscribers for a run
func (h *Hub) SubscriberCount(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[runID]; ok {
		return len(subs)
	}
	return 0
}

// TotalSubscribers returns the total number of active subscribers across all runs
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
