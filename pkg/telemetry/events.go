package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one status-tagged entry in the run's event stream.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// RunID is the associated run ID.
	RunID string `json:"run_id,omitempty"`

	// Package is the associated package name, if applicable.
	Package string `json:"package,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`
}

// EventType constants for common event types.
const (
	EventTypeRunStarted       = "run.started"
	EventTypeRunCompleted     = "run.completed"
	EventTypeRunFailed        = "run.failed"
	EventTypePackageInstalled = "package.installed"
	EventTypePackageSkipped   = "package.skipped"
	EventTypePackageFailed    = "package.failed"
	EventTypeRepairTriggered  = "package.repair"
	EventTypeDotfilesCloned   = "dotfiles.cloned"
	EventTypeDotfilesFailed   = "dotfiles.failed"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventPublisher fans events out to subscribers synchronously, in
// subscription order. The provisioning pipeline is single-threaded, so
// the mutex only guards against subscribe-during-publish misuse.
type EventPublisher struct {
	mu          sync.RWMutex
	subscribers []EventSubscriber
	runID       string
}

// NewEventPublisher creates a publisher tagging every event with the
// run ID.
func NewEventPublisher(runID string) *EventPublisher {
	return &EventPublisher{runID: runID}
}

// RunID returns the run every published event is tagged with.
func (p *EventPublisher) RunID() string {
	return p.runID
}

// Subscribe registers a subscriber for all subsequent events.
func (p *EventPublisher) Subscribe(fn EventSubscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// Publish stamps and delivers one event to every subscriber.
func (p *EventPublisher) Publish(eventType, level, pkg, message string) {
	event := Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Type:      eventType,
		RunID:     p.runID,
		Package:   pkg,
		Message:   message,
		Level:     level,
	}

	p.mu.RLock()
	subs := p.subscribers
	p.mu.RUnlock()

	for _, fn := range subs {
		fn(event)
	}
}
