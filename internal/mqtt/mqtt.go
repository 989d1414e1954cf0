// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/net-watchdog/internal/logic"
)

// Topic is the MQTT topic for watchdog events.
const Topic = "network/watchdog/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "network/watchdog/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a watchdog event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// EventType names a watchdog event.
type EventType string

const (
	EventCheckFailed EventType = "CHECK_FAILED"
	EventOutage      EventType = "OUTAGE"
	EventPowerCycle  EventType = "POWER_CYCLE"
	EventRestored    EventType = "RESTORED"
	EventManualReset EventType = "MANUAL_RESET"
)

// Event is a watchdog decision worth reporting.
type Event struct {
	ID        string
	Timestamp time.Time
	Type      EventType
	Failures  int
	Cadence   logic.Cadence
	Message   string
}

// NewEvent creates an event with a fresh ID. Subscribers can use the ID to
// drop duplicates replayed after a reconnect.
func NewEvent(t time.Time, typ EventType, state logic.State, msg string) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: t,
		Type:      typ,
		Failures:  state.ConsecutiveFailures,
		Cadence:   state.Cadence,
		Message:   msg,
	}
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Watchdog WatchdogPayload `json:"watchdog"`
}

// WatchdogPayload contains the watchdog event details.
type WatchdogPayload struct {
	ID                  string `json:"id"`
	Timestamp           string `json:"timestamp"`
	Event               string `json:"event"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Cadence             string `json:"cadence"`
	Message             string `json:"message,omitempty"`
}

// FormatPayload creates the JSON payload for a watchdog event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Watchdog: WatchdogPayload{
			ID:                  event.ID,
			Timestamp:           event.Timestamp.UTC().Format(time.RFC3339),
			Event:               string(event.Type),
			ConsecutiveFailures: event.Failures,
			Cadence:             string(event.Cadence),
			Message:             event.Message,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error             { return nil }
func (NopPublisher) PublishSystem(SystemEvent) error { return nil }
func (NopPublisher) Close() error                    { return nil }
func (NopPublisher) IsConnected() bool               { return false }
