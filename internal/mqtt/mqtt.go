// Package mqtt publishes channel state to MQTT and accepts channel commands
// from it, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adebree/doduino/internal/status"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "doduino"

// Topics builds the topic names under one prefix.
type Topics struct {
	prefix string
}

// NewTopics returns the topics under prefix. Trailing slashes are dropped.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic prefix.
func (t Topics) Prefix() string { return t.prefix }

// System is the topic for STARTUP/SHUTDOWN/HEARTBEAT events.
func (t Topics) System() string { return t.prefix + "/system" }

// Status carries the retained online/offline availability flag.
func (t Topics) Status() string { return t.prefix + "/status" }

// State is the state topic of a channel.
func (t Topics) State(kind Kind, ch int) string {
	return fmt.Sprintf("%s/%s/%d/state", t.prefix, kind, ch)
}

// Subscriptions returns the command topic filters.
func (t Topics) Subscriptions() []string {
	return []string{
		t.prefix + "/light/+/set",
		t.prefix + "/light/+/idle",
		t.prefix + "/switch/+/set",
	}
}

// Kind distinguishes light and switch channels.
type Kind string

const (
	KindLight  Kind = "light"
	KindSwitch Kind = "switch"
)

// StateEvent reports a value written to a channel.
type StateEvent struct {
	Timestamp time.Time
	Kind      Kind
	Channel   int
	Name      string
	// Value is the light value 0..255, or 0/1 for a switch.
	Value int
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a channel state change to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event StateEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// LightPayload is the JSON payload of a light state topic.
type LightPayload struct {
	Channel   int    `json:"channel"`
	Name      string `json:"name,omitempty"`
	Value     int    `json:"value"`
	Timestamp string `json:"timestamp"`
}

// SwitchPayload is the JSON payload of a switch state topic.
type SwitchPayload struct {
	Channel   int    `json:"channel"`
	Name      string `json:"name,omitempty"`
	State     string `json:"state"`
	Timestamp string `json:"timestamp"`
}

// FormatPayload creates the JSON payload for a channel state event.
func FormatPayload(event StateEvent) ([]byte, error) {
	ts := event.Timestamp.UTC().Format(time.RFC3339)
	switch event.Kind {
	case KindLight:
		return json.Marshal(LightPayload{
			Channel:   event.Channel,
			Name:      event.Name,
			Value:     event.Value,
			Timestamp: ts,
		})
	case KindSwitch:
		return json.Marshal(SwitchPayload{
			Channel:   event.Channel,
			Name:      event.Name,
			State:     status.StateString(event.Value != 0),
			Timestamp: ts,
		})
	}
	return nil, fmt.Errorf("unknown channel kind %q", event.Kind)
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
