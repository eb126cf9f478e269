package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	InstanceID    string       `json:"instance_id"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Ticks         uint64       `json:"ticks"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Lights        []LightJSON  `json:"lights"`
	Switches      []SwitchJSON `json:"switches"`
	Buttons       []ButtonJSON `json:"buttons"`
	Queue         []int        `json:"queue"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// LightJSON is the JSON representation of a light channel.
type LightJSON struct {
	Channel     int    `json:"channel"`
	Name        string `json:"name"`
	Value       int    `json:"value"`
	Target      int    `json:"target"`
	Idle        int    `json:"idle"`
	SpeedFactor int    `json:"speed_factor"`
	Button      *int   `json:"button,omitempty"`
}

// SwitchJSON is the JSON representation of a switch channel.
type SwitchJSON struct {
	Channel  int    `json:"channel"`
	Name     string `json:"name"`
	State    string `json:"state"`
	Target   string `json:"target"`
	Type     string `json:"type"`
	AlwaysOn bool   `json:"always_on,omitempty"`
	Queued   bool   `json:"queued,omitempty"`
	Button   *int   `json:"button,omitempty"`
}

// ButtonJSON is the JSON representation of a button.
type ButtonJSON struct {
	Name    string `json:"name"`
	Pressed bool   `json:"pressed"`
	Fading  bool   `json:"fading,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	Prefix      string `json:"prefix"`
	HTTPAddr    string `json:"http_addr"`
	WSBroker    string `json:"ws_broker,omitempty"`
}

// StateString renders an on/off state the way every surface reports it.
func StateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func owner(i int) *int {
	if i < 0 {
		return nil
	}
	return &i
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		InstanceID:    snap.InstanceID,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Ticks:         snap.Ticks,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Lights:        make([]LightJSON, len(snap.Lights)),
		Switches:      make([]SwitchJSON, len(snap.Switches)),
		Buttons:       make([]ButtonJSON, len(snap.Buttons)),
		Queue:         append([]int{}, snap.Queue...),
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			Prefix:      snap.Config.Prefix,
			HTTPAddr:    snap.Config.HTTPAddr,
			WSBroker:    snap.Config.WSBroker,
		},
	}
	for i, l := range snap.Lights {
		inner.Lights[i] = LightJSON{
			Channel:     i,
			Name:        l.Name,
			Value:       l.Value,
			Target:      l.Target,
			Idle:        l.Idle,
			SpeedFactor: l.SpeedFactor,
			Button:      owner(l.Owner),
		}
	}
	for i, s := range snap.Switches {
		inner.Switches[i] = SwitchJSON{
			Channel:  i,
			Name:     s.Name,
			State:    StateString(s.On),
			Target:   StateString(s.Target),
			Type:     s.Type,
			AlwaysOn: s.AlwaysOn,
			Queued:   s.Queued,
			Button:   owner(s.Owner),
		}
	}
	for i, b := range snap.Buttons {
		inner.Buttons[i] = ButtonJSON{Name: b.Name, Pressed: b.Pressed, Fading: b.Fading}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
