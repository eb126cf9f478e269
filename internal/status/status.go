// Package status provides a thread-safe status tracker for the doduino daemon.
// The control loop writes it after every tick; HTTP handlers and MQTT
// system events read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/adebree/doduino/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	Prefix      string
	HTTPAddr    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)
}

// Names labels the channels and buttons, in installation order.
type Names struct {
	Lights   []string
	Switches []string
	Buttons  []string
}

// Light is the state of one light channel.
type Light struct {
	Name        string
	Value       int
	Target      int
	Idle        int
	SpeedFactor int
	Owner       int // Button index, -1 when unowned
}

// Switch is the state of one switch channel.
type Switch struct {
	Name     string
	On       bool
	Target   bool
	Type     string
	AlwaysOn bool
	Queued   bool
	Owner    int
}

// Button is the debounced state of one button.
type Button struct {
	Name    string
	Pressed bool
	Fading  bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	InstanceID    string
	Lights        []Light
	Switches      []Switch
	Buttons       []Button
	Queue         []int
	Ticks         uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot

	// Last switch types rendered into snap, to skip re-formatting.
	types []logic.SwitchType
	typed []bool
}

// NewTracker creates a Tracker with the given start time, identity, config
// and channel names. The per-channel slices are sized here and reused by
// every Update.
func NewTracker(startTime time.Time, instanceID string, cfg Config, names Names) *Tracker {
	t := &Tracker{
		snap: Snapshot{
			InstanceID: instanceID,
			Lights:     make([]Light, len(names.Lights)),
			Switches:   make([]Switch, len(names.Switches)),
			Buttons:    make([]Button, len(names.Buttons)),
			Queue:      make([]int, 0, len(names.Switches)),
			StartTime:  startTime,
			Config:     cfg,
		},
		types: make([]logic.SwitchType, len(names.Switches)),
		typed: make([]bool, len(names.Switches)),
	}
	for i, n := range names.Lights {
		t.snap.Lights[i].Name = n
		t.snap.Lights[i].Owner = -1
	}
	for i, n := range names.Switches {
		t.snap.Switches[i].Name = n
		t.snap.Switches[i].Owner = -1
	}
	for i, n := range names.Buttons {
		t.snap.Buttons[i].Name = n
	}
	return t
}

// Update copies the controller state. Called from the run loop after every
// tick; channels beyond the names given to NewTracker are ignored.
func (t *Tracker) Update(c *logic.Controller) {
	reg := c.Registry()

	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.snap.Lights {
		if i >= reg.NumLights() {
			break
		}
		l := c.Light(i)
		dst := &t.snap.Lights[i]
		dst.Value = l.Value
		dst.Target = l.Target
		dst.Idle = l.Idle
		dst.SpeedFactor = l.SpeedFactor
		dst.Owner = reg.LightOwner(i)
	}
	for i := range t.snap.Switches {
		if i >= reg.NumSwitches() {
			break
		}
		s := c.Switch(i)
		dst := &t.snap.Switches[i]
		dst.On = s.State
		dst.Target = s.Target
		if !t.typed[i] || t.types[i] != s.Type {
			dst.Type = s.Type.String()
			t.types[i] = s.Type
			t.typed[i] = true
		}
		dst.AlwaysOn = s.AlwaysOn
		dst.Queued = c.IsQueued(i)
		dst.Owner = reg.SwitchOwner(i)
	}
	for i := range t.snap.Buttons {
		if i >= reg.NumButtons() {
			break
		}
		b := c.Button(i)
		t.snap.Buttons[i].Pressed = b.Pressed()
		t.snap.Buttons[i].Fading = b.Fading()
	}
	t.snap.Queue = c.AppendQueued(t.snap.Queue[:0])
	t.snap.Ticks = c.Ticks()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Lights = append([]Light(nil), t.snap.Lights...)
	s.Switches = append([]Switch(nil), t.snap.Switches...)
	s.Buttons = append([]Button(nil), t.snap.Buttons...)
	s.Queue = append([]int(nil), t.snap.Queue...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
