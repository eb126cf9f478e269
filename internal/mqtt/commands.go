package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/adebree/doduino/internal/command"
)

// ErrBadCommand is returned for a command topic or payload that cannot be
// parsed.
var ErrBadCommand = errors.New("bad command")

// LightCommand is the JSON form of a light set request. SpeedFactor
// defaults to 0, like an HTTP request without a speed segment.
type LightCommand struct {
	Value       *int `json:"value"`
	SpeedFactor int  `json:"speed_factor"`
}

// SwitchCommand is the JSON form of a switch set request. Delays are in
// seconds.
type SwitchCommand struct {
	State      SwitchState `json:"state"`
	StartDelay int         `json:"start_delay"`
	Duration   int         `json:"duration"`
}

// SwitchState accepts "ON"/"OFF" (any case), 1/0 and true/false.
type SwitchState struct {
	Set bool
	On  bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SwitchState) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		return s.parse(x)
	case float64:
		return s.parse(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		s.Set, s.On = true, x
		return nil
	}
	return fmt.Errorf("%w: switch state %s", ErrBadCommand, data)
}

func (s *SwitchState) parse(v string) error {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "ON", "1", "TRUE":
		s.Set, s.On = true, true
	case "OFF", "0", "FALSE":
		s.Set, s.On = true, false
	default:
		return fmt.Errorf("%w: switch state %q", ErrBadCommand, v)
	}
	return nil
}

// ParseLightCommand parses a light set payload: a JSON object or a bare
// integer value.
func ParseLightCommand(payload []byte) (LightCommand, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) > 0 && payload[0] == '{' {
		var cmd LightCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return LightCommand{}, fmt.Errorf("%w: %v", ErrBadCommand, err)
		}
		if cmd.Value == nil {
			return LightCommand{}, fmt.Errorf("%w: missing value", ErrBadCommand)
		}
		return cmd, nil
	}
	v, err := strconv.Atoi(string(payload))
	if err != nil {
		return LightCommand{}, fmt.Errorf("%w: light value %q", ErrBadCommand, payload)
	}
	return LightCommand{Value: &v}, nil
}

// ParseSwitchCommand parses a switch set payload: a JSON object or a bare
// state.
func ParseSwitchCommand(payload []byte) (SwitchCommand, error) {
	payload = bytes.TrimSpace(payload)
	var cmd SwitchCommand
	if len(payload) > 0 && payload[0] == '{' {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			if errors.Is(err, ErrBadCommand) {
				return SwitchCommand{}, err
			}
			return SwitchCommand{}, fmt.Errorf("%w: %v", ErrBadCommand, err)
		}
	} else if err := cmd.State.parse(string(payload)); err != nil {
		return SwitchCommand{}, err
	}
	if !cmd.State.Set {
		return SwitchCommand{}, fmt.Errorf("%w: missing state", ErrBadCommand)
	}
	return cmd, nil
}

// Router dispatches command messages to a Commander. Bounds are checked
// by the Commander, the same way as for HTTP requests.
type Router struct {
	topics   Topics
	commands command.Commander
}

// NewRouter creates a Router for the command topics under topics.
func NewRouter(topics Topics, commands command.Commander) *Router {
	return &Router{topics: topics, commands: commands}
}

// Handle parses one command message and submits it.
func (r *Router) Handle(topic string, payload []byte) error {
	rest, ok := strings.CutPrefix(topic, r.topics.Prefix()+"/")
	if !ok {
		return fmt.Errorf("%w: topic %q outside prefix", ErrBadCommand, topic)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		return fmt.Errorf("%w: topic %q", ErrBadCommand, topic)
	}
	ch, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("%w: channel %q", ErrBadCommand, parts[1])
	}

	switch parts[0] + "/" + parts[2] {
	case "light/set":
		cmd, err := ParseLightCommand(payload)
		if err != nil {
			return err
		}
		return r.commands.SetLight(ch, *cmd.Value, cmd.SpeedFactor)
	case "light/idle":
		return r.commands.SetLightIdle(ch)
	case "switch/set":
		cmd, err := ParseSwitchCommand(payload)
		if err != nil {
			return err
		}
		state := 0
		if cmd.State.On {
			state = 1
		}
		return r.commands.SetSwitch(ch, state, cmd.StartDelay, cmd.Duration)
	}
	return fmt.Errorf("%w: topic %q", ErrBadCommand, topic)
}
