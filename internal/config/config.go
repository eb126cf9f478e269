// Package config loads the daemon settings and the static installation
// (lights, switches, buttons) from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/adebree/doduino/internal/logic"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config represents the application configuration
type Config struct {
	Poll     Duration       `yaml:"poll"` // Control loop tick interval
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Hardware HardwareConfig `yaml:"hardware"`
	Commands CommandsConfig `yaml:"commands"`

	Lights   []LightConfig  `yaml:"lights"`
	Switches []SwitchConfig `yaml:"switches"`
	Buttons  []ButtonConfig `yaml:"buttons"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	JSON   bool   `yaml:"json"`
	Colors bool   `yaml:"colors"`
	Trace  bool   `yaml:"trace"` // Log every controller transition at debug level

	// Optional serial console mirror, empty port disables
	SerialPort string `yaml:"serial_port"`
	SerialBaud int    `yaml:"serial_baud"`
}

// HTTPConfig contains the status/command server settings
type HTTPConfig struct {
	Addr     string `yaml:"addr"`      // Empty disables the server
	WSBroker string `yaml:"ws_broker"` // "=broker" derives from mqtt.broker, "off" disables
}

// MQTTConfig contains broker connection settings
type MQTTConfig struct {
	Broker     string   `yaml:"broker"` // Empty disables MQTT
	Prefix     string   `yaml:"prefix"`
	ClientID   string   `yaml:"client_id"` // Default: doduino-<instance id>
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	Heartbeat  Duration `yaml:"heartbeat"`   // 0 disables
	BufferSize int      `yaml:"buffer_size"` // Messages kept while disconnected
}

// HardwareConfig describes the GPIO chip and the PWM dimmer board
type HardwareConfig struct {
	Chip         string `yaml:"chip"`
	PullDown     bool   `yaml:"pull_down"` // Bias button inputs low instead of high
	I2CBus       int    `yaml:"i2c_bus"`
	PWMAddress   int    `yaml:"pwm_address"`
	PWMFrequency int    `yaml:"pwm_frequency"` // Hz
}

// CommandsConfig sizes the queue between HTTP/MQTT and the control loop
type CommandsConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// LightConfig is one dimmer channel. Pin is the PWM board channel.
type LightConfig struct {
	Name string `yaml:"name"`
	Pin  int    `yaml:"pin"`
	Idle int    `yaml:"idle"`
}

// SwitchConfig is one relay output. Pin is a GPIO line offset.
type SwitchConfig struct {
	Name       string   `yaml:"name"`
	Pin        int      `yaml:"pin"`
	Type       string   `yaml:"type"` // pulse, toggle, delayed_start, delayed_stop, delayed_start_stop
	StartDelay Duration `yaml:"start_delay,omitempty"`
	Duration   Duration `yaml:"duration,omitempty"`
	AlwaysOn   bool     `yaml:"always_on,omitempty"`
	InitialOn  bool     `yaml:"initial_on,omitempty"`
	ActiveLow  bool     `yaml:"active_low,omitempty"`
}

// ButtonConfig binds a push-button GPIO line to channels by name.
type ButtonConfig struct {
	Name      string   `yaml:"name"`
	Pin       int      `yaml:"pin"`
	ActiveLow bool     `yaml:"active_low,omitempty"`
	Lights    []string `yaml:"lights,omitempty"`
	Switches  []string `yaml:"switches,omitempty"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file. An empty path returns the
// built-in default.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it, fills in
// defaults and validates the result. A file without any lights, switches
// or buttons gets the default installation.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Lights) == 0 && len(cfg.Switches) == 0 && len(cfg.Buttons) == 0 {
		def := Default()
		cfg.Lights, cfg.Switches, cfg.Buttons = def.Lights, def.Switches, def.Buttons
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(expandEnvVars(DefaultYAML)), &cfg); err != nil {
		panic("config: bad default: " + err.Error())
	}
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Poll == 0 {
		c.Poll = Duration(5 * time.Millisecond)
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.SerialBaud == 0 {
		c.Log.SerialBaud = 115200
	}

	// HTTP defaults
	if c.HTTP.WSBroker == "" {
		c.HTTP.WSBroker = "=broker"
	}

	// MQTT defaults
	if c.MQTT.Prefix == "" {
		c.MQTT.Prefix = "doduino"
	}
	if c.MQTT.BufferSize == 0 {
		c.MQTT.BufferSize = 100
	}

	// Hardware defaults
	if c.Hardware.Chip == "" {
		c.Hardware.Chip = "gpiochip0"
	}
	if c.Hardware.I2CBus == 0 {
		c.Hardware.I2CBus = 1
	}
	if c.Hardware.PWMAddress == 0 {
		c.Hardware.PWMAddress = 0x40
	}
	if c.Hardware.PWMFrequency == 0 {
		c.Hardware.PWMFrequency = 1000
	}

	if c.Commands.QueueSize == 0 {
		c.Commands.QueueSize = 32
	}

	for i := range c.Switches {
		if c.Switches[i].Type == "" {
			c.Switches[i].Type = logic.KindPulse.String()
		}
	}
}

// Validate checks the settings and the installation wiring.
func (c *Config) Validate() error {
	if c.Poll.Duration() <= 0 || c.Poll.Duration() > logic.StepTime {
		return fmt.Errorf("%w: poll must be in (0, %v], got %v", ErrInvalid, logic.StepTime, c.Poll.Duration())
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level: %v", ErrInvalid, err)
	}
	if c.MQTT.Heartbeat < 0 {
		return fmt.Errorf("%w: negative heartbeat", ErrInvalid)
	}
	if c.MQTT.BufferSize < 0 || c.Commands.QueueSize < 0 {
		return fmt.Errorf("%w: negative buffer size", ErrInvalid)
	}
	if c.Hardware.PWMAddress < 0 || c.Hardware.PWMAddress > 0x7f {
		return fmt.Errorf("%w: pwm_address %#x is not a 7-bit I2C address", ErrInvalid, c.Hardware.PWMAddress)
	}
	if c.Hardware.PWMFrequency < 24 || c.Hardware.PWMFrequency > 1526 {
		return fmt.Errorf("%w: pwm_frequency %d outside 24..1526 Hz", ErrInvalid, c.Hardware.PWMFrequency)
	}
	_, err := c.Installation()
	return err
}

// Installation resolves names and builds the controller wiring.
func (c *Config) Installation() (logic.Installation, error) {
	var inst logic.Installation

	lights := make(map[string]int, len(c.Lights))
	pwmUsed := make(map[int]string, len(c.Lights))
	for i, l := range c.Lights {
		if err := uniqueName(lights, l.Name, "light", i); err != nil {
			return inst, err
		}
		if l.Pin < 0 || l.Pin > 15 {
			return inst, fmt.Errorf("%w: light %q pin %d is not a PWM channel (0..15)", ErrInvalid, l.Name, l.Pin)
		}
		if other, ok := pwmUsed[l.Pin]; ok {
			return inst, fmt.Errorf("%w: lights %q and %q share PWM channel %d", ErrInvalid, other, l.Name, l.Pin)
		}
		pwmUsed[l.Pin] = l.Name
		if l.Idle < 0 || l.Idle > logic.MaxLightValue {
			return inst, fmt.Errorf("%w: light %q idle %d outside 0..%d", ErrInvalid, l.Name, l.Idle, logic.MaxLightValue)
		}
		inst.Lights = append(inst.Lights, logic.LightConfig{Pin: l.Pin, Idle: l.Idle})
	}

	gpioUsed := make(map[int]string, len(c.Switches)+len(c.Buttons))
	claimLine := func(pin int, name string) error {
		if pin < 0 {
			return fmt.Errorf("%w: %q has negative pin %d", ErrInvalid, name, pin)
		}
		if other, ok := gpioUsed[pin]; ok {
			return fmt.Errorf("%w: %q and %q share GPIO line %d", ErrInvalid, other, name, pin)
		}
		gpioUsed[pin] = name
		return nil
	}

	switches := make(map[string]int, len(c.Switches))
	for i, s := range c.Switches {
		if err := uniqueName(switches, s.Name, "switch", i); err != nil {
			return inst, err
		}
		if err := claimLine(s.Pin, s.Name); err != nil {
			return inst, err
		}
		st, err := s.SwitchType()
		if err != nil {
			return inst, err
		}
		inst.Switches = append(inst.Switches, logic.SwitchConfig{
			Pin:       s.Pin,
			Type:      st,
			AlwaysOn:  s.AlwaysOn,
			InitialOn: s.InitialOn,
		})
	}

	buttons := make(map[string]int, len(c.Buttons))
	for i, b := range c.Buttons {
		if err := uniqueName(buttons, b.Name, "button", i); err != nil {
			return inst, err
		}
		if err := claimLine(b.Pin, b.Name); err != nil {
			return inst, err
		}
		bc := logic.ButtonConfig{Pin: b.Pin}
		for _, name := range b.Lights {
			ch, ok := lights[name]
			if !ok {
				return inst, fmt.Errorf("%w: button %q refers to unknown light %q", ErrInvalid, b.Name, name)
			}
			bc.Lights = append(bc.Lights, ch)
		}
		for _, name := range b.Switches {
			ch, ok := switches[name]
			if !ok {
				return inst, fmt.Errorf("%w: button %q refers to unknown switch %q", ErrInvalid, b.Name, name)
			}
			bc.Switches = append(bc.Switches, ch)
		}
		inst.Buttons = append(inst.Buttons, bc)
	}

	// Ownership and per-button limits are checked by the controller itself.
	if _, err := logic.NewRegistry(inst, 0); err != nil {
		return inst, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return inst, nil
}

// SwitchType parses the configured behaviour.
func (s SwitchConfig) SwitchType() (logic.SwitchType, error) {
	kind, err := logic.ParseSwitchKind(s.Type)
	if err != nil {
		return logic.SwitchType{}, fmt.Errorf("%w: switch %q: %v", ErrInvalid, s.Name, err)
	}
	if s.StartDelay < 0 || s.Duration < 0 {
		return logic.SwitchType{}, fmt.Errorf("%w: switch %q has a negative delay", ErrInvalid, s.Name)
	}
	return logic.NewSwitchType(kind, s.StartDelay.Duration(), s.Duration.Duration()), nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func uniqueName(seen map[string]int, name, kind string, index int) error {
	if name == "" {
		return fmt.Errorf("%w: %s #%d has no name", ErrInvalid, kind, index)
	}
	if _, dup := seen[name]; dup {
		return fmt.Errorf("%w: duplicate %s name %q", ErrInvalid, kind, name)
	}
	seen[name] = index
	return nil
}

var envRef = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(match string) string {
		parts := envRef.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}
