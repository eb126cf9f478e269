package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adebree/doduino/internal/logic"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Lights) != 12 || len(cfg.Switches) != 10 || len(cfg.Buttons) != 10 {
		t.Errorf("unexpected default installation size %d/%d/%d",
			len(cfg.Lights), len(cfg.Switches), len(cfg.Buttons))
	}
}

func TestDefaultInstallation(t *testing.T) {
	inst, err := Default().Installation()
	if err != nil {
		t.Fatalf("Installation: %v", err)
	}

	if inst.Lights[5].Idle != 60 {
		t.Errorf("light5 idle: expected 60, got %d", inst.Lights[5].Idle)
	}

	wantLights := map[int]int{0: 5, 1: 4, 2: 8, 3: 10, 5: 11}
	for i, b := range inst.Buttons {
		want, ok := wantLights[i]
		switch {
		case ok && (len(b.Lights) != 1 || b.Lights[0] != want):
			t.Errorf("button %d: expected light %d, got %v", i, want, b.Lights)
		case !ok && len(b.Lights) != 0:
			t.Errorf("button %d: expected no lights, got %v", i, b.Lights)
		}
		if len(b.Switches) != 0 {
			t.Errorf("button %d: expected no switches, got %v", i, b.Switches)
		}
	}

	sw := inst.Switches
	if sw[0].Type != logic.DelayedStop(10*time.Second) {
		t.Errorf("switch0: got %v", sw[0].Type)
	}
	if sw[1].Type != logic.DelayedStop(time.Minute) {
		t.Errorf("switch1: got %v", sw[1].Type)
	}
	for _, i := range []int{2, 5, 6} {
		if sw[i].Type.Kind() != logic.KindToggle {
			t.Errorf("switch%d: expected toggle, got %v", i, sw[i].Type)
		}
	}
	for _, i := range []int{3, 4, 7, 8, 9} {
		if sw[i].Type.Kind() != logic.KindPulse {
			t.Errorf("switch%d: expected pulse, got %v", i, sw[i].Type)
		}
	}
	if !sw[5].AlwaysOn || !sw[5].InitialOn {
		t.Errorf("switch5: expected always-on and initially on, got %+v", sw[5])
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("mqtt:\n  broker: tcp://broker:1883\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Poll.Duration() != 5*time.Millisecond {
		t.Errorf("poll: got %v", cfg.Poll.Duration())
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level: got %q", cfg.Log.Level)
	}
	if cfg.MQTT.Prefix != "doduino" {
		t.Errorf("prefix: got %q", cfg.MQTT.Prefix)
	}
	if cfg.MQTT.Broker != "tcp://broker:1883" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.Hardware.Chip != "gpiochip0" || cfg.Hardware.I2CBus != 1 || cfg.Hardware.PWMAddress != 0x40 {
		t.Errorf("hardware defaults: got %+v", cfg.Hardware)
	}
	if cfg.Commands.QueueSize != 32 {
		t.Errorf("queue size: got %d", cfg.Commands.QueueSize)
	}
	if len(cfg.Lights) != 12 {
		t.Errorf("expected the default installation, got %d lights", len(cfg.Lights))
	}
}

func TestParseInstallation(t *testing.T) {
	data := `
poll: 10ms
lights:
  - {name: hall, pin: 3, idle: 20}
switches:
  - {name: fan, pin: 5, type: delayed_start_stop, start_delay: 2s, duration: 30s}
  - {name: bell, pin: 6}
buttons:
  - {name: door, pin: 17, lights: [hall], switches: [fan, bell]}
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	inst, err := cfg.Installation()
	if err != nil {
		t.Fatalf("Installation: %v", err)
	}

	if got := inst.Switches[0].Type; got != logic.DelayedStartStop(2*time.Second, 30*time.Second) {
		t.Errorf("fan type: got %v", got)
	}
	if got := inst.Switches[1].Type.Kind(); got != logic.KindPulse {
		t.Errorf("bell type: got %v", got)
	}
	b := inst.Buttons[0]
	if b.Pin != 17 || len(b.Lights) != 1 || b.Lights[0] != 0 || len(b.Switches) != 2 || b.Switches[1] != 1 {
		t.Errorf("door button: got %+v", b)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"negative poll", "poll: -1ms"},
		{"slow poll", "poll: 50ms"},
		{"bad log level", "log: {level: chatty}"},
		{"unknown switch type", "switches: [{name: a, pin: 1, type: dimmer}]"},
		{"duplicate light name", "lights: [{name: a, pin: 0}, {name: a, pin: 1}]"},
		{"missing name", "lights: [{pin: 0}]"},
		{"pwm channel out of range", "lights: [{name: a, pin: 16}]"},
		{"shared pwm channel", "lights: [{name: a, pin: 1}, {name: b, pin: 1}]"},
		{"idle out of range", "lights: [{name: a, pin: 0, idle: 300}]"},
		{"shared gpio line", "switches: [{name: a, pin: 4}]\nbuttons: [{name: b, pin: 4}]"},
		{"unknown light", "buttons: [{name: b, pin: 4, lights: [nope]}]"},
		{"unknown switch", "buttons: [{name: b, pin: 4, switches: [nope]}]"},
		{"light owned twice", `
lights: [{name: a, pin: 0}]
buttons: [{name: b, pin: 4, lights: [a]}, {name: c, pin: 5, lights: [a]}]`},
		{"bad pwm frequency", "hardware: {pwm_frequency: 5000}"},
		{"bad pwm address", "hardware: {pwm_address: 0x90}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("poll: [")); err == nil {
		t.Error("expected error")
	}
	if _, err := Parse([]byte("poll: soon")); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("DODUINO_TEST_BROKER", "tcp://env:1883")

	cfg, err := Parse([]byte(`
mqtt:
  broker: ${DODUINO_TEST_BROKER}
  prefix: ${DODUINO_TEST_UNSET:house}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://env:1883" {
		t.Errorf("broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Prefix != "house" {
		t.Errorf("prefix: got %q", cfg.MQTT.Prefix)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doduino.yaml")
	if err := os.WriteFile(path, []byte("http: {addr: \":8080\"}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("addr: got %q", cfg.HTTP.Addr)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if len(cfg.Buttons) != 10 {
		t.Errorf("expected default config, got %d buttons", len(cfg.Buttons))
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), "duration: 1m0s") {
		t.Errorf("expected durations rendered as strings:\n%s", data)
	}
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal(Default())): %v", err)
	}
	if cfg.Switches[0].Duration.Duration() != 10*time.Second {
		t.Errorf("switch0 duration: got %v", cfg.Switches[0].Duration.Duration())
	}
}
