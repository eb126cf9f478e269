package internal

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adebree/doduino/internal/command"
	"github.com/adebree/doduino/internal/config"
	"github.com/adebree/doduino/internal/gpio"
	"github.com/adebree/doduino/internal/logic"
	"github.com/adebree/doduino/internal/mqtt"
	"github.com/adebree/doduino/internal/status"
	"github.com/adebree/doduino/internal/web"
)

const tickStep = 5 * time.Millisecond

// house runs the default installation on fake hardware with the HTTP and
// MQTT command surfaces attached, stepping the loop by hand.
type house struct {
	t        *testing.T
	cfg      *config.Config
	hw       *gpio.Fake
	ctrl     *logic.Controller
	queue    *command.Queue
	tracker  *status.Tracker
	reporter *mqtt.Reporter
	pub      *mqtt.FakePublisher
	router   *mqtt.Router
	http     *httptest.Server
	start    time.Time
	now      time.Duration
}

func newHouse(t *testing.T) *house {
	t.Helper()
	cfg := config.Default()
	inst, err := cfg.Installation()
	if err != nil {
		t.Fatalf("default installation: %v", err)
	}

	h := &house{
		t:     t,
		cfg:   cfg,
		hw:    gpio.NewFake(),
		pub:   mqtt.NewFakePublisher(),
		start: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	var names status.Names
	for _, l := range cfg.Lights {
		names.Lights = append(names.Lights, l.Name)
	}
	for _, s := range cfg.Switches {
		names.Switches = append(names.Switches, s.Name)
	}
	for _, b := range cfg.Buttons {
		names.Buttons = append(names.Buttons, b.Name)
	}

	h.reporter = mqtt.NewReporter(h.pub, h.start, names.Lights, names.Switches, 4096)
	h.ctrl, err = logic.New(inst, h.hw, 0, logic.WithTracer(h.reporter))
	if err != nil {
		t.Fatalf("logic.New: %v", err)
	}
	h.queue = command.NewQueue(cfg.Commands.QueueSize, len(inst.Lights), len(inst.Switches))
	h.tracker = status.NewTracker(h.start, "integration", status.Config{
		PollMs: cfg.Poll.Duration().Milliseconds(),
		Prefix: cfg.MQTT.Prefix,
	}, names)
	h.router = mqtt.NewRouter(mqtt.NewTopics(cfg.MQTT.Prefix), h.queue)
	h.http = httptest.NewServer(web.New(":0", h.tracker, h.queue).Handler())
	t.Cleanup(h.http.Close)
	return h
}

func (h *house) step() {
	h.now += tickStep
	h.ctrl.Advance(h.now)
	h.queue.Drain(h.ctrl)
	h.ctrl.Tick(h.now)
	h.tracker.Update(h.ctrl)
}

func (h *house) advance(d time.Duration) {
	for end := h.now + d; h.now < end; {
		h.step()
	}
}

func (h *house) hold(pin int, level bool, d time.Duration) {
	h.hw.SetLevel(pin, level)
	h.advance(d)
}

func (h *house) doubleTap(pin int) {
	h.hold(pin, true, 40*time.Millisecond)
	h.hold(pin, false, 40*time.Millisecond)
	h.hold(pin, true, 40*time.Millisecond)
	h.hold(pin, false, 40*time.Millisecond)
}

func (h *house) get(path string) string {
	h.t.Helper()
	resp, err := http.Get(h.http.URL + path)
	if err != nil {
		h.t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		h.t.Fatalf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	return string(body)
}

// published flushes the reporter and returns the state events so far.
func (h *house) published() []mqtt.StateEvent {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.reporter.Run(ctx)
	return h.pub.Events
}

func TestIntegrationStartupState(t *testing.T) {
	h := newHouse(t)
	h.advance(100 * time.Millisecond)

	// The floor LED is always-on, so it follows the dark lights from the
	// first tick even though it is configured initially on.
	if h.hw.Digital(19) {
		t.Error("always-on switch should follow the dark lights")
	}
	for ch := 0; ch < 12; ch++ {
		if v := h.hw.Analog(ch); v != 0 {
			t.Errorf("light %d: got %d at startup", ch, v)
		}
	}
	if n := len(h.hw.Writes()); n != 0 {
		t.Errorf("startup wrote %d times", n)
	}
}

func TestIntegrationDoubleTapLightsRoom(t *testing.T) {
	h := newHouse(t)
	h.advance(time.Second)

	// button0 (pin 4) owns light5 on PWM channel 5.
	h.doubleTap(4)
	h.advance(50 * time.Millisecond)

	if v := h.hw.Analog(5); v != 255 {
		t.Fatalf("light5: got %d, want 255", v)
	}
	if !h.hw.Digital(19) {
		t.Error("always-on switch should follow a lit room")
	}
	for ch := 0; ch < 12; ch++ {
		if ch != 5 && h.hw.Analog(ch) != 0 {
			t.Errorf("light %d changed by a button that does not own it", ch)
		}
	}

	h.published()
	last, ok := h.pub.Last(mqtt.KindLight, 5)
	if !ok || last.Value != 255 || last.Name != "light5" {
		t.Fatalf("light5 state event: got %+v", last)
	}
	if !last.Timestamp.After(h.start.Add(time.Second)) {
		t.Errorf("timestamp %v should be after the idle second", last.Timestamp)
	}
}

func TestIntegrationHTTPCommands(t *testing.T) {
	h := newHouse(t)
	h.step()

	h.get("/setLightIdle/5")
	h.get("/setSwitchChannel/1/1/0/3")
	h.step()

	if v := h.hw.Analog(5); v != 60 {
		t.Errorf("light5 idle: got %d, want 60", v)
	}
	if !h.hw.Digital(6) {
		t.Fatal("switch1 should be on")
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(h.get("/index.json")), &sj); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if sj.Status.Lights[5].Value != 60 || sj.Status.Lights[5].Name != "light5" {
		t.Errorf("status light5: %+v", sj.Status.Lights[5])
	}
	if len(sj.Status.Queue) != 1 || sj.Status.Queue[0] != 1 || !sj.Status.Switches[1].Queued {
		t.Errorf("status queue: %v", sj.Status.Queue)
	}
	if sj.Status.Switches[1].Type != "delayed_stop(3s)" {
		t.Errorf("status switch1 type: %q", sj.Status.Switches[1].Type)
	}

	h.advance(3 * time.Second)
	if !h.hw.Digital(6) {
		t.Fatal("switch1 should hold for its full duration")
	}
	h.step()
	if h.hw.Digital(6) {
		t.Error("switch1 should be off after its duration")
	}

	var listing web.ChannelsXML
	if err := xml.Unmarshal([]byte(h.get("/getSwitchChannels")), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Channels) != len(h.cfg.Switches) {
		t.Fatalf("listing: got %d channels, want %d", len(listing.Channels), len(h.cfg.Switches))
	}
	if *listing.Channels[1].State != 0 {
		t.Error("switch1 should list as off")
	}
}

func TestIntegrationMQTTCommands(t *testing.T) {
	h := newHouse(t)
	h.step()

	if err := h.router.Handle("doduino/light/0/set", []byte(`{"value":90,"speed_factor":2}`)); err != nil {
		t.Fatalf("light command: %v", err)
	}
	if err := h.router.Handle("doduino/switch/2/set", []byte("ON")); err != nil {
		t.Fatalf("switch command: %v", err)
	}
	h.step()

	if v := h.hw.Analog(0); v != 90 {
		t.Errorf("light0: got %d, want 90", v)
	}
	if !h.hw.Digital(12) {
		t.Error("switch2 should be on")
	}

	var sawLight, sawSwitch bool
	for _, e := range h.published() {
		if e.Kind == mqtt.KindLight && e.Channel == 0 && e.Value == 90 {
			sawLight = true
		}
		if e.Kind == mqtt.KindSwitch && e.Channel == 2 && e.Value == 1 && e.Name == "switch2" {
			sawSwitch = true
		}
	}
	if !sawLight || !sawSwitch {
		t.Errorf("state events missing: light=%v switch=%v", sawLight, sawSwitch)
	}
}

func TestIntegrationOutOfRangeLeavesStateAlone(t *testing.T) {
	h := newHouse(t)
	h.step()
	h.hw.Reset()

	h.get("/setLightChannel/12/100")
	h.get("/setSwitchChannel/10/1")
	h.get("/setSwitchChannel/0/1/1000/0")
	if err := h.router.Handle("doduino/light/0/set", []byte("256")); err == nil {
		t.Error("expected an error for value 256")
	}
	h.advance(100 * time.Millisecond)

	if n := len(h.hw.Writes()); n != 0 {
		t.Errorf("rejected commands caused %d writes", n)
	}
}
