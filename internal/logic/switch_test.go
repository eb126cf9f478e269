package logic

import (
	"testing"
	"time"
)

// pressAt is the time at which tap's press edge lands after run(time.Second).
const pressAt = 1010 * time.Millisecond

func TestPulseSwitchFollowsButton(t *testing.T) {
	h := newHarness(t, oneButton(Pulse()))
	h.run(time.Second)

	h.set(40, true)
	h.run(30 * time.Millisecond)
	if !h.c.Switch(0).State {
		t.Fatal("pulse switch should be on while pressed")
	}

	h.set(40, false)
	h.run(30 * time.Millisecond)
	if h.c.Switch(0).State {
		t.Fatal("pulse switch should be off after release")
	}

	want := []pinWrite{{Pin: 30, Value: 1}, {Pin: 30, Value: 0}}
	if len(h.hw.digital) != len(want) {
		t.Fatalf("expected writes %v, got %v", want, h.hw.digital)
	}
	for i := range want {
		if h.hw.digital[i] != want[i] {
			t.Errorf("write %d: expected %v, got %v", i, want[i], h.hw.digital[i])
		}
	}
}

func TestToggleSwitchFlipsOnEachPress(t *testing.T) {
	h := newHarness(t, oneButton(Toggle()))
	h.run(time.Second)

	for i, want := range []bool{true, false, true} {
		h.tap(40)
		h.run(time.Second)
		if got := h.c.Switch(0).State; got != want {
			t.Errorf("press %d: expected %v, got %v", i+1, want, got)
		}
	}
}

func TestDelayedStopTurnsOffAfterDuration(t *testing.T) {
	h := newHarness(t, oneButton(DelayedStop(10*time.Second)))
	h.run(time.Second)
	h.tap(40)

	if !h.c.Switch(0).State {
		t.Fatal("delayed stop switch should turn on at the press")
	}
	if !h.c.IsQueued(0) {
		t.Fatal("delayed stop switch should be queued")
	}

	h.tickAt(pressAt + 10*time.Second - time.Millisecond)
	if !h.c.Switch(0).State {
		t.Fatal("switch turned off before its duration")
	}

	// Expiry needs strictly more than the duration.
	h.tickAt(pressAt + 10*time.Second)
	if !h.c.Switch(0).State || !h.c.IsQueued(0) {
		t.Fatal("switch turned off at exactly its duration")
	}

	h.tickAt(pressAt + 10*time.Second + time.Millisecond)
	if h.c.Switch(0).State {
		t.Error("switch should be off once its duration passed")
	}
	if h.c.IsQueued(0) {
		t.Error("finished entry should have left the queue")
	}
	if n := len(h.eventsOf(EventDequeued)); n != 1 {
		t.Errorf("expected one DEQUEUED event, got %d", n)
	}
}

func TestDelayedStopPressAgainRestartsTimer(t *testing.T) {
	h := newHarness(t, oneButton(DelayedStop(10*time.Second)))
	h.run(time.Second)
	h.tap(40)

	h.tickAt(pressAt + 5*time.Second)
	h.run(time.Second)
	second := h.now + 10*time.Millisecond
	h.tap(40)

	h.tickAt(pressAt + 10*time.Second + time.Millisecond)
	if !h.c.Switch(0).State {
		t.Fatal("second press should have restarted the timer")
	}
	if got := h.c.AppendQueued(nil); len(got) != 1 {
		t.Fatalf("expected a single queue entry, got %v", got)
	}

	h.tickAt(second + 10*time.Second + time.Millisecond)
	if h.c.Switch(0).State {
		t.Error("switch should be off 10s after the second press")
	}
}

func TestDelayedStartTurnsOnAndStaysQueued(t *testing.T) {
	h := newHarness(t, oneButton(DelayedStart(2*time.Second)))
	h.run(time.Second)
	h.tap(40)

	if h.c.Switch(0).State {
		t.Fatal("delayed start switch should not turn on at the press")
	}

	h.tickAt(pressAt + 2*time.Second - time.Millisecond)
	if h.c.Switch(0).State {
		t.Fatal("switch turned on before its start delay")
	}

	h.tickAt(pressAt + 2*time.Second + time.Millisecond)
	if !h.c.Switch(0).State {
		t.Fatal("switch should be on after its start delay")
	}

	h.tickAt(pressAt + time.Hour)
	if !h.c.IsQueued(0) {
		t.Error("delayed start entries are never dequeued")
	}
	if !h.c.Switch(0).State {
		t.Error("delayed start switch should stay on")
	}
}

func TestDelayedStartStopWindow(t *testing.T) {
	h := newHarness(t, oneButton(DelayedStartStop(5*time.Second, 10*time.Second)))
	h.run(time.Second)
	h.tap(40)

	steps := []struct {
		at     time.Duration
		on     bool
		queued bool
	}{
		{pressAt + 4999*time.Millisecond, false, true},
		{pressAt + 5001*time.Millisecond, true, true},
		{pressAt + 14999*time.Millisecond, true, true},
		{pressAt + 15001*time.Millisecond, false, false},
	}
	for _, s := range steps {
		h.tickAt(s.at)
		if got := h.c.Switch(0).State; got != s.on {
			t.Errorf("at %v: expected on=%v, got %v", s.at, s.on, got)
		}
		if got := h.c.IsQueued(0); got != s.queued {
			t.Errorf("at %v: expected queued=%v, got %v", s.at, s.queued, got)
		}
	}
}

func TestReleaseOnlyAffectsPulseSwitches(t *testing.T) {
	for _, st := range []SwitchType{Toggle(), DelayedStop(time.Minute)} {
		t.Run(st.Kind().String(), func(t *testing.T) {
			h := newHarness(t, oneButton(st))
			h.run(time.Second)
			h.tap(40)
			h.run(time.Second)
			if !h.c.Switch(0).State {
				t.Errorf("%v switch should stay on after release", st)
			}
		})
	}
}

func alwaysOnInstallation() Installation {
	return Installation{
		Lights:   []LightConfig{{Pin: 2}, {Pin: 3}},
		Switches: []SwitchConfig{{Pin: 30, AlwaysOn: true}},
		Buttons:  []ButtonConfig{{Pin: 40, Lights: []int{0}, Switches: []int{0}}},
	}
}

func TestAlwaysOnSwitchFollowsLights(t *testing.T) {
	h := newHarness(t, alwaysOnInstallation())
	h.run(100 * time.Millisecond)
	if h.c.Switch(0).State {
		t.Fatal("always-on switch should be off while all lights are off")
	}

	// A light not owned by the switch's button counts as well.
	h.c.SetLightTarget(1, 40, 5)
	h.run(2 * tickInterval)
	if !h.c.Switch(0).State {
		t.Fatal("always-on switch should be on while a light is on")
	}

	h.c.SetLightTarget(1, 0, 5)
	h.run(2 * tickInterval)
	if h.c.Switch(0).State {
		t.Error("always-on switch should turn off with the last light")
	}
}

func TestAlwaysOnSwitchIgnoresButtonAndRequests(t *testing.T) {
	h := newHarness(t, alwaysOnInstallation())
	h.run(time.Second)

	h.set(40, true)
	h.run(30 * time.Millisecond)
	if h.c.Switch(0).State {
		t.Error("always-on switch should ignore a press")
	}

	h.c.SetSwitchState(0, true, 0, 0)
	h.run(tickInterval)
	if h.c.Switch(0).State {
		t.Error("always-on switch should ignore a switch request")
	}
}

func TestInitialOnDrivesRelayOnFirstTick(t *testing.T) {
	inst := Installation{Switches: []SwitchConfig{{Pin: 31, Type: Toggle(), InitialOn: true}}}
	h := newHarness(t, inst)
	if h.c.Switch(0).State {
		t.Fatal("state should be off before the first tick")
	}
	h.run(tickInterval)
	if !h.c.Switch(0).State {
		t.Fatal("initially-on switch should be on after the first tick")
	}
	if len(h.hw.digital) != 1 || h.hw.digital[0] != (pinWrite{Pin: 31, Value: 1}) {
		t.Errorf("expected one write to pin 31, got %v", h.hw.digital)
	}
}

func TestSetSwitchStateDerivesType(t *testing.T) {
	tests := []struct {
		name       string
		startDelay int
		duration   int
		wantKind   SwitchKind
		wantOn     bool
		wantQueued bool
	}{
		{"no delays is a pulse", 0, 0, KindPulse, true, false},
		{"start delay alone is a pulse", 5, 0, KindPulse, true, false},
		{"duration only", 0, 30, KindDelayedStop, true, true},
		{"both delays", 5, 10, KindDelayedStartStop, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Installation{Switches: []SwitchConfig{{Pin: 30, Type: Toggle()}}})
			h.c.SetSwitchState(0, true, tt.startDelay, tt.duration)
			h.run(tickInterval)

			sw := h.c.Switch(0)
			if sw.Type.Kind() != tt.wantKind {
				t.Errorf("expected kind %v, got %v", tt.wantKind, sw.Type.Kind())
			}
			if sw.State != tt.wantOn {
				t.Errorf("expected on=%v, got %v", tt.wantOn, sw.State)
			}
			if h.c.IsQueued(0) != tt.wantQueued {
				t.Errorf("expected queued=%v", tt.wantQueued)
			}
		})
	}
}

func TestSetSwitchStateDelaysAreSeconds(t *testing.T) {
	h := newHarness(t, Installation{Switches: []SwitchConfig{{Pin: 30}}})
	h.c.SetSwitchState(0, true, 2, 3)

	st := h.c.Switch(0).Type
	if st.StartDelay() != 2*time.Second || st.Duration() != 3*time.Second {
		t.Errorf("expected 2s/3s, got %v", st)
	}
}

func TestSetSwitchStateOffTurnsPulseOff(t *testing.T) {
	h := newHarness(t, Installation{Switches: []SwitchConfig{{Pin: 30}}})
	h.c.SetSwitchState(0, true, 0, 0)
	h.run(tickInterval)
	h.c.SetSwitchState(0, false, 0, 0)
	h.run(tickInterval)

	if h.c.Switch(0).State {
		t.Error("expected switch off")
	}
	if len(h.hw.digital) != 2 {
		t.Errorf("expected 2 writes, got %v", h.hw.digital)
	}
}

func TestSetSwitchStateOnQueuedEntryKeepsIt(t *testing.T) {
	h := newHarness(t, Installation{Switches: []SwitchConfig{{Pin: 30}}})
	h.c.SetSwitchState(0, true, 0, 10)
	h.run(tickInterval)
	if !h.c.IsQueued(0) {
		t.Fatal("delayed stop request should be queued")
	}

	// Re-typed as a pulse: the entry keeps its place but nothing expires it.
	h.c.SetSwitchState(0, true, 0, 0)
	h.tickAt(time.Minute)
	sw := h.c.Switch(0)
	if !h.c.IsQueued(0) {
		t.Error("re-typing should not dequeue the entry")
	}
	if sw.Type.Kind() != KindPulse || !sw.State {
		t.Errorf("expected an on pulse switch, got %v on=%v", sw.Type, sw.State)
	}

	// Back to a delayed stop: the same entry becomes live with a fresh timer.
	h.c.SetSwitchState(0, true, 0, 3)
	if got := h.c.AppendQueued(nil); len(got) != 1 || got[0] != 0 {
		t.Fatalf("expected the single entry [0], got %v", got)
	}
	h.tickAt(time.Minute + 3*time.Second)
	if !h.c.Switch(0).State || !h.c.IsQueued(0) {
		t.Fatal("switch expired before its new duration")
	}
	h.tickAt(time.Minute + 3*time.Second + time.Millisecond)
	if h.c.Switch(0).State || h.c.IsQueued(0) {
		t.Error("entry should leave the queue once the new duration passed")
	}
}
