package main

import (
	"github.com/rs/zerolog"

	"github.com/adebree/doduino/internal/logic"
	"github.com/adebree/doduino/internal/status"
)

// logTracer logs every controller transition at debug level.
type logTracer struct {
	logger zerolog.Logger
	names  status.Names
}

func newLogTracer(logger zerolog.Logger, names status.Names) logTracer {
	return logTracer{logger: logger, names: names}
}

func (t logTracer) Trace(e logic.Event) {
	ev := t.logger.Debug().
		Str("event", e.Kind.String()).
		Dur("t", e.Time)
	if e.Button >= 0 {
		ev = ev.Int("button", e.Button).Str("button_name", nameAt(t.names.Buttons, e.Button))
	}

	switch e.Kind {
	case logic.EventPress, logic.EventRelease:
		ev = ev.Bool("pulse", e.Pulse).Bool("double_pulse", e.DoublePulse)
	case logic.EventLightTarget, logic.EventLightApplied:
		ev = ev.Int("light", e.Channel).Str("name", nameAt(t.names.Lights, e.Channel)).Int("value", e.Value)
	case logic.EventSwitchApplied, logic.EventQueued, logic.EventDequeued:
		ev = ev.Int("switch", e.Channel).Str("name", nameAt(t.names.Switches, e.Channel))
		if e.Kind == logic.EventSwitchApplied {
			ev = ev.Str("state", status.StateString(e.Value != 0))
		}
	}
	ev.Msg("transition")
}

func nameAt(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return ""
	}
	return names[i]
}
