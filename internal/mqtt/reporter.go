package mqtt

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adebree/doduino/internal/logic"
)

// Reporter turns applied channel writes into state events. It is a
// logic.Tracer: Trace never blocks, and events that do not fit in the
// buffer are dropped and counted.
type Reporter struct {
	pub      Publisher
	start    time.Time
	lights   []string
	switches []string
	events   chan logic.Event
	dropped  atomic.Uint64
}

// NewReporter creates a Reporter. start is the wall time of monotonic
// offset zero; lights and switches name the channels.
func NewReporter(pub Publisher, start time.Time, lights, switches []string, size int) *Reporter {
	if size < 1 {
		size = 1
	}
	return &Reporter{
		pub:      pub,
		start:    start,
		lights:   lights,
		switches: switches,
		events:   make(chan logic.Event, size),
	}
}

// Trace implements logic.Tracer.
func (r *Reporter) Trace(e logic.Event) {
	if e.Kind != logic.EventLightApplied && e.Kind != logic.EventSwitchApplied {
		return
	}
	select {
	case r.events <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events lost to a full buffer.
func (r *Reporter) Dropped() uint64 {
	return r.dropped.Load()
}

// Run publishes events until ctx is done, then flushes what is left.
func (r *Reporter) Run(ctx context.Context) {
	for {
		select {
		case e := <-r.events:
			r.publish(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-r.events:
					r.publish(e)
				default:
					return
				}
			}
		}
	}
}

func (r *Reporter) publish(e logic.Event) {
	ev := StateEvent{
		Timestamp: r.start.Add(e.Time),
		Channel:   e.Channel,
		Value:     e.Value,
	}
	if e.Kind == logic.EventLightApplied {
		ev.Kind = KindLight
		ev.Name = name(r.lights, e.Channel)
	} else {
		ev.Kind = KindSwitch
		ev.Name = name(r.switches, e.Channel)
	}
	if err := r.pub.Publish(ev); err != nil {
		log.Warn().Err(err).Str("kind", string(ev.Kind)).Int("channel", ev.Channel).Msg("publish state")
	}
}

func name(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return ""
	}
	return names[i]
}
