package logic

// delayQueue is an insertion-ordered set of switch indices. Both slices are
// sized once for the number of switches, so it never grows.
type delayQueue struct {
	items  []int
	member []bool
}

func newDelayQueue(capacity int) delayQueue {
	return delayQueue{
		items:  make([]int, 0, capacity),
		member: make([]bool, capacity),
	}
}

// add appends ch unless it is already queued and reports whether it was added.
func (q *delayQueue) add(ch int) bool {
	if q.member[ch] {
		return false
	}
	q.member[ch] = true
	q.items = append(q.items, ch)
	return true
}

func (q *delayQueue) contains(ch int) bool {
	return q.member[ch]
}

func (q *delayQueue) len() int {
	return len(q.items)
}

// enqueue puts switch ch in the delay queue and restarts its timer.
func (c *Controller) enqueue(ch int) {
	c.queue.add(ch)
	c.reg.switches[ch].LastTargetChange = c.now
	c.trace.Trace(Event{Time: c.now, Kind: EventQueued, Button: -1, Channel: ch})
}

// drainQueue fires expired delays and drops finished entries, keeping the
// order of the rest.
func (c *Controller) drainQueue() {
	q := &c.queue
	kept := q.items[:0]
	for _, ch := range q.items {
		if c.expire(ch) {
			q.member[ch] = false
			c.trace.Trace(Event{Time: c.now, Kind: EventDequeued, Button: -1, Channel: ch})
			continue
		}
		kept = append(kept, ch)
	}
	q.items = kept
}

// expire applies the timed transition of a queued switch and reports whether
// the entry is finished. Delayed-start entries never finish on their own.
func (c *Controller) expire(ch int) bool {
	s := &c.reg.switches[ch]
	elapsed := c.now - s.LastTargetChange
	t := s.Type

	switch t.Kind() {
	case KindDelayedStop:
		if elapsed > t.Duration() {
			s.Target = false
			return true
		}
	case KindDelayedStart:
		if elapsed > t.StartDelay() {
			s.Target = true
		}
	case KindDelayedStartStop:
		if elapsed > t.StartDelay()+t.Duration() {
			s.Target = false
			return true
		}
		if elapsed > t.StartDelay() {
			s.Target = true
		}
	}
	return false
}
