package mqtt

// FakePublisher stands in for the broker in tests. Only successful publishes
// are recorded, each event next to the payload a real client would send.
type FakePublisher struct {
	Events   []StateEvent
	Payloads [][]byte

	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Set these to make the matching call fail.
	PublishError       error
	PublishSystemError error

	// Connected is what IsConnected reports.
	Connected bool
	Closed    bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(event StateEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Last returns the most recent state published for channel ch of kind.
func (f *FakePublisher) Last(kind Kind, ch int) (StateEvent, bool) {
	for i := len(f.Events) - 1; i >= 0; i-- {
		if e := f.Events[i]; e.Kind == kind && e.Channel == ch {
			return e, true
		}
	}
	return StateEvent{}, false
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset forgets everything published and reopens the fake. Injected errors
// and the connection flag stay as the test set them.
func (f *FakePublisher) Reset() {
	f.Events, f.Payloads = nil, nil
	f.SystemEvents, f.SystemPayloads = nil, nil
	f.Closed = false
}
