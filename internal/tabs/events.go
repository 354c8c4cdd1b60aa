package tabs

// EventKind identifies what changed in the session.
type EventKind string

const (
	EventOpened    EventKind = "opened"
	EventClosed    EventKind = "closed"
	EventSwitched  EventKind = "switched"
	EventUpdated   EventKind = "updated"
	EventResult    EventKind = "result"
	EventReordered EventKind = "reordered"
	EventRestored  EventKind = "restored"
)

// Event is delivered to subscribers after a mutation completes.
// TabID is empty for bulk operations; ActiveID is the active tab afterwards.
type Event struct {
	Kind     EventKind
	TabID    string
	ActiveID string
}

// Subscribe registers fn to receive events. Events are delivered synchronously on the
// goroutine that performed the mutation, after the manager's lock is released, so fn
// may call back into the manager. The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	if m.subs == nil {
		m.subs = make(map[int]func(Event))
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Manager) publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	m.subMu.Lock()
	fns := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}
