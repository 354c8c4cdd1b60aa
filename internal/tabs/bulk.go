package tabs

import "slices"

// CloseAll removes every tab and returns how many were closed.
func (m *Manager) CloseAll() int {
	m.mu.Lock()
	n := len(m.tabs)
	if n == 0 {
		m.mu.Unlock()
		return 0
	}
	m.tabs = nil
	m.activeID = ""
	m.scheduleSaveLocked()
	m.mu.Unlock()

	m.publish(Event{Kind: EventClosed})
	return n
}

// CloseOthers removes every tab except keepID, which becomes active.
// An unknown keepID closes nothing.
func (m *Manager) CloseOthers(keepID string) int {
	m.mu.Lock()
	keep := m.findLocked(keepID)
	if keep == nil {
		m.mu.Unlock()
		return 0
	}
	n := len(m.tabs) - 1
	if n == 0 {
		m.mu.Unlock()
		return 0
	}
	m.tabs = []*Tab{keep}
	m.activateLocked(keep)
	m.scheduleSaveLocked()
	ev := Event{Kind: EventClosed, ActiveID: m.activeID}
	m.mu.Unlock()

	m.publish(ev)
	return n
}

// CloseUnpinned removes every unpinned tab. If the active tab was removed, the
// first remaining pinned tab becomes active.
func (m *Manager) CloseUnpinned() int {
	m.mu.Lock()
	kept := make([]*Tab, 0, len(m.tabs))
	activeKept := false
	for _, t := range m.tabs {
		if !t.IsPinned {
			continue
		}
		kept = append(kept, t)
		if t.ID == m.activeID {
			activeKept = true
		}
	}
	n := len(m.tabs) - len(kept)
	if n == 0 {
		m.mu.Unlock()
		return 0
	}
	m.tabs = kept
	if !activeKept {
		m.activeID = ""
		if len(kept) > 0 {
			m.activateLocked(kept[0])
		}
	}
	m.scheduleSaveLocked()
	ev := Event{Kind: EventClosed, ActiveID: m.activeID}
	m.mu.Unlock()

	m.publish(ev)
	return n
}

// Reorder moves the tab at index from to index to, shifting the tabs in between.
// Out-of-range indexes are ignored. The active tab does not change.
func (m *Manager) Reorder(from, to int) bool {
	m.mu.Lock()
	n := len(m.tabs)
	if from < 0 || from >= n || to < 0 || to >= n {
		m.mu.Unlock()
		return false
	}
	if from == to {
		m.mu.Unlock()
		return true
	}
	t := m.tabs[from]
	m.tabs = slices.Delete(m.tabs, from, from+1)
	m.tabs = slices.Insert(m.tabs, to, t)
	m.scheduleSaveLocked()
	ev := Event{Kind: EventReordered, TabID: t.ID, ActiveID: m.activeID}
	m.mu.Unlock()

	m.publish(ev)
	return true
}
