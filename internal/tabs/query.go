package tabs

// Tab returns a copy of the tab with the given id.
func (m *Manager) Tab(id string) (Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.findLocked(id); t != nil {
		return t.clone(), true
	}
	return Tab{}, false
}

// ActiveTab returns a copy of the active tab.
func (m *Manager) ActiveTab() (Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.findLocked(m.activeID); t != nil {
		return t.clone(), true
	}
	return Tab{}, false
}

// FindBySource returns the tab open on the given persisted request.
func (m *Manager) FindBySource(requestID string) (Tab, bool) {
	if requestID == "" {
		return Tab{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if t := m.findBySourceLocked(requestID); t != nil {
		return t.clone(), true
	}
	return Tab{}, false
}

// Tabs returns copies of all tabs in display order.
func (m *Manager) Tabs() []Tab {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Tab, len(m.tabs))
	for i, t := range m.tabs {
		out[i] = t.clone()
	}
	return out
}

// UnsavedTabs returns copies of the tabs with unsaved changes, in display order.
func (m *Manager) UnsavedTabs() []Tab {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Tab
	for _, t := range m.tabs {
		if t.HasUnsavedChanges {
			out = append(out, t.clone())
		}
	}
	return out
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tabs)
}

func (m *Manager) Capacity() int {
	return m.capacity
}

// ActiveID returns the active tab id, or "" when the session is empty.
func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}
