package tabs

// NextTab activates the tab after the active one, wrapping to the first.
func (m *Manager) NextTab() bool {
	return m.switchRelative(1)
}

// PrevTab activates the tab before the active one, wrapping to the last.
func (m *Manager) PrevTab() bool {
	return m.switchRelative(-1)
}

func (m *Manager) switchRelative(step int) bool {
	m.mu.Lock()
	n := len(m.tabs)
	if n == 0 {
		m.mu.Unlock()
		return false
	}
	i := m.indexLocked(m.activeID)
	if i < 0 {
		i = 0
	} else {
		i = ((i+step)%n + n) % n
	}
	id := m.tabs[i].ID
	m.mu.Unlock()

	return m.SwitchTab(id)
}

// SwitchToPosition activates the nth tab, counting from 1.
func (m *Manager) SwitchToPosition(n int) bool {
	m.mu.Lock()
	if n < 1 || n > len(m.tabs) {
		m.mu.Unlock()
		return false
	}
	id := m.tabs[n-1].ID
	m.mu.Unlock()

	return m.SwitchTab(id)
}

// SwitchToLast activates the rightmost tab.
func (m *Manager) SwitchToLast() bool {
	m.mu.Lock()
	if len(m.tabs) == 0 {
		m.mu.Unlock()
		return false
	}
	id := m.tabs[len(m.tabs)-1].ID
	m.mu.Unlock()

	return m.SwitchTab(id)
}

// CloseActive closes the active tab.
func (m *Manager) CloseActive() bool {
	return m.CloseTab(m.ActiveID())
}
