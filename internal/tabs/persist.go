package tabs

import (
	"context"
	"fmt"
	"time"
)

// Store is the durable key-value store session snapshots are written to.
type Store interface {
	// Get returns the value for key. ok is false if the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// scheduleSaveLocked marks the session dirty and arranges a background write.
// Repeated calls within the debounce window collapse into one write.
func (m *Manager) scheduleSaveLocked() {
	if m.store == nil {
		return
	}
	m.dirty = true
	if m.debounce < 0 || m.closed {
		return
	}
	if m.debounce == 0 {
		go m.flushBackground()
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, m.flushBackground)
}

func (m *Manager) flushBackground() {
	// Errors are logged by write; background writes have nobody to report to.
	_ = m.Flush(context.Background())
}

// Flush writes the session if it changed since the last write.
func (m *Manager) Flush(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	data, err := m.snapshotLocked()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.write(ctx, data)
}

// SaveSession writes the current session unconditionally. The error is returned
// to the caller and logged; the in-memory session is unaffected either way.
func (m *Manager) SaveSession(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	data, err := m.snapshotLocked()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.write(ctx, data)
}

// snapshotLocked encodes the session and clears the dirty flag.
func (m *Manager) snapshotLocked() ([]byte, error) {
	data, err := encodeSnapshot(m.tabs, m.activeID, m.clock.Now())
	if err != nil {
		m.log.Error().Err(err).Msg("failed to encode session snapshot")
		return nil, fmt.Errorf("encode session snapshot: %w", err)
	}
	m.dirty = false
	return data, nil
}

// write stores data. On failure the session is marked dirty again so the next
// flush retries.
func (m *Manager) write(ctx context.Context, data []byte) error {
	if err := m.store.Set(ctx, m.key, string(data)); err != nil {
		m.log.Error().Err(err).Str("key", m.key).Msg("failed to save session snapshot")
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
		return fmt.Errorf("save session snapshot: %w", err)
	}
	m.log.Debug().Int("bytes", len(data)).Msg("session snapshot saved")
	return nil
}

// RestoreSession replaces the in-memory session with the stored snapshot and
// returns the number of tabs restored. A missing snapshot or a failed read
// leaves the session as it is; an undecodable snapshot empties it.
func (m *Manager) RestoreSession(ctx context.Context) int {
	if m.store == nil {
		return 0
	}
	raw, ok, err := m.store.Get(ctx, m.key)
	if err != nil {
		m.log.Error().Err(err).Str("key", m.key).Msg("failed to read session snapshot")
		return 0
	}
	if !ok {
		return 0
	}

	m.mu.Lock()
	tabs, activeID, stats, err := decodeSnapshot([]byte(raw), m.capacity, m.clock.Now())
	if err != nil {
		m.log.Error().Err(err).Msg("discarding unreadable session snapshot")
	}
	m.tabs = tabs
	m.activeID = activeID
	n := len(tabs)
	m.mu.Unlock()

	ev := m.log.Debug()
	if stats != (restoreStats{}) {
		ev = m.log.Warn()
	}
	ev.Int("restored", n).
		Int("malformed", stats.Malformed).
		Int("duplicates", stats.Duplicates).
		Int("unlinked", stats.Unlinked).
		Int("truncated", stats.Truncated).
		Msg("session restored")

	m.publish(Event{Kind: EventRestored, ActiveID: activeID})
	return n
}

// ClearSession deletes the stored snapshot. Open tabs are not touched.
func (m *Manager) ClearSession(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.store.Delete(ctx, m.key); err != nil {
		m.log.Error().Err(err).Str("key", m.key).Msg("failed to clear session snapshot")
		return fmt.Errorf("clear session snapshot: %w", err)
	}
	return nil
}

// Close stops pending background writes and flushes any unsaved session state.
// Mutations after Close still apply in memory but are only written by an
// explicit Flush or SaveSession.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	return m.Flush(ctx)
}
