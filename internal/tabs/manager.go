// Package tabs manages the bounded, ordered set of open request tabs: which one is
// active, which have unsaved edits, capacity eviction, and session persistence.
package tabs

import (
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/reqtab/internal/request"
)

// DefaultCapacity is used when Options.Capacity is not positive.
const DefaultCapacity = 20

// Options configures a Manager.
type Options struct {
	// Capacity is the maximum number of open tabs.
	Capacity int

	// Store persists session snapshots. Nil disables persistence.
	Store Store

	// Key is the store key snapshots are written under. Defaults to SessionKey.
	Key string

	// Debounce coalesces snapshot writes. Zero writes on every mutation,
	// negative disables automatic writes.
	Debounce time.Duration

	Clock  Clock
	IDs    request.IDGenerator
	Logger *zerolog.Logger
}

// Manager owns the tab session. All methods are safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	tabs     []*Tab
	activeID string
	capacity int
	clock    Clock
	newID    request.IDGenerator
	log      zerolog.Logger

	store    Store
	key      string
	debounce time.Duration
	writeMu  sync.Mutex
	timer    *time.Timer
	dirty    bool
	closed   bool

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New creates an empty session.
func New(opts Options) *Manager {
	m := &Manager{
		capacity: opts.Capacity,
		clock:    opts.Clock,
		newID:    opts.IDs,
		store:    opts.Store,
		key:      opts.Key,
		debounce: opts.Debounce,
		log:      zerolog.Nop(),
	}
	if m.capacity <= 0 {
		m.capacity = DefaultCapacity
	}
	if m.clock == nil {
		m.clock = SystemClock{}
	}
	if m.newID == nil {
		m.newID = request.NewID
	}
	if m.key == "" {
		m.key = SessionKey
	}
	if opts.Logger != nil {
		m.log = opts.Logger.With().Str("component", "tabs").Logger()
	}
	return m
}

// OpenTab opens a tab for a persisted request and returns its id. If a tab for the
// same request is already open, its id is returned (and it is activated when
// makeActive is set). When the session is full the least recently accessed unpinned
// tab is closed to make room; if every tab is pinned, OpenTab returns "".
func (m *Manager) OpenTab(rec request.Record, makeActive bool) string {
	m.mu.Lock()

	if rec.ID != "" {
		if existing := m.findBySourceLocked(rec.ID); existing != nil {
			var events []Event
			if makeActive {
				m.touchAndActivateLocked(existing)
				events = append(events, Event{Kind: EventSwitched, TabID: existing.ID, ActiveID: m.activeID})
			}
			id := existing.ID
			m.mu.Unlock()
			m.publish(events...)
			return id
		}
	}

	now := m.clock.Now()
	tab := &Tab{
		ID:                 m.newID(),
		SourceRequestID:    rec.ID,
		SourceCollectionID: rec.CollectionID,
		Name:               nameFor(rec),
		Draft:              rec.Draft(),
		CreatedAt:          now,
		LastAccessedAt:     now,
	}
	events, ok := m.addLocked(tab, makeActive)
	m.mu.Unlock()
	if !ok {
		return ""
	}
	m.publish(events...)
	return tab.ID
}

// OpenBlankTab opens an unsaved tab with the default draft and returns its id,
// or "" if the session is full of pinned tabs.
func (m *Manager) OpenBlankTab(makeActive bool) string {
	m.mu.Lock()

	now := m.clock.Now()
	tab := &Tab{
		ID:                m.newID(),
		Name:              request.DefaultTabName,
		Draft:             request.DefaultDraft(),
		HasUnsavedChanges: true,
		CreatedAt:         now,
		LastAccessedAt:    now,
	}
	events, ok := m.addLocked(tab, makeActive)
	m.mu.Unlock()
	if !ok {
		return ""
	}
	m.publish(events...)
	return tab.ID
}

// addLocked appends tab, evicting if needed. Returns false without changing the
// session if no slot can be freed.
func (m *Manager) addLocked(tab *Tab, makeActive bool) ([]Event, bool) {
	var events []Event
	if len(m.tabs) >= m.capacity {
		victim := m.evictionCandidateLocked()
		if victim < 0 {
			m.log.Warn().Int("capacity", m.capacity).Msg("tab limit reached and every tab is pinned")
			return nil, false
		}
		evicted := m.tabs[victim]
		ev := m.log.Warn().Str("tab_id", evicted.ID).Str("name", evicted.Name)
		if evicted.HasUnsavedChanges {
			ev = ev.Bool("unsaved", true)
		}
		ev.Msg("evicting least recently used tab")
		m.removeAtLocked(victim)
		events = append(events, Event{Kind: EventClosed, TabID: evicted.ID, ActiveID: m.activeID})
	}

	m.tabs = append(m.tabs, tab)
	// A non-empty session always has an active tab.
	if makeActive || m.activeID == "" {
		m.activateLocked(tab)
	}
	m.scheduleSaveLocked()
	m.log.Debug().Str("tab_id", tab.ID).Int("tabs", len(m.tabs)).Msg("tab opened")

	events = append(events, Event{Kind: EventOpened, TabID: tab.ID, ActiveID: m.activeID})
	return events, true
}

// evictionCandidateLocked returns the index of the unpinned tab with the oldest
// LastAccessedAt, or -1. Ties go to the leftmost tab.
func (m *Manager) evictionCandidateLocked() int {
	victim := -1
	for i, t := range m.tabs {
		if t.IsPinned {
			continue
		}
		if victim < 0 || t.LastAccessedAt.Before(m.tabs[victim].LastAccessedAt) {
			victim = i
		}
	}
	return victim
}

// CloseTab removes a tab. Unsaved changes are discarded; callers that want to
// confirm first should check HasUnsavedChanges.
func (m *Manager) CloseTab(id string) bool {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 {
		m.mu.Unlock()
		return false
	}
	if t := m.tabs[i]; t.HasUnsavedChanges {
		m.log.Warn().Str("tab_id", id).Str("name", t.Name).Msg("closing tab with unsaved changes")
	}
	m.removeAtLocked(i)
	m.scheduleSaveLocked()
	ev := Event{Kind: EventClosed, TabID: id, ActiveID: m.activeID}
	m.mu.Unlock()

	m.publish(ev)
	return true
}

// removeAtLocked deletes the tab at i. If it was active, the tab that slides into
// its position becomes active, else the new last tab, else none.
func (m *Manager) removeAtLocked(i int) {
	t := m.tabs[i]
	m.tabs = slices.Delete(m.tabs, i, i+1)
	if t.ID != m.activeID {
		return
	}
	t.IsActive = false
	m.activeID = ""
	if len(m.tabs) == 0 {
		return
	}
	m.activateLocked(m.tabs[min(i, len(m.tabs)-1)])
}

// SwitchTab makes id the active tab. Switching is not persisted on its own.
func (m *Manager) SwitchTab(id string) bool {
	m.mu.Lock()
	t := m.findLocked(id)
	if t == nil {
		m.mu.Unlock()
		return false
	}
	m.touchAndActivateLocked(t)
	ev := Event{Kind: EventSwitched, TabID: id, ActiveID: id}
	m.mu.Unlock()

	m.publish(ev)
	return true
}

// UpdateTab applies a shallow patch to a tab's top-level fields.
func (m *Manager) UpdateTab(id string, p TabPatch) bool {
	return m.mutate(id, EventUpdated, func(t *Tab) bool {
		if p.Name != nil {
			t.Name = request.CleanName(*p.Name)
			if t.Name == "" {
				t.Name = request.DefaultTabName
			}
		}
		if p.Executing != nil {
			t.IsExecuting = *p.Executing
		}
		return p.Name != nil || p.Executing != nil
	})
}

// UpdateDraft edits the tab's request draft and marks it unsaved.
func (m *Manager) UpdateDraft(id string, p DraftPatch) bool {
	return m.mutate(id, EventUpdated, func(t *Tab) bool {
		if p.IsEmpty() {
			return false
		}
		p.apply(&t.Draft)
		t.HasUnsavedChanges = true
		t.LastAccessedAt = m.clock.Now()
		return true
	})
}

// BeginExecution flags the tab as executing. The previous result stays visible
// until SetResult replaces it.
func (m *Manager) BeginExecution(id string) bool {
	executing := true
	return m.UpdateTab(id, TabPatch{Executing: &executing})
}

// SetResult records the outcome of an execution and clears the executing flag.
// Results for tabs that were closed in the meantime are dropped.
func (m *Manager) SetResult(id string, r request.Result) bool {
	return m.mutate(id, EventResult, func(t *Tab) bool {
		t.IsExecuting = false
		t.LastResult = request.CloneResult(r)
		return true
	})
}

// MarkSaved clears the unsaved flag and stamps LastSavedAt.
func (m *Manager) MarkSaved(id string) bool {
	return m.mutate(id, EventUpdated, func(t *Tab) bool {
		now := m.clock.Now()
		t.HasUnsavedChanges = false
		t.LastSavedAt = &now
		return true
	})
}

// MarkUnsaved sets the unsaved flag.
func (m *Manager) MarkUnsaved(id string) bool {
	return m.mutate(id, EventUpdated, func(t *Tab) bool {
		t.HasUnsavedChanges = true
		return true
	})
}

// TogglePin flips the tab's pinned flag. Pinned tabs are never evicted.
func (m *Manager) TogglePin(id string) bool {
	return m.mutate(id, EventUpdated, func(t *Tab) bool {
		t.IsPinned = !t.IsPinned
		return true
	})
}

// AttachSource links a tab to a persisted request, typically after the tab's draft
// was saved as a new request. Fails if another tab is already open on requestID.
func (m *Manager) AttachSource(id, requestID, collectionID string) bool {
	if requestID == "" {
		return false
	}
	m.mu.Lock()
	t := m.findLocked(id)
	if t == nil {
		m.mu.Unlock()
		return false
	}
	if other := m.findBySourceLocked(requestID); other != nil && other != t {
		m.mu.Unlock()
		return false
	}
	t.SourceRequestID = requestID
	t.SourceCollectionID = collectionID
	m.scheduleSaveLocked()
	ev := Event{Kind: EventUpdated, TabID: id, ActiveID: m.activeID}
	m.mu.Unlock()

	m.publish(ev)
	return true
}

// mutate runs fn on the tab under the lock. fn reports whether anything changed;
// only changes are persisted and published. Returns false if id is unknown.
func (m *Manager) mutate(id string, kind EventKind, fn func(t *Tab) bool) bool {
	m.mu.Lock()
	t := m.findLocked(id)
	if t == nil {
		m.mu.Unlock()
		return false
	}
	changed := fn(t)
	if !changed {
		m.mu.Unlock()
		return true
	}
	m.scheduleSaveLocked()
	ev := Event{Kind: kind, TabID: id, ActiveID: m.activeID}
	m.mu.Unlock()

	m.publish(ev)
	return true
}

// DuplicateTab copies a tab's draft into a new unsaved tab placed right after it.
// The copy has no source link and is not activated. Duplicating never evicts, so
// it fails with "" when the session is full.
func (m *Manager) DuplicateTab(id string) string {
	m.mu.Lock()
	i := m.indexLocked(id)
	if i < 0 || len(m.tabs) >= m.capacity {
		m.mu.Unlock()
		return ""
	}
	src := m.tabs[i]
	now := m.clock.Now()
	dup := &Tab{
		ID:                m.newID(),
		Name:              request.CopyName(src.Name),
		Draft:             src.Draft.Clone(),
		HasUnsavedChanges: true,
		CreatedAt:         now,
		LastAccessedAt:    now,
	}
	m.tabs = slices.Insert(m.tabs, i+1, dup)
	m.scheduleSaveLocked()
	ev := Event{Kind: EventOpened, TabID: dup.ID, ActiveID: m.activeID}
	m.mu.Unlock()

	m.publish(ev)
	return dup.ID
}

func (m *Manager) activateLocked(t *Tab) {
	for _, other := range m.tabs {
		other.IsActive = false
	}
	t.IsActive = true
	m.activeID = t.ID
}

func (m *Manager) touchAndActivateLocked(t *Tab) {
	t.LastAccessedAt = m.clock.Now()
	m.activateLocked(t)
}

func (m *Manager) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(m.tabs, func(t *Tab) bool { return t.ID == id })
}

func (m *Manager) findLocked(id string) *Tab {
	if i := m.indexLocked(id); i >= 0 {
		return m.tabs[i]
	}
	return nil
}

func (m *Manager) findBySourceLocked(requestID string) *Tab {
	for _, t := range m.tabs {
		if t.SourceRequestID == requestID {
			return t
		}
	}
	return nil
}
