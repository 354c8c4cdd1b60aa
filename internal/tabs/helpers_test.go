package tabs

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/reqtab/internal/request"
)

// stepClock advances one second on every read so timestamps are strictly ordered.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func seqIDs() request.IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("tab-%d", n)
	}
}

func newTestManager(t *testing.T, capacity int) *Manager {
	t.Helper()
	return New(Options{
		Capacity: capacity,
		Clock:    newStepClock(),
		IDs:      seqIDs(),
	})
}

func record(id string) request.Record {
	return request.Record{
		ID:     id,
		Name:   "Request " + id,
		Method: "get",
		URL:    "https://api.example.com/" + id,
	}
}

func tabIDs(m *Manager) []string {
	var ids []string
	for _, t := range m.Tabs() {
		ids = append(ids, t.ID)
	}
	return ids
}

func sourceIDs(m *Manager) []string {
	var ids []string
	for _, t := range m.Tabs() {
		ids = append(ids, t.SourceRequestID)
	}
	return ids
}

// checkInvariants fails the test if the session is in a state no operation may leave it in.
func checkInvariants(t *testing.T, m *Manager) {
	t.Helper()
	tabs := m.Tabs()
	activeID := m.ActiveID()

	if len(tabs) > m.Capacity() {
		t.Fatalf("len(tabs) = %d exceeds capacity %d", len(tabs), m.Capacity())
	}
	if len(tabs) == 0 && activeID != "" {
		t.Fatalf("empty session has active id %q", activeID)
	}
	if len(tabs) > 0 && activeID == "" {
		t.Fatalf("non-empty session has no active tab")
	}

	ids := map[string]bool{}
	sources := map[string]bool{}
	active := 0
	for _, tab := range tabs {
		if ids[tab.ID] {
			t.Fatalf("duplicate tab id %q", tab.ID)
		}
		ids[tab.ID] = true
		if tab.SourceRequestID != "" {
			if sources[tab.SourceRequestID] {
				t.Fatalf("two tabs open on request %q", tab.SourceRequestID)
			}
			sources[tab.SourceRequestID] = true
		}
		if tab.IsActive {
			active++
			if tab.ID != activeID {
				t.Fatalf("tab %q is flagged active but active id is %q", tab.ID, activeID)
			}
		}
	}
	if active > 1 {
		t.Fatalf("%d tabs flagged active", active)
	}
	if len(tabs) > 0 && active != 1 {
		t.Fatalf("active id %q not flagged on any tab", activeID)
	}
}
