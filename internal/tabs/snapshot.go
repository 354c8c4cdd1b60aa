package tabs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hpungsan/reqtab/internal/request"
)

// SessionKey is the default store key for session snapshots.
const SessionKey = "reqtab.session"

const snapshotVersion = 1

type snapshot struct {
	Version     int         `json:"version"`
	Tabs        []tabRecord `json:"tabs"`
	ActiveTabID *string     `json:"active_tab_id"`
	SavedAt     time.Time   `json:"saved_at"`
}

// tabRecord is the persisted form of a Tab. The result sum type is flattened
// into two optional fields.
type tabRecord struct {
	ID                 string            `json:"id"`
	SourceRequestID    string            `json:"source_request_id,omitempty"`
	SourceCollectionID string            `json:"source_collection_id,omitempty"`
	Name               string            `json:"name"`
	Draft              request.Draft     `json:"draft"`
	Response           *request.Response `json:"response,omitempty"`
	Failure            *request.Failure  `json:"failure,omitempty"`
	IsActive           bool              `json:"is_active"`
	HasUnsavedChanges  bool              `json:"has_unsaved_changes"`
	IsExecuting        bool              `json:"is_executing"`
	IsPinned           bool              `json:"is_pinned"`
	CreatedAt          time.Time         `json:"created_at"`
	LastAccessedAt     time.Time         `json:"last_accessed_at"`
	LastSavedAt        *time.Time        `json:"last_saved_at,omitempty"`
}

func toRecord(t *Tab) tabRecord {
	rec := tabRecord{
		ID:                 t.ID,
		SourceRequestID:    t.SourceRequestID,
		SourceCollectionID: t.SourceCollectionID,
		Name:               t.Name,
		Draft:              t.Draft,
		IsActive:           t.IsActive,
		HasUnsavedChanges:  t.HasUnsavedChanges,
		IsExecuting:        t.IsExecuting,
		IsPinned:           t.IsPinned,
		CreatedAt:          t.CreatedAt,
		LastAccessedAt:     t.LastAccessedAt,
		LastSavedAt:        t.LastSavedAt,
	}
	switch r := t.LastResult.(type) {
	case *request.Response:
		rec.Response = r
	case *request.Failure:
		rec.Failure = r
	}
	return rec
}

func encodeSnapshot(tabs []*Tab, activeID string, savedAt time.Time) ([]byte, error) {
	snap := snapshot{
		Version: snapshotVersion,
		Tabs:    make([]tabRecord, len(tabs)),
		SavedAt: savedAt,
	}
	for i, t := range tabs {
		snap.Tabs[i] = toRecord(t)
	}
	if activeID != "" {
		snap.ActiveTabID = &activeID
	}
	return json.Marshal(snap)
}

// looseSnapshot decodes tab entries one at a time so a bad entry can be dropped
// without losing the rest.
type looseSnapshot struct {
	Tabs        []json.RawMessage `json:"tabs"`
	ActiveTabID *string           `json:"active_tab_id"`
}

// looseTab uses pointers for the fields whose absence matters.
type looseTab struct {
	ID                 *string           `json:"id"`
	SourceRequestID    string            `json:"source_request_id"`
	SourceCollectionID string            `json:"source_collection_id"`
	Name               *string           `json:"name"`
	Draft              *request.Draft    `json:"draft"`
	Response           *request.Response `json:"response"`
	Failure            *request.Failure  `json:"failure"`
	HasUnsavedChanges  bool              `json:"has_unsaved_changes"`
	IsPinned           bool              `json:"is_pinned"`
	CreatedAt          *time.Time        `json:"created_at"`
	LastAccessedAt     *time.Time        `json:"last_accessed_at"`
	LastSavedAt        *time.Time        `json:"last_saved_at"`
}

// restoreStats counts what decodeSnapshot threw away.
type restoreStats struct {
	Malformed  int
	Duplicates int
	Unlinked   int
	Truncated  int
}

// decodeSnapshot rebuilds tabs from a snapshot. Entries missing an id, name or
// draft are dropped, as are repeated ids. A source link already claimed by an
// earlier tab is cleared. At most capacity tabs are kept. Executing flags are
// reset. The returned active id is "" unless it names a surviving tab.
func decodeSnapshot(data []byte, capacity int, now time.Time) ([]*Tab, string, restoreStats, error) {
	var stats restoreStats

	var raw looseSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, "", stats, fmt.Errorf("decode session snapshot: %w", err)
	}

	seenIDs := make(map[string]bool, len(raw.Tabs))
	seenSources := make(map[string]bool, len(raw.Tabs))
	tabs := make([]*Tab, 0, min(len(raw.Tabs), capacity))

	for _, entry := range raw.Tabs {
		var lt looseTab
		if err := json.Unmarshal(entry, &lt); err != nil {
			stats.Malformed++
			continue
		}
		if lt.ID == nil || *lt.ID == "" || lt.Name == nil || lt.Draft == nil {
			stats.Malformed++
			continue
		}
		if seenIDs[*lt.ID] {
			stats.Duplicates++
			continue
		}
		if len(tabs) == capacity {
			stats.Truncated++
			continue
		}
		seenIDs[*lt.ID] = true

		t := &Tab{
			ID:                 *lt.ID,
			SourceRequestID:    lt.SourceRequestID,
			SourceCollectionID: lt.SourceCollectionID,
			Name:               *lt.Name,
			Draft:              normalizeDraft(*lt.Draft),
			HasUnsavedChanges:  lt.HasUnsavedChanges,
			IsPinned:           lt.IsPinned,
			CreatedAt:          now,
			LastSavedAt:        lt.LastSavedAt,
		}
		if t.Name == "" {
			t.Name = request.DefaultTabName
		}
		if t.SourceRequestID != "" {
			if seenSources[t.SourceRequestID] {
				t.SourceRequestID = ""
				t.SourceCollectionID = ""
				stats.Unlinked++
			} else {
				seenSources[t.SourceRequestID] = true
			}
		}
		switch {
		case lt.Response != nil:
			t.LastResult = lt.Response
		case lt.Failure != nil:
			t.LastResult = lt.Failure
		}
		if lt.CreatedAt != nil && !lt.CreatedAt.IsZero() {
			t.CreatedAt = *lt.CreatedAt
		}
		t.LastAccessedAt = t.CreatedAt
		if lt.LastAccessedAt != nil && !lt.LastAccessedAt.IsZero() {
			t.LastAccessedAt = *lt.LastAccessedAt
		}
		tabs = append(tabs, t)
	}

	activeID := ""
	if raw.ActiveTabID != nil {
		for _, t := range tabs {
			if t.ID == *raw.ActiveTabID {
				t.IsActive = true
				activeID = t.ID
				break
			}
		}
	}
	return tabs, activeID, stats, nil
}

func normalizeDraft(d request.Draft) request.Draft {
	d.Method = request.NormalizeMethod(d.Method)
	if d.Headers == nil {
		d.Headers = map[string]string{}
	}
	if d.TimeoutMs <= 0 {
		d.TimeoutMs = request.DefaultTimeoutMs
	}
	return d
}
