package tabs

import (
	"encoding/json"
	"maps"
	"strings"
	"time"

	"github.com/hpungsan/reqtab/internal/request"
)

// Tab is one open request editor.
type Tab struct {
	ID                 string
	SourceRequestID    string // empty for blank or duplicated tabs
	SourceCollectionID string
	Name               string // stored untruncated
	Draft              request.Draft
	LastResult         request.Result // nil, *request.Response or *request.Failure
	IsActive           bool
	HasUnsavedChanges  bool
	IsExecuting        bool
	IsPinned           bool
	CreatedAt          time.Time
	LastAccessedAt     time.Time
	LastSavedAt        *time.Time
}

// DisplayName returns the name truncated to max runes for presentation.
func (t Tab) DisplayName(max int) string {
	return request.Truncate(t.Name, max)
}

// MarshalJSON renders the tab in the same shape used by session snapshots.
func (t Tab) MarshalJSON() ([]byte, error) {
	return json.Marshal(toRecord(&t))
}

func (t *Tab) clone() Tab {
	cp := *t
	cp.Draft = t.Draft.Clone()
	cp.LastResult = request.CloneResult(t.LastResult)
	if t.LastSavedAt != nil {
		ts := *t.LastSavedAt
		cp.LastSavedAt = &ts
	}
	return cp
}

// TabPatch is a shallow update of a tab's top-level fields. Nil fields are left alone.
type TabPatch struct {
	Name      *string
	Executing *bool
}

// DraftPatch updates fields of a tab's request draft. Nil fields are left alone;
// a non-nil Headers map replaces the draft's headers.
type DraftPatch struct {
	Method          *string
	URL             *string
	Headers         map[string]string
	Body            *string
	TimeoutMs       *int
	FollowRedirects *bool
}

// IsEmpty reports whether the patch sets nothing.
func (p DraftPatch) IsEmpty() bool {
	return p.Method == nil && p.URL == nil && p.Headers == nil && p.Body == nil &&
		p.TimeoutMs == nil && p.FollowRedirects == nil
}

func (p DraftPatch) apply(d *request.Draft) {
	if p.Method != nil {
		d.Method = request.NormalizeMethod(*p.Method)
	}
	if p.URL != nil {
		d.URL = strings.TrimSpace(*p.URL)
	}
	if p.Headers != nil {
		d.Headers = maps.Clone(p.Headers)
	}
	if p.Body != nil {
		d.Body = *p.Body
	}
	if p.TimeoutMs != nil {
		d.TimeoutMs = *p.TimeoutMs
		if d.TimeoutMs <= 0 {
			d.TimeoutMs = request.DefaultTimeoutMs
		}
	}
	if p.FollowRedirects != nil {
		d.FollowRedirects = *p.FollowRedirects
	}
}

// nameFor picks the tab label for a persisted request.
func nameFor(rec request.Record) string {
	if name := request.CleanName(rec.Name); name != "" {
		return name
	}
	if rec.URL != "" {
		return request.NormalizeMethod(rec.Method) + " " + rec.URL
	}
	return request.DefaultTabName
}
