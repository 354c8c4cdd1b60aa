// Package request holds the request-editing data model shared by tabs, the request
// store and the executor: drafts, persisted records, collections and execution results.
package request

import (
	"maps"
	"time"
)

// DefaultTimeoutMs is the timeout given to drafts that don't specify one.
const DefaultTimeoutMs = 30000

// DefaultTabName is the display name of a blank tab.
const DefaultTabName = "New Request"

// Draft is the in-progress, editable definition of an HTTP request.
type Draft struct {
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            string            `json:"body,omitempty"`
	TimeoutMs       int               `json:"timeout_ms"`
	FollowRedirects bool              `json:"follow_redirects"`
}

// DefaultDraft returns the draft used for blank tabs.
func DefaultDraft() Draft {
	return Draft{
		Method:          "GET",
		Headers:         map[string]string{},
		TimeoutMs:       DefaultTimeoutMs,
		FollowRedirects: true,
	}
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	out := d
	if d.Headers != nil {
		out.Headers = maps.Clone(d.Headers)
	}
	return out
}

// Timeout returns the draft's timeout as a duration, falling back to the default.
func (d Draft) Timeout() time.Duration {
	if d.TimeoutMs <= 0 {
		return DefaultTimeoutMs * time.Millisecond
	}
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

// Record is a persisted request as returned by the request store.
type Record struct {
	ID              string            `json:"id"`
	CollectionID    string            `json:"collection_id,omitempty"`
	Name            string            `json:"name"`
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            string            `json:"body,omitempty"`
	TimeoutMs       int               `json:"timeout_ms"`
	FollowRedirects bool              `json:"follow_redirects"`
	CreatedAt       int64             `json:"created_at"`
	UpdatedAt       int64             `json:"updated_at"`
	DeletedAt       *int64            `json:"deleted_at,omitempty"`
}

// Draft materializes an independent working copy of the record's request fields.
func (r Record) Draft() Draft {
	d := Draft{
		Method:          NormalizeMethod(r.Method),
		URL:             r.URL,
		Headers:         maps.Clone(r.Headers),
		Body:            r.Body,
		TimeoutMs:       r.TimeoutMs,
		FollowRedirects: r.FollowRedirects,
	}
	if d.Headers == nil {
		d.Headers = map[string]string{}
	}
	if d.TimeoutMs <= 0 {
		d.TimeoutMs = DefaultTimeoutMs
	}
	return d
}

// Collection groups persisted requests.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}
