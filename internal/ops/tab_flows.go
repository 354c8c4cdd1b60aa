package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/reqtab/internal/db"
	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/logging"
	"github.com/hpungsan/reqtab/internal/request"
	"github.com/hpungsan/reqtab/internal/tabs"
)

// OpenRequestInput contains parameters for the OpenRequest operation.
type OpenRequestInput struct {
	RequestID  string
	Background bool // open without activating
}

// OpenRequestOutput contains the result of the OpenRequest operation.
type OpenRequestOutput struct {
	TabID  string `json:"tab_id"`
	Reused bool   `json:"reused"`
}

// OpenRequest loads a saved request into a tab, reusing the tab already open on it.
func OpenRequest(ctx context.Context, database *sql.DB, m *tabs.Manager, input OpenRequestInput) (*OpenRequestOutput, error) {
	id, err := requireID("request_id", input.RequestID)
	if err != nil {
		return nil, err
	}
	rec, err := db.GetRequest(ctx, database, id, false)
	if err != nil {
		return nil, err
	}

	_, reused := m.FindBySource(rec.ID)
	tabID := m.OpenTab(*rec, !input.Background)
	if tabID == "" {
		return nil, errors.NewCapacityExhausted(m.Capacity())
	}
	return &OpenRequestOutput{TabID: tabID, Reused: reused}, nil
}

// SaveTabInput contains parameters for the SaveTab operation.
type SaveTabInput struct {
	TabID string

	// Name and CollectionID apply only when the tab has no saved request yet.
	// Name defaults to the tab's name.
	Name         *string
	CollectionID string
}

// SaveTabOutput contains the result of the SaveTab operation.
type SaveTabOutput struct {
	TabID     string `json:"tab_id"`
	RequestID string `json:"request_id"`
	Created   bool   `json:"created"`
}

// SaveTab writes a tab's draft to the request store. A tab opened from a saved
// request overwrites that request; any other tab is saved as a new request and
// linked to it. The tab is marked saved either way.
func SaveTab(ctx context.Context, database *sql.DB, m *tabs.Manager, input SaveTabInput) (*SaveTabOutput, error) {
	tabID, err := requireID("tab_id", input.TabID)
	if err != nil {
		return nil, err
	}
	tab, ok := m.Tab(tabID)
	if !ok {
		return nil, errors.NewNotFound("tab", tabID)
	}

	if tab.SourceRequestID != "" {
		d := tab.Draft
		timeout := d.TimeoutMs
		_, err := UpdateRequest(ctx, database, UpdateRequestInput{
			ID:              tab.SourceRequestID,
			Name:            &tab.Name,
			Method:          &d.Method,
			URL:             &d.URL,
			Headers:         nonNilHeaders(d.Headers),
			Body:            &d.Body,
			TimeoutMs:       &timeout,
			FollowRedirects: &d.FollowRedirects,
		})
		if err != nil {
			return nil, err
		}
		m.MarkSaved(tabID)
		logging.FromContext(ctx).Debug().
			Str("tab_id", tabID).
			Str("request_id", tab.SourceRequestID).
			Msg("tab saved over its request")
		return &SaveTabOutput{TabID: tabID, RequestID: tab.SourceRequestID}, nil
	}

	name := tab.Name
	if input.Name != nil {
		name = *input.Name
	}
	if strings.TrimSpace(tab.Draft.URL) == "" {
		return nil, errors.NewInvalidRequest("tab has no url to save")
	}
	rec, err := CreateRequest(ctx, database, CreateRequestInput{
		CollectionID:    input.CollectionID,
		Name:            name,
		Method:          tab.Draft.Method,
		URL:             tab.Draft.URL,
		Headers:         tab.Draft.Headers,
		Body:            tab.Draft.Body,
		TimeoutMs:       tab.Draft.TimeoutMs,
		FollowRedirects: &tab.Draft.FollowRedirects,
	})
	if err != nil {
		return nil, err
	}

	if !m.AttachSource(tabID, rec.ID, rec.CollectionID) {
		// The tab was closed while saving; the request is stored regardless.
		return nil, errors.NewNotFound("tab", tabID)
	}
	if input.Name != nil {
		m.UpdateTab(tabID, tabs.TabPatch{Name: &rec.Name})
	}
	m.MarkSaved(tabID)
	logging.FromContext(ctx).Debug().
		Str("tab_id", tabID).
		Str("request_id", rec.ID).
		Msg("tab saved as new request")
	return &SaveTabOutput{TabID: tabID, RequestID: rec.ID, Created: true}, nil
}

// nonNilHeaders makes an empty header set explicit so an update clears headers.
func nonNilHeaders(h map[string]string) map[string]string {
	if h == nil {
		return map[string]string{}
	}
	return h
}

// RevertTab discards a tab's edits by reloading its draft from the saved request.
func RevertTab(ctx context.Context, database *sql.DB, m *tabs.Manager, tabID string) (*request.Record, error) {
	tabID, err := requireID("tab_id", tabID)
	if err != nil {
		return nil, err
	}
	tab, ok := m.Tab(tabID)
	if !ok {
		return nil, errors.NewNotFound("tab", tabID)
	}
	if tab.SourceRequestID == "" {
		return nil, errors.NewInvalidRequest("tab has no saved request to revert to")
	}
	rec, err := db.GetRequest(ctx, database, tab.SourceRequestID, false)
	if err != nil {
		return nil, err
	}

	d := rec.Draft()
	m.UpdateDraft(tabID, tabs.DraftPatch{
		Method:          &d.Method,
		URL:             &d.URL,
		Headers:         nonNilHeaders(d.Headers),
		Body:            &d.Body,
		TimeoutMs:       &d.TimeoutMs,
		FollowRedirects: &d.FollowRedirects,
	})
	m.UpdateTab(tabID, tabs.TabPatch{Name: &rec.Name})
	m.MarkSaved(tabID)
	return rec, nil
}
