package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/executor"
	"github.com/hpungsan/reqtab/internal/request"
	"github.com/hpungsan/reqtab/internal/tabs"
)

// TabSummary is the compact listing form of a tab.
type TabSummary struct {
	ID                string `json:"id"`
	Position          int    `json:"position"` // 1-indexed
	Name              string `json:"name"`
	Method            string `json:"method"`
	URL               string `json:"url"`
	SourceRequestID   string `json:"source_request_id,omitempty"`
	IsActive          bool   `json:"is_active"`
	IsPinned          bool   `json:"is_pinned"`
	HasUnsavedChanges bool   `json:"has_unsaved_changes"`
	IsExecuting       bool   `json:"is_executing"`
	Result            string `json:"result,omitempty"`
}

// ListTabsOutput contains the result of the ListTabs operation.
type ListTabsOutput struct {
	Tabs        []TabSummary `json:"tabs"`
	ActiveTabID *string      `json:"active_tab_id"`
	Count       int          `json:"count"`
	Capacity    int          `json:"capacity"`
	Unsaved     int          `json:"unsaved"`
}

// ListTabs summarizes the open tabs in order. Names are truncated to nameMax runes.
func ListTabs(m *tabs.Manager, nameMax int) *ListTabsOutput {
	all := m.Tabs()
	out := &ListTabsOutput{
		Tabs:     make([]TabSummary, 0, len(all)),
		Count:    len(all),
		Capacity: m.Capacity(),
	}
	for i, t := range all {
		s := TabSummary{
			ID:                t.ID,
			Position:          i + 1,
			Name:              t.DisplayName(nameMax),
			Method:            t.Draft.Method,
			URL:               t.Draft.URL,
			SourceRequestID:   t.SourceRequestID,
			IsActive:          t.IsActive,
			IsPinned:          t.IsPinned,
			HasUnsavedChanges: t.HasUnsavedChanges,
			IsExecuting:       t.IsExecuting,
		}
		if t.LastResult != nil {
			s.Result = t.LastResult.Summary()
		}
		if t.HasUnsavedChanges {
			out.Unsaved++
		}
		if t.IsActive {
			id := t.ID
			out.ActiveTabID = &id
		}
		out.Tabs = append(out.Tabs, s)
	}
	return out
}

// ShowTab returns a copy of one tab.
func ShowTab(m *tabs.Manager, tabID string) (*tabs.Tab, error) {
	id, err := requireID("tab_id", tabID)
	if err != nil {
		return nil, err
	}
	t, ok := m.Tab(id)
	if !ok {
		return nil, errors.NewNotFound("tab", id)
	}
	return &t, nil
}

// ActiveOutput reports which tab is active after a tab operation.
type ActiveOutput struct {
	TabID       string  `json:"tab_id,omitempty"`
	ActiveTabID *string `json:"active_tab_id"`
}

func activeOutput(m *tabs.Manager, tabID string) *ActiveOutput {
	out := &ActiveOutput{TabID: tabID}
	if id := m.ActiveID(); id != "" {
		out.ActiveTabID = &id
	}
	return out
}

// NewTab opens a blank tab.
func NewTab(m *tabs.Manager, background bool) (*ActiveOutput, error) {
	id := m.OpenBlankTab(!background)
	if id == "" {
		return nil, errors.NewCapacityExhausted(m.Capacity())
	}
	return activeOutput(m, id), nil
}

// CloseTabInput contains parameters for the CloseTab operation.
type CloseTabInput struct {
	TabID string
	Force bool // discard unsaved edits
}

// CloseTab closes one tab. Without Force a tab with unsaved edits is refused.
func CloseTab(m *tabs.Manager, input CloseTabInput) (*ActiveOutput, error) {
	id, err := requireID("tab_id", input.TabID)
	if err != nil {
		return nil, err
	}
	t, ok := m.Tab(id)
	if !ok {
		return nil, errors.NewNotFound("tab", id)
	}
	if t.HasUnsavedChanges && !input.Force {
		return nil, errors.NewUnsavedChanges(id)
	}
	m.CloseTab(id)
	return activeOutput(m, id), nil
}

// CloseMode selects the tabs a bulk close removes.
type CloseMode string

const (
	CloseModeAll      CloseMode = "all"
	CloseModeOthers   CloseMode = "others"
	CloseModeUnpinned CloseMode = "unpinned"
)

// CloseTabsInput contains parameters for the CloseTabs operation.
type CloseTabsInput struct {
	Mode   CloseMode
	KeepID string // required for CloseModeOthers
	Force  bool
}

// CloseTabsOutput contains the result of the CloseTabs operation.
type CloseTabsOutput struct {
	Closed      int     `json:"closed"`
	ActiveTabID *string `json:"active_tab_id"`
}

// CloseTabs closes a group of tabs. Without Force nothing is closed if any of the
// affected tabs has unsaved edits.
func CloseTabs(m *tabs.Manager, input CloseTabsInput) (*CloseTabsOutput, error) {
	var affected func(t tabs.Tab) bool
	switch input.Mode {
	case CloseModeAll:
		affected = func(tabs.Tab) bool { return true }
	case CloseModeOthers:
		keep, err := requireID("tab_id", input.KeepID)
		if err != nil {
			return nil, err
		}
		if _, ok := m.Tab(keep); !ok {
			return nil, errors.NewNotFound("tab", keep)
		}
		input.KeepID = keep
		affected = func(t tabs.Tab) bool { return t.ID != keep }
	case CloseModeUnpinned:
		affected = func(t tabs.Tab) bool { return !t.IsPinned }
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: all, others, unpinned")
	}

	if !input.Force {
		for _, t := range m.UnsavedTabs() {
			if affected(t) {
				return nil, errors.NewUnsavedChanges(t.ID)
			}
		}
	}

	var n int
	switch input.Mode {
	case CloseModeAll:
		n = m.CloseAll()
	case CloseModeOthers:
		n = m.CloseOthers(input.KeepID)
	case CloseModeUnpinned:
		n = m.CloseUnpinned()
	}

	out := &CloseTabsOutput{Closed: n}
	if id := m.ActiveID(); id != "" {
		out.ActiveTabID = &id
	}
	return out, nil
}

// SwitchTabInput addresses the tab to activate by id or by 1-indexed position.
type SwitchTabInput struct {
	TabID    string
	Position int
}

// SwitchTab activates a tab.
func SwitchTab(m *tabs.Manager, input SwitchTabInput) (*ActiveOutput, error) {
	id := strings.TrimSpace(input.TabID)
	switch {
	case id != "" && input.Position != 0:
		return nil, errors.NewInvalidRequest("specify either tab_id or position, not both")
	case id != "":
		if !m.SwitchTab(id) {
			return nil, errors.NewNotFound("tab", id)
		}
	case input.Position == -1:
		if !m.SwitchToLast() {
			return nil, errors.NewInvalidRequest("no tabs are open")
		}
	case input.Position > 0:
		if !m.SwitchToPosition(input.Position) {
			return nil, errors.NewInvalidRequest("position out of range")
		}
	default:
		return nil, errors.NewInvalidRequest("tab_id or position is required")
	}
	return activeOutput(m, m.ActiveID()), nil
}

// CycleTab activates the next tab, or the previous one when backwards is set.
func CycleTab(m *tabs.Manager, backwards bool) (*ActiveOutput, error) {
	var ok bool
	if backwards {
		ok = m.PrevTab()
	} else {
		ok = m.NextTab()
	}
	if !ok {
		return nil, errors.NewInvalidRequest("no tabs are open")
	}
	return activeOutput(m, m.ActiveID()), nil
}

// DuplicateTab copies a tab next to the original without activating the copy.
// Duplicating never evicts, so a full session is reported as capacity exhausted.
func DuplicateTab(m *tabs.Manager, tabID string) (*ActiveOutput, error) {
	id, err := requireID("tab_id", tabID)
	if err != nil {
		return nil, err
	}
	if _, ok := m.Tab(id); !ok {
		return nil, errors.NewNotFound("tab", id)
	}
	dup := m.DuplicateTab(id)
	if dup == "" {
		return nil, errors.NewCapacityExhausted(m.Capacity())
	}
	return activeOutput(m, dup), nil
}

// PinTabOutput contains the result of the PinTab operation.
type PinTabOutput struct {
	TabID    string `json:"tab_id"`
	IsPinned bool   `json:"is_pinned"`
}

// PinTab toggles a tab's pinned flag.
func PinTab(m *tabs.Manager, tabID string) (*PinTabOutput, error) {
	id, err := requireID("tab_id", tabID)
	if err != nil {
		return nil, err
	}
	if !m.TogglePin(id) {
		return nil, errors.NewNotFound("tab", id)
	}
	t, _ := m.Tab(id)
	return &PinTabOutput{TabID: id, IsPinned: t.IsPinned}, nil
}

// MoveTabInput uses 0-indexed positions.
type MoveTabInput struct {
	From int
	To   int
}

// MoveTab moves the tab at From to To.
func MoveTab(m *tabs.Manager, input MoveTabInput) (*ListTabsOutput, error) {
	if !m.Reorder(input.From, input.To) {
		return nil, errors.NewInvalidRequest("from and to must be between 0 and the number of tabs minus one")
	}
	return ListTabs(m, 0), nil
}

// EditTabInput contains parameters for the EditTab operation.
// Nil fields are left unchanged; a non-nil Headers map replaces all headers.
type EditTabInput struct {
	TabID           string
	Name            *string
	Method          *string
	URL             *string
	Headers         map[string]string
	Body            *string
	TimeoutMs       *int
	FollowRedirects *bool
}

// EditTab changes a tab's name or draft. Draft edits mark the tab unsaved.
func EditTab(m *tabs.Manager, input EditTabInput) (*tabs.Tab, error) {
	id, err := requireID("tab_id", input.TabID)
	if err != nil {
		return nil, err
	}
	if _, ok := m.Tab(id); !ok {
		return nil, errors.NewNotFound("tab", id)
	}

	patch := tabs.DraftPatch{
		URL:             input.URL,
		Body:            input.Body,
		FollowRedirects: input.FollowRedirects,
	}
	if input.Method != nil {
		method, err := validateMethod(*input.Method)
		if err != nil {
			return nil, err
		}
		patch.Method = &method
	}
	if input.TimeoutMs != nil {
		if *input.TimeoutMs < 0 {
			return nil, errors.NewInvalidRequest("timeout_ms must not be negative")
		}
		patch.TimeoutMs = input.TimeoutMs
	}
	if input.Headers != nil {
		patch.Headers = nonNilHeaders(cleanHeaders(input.Headers))
	}

	var name *string
	if input.Name != nil {
		cleaned := request.CleanName(*input.Name)
		if cleaned == "" {
			return nil, errors.NewInvalidRequest("name must not be empty")
		}
		name = &cleaned
	}

	if name == nil && patch.IsEmpty() {
		return nil, errors.NewInvalidRequest("nothing to edit")
	}
	if !patch.IsEmpty() {
		m.UpdateDraft(id, patch)
	}
	if name != nil {
		m.UpdateTab(id, tabs.TabPatch{Name: name})
	}
	return ShowTab(m, id)
}

// RunTabOutput contains the result of the RunTab operation. Exactly one of
// Response and Failure is set.
type RunTabOutput struct {
	TabID    string            `json:"tab_id"`
	Summary  string            `json:"summary"`
	Response *request.Response `json:"response,omitempty"`
	Failure  *request.Failure  `json:"failure,omitempty"`
}

// RunTab executes a tab's draft and records the outcome on the tab. A failed
// exchange is a successful operation carrying a Failure.
func RunTab(ctx context.Context, exec *executor.Executor, m *tabs.Manager, tabID string) (*RunTabOutput, error) {
	id, err := requireID("tab_id", tabID)
	if err != nil {
		return nil, err
	}
	result, err := exec.Run(ctx, m, id)
	if err != nil {
		return nil, err
	}

	out := &RunTabOutput{TabID: id, Summary: result.Summary()}
	switch r := result.(type) {
	case *request.Response:
		out.Response = r
	case *request.Failure:
		out.Failure = r
	}
	return out, nil
}
