package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/reqtab/internal/config"
	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/executor"
	"github.com/hpungsan/reqtab/internal/ops"
	"github.com/hpungsan/reqtab/internal/tabs"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db   *sql.DB
	cfg  *config.Config
	tabs *tabs.Manager
	exec *executor.Executor
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, m *tabs.Manager, exec *executor.Executor) *Handlers {
	return &Handlers{db: db, cfg: cfg, tabs: m, exec: exec}
}

// Request types for each tool

// TabRequest addresses a single tab.
type TabRequest struct {
	TabID string `json:"tab_id"`
}

// TabOpenRequest represents the arguments for tab_open.
type TabOpenRequest struct {
	RequestID  string `json:"request_id"`
	Background bool   `json:"background,omitempty"`
}

// TabNewRequest represents the arguments for tab_new.
type TabNewRequest struct {
	Background bool `json:"background,omitempty"`
}

// TabCloseRequest represents the arguments for tab_close and the bulk close tools.
type TabCloseRequest struct {
	TabID string `json:"tab_id,omitempty"`
	Force bool   `json:"force,omitempty"`
}

// TabSwitchRequest represents the arguments for tab_switch.
type TabSwitchRequest struct {
	TabID    string `json:"tab_id,omitempty"`
	Position int    `json:"position,omitempty"`
}

// TabMoveRequest represents the arguments for tab_move.
type TabMoveRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

// TabEditRequest represents the arguments for tab_edit.
type TabEditRequest struct {
	TabID           string            `json:"tab_id"`
	Name            *string           `json:"name,omitempty"`
	Method          *string           `json:"method,omitempty"`
	URL             *string           `json:"url,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            *string           `json:"body,omitempty"`
	TimeoutMs       *int              `json:"timeout_ms,omitempty"`
	FollowRedirects *bool             `json:"follow_redirects,omitempty"`
}

// TabSaveRequest represents the arguments for tab_save.
type TabSaveRequest struct {
	TabID        string  `json:"tab_id"`
	Name         *string `json:"name,omitempty"`
	CollectionID string  `json:"collection_id,omitempty"`
}

// RequestCreateRequest represents the arguments for request_create.
type RequestCreateRequest struct {
	CollectionID    string            `json:"collection_id,omitempty"`
	Name            string            `json:"name"`
	Method          string            `json:"method,omitempty"`
	URL             string            `json:"url"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            string            `json:"body,omitempty"`
	TimeoutMs       int               `json:"timeout_ms,omitempty"`
	FollowRedirects *bool             `json:"follow_redirects,omitempty"`
}

// RequestFetchRequest represents the arguments for request_fetch.
type RequestFetchRequest struct {
	ID             string `json:"id"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// RequestListRequest represents the arguments for request_list.
type RequestListRequest struct {
	CollectionID   string `json:"collection_id,omitempty"`
	NamePrefix     string `json:"name_prefix,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// RequestUpdateRequest represents the arguments for request_update.
type RequestUpdateRequest struct {
	ID              string            `json:"id"`
	CollectionID    *string           `json:"collection_id,omitempty"`
	Name            *string           `json:"name,omitempty"`
	Method          *string           `json:"method,omitempty"`
	URL             *string           `json:"url,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	Body            *string           `json:"body,omitempty"`
	TimeoutMs       *int              `json:"timeout_ms,omitempty"`
	FollowRedirects *bool             `json:"follow_redirects,omitempty"`
}

// RequestDeleteRequest represents the arguments for request_delete.
type RequestDeleteRequest struct {
	ID string `json:"id"`
}

// CollectionCreateRequest represents the arguments for collection_create.
type CollectionCreateRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Tab handlers

// HandleTabList handles the tab_list tool call.
func (h *Handlers) HandleTabList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.ListTabs(h.tabs, h.cfg.TabNameMaxChars))
}

// HandleTabShow handles the tab_show tool call.
func (h *Handlers) HandleTabShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ShowTab(h.tabs, input.TabID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabOpen handles the tab_open tool call.
func (h *Handlers) HandleTabOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabOpenRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.OpenRequest(ctx, h.db, h.tabs, ops.OpenRequestInput{
		RequestID:  input.RequestID,
		Background: input.Background,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabNew handles the tab_new tool call.
func (h *Handlers) HandleTabNew(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabNewRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.NewTab(h.tabs, input.Background)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabClose handles the tab_close tool call.
func (h *Handlers) HandleTabClose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabCloseRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CloseTab(h.tabs, ops.CloseTabInput{TabID: input.TabID, Force: input.Force})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// closeMany builds the handler for one of the bulk close tools.
func (h *Handlers) closeMany(mode ops.CloseMode) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := decode[TabCloseRequest](req)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}

		result, err := ops.CloseTabs(h.tabs, ops.CloseTabsInput{
			Mode:   mode,
			KeepID: input.TabID,
			Force:  input.Force,
		})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

// HandleTabSwitch handles the tab_switch tool call.
func (h *Handlers) HandleTabSwitch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabSwitchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SwitchTab(h.tabs, ops.SwitchTabInput{TabID: input.TabID, Position: input.Position})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabNext handles the tab_next tool call.
func (h *Handlers) HandleTabNext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.CycleTab(h.tabs, false)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabPrev handles the tab_prev tool call.
func (h *Handlers) HandleTabPrev(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.CycleTab(h.tabs, true)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabDuplicate handles the tab_duplicate tool call.
func (h *Handlers) HandleTabDuplicate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DuplicateTab(h.tabs, input.TabID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabPin handles the tab_pin tool call.
func (h *Handlers) HandleTabPin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.PinTab(h.tabs, input.TabID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabMove handles the tab_move tool call.
func (h *Handlers) HandleTabMove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabMoveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.From == nil || input.To == nil {
		return errorResult(errors.NewInvalidRequest("from and to are required")), nil
	}

	result, err := ops.MoveTab(h.tabs, ops.MoveTabInput{From: *input.From, To: *input.To})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabEdit handles the tab_edit tool call.
func (h *Handlers) HandleTabEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabEditRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.EditTab(h.tabs, ops.EditTabInput{
		TabID:           input.TabID,
		Name:            input.Name,
		Method:          input.Method,
		URL:             input.URL,
		Headers:         input.Headers,
		Body:            input.Body,
		TimeoutMs:       input.TimeoutMs,
		FollowRedirects: input.FollowRedirects,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabSave handles the tab_save tool call.
func (h *Handlers) HandleTabSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SaveTab(ctx, h.db, h.tabs, ops.SaveTabInput{
		TabID:        input.TabID,
		Name:         input.Name,
		CollectionID: input.CollectionID,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabRevert handles the tab_revert tool call.
func (h *Handlers) HandleTabRevert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if _, err := ops.RevertTab(ctx, h.db, h.tabs, input.TabID); err != nil {
		return errorResult(err), nil
	}
	result, err := ops.ShowTab(h.tabs, input.TabID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTabRun handles the tab_run tool call.
func (h *Handlers) HandleTabRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TabRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RunTab(ctx, h.exec, h.tabs, input.TabID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Request handlers

// HandleRequestCreate handles the request_create tool call.
func (h *Handlers) HandleRequestCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RequestCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	timeout := input.TimeoutMs
	if timeout == 0 {
		timeout = h.cfg.DefaultTimeoutMs
	}
	result, err := ops.CreateRequest(ctx, h.db, ops.CreateRequestInput{
		CollectionID:    input.CollectionID,
		Name:            input.Name,
		Method:          input.Method,
		URL:             input.URL,
		Headers:         input.Headers,
		Body:            input.Body,
		TimeoutMs:       timeout,
		FollowRedirects: input.FollowRedirects,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRequestFetch handles the request_fetch tool call.
func (h *Handlers) HandleRequestFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RequestFetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FetchRequest(ctx, h.db, ops.FetchRequestInput{
		ID:             input.ID,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRequestList handles the request_list tool call.
func (h *Handlers) HandleRequestList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RequestListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListRequests(ctx, h.db, ops.ListRequestsInput{
		CollectionID:   input.CollectionID,
		NamePrefix:     input.NamePrefix,
		Limit:          input.Limit,
		Offset:         input.Offset,
		IncludeDeleted: input.IncludeDeleted,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRequestUpdate handles the request_update tool call.
func (h *Handlers) HandleRequestUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RequestUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.UpdateRequest(ctx, h.db, ops.UpdateRequestInput{
		ID:              input.ID,
		CollectionID:    input.CollectionID,
		Name:            input.Name,
		Method:          input.Method,
		URL:             input.URL,
		Headers:         input.Headers,
		Body:            input.Body,
		TimeoutMs:       input.TimeoutMs,
		FollowRedirects: input.FollowRedirects,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRequestDelete handles the request_delete tool call.
func (h *Handlers) HandleRequestDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RequestDeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteRequest(ctx, h.db, ops.DeleteRequestInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Collection handlers

// HandleCollectionCreate handles the collection_create tool call.
func (h *Handlers) HandleCollectionCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CollectionCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CreateCollection(ctx, h.db, ops.CreateCollectionInput{
		Name:        input.Name,
		Description: input.Description,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCollectionList handles the collection_list tool call.
func (h *Handlers) HandleCollectionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListCollections(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Session handlers

// SessionOutput reports the outcome of a session tool.
type SessionOutput struct {
	Saved   bool `json:"saved,omitempty"`
	Cleared bool `json:"cleared,omitempty"`
	Tabs    int  `json:"tabs"`
}

// HandleSessionSave handles the session_save tool call.
func (h *Handlers) HandleSessionSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.tabs.SaveSession(ctx); err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	return successResult(SessionOutput{Saved: true, Tabs: h.tabs.Len()})
}

// HandleSessionClear handles the session_clear tool call.
func (h *Handlers) HandleSessionClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.tabs.ClearSession(ctx); err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	return successResult(SessionOutput{Cleared: true, Tabs: h.tabs.Len()})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if rErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    rErr.Code,
			"message": rErr.Message,
			"status":  rErr.Status,
		}
		if rErr.Code != errors.ErrInternal && rErr.Details != nil {
			errorObj["details"] = rErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
