package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tab tools

var tabListToolDef = mcp.NewTool("tab_list",
	mcp.WithDescription("List open tabs in order with the active tab, unsaved count and capacity."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var tabShowToolDef = mcp.NewTool("tab_show",
	mcp.WithDescription("Show one tab including its draft and last result."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("tab_id", mcp.Required(), mcp.Description("Tab id")),
)

var tabOpenToolDef = mcp.NewTool("tab_open",
	mcp.WithDescription("Open a saved request in a tab. Reuses the tab already open on it. "+
		"When the tab limit is reached the least recently used unpinned tab is closed."),
	mcp.WithString("request_id", mcp.Required(), mcp.Description("Saved request id")),
	mcp.WithBoolean("background", mcp.Description("Open without activating the tab")),
)

var tabNewToolDef = mcp.NewTool("tab_new",
	mcp.WithDescription("Open a blank tab (GET, no URL)."),
	mcp.WithBoolean("background", mcp.Description("Open without activating the tab")),
)

var tabCloseToolDef = mcp.NewTool("tab_close",
	mcp.WithDescription("Close a tab. Tabs with unsaved changes are refused unless force is set."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("tab_id", mcp.Required(), mcp.Description("Tab id")),
	mcp.WithBoolean("force", mcp.Description("Discard unsaved changes")),
)

var tabSwitchToolDef = mcp.NewTool("tab_switch",
	mcp.WithDescription("Activate a tab by id or by 1-indexed position (-1 for the last tab)."),
	mcp.WithString("tab_id", mcp.Description("Tab id")),
	mcp.WithNumber("position", mcp.Description("1-indexed position, or -1 for the last tab")),
)

var tabNextToolDef = mcp.NewTool("tab_next",
	mcp.WithDescription("Activate the next tab, wrapping to the first."),
)

var tabPrevToolDef = mcp.NewTool("tab_prev",
	mcp.WithDescription("Activate the previous tab, wrapping to the last."),
)

var tabDuplicateToolDef = mcp.NewTool("tab_duplicate",
	mcp.WithDescription("Copy a tab's draft into a new unsaved tab next to it. The copy is not linked to a saved request."),
	mcp.WithString("tab_id", mcp.Required(), mcp.Description("Tab id")),
)

var tabPinToolDef = mcp.NewTool("tab_pin",
	mcp.WithDescription("Toggle a tab's pin. Pinned tabs are never closed to make room."),
	mcp.WithString("tab_id", mcp.Required(), mcp.Description("Tab id")),
)

var tabMoveToolDef = mcp.NewTool("tab_move",
	mcp.WithDescription("Move the tab at position from to position to (0-indexed)."),
	mcp.WithNumber("from", mcp.Required(), mcp.Description("Current 0-indexed position")),
	mcp.WithNumber("to", mcp.Required(), mcp.Description("Target 0-indexed position")),
)

var tabCloseAllToolDef = mcp.NewTool("tab_close_all",
	mcp.WithDescription("Close every tab."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithBoolean("force", mcp.Description("Discard unsaved changes")),
)

var tabCloseOthersToolDef = mcp.NewTool("tab_close_others",
	mcp.WithDescription("Close every tab except one, which becomes active. Pinned tabs are closed too."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("tab_id", mcp.Required(), mcp.Description("Tab to keep")),
	mcp.WithBoolean("force", mcp.Description("Discard unsaved changes")),
)

var tabCloseUnpinnedToolDef = mcp.NewTool("tab_close_unpinned",
	mcp.WithDescription("Close every tab that is not pinned."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithBoolean("force", mcp.Description("Discard unsaved changes")),
)

var tabEditToolDef = mcp.NewTool("tab_edit",
	mcp.WithDescription("Edit a tab's name or request draft. Draft edits mark the tab unsaved."),
	mcp.WithString("tab_id", mcp.Required(), mcp.Description("Tab id")),
	mcp.WithString("name", mcp.Description("Tab name")),
	mcp.WithString("method", mcp.Description("HTTP method")),
	mcp.WithString("url", mcp.Description("Request URL")),
	mcp.WithObject("headers", mcp.Description("Replaces all headers"), mcp.AdditionalProperties(map[string]any{"type": "string"})),
	mcp.WithString("body", mcp.Description("Request body")),
	mcp.WithNumber("timeout_ms", mcp.Description("Timeout in milliseconds (0 for the default)")),
	mcp.WithBoolean("follow_redirects", mcp.Description("Follow redirects")),
)

var tabSaveToolDef = mcp.NewTool("tab_save",
	mcp.WithDescription("Save a tab's draft. Overwrites the tab's saved request, or creates one for a new tab."),
	mcp.WithString("tab_id", mcp.Required(), mcp.Description("Tab id")),
	mcp.WithString("name", mcp.Description("Name for a newly created request (default: tab name)")),
	mcp.WithString("collection_id", mcp.Description("Collection for a newly created request")),
)

var tabRevertToolDef = mcp.NewTool("tab_revert",
	mcp.WithDescription("Discard a tab's edits by reloading its saved request."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("tab_id", mcp.Required(), mcp.Description("Tab id")),
)

var tabRunToolDef = mcp.NewTool("tab_run",
	mcp.WithDescription("Send a tab's request and store the response (or failure) on the tab."),
	mcp.WithOpenWorldHintAnnotation(true),
	mcp.WithString("tab_id", mcp.Required(), mcp.Description("Tab id")),
)

// Request tools

var requestCreateToolDef = mcp.NewTool("request_create",
	mcp.WithDescription("Save a new request."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Request name")),
	mcp.WithString("url", mcp.Required(), mcp.Description("Request URL")),
	mcp.WithString("method", mcp.Description("HTTP method (default: GET)")),
	mcp.WithObject("headers", mcp.Description("Request headers"), mcp.AdditionalProperties(map[string]any{"type": "string"})),
	mcp.WithString("body", mcp.Description("Request body")),
	mcp.WithNumber("timeout_ms", mcp.Description("Timeout in milliseconds")),
	mcp.WithBoolean("follow_redirects", mcp.Description("Follow redirects (default: true)")),
	mcp.WithString("collection_id", mcp.Description("Collection id")),
)

var requestFetchToolDef = mcp.NewTool("request_fetch",
	mcp.WithDescription("Fetch a saved request by id."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Request id")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include deleted requests")),
)

var requestListToolDef = mcp.NewTool("request_list",
	mcp.WithDescription("List saved requests, most recently updated first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("collection_id", mcp.Description("Only requests in this collection")),
	mcp.WithString("name_prefix", mcp.Description("Case-insensitive name prefix")),
	mcp.WithNumber("limit", mcp.Description("Max results (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Results to skip")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include deleted requests")),
)

var requestUpdateToolDef = mcp.NewTool("request_update",
	mcp.WithDescription("Update a saved request. Omitted fields are unchanged. Open tabs are not modified."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Request id")),
	mcp.WithString("name", mcp.Description("Request name")),
	mcp.WithString("method", mcp.Description("HTTP method")),
	mcp.WithString("url", mcp.Description("Request URL")),
	mcp.WithObject("headers", mcp.Description("Replaces all headers"), mcp.AdditionalProperties(map[string]any{"type": "string"})),
	mcp.WithString("body", mcp.Description("Request body")),
	mcp.WithNumber("timeout_ms", mcp.Description("Timeout in milliseconds")),
	mcp.WithBoolean("follow_redirects", mcp.Description("Follow redirects")),
	mcp.WithString("collection_id", mcp.Description("Collection id (empty string detaches)")),
)

var requestDeleteToolDef = mcp.NewTool("request_delete",
	mcp.WithDescription("Delete a saved request. Tabs open on it keep their draft."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Request id")),
)

// Collection tools

var collectionCreateToolDef = mcp.NewTool("collection_create",
	mcp.WithDescription("Create a collection. Names are unique (case-insensitive)."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Collection name")),
	mcp.WithString("description", mcp.Description("Description")),
)

var collectionListToolDef = mcp.NewTool("collection_list",
	mcp.WithDescription("List collections with their request counts."),
	mcp.WithReadOnlyHintAnnotation(true),
)

// Session tools

var sessionSaveToolDef = mcp.NewTool("session_save",
	mcp.WithDescription("Write the tab session snapshot now."),
)

var sessionClearToolDef = mcp.NewTool("session_clear",
	mcp.WithDescription("Delete the stored tab session snapshot. Open tabs are not closed."),
	mcp.WithDestructiveHintAnnotation(true),
)
