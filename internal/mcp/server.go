package mcp

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/reqtab/internal/config"
	"github.com/hpungsan/reqtab/internal/executor"
	"github.com/hpungsan/reqtab/internal/ops"
	"github.com/hpungsan/reqtab/internal/tabs"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"tab", "request", "collection", "session"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"tab_list": {
		def:     tabListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabList },
	},
	"tab_show": {
		def:     tabShowToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabShow },
	},
	"tab_open": {
		def:     tabOpenToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabOpen },
	},
	"tab_new": {
		def:     tabNewToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabNew },
	},
	"tab_close": {
		def:     tabCloseToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabClose },
	},
	"tab_switch": {
		def:     tabSwitchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabSwitch },
	},
	"tab_next": {
		def:     tabNextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabNext },
	},
	"tab_prev": {
		def:     tabPrevToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabPrev },
	},
	"tab_duplicate": {
		def:     tabDuplicateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabDuplicate },
	},
	"tab_pin": {
		def:     tabPinToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabPin },
	},
	"tab_move": {
		def:     tabMoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabMove },
	},
	"tab_close_all": {
		def:     tabCloseAllToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.closeMany(ops.CloseModeAll) },
	},
	"tab_close_others": {
		def:     tabCloseOthersToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.closeMany(ops.CloseModeOthers) },
	},
	"tab_close_unpinned": {
		def:     tabCloseUnpinnedToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.closeMany(ops.CloseModeUnpinned) },
	},
	"tab_edit": {
		def:     tabEditToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabEdit },
	},
	"tab_save": {
		def:     tabSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabSave },
	},
	"tab_revert": {
		def:     tabRevertToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabRevert },
	},
	"tab_run": {
		def:     tabRunToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTabRun },
	},
	"request_create": {
		def:     requestCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRequestCreate },
	},
	"request_fetch": {
		def:     requestFetchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRequestFetch },
	},
	"request_list": {
		def:     requestListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRequestList },
	},
	"request_update": {
		def:     requestUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRequestUpdate },
	},
	"request_delete": {
		def:     requestDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRequestDelete },
	},
	"collection_create": {
		def:     collectionCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectionCreate },
	},
	"collection_list": {
		def:     collectionListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCollectionList },
	},
	"session_save": {
		def:     sessionSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionSave },
	},
	"session_clear": {
		def:     sessionClearToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSessionClear },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "tab_close_all" → "tab").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with reqtab tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, m *tabs.Manager, exec *executor.Executor, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"reqtab",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, m, exec)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport. It returns when stdin closes.
func Run(db *sql.DB, cfg *config.Config, m *tabs.Manager, exec *executor.Executor, version string) error {
	s := NewServer(db, cfg, m, exec, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
