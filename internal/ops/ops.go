// Package ops implements the request store operations shared by the CLI and
// the MCP server: CRUD for saved requests and collections, and the flows that
// move requests between the store and open tabs.
package ops

import (
	"strings"

	"github.com/hpungsan/reqtab/internal/errors"
	"github.com/hpungsan/reqtab/internal/request"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// clampPage applies limit defaults and bounds.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return limit, max(offset, 0)
}

// cleanOptionalString trims an optional string; empty becomes nil.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// requireID trims id and rejects empty values.
func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest(field + " is required")
	}
	return id, nil
}

// validateMethod normalizes method and rejects unknown verbs.
func validateMethod(method string) (string, error) {
	m := request.NormalizeMethod(method)
	if !request.ValidMethod(m) {
		return "", errors.NewInvalidRequest("unsupported method: " + m)
	}
	return m, nil
}

// cleanHeaders trims header names and drops entries with an empty name.
func cleanHeaders(h map[string]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
