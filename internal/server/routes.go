package server

import (
	"net/http"
	"strings"

	"tradedesk/internal/response"
)

// routeAPI dispatches /api/v1/ requests. The entity is always the first
// path segment and matches the store's record type names.
func (a *App) routeAPI(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/"), "/")
	parts := strings.Split(path, "/")
	entity := parts[0]

	switch {
	// Stage conversions
	case len(parts) == 2 && parts[1] == "convert" && r.Method == "POST":
		a.handleConvert(w, r, entity)

	// Batch operations
	case path == "quotes/copy" && r.Method == "POST":
		a.handleCopyQuotes(w, r)
	case len(parts) == 2 && parts[1] == "delete" && r.Method == "POST":
		a.handleBatchDelete(w, r, entity)

	case entity == "employees" && len(parts) == 3 && parts[2] == "password" && r.Method == "POST":
		a.handleSetPassword(w, r, parts[1])

	// Rates
	case entity == "rates" && len(parts) == 2 && r.Method == "GET":
		a.handleGetRate(w, r, parts[1])

	// Records
	case len(parts) == 1 && r.Method == "POST":
		a.handleCreate(w, r, entity)
	case len(parts) == 2 && r.Method == "GET":
		a.handleGet(w, r, entity, parts[1])
	case len(parts) == 3 && parts[2] == "audit" && r.Method == "GET":
		a.handleAudit(w, r, entity, parts[1])
	case len(parts) == 2 && (r.Method == "PATCH" || r.Method == "PUT"):
		a.handleUpdate(w, r, entity, parts[1])
	case len(parts) == 2 && r.Method == "DELETE":
		a.handleDelete(w, r, entity, parts[1])

	default:
		response.Err(w, "not found", 404)
	}
}
