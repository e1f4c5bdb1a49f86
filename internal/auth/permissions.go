package auth

import (
	"sort"
	"strings"
	"sync"

	"tradedesk/internal/models"
)

// Permission modules correspond to the record types an employee works on.
const (
	ModuleEmployees = "employees"
	ModuleClients   = "clients"
	ModuleVendors   = "vendors"
	ModuleRates     = "rates"
	ModuleQuotes    = "quotes"
	ModuleOffers    = "offers"
	ModuleOrders    = "orders"
	ModulePurchases = "purchases"
)

// Permission actions.
const (
	PermActionView    = "view"
	PermActionCreate  = "create"
	PermActionEdit    = "edit"
	PermActionDelete  = "delete"
	PermActionConvert = "convert"
)

var AllModules = []string{
	ModuleEmployees, ModuleClients, ModuleVendors, ModuleRates,
	ModuleQuotes, ModuleOffers, ModuleOrders, ModulePurchases,
}

var AllActions = []string{PermActionView, PermActionCreate, PermActionEdit, PermActionDelete, PermActionConvert}

// PermissionEntry represents a single permission assignment.
type PermissionEntry struct {
	Role   models.Role `json:"role"`
	Module string      `json:"module"`
	Action string      `json:"action"`
}

// PermCache holds role→permissions for middleware lookups.
type PermCache struct {
	sync.RWMutex
	data map[models.Role]map[string]map[string]bool // role → module → action → true
}

// NewPermCache returns a cache loaded with the default role permissions.
func NewPermCache() *PermCache {
	pc := &PermCache{data: make(map[models.Role]map[string]map[string]bool)}
	for _, p := range DefaultPermissions() {
		pc.add(p)
	}
	return pc
}

func (pc *PermCache) add(p PermissionEntry) {
	if pc.data[p.Role] == nil {
		pc.data[p.Role] = make(map[string]map[string]bool)
	}
	if pc.data[p.Role][p.Module] == nil {
		pc.data[p.Role][p.Module] = make(map[string]bool)
	}
	pc.data[p.Role][p.Module][p.Action] = true
}

// DefaultPermissions: admin does everything, operator everything except
// employee management, readonly views. Disabled gets nothing.
func DefaultPermissions() []PermissionEntry {
	var perms []PermissionEntry
	for _, mod := range AllModules {
		for _, act := range AllActions {
			perms = append(perms, PermissionEntry{Role: models.RoleAdmin, Module: mod, Action: act})
			if mod != ModuleEmployees {
				perms = append(perms, PermissionEntry{Role: models.RoleOperator, Module: mod, Action: act})
			}
		}
		perms = append(perms, PermissionEntry{Role: models.RoleReadOnly, Module: mod, Action: PermActionView})
	}
	return perms
}

// HasPermission checks whether a role has permission for module+action.
func (pc *PermCache) HasPermission(role models.Role, module, action string) bool {
	pc.RLock()
	defer pc.RUnlock()
	return pc.data[role][module][action]
}

// GetRolePermissions returns all permissions for a role, sorted.
func (pc *PermCache) GetRolePermissions(role models.Role) []PermissionEntry {
	pc.RLock()
	defer pc.RUnlock()
	var perms []PermissionEntry
	for mod, actions := range pc.data[role] {
		for act := range actions {
			perms = append(perms, PermissionEntry{Role: role, Module: mod, Action: act})
		}
	}
	sort.Slice(perms, func(i, j int) bool {
		if perms[i].Module != perms[j].Module {
			return perms[i].Module < perms[j].Module
		}
		return perms[i].Action < perms[j].Action
	})
	return perms
}

// SetRolePermissions replaces all permissions for a role.
func (pc *PermCache) SetRolePermissions(role models.Role, perms []PermissionEntry) {
	pc.Lock()
	defer pc.Unlock()
	delete(pc.data, role)
	for _, p := range perms {
		p.Role = role
		pc.add(p)
	}
}

// MapAPIPathToPermission maps an API path (without the /api/v1/ prefix)
// and method to (module, action). Empty strings mean no check applies.
func MapAPIPathToPermission(apiPath, method string) (module, action string) {
	parts := strings.Split(strings.Trim(apiPath, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}

	switch method {
	case "GET":
		action = PermActionView
	case "POST":
		action = PermActionCreate
	case "PUT", "PATCH":
		action = PermActionEdit
	case "DELETE":
		action = PermActionDelete
	}
	if len(parts) >= 2 {
		switch parts[1] {
		case "convert":
			action = PermActionConvert
		case "delete":
			action = PermActionDelete
		case "copy":
			action = PermActionCreate
		}
	}

	switch parts[0] {
	case "employees":
		module = ModuleEmployees
	case "clients":
		module = ModuleClients
	case "vendors":
		module = ModuleVendors
	case "rates":
		module = ModuleRates
	case "quotes":
		module = ModuleQuotes
	case "offers":
		module = ModuleOffers
	case "orders":
		module = ModuleOrders
	case "purchases":
		module = ModulePurchases
	default:
		return "", ""
	}
	return module, action
}
