// Package rbac holds the static role and permission tables consulted by the
// authorization middleware. Tables are built once at process start and never
// mutated afterwards; every lookup against an unknown role, resource, or
// action denies.
package rbac

import (
	"net/http"
	"sort"
)

// Role is one of the closed set of user roles.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

// Permission is a "resource:action" token granted to roles.
type Permission string

const (
	PermContractsRead   Permission = "contracts:read"
	PermContractsCreate Permission = "contracts:create"
	PermContractsUpdate Permission = "contracts:update"
	PermContractsDelete Permission = "contracts:delete"

	PermUsersRead   Permission = "users:read"
	PermUsersCreate Permission = "users:create"
	PermUsersUpdate Permission = "users:update"
	PermUsersDelete Permission = "users:delete"

	PermAuditLogsRead Permission = "audit-logs:read"
)

// Action is the CRUD verb an HTTP method maps onto.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ActionForMethod maps an HTTP method to its CRUD action.
// Methods outside the closed set report ok=false; callers respond 405.
func ActionForMethod(method string) (Action, bool) {
	switch method {
	case http.MethodGet:
		return ActionRead, true
	case http.MethodPost:
		return ActionCreate, true
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate, true
	case http.MethodDelete:
		return ActionDelete, true
	default:
		return "", false
	}
}

// ActionMap assigns the permission required for each action on a resource.
// An action bound to the empty Permission is categorically forbidden: no
// role, including admin, may perform it.
type ActionMap map[Action]Permission

// allPermissions is the full permission universe. The admin grant set is the
// union of this list so new permissions cannot drift out of the admin role.
var allPermissions = []Permission{
	PermContractsRead, PermContractsCreate, PermContractsUpdate, PermContractsDelete,
	PermUsersRead, PermUsersCreate, PermUsersUpdate, PermUsersDelete,
	PermAuditLogsRead,
}

// Registry answers role, permission, and resource-access questions from
// immutable tables. The zero value is unusable; construct with NewRegistry.
type Registry struct {
	levels    map[Role]int
	grants    map[Role]map[Permission]struct{}
	resources map[string]ActionMap
}

// NewRegistry builds the default tables: three roles (viewer < user < admin),
// explicit grants for viewer and user, admin as the union of all permissions,
// and the resource-action map for the dashboard resources.
func NewRegistry() *Registry {
	grants := map[Role]map[Permission]struct{}{
		RoleViewer: permSet(
			PermContractsRead,
		),
		RoleUser: permSet(
			PermContractsRead,
			PermContractsCreate,
			PermContractsUpdate,
		),
		RoleAdmin: permSet(allPermissions...),
	}

	resources := map[string]ActionMap{
		"contracts": {
			ActionRead:   PermContractsRead,
			ActionCreate: PermContractsCreate,
			ActionUpdate: PermContractsUpdate,
			ActionDelete: PermContractsDelete,
		},
		// Metrics are a derived view over contracts data, so access is
		// governed by the contracts permissions.
		"contract-metrics": {
			ActionRead:   PermContractsRead,
			ActionCreate: PermContractsCreate,
			ActionUpdate: PermContractsUpdate,
			ActionDelete: PermContractsDelete,
		},
		"users": {
			ActionRead:   PermUsersRead,
			ActionCreate: PermUsersCreate,
			ActionUpdate: PermUsersUpdate,
			ActionDelete: PermUsersDelete,
		},
		// Audit logs are immutable: reads require an explicit grant and
		// every mutation is forbidden for all roles.
		"audit-logs": {
			ActionRead:   PermAuditLogsRead,
			ActionCreate: "",
			ActionUpdate: "",
			ActionDelete: "",
		},
	}

	return &Registry{
		levels: map[Role]int{
			RoleViewer: 1,
			RoleUser:   2,
			RoleAdmin:  3,
		},
		grants:    grants,
		resources: resources,
	}
}

// IsValidRole reports whether role is part of the closed enumeration.
func (r *Registry) IsValidRole(role Role) bool {
	_, ok := r.levels[role]
	return ok
}

// HasPermission reports whether role is known and holds perm.
// Unknown roles hold nothing.
func (r *Registry) HasPermission(role Role, perm Permission) bool {
	set, ok := r.grants[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// ResourcePermission resolves the permission required to perform action on
// resource. ok=false means the pair is unmapped or explicitly forbidden;
// callers must deny.
func (r *Registry) ResourcePermission(resource string, action Action) (Permission, bool) {
	actions, ok := r.resources[resource]
	if !ok {
		return "", false
	}
	perm, ok := actions[action]
	if !ok || perm == "" {
		return "", false
	}
	return perm, true
}

// RoleLevel returns the hierarchy rank of role. Unknown roles rank 0, below
// every real role.
func (r *Registry) RoleLevel(role Role) int {
	return r.levels[role]
}

// HasRoleLevel reports whether userRole ranks at least as high as requiredRole.
func (r *Registry) HasRoleLevel(userRole, requiredRole Role) bool {
	required := r.RoleLevel(requiredRole)
	if required == 0 {
		// An unknown requirement can never be satisfied.
		return false
	}
	return r.RoleLevel(userRole) >= required
}

// Roles returns the known roles ordered by ascending level.
func (r *Registry) Roles() []Role {
	roles := make([]Role, 0, len(r.levels))
	for role := range r.levels {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool {
		return r.levels[roles[i]] < r.levels[roles[j]]
	})
	return roles
}

// Grants returns the sorted permission set of role, empty for unknown roles.
// Used for diagnostics output only; authorization goes through HasPermission.
func (r *Registry) Grants(role Role) []Permission {
	set, ok := r.grants[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for perm := range set {
		perms = append(perms, perm)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

func permSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, perm := range perms {
		set[perm] = struct{}{}
	}
	return set
}
