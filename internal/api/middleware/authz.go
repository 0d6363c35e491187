package middleware

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/vantagehq/vantage/internal/api/presenter"
	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/ownership"
	"github.com/vantagehq/vantage/internal/rbac"
)

// Gate is one authorization middleware layer.
type Gate func(http.Handler) http.Handler

// OwnershipFunc reports whether the requester owns the target resource.
type OwnershipFunc func(r *http.Request) (bool, error)

// Authorizer builds gates over the role registry. Every gate checks for
// an authenticated identity first and answers 401 before any role logic
// runs; denials are 403 with the missing requirement echoed in the body.
type Authorizer struct {
	registry *rbac.Registry
}

func NewAuthorizer(registry *rbac.Registry) *Authorizer {
	return &Authorizer{registry: registry}
}

func (a *Authorizer) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		presenter.Error(w, r, "Authentication required", http.StatusUnauthorized)
		return auth.Identity{}, false
	}
	return identity, true
}

// RequireRole passes only identities whose role is in the allowed set.
func (a *Authorizer) RequireRole(allowed ...rbac.Role) Gate {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := a.identity(w, r)
			if !ok {
				return
			}
			if a.registry.IsValidRole(identity.Role) {
				for _, role := range allowed {
					if identity.Role == role {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			presenter.Denied(w, r, "Insufficient role", requiredRoles(allowed))
		})
	}
}

// RequirePermission passes only roles holding every listed permission.
func (a *Authorizer) RequirePermission(required ...rbac.Permission) Gate {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := a.identity(w, r)
			if !ok {
				return
			}
			var missing []rbac.Permission
			for _, perm := range required {
				if !a.registry.HasPermission(identity.Role, perm) {
					missing = append(missing, perm)
				}
			}
			if len(missing) > 0 {
				presenter.Denied(w, r, "Missing required permissions", requiredPermissions(missing))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission passes roles holding at least one of the listed
// permissions.
func (a *Authorizer) RequireAnyPermission(required ...rbac.Permission) Gate {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := a.identity(w, r)
			if !ok {
				return
			}
			for _, perm := range required {
				if a.registry.HasPermission(identity.Role, perm) {
					next.ServeHTTP(w, r)
					return
				}
			}
			presenter.Denied(w, r, "Missing required permission", requiredPermissions(required))
		})
	}
}

// RequireRoleLevel passes identities ranked at or above the minimum role.
func (a *Authorizer) RequireRoleLevel(minimum rbac.Role) Gate {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := a.identity(w, r)
			if !ok {
				return
			}
			if !a.registry.HasRoleLevel(identity.Role, minimum) {
				presenter.Denied(w, r, "Insufficient role level", string(minimum))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireResourceAccess maps the HTTP verb to a CRUD action and checks
// the permission the resource-action table demands for it. Unknown
// resources and unmapped actions deny; an unmappable verb is a 405.
func (a *Authorizer) RequireResourceAccess(resource string) Gate {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := a.identity(w, r)
			if !ok {
				return
			}
			action, ok := rbac.ActionForMethod(r.Method)
			if !ok {
				presenter.Error(w, r, fmt.Sprintf("Method %s is not supported", r.Method), http.StatusMethodNotAllowed)
				return
			}
			perm, ok := a.registry.ResourcePermission(resource, action)
			if !ok {
				// Unmapped resource or categorically forbidden action.
				presenter.Denied(w, r, fmt.Sprintf("Access to %s is not permitted", resource), nil)
				return
			}
			if !a.registry.HasPermission(identity.Role, perm) {
				presenter.Denied(w, r, "Missing required permission", string(perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnership runs the supplied predicate unless the requester is
// an admin. A predicate error is a 500: an ownership check that cannot
// run must never grant access.
func (a *Authorizer) RequireOwnership(check OwnershipFunc) Gate {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := a.identity(w, r)
			if !ok {
				return
			}
			if identity.Role == rbac.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			owns, err := check(r)
			if err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("ownership check failed")
				presenter.Error(w, r, "Ownership check failed", http.StatusInternalServerError)
				return
			}
			if !owns {
				presenter.Denied(w, r, "You do not have access to this resource", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnershipFromRule adapts a config-declared ownership expression into an
// OwnershipFunc, resolving the named path parameters for it.
func OwnershipFromRule(rule *ownership.Rule, paramNames ...string) OwnershipFunc {
	return func(r *http.Request) (bool, error) {
		identity, _ := auth.IdentityFromContext(r.Context())
		params := make(map[string]string, len(paramNames))
		for _, name := range paramNames {
			params[name] = r.PathValue(name)
		}
		return rule.Allows(identity, params, r.Method)
	}
}

// Chain composes gates left to right: the first gate sees the request
// first and a failure short-circuits the rest.
func Chain(gates ...Gate) Gate {
	return func(next http.Handler) http.Handler {
		for i := len(gates) - 1; i >= 0; i-- {
			next = gates[i](next)
		}
		return next
	}
}

func requiredRoles(roles []rbac.Role) any {
	if len(roles) == 1 {
		return string(roles[0])
	}
	out := make([]string, len(roles))
	for i, role := range roles {
		out[i] = string(role)
	}
	return out
}

func requiredPermissions(perms []rbac.Permission) any {
	if len(perms) == 1 {
		return string(perms[0])
	}
	out := make([]string, len(perms))
	for i, perm := range perms {
		out[i] = string(perm)
	}
	return out
}
