package api

import (
	"net/http"

	"github.com/vantagehq/vantage/internal/api/middleware"
	"github.com/vantagehq/vantage/internal/audit"
	"github.com/vantagehq/vantage/internal/metrics"
	"github.com/vantagehq/vantage/internal/ownership"
	"github.com/vantagehq/vantage/internal/ratelimit"
	"github.com/vantagehq/vantage/internal/rbac"
	"github.com/vantagehq/vantage/internal/service"
	"github.com/vantagehq/vantage/internal/session"
	"github.com/vantagehq/vantage/internal/tasks"
	"github.com/vantagehq/vantage/internal/users"
)

// Deps bundles everything the HTTP surface needs. Auditor and Tiers fall
// back to sane defaults when left unset; the rest is required.
type Deps struct {
	AuthService *service.AuthService
	Sessions    *session.Manager
	Users       users.Store
	Registry    *rbac.Registry
	Limiter     *ratelimit.Limiter
	Tiers       []ratelimit.Tier
	TaskManager *tasks.Manager
	Auditor     audit.Auditor

	// Ownership holds config-declared ownership rules keyed by resource
	// name. A rule for "users" replaces the built-in self-or-admin check.
	Ownership map[string]*ownership.Rule

	CORSOrigin string

	// Burst bounds request floods per client before any tier accounting.
	// Zero values disable the guard.
	BurstPerSecond int
	BurstSize      int
}

type Server struct {
	auth      *service.AuthService
	sessions  *session.Manager
	users     users.Store
	registry  *rbac.Registry
	tasks     *tasks.Manager
	auditor   audit.Auditor
	contracts *contractDataset

	// auditLog is non-nil when the memory auditor is configured; it backs
	// the audit-logs resource and the admin event query.
	auditLog *audit.InMemoryAuditor

	ownership map[string]*ownership.Rule
	tiers     map[string]ratelimit.Tier

	corsOrigin     string
	burstPerSecond int
	burstSize      int

	authn *middleware.Authenticator
	authz *middleware.Authorizer
	rl    *middleware.RateLimiter
}

func NewServer(deps Deps) *Server {
	if deps.Auditor == nil {
		deps.Auditor = audit.NewNoopAuditor()
	}
	if deps.Tiers == nil {
		deps.Tiers = ratelimit.DefaultTiers()
	}

	tiers := make(map[string]ratelimit.Tier, len(deps.Tiers))
	for _, tier := range deps.Tiers {
		tiers[tier.Name] = tier
	}

	auditLog, _ := deps.Auditor.(*audit.InMemoryAuditor)

	return &Server{
		auth:           deps.AuthService,
		sessions:       deps.Sessions,
		users:          deps.Users,
		registry:       deps.Registry,
		tasks:          deps.TaskManager,
		auditor:        deps.Auditor,
		contracts:      newContractDataset(),
		auditLog:       auditLog,
		ownership:      deps.Ownership,
		tiers:          tiers,
		corsOrigin:     deps.CORSOrigin,
		burstPerSecond: deps.BurstPerSecond,
		burstSize:      deps.BurstSize,
		authn:          middleware.NewAuthenticator(deps.AuthService.Tokens(), deps.Auditor),
		authz:          middleware.NewAuthorizer(deps.Registry),
		rl:             middleware.NewRateLimiter(deps.Limiter, deps.Auditor),
	}
}

// limit guards a route with the named tier from the resolved tier table.
func (s *Server) limit(name string) middleware.Gate {
	return s.rl.Limit(s.tiers[name])
}

// userOwnership resolves the ownership check for the users resource: the
// config-declared rule when present, else requester id == path id.
func (s *Server) userOwnership() middleware.OwnershipFunc {
	if rule, ok := s.ownership["users"]; ok {
		return middleware.OwnershipFromRule(rule, "id")
	}
	return ownsUserRecord
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.Handle("GET "+HealthCheckRoute, s.limit("health")(http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET "+InfoRoute, s.limit("public")(http.HandlerFunc(s.handleInfo)))
	mux.Handle("GET "+MetricsRoute, s.limit("public")(metrics.Handler()))

	// auth endpoints; identity is not known yet, so every tier here keys
	// on the client address
	mux.Handle("POST "+LoginRoute, s.limit("login")(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST "+GoogleAuthRoute, s.limit("login")(http.HandlerFunc(s.handleGoogleLogin)))
	mux.Handle("POST "+RegisterRoute, s.limit("register")(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST "+PasswordResetRoute, s.limit("password-reset")(http.HandlerFunc(s.handlePasswordReset)))
	mux.Handle("POST "+RefreshRoute, s.limit("refresh")(http.HandlerFunc(s.handleRefresh)))
	mux.Handle("POST "+LogoutRoute, s.limit("api")(http.HandlerFunc(s.handleLogout)))
	mux.Handle("GET "+MeRoute, middleware.Chain(
		s.authn.Require, s.limit("api-auth"),
	)(http.HandlerFunc(s.handleMe)))

	// contracts: resource-access gated CRUD, write tier on mutations
	contractRead := middleware.Chain(
		s.authn.Require, s.limit("api-auth"), s.authz.RequireResourceAccess("contracts"),
	)
	contractWrite := middleware.Chain(
		s.authn.Require, s.limit("write"), s.authz.RequireResourceAccess("contracts"),
	)
	mux.Handle("GET "+ContractsRoute, contractRead(http.HandlerFunc(s.handleListContracts)))
	mux.Handle("POST "+ContractsRoute, contractWrite(http.HandlerFunc(s.handleCreateContract)))
	mux.Handle("GET "+ContractByIDRoute, contractRead(http.HandlerFunc(s.handleGetContract)))
	mux.Handle("PUT "+ContractByIDRoute, contractWrite(http.HandlerFunc(s.handleUpdateContract)))
	mux.Handle("PATCH "+ContractByIDRoute, contractWrite(http.HandlerFunc(s.handleUpdateContract)))
	mux.Handle("DELETE "+ContractByIDRoute, contractWrite(http.HandlerFunc(s.handleDeleteContract)))

	// contract metrics: mounted without a method so the resource-access
	// gate answers for every verb (403 on mutations, 405 on verbs outside
	// the CRUD mapping)
	mux.Handle(ContractMetricsRoute, middleware.Chain(
		s.authn.Optional, s.limit("api"), s.authz.RequireResourceAccess("contract-metrics"),
	)(http.HandlerFunc(s.handleContractMetrics)))

	// dashboard: anonymous and authenticated callers get different shapes
	mux.Handle("GET "+DashboardRoute, middleware.Chain(
		s.authn.Optional, s.limit("api-auth"),
	)(http.HandlerFunc(s.handleDashboard)))

	// user management; reading or updating a single record is self-or-admin
	usersAccess := s.authz.RequireResourceAccess("users")
	owned := s.authz.RequireOwnership(s.userOwnership())
	mux.Handle("GET "+UsersRoute, middleware.Chain(
		s.authn.Require, s.limit("api-auth"), usersAccess,
	)(http.HandlerFunc(s.handleListUsers)))
	mux.Handle("POST "+UsersRoute, middleware.Chain(
		s.authn.Require, s.limit("write"), usersAccess,
	)(http.HandlerFunc(s.handleCreateUser)))
	mux.Handle("GET "+UserByIDRoute, middleware.Chain(
		s.authn.Require, s.limit("api-auth"), owned,
	)(http.HandlerFunc(s.handleGetUser)))
	mux.Handle("PUT "+UserByIDRoute, middleware.Chain(
		s.authn.Require, s.limit("write"), owned,
	)(http.HandlerFunc(s.handleUpdateUser)))
	mux.Handle("DELETE "+UserByIDRoute, middleware.Chain(
		s.authn.Require, s.limit("critical"), usersAccess,
	)(http.HandlerFunc(s.handleDeleteUser)))

	// audit logs: immutable resource; the map forbids every mutation, so
	// mounting without a method lets the gate deny them uniformly
	mux.Handle(AuditLogsRoute, middleware.Chain(
		s.authn.Require, s.limit("api-auth"), s.authz.RequireResourceAccess("audit-logs"),
	)(http.HandlerFunc(s.handleListAuditLogs)))

	// admin routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET "+AdminAuditEventsRoute, s.handleAdminAuditEvents)
	adminMux.HandleFunc("GET "+AdminSessionsRoute, s.handleAdminSessions)
	adminMux.HandleFunc("GET "+ListTasksRoute, s.handleListTasks)
	adminMux.HandleFunc("POST "+TriggerTaskRoute, s.handleTriggerTask)
	adminMux.HandleFunc("GET "+LogsForTaskRoute, s.handleLogsForTask)
	mux.Handle(AdminParent, middleware.Chain(
		s.authn.Require, s.limit("api-auth"), s.authz.RequireRole(rbac.RoleAdmin),
	)(adminMux))

	var inner http.Handler = mux
	if s.burstPerSecond > 0 && s.burstSize > 0 {
		inner = middleware.BurstGuard(s.burstPerSecond, s.burstSize)(inner)
	}

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				middleware.CORSMiddleware(s.corsOrigin)(
					metrics.Instrument(
						inner)))))
}
