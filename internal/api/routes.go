package api

const (
	HealthCheckRoute = "/healthz"
	InfoRoute        = "/v1/info"
	MetricsRoute     = "/metrics"

	LoginRoute         = "/auth/login"
	RegisterRoute      = "/auth/register"
	GoogleAuthRoute    = "/auth/google"
	RefreshRoute       = "/auth/refresh"
	LogoutRoute        = "/auth/logout"
	MeRoute            = "/auth/me"
	PasswordResetRoute = "/auth/password-reset"

	ContractsRoute       = "/api/contracts"
	ContractByIDRoute    = ContractsRoute + "/{id}"
	ContractMetricsRoute = "/api/contract-metrics"
	DashboardRoute       = "/api/dashboard"
	UsersRoute           = "/api/users"
	UserByIDRoute        = UsersRoute + "/{id}"
	AuditLogsRoute       = "/api/audit-logs"

	AdminParent           = "/v1/admin/"
	AdminAuditEventsRoute = AdminParent + "audit/events"
	AdminSessionsRoute    = AdminParent + "sessions/count"

	AdminTaskParent  = AdminParent + "tasks"
	ListTasksRoute   = AdminTaskParent
	TriggerTaskRoute = AdminTaskParent + "/{name}/trigger"
	LogsForTaskRoute = AdminTaskParent + "/{name}/logs"
)
