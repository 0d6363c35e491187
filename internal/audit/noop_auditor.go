package audit

// NoopAuditor discards every event. Used when auditing is configured off.
type NoopAuditor struct{}

var _ Auditor = (*NoopAuditor)(nil)

func NewNoopAuditor() *NoopAuditor {
	return &NoopAuditor{}
}

func (n *NoopAuditor) Log(Event) error { return nil }

func (n *NoopAuditor) Close() error { return nil }
