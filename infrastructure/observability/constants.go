package observability

// Metric name prefixes
const (
	MetricPrefix = "ledger"
)

// Metric names
const (
	// Operation metrics
	OperationsTotal = MetricPrefix + ".operations_total"

	// Optimistic concurrency metrics
	CASRetriesTotal   = MetricPrefix + ".cas.retries_total"
	CASConflictsTotal = MetricPrefix + ".cas.conflicts_total"

	// Progression metrics
	ExperienceGrantedTotal = MetricPrefix + ".experience.granted_total"

	// Wager metrics
	TeamsOpen = MetricPrefix + ".teams.open"

	// Audit sink metrics
	EventsPublishedTotal = MetricPrefix + ".events.published_total"

	// Store metrics
	StoreOperationsTotal   = MetricPrefix + ".store.operations_total"
	StoreOperationDuration = MetricPrefix + ".store.operation_duration"
)

// Label keys
const (
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelReason    = "reason"
	LabelEventType = "event_type"
	LabelBackend   = "backend"
	LabelMethod    = "method"
)

// Operation outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Store backends
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)
