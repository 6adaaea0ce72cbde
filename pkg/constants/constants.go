// Package constants defines system-wide constants for the Sentra reliability service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Incident Type Constants
// ================================================================================

// IncidentType classifies the root cause category of a detected incident.
type IncidentType string

const (
	IncidentTypeDataIntegrityFailure IncidentType = "DATA_INTEGRITY_FAILURE"
	IncidentTypeRowCountDrop         IncidentType = "ROW_COUNT_DROP"
	IncidentTypeSchemaChange         IncidentType = "SCHEMA_CHANGE"
	IncidentTypeAPILatencySpike      IncidentType = "API_LATENCY_SPIKE"
	IncidentTypeFreshnessViolation   IncidentType = "FRESHNESS_VIOLATION"
	IncidentTypeDistributionDrift    IncidentType = "DISTRIBUTION_DRIFT"
	IncidentTypeUpstreamDelay        IncidentType = "UPSTREAM_DELAY"
	IncidentTypePIILeakage           IncidentType = "PII_LEAKAGE"
	IncidentTypeSchemaEvolution      IncidentType = "SCHEMA_EVOLUTION"
	IncidentTypeUnknown              IncidentType = "UNKNOWN"
)

// ================================================================================
// Incident Status Constants
// ================================================================================

// IncidentStatus represents the lifecycle status of an incident record.
type IncidentStatus string

const (
	IncidentStatusDetected      IncidentStatus = "DETECTED"
	IncidentStatusInvestigating IncidentStatus = "INVESTIGATING"
	IncidentStatusVerified      IncidentStatus = "VERIFIED"
	IncidentStatusResolved      IncidentStatus = "RESOLVED"
	IncidentStatusFalsePositive IncidentStatus = "FALSE_POSITIVE"
)

// ================================================================================
// Cycle State Constants
// ================================================================================

// CycleState is a state of the per-tenant detection cycle state machine.
type CycleState string

const (
	CycleStateStarted            CycleState = "STARTED"
	CycleStateObserved           CycleState = "OBSERVED"
	CycleStateTriaged            CycleState = "TRIAGED"
	CycleStateInvestigated       CycleState = "INVESTIGATED"
	CycleStateVerified           CycleState = "VERIFIED"
	CycleStatePolicyEvaluated    CycleState = "POLICY_EVALUATED"
	CycleStateRemediationPending CycleState = "REMEDIATION_PENDING"
	CycleStateRemediationDone    CycleState = "REMEDIATION_EXECUTED"
	CycleStatePersisted          CycleState = "PERSISTED"
	CycleStateEscalated          CycleState = "ESCALATED"
	CycleStateDone               CycleState = "DONE"
	CycleStateAborted            CycleState = "ABORTED"
)

// ================================================================================
// Pipeline Stage Constants
// ================================================================================

// Stage names the pipeline stage that produced a decision log entry or
// an oracle call. Stage strings are part of the oracle cache key.
type Stage string

const (
	StageObserve     Stage = "observe"
	StageTriage      Stage = "triage"
	StageReason      Stage = "reason"
	StageInvestigate Stage = "investigate"
	StageVerify      Stage = "verify"
	StagePolicy      Stage = "policy"
	StageRemediation Stage = "remediation"
	StageRiskAssess  Stage = "risk_assess"
	StagePersist     Stage = "persist"
	StageEscalate    Stage = "escalate"
	StageMetaLearn   Stage = "meta_learn"
)

// ================================================================================
// Verification Status Constants
// ================================================================================

// VerificationStatus grades how strongly the evidence supports a hypothesis.
type VerificationStatus string

const (
	VerificationConfirmed    VerificationStatus = "CONFIRMED"
	VerificationWeakEvidence VerificationStatus = "WEAK_EVIDENCE"
	VerificationUnverified   VerificationStatus = "UNVERIFIED"
	VerificationRejected     VerificationStatus = "REJECTED"
)

// ================================================================================
// Alert Level Constants
// ================================================================================

// AlertLevel is the severity attached to an escalated notification.
type AlertLevel string

const (
	AlertLevelCritical AlertLevel = "CRITICAL"
	AlertLevelWarning  AlertLevel = "WARNING"
	AlertLevelInfo     AlertLevel = "INFO"
)

// Severity grades an anomaly signal emitted by the observer.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ================================================================================
// Approval Status Constants
// ================================================================================

// ApprovalStatus represents the lifecycle status of an approval token.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
	ApprovalStatusExpired  ApprovalStatus = "expired"
)

// ================================================================================
// Tenant Status Constants
// ================================================================================

// TenantStatus represents the operational status of a tenant.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusInactive  TenantStatus = "inactive"
	TenantStatusDeleted   TenantStatus = "deleted"
)

// DefaultTenantID is the reserved demo tenant used when a request carries
// no tenant identifier.
const DefaultTenantID = "demo"

// TenantIDHeader is the HTTP header carrying the tenant identifier.
const TenantIDHeader = "X-Tenant-ID"

// ================================================================================
// Event Type Constants
// ================================================================================

// EventType names a lifecycle event broadcast on the tenant event stream.
type EventType string

const (
	EventTypeCycleStarted     EventType = "cycle_started"
	EventTypeCycleCompleted   EventType = "cycle_completed"
	EventTypeCycleError       EventType = "cycle_error"
	EventTypeIncidentDetected EventType = "incident_detected"
)

// PipelineRunStatus is the reported outcome of an external ETL pipeline run.
type PipelineRunStatus string

const (
	PipelineRunSuccess PipelineRunStatus = "SUCCESS"
	PipelineRunFailed  PipelineRunStatus = "FAILED"
)

// ================================================================================
// Oracle Gateway Constants
// ================================================================================

const (
	// OracleMaxCallsPerCycle bounds oracle spend within a single detection cycle.
	OracleMaxCallsPerCycle = 8

	// OracleMaxPromptChars caps the prompt size sent to the oracle.
	OracleMaxPromptChars = 140000

	// OracleCacheTTL is the fingerprint cache window for identical requests.
	OracleCacheTTL = 10 * time.Minute

	// OracleCallTimeout bounds a single oracle round trip.
	OracleCallTimeout = 8 * time.Second

	// OracleDefaultModel is used when no model is configured.
	OracleDefaultModel = "gpt-4o-mini"

	// OracleFallbackProvider tags decision log entries produced without an API call.
	OracleFallbackProvider = "deterministic-fallback"
)

// ================================================================================
// Pipeline Defaults
// ================================================================================

const (
	// DefaultConfidenceThreshold is the minimum verification confidence for
	// an incident to be marked VERIFIED.
	DefaultConfidenceThreshold = 70.0

	// DefaultAlertThreshold is the minimum confidence for escalation.
	DefaultAlertThreshold = 70.0

	// CriticalConfidenceFloor marks an incident critical in aggregates.
	CriticalConfidenceFloor = 90.0

	// MaxHypothesesPerCycle bounds investigation retries across ranked hypotheses.
	MaxHypothesesPerCycle = 2

	// DefaultApprovalTTL is the lifetime of a pending approval token.
	DefaultApprovalTTL = 24 * time.Hour

	// DefaultCooldownWindow suppresses repeat notifications per
	// (tenant, incident type).
	DefaultCooldownWindow = 10 * time.Minute

	// NotificationMaxAttempts bounds delivery retries per channel.
	NotificationMaxAttempts = 3

	// NotificationBackoffBase is the initial retry delay, doubled per attempt.
	NotificationBackoffBase = 1 * time.Second

	// DefaultFreshnessMinutes is the conservative expected-freshness default
	// applied to tables without an explicit configuration. Unknown tables are
	// never treated as always fresh.
	DefaultFreshnessMinutes = 60

	// DefaultMTTRWindow is the trailing window for MTTR aggregation.
	DefaultMTTRWindow = 7 * 24 * time.Hour

	// DefaultMetaLearnInterval is the meta-learner schedule.
	DefaultMetaLearnInterval = 30 * time.Minute

	// ChronicOffenderMinFrequency is the recurrence count at which a
	// (source, incident type) pair becomes a chronic-offender insight.
	ChronicOffenderMinFrequency = 2

	// PersistMaxAttempts bounds historian write retries before a cycle aborts.
	PersistMaxAttempts = 3

	// EventBufferPerListener is the bounded per-listener event buffer depth;
	// overflow drops the oldest event.
	EventBufferPerListener = 64
)

// ================================================================================
// Cache Key Prefix Constants
// ================================================================================

const (
	// CacheKeyPrefixCooldown is the prefix for escalation cooldown entries.
	CacheKeyPrefixCooldown = "cooldown:"

	// CacheKeyPrefixOracleBudget is the prefix for per-tenant oracle budget counters.
	CacheKeyPrefixOracleBudget = "oracle:budget:"

	// CacheKeyPrefixCycleLease is the prefix for per-tenant cycle lease entries.
	CacheKeyPrefixCycleLease = "cycle:lease:"
)

// ================================================================================
// Database Table Name Constants
// ================================================================================

const (
	TableNameIncidents      = "incidents"
	TableNamePolicies       = "policies"
	TableNameApprovals      = "approval_tokens"
	TableNameInsights       = "pattern_insights"
	TableNameTenants        = "tenants"
	TableNameAuditEvents    = "audit_events"
	TableNamePipelineEvents = "pipeline_events"
)

// ================================================================================
// Vault Path Constants
// ================================================================================

const (
	// VaultOracleKeyPath is the Vault KV path holding the oracle API key.
	VaultOracleKeyPath = "secret/sentra/oracle"

	// VaultOracleKeyField is the field name within the oracle secret.
	VaultOracleKeyField = "api_key"
)

// ================================================================================
// Service Configuration Constants
// ================================================================================

const (
	// DefaultServicePort is the default HTTP service port.
	DefaultServicePort = 8080

	// DefaultMetricsPort is the default Prometheus metrics port.
	DefaultMetricsPort = 9090

	// DefaultHealthCheckPath is the health check endpoint path.
	DefaultHealthCheckPath = "/health"

	// DefaultRequestTimeout is the default request timeout.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultShutdownTimeout is the graceful shutdown timeout.
	DefaultShutdownTimeout = 30 * time.Second
)

// ================================================================================
// Logging Constants
// ================================================================================

// LogLevel represents the severity level of log messages.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context.
type ContextKey string

const (
	ContextKeyRequestID ContextKey = "request_id"
	ContextKeyTraceID   ContextKey = "trace_id"
	ContextKeySpanID    ContextKey = "span_id"
	ContextKeyTenantID  ContextKey = "tenant_id"
	ContextKeyCycleID   ContextKey = "cycle_id"
)

// ================================================================================
// Error Code Constants
// ================================================================================

// ErrorCode identifies a structured error condition in API responses.
type ErrorCode string

const (
	ErrCodeInvalidRequest          ErrorCode = "invalid_request"
	ErrCodeNotFound                ErrorCode = "not_found"
	ErrCodeUnauthorized            ErrorCode = "unauthorized"
	ErrCodeServerError             ErrorCode = "server_error"
	ErrCodeSourceUnavailable       ErrorCode = "source_unavailable"
	ErrCodeOracleTimeout           ErrorCode = "oracle_timeout"
	ErrCodeOracleError             ErrorCode = "oracle_error"
	ErrCodeBudgetExceeded          ErrorCode = "budget_exceeded"
	ErrCodeInvestigationStepFailed ErrorCode = "investigation_step_failed"
	ErrCodeInvestigationExhausted  ErrorCode = "investigation_exhausted"
	ErrCodePersistenceFailure      ErrorCode = "persistence_failure"
	ErrCodeTokenInvalid            ErrorCode = "token_invalid"
	ErrCodeTokenExpired            ErrorCode = "token_expired"
	ErrCodeCycleAlreadyRunning     ErrorCode = "cycle_already_running"
	ErrCodeTenantNotFound          ErrorCode = "tenant_not_found"
	ErrCodeTenantSuspended         ErrorCode = "tenant_suspended"
	ErrCodeNotificationFailure     ErrorCode = "notification_failure"
)
