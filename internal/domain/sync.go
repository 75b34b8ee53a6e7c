package domain

import "time"

// ChannelConfig is one channel-manager connection. Exactly one active config
// exists per channel connection; this core reads it, it does not own it.
type ChannelConfig struct {
	ID         int64
	TenantID   int64
	PropertyID int64
	Name       string
	BaseURL    string
	APIKey     string
	ConnectionID string
	Active     bool
	Connected  bool

	ErrorThreshold   float64 // error-rate above which the config is critical
	PendingThreshold float64 // pending-rate above which the config is warning

	CreatedAt time.Time
	UpdatedAt time.Time
}

type SyncKind string

const (
	SyncIncremental SyncKind = "incremental"
	SyncFull        SyncKind = "full"
	SyncManual      SyncKind = "manual"
	SyncRetry       SyncKind = "retry"
	SyncPull        SyncKind = "pull"
)

// SyncLog is one reconciliation attempt, feeding health scoring and audit.
type SyncLog struct {
	ID        int64
	RunID     string
	ConfigID  int64
	Kind      SyncKind
	Status    string // ok | partial | failed
	Processed int
	Succeeded int
	Failed    int
	Error     *string
	StartedAt time.Time
	Duration  time.Duration
}

// SyncRunParams parameterize a manual run.
type SyncRunParams struct {
	PropertyID *int64
	ForceAll   bool
	BatchSize  int
	Async      bool
}

// SyncRunResult is the synchronous outcome of a run: counts, a truncated
// error list, and timing.
type SyncRunResult struct {
	RunID     string        `json:"run_id"`
	Pending   int           `json:"pending"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Errors    []string      `json:"errors,omitempty"`
	Truncated bool          `json:"errors_truncated,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
}

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
	HealthUnknown  HealthStatus = "unknown"
)

// ConfigHealth scores one configuration from recent sync outcomes.
type ConfigHealth struct {
	ConfigID    int64        `json:"config_id"`
	Status      HealthStatus `json:"status"`
	ErrorRate   float64      `json:"error_rate"`
	PendingRate float64      `json:"pending_rate"`
	Pending     int          `json:"pending"`
	Errored     int          `json:"errored"`
}

// SyncStatus aggregates per-config health; any critical config makes the
// aggregate critical.
type SyncStatus struct {
	Overall HealthStatus   `json:"overall"`
	Configs []ConfigHealth `json:"configs"`
	AsOf    time.Time      `json:"as_of"`
}

// SyncEvent is published (best-effort) when a run completes.
type SyncEvent struct {
	RunID     string    `json:"run_id"`
	ConfigID  int64     `json:"config_id,omitempty"`
	Kind      SyncKind  `json:"kind"`
	Processed int       `json:"processed"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	At        time.Time `json:"at"`
}
