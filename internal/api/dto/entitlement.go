package dto

import (
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/types"
)

// Gate decision reasons surfaced to callers
const (
	ReasonNoActiveSubscription = "No active subscription"
	ReasonGracePeriod          = "grace period"
	ReasonPlanLimitExceeded    = "Plan limit exceeded"
	ReasonInternalError        = "internal error"
)

// UsageSnapshot echoes the month's counters alongside a decision
type UsageSnapshot struct {
	MonthKey             string `json:"month_key"`
	ReportsSent          int64  `json:"reports_sent"`
	ClientCount          int64  `json:"client_count"`
	DataSourcesConnected int64  `json:"data_sources_connected"`
}

// PlanLimits echoes the plan ceilings alongside a decision; nil = unlimited
type PlanLimits struct {
	MaxReportsPerMonth *int64 `json:"max_reports_per_month"`
	MaxClients         *int64 `json:"max_clients"`
	MaxDataSources     *int64 `json:"max_data_sources"`
}

// EntitlementDecision is the gate's answer for one metered operation
type EntitlementDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`

	// LimitType, Used and Limit are set on quota denials so the caller can
	// render a helpful message.
	LimitType types.UsageCounter `json:"limit_type,omitempty"`
	Used      *int64             `json:"used,omitempty"`
	Limit     *int64             `json:"limit,omitempty"`

	Usage  *UsageSnapshot `json:"usage,omitempty"`
	Limits *PlanLimits    `json:"limits,omitempty"`

	// Error carries the internal failure when the gate answered under its
	// failure policy rather than from consistent state.
	Error string `json:"error,omitempty"`
}

// IncrementUsageRequest records one successful metered operation
type IncrementUsageRequest struct {
	TenantID string             `json:"tenant_id" binding:"required"`
	Counter  types.UsageCounter `json:"counter" binding:"required"`
	Amount   int64              `json:"amount"`
}

func (r *IncrementUsageRequest) Validate() error {
	if err := r.Counter.Validate(); err != nil {
		return err
	}
	if r.Amount <= 0 {
		return ierr.NewError("amount must be positive").
			WithHint("Increment amount must be greater than zero").
			WithReportableDetails(map[string]any{"amount": r.Amount}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
