package usage

import (
	"github.com/reportloop/reportloop/internal/types"
)

// UsageRecord holds the metered counters for one (tenant, calendar month)
// pair. Records are created lazily on first use in a month, mutated only by
// atomic increments, and never deleted.
type UsageRecord struct {
	ID string `db:"id" json:"id"`

	// MonthKey is the YYYY-MM bucket in UTC
	MonthKey string `db:"month_key" json:"month_key"`

	ReportsSent          int64 `db:"reports_sent" json:"reports_sent"`
	ClientCount          int64 `db:"client_count" json:"client_count"`
	DataSourcesConnected int64 `db:"data_sources_connected" json:"data_sources_connected"`

	types.BaseModel
}

// CounterValue returns the current value of the named counter
func (u *UsageRecord) CounterValue(counter types.UsageCounter) int64 {
	switch counter {
	case types.UsageCounterReports:
		return u.ReportsSent
	case types.UsageCounterClients:
		return u.ClientCount
	case types.UsageCounterDataSources:
		return u.DataSourcesConnected
	default:
		return 0
	}
}
