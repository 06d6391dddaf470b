package plan

import (
	"time"

	"github.com/reportloop/reportloop/internal/types"
)

// Plan is a billing tier. Plans are immutable reference data; a nil limit
// means unlimited.
type Plan struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	LookupKey string `db:"lookup_key" json:"lookup_key"`

	// PriceRef is the provider-side price reference used when creating
	// subscriptions for this plan.
	PriceRef string `db:"price_ref" json:"price_ref"`

	MaxReportsPerMonth *int64 `db:"max_reports_per_month" json:"max_reports_per_month"`
	MaxClients         *int64 `db:"max_clients" json:"max_clients"`
	MaxDataSources     *int64 `db:"max_data_sources" json:"max_data_sources"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LimitFor returns the plan ceiling for a counter, nil meaning unlimited
func (p *Plan) LimitFor(counter types.UsageCounter) *int64 {
	switch counter {
	case types.UsageCounterReports:
		return p.MaxReportsPerMonth
	case types.UsageCounterClients:
		return p.MaxClients
	case types.UsageCounterDataSources:
		return p.MaxDataSources
	default:
		return nil
	}
}
