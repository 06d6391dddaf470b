package types

import (
	"time"

	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/samber/lo"
)

// UsageCounter names a metered counter on the monthly usage record
type UsageCounter string

const (
	UsageCounterReports     UsageCounter = "reports"
	UsageCounterClients     UsageCounter = "clients"
	UsageCounterDataSources UsageCounter = "data_sources"
)

func (c UsageCounter) String() string {
	return string(c)
}

func (c UsageCounter) Validate() error {
	allowed := []UsageCounter{
		UsageCounterReports,
		UsageCounterClients,
		UsageCounterDataSources,
	}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid usage counter").
			WithHint("Invalid usage counter").
			WithReportableDetails(map[string]any{
				"counter":          c,
				"allowed_counters": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// MonthKey returns the calendar-month bucket key for a point in time, in UTC.
// One usage record exists per (tenant, month key).
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// CurrentMonthKey returns the bucket key for the current month
func CurrentMonthKey() string {
	return MonthKey(time.Now())
}
