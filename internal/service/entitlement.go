package service

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/reportloop/reportloop/internal/api/dto"
	"github.com/reportloop/reportloop/internal/cache"
	"github.com/reportloop/reportloop/internal/domain/plan"
	"github.com/reportloop/reportloop/internal/domain/usage"
	ierr "github.com/reportloop/reportloop/internal/errors"
	"github.com/reportloop/reportloop/internal/types"
)

const (
	gateOutcomeAllowed      = "allowed"
	gateOutcomeDenied       = "denied"
	gateOutcomeFailedOpen   = "failed_open"
	gateOutcomeFailedClosed = "failed_closed"
)

// EntitlementService is the admission gate for metered operations plus the
// usage ledger behind it. CheckUsage answers from the reconciled
// subscription row and the month's counters; IncrementUsage records one
// successful metered operation through an atomic storage-level add.
type EntitlementService interface {
	CheckUsage(ctx context.Context, tenantID string) (*dto.EntitlementDecision, error)
	IncrementUsage(ctx context.Context, req dto.IncrementUsageRequest) error
}

type entitlementService struct {
	ServiceParams
}

func NewEntitlementService(params ServiceParams) EntitlementService {
	return &entitlementService{ServiceParams: params}
}

// CheckUsage decides whether a metered operation may run right now. The
// decision never returns a non-nil error alongside a nil decision: when the
// gate itself fails, the configured failure policy answers and the internal
// error rides along in the decision metadata.
func (s *entitlementService) CheckUsage(ctx context.Context, tenantID string) (*dto.EntitlementDecision, error) {
	now := time.Now().UTC()

	sub, err := s.SubRepo.GetByTenantID(ctx, tenantID)
	if err != nil {
		if ierr.IsNotFound(err) {
			s.Metrics.GateDecisionsTotal.WithLabelValues(gateOutcomeDenied).Inc()
			return &dto.EntitlementDecision{
				Allowed: false,
				Reason:  dto.ReasonNoActiveSubscription,
			}, nil
		}
		return s.decideOnInternalError(tenantID, err), nil
	}

	inGrace := false
	if sub.SubscriptionStatus != types.SubscriptionStatusActive {
		if !sub.InGracePeriod(now) {
			s.Metrics.GateDecisionsTotal.WithLabelValues(gateOutcomeDenied).Inc()
			return &dto.EntitlementDecision{
				Allowed: false,
				Reason:  sub.SubscriptionStatus.String(),
			}, nil
		}
		inGrace = true
	}

	p, err := s.loadPlan(ctx, tenantID, sub.PlanID)
	if err != nil {
		return s.decideOnInternalError(tenantID, err), nil
	}

	record, err := s.UsageRepo.GetForMonth(ctx, tenantID, types.MonthKey(now))
	if err != nil {
		if !ierr.IsNotFound(err) {
			return s.decideOnInternalError(tenantID, err), nil
		}
		// No usage yet this month: all counters are zero
		record = &usage.UsageRecord{MonthKey: types.MonthKey(now)}
	}

	snapshot := &dto.UsageSnapshot{
		MonthKey:             record.MonthKey,
		ReportsSent:          record.ReportsSent,
		ClientCount:          record.ClientCount,
		DataSourcesConnected: record.DataSourcesConnected,
	}
	limits := &dto.PlanLimits{
		MaxReportsPerMonth: p.MaxReportsPerMonth,
		MaxClients:         p.MaxClients,
		MaxDataSources:     p.MaxDataSources,
	}

	counters := []types.UsageCounter{
		types.UsageCounterReports,
		types.UsageCounterClients,
		types.UsageCounterDataSources,
	}
	for _, counter := range counters {
		limit := p.LimitFor(counter)
		if limit == nil {
			continue
		}
		used := record.CounterValue(counter)
		if used >= *limit {
			s.Metrics.GateDecisionsTotal.WithLabelValues(gateOutcomeDenied).Inc()
			return &dto.EntitlementDecision{
				Allowed:   false,
				Reason:    dto.ReasonPlanLimitExceeded,
				LimitType: counter,
				Used:      lo.ToPtr(used),
				Limit:     limit,
				Usage:     snapshot,
				Limits:    limits,
			}, nil
		}
	}

	decision := &dto.EntitlementDecision{
		Allowed: true,
		Usage:   snapshot,
		Limits:  limits,
	}
	if inGrace {
		decision.Reason = dto.ReasonGracePeriod
	}
	s.Metrics.GateDecisionsTotal.WithLabelValues(gateOutcomeAllowed).Inc()
	return decision, nil
}

// IncrementUsage records amount against the named counter for the current
// month. The add happens in a single atomic storage operation; concurrent
// report generations must not lose updates.
func (s *entitlementService) IncrementUsage(ctx context.Context, req dto.IncrementUsageRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	monthKey := types.CurrentMonthKey()
	if err := s.UsageRepo.Increment(ctx, req.TenantID, monthKey, req.Counter, req.Amount); err != nil {
		return err
	}

	s.Metrics.UsageIncrements.WithLabelValues(req.Counter.String()).Inc()
	s.Logger.Debugw("usage incremented",
		"tenant_id", req.TenantID,
		"month_key", monthKey,
		"counter", req.Counter,
		"amount", req.Amount,
	)
	return nil
}

// loadPlan resolves the tenant's plan, preferring the subscription's plan id
// and falling back to the tenant row. Plans are immutable reference data and
// are cached.
func (s *entitlementService) loadPlan(ctx context.Context, tenantID, planID string) (*plan.Plan, error) {
	if planID == "" {
		t, err := s.TenantRepo.GetByID(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		planID = t.PlanID
	}
	if planID == "" {
		return nil, ierr.NewError("tenant has no plan").
			WithHint("No plan is associated with this tenant").
			WithReportableDetails(map[string]any{"tenant_id": tenantID}).
			Mark(ierr.ErrPreconditionFailed)
	}

	cacheKey := cache.PrefixPlan + planID
	if cached, ok := s.Cache.Get(ctx, cacheKey); ok {
		if p, ok := cached.(*plan.Plan); ok {
			return p, nil
		}
	}

	p, err := s.PlanRepo.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	s.Cache.Set(ctx, cacheKey, p, cache.DefaultExpiration)
	return p, nil
}

// decideOnInternalError applies the configured failure policy. The default
// fails open: feature availability beats strict metering during a store
// outage. The error always rides along in the decision.
func (s *entitlementService) decideOnInternalError(tenantID string, err error) *dto.EntitlementDecision {
	s.Logger.Errorw("entitlement check failed",
		"tenant_id", tenantID,
		"fail_closed", s.Config.Billing.Entitlement.FailClosed,
		"error", err,
	)

	if s.Config.Billing.Entitlement.FailClosed {
		s.Metrics.GateDecisionsTotal.WithLabelValues(gateOutcomeFailedClosed).Inc()
		return &dto.EntitlementDecision{
			Allowed: false,
			Reason:  dto.ReasonInternalError,
			Error:   err.Error(),
		}
	}

	s.Metrics.GateDecisionsTotal.WithLabelValues(gateOutcomeFailedOpen).Inc()
	return &dto.EntitlementDecision{
		Allowed: true,
		Reason:  dto.ReasonInternalError,
		Error:   err.Error(),
	}
}
