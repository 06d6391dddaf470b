package config

import (
	"time"

	"github.com/spf13/viper"

	ierr "github.com/reportloop/reportloop/internal/errors"
)

// BillingConfig holds everything needed to talk to the payment provider and
// to police entitlements locally.
type BillingConfig struct {
	// APIBaseURL is the provider API origin, without a trailing slash
	APIBaseURL string `mapstructure:"api_base_url" validate:"required"`
	// APIKey is the bearer token for outbound provider calls
	APIKey string `mapstructure:"api_key"`

	// CustomerEndpoints and SubscriptionEndpoints are ordered candidate
	// paths. The provider's routing differs between test and production
	// deployments, so each is tried in order until one answers.
	CustomerEndpoints     []string `mapstructure:"customer_endpoints"`
	SubscriptionEndpoints []string `mapstructure:"subscription_endpoints"`

	// WebhookSecret is the shared secret for inbound signature verification.
	// Empty disables verification; the ingestor logs a warning per delivery.
	WebhookSecret string `mapstructure:"webhook_secret"`

	// RequireEventID rejects webhook deliveries that carry no provider event
	// id instead of synthesizing a non-deduplicatable one.
	RequireEventID bool `mapstructure:"require_event_id"`

	TrialDays       int `mapstructure:"trial_days"`
	GracePeriodDays int `mapstructure:"grace_period_days"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	Retry       RetryConfig       `mapstructure:"retry"`
	Entitlement EntitlementConfig `mapstructure:"entitlement"`
}

// RetryConfig tunes the per-path retry schedule for outbound provider calls
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// EntitlementConfig tunes gate behavior
type EntitlementConfig struct {
	// FailClosed denies metered operations when the gate itself errors.
	// The default preserves fail-open behavior: availability over strict
	// metering during store outages.
	FailClosed bool `mapstructure:"fail_closed"`
}

func setBillingDefaults(v *viper.Viper) {
	v.SetDefault("billing.api_base_url", "https://api.paynest.test")
	v.SetDefault("billing.customer_endpoints", []string{
		"/v1/customers",
		"/api/v1/customers",
		"/customers",
	})
	v.SetDefault("billing.subscription_endpoints", []string{
		"/v1/subscriptions",
		"/api/v1/subscriptions",
		"/subscriptions",
	})
	v.SetDefault("billing.trial_days", 14)
	v.SetDefault("billing.grace_period_days", 7)
	v.SetDefault("billing.http_timeout", 10*time.Second)
	v.SetDefault("billing.retry.max_attempts", 3)
	v.SetDefault("billing.retry.initial_interval", time.Second)
	v.SetDefault("billing.retry.max_interval", 10*time.Second)
	v.SetDefault("billing.entitlement.fail_closed", false)
}

func (c BillingConfig) Validate() error {
	if len(c.CustomerEndpoints) == 0 || len(c.SubscriptionEndpoints) == 0 {
		return ierr.NewError("billing endpoints not configured").
			WithHint("At least one candidate endpoint is required per operation").
			Mark(ierr.ErrValidation)
	}
	if c.Retry.MaxAttempts < 1 {
		return ierr.NewError("invalid retry config").
			WithHint("billing.retry.max_attempts must be at least 1").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetDefaultBillingConfig returns billing defaults for tests and scripts
func GetDefaultBillingConfig() BillingConfig {
	return BillingConfig{
		APIBaseURL:            "https://api.paynest.test",
		CustomerEndpoints:     []string{"/v1/customers", "/api/v1/customers", "/customers"},
		SubscriptionEndpoints: []string{"/v1/subscriptions", "/api/v1/subscriptions", "/subscriptions"},
		TrialDays:             14,
		GracePeriodDays:       7,
		HTTPTimeout:           10 * time.Second,
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: time.Second,
			MaxInterval:     10 * time.Second,
		},
	}
}
