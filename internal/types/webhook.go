package types

// WebhookEventType identifies the billing event carried by a provider webhook
type WebhookEventType string

const (
	WebhookEventTypePaymentSucceeded      WebhookEventType = "payment_succeeded"
	WebhookEventTypeInvoicePaid           WebhookEventType = "invoice_paid"
	WebhookEventTypePaymentFailed         WebhookEventType = "payment_failed"
	WebhookEventTypeSubscriptionCancelled WebhookEventType = "subscription_cancelled"
	WebhookEventTypeSubscriptionUpdated   WebhookEventType = "subscription_updated"

	// WebhookEventTypeSubscriptionCreated is synthesized locally when a
	// subscription is created through the gateway. It is never received from
	// the provider; it exists so the audit trail has a uniform shape.
	WebhookEventTypeSubscriptionCreated WebhookEventType = "subscription_created"
)

func (t WebhookEventType) String() string {
	return string(t)
}

const (
	// WebhookSignatureHeader carries the hex HMAC-SHA256 of the raw body
	WebhookSignatureHeader = "X-Webhook-Signature"
	// WebhookSignaturePrefix is an optional prefix some provider versions add
	WebhookSignaturePrefix = "sha256="
)
