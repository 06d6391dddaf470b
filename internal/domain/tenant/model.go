package tenant

import (
	"time"

	"github.com/reportloop/reportloop/internal/types"
)

// Tenant represents an agency/organization using the platform. It is the
// unit of billing and quota. Tenants are created by onboarding; the
// reconciliation engine only reads and writes billing-related fields.
type Tenant struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	PlanID string `db:"plan_id" json:"plan_id"`

	// ExternalCustomerID is the provider-side customer id, set once the
	// gateway has created the customer object upstream.
	ExternalCustomerID string `db:"external_customer_id" json:"external_customer_id"`

	Status    types.Status `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
