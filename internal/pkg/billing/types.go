package billing

import "time"

// NormalizedSubscription is the provider-agnostic snapshot a webhook payload
// is reduced to before it touches the database. Plan mapping and
// reconciliation only ever see this shape, never raw Stripe objects.
// ProviderPlanRef is the provider's price/plan identifier; the mapped local
// plan comes out of the plan mapping table.
type NormalizedSubscription struct {
	UserID                 uint
	Provider               string
	ProviderSubscriptionID string
	ProviderPlanRef        string
	BillingInterval        string
	Status                 string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
	RawPayloadJSON         string
}

// WebhookEventInput describes one received webhook delivery for the
// idempotency log. ProviderEventID is the dedup key across redeliveries.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
