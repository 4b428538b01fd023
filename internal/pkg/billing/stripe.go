package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loglens/loglens/app/models"
)

// Subscription lifecycle event types consumed from Stripe.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// ErrUnhandledEventType marks event types we persist but do not act on.
var ErrUnhandledEventType = errors.New("unhandled event type")

// ErrUnknownCustomer marks subscription events for customers we never linked.
var ErrUnknownCustomer = errors.New("unknown provider customer")

// stripeEvent is the subset of the Stripe event envelope we consume.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object stripeSubscription `json:"object"`
	} `json:"data"`
}

type stripeSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			Price struct {
				ID        string `json:"id"`
				Recurring struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// ParseStripeEvent decodes the event envelope and returns its id and type.
func ParseStripeEvent(payload []byte) (eventID, eventType string, err error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", "", fmt.Errorf("decode stripe event: %w", err)
	}
	return event.ID, event.Type, nil
}

// ProcessStripeEvent handles a verified, recorded webhook payload. The
// customer must have been linked to a local user at checkout time; events
// for unknown customers are surfaced as ErrUnknownCustomer so the webhook
// log keeps them visible.
func (s *Service) ProcessStripeEvent(ctx context.Context, payload []byte) (string, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", fmt.Errorf("decode stripe event: %w", err)
	}

	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
	default:
		return "", fmt.Errorf("%w: %s", ErrUnhandledEventType, event.Type)
	}

	sub := event.Data.Object
	if strings.TrimSpace(sub.Customer) == "" || strings.TrimSpace(sub.ID) == "" {
		return "", errors.New("stripe event missing customer or subscription id")
	}

	account, err := s.GetBillingAccountByProviderAccountID(ctx, models.BillingProviderStripe, sub.Customer)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownCustomer, sub.Customer)
	}

	normalized := NormalizedSubscription{
		UserID:                 account.UserID,
		Provider:               models.BillingProviderStripe,
		ProviderSubscriptionID: sub.ID,
		Status:                 sub.Status,
		CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
		RawPayloadJSON:         string(payload),
	}
	if event.Type == EventSubscriptionDeleted {
		normalized.Status = models.BillingStatusCanceled
	}
	if len(sub.Items.Data) > 0 {
		normalized.ProviderPlanRef = sub.Items.Data[0].Price.ID
		normalized.BillingInterval = sub.Items.Data[0].Price.Recurring.Interval
	}
	if sub.CurrentPeriodStart > 0 {
		start := time.Unix(sub.CurrentPeriodStart, 0)
		normalized.CurrentPeriodStart = &start
	}
	if sub.CurrentPeriodEnd > 0 {
		end := time.Unix(sub.CurrentPeriodEnd, 0)
		normalized.CurrentPeriodEnd = &end
	}

	_, effectivePlan, err := s.SyncSubscription(ctx, normalized)
	if err != nil {
		return "", err
	}
	return effectivePlan, nil
}

// StripeCustomerAccount resolves the local billing account referenced by a
// Stripe event payload, or (nil, nil) when the event carries no customer.
func (s *Service) StripeCustomerAccount(ctx context.Context, payload []byte) (*models.BillingAccount, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode stripe event: %w", err)
	}
	if strings.TrimSpace(event.Data.Object.Customer) == "" {
		return nil, nil
	}
	return s.GetBillingAccountByProviderAccountID(ctx, models.BillingProviderStripe, event.Data.Object.Customer)
}
