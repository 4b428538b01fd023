package controllers

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/loglens/loglens/app/models"
	"github.com/loglens/loglens/app/repository"
	"github.com/loglens/loglens/internal/pkg/billing"
	"github.com/loglens/loglens/internal/pkg/database"
	"github.com/loglens/loglens/internal/pkg/entitlements"
	"github.com/loglens/loglens/internal/pkg/env"
	"github.com/loglens/loglens/internal/pkg/mail"
	"github.com/loglens/loglens/internal/pkg/session"
	"github.com/loglens/loglens/internal/pkg/usercontext"
)

// HandleStripeWebhook ingests Stripe subscription lifecycle events. Every
// payload is stored before processing so a crash mid-sync can be replayed;
// duplicate event IDs are acknowledged without reprocessing.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	sigValid := billing.VerifyStripeWebhookSignature(payload, c.Get("Stripe-Signature"), secret, billing.DefaultSignatureTolerance)
	if !sigValid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature", "message": "Webhook signature verification failed"})
	}

	eventID, eventType, err := billing.ParseStripeEvent(payload)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Malformed event payload"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	created, event, err := svc.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(payload),
		SignatureValid:  sigValid,
	})
	if err != nil {
		log.Printf("stripe webhook persist failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Webhook persistence failed"})
	}
	if !created {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	effectivePlan, procErr := svc.ProcessStripeEvent(c.Context(), payload)
	if err := svc.MarkWebhookProcessed(c.Context(), event.ID, procErr); err != nil {
		log.Printf("stripe webhook mark processed failed for event %d: %v", event.ID, err)
	}

	if procErr != nil {
		// Stripe retries non-2xx responses. Events we deliberately do not
		// handle and customers we cannot map are acknowledged instead of
		// bouncing forever.
		if errors.Is(procErr, billing.ErrUnhandledEventType) {
			return c.JSON(fiber.Map{"received": true, "ignored": true})
		}
		if errors.Is(procErr, billing.ErrUnknownCustomer) {
			log.Printf("stripe webhook for unknown customer: %v", procErr)
			return c.JSON(fiber.Map{"received": true, "ignored": true})
		}
		log.Printf("stripe webhook processing failed: %v", procErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Event processing failed"})
	}

	notifyPlanActivated(svc, payload, effectivePlan)

	return c.JSON(fiber.Map{"received": true, "plan": effectivePlan})
}

type billingLinkRequest struct {
	ProviderAccountID string `json:"provider_account_id"`
	Email             string `json:"email"`
}

// HandleBillingLink connects the logged-in user to their Stripe customer so
// later webhooks can be attributed.
func HandleBillingLink(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	var req billingLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if strings.TrimSpace(req.ProviderAccountID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "provider_account_id is required"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	account, err := svc.LinkBillingAccount(c.Context(), userCtx.UserID, models.BillingProviderStripe, req.ProviderAccountID, req.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Linking failed"})
	}

	return c.JSON(fiber.Map{
		"provider":            account.Provider,
		"provider_account_id": account.ProviderAccountID,
		"linked":              true,
	})
}

// HandleBillingResync recomputes the effective plan from stored subscription
// state and refreshes the session cache.
func HandleBillingResync(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	plan, err := svc.ReconcileUserPlan(c.Context(), userCtx.UserID)
	if err != nil {
		log.Printf("plan reconciliation failed for user %d: %v", userCtx.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Resync failed"})
	}

	_ = session.SetSessionValue(c, "user_plan", plan)

	return c.JSON(fiber.Map{
		"plan":   plan,
		"limits": entitlements.GetEntitlements(entitlements.NormalizePlan(plan)),
	})
}

// notifyPlanActivated mails the subscriber after a sync lands on a paid plan.
// Best effort; a mail failure never fails the webhook.
func notifyPlanActivated(svc *billing.Service, payload []byte, effectivePlan string) {
	if !entitlements.IsPaid(entitlements.NormalizePlan(effectivePlan)) {
		return
	}
	_, eventType, err := billing.ParseStripeEvent(payload)
	if err != nil || eventType != billing.EventSubscriptionCreated {
		return
	}
	account, err := svc.StripeCustomerAccount(context.Background(), payload)
	if err != nil || account == nil {
		return
	}
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(account.UserID)
	if err != nil {
		return
	}
	subject, body := mail.SubscriptionActivatedEmail(effectivePlan)
	enqueueMail(user.Email, subject, body)
}
