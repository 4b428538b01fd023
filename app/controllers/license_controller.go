package controllers

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/loglens/loglens/app/models"
	"github.com/loglens/loglens/app/repository"
	"github.com/loglens/loglens/internal/pkg/billing"
	"github.com/loglens/loglens/internal/pkg/database"
	"github.com/loglens/loglens/internal/pkg/entitlements"
	"github.com/loglens/loglens/internal/pkg/env"
	"github.com/loglens/loglens/internal/pkg/jobqueue"
	"github.com/loglens/loglens/internal/pkg/licensing"
	"github.com/loglens/loglens/internal/pkg/mail"
	"github.com/loglens/loglens/internal/pkg/ratelimit"
	"github.com/loglens/loglens/internal/pkg/security"
	"github.com/loglens/loglens/internal/pkg/usercontext"
)

var (
	activationLimiter     *ratelimit.Limiter
	activationLimiterOnce sync.Once
)

func getActivationLimiter() *ratelimit.Limiter {
	activationLimiterOnce.Do(func() {
		activationLimiter = ratelimit.NewActivationLimiter()
	})
	return activationLimiter
}

// trialStore adapts the trial repository to entitlement resolution. Missing
// rows come back as (nil, nil); the resolver treats that as "no trial".
type trialStore struct {
	repo repository.TrialRepository
}

func (s trialStore) TrialByUser(userID string) (*licensing.TrialLicense, error) {
	id, err := models.ParseUserID(userID)
	if err != nil {
		return nil, nil
	}
	trial, err := s.repo.GetUserTrial(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	core := licensing.TrialLicense{
		TokenID:   trial.TokenID,
		CreatedAt: trial.CreatedAt,
		ExpiresAt: trial.ExpiresAt,
		UserID:    userID,
	}
	return &core, nil
}

func (s trialStore) TrialByInstallation(installationID string) (*licensing.TrialLicense, error) {
	trial, err := s.repo.GetByInstallationID(installationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	core := trial.ToCore()
	return &core, nil
}

func buildResolver() *licensing.Resolver {
	svc := billing.NewServiceFromDB(database.GetDB())
	trials := trialStore{repo: repository.GetGlobalFactory().GetTrialRepository()}
	return licensing.NewResolver(svc, trials)
}

func licenseSecret() string {
	return env.GetEnv("LICENSE_TOKEN_SECRET", "")
}

// issueLicenseTokenForUser mints a signed license token carrying the user's
// current paid plan, or free when no subscription entitles more. Trial access
// is never encoded into license tokens; it travels in trial tokens.
func issueLicenseTokenForUser(user *models.User) (string, *licensing.LicensePayload, error) {
	svc := billing.NewServiceFromDB(database.GetDB())
	plan := entitlements.PlanFree
	sub, err := svc.BestSubscriptionByUser(models.FormatUserID(user.ID))
	if err != nil {
		return "", nil, err
	}
	if sub != nil && entitlements.IsPaid(sub.Plan) {
		plan = sub.Plan
	}

	payload := licensing.GeneratePayload(licensing.PayloadInput{
		UserID: models.FormatUserID(user.ID),
		Email:  user.Email,
		Plan:   plan,
	})
	token, err := security.SignLicenseToken(payload, licenseSecret())
	if err != nil {
		return "", nil, err
	}
	return token, &payload, nil
}

// HandleTrialActivate grants a three-day trial to an extension install. The
// endpoint is idempotent per installation: re-activating a running trial
// returns a fresh token on the stored expiry instead of a new grant.
func HandleTrialActivate(c *fiber.Ctx) error {
	var fp licensing.DeviceFingerprint
	if err := c.BodyParser(&fp); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	if !licensing.ValidateFingerprint(fp) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "invalid_fingerprint",
			"reason": licensing.ReasonInvalidFingerprint,
		})
	}

	ipv4, ipv6 := GetClientIP(c)
	clientIP := ipv4
	if clientIP == "" {
		clientIP = ipv6
	}

	allowed, err := getActivationLimiter().Allow(c.Context(), clientIP)
	if err != nil {
		log.Printf("activation rate limit check failed: %v", err)
	} else if !allowed {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":   "rate_limited",
			"message": "Too many activation attempts, try again later",
		})
	}

	repo := repository.GetGlobalFactory().GetTrialRepository()
	hash := licensing.FingerprintHash(fp)

	// A device that already consumed a trial under a different installation
	// ID does not get another one. This gate runs outside the create
	// transaction: the fingerprint is a heuristic, and only per-installation
	// uniqueness is guaranteed (by CreateIfAbsent). Two concurrent first
	// activations on one device may both pass here.
	existing, err := repo.GetByInstallationID(fp.InstallationID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Activation failed"})
	}
	if existing == nil {
		used, err := repo.FingerprintUsed(hash)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Activation failed"})
		}
		if used {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":  "trial_already_used",
				"reason": licensing.ReasonTrialAlreadyUsed,
			})
		}
	}

	trial := licensing.NewTrialLicense(licensing.TrialInput{
		Fingerprint: fp,
		IP:          clientIP,
		Country:     strings.ToUpper(strings.TrimSpace(c.Get("CF-IPCountry"))),
	}, uuid.NewString())

	_, stored, err := repo.CreateIfAbsent(models.NewTrialLicenseModel(trial), hash)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Activation failed"})
	}

	core := stored.ToCore()
	if !licensing.IsTrialValid(core) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":  "trial_expired",
			"reason": licensing.ReasonTrialExpired,
		})
	}

	token, err := security.SignTrialToken(core.InstallationID, core.TokenID, core.ExpiresAt, licenseSecret())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Activation failed"})
	}

	return c.JSON(fiber.Map{
		"token":          token,
		"plan":           string(entitlements.PlanTrial),
		"expires_at":     core.ExpiresAt.UTC().Format(time.RFC3339),
		"days_remaining": licensing.TrialDaysRemaining(core),
		"limits":         entitlements.GetEntitlements(entitlements.PlanTrial),
	})
}

type trialExtendRequest struct {
	InstallationID string `json:"installation_id"`
}

// HandleTrialExtend applies the one-time trial extension for a logged-in
// user. The repository re-checks all rules inside one transaction.
func HandleTrialExtend(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	var req trialExtendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	installationID := strings.TrimSpace(req.InstallationID)
	if installationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "installation_id is required"})
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Extension failed"})
	}

	trial, err := repository.GetGlobalFactory().GetTrialRepository().ExtendTrial(installationID, user.ID, user.Email)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTrialNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "reason": licensing.ReasonNoTrial})
		case errors.Is(err, repository.ErrTrialAlreadyExtended):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already_extended", "reason": licensing.ReasonAlreadyExtended})
		case errors.Is(err, repository.ErrTrialExpired):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "trial_expired", "reason": licensing.ReasonTrialExpired})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Extension failed"})
		}
	}

	token, err := security.SignTrialToken(trial.InstallationID, trial.TokenID, trial.ExpiresAt, licenseSecret())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Extension failed"})
	}

	days := licensing.DaysRemainingAfterExtension(trial.ExpiresAt)
	enqueueTrialExtendedMail(user.Email, days)

	return c.JSON(fiber.Map{
		"token":          token,
		"plan":           string(entitlements.PlanTrial),
		"expires_at":     trial.ExpiresAt.UTC().Format(time.RFC3339),
		"days_remaining": days,
		"extended":       true,
	})
}

// HandleWebTrialStart grants the six-day dashboard trial, once per account.
func HandleWebTrialStart(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	trial := &models.UserTrial{
		UserID:    userCtx.UserID,
		TokenID:   uuid.NewString(),
		ExpiresAt: time.Now().Add(licensing.WebTrialDuration),
	}
	created, stored, err := repository.GetGlobalFactory().GetTrialRepository().CreateUserTrial(trial)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Trial start failed"})
	}

	if !created && !stored.ExpiresAt.After(time.Now()) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "trial_already_used", "reason": licensing.ReasonTrialAlreadyUsed})
	}

	if created {
		if user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID); err == nil {
			subject, body := mail.TrialStartedEmail(licensing.TrialDaysRemaining(licensing.TrialLicense{ExpiresAt: stored.ExpiresAt}))
			enqueueMail(user.Email, subject, body)
		}
	}

	return c.JSON(fiber.Map{
		"plan":           string(entitlements.PlanTrial),
		"expires_at":     stored.ExpiresAt.UTC().Format(time.RFC3339),
		"days_remaining": licensing.TrialDaysRemaining(licensing.TrialLicense{ExpiresAt: stored.ExpiresAt}),
		"created":        created,
	})
}

// HandleEntitlements resolves the effective plan and limits for the caller.
// Identity comes from the session when present, otherwise from the
// installation_id query parameter.
func HandleEntitlements(c *fiber.Ctx) error {
	id := licensing.Identity{
		InstallationID: strings.TrimSpace(c.Query("installation_id")),
	}
	if userCtx := usercontext.GetUserContext(c); userCtx.IsLoggedIn {
		id.UserID = models.FormatUserID(userCtx.UserID)
	}
	if subject, ok := c.Locals(usercontext.KeyLicenseSubject).(string); ok && subject != "" && id.UserID == "" && id.InstallationID == "" {
		if _, err := models.ParseUserID(subject); err == nil {
			id.UserID = subject
		} else {
			id.InstallationID = subject
		}
	}

	resolution, err := buildResolver().Resolve(id)
	if err != nil {
		log.Printf("entitlement resolution failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Resolution failed"})
	}
	return c.JSON(resolution)
}

// HandleLicenseIssue mints a license token for the logged-in user.
func HandleLicenseIssue(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Token issue failed"})
	}

	token, payload, err := issueLicenseTokenForUser(user)
	if err != nil {
		log.Printf("license token issue failed for user %d: %v", user.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Token issue failed"})
	}

	return c.JSON(fiber.Map{
		"license_token": token,
		"plan":          string(payload.Plan),
		"token_id":      payload.TokenID,
		"expires_at":    time.Unix(payload.ExpiresAt, 0).UTC().Format(time.RFC3339),
	})
}

// HandleLicenseRefresh rotates a license token that is close to expiry. The
// presented token must still pass full verification; outside the refresh
// window the original token is handed back unchanged.
func HandleLicenseRefresh(c *fiber.Ctx) error {
	subject, _ := c.Locals(usercontext.KeyLicenseSubject).(string)
	if subject == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing license token"})
	}

	token := extractBearer(c)
	payload, err := security.VerifyLicenseToken(token, licenseSecret())
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid license token"})
	}

	if !licensing.ShouldRefreshToken(*payload, licensing.DefaultRefreshThreshold) {
		return c.JSON(fiber.Map{
			"license_token": token,
			"refreshed":     false,
			"expires_at":    time.Unix(payload.ExpiresAt, 0).UTC().Format(time.RFC3339),
		})
	}

	userID, err := models.ParseUserID(payload.Subject)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "bad_subject", "message": "Trial tokens are re-issued through activation"})
	}
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByID(userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Refresh failed"})
	}

	fresh, freshPayload, err := issueLicenseTokenForUser(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Refresh failed"})
	}

	// The replaced token stays revoked even if the client keeps a copy.
	if err := repository.GetGlobalFactory().GetRevocationRepository().Revoke(userID, payload.TokenID, "refreshed"); err != nil {
		log.Printf("revocation of replaced token failed for user %d: %v", userID, err)
	}

	return c.JSON(fiber.Map{
		"license_token": fresh,
		"refreshed":     true,
		"plan":          string(freshPayload.Plan),
		"token_id":      freshPayload.TokenID,
		"expires_at":    time.Unix(freshPayload.ExpiresAt, 0).UTC().Format(time.RFC3339),
	})
}

type licenseVerifyRequest struct {
	Token string `json:"token"`
}

// HandleLicenseVerify runs the full three-layer check on a presented token
// and reports the verdict without establishing any session state.
func HandleLicenseVerify(c *fiber.Ctx) error {
	var req licenseVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	payload, err := security.VerifyLicenseToken(req.Token, licenseSecret())
	if err != nil {
		return c.JSON(fiber.Map{"valid": false, "reason": "invalid_signature"})
	}

	result := licensing.VerifyPayload(*payload)
	if !result.Valid {
		return c.JSON(fiber.Map{"valid": false, "reason": result.Reason})
	}

	if userID, err := models.ParseUserID(payload.Subject); err == nil {
		revoked, err := repository.GetGlobalFactory().GetRevocationRepository().IsRevoked(userID, payload.TokenID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Verification failed"})
		}
		if revoked {
			return c.JSON(fiber.Map{"valid": false, "reason": "revoked"})
		}
	}

	return c.JSON(fiber.Map{
		"valid":      true,
		"subject":    payload.Subject,
		"plan":       string(payload.Plan),
		"token_id":   payload.TokenID,
		"expires_at": time.Unix(payload.ExpiresAt, 0).UTC().Format(time.RFC3339),
	})
}

type licenseRevokeRequest struct {
	TokenID string `json:"token_id"`
	Reason  string `json:"reason"`
}

// HandleLicenseRevoke adds one of the caller's own tokens to the revocation
// list. Admins revoke other users' tokens through the admin endpoint.
func HandleLicenseRevoke(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Login required"})
	}

	var req licenseRevokeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	tokenID := strings.TrimSpace(req.TokenID)
	if tokenID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "token_id is required"})
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "user_requested"
	}
	if err := repository.GetGlobalFactory().GetRevocationRepository().Revoke(userCtx.UserID, tokenID, reason); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Revocation failed"})
	}

	return c.JSON(fiber.Map{"revoked": true, "token_id": tokenID})
}

func enqueueTrialExtendedMail(to string, daysRemaining int) {
	subject, body := mail.TrialExtendedEmail(daysRemaining)
	enqueueMail(to, subject, body)
}

func enqueueMail(to, subject, body string) {
	payload := jobqueue.SendEmailJobPayload{To: to, Subject: subject, Body: body}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeSendEmail, payload.ToMap()); err != nil {
		log.Printf("mail enqueue failed for %s: %v", to, err)
	}
}

func extractBearer(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
