package controllers

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/loglens/loglens/app/models"
	"github.com/loglens/loglens/app/repository"
	"github.com/loglens/loglens/internal/pkg/database"
	"github.com/loglens/loglens/internal/pkg/env"
	"github.com/loglens/loglens/internal/pkg/jobqueue"
	"github.com/loglens/loglens/internal/pkg/mail"
	"github.com/loglens/loglens/internal/pkg/session"
	"github.com/loglens/loglens/internal/pkg/statistics"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleAuthRegister creates an inactive account and mails the activation link.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	if err := user.GenerateActivationToken(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Registration failed"})
	}

	ipv4, ipv6 := GetClientIP(c)
	user.IPv4 = ipv4
	user.IPv6 = ipv6

	repo := repository.GetGlobalFactory().GetUserRepository()
	if err := repo.Create(user); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate") {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email_taken", "message": "An account with this email already exists"})
		}
		log.Printf("user create failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Registration failed"})
	}

	enqueueActivationMail(user)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      user.ID,
		"email":   user.Email,
		"status":  user.Status,
		"message": "Account created. Check your inbox for the activation link.",
	})
}

// HandleAuthActivate flips an account to active via the emailed token.
func HandleAuthActivate(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Missing activation token"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByActivationToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown activation token"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Activation failed"})
	}

	user.Status = models.STATUS_ACTIVE
	user.ActivationToken = ""
	if err := repo.Update(user); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Activation failed"})
	}

	statistics.ResetCacheUpdateTimer()

	return c.JSON(fiber.Map{"status": user.Status, "message": "Account activated"})
}

// HandleAuthLogin validates credentials and establishes the web session.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_credentials", "message": "Email or password is wrong"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Login failed"})
	}

	if !user.CheckPassword(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_credentials", "message": "Email or password is wrong"})
	}

	if user.Status != models.STATUS_ACTIVE {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "account_inactive", "message": "Account is not activated"})
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Session init failed"})
	}
	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_IS_ADMIN, user.Role == models.ROLE_ADMIN)
	if err := sess.Save(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Session save failed"})
	}

	// Cache the reconciled plan in the session for subsequent requests.
	plan := "free"
	if db := database.GetDB(); db != nil {
		if us, err := models.GetOrCreateUserSettings(db, user.ID); err == nil && us.Plan != "" {
			plan = us.Plan
		}
	}
	_ = session.SetSessionValue(c, "user_plan", plan)

	now := time.Now()
	user.LastLoginAt = &now
	if err := repo.Update(user); err != nil {
		log.Printf("failed to update last login for user %d: %v", user.ID, err)
	}

	token, payload, err := issueLicenseTokenForUser(user)
	if err != nil {
		log.Printf("license token issue failed for user %d: %v", user.ID, err)
		return c.JSON(fiber.Map{"id": user.ID, "username": user.Name, "plan": plan})
	}

	return c.JSON(fiber.Map{
		"id":            user.ID,
		"username":      user.Name,
		"plan":          string(payload.Plan),
		"license_token": token,
		"token_id":      payload.TokenID,
		"expires_at":    time.Unix(payload.ExpiresAt, 0).UTC().Format(time.RFC3339),
	})
}

// HandleAuthLogout destroys the web session.
func HandleAuthLogout(c *fiber.Ctx) error {
	if err := session.DestroySession(c); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Logout failed"})
	}
	c.Locals(FROM_PROTECTED, false)
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// enqueueActivationMail hands the activation email to the job queue; a full
// queue must not fail registration, so errors degrade to direct sending.
func enqueueActivationMail(user *models.User) {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	link := fmt.Sprintf("%s/api/v1/auth/activate?token=%s", base, user.ActivationToken)
	subject := "Activate your LogLens account"
	body := fmt.Sprintf("<h2>Welcome to LogLens</h2><p>Click the link below to activate your account:</p><p><a href=\"%s\">%s</a></p>", link, link)

	payload := jobqueue.SendEmailJobPayload{To: user.Email, Subject: subject, Body: body}
	if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeSendEmail, payload.ToMap()); err != nil {
		log.Printf("activation mail enqueue failed for %s: %v", user.Email, err)
		if err := mail.SendMail(user.Email, subject, body); err != nil {
			log.Printf("activation mail send failed for %s: %v", user.Email, err)
		}
	}
}
